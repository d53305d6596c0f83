package speech

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeKeepsOrderAndBounds(t *testing.T) {
	a := []byte{0xFF, 0xFB, 0x01}
	b := []byte{0xFF, 0xFB, 0x02, 0x02}
	c := []byte{0xFF, 0xFB, 0x03}

	merged, err := Merge([][]byte{a, b, c})
	require.NoError(t, err)
	require.Equal(t, append(append(append([]byte{}, a...), b...), c...), merged.Data)
	require.Len(t, merged.Bounds, 3)
	require.Equal(t, a, merged.Segment(0))
	require.Equal(t, b, merged.Segment(1))
	require.Equal(t, c, merged.Segment(2))
	require.Nil(t, merged.Segment(3))
}

func TestMergeSingleSegmentIsNoop(t *testing.T) {
	a := []byte("ID3\x03\x00\x00\x00\x00\x00\x02xxaudio")
	merged, err := Merge([][]byte{a})
	require.NoError(t, err)
	require.Equal(t, a, merged.Data)
	require.Equal(t, a, merged.Segment(0))
}

func TestMergeRejectsEmptyInput(t *testing.T) {
	_, err := Merge(nil)
	require.True(t, errors.Is(err, ErrNoSegments))

	_, err = Merge([][]byte{{0x01}, {}})
	require.Error(t, err)
}

func TestMergeStripsInteriorTags(t *testing.T) {
	id3 := []byte("ID3\x04\x00\x00\x00\x00\x00\x03abc")
	trailer := append([]byte("TAG"), bytes.Repeat([]byte{0x20}, 125)...)

	first := append(append([]byte{}, id3...), append([]byte("first"), trailer...)...)
	second := append(append([]byte{}, id3...), append([]byte("second"), trailer...)...)

	merged, err := Merge([][]byte{first, second})
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, id3...), []byte("first")...), merged.Segment(0))
	require.Equal(t, append([]byte("second"), trailer...), merged.Segment(1))
	require.True(t, bytes.HasPrefix(merged.Data, id3))
	require.Equal(t, 1, bytes.Count(merged.Data, []byte("ID3")))
}
