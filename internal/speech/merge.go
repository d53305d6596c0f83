package speech

import (
	"errors"
	"fmt"
)

// ErrNoSegments is returned when Merge receives nothing to concatenate.
var ErrNoSegments = errors.New("no audio segments to merge")

// Merged is concatenated audio plus the byte range each segment occupies.
type Merged struct {
	Data   []byte
	Bounds [][2]int
}

// Segment returns the bytes contributed by segment i.
func (m Merged) Segment(i int) []byte {
	if i < 0 || i >= len(m.Bounds) {
		return nil
	}
	b := m.Bounds[i]
	return m.Data[b[0]:b[1]]
}

// Merge concatenates MP3 segments in order. The first segment keeps its
// leading ID3v2 tag and the last keeps its trailing ID3v1 tag; tags in
// between are dropped so players see one continuous frame stream. A single
// segment is returned unchanged.
func Merge(segments [][]byte) (Merged, error) {
	if len(segments) == 0 {
		return Merged{}, ErrNoSegments
	}
	for i, seg := range segments {
		if len(seg) == 0 {
			return Merged{}, fmt.Errorf("merge audio: segment %d is empty", i+1)
		}
	}
	if len(segments) == 1 {
		return Merged{Data: segments[0], Bounds: [][2]int{{0, len(segments[0])}}}, nil
	}

	total := 0
	for _, seg := range segments {
		total += len(seg)
	}
	out := Merged{
		Data:   make([]byte, 0, total),
		Bounds: make([][2]int, 0, len(segments)),
	}
	last := len(segments) - 1
	for i, seg := range segments {
		start, end := 0, len(seg)
		if i > 0 {
			start = id3v2Len(seg)
		}
		if i < last {
			end -= id3v1Len(seg[start:])
		}
		offset := len(out.Data)
		out.Data = append(out.Data, seg[start:end]...)
		out.Bounds = append(out.Bounds, [2]int{offset, len(out.Data)})
	}
	return out, nil
}

func id3v2Len(b []byte) int {
	if len(b) < 10 || string(b[:3]) != "ID3" {
		return 0
	}
	size := int(b[6]&0x7f)<<21 | int(b[7]&0x7f)<<14 | int(b[8]&0x7f)<<7 | int(b[9]&0x7f)
	total := 10 + size
	if b[5]&0x10 != 0 {
		total += 10
	}
	if total > len(b) {
		return len(b)
	}
	return total
}

func id3v1Len(b []byte) int {
	if len(b) >= 128 && string(b[len(b)-128:len(b)-125]) == "TAG" {
		return 128
	}
	return 0
}
