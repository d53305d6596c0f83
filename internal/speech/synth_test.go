package speech

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSynth struct {
	limit int
	calls []string
	fail  error
}

func (r *recordingSynth) Name() string       { return "fake" }
func (r *recordingSynth) MaxChunkChars() int { return r.limit }
func (r *recordingSynth) Synthesize(_ context.Context, text string, _ VoiceParams) ([]byte, error) {
	if r.fail != nil {
		return nil, r.fail
	}
	r.calls = append(r.calls, text)
	return []byte("[" + text + "]"), nil
}

func TestNarrateSplitsAndMergesInOrder(t *testing.T) {
	synth := &recordingSynth{limit: 12}
	narrator := NewNarrator(nil, nil)

	merged, err := narrator.Narrate(context.Background(), synth, "First line. Second line. Third.", VoiceParams{Voice: "v"})
	require.NoError(t, err)
	require.Equal(t, []string{"First line.", "Second line.", "Third."}, synth.calls)
	require.Equal(t, "[First line.][Second line.][Third.]", string(merged.Data))
	require.Len(t, merged.Bounds, 3)
}

func TestNarrateNormalizesBeforeSynthesis(t *testing.T) {
	synth := &recordingSynth{limit: 100}
	_, err := NewNarrator(nil, nil).Narrate(context.Background(), synth, "Itâ€™s here.", VoiceParams{})
	require.NoError(t, err)
	require.Equal(t, []string{"It’s here."}, synth.calls)
}

func TestNarrateRejectsBlankText(t *testing.T) {
	_, err := NewNarrator(nil, nil).Narrate(context.Background(), &recordingSynth{limit: 10}, "  \n ", VoiceParams{})
	require.Error(t, err)
}

func TestNarratePropagatesProviderFailure(t *testing.T) {
	boom := errors.New("provider down")
	_, err := NewNarrator(nil, nil).Narrate(context.Background(), &recordingSynth{limit: 10, fail: boom}, "Hello.", VoiceParams{})
	require.ErrorIs(t, err, boom)
}

func TestNarrateUsesCache(t *testing.T) {
	cache := NewCache(t.TempDir())
	synth := &recordingSynth{limit: 50}
	narrator := NewNarrator(cache, nil)
	voice := VoiceParams{Voice: "Rachel", Stability: 0.39}

	first, err := narrator.Narrate(context.Background(), synth, "Cached sentence.", voice)
	require.NoError(t, err)
	second, err := narrator.Narrate(context.Background(), synth, "Cached sentence.", voice)
	require.NoError(t, err)

	require.Equal(t, first.Data, second.Data)
	require.Len(t, synth.calls, 1)
}

func TestCacheKeyDependsOnVoice(t *testing.T) {
	cache := NewCache(t.TempDir())
	a := cache.Key("eleven", VoiceParams{Voice: "a"}, "text")
	b := cache.Key("eleven", VoiceParams{Voice: "b"}, "text")
	c := cache.Key("eleven", VoiceParams{Voice: "a"}, "text")
	require.NotEqual(t, a, b)
	require.Equal(t, a, c)
	require.False(t, strings.ContainsAny(a, "/\\"))
}

func TestNilCacheIsSafe(t *testing.T) {
	var cache *Cache
	require.Nil(t, NewCache(""))
	_, ok := cache.Get("k")
	require.False(t, ok)
	require.NoError(t, cache.Put("k", []byte("x")))
}
