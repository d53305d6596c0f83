package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"podflow/internal/logging"
	"podflow/internal/textnorm"
)

// VoiceParams selects a voice and its tuning for one synthesis call.
type VoiceParams struct {
	Voice           string
	Model           string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	Speed           float64
}

// Synthesizer converts one chunk of text to audio.
type Synthesizer interface {
	Name() string
	MaxChunkChars() int
	Synthesize(ctx context.Context, text string, voice VoiceParams) ([]byte, error)
}

// Narrator turns arbitrarily long text into a single audio artifact.
type Narrator struct {
	cache  *Cache
	logger *slog.Logger
}

// NewNarrator builds a narrator. cache may be nil.
func NewNarrator(cache *Cache, logger *slog.Logger) *Narrator {
	return &Narrator{
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "narrator"),
	}
}

// Narrate normalizes text, splits it to the synthesizer's limit, synthesizes
// every non-blank chunk in order and merges the results.
func (n *Narrator) Narrate(ctx context.Context, synth Synthesizer, text string, voice VoiceParams) (Merged, error) {
	if synth == nil {
		return Merged{}, fmt.Errorf("narrate: synthesizer unavailable")
	}
	text = textnorm.Normalize(text)
	if strings.TrimSpace(text) == "" {
		return Merged{}, fmt.Errorf("narrate: text is empty")
	}

	chunks := Split(text, synth.MaxChunkChars())
	logger := logging.WithContext(ctx, n.logger)
	logger.Debug("narration split",
		logging.String("provider", synth.Name()),
		logging.Int("chunk_count", len(chunks)),
		logging.Int("chunk_limit", synth.MaxChunkChars()),
	)

	segments := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		body := strings.TrimSpace(chunk.Text)
		if body == "" {
			continue
		}
		audio, err := n.synthesizeChunk(ctx, synth, body, voice)
		if err != nil {
			return Merged{}, fmt.Errorf("narrate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		segments = append(segments, audio)
	}
	return Merge(segments)
}

func (n *Narrator) synthesizeChunk(ctx context.Context, synth Synthesizer, text string, voice VoiceParams) ([]byte, error) {
	var key string
	if n.cache != nil {
		key = n.cache.Key(synth.Name(), voice, text)
		if data, ok := n.cache.Get(key); ok {
			return data, nil
		}
	}
	start := time.Now()
	audio, err := synth.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	n.logger.Debug("chunk synthesized",
		logging.String("provider", synth.Name()),
		logging.Int("chars", len([]rune(text))),
		logging.Int("audio_bytes", len(audio)),
		logging.Duration("synthesis_duration", time.Since(start)),
	)
	if n.cache != nil {
		if err := n.cache.Put(key, audio); err != nil {
			logging.WarnWithContext(n.logger, "chunk cache write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "chunk will be synthesized again next run"),
			)
		}
	}
	return audio, nil
}
