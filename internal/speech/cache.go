package speech

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"podflow/internal/fileutil"
)

// Cache keeps synthesized chunks on disk so reruns of the same narration do
// not pay for synthesis twice.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir, or nil when dir is empty.
func NewCache(dir string) *Cache {
	if dir == "" {
		return nil
	}
	return &Cache{dir: dir}
}

// Key derives a stable identifier from the provider, voice and text.
func (c *Cache) Key(provider string, voice VoiceParams, text string) string {
	h := xxhash.New()
	for _, part := range []string{
		provider,
		voice.Voice,
		voice.Model,
		strconv.FormatFloat(voice.Stability, 'f', -1, 64),
		strconv.FormatFloat(voice.SimilarityBoost, 'f', -1, 64),
		strconv.FormatFloat(voice.Style, 'f', -1, 64),
		strconv.FormatFloat(voice.Speed, 'f', -1, 64),
		text,
	} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get returns cached audio for key.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Put stores audio under key.
func (c *Cache) Put(key string, data []byte) error {
	if c == nil {
		return nil
	}
	if key == "" {
		return errors.New("cache key required")
	}
	return fileutil.WriteFileAtomic(c.path(key), data, 0o644)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".mp3")
}
