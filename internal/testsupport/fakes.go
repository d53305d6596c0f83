package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"podflow/internal/services"
	"podflow/internal/services/llm"
	"podflow/internal/speech"
	"podflow/internal/stage"
)

// GeneratorFunc answers one generation request.
type GeneratorFunc func(req llm.Request) (string, error)

// Generator is an in-memory llm.Generator that records every request.
type Generator struct {
	mu       sync.Mutex
	Respond  GeneratorFunc
	requests []llm.Request
}

// NewGenerator returns a generator that answers with respond. A nil respond
// echoes "response to <prompt>".
func NewGenerator(respond GeneratorFunc) *Generator {
	if respond == nil {
		respond = func(req llm.Request) (string, error) {
			return "response to " + req.Prompt, nil
		}
	}
	return &Generator{Respond: respond}
}

// Generate records req and delegates to Respond.
func (g *Generator) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	respond := g.Respond
	g.mu.Unlock()
	return respond(req)
}

// Requests returns a copy of the recorded requests.
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}

// SynthCall is one recorded synthesis request.
type SynthCall struct {
	Text  string
	Voice speech.VoiceParams
}

// Synthesizer is an in-memory speech.Synthesizer producing FakeMP3 frames
// tagged with the chunk text.
type Synthesizer struct {
	mu    sync.Mutex
	name  string
	limit int
	calls []SynthCall
	// Err, when set, fails every call.
	Err error
}

// NewSynthesizer builds a fake synthesizer with the given chunk limit.
func NewSynthesizer(name string, limit int) *Synthesizer {
	return &Synthesizer{name: name, limit: limit}
}

// Name returns the provider name used in cache keys.
func (s *Synthesizer) Name() string { return s.name }

// MaxChunkChars returns the configured chunk limit.
func (s *Synthesizer) MaxChunkChars() int { return s.limit }

// Synthesize records the call and returns FakeMP3(text).
func (s *Synthesizer) Synthesize(_ context.Context, text string, voice speech.VoiceParams) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SynthCall{Text: text, Voice: voice})
	if s.Err != nil {
		return nil, s.Err
	}
	return FakeMP3(text), nil
}

// Calls returns a copy of the recorded calls.
func (s *Synthesizer) Calls() []SynthCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SynthCall(nil), s.calls...)
}

type memoryObject struct {
	data        []byte
	contentType string
	created     time.Time
}

// ObjectStore is an in-memory storage.ObjectStore. Creation times advance by
// one second per Put so Latest is deterministic.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	clock   time.Time
	// PutErr, when set, fails every Put whose path contains the key.
	PutErr map[string]error
}

// NewObjectStore returns an empty in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string]memoryObject),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		PutErr:  make(map[string]error),
	}
}

// Put stores data and returns a mem:// URI.
func (m *ObjectStore) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, err := range m.PutErr {
		if strings.Contains(path, key) {
			return "", services.Wrap(services.ErrProviderFatal, "storage", "put", path, err)
		}
	}
	m.clock = m.clock.Add(time.Second)
	m.objects[path] = memoryObject{data: append([]byte(nil), data...), contentType: contentType, created: m.clock}
	return "mem://" + path, nil
}

// Seed stores data at path without going through failure injection.
func (m *ObjectStore) Seed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	m.objects[path] = memoryObject{data: append([]byte(nil), data...), created: m.clock}
}

// Get returns the stored bytes or a wrapped ErrNotFound.
func (m *ObjectStore) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "storage", "get", path, errors.New("object does not exist"))
	}
	return append([]byte(nil), obj.data...), nil
}

// Latest returns the newest object under prefix ending in suffix.
func (m *ObjectStore) Latest(_ context.Context, prefix, suffix string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best    string
		bestAt  time.Time
		matched bool
	)
	for path, obj := range m.objects {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if suffix != "" && !strings.HasSuffix(strings.ToLower(path), strings.ToLower(suffix)) {
			continue
		}
		if !matched || obj.created.After(bestAt) {
			best, bestAt, matched = path, obj.created, true
		}
	}
	return best, matched, nil
}

// HealthCheck always reports ready.
func (m *ObjectStore) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("storage")
}

// Paths lists stored object paths in sorted order.
func (m *ObjectStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for path := range m.objects {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Object returns the bytes stored at path.
func (m *ObjectStore) Object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// ContentType returns the content type recorded for path.
func (m *ObjectStore) ContentType(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[path].contentType
}

// Describe renders the stored paths for failure messages.
func (m *ObjectStore) Describe() string {
	return fmt.Sprintf("%v", m.Paths())
}
