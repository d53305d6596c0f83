package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"podflow/internal/notifications"
	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/services/googletts"
	"podflow/internal/services/llm"
	"podflow/internal/speech"
	"podflow/internal/stepcode"
	"podflow/internal/store"
	"podflow/internal/testsupport"
	"podflow/internal/workflow"
)

const engineSeed = `
workflows:
  - id: 1
    title: Daily news
    code: "P1M2,P2&R1M4,R2SL3T1"
    default_model: gpt-4o-mini
  - id: 2
    title: Weekly digest
    code: "C&P1"
  - id: 3
    title: Paused
    code: PPU
    active: false
prompts:
  - id: 1
    text: Write a headline
  - id: 2
    text: Expand it
models:
  - id: 1
    name: gpt-4o-mini
    default: true
  - id: 2
    name: gpt-4o
    web_search: true
locations:
  - id: 3
    kind: Folder
    path: podcasts/scripts/
  - id: 4
    kind: mp3
    path: podcasts/audio
  - id: 5
    kind: File
    path: podcasts/intro/jingle.mp3
  - id: 6
    kind: Folder
    path: podcasts/final
voice_profiles:
  - id: 1
    voice_name: Liam
    voice_id: TX3LPaxmHKxFdv7VOQHJ
    model_id: eleven_multilingual_v2
    stability: 0.39
    similarity_boost: 0.7
    style: 0.5
    speed: 1.06
`

var fixedNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	completed []notifications.RunSummary
	aborted   []notifications.RunSummary
}

func (n *recordingNotifier) NotifyRunCompleted(_ context.Context, s notifications.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, s)
	return nil
}

func (n *recordingNotifier) NotifyRunAborted(_ context.Context, s notifications.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.aborted = append(n.aborted, s)
	return nil
}

func (n *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }
func (n *recordingNotifier) TestNotification(context.Context) error        { return nil }

type staticRefresher struct {
	summary string
	err     error
}

func (r staticRefresher) Refresh(context.Context) (string, error) { return r.summary, r.err }

type harness struct {
	store     *store.Store
	objects   *testsupport.ObjectStore
	generator *testsupport.Generator
	eleven    *testsupport.Synthesizer
	google    *testsupport.Synthesizer
	notifier  *recordingNotifier
	engine    *workflow.Engine
}

func newHarness(t *testing.T, respond testsupport.GeneratorFunc, mutate ...func(*workflow.Dependencies)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustImport(t, st, engineSeed)

	h := &harness{
		store:     st,
		objects:   testsupport.NewObjectStore(),
		generator: testsupport.NewGenerator(respond),
		eleven:    testsupport.NewSynthesizer("elevenlabs", 1000),
		google:    testsupport.NewSynthesizer("google-tts", 1000),
		notifier:  &recordingNotifier{},
	}
	deps := workflow.Dependencies{
		Store:     st,
		Generator: h.generator,
		Objects:   h.objects,
		Voices: map[stepcode.VoiceFamily]speech.Synthesizer{
			stepcode.FamilyElevenLabs: h.eleven,
			stepcode.FamilyGoogle:     h.google,
		},
		Notifier: h.notifier,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	var (
		idMu   sync.Mutex
		runIDs int
	)
	h.engine = workflow.NewEngine(cfg, deps, nil,
		workflow.WithClock(func() time.Time { return fixedNow }),
		workflow.WithRunIDs(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			runIDs++
			return fmt.Sprintf("run-%d", runIDs)
		}),
	)
	return h
}

func (h *harness) run(t *testing.T, code string, opts workflow.RunOptions) workflow.RunResult {
	t.Helper()
	wf := store.Workflow{ID: 1, Title: "Daily news", Code: code, DefaultModel: "gpt-4o-mini"}
	result, err := h.engine.Run(context.Background(), wf, opts)
	require.NoError(t, err)
	return result
}

func headlineResponder(req llm.Request) (string, error) {
	if req.Prompt == "Write a headline" {
		return "Title: Big News\nDetails follow", nil
	}
	return "Story: " + req.Prompt, nil
}

func TestRunChainsReferencesAndSaves(t *testing.T) {
	h := newHarness(t, headlineResponder)
	result := h.run(t, "P1M2,P2&R1M4,R2SL3T1", workflow.RunOptions{})

	require.False(t, result.Aborted)
	require.Len(t, result.Steps, 3)
	require.Len(t, result.AllOutputs, 3)

	requests := h.generator.Requests()
	require.Len(t, requests, 2)
	require.Equal(t, "gpt-4o", requests[0].Model)
	require.True(t, requests[0].WebSearch)
	require.Equal(t, "Expand it\n\nTitle: Big News\nDetails follow", requests[1].Prompt)
	require.Equal(t, "gpt-4o-mini", requests[1].Model, "missing M4 falls back to the workflow default")
	require.False(t, requests[1].WebSearch)

	wantPath := "podcasts/scripts/20250304_100000_Big_News.txt"
	require.Equal(t, "mem://"+wantPath, result.AllOutputs[2].URI)
	data, ok := h.objects.Object(wantPath)
	require.True(t, ok, h.objects.Describe())
	require.Equal(t, "Story: Expand it\n\nTitle: Big News\nDetails follow", string(data))

	cols := result.OutputRecord.Columns
	require.Equal(t, "Write a headline", cols["Output1"])
	require.Equal(t, "Title: Big News\nDetails follow", cols["Output2"])
	require.Equal(t, "mem://"+wantPath, cols["Output6"])

	saved, err := h.store.OutputRecordFor(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, store.RunCompleted, saved.Status)

	records, err := h.store.StepRecords(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "R2SL3T1", records[2].Token)
	require.Equal(t, string(workflow.StepCommitted), records[2].Status)

	require.Len(t, h.notifier.completed, 1)
	require.Equal(t, 3, h.notifier.completed[0].Committed)
}

func TestSkippedStepsKeepIndexAlignment(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "P1,R5SL3,P2&R2,R1SL9,R1SL3", workflow.RunOptions{})

	require.False(t, result.Aborted)
	require.Len(t, result.AllOutputs, 5)
	require.Nil(t, result.AllOutputs[1])
	require.Nil(t, result.AllOutputs[3])
	require.Equal(t, workflow.StepSkipped, result.Steps[1].Status)
	require.Equal(t, "Response index 5 not found in previous outputs.", result.Steps[1].Message)
	require.Equal(t, "Location ID 9 not found.", result.Steps[3].Message)

	requests := h.generator.Requests()
	require.Len(t, requests, 2)
	require.Equal(t, "Expand it", requests[1].Prompt, "a null reference contributes no text")

	require.Equal(t, workflow.StepCommitted, result.Steps[4].Status)
	require.Equal(t, "response to Write a headline", result.AllOutputs[4].Text)

	committed, skipped := result.Counts()
	require.Equal(t, 3, committed)
	require.Equal(t, 2, skipped)
}

func TestSaveOnlyStorageFailureSkips(t *testing.T) {
	h := newHarness(t, nil)
	h.objects.PutErr["scripts"] = errors.New("bucket unavailable")

	result := h.run(t, "P1,R1SL3,P2", workflow.RunOptions{})
	require.False(t, result.Aborted)
	require.Equal(t, workflow.StepSkipped, result.Steps[1].Status)
	require.True(t, errors.Is(result.Steps[1].Err, services.ErrProviderFatal))
	require.Contains(t, result.Steps[1].Message, "bucket unavailable")
	require.Len(t, h.generator.Requests(), 2)
}

func TestPromptChainSaveFailureAborts(t *testing.T) {
	h := newHarness(t, nil)
	h.objects.PutErr["scripts"] = errors.New("bucket unavailable")

	result := h.run(t, "P1SL3,P2", workflow.RunOptions{})
	require.True(t, result.Aborted)
	require.Equal(t, 1, result.Fatal.Step)
	require.Len(t, h.generator.Requests(), 1)
}

func TestSynthesisFailureAbortsAndFlushes(t *testing.T) {
	h := newHarness(t, nil)
	h.eleven.Err = errors.New("quota exhausted")

	result := h.run(t, "P1SL3,L3E1SL4,P2", workflow.RunOptions{})
	require.True(t, result.Aborted)
	require.Equal(t, 2, result.Fatal.Step)
	require.Equal(t, "L3E1SL4", result.Fatal.Token)
	require.Len(t, result.Steps, 2)
	require.Len(t, h.generator.Requests(), 1, "steps after the abort never run")
	require.Contains(t, result.Steps[1].Message, "Aborting workflow")

	records, err := h.store.StepRecords(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, string(workflow.StepAborted), records[1].Status)

	saved, err := h.store.OutputRecordFor(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Equal(t, store.RunAborted, saved.Status)

	require.Len(t, h.notifier.aborted, 1)
	require.Equal(t, 2, h.notifier.aborted[0].AbortedStep)
	require.Empty(t, h.notifier.completed)
}

func TestSynthesizeElevenLabsUploadsAudio(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "P1SL3,L3E1SL4", workflow.RunOptions{})

	require.False(t, result.Aborted)
	calls := h.eleven.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "TX3LPaxmHKxFdv7VOQHJ", calls[0].Voice.Voice)
	require.Equal(t, "eleven_multilingual_v2", calls[0].Voice.Model)
	require.InDelta(t, 0.39, calls[0].Voice.Stability, 1e-9)
	require.Equal(t, "response to Write a headline", calls[0].Text)

	wantPath := "podcasts/audio/20250304_100000_workflow_1_step_2_liam.mp3"
	out := result.AllOutputs[1]
	require.Equal(t, refs.OutputAudio, out.Kind)
	require.Equal(t, "mem://"+wantPath, out.URI)
	data, ok := h.objects.Object(wantPath)
	require.True(t, ok, h.objects.Describe())
	require.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xFB}))
	require.Equal(t, "audio/mpeg", h.objects.ContentType(wantPath))
}

func TestSynthesizeGoogleUsesVoiceTable(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "P1SL3,L3GV2SL4", workflow.RunOptions{})

	require.False(t, result.Aborted)
	calls := h.google.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, googletts.VoiceName(2), calls[0].Voice.Voice)
	require.Empty(t, h.eleven.Calls())
}

func TestSynthesizeMissingSourceTextSkips(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "L3E1SL4,L3E7SL4", workflow.RunOptions{})

	require.False(t, result.Aborted)
	require.Equal(t, workflow.StepSkipped, result.Steps[0].Status)
	require.Equal(t, workflow.StepSkipped, result.Steps[1].Status)
	require.Equal(t, "Voice E7 not found.", result.Steps[1].Message)
	require.Empty(t, h.eleven.Calls())
}

func TestAudioMergeConcatenatesInOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.objects.Seed("podcasts/audio/old.mp3", testsupport.FakeMP3("old"))
	h.objects.Seed("podcasts/audio/new.mp3", testsupport.FakeMP3("new"))
	h.objects.Seed("podcasts/intro/jingle.mp3", testsupport.FakeMP3("jingle"))

	result := h.run(t, "L4&L5SL6", workflow.RunOptions{})
	require.False(t, result.Aborted)
	require.Equal(t, workflow.StepCommitted, result.Steps[0].Status, result.Steps[0].Message)

	wantPath := "podcasts/final/20250304_100000_merged_workflow_1_step_1.mp3"
	data, ok := h.objects.Object(wantPath)
	require.True(t, ok, h.objects.Describe())
	want := append(testsupport.FakeMP3("new"), testsupport.FakeMP3("jingle")...)
	require.Equal(t, want, data)
	require.Equal(t, "podcasts/audio/new.mp3\npodcasts/intro/jingle.mp3", result.Steps[0].Input)
}

func TestAudioMergeDownloadErrorsSkip(t *testing.T) {
	h := newHarness(t, nil)
	h.objects.Seed("podcasts/intro/jingle.mp3", testsupport.FakeMP3("jingle"))

	result := h.run(t, "L5&L6&L9SL6", workflow.RunOptions{})
	require.False(t, result.Aborted)
	step := result.Steps[0]
	require.Equal(t, workflow.StepSkipped, step.Status)
	require.True(t, strings.HasPrefix(step.Message, "Audio download errors: "), step.Message)
	require.Contains(t, step.Message, "L6:")
	require.Contains(t, step.Message, "L9:")
	require.Nil(t, result.AllOutputs[0])
}

func TestClassificationFaultAbortsAtPosition(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "P1,BAD,P2", workflow.RunOptions{})

	require.True(t, result.Aborted)
	require.Equal(t, 2, result.Fatal.Step)
	require.True(t, errors.Is(result.Fatal, services.ErrClassification))
	require.Equal(t, "Unrecognized step code BAD.", result.Steps[1].Message)
	require.Len(t, h.generator.Requests(), 1)
	require.Len(t, result.AllOutputs, 2, "the aborted step holds a nil slot")
	require.Nil(t, result.AllOutputs[1])
}

func TestCatalogStepsFollowSkipPolicy(t *testing.T) {
	h := newHarness(t, nil, func(deps *workflow.Dependencies) {
		deps.Models = staticRefresher{summary: "Updated models with 2 models (1 new models added, 0 deprecated status updated)."}
		deps.Feed = staticRefresher{err: services.Wrap(services.ErrProviderFatal, "feed", "fetch", "HTTP 503", nil)}
	})
	require.NoError(t, h.store.ReplaceEpisodes(context.Background(), []store.Episode{
		{ID: 1, Title: "First", ShortDescription: "one"},
		{ID: 2, Title: "Second", ShortDescription: "two"},
	}))

	result := h.run(t, "PPU,UM,PPL2", workflow.RunOptions{})
	require.False(t, result.Aborted)
	require.Equal(t, workflow.StepSkipped, result.Steps[0].Status)
	require.Equal(t, "Model catalog updated successfully. Updated models with 2 models (1 new models added, 0 deprecated status updated).",
		result.AllOutputs[1].Text)
	require.Equal(t, "Title: Second\nDescription Short: two\n\nTitle: First\nDescription Short: one", result.AllOutputs[2].Text)
	require.Equal(t, "PPL2", result.OutputRecord.Columns["Output5"])
}

func TestCatalogStepsWriteColumns(t *testing.T) {
	h := newHarness(t, nil, func(deps *workflow.Dependencies) {
		deps.Feed = staticRefresher{summary: "Updated Posted Podcasts tab with 3 episodes."}
		deps.Models = staticRefresher{summary: "Updated models with 2 models."}
	})

	result := h.run(t, "PPU,UM", workflow.RunOptions{})
	require.False(t, result.Aborted)
	cols := result.OutputRecord.Columns
	require.Contains(t, cols, "Output1")
	require.Empty(t, cols["Output1"])
	require.Equal(t, "Updated Posted Podcasts tab with 3 episodes.", cols["Output2"])
	require.Contains(t, cols, "Output3")
	require.Empty(t, cols["Output3"])
	require.Equal(t, "Model catalog updated successfully. Updated models with 2 models.", cols["Output4"])

	skipped := newHarness(t, nil)
	result = skipped.run(t, "PPU", workflow.RunOptions{})
	require.NotContains(t, result.OutputRecord.Columns, "Output2")
}

func TestTopicOverrideFillsCustomFragment(t *testing.T) {
	h := newHarness(t, nil)
	result := h.run(t, "C&P1", workflow.RunOptions{TopicOverride: "space weather"})

	require.False(t, result.Aborted)
	require.Equal(t, "space weather\n\nWrite a headline", h.generator.Requests()[0].Prompt)
}

func TestGenerationFailureAborts(t *testing.T) {
	h := newHarness(t, func(llm.Request) (string, error) {
		return "", errors.New("model overloaded")
	})
	result := h.run(t, "P1,P2", workflow.RunOptions{})

	require.True(t, result.Aborted)
	require.Equal(t, 1, result.Fatal.Step)
	require.True(t, errors.Is(result.Fatal, services.ErrProviderFatal))
	require.Nil(t, result.AllOutputs[0])
}

func TestCancelledContextStopsBetweenSteps(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wf := store.Workflow{ID: 1, Code: "P1,P2"}
	result, err := h.engine.Run(ctx, wf, workflow.RunOptions{})
	require.NoError(t, err)
	require.True(t, result.Aborted)
	require.Empty(t, result.Steps)
	require.True(t, errors.Is(result.Fatal, context.Canceled))
}

func TestHealthReportsEveryCollaborator(t *testing.T) {
	h := newHarness(t, nil, func(deps *workflow.Dependencies) {
		deps.Generator = nil
	})
	health := h.engine.Health(context.Background())
	names := make([]string, 0, len(health))
	for _, item := range health {
		names = append(names, item.Name)
		if item.Name == "generation" {
			require.False(t, item.Ready)
		}
	}
	require.Contains(t, names, "store")
	require.Contains(t, names, "storage")
	require.Contains(t, names, "generation")
}
