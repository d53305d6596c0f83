package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podflow/internal/refs"
	"podflow/internal/services"
	"podflow/internal/services/googletts"
	"podflow/internal/speech"
	"podflow/internal/stepcode"
	"podflow/internal/storage"
	"podflow/internal/store"
	"podflow/internal/textutil"
)

const (
	textSuffix  = ".txt"
	audioSuffix = ".mp3"
)

type voiceChoice struct {
	params speech.VoiceParams
	label  string
}

// runSynthesize narrates the latest text at the source location. Missing
// configuration skips; generation and upload failures abort the run.
func (e *Engine) runSynthesize(ctx context.Context, ec *ExecutionContext, step stepcode.Step, params stepcode.Synthesize) StepOutcome {
	src, err := e.location(ctx, params.Source)
	if err != nil {
		return preconditionOutcome(step.Kind, "", fmt.Sprintf("Source location ID %d not found.", params.Source), err)
	}
	voice, err := e.voice(ctx, params.Voice)
	if err != nil {
		return preconditionOutcome(step.Kind, "", fmt.Sprintf("Voice %s not found.", params.Voice), err)
	}
	dst, err := e.location(ctx, params.Save)
	if err != nil {
		return preconditionOutcome(step.Kind, "", fmt.Sprintf("Save location ID %d not found.", params.Save), err)
	}
	synth := e.deps.Voices[params.Voice.Family]
	if synth == nil || e.deps.Objects == nil {
		err := services.Wrap(services.ErrConfiguration, "workflow", "synthesize",
			fmt.Sprintf("no synthesizer or object storage for family %s", params.Voice.Family), nil)
		return aborted(step.Kind, "", fmt.Sprintf("Speech provider %s is not configured. Aborting workflow.", params.Voice.Family), err)
	}

	text, _, err := e.sourceText(ctx, src)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return skipped(step.Kind, "", fmt.Sprintf("Failed to download text file from source location %d.", params.Source), err)
		}
		return aborted(step.Kind, "", failureMessage("Failed to read source text. Aborting workflow.", err), err)
	}
	if strings.TrimSpace(text) == "" {
		err := services.Wrap(services.ErrResolution, "workflow", "synthesize", "source text is empty", nil)
		return skipped(step.Kind, "", fmt.Sprintf("Source location %d holds no text.", params.Source), err)
	}

	merged, err := e.deps.Narrator.Narrate(ctx, synth, text, voice.params)
	if err != nil {
		err = markProviderFatal(err, "synthesize", synth.Name())
		msg := fmt.Sprintf("Failed to generate audio with %s for step %d. Aborting workflow.", synth.Name(), step.Index)
		return aborted(step.Kind, text, msg, err)
	}

	name := textutil.TitledName(e.now(), ec.TitleSource(params.TitleRef), "mp3",
		textutil.StepAudioName(ec.Workflow.ID, step.Index, textutil.SanitizeToken(voice.label)))
	uri, err := e.deps.Objects.Put(ctx, storage.Join(dst.Prefix(), name), merged.Data, storage.ContentTypeAudio)
	if err != nil {
		return aborted(step.Kind, text, failureMessage("Failed to upload audio to storage. Aborting workflow.", err), err)
	}
	ec.Record(step.Index, text, uri)
	return committed(step.Kind, text, refs.AudioOutput(uri), "Generated and uploaded audio: "+uri)
}

// runAudioMerge concatenates the audio at every source location in order.
// Every failure skips.
func (e *Engine) runAudioMerge(ctx context.Context, ec *ExecutionContext, step stepcode.Step, params stepcode.AudioMerge) StepOutcome {
	if len(params.Sources) < 2 {
		err := services.Wrap(services.ErrValidation, "workflow", "audio merge", "fewer than two sources", nil)
		return skipped(step.Kind, "", fmt.Sprintf("Audio merging requires at least 2 source locations, found %d.", len(params.Sources)), err)
	}
	if e.deps.Objects == nil {
		err := services.Wrap(services.ErrConfiguration, "workflow", "audio merge", "object storage unavailable", nil)
		return skipped(step.Kind, "", "Object storage is not configured.", err)
	}

	var (
		segments [][]byte
		paths    []string
		problems []string
		firstErr error
	)
	for _, id := range params.Sources {
		loc, err := e.location(ctx, id)
		if err == nil {
			var (
				data []byte
				path string
			)
			data, path, err = e.audioSource(ctx, loc)
			if err == nil {
				segments = append(segments, data)
				paths = append(paths, path)
				continue
			}
		}
		problems = append(problems, fmt.Sprintf("L%d: %s", id, strings.TrimSpace(err.Error())))
		if firstErr == nil {
			firstErr = err
		}
	}
	input := strings.Join(paths, "\n")
	if len(problems) > 0 {
		return skipped(step.Kind, input, "Audio download errors: "+strings.Join(problems, "; "), firstErr)
	}

	merged, err := speech.Merge(segments)
	if err != nil {
		return skipped(step.Kind, input, failureMessage(fmt.Sprintf("Failed to merge audio files for step %d.", step.Index), err), err)
	}
	dst, err := e.location(ctx, params.Save)
	if err != nil {
		return skipped(step.Kind, input, fmt.Sprintf("Save location ID %d not found.", params.Save), err)
	}
	name := textutil.TitledName(e.now(), ec.TitleSource(params.TitleRef), "mp3", textutil.MergedAudioName(ec.Workflow.ID, step.Index))
	uri, err := e.deps.Objects.Put(ctx, storage.Join(dst.Prefix(), name), merged.Data, storage.ContentTypeAudio)
	if err != nil {
		return skipped(step.Kind, input, failureMessage("Failed to upload merged audio to storage.", err), err)
	}
	ec.Record(step.Index, input, uri)
	return committed(step.Kind, input, refs.AudioOutput(uri), "Merged and uploaded audio: "+uri)
}

// voice resolves a voice reference to provider parameters.
func (e *Engine) voice(ctx context.Context, ref stepcode.VoiceRef) (voiceChoice, error) {
	switch ref.Family {
	case stepcode.FamilyGoogle:
		name := googletts.VoiceName(ref.ID)
		return voiceChoice{params: speech.VoiceParams{Voice: name}, label: name}, nil
	case stepcode.FamilyElevenLabs:
		profile, err := e.deps.Store.VoiceProfile(ctx, ref.ID)
		if err != nil {
			return voiceChoice{}, services.Wrap(services.ErrProviderFatal, "workflow", "lookup voice", ref.String(), err)
		}
		if profile == nil || strings.TrimSpace(profile.VoiceID) == "" {
			return voiceChoice{}, services.Wrap(services.ErrResolution, "workflow", "lookup voice",
				fmt.Sprintf("voice profile %s not found", ref), nil)
		}
		label := strings.TrimSpace(profile.VoiceName)
		if label == "" {
			label = ref.String()
		}
		return voiceChoice{
			params: speech.VoiceParams{
				Voice:           profile.VoiceID,
				Model:           profile.ModelID,
				Stability:       profile.Stability,
				SimilarityBoost: profile.SimilarityBoost,
				Style:           profile.Style,
				Speed:           profile.Speed,
			},
			label: label,
		}, nil
	default:
		return voiceChoice{}, services.Wrap(services.ErrClassification, "workflow", "lookup voice",
			fmt.Sprintf("unknown voice family %q", ref.Family), nil)
	}
}

// sourceText reads the text a location points at: the file itself for File
// locations, otherwise the newest text object in the folder.
func (e *Engine) sourceText(ctx context.Context, loc *store.Location) (string, string, error) {
	if e.deps.Objects == nil {
		return "", "", services.Wrap(services.ErrConfiguration, "workflow", "read text", "object storage unavailable", nil)
	}
	objectPath, err := e.resolveObject(ctx, loc, textSuffix, true)
	if err != nil {
		return "", "", err
	}
	text, err := storage.GetText(ctx, e.deps.Objects, objectPath)
	if err != nil {
		return "", objectPath, err
	}
	return text, objectPath, nil
}

// audioSource reads the audio a location points at. Plain folders are not
// valid merge sources.
func (e *Engine) audioSource(ctx context.Context, loc *store.Location) ([]byte, string, error) {
	objectPath, err := e.resolveObject(ctx, loc, audioSuffix, false)
	if err != nil {
		return nil, "", err
	}
	data, err := e.deps.Objects.Get(ctx, objectPath)
	if err != nil {
		return nil, objectPath, err
	}
	return data, objectPath, nil
}

func (e *Engine) resolveObject(ctx context.Context, loc *store.Location, suffix string, folderIsLatest bool) (string, error) {
	switch {
	case loc.IsLatestSelector() || (folderIsLatest && loc.Kind == store.LocationFolder):
		objectPath, found, err := e.deps.Objects.Latest(ctx, storage.LatestPrefix(loc.Path), suffix)
		if err != nil {
			return "", err
		}
		if !found {
			return "", services.Wrap(services.ErrNotFound, "workflow", "latest object",
				fmt.Sprintf("no %s object under %q", suffix, loc.Path), nil)
		}
		return objectPath, nil
	case loc.Kind == store.LocationFile:
		return strings.Trim(strings.TrimSpace(loc.Path), "/"), nil
	default:
		return "", services.Wrap(services.ErrResolution, "workflow", "resolve location",
			fmt.Sprintf("location %d is not a file or mp3 type", loc.ID), nil)
	}
}

// preconditionOutcome skips for unresolved references and aborts for lookup
// failures of the store itself.
func preconditionOutcome(kind stepcode.Kind, input, message string, err error) StepOutcome {
	if errors.Is(err, services.ErrResolution) {
		return skipped(kind, input, message, err)
	}
	return aborted(kind, input, failureMessage(message, err), err)
}

func markProviderFatal(err error, operation, provider string) error {
	if errors.Is(err, services.ErrProviderFatal) || errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrConfiguration) {
		return err
	}
	return services.Wrap(services.ErrProviderFatal, "workflow", operation, provider, err)
}
