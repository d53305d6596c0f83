package textutil

import (
	"fmt"
	"time"
)

// TimestampLayout prefixes every generated object name.
const TimestampLayout = "20060102_150405"

// TitledName builds "<ts>_<clean title>.<ext>" from the title found in
// titleSource, falling back to fallback(ts) when no title is present.
func TitledName(now time.Time, titleSource, ext string, fallback func(ts string) string) string {
	ts := now.Format(TimestampLayout)
	if title, ok := ExtractTitle(titleSource); ok {
		if clean := CleanFileName(title); clean != "" {
			return fmt.Sprintf("%s_%s.%s", ts, clean, ext)
		}
	}
	return fallback(ts)
}

// StepTextName is the fallback name for saved text.
func StepTextName(workflowID int64, step int) func(string) string {
	return func(ts string) string {
		return fmt.Sprintf("%s_workflow_%d_step_%d.txt", ts, workflowID, step)
	}
}

// StepAudioName is the fallback name for synthesized audio.
func StepAudioName(workflowID int64, step int, voice string) func(string) string {
	return func(ts string) string {
		return fmt.Sprintf("%s_workflow_%d_step_%d_%s.mp3", ts, workflowID, step, voice)
	}
}

// MergedAudioName is the fallback name for merged audio.
func MergedAudioName(workflowID int64, step int) func(string) string {
	return func(ts string) string {
		return fmt.Sprintf("%s_merged_workflow_%d_step_%d.mp3", ts, workflowID, step)
	}
}
