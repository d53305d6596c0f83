package store

import (
	"strings"
	"time"
)

// Workflow is one configured workflow definition.
type Workflow struct {
	ID           int64
	Title        string
	Code         string
	Active       bool
	CustomTopic  string
	DefaultModel string
}

// Prompt is a reusable prompt text referenced as P<id>.
type Prompt struct {
	ID          int64
	Text        string
	Description string
}

// Model is one entry of the model catalog referenced as M<id>.
type Model struct {
	ID                int64
	Name              string
	IsDefault         bool
	SupportsWebSearch bool
	Deprecated        bool
}

// LocationKind describes how a location path is interpreted.
type LocationKind string

const (
	// LocationFile names a single object.
	LocationFile LocationKind = "File"
	// LocationFolder is a prefix objects are saved under.
	LocationFolder LocationKind = "Folder"
	// LocationAudio selects the newest audio object under a prefix.
	LocationAudio LocationKind = "mp3"
)

// Location is a named storage target referenced as L<id> or SL<id>.
type Location struct {
	ID          int64
	Description string
	Kind        LocationKind
	Path        string
	Latest      bool
}

// IsLatestSelector reports whether the location resolves to the newest
// object under its path rather than the path itself.
func (l Location) IsLatestSelector() bool {
	return l.Latest || strings.EqualFold(string(l.Kind), string(LocationAudio))
}

// Prefix returns the path without trailing slashes.
func (l Location) Prefix() string {
	return strings.TrimRight(l.Path, "/")
}

// VoiceProfile holds ElevenLabs synthesis settings referenced as E<id>.
type VoiceProfile struct {
	ID              int64
	VoiceName       string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
	Style           float64
	Speed           float64
}

// Episode is one posted podcast episode; ids increase with publication order.
type Episode struct {
	ID               int64
	Title            string
	Description      string
	ShortDescription string
	RefreshedAt      time.Time
}

// RunStatus is the terminal status of a run's output record.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
)

// OutputRecord pairs each step's input and output under Output<n> columns.
type OutputRecord struct {
	RunID       string
	WorkflowID  int64
	TriggeredAt time.Time
	Status      RunStatus
	Columns     map[string]string
}

// StepRecord is one audit log entry.
type StepRecord struct {
	ID         int64
	RunID      string
	StepIndex  int
	RecordedAt time.Time
	WorkflowID int64
	Code       string
	Token      string
	Input      string
	Output     string
	Message    string
	Status     string
}
