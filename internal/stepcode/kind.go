package stepcode

import "fmt"

// Kind identifies the grammar a step token matched.
type Kind int

const (
	KindPostedRefresh Kind = iota + 1
	KindModelRefresh
	KindPostedList
	KindSaveOnly
	KindSynthesize
	KindAudioMerge
	KindPromptChain
)

func (k Kind) String() string {
	switch k {
	case KindPostedRefresh:
		return "PostedPodcastRefresh"
	case KindModelRefresh:
		return "ModelCatalogRefresh"
	case KindPostedList:
		return "PostedPodcastList"
	case KindSaveOnly:
		return "SaveOnly"
	case KindSynthesize:
		return "Synthesize"
	case KindAudioMerge:
		return "AudioMerge"
	case KindPromptChain:
		return "PromptChain"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// VoiceFamily names a speech provider family.
type VoiceFamily string

const (
	// FamilyElevenLabs is provider family "E".
	FamilyElevenLabs VoiceFamily = "E"
	// FamilyGoogle is provider family "GV".
	FamilyGoogle VoiceFamily = "GV"
)

// VoiceRef points at a voice profile within a provider family.
type VoiceRef struct {
	Family VoiceFamily
	ID     int64
}

func (v VoiceRef) String() string {
	return fmt.Sprintf("%s%d", v.Family, v.ID)
}

// FragmentKind distinguishes the parts of a prompt chain.
type FragmentKind int

const (
	FragmentPrompt FragmentKind = iota + 1
	FragmentResponse
	FragmentCustom
)

// Fragment is one "&"-separated part of a prompt chain: P<id>, R<id> or C/C<id>.
type Fragment struct {
	Kind FragmentKind
	ID   int64
	Raw  string
}

// Params is the closed set of per-kind parameters.
type Params interface {
	kind() Kind
}

// PostedRefresh refreshes the posted-episode catalog (PPU).
type PostedRefresh struct{}

// ModelRefresh refreshes the model catalog (UM).
type ModelRefresh struct{}

// PostedList lists the most recent Count posted episodes (PPL<n>).
type PostedList struct {
	Count int
}

// SaveOnly persists the output of step ResponseRef (1-based) to Location
// (R<n>SL<loc>[T<n>]).
type SaveOnly struct {
	ResponseRef int
	Location    int64
	TitleRef    int
}

// ResponseIndex is the 0-based output index ResponseRef points at.
func (s SaveOnly) ResponseIndex() int { return s.ResponseRef - 1 }

// Synthesize narrates the latest text at Source and saves the audio to Save
// (L<src>E<v>SL<dst>[T<n>] or L<src>GV<v>SL<dst>[T<n>]).
type Synthesize struct {
	Source   int64
	Voice    VoiceRef
	Save     int64
	TitleRef int
}

// AudioMerge concatenates audio from Sources in order and saves the result
// (L<a>&L<b>[&L<c>...]SL<dst>[T<n>]).
type AudioMerge struct {
	Sources  []int64
	Save     int64
	TitleRef int
}

// PromptChain concatenates fragments and sends them to a model, optionally
// saving the response. ModelRef and Save are zero when absent.
type PromptChain struct {
	Parts    []Fragment
	ModelRef int64
	Save     int64
	TitleRef int
}

func (PostedRefresh) kind() Kind { return KindPostedRefresh }
func (ModelRefresh) kind() Kind  { return KindModelRefresh }
func (PostedList) kind() Kind    { return KindPostedList }
func (SaveOnly) kind() Kind      { return KindSaveOnly }
func (Synthesize) kind() Kind    { return KindSynthesize }
func (AudioMerge) kind() Kind    { return KindAudioMerge }
func (PromptChain) kind() Kind   { return KindPromptChain }

// Step is one classified token of a workflow code.
type Step struct {
	// Index is the 1-based position of the token in the code.
	Index  int
	Token  string
	Kind   Kind
	Params Params
}
