package refs

// OutputKind distinguishes text results from stored audio artifacts.
type OutputKind int

const (
	OutputText OutputKind = iota + 1
	OutputAudio
)

// Output is one step result. A nil *Output is the null placeholder recorded
// for skipped steps.
type Output struct {
	Kind OutputKind
	Text string
	// URI locates the stored artifact for audio outputs and saved text.
	URI string
}

// TextOutput wraps a text result.
func TextOutput(text string) *Output {
	return &Output{Kind: OutputText, Text: text}
}

// AudioOutput wraps the URI of a stored audio artifact.
func AudioOutput(uri string) *Output {
	return &Output{Kind: OutputAudio, URI: uri}
}

// String renders the value R<k> substitutes: the text for text outputs, the
// URI for audio outputs, and "" for null.
func (o *Output) String() string {
	if o == nil {
		return ""
	}
	if o.Kind == OutputAudio {
		return o.URI
	}
	return o.Text
}

// Response returns the output of step ref (1-based) as text. Out-of-range
// references and null entries resolve to "" with ok false.
func Response(outputs []*Output, ref int) (string, bool) {
	idx := ref - 1
	if idx < 0 || idx >= len(outputs) || outputs[idx] == nil {
		return "", false
	}
	return outputs[idx].String(), true
}
