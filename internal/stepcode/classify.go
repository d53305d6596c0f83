package stepcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"podflow/internal/services"
)

var (
	postedListPattern = regexp.MustCompile(`^PPL(\d+)$`)
	saveOnlyPattern   = regexp.MustCompile(`^R(\d+)SL(\d+)(?:T(\d+))?$`)
	elevenPattern     = regexp.MustCompile(`^L(\d+)E(\d+)SL(\d+)(?:T(\d+))?$`)
	googlePattern     = regexp.MustCompile(`^L(\d+)GV(\d+)SL(\d+)(?:T(\d+))?$`)
	mergePattern      = regexp.MustCompile(`^L\d+(?:&L\d+)+SL(\d+)(?:T(\d+))?$`)
	mergeSourceRegex  = regexp.MustCompile(`L(\d+)`)
	modelPattern      = regexp.MustCompile(`M(\d+)`)
	savePattern       = regexp.MustCompile(`SL(\d+)(?:T(\d+))?`)
	fragmentPattern   = regexp.MustCompile(`^([PRC])(\d*)$`)
)

// Tokens splits code on commas and drops blank tokens. Position i of the
// result is step i+1.
func Tokens(code string) []string {
	raw := strings.Split(code, ",")
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// Parse classifies every token of code. Step indexes count only the tokens
// that survive trimming, so R<n> always names the n-th returned step. On the
// first unclassifiable token Parse returns the steps before it and the error.
func Parse(code string) ([]Step, error) {
	tokens := Tokens(code)
	steps := make([]Step, 0, len(tokens))
	for _, token := range tokens {
		step, err := NewStep(len(steps)+1, token)
		if err != nil {
			return steps, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// NewStep classifies token as the step at the given 1-based index.
func NewStep(index int, token string) (Step, error) {
	params, err := Classify(token)
	if err != nil {
		return Step{}, err
	}
	return Step{
		Index:  index,
		Token:  strings.TrimSpace(token),
		Kind:   params.kind(),
		Params: params,
	}, nil
}

// Classify matches one trimmed token against the step grammars in priority
// order. Unmatched tokens return an error marked services.ErrClassification.
func Classify(token string) (Params, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return nil, classificationError(token, "empty step")
	case token == "PPU":
		return PostedRefresh{}, nil
	case token == "UM":
		return ModelRefresh{}, nil
	}

	var num numbers
	params, err := classifyNumbered(token, &num)
	if err != nil {
		return nil, err
	}
	if num.bad != "" {
		return nil, classificationError(token, fmt.Sprintf("number %s out of range", num.bad))
	}
	return params, nil
}

func classifyNumbered(token string, num *numbers) (Params, error) {
	if m := postedListPattern.FindStringSubmatch(token); m != nil {
		return PostedList{Count: num.int(m[1])}, nil
	}
	if m := saveOnlyPattern.FindStringSubmatch(token); m != nil {
		return SaveOnly{ResponseRef: num.int(m[1]), Location: num.int64(m[2]), TitleRef: num.int(m[3])}, nil
	}
	if m := elevenPattern.FindStringSubmatch(token); m != nil {
		return synthesizeFrom(m, FamilyElevenLabs, num), nil
	}
	if m := googlePattern.FindStringSubmatch(token); m != nil {
		return synthesizeFrom(m, FamilyGoogle, num), nil
	}
	if m := mergePattern.FindStringSubmatch(token); m != nil {
		head := token[:strings.LastIndex(token, "SL")]
		ids := mergeSourceRegex.FindAllStringSubmatch(head, -1)
		sources := make([]int64, 0, len(ids))
		for _, id := range ids {
			sources = append(sources, num.int64(id[1]))
		}
		return AudioMerge{Sources: sources, Save: num.int64(m[1]), TitleRef: num.int(m[2])}, nil
	}
	return classifyChain(token, num)
}

func synthesizeFrom(m []string, family VoiceFamily, num *numbers) Synthesize {
	return Synthesize{
		Source:   num.int64(m[1]),
		Voice:    VoiceRef{Family: family, ID: num.int64(m[2])},
		Save:     num.int64(m[3]),
		TitleRef: num.int(m[4]),
	}
}

// classifyChain handles the fallback grammar: "&"-joined P/R/C fragments with
// an optional M<id> model override and an optional SL<id>[T<n>] save suffix,
// both of which may appear anywhere in the token.
func classifyChain(token string, num *numbers) (Params, error) {
	chain := PromptChain{}
	rest := token

	if m := savePattern.FindStringSubmatchIndex(rest); m != nil {
		chain.Save = num.int64(rest[m[2]:m[3]])
		if m[4] >= 0 {
			chain.TitleRef = num.int(rest[m[4]:m[5]])
		}
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := modelPattern.FindStringSubmatch(rest); m != nil {
		chain.ModelRef = num.int64(m[1])
		rest = modelPattern.ReplaceAllString(rest, "")
	}

	for _, part := range strings.Split(rest, "&") {
		part = strings.TrimSpace(part)
		m := fragmentPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, classificationError(token, fmt.Sprintf("unrecognized fragment %q", part))
		}
		frag := Fragment{Raw: part, ID: num.int64(m[2])}
		switch m[1] {
		case "P":
			frag.Kind = FragmentPrompt
		case "R":
			frag.Kind = FragmentResponse
		default:
			frag.Kind = FragmentCustom
		}
		if frag.Kind != FragmentCustom && m[2] == "" {
			return nil, classificationError(token, fmt.Sprintf("fragment %q needs an id", part))
		}
		chain.Parts = append(chain.Parts, frag)
	}
	return chain, nil
}

func classificationError(token, message string) error {
	return services.Wrap(services.ErrClassification, "stepcode", fmt.Sprintf("classify %q", token), message, nil)
}

// numbers parses the digit runs of one token and remembers the first one
// that does not fit.
type numbers struct {
	bad string
}

func (n *numbers) int(value string) int {
	v := n.int64(value)
	if int64(int(v)) != v {
		n.fail(value)
		return 0
	}
	return int(v)
}

func (n *numbers) int64(value string) int64 {
	if value == "" {
		return 0
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		n.fail(value)
		return 0
	}
	return v
}

func (n *numbers) fail(value string) {
	if n.bad == "" {
		n.bad = value
	}
}
