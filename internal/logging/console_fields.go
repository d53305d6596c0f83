package logging

import "strings"

type infoField struct {
	label string
	value string
}

// infoHighlightKeys render first, in this order, on info-and-above lines.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"step_kind",
	"step_status",
	"model",
	"provider",
	"location",
	"uri",
	"message",
	"error",
	FieldErrorKind,
	FieldErrorHint,
	FieldImpact,
	"step_duration",
	"run_duration",
}

// selectInfoFields orders attributes for the console view: highlighted keys
// first, the rest in record order.
func selectInfoFields(attrs []kv) []infoField {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			result = append(result, infoField{label: displayLabel(attr.key), value: formatInfoValue(attr)})
			break
		}
	}
	for idx, attr := range attrs {
		if used[idx] || skipInfoKey(attr.key) {
			continue
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: formatInfoValue(attr)})
	}
	return result
}

func formatInfoValue(attr kv) string {
	value := formatValue(attr.value)
	if attr.key == "error" {
		const maxLen = 240
		if len(value) > maxLen {
			value = value[:maxLen] + "…"
		}
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldWorkflowID, FieldStepIndex, FieldStepToken:
		return true
	default:
		return false
	}
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldRunID:
		return "Run"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorKind:
		return "Error Kind"
	case "uri":
		return "URI"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		lower := strings.ToLower(part)
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}
