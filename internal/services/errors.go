package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrClassification = errors.New("unrecognized step code")
	ErrResolution     = errors.New("reference unresolved")
	ErrTransient      = errors.New("transient failure")
	ErrProviderFatal  = errors.New("provider failure")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
)

var markers = []error{
	ErrClassification,
	ErrResolution,
	ErrProviderFatal,
	ErrTransient,
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
	ErrTimeout,
}

// Wrap builds an error message that includes step context while tagging it
// with the provided marker for later outcome classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &markedError{
		marker:    marker,
		scope:     strings.TrimSpace(scope),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

type markedError struct {
	marker    error
	scope     string
	operation string
	message   string
	cause     error
}

func (e *markedError) Error() string {
	detail := buildDetail(e.scope, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker, detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker, detail)
}

func (e *markedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// ErrorDetails is the structured view of a wrapped error used for logging.
type ErrorDetails struct {
	Kind      string
	Scope     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts the outermost Wrap metadata from err. Errors that were
// never wrapped report kind "unknown".
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var marked *markedError
	if errors.As(err, &marked) {
		return ErrorDetails{
			Kind:      Kind(err),
			Scope:     marked.scope,
			Operation: marked.operation,
			Message:   marked.message,
			Hint:      hintFor(marked.marker),
			Cause:     marked.cause,
		}
	}
	return ErrorDetails{Kind: Kind(err), Message: err.Error(), Hint: hintFor(nil)}
}

// Kind names the first marker err carries.
func Kind(err error) string {
	for _, marker := range markers {
		if errors.Is(err, marker) {
			switch marker {
			case ErrClassification:
				return "classification"
			case ErrResolution:
				return "resolution"
			case ErrProviderFatal:
				return "provider"
			case ErrTransient:
				return "transient"
			case ErrValidation:
				return "validation"
			case ErrConfiguration:
				return "configuration"
			case ErrNotFound:
				return "not_found"
			case ErrTimeout:
				return "timeout"
			}
		}
	}
	return "unknown"
}

// IsRetryable reports whether err is worth a single retry with reduced
// parameters.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func hintFor(marker error) string {
	switch marker {
	case ErrClassification:
		return "check the workflow code for typos"
	case ErrResolution:
		return "check that the referenced prompt, model, location or voice exists"
	case ErrProviderFatal:
		return "check provider credentials, quota and model name"
	case ErrTransient, ErrTimeout:
		return "retry the run later"
	case ErrConfiguration:
		return "run podflow config validate"
	case ErrValidation:
		return "check the input values"
	case ErrNotFound:
		return "check the identifier"
	default:
		return "check logs for details"
	}
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope != "" {
		parts = append(parts, scope)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
