package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const (
	logTimestampLayout = "2006-01-02 15:04:05"
	// maxConsoleValueRunes caps attribute values on the console so step
	// inputs and responses stay on one readable line.
	maxConsoleValueRunes = 240
)

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(logTimestampLayout)
}

// attrString renders v without quoting, for fields printed on their own.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatValue(v)
	}
}

// formatValue renders v for key=value output.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(clip(err.Error()))
		}
		return quoteIfNeeded(clip(fmt.Sprint(v.Any())))
	default:
		return quoteIfNeeded(clip(v.String()))
	}
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxConsoleValueRunes {
		return s
	}
	return string(runes[:maxConsoleValueRunes]) + "..."
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
