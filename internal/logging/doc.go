// Package logging assembles structured slog loggers and formatting helpers used
// across podflow.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so step handlers automatically
// tag log lines with run IDs, workflow IDs, and step positions. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
