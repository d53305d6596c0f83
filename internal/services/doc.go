// Package services defines shared utilities consumed by the step engine and
// its provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, workflow IDs, the executing step and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so the engine can decide
//     between skipping a step and aborting the run.
//
// Provider packages (llm, elevenlabs, googletts) tag their failures with these
// markers instead of inventing their own error taxonomy.
package services
