// Package api defines wire-format types, converters and the HTTP surface for
// workflow runs. It translates store records into transport-friendly DTOs so
// the CLI and HTTP consumers can render runs without coupling to internal
// types.
//
// # Key Types
//
// RunSummary: one run's output record with its column map.
//
// RunDetail: a run plus its ordered step audit entries.
//
// Workflow: a configured workflow code.
//
// HealthResponse: readiness of every engine collaborator.
//
// # Routes
//
// POST /api/v1/runs starts a batch in the background and answers 202.
// GET /api/v1/runs, GET /api/v1/runs/{id} and GET /api/v1/workflows are read
// only. /healthz and /metrics are unauthenticated.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// When an API token is configured every /api route requires it as a bearer
// token.
package api
