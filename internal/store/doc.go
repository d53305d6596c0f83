// Package store persists podflow's configuration tables, output records and
// the per-step audit log in SQLite.
//
// Configuration tables (workflows, prompts, models, locations, voice
// profiles, posted episodes) are read-only during a run. Output records and
// step records are append or update operations scoped to a single run id, so
// concurrent runs of different workflows never touch the same rows. Lookups
// return (nil, nil) when a row does not exist; callers decide whether that
// is a skip or a fault.
//
// Schema changes ship as embedded, ordered SQL migrations.
package store
