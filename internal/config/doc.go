// Package config loads, normalizes, and validates podflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// overrides such as OPENAI_API_KEY or GCS_BUCKET_NAME. The Config type
// centralizes every knob the engine, providers and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
