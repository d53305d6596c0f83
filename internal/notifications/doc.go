// Package notifications delivers run outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. Run
// completion and abort messages can each be switched off independently.
//
// All engine code depends only on the small Service interface.
package notifications
