package stage

import "context"

// Health is one collaborator's readiness as reported by doctor and /healthz.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs a Health record that is not ready, with detail
// explaining why.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Checker is implemented by every collaborator the engine depends on.
type Checker interface {
	HealthCheck(context.Context) Health
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(context.Context) Health

// HealthCheck calls f.
func (f CheckerFunc) HealthCheck(ctx context.Context) Health { return f(ctx) }
