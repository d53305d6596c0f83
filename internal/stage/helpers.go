package stage

import (
	"context"
	"sort"
)

// Probe runs every checker and returns the results sorted by name. Nil
// checkers are ignored.
func Probe(ctx context.Context, checkers ...Checker) []Health {
	results := make([]Health, 0, len(checkers))
	for _, checker := range checkers {
		if checker == nil {
			continue
		}
		results = append(results, checker.HealthCheck(ctx))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// AllReady reports whether every health record is ready.
func AllReady(results []Health) bool {
	for _, h := range results {
		if !h.Ready {
			return false
		}
	}
	return true
}
