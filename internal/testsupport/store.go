package testsupport

import (
	"context"
	"testing"

	"podflow/internal/config"
	"podflow/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustImport loads YAML seed data into st.
func MustImport(t testing.TB, st *store.Store, seedYAML string) {
	t.Helper()

	seed, err := store.ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("store.ParseSeed: %v", err)
	}
	if _, err := st.Import(context.Background(), seed); err != nil {
		t.Fatalf("store.Import: %v", err)
	}
}
