package helpers

import (
	"testing"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/store"
)

// NewTestStore returns a migrated in-memory store closed at test cleanup.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
