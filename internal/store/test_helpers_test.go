package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/querylab/internal/ir"
)

// createTestStore creates a new writable database in a temp dir.
func createTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lesson.db")
	s, err := Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// materialize writes schema to a fresh database and reopens it read-only.
func materialize(t *testing.T, schema *ir.Schema) *Store {
	t.Helper()
	w, path := createTestStore(t)
	if err := w.WriteSchema(context.Background(), schema); err != nil {
		t.Fatalf("WriteSchema() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// sameRows compares rows cell by cell with ir.Identical, so an integral
// Decimal read back from SQLite as an Int still matches.
func sameRows(t *testing.T, want, got []ir.Row) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("row count = %d, want %d\nwant: %v\ngot:  %v", len(got), len(want), want, got)
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			t.Errorf("row %d has %d keys, want %d: %v vs %v", i, len(got[i]), len(want[i]), got[i], want[i])
			continue
		}
		for k, wv := range want[i] {
			gv, ok := got[i][k]
			if !ok {
				t.Errorf("row %d missing key %q", i, k)
				continue
			}
			if !ir.Identical(wv, gv) {
				t.Errorf("row %d key %q = %v, want %v", i, k, gv, wv)
			}
		}
	}
}
