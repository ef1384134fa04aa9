package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/querylab/internal/ir"
)

// Snapshot renders the graded answer to an exercise as canonical JSON.
//
// The snapshot holds what a learner sees (columns, rows, or the failure
// code and message) plus the result hash. Timing and run IDs are left out
// so the same answer always produces the same bytes.
func Snapshot(ex *Exercise, res *Result) ([]byte, error) {
	q := res.Query
	snap := map[string]any{
		"exercise": ex.Name,
		"query":    ex.Query,
		"success":  q.Success,
	}
	if ex.Scenario != "" {
		snap["scenario"] = ex.Scenario
	}

	if q.Success {
		rows := q.Rows
		if rows == nil {
			rows = []ir.Row{}
		}
		columns := q.Columns
		if columns == nil {
			columns = []string{}
		}
		snap["columns"] = columns
		snap["rows"] = rows
		snap["row_count"] = q.RowCount
		snap["result_hash"] = res.ResultHash
	} else {
		snap["code"] = string(q.Code)
		snap["error"] = q.Error
	}

	data, err := ir.MarshalCanonical(snap)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", ex.Name, err)
	}
	return data, nil
}

// RunWithGolden grades an exercise and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{ex.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the exercise cannot be graded.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, h *Harness, ex *Exercise, schemas []*ir.Schema) (*Result, error) {
	t.Helper()

	result, err := h.Run(ex, schemas)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, ex, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already graded result against its golden file.
func AssertGolden(t *testing.T, ex *Exercise, result *Result) error {
	t.Helper()

	data, err := Snapshot(ex, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, ex.Name, data)
	return nil
}

// GoldenPath returns the golden file path for an exercise file:
// a golden/ directory next to it, named after the file.
func GoldenPath(exerciseFile string) string {
	dir := filepath.Dir(exerciseFile)
	base := filepath.Base(exerciseFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden writes a snapshot, creating the golden directory if needed.
func WriteGolden(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// MatchGolden reports whether snapshot equals the golden file at path.
// A missing golden file is reported with os.ErrNotExist.
func MatchGolden(path string, snapshot []byte) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(golden, snapshot), nil
}
