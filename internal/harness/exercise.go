package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querylab/internal/engine"
)

// Exercise is one graded query: a question posed against a scenario and the
// answer a correct query produces.
type Exercise struct {
	// Name uniquely identifies this exercise. Golden files are named after it.
	Name string `yaml:"name"`

	// Description states the question shown to the learner.
	Description string `yaml:"description"`

	// Scenario names the compiled schema the query runs against. May be
	// omitted when exactly one scenario is loaded.
	Scenario string `yaml:"scenario,omitempty"`

	// Query is the submitted SQL text.
	Query string `yaml:"query"`

	// StrictColumns rejects references to undeclared columns with
	// UNKNOWN_COLUMN instead of treating them as absent.
	StrictColumns bool `yaml:"strict_columns,omitempty"`

	// Expect describes the correct answer.
	Expect Expect `yaml:"expect"`
}

// Expect specifies the expected query outcome. Unset fields are not checked.
type Expect struct {
	// Success is the expected outcome. When unset, success is expected
	// unless ErrorCode is given.
	Success *bool `yaml:"success,omitempty"`

	// ErrorCode is the expected failure code (e.g. UNKNOWN_TABLE).
	ErrorCode string `yaml:"error_code,omitempty"`

	// ErrorContains is a substring the failure message must contain.
	ErrorContains string `yaml:"error_contains,omitempty"`

	// RowCount is the expected number of rows.
	RowCount *int `yaml:"row_count,omitempty"`

	// Columns are the expected output columns, in order.
	Columns []string `yaml:"columns,omitempty"`

	// Rows are the expected rows. Keys must match exactly; values compare
	// by their display form, so 7 and 7.0 are the same answer.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Ordered requires Rows in exactly the given order. Defaults to true;
	// false compares rows as a multiset.
	Ordered *bool `yaml:"ordered,omitempty"`
}

// WantSuccess reports whether the exercise expects the query to succeed.
func (e Expect) WantSuccess() bool {
	if e.Success != nil {
		return *e.Success
	}
	return e.ErrorCode == ""
}

// WantOrdered reports whether row order matters.
func (e Expect) WantOrdered() bool {
	return e.Ordered == nil || *e.Ordered
}

// knownCodes lists the error codes an exercise may expect.
var knownCodes = map[engine.ErrorCode]bool{
	engine.CodeSyntaxError:     true,
	engine.CodeUnknownTable:    true,
	engine.CodeMalformedJoin:   true,
	engine.CodeEvaluationError: true,
	engine.CodeUnknownColumn:   true,
}

// LoadExercise reads and parses an exercise YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadExercise(path string) (*Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exercise file: %w", err)
	}
	return ParseExercise(data)
}

// ParseExercise parses exercise YAML.
func ParseExercise(data []byte) (*Exercise, error) {
	// Strict field validation catches typos like "row_cout:"
	var ex Exercise
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&ex); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateExercise(&ex); err != nil {
		return nil, fmt.Errorf("invalid exercise: %w", err)
	}

	return &ex, nil
}

// FindExercises returns the YAML files under dir, sorted by path.
// A non-empty filter is a glob matched against each file's base name
// without extension.
func FindExercises(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// validateExercise checks that required fields are present and the
// expectations are consistent with each other.
func validateExercise(ex *Exercise) error {
	if ex.Name == "" {
		return fmt.Errorf("name is required")
	}

	if strings.TrimSpace(ex.Query) == "" {
		return fmt.Errorf("query is required")
	}

	e := ex.Expect
	if e.WantSuccess() {
		if e.ErrorCode != "" || e.ErrorContains != "" {
			return fmt.Errorf("expect: error_code and error_contains require success: false")
		}
	} else {
		if e.RowCount != nil || e.Columns != nil || e.Rows != nil || e.Ordered != nil {
			return fmt.Errorf("expect: row_count, columns, rows and ordered require success: true")
		}
	}

	if e.ErrorCode != "" && !knownCodes[engine.ErrorCode(e.ErrorCode)] {
		return fmt.Errorf("expect.error_code: unknown code %q", e.ErrorCode)
	}

	if e.RowCount != nil && *e.RowCount < 0 {
		return fmt.Errorf("expect.row_count must be non-negative")
	}

	if e.RowCount != nil && e.Rows != nil && *e.RowCount != len(e.Rows) {
		return fmt.Errorf("expect.row_count is %d but %d rows are listed", *e.RowCount, len(e.Rows))
	}

	if e.Ordered != nil && e.Rows == nil {
		return fmt.Errorf("expect.ordered requires rows")
	}

	for i, row := range e.Rows {
		if row == nil {
			return fmt.Errorf("expect.rows[%d]: row must be a mapping", i)
		}
	}

	return nil
}
