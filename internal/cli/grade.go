package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/querylab/internal/harness"
	"github.com/roach88/querylab/internal/ir"
)

// GradeOptions holds flags for the grade command.
type GradeOptions struct {
	*RootOptions
	SQLite bool   // schema path is a SQLite database
	Update bool   // regenerate golden files
	Filter string // exercise filter (glob pattern)
}

// ExerciseResult holds the grade of a single exercise file.
type ExerciseResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// GradeResult holds the overall grading result.
type GradeResult struct {
	Exercises []ExerciseResult `json:"exercises"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewGradeCommand creates the grade command.
func NewGradeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GradeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "grade <schema-path> <exercises-dir>",
		Short: "Grade SQL exercises",
		Long: `Grade YAML exercise files against lesson scenarios.

Each exercise runs its query and checks the expectations it declares. When
a golden file exists next to the exercise (golden/<name>.golden) the
canonical snapshot of the answer must also match it byte for byte.

Exit codes:
  0 - All exercises passed
  1 - One or more exercises failed
  2 - Command error (invalid paths, unloadable scenarios, etc.)

Examples:
  querylab grade ./lessons ./exercises
  querylab grade ./lessons ./exercises --filter "join_*"
  querylab grade ./lessons ./exercises --update
  querylab grade ./lessons ./exercises --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SQLite, "sqlite", false, "read tables from a SQLite database")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter exercises by glob pattern")

	return cmd
}

func runGrade(opts *GradeOptions, schemaPath, exercisesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(exercisesDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("exercises directory not found: %s", exercisesDir))
	}

	schemas, err := loadAllSchemas(cmd, schemaPath, opts.SQLite)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schemas", err)
	}

	files, err := harness.FindExercises(exercisesDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find exercises", err)
	}

	if len(files) == 0 {
		if formatter.JSON() {
			return outputGradeJSON(formatter, GradeResult{Exercises: []ExerciseResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No exercises found.")
		return nil
	}

	h := harness.New(harness.WithLogger(opts.Logger()))
	result := GradeResult{
		Exercises: make([]ExerciseResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		res := gradeExercise(h, file, schemas, opts.Update)
		if !formatter.JSON() {
			writeExerciseLine(formatter.Writer, res, opts.Update)
		}

		result.Exercises = append(result.Exercises, res)
		if res.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.JSON() {
		return outputGradeJSON(formatter, result)
	}
	return outputGradeText(formatter, result)
}

// loadAllSchemas loads every scenario at path; a SQLite file yields one.
func loadAllSchemas(cmd *cobra.Command, path string, sqlite bool) ([]*ir.Schema, error) {
	if sqlite {
		s, err := loadSQLite(cmd.Context(), path)
		if err != nil {
			return nil, err
		}
		return []*ir.Schema{s}, nil
	}
	result, errs := LoadScenarios(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Schemas, nil
}

// gradeExercise loads, runs and golden-checks one exercise file.
func gradeExercise(h *harness.Harness, file string, schemas []*ir.Schema, update bool) ExerciseResult {
	res := ExerciseResult{Name: filepath.Base(file), File: file}

	ex, err := harness.LoadExercise(file)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load exercise: %v", err)}
		return res
	}
	res.Name = ex.Name

	graded, err := h.Run(ex, schemas)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("grading failed: %v", err)}
		return res
	}
	res.RunID = graded.RunID
	res.Errors = graded.Errors

	snapshot, err := harness.Snapshot(ex, graded)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	goldenPath := harness.GoldenPath(file)
	if update {
		if err := harness.WriteGolden(goldenPath, snapshot); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			return res
		}
		res.Pass = graded.Pass
		return res
	}

	match, err := harness.MatchGolden(goldenPath, snapshot)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No golden file: expectations alone decide
	case err != nil:
		res.Errors = append(res.Errors, fmt.Sprintf("golden comparison failed: %v", err))
		return res
	case !match:
		res.Errors = append(res.Errors, "answer does not match golden file (run with --update to regenerate)")
		return res
	}

	res.Pass = graded.Pass
	return res
}

func writeExerciseLine(w io.Writer, res ExerciseResult, update bool) {
	if !res.Pass {
		fmt.Fprintf(w, "✗ %s\n", res.Name)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	if update {
		fmt.Fprintf(w, "✓ %s (golden updated)\n", res.Name)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", res.Name)
}

// outputGradeJSON outputs the grading result as JSON.
func outputGradeJSON(formatter *OutputFormatter, result GradeResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}

	message := fmt.Sprintf("%d exercise(s) failed", result.Failed)
	if err := formatter.Failure(result, "E_GRADE_FAILED", message); err != nil {
		return err
	}
	return NewExitError(ExitFailure, message)
}

// outputGradeText prints the summary line.
func outputGradeText(formatter *OutputFormatter, result GradeResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Grade Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d exercise(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All exercises passed")
	return nil
}
