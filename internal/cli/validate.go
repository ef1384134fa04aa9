package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/querylab/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Scenarios []string                   `json:"scenarios,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []ScenarioWarning          `json:"warnings,omitempty"`
}

// ScenarioWarning is a foreign key cycle found in one scenario.
type ScenarioWarning struct {
	Scenario string `json:"scenario"`
	compiler.CycleWarning
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-path>",
		Short: "Validate lesson scenarios",
		Long: `Compile every CUE scenario and check its tables and rows.

Checks cover duplicate tables and columns, unsupported column types, row
keys the table does not declare, values that do not fit their column,
NULLs in columns not marked nullable, repeated primary keys, and foreign
keys that point at missing tables, columns or rows.

Foreign key cycles are reported as warnings; they do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadScenarios(path, LoadModeCollectAll)

	// Nothing compiled: directory missing, no files, CUE syntax errors
	if loadResult == nil {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Error())
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, path)

	result := ValidationResult{}

	// Scenarios that failed to compile are validation errors too
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    loadErr.Line(),
			})
		}
	}

	for _, schema := range loadResult.Schemas {
		formatter.VerboseLog("Validating scenario: %s", schema.Name)
		result.Scenarios = append(result.Scenarios, schema.Name)

		for _, verr := range compiler.Validate(schema) {
			verr.Field = schema.Name + "." + verr.Field
			result.Errors = append(result.Errors, verr)
		}
		for _, w := range compiler.AnalyzeCycles(schema) {
			result.Warnings = append(result.Warnings, ScenarioWarning{Scenario: schema.Name, CycleWarning: w})
		}
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d)\n", len(result.Scenarios))
	writeWarnings(formatter, result.Warnings)
	return nil
}

// outputValidateError outputs an error that stopped validation entirely.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, message)
}

// outputValidationErrors outputs every validation error found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.Failure(result, first.Code, first.Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	writeWarnings(formatter, result.Warnings)

	return exitErr
}

func writeWarnings(formatter *OutputFormatter, warnings []ScenarioWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "! %s: %s\n", w.Scenario, w.Message)
	}
}
