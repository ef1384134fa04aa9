package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Scenario string
	Output   string
}

// ExportResult summarizes a completed export.
type ExportResult struct {
	Scenario string `json:"scenario"`
	Output   string `json:"output"`
	Kind     string `json:"kind"` // "parquet" or "sqlite"
	Tables   int    `json:"tables"`
	Rows     int    `json:"rows"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <schema-path>",
		Short: "Export a scenario as a seed file or SQLite database",
		Long: `Export the tables of one CUE scenario.

The output kind follows the file extension:
  .parquet          seed file of table rows, usable with --seed
  .db, .sqlite      new SQLite database with foreign keys enforced

Existing SQLite files are never overwritten. A database that fails to
load (for example on a dangling foreign key) is removed again.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to export (required when several are loaded)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (.parquet, .db or .sqlite)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	kind, err := exportKind(opts.Output)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unsupported output", err)
	}

	schema, err := loadSchema(cmd.Context(), path, sourceOptions{Scenario: opts.Scenario})
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	switch kind {
	case "parquet":
		err = store.WriteSeed(opts.Output, schema)
	case "sqlite":
		err = writeDatabase(cmd.Context(), opts.Output, schema)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "export failed", err)
	}

	result := ExportResult{
		Scenario: schema.Name,
		Output:   opts.Output,
		Kind:     kind,
		Tables:   len(schema.Tables),
	}
	for _, t := range schema.Tables {
		result.Rows += len(t.Rows)
	}
	opts.Logger().Info("scenario exported", "scenario", result.Scenario, "output", result.Output, "rows", result.Rows)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Exported %s: %d table(s), %d row(s) to %s\n",
		result.Scenario, result.Tables, result.Rows, result.Output)
	return nil
}

func exportKind(output string) (string, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".parquet":
		return "parquet", nil
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("cannot infer export kind from %q: use .parquet, .db or .sqlite", output)
	}
}

func writeDatabase(ctx context.Context, path string, schema *ir.Schema) error {
	st, err := store.Create(path)
	if err != nil {
		return err
	}
	if err := st.WriteSchema(ctx, schema); err != nil {
		st.Close()
		os.Remove(path)
		return err
	}
	return st.Close()
}
