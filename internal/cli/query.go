package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/roach88/querylab/internal/engine"
	"github.com/roach88/querylab/internal/ir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	sourceOptions
	Strict      bool
	MaxJoinRows int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <schema-path> <sql>",
		Short: "Run one query against lesson tables",
		Long: `Run a single SELECT statement against the tables of a scenario.

<schema-path> is a CUE directory or file. With --sqlite it is a SQLite
database, opened read-only. A Parquet seed file given with --seed replaces
the rows of the tables it names before the query runs.

The command exits with status 1 when the query fails.`,
		Example: `  querylab query lessons/ "SELECT name FROM students WHERE age > 20"
  querylab query --sqlite shop.db "SELECT * FROM orders ORDER BY amount DESC LIMIT 3"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.SQLite, "sqlite", false, "read tables from a SQLite database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to query (required when several are loaded)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "Parquet seed file replacing table rows")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "reject unknown columns instead of omitting them")
	cmd.Flags().IntVar(&opts.MaxJoinRows, "max-join-rows", engine.DefaultMaxJoinRows, "largest join result allowed")

	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, opts *QueryOptions, path, sql string) error {
	formatter := newFormatter(rootOpts, cmd)
	logger := rootOpts.Logger()

	schema, err := loadSchema(cmd.Context(), path, opts.sourceOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	logger.Debug("schema loaded", "scenario", schema.Name, "tables", len(schema.Tables))

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithStrictColumns(opts.Strict),
		engine.WithMaxJoinRows(opts.MaxJoinRows),
	)
	res := eng.Execute(sql, schema)

	if formatter.JSON() {
		if res.Success {
			return formatter.Success(res)
		}
		if err := formatter.Failure(res, string(res.Code), res.Error); err != nil {
			return err
		}
		return NewExitError(ExitFailure, res.Error)
	}

	if !res.Success {
		_ = formatter.Error(string(res.Code), res.Error, nil)
		return NewExitError(ExitFailure, res.Error)
	}

	writeGrid(formatter.Writer, res.Columns, res.Rows)
	fmt.Fprintf(formatter.Writer, "(%d %s)\n", res.RowCount, plural(res.RowCount, "row", "rows"))
	formatter.VerboseLog("executed in %dµs", res.ExecutionTimeMicros)
	return nil
}

// writeGrid prints rows as an aligned text table. Cells a row does not
// carry are left blank; explicit nulls print as NULL.
func writeGrid(w io.Writer, columns []string, rows []ir.Row) {
	if len(columns) == 0 {
		return
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, c := range columns {
			cells[r][i] = gridCell(row, c)
			widths[i] = max(widths[i], utf8.RuneCountInString(cells[r][i]))
		}
	}

	writeGridLine(w, columns, widths)
	rule := make([]string, len(columns))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	fmt.Fprintln(w, strings.Join(rule, "-+-"))
	for _, line := range cells {
		writeGridLine(w, line, widths)
	}
}

func writeGridLine(w io.Writer, cells []string, widths []int) {
	// Absent trailing cells leave no separator behind.
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	padded := make([]string, len(cells))
	for i, c := range cells {
		padded[i] = c + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(c))
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, " | "), " "))
}

func gridCell(row ir.Row, column string) string {
	v, ok := row[column]
	if !ok {
		return ""
	}
	if _, isNull := v.(ir.Null); isNull {
		return "NULL"
	}
	return v.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
