package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querylab/internal/engine"
	"github.com/roach88/querylab/internal/query"
	"github.com/roach88/querylab/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	sourceOptions
	Schema string // schema path; enables warnings and tracing
	Trace  bool
}

// ExplainResult describes how a query is understood and executed.
type ExplainResult struct {
	Normalized string              `json:"normalized"`
	Plan       string              `json:"plan"`
	SQL        string              `json:"sql"`
	Params     []any               `json:"params"`
	Warnings   []query.Warning     `json:"warnings,omitempty"`
	Stages     []engine.StageTrace `json:"stages,omitempty"`
	RunError   *CLIError           `json:"run_error,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{}

	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Show how a query is parsed and run",
		Long: `Show the normalized text of a query, the plan it parses to, and the
equivalent parameterized SQLite statement.

With --schema the plan is also checked against the scenario's tables, and
constructs that run but probably do not do what was meant are reported as
warnings. Add --trace to run the query and report row counts per stage.`,
		Example: `  querylab explain "SELECT name FROM students WHERE age > '20'"
  querylab explain --schema lessons/ --trace "SELECT * FROM students JOIN orders ON id = student_id"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema path to check the query against")
	cmd.Flags().BoolVar(&opts.SQLite, "sqlite", false, "the schema path is a SQLite database")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario to check against")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "Parquet seed file replacing table rows")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "run the query and report each pipeline stage (requires --schema)")

	return cmd
}

func runExplain(cmd *cobra.Command, rootOpts *RootOptions, opts *ExplainOptions, sql string) error {
	formatter := newFormatter(rootOpts, cmd)

	if opts.Trace && opts.Schema == "" {
		_ = formatter.Error(ErrCodeGeneric, "--trace requires --schema", nil)
		return NewExitError(ExitCommandError, "--trace requires --schema")
	}

	normalized := query.Normalize(sql)
	plan, err := query.Parse(normalized)
	if err != nil {
		code := engine.CodeSyntaxError
		if query.IsMalformedJoin(err) {
			code = engine.CodeMalformedJoin
		}
		_ = formatter.Error(string(code), err.Error(), map[string]string{"normalized": normalized})
		return WrapExitError(ExitFailure, "query does not parse", err)
	}

	stmt, params, err := querysql.NewSQLCompiler().Compile(plan)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "rendering SQL", err)
	}

	result := ExplainResult{
		Normalized: normalized,
		Plan:       plan.String(),
		SQL:        stmt,
		Params:     params,
	}

	if opts.Schema != "" {
		schema, err := loadSchema(cmd.Context(), opts.Schema, opts.sourceOptions)
		if err != nil {
			_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load schema", err)
		}
		result.Warnings = query.Inspect(plan, schema)

		if opts.Trace {
			eng := engine.New(
				engine.WithLogger(rootOpts.Logger()),
				engine.WithStageTrace(true),
			)
			out, err := eng.Run(sql, schema)
			if err != nil {
				result.RunError = &CLIError{Code: string(engine.CodeOf(err)), Message: err.Error()}
			} else {
				result.Stages = out.Stages
			}
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeExplain(formatter, result)
	return nil
}

func writeExplain(formatter *OutputFormatter, r ExplainResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Normalized: %s\n", r.Normalized)
	fmt.Fprintf(w, "Plan:       %s\n", r.Plan)
	fmt.Fprintf(w, "SQLite:     %s\n", r.SQL)
	if len(r.Params) > 0 {
		params := make([]string, len(r.Params))
		for i, p := range r.Params {
			params[i] = fmt.Sprintf("%v", p)
		}
		fmt.Fprintf(w, "Params:     %s\n", strings.Join(params, ", "))
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warn)
		}
	}

	if len(r.Stages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Stages:")
		for _, s := range r.Stages {
			fmt.Fprintf(w, "  %-8s %6d row(s) %8dµs\n", s.Stage, s.Rows, s.Micros)
		}
	}

	if r.RunError != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Run failed [%s]: %s\n", r.RunError.Code, r.RunError.Message)
	}
}
