package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

// Engine executes queries with a fixed configuration.
//
// An Engine is immutable after New and safe for concurrent use.
type Engine struct {
	strictColumns bool
	clock         Clock
	logger        *slog.Logger
	trace         bool
	maxJoinRows   int
	collation     language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictColumns turns references to undeclared columns into
// UNKNOWN_COLUMN errors instead of silently absent values.
//
// Default: false (lenient). Existing exercises rely on lenient lookups.
func WithStrictColumns(strict bool) Option {
	return func(e *Engine) {
		e.strictColumns = strict
	}
}

// WithClock sets the clock used for execution timing.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Stage progress is logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStageTrace records per-stage row counts and timings in Result.Stages.
func WithStageTrace(on bool) Option {
	return func(e *Engine) {
		e.trace = on
	}
}

// WithMaxJoinRows bounds the rows a single join may emit.
//
// Default: 100000 (DefaultMaxJoinRows). Zero or negative disables the bound.
func WithMaxJoinRows(n int) Option {
	return func(e *Engine) {
		e.maxJoinRows = n
	}
}

// WithCollation sets the locale used to order text values.
//
// Default: language.English.
func WithCollation(tag language.Tag) Option {
	return func(e *Engine) {
		e.collation = tag
	}
}

// New creates an Engine. Options are applied in order.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:       SystemClock{},
		logger:      slog.Default(),
		maxJoinRows: DefaultMaxJoinRows,
		collation:   language.English,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Execute runs rawQuery against schema with default options.
//
// This is the engine's public contract: it always returns a Result and
// never panics.
func Execute(rawQuery string, schema *ir.Schema) Result {
	return defaultEngine.Execute(rawQuery, schema)
}

// Execute runs rawQuery against schema and assembles a Result.
func (e *Engine) Execute(rawQuery string, schema *ir.Schema) (res Result) {
	tr := e.newTracer()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("query evaluation panicked", "panic", r, "query", rawQuery)
			res = Result{
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", r),
				Code:    CodeEvaluationError,
				Stages:  tr.stages,
			}
		}
	}()

	out, err := e.run(rawQuery, schema, tr)
	tr.finish()

	if err != nil {
		var qe *QueryError
		if !errors.As(err, &qe) {
			qe = NewEvaluationError(err)
		}
		e.logger.Debug("query failed", "code", qe.Code, "error", qe.Message)
		return Result{
			Success:             false,
			Error:               qe.Message,
			Code:                qe.Code,
			ExecutionTimeMicros: tr.total(),
			Stages:              tr.stages,
		}
	}

	return Result{
		Success:             true,
		Columns:             out.Columns,
		Rows:                out.Rows,
		RowCount:            len(out.Rows),
		ExecutionTimeMicros: tr.total(),
		Stages:              tr.stages,
	}
}

// Run executes rawQuery and returns the output or a *QueryError.
//
// Unlike Execute, Run does not recover panics and does not fold errors
// into a Result. It is meant for Go callers and tools.
func (e *Engine) Run(rawQuery string, schema *ir.Schema) (*Output, error) {
	tr := e.newTracer()
	out, err := e.run(rawQuery, schema, tr)
	tr.finish()
	if err != nil {
		return nil, err
	}
	out.Stages = tr.stages
	return out, nil
}

func (e *Engine) run(rawQuery string, schema *ir.Schema, tr *tracer) (*Output, error) {
	if schema == nil {
		return nil, NewEvaluationError(errors.New("no schema loaded"))
	}

	plan, err := query.Parse(query.Normalize(rawQuery))
	if err != nil {
		return nil, classifyParseError(err)
	}
	tr.stage(StageParse, 0)

	var out *Output
	switch p := plan.(type) {
	case *query.Select:
		out, err = e.runSelect(p, schema, tr)
	case *query.Join:
		out, err = e.runJoin(p, schema, tr)
	default:
		return nil, NewEvaluationError(fmt.Errorf("unsupported plan type %T", plan))
	}
	if err != nil {
		return nil, err
	}
	out.Plan = plan
	return out, nil
}

func (e *Engine) runSelect(p *query.Select, schema *ir.Schema, tr *tracer) (*Output, error) {
	tbl, ok := schema.Table(p.Table)
	if !ok {
		return nil, NewUnknownTableError(p.Table, schema.TableNames())
	}
	scope := []*ir.Table{tbl}

	if e.strictColumns {
		if err := checkColumns(scope, p.Columns, p.Where, p.OrderBy); err != nil {
			return nil, err
		}
	}

	rows := tbl.Rows
	tr.stage(StageScan, len(rows))

	return e.finish(rows, scope, p.Columns, p.Where, p.OrderBy, p.Limit, tr)
}

func (e *Engine) runJoin(p *query.Join, schema *ir.Schema, tr *tracer) (*Output, error) {
	left, ok := schema.Table(p.Left)
	if !ok {
		return nil, NewUnknownTableError(p.Left, schema.TableNames())
	}
	right, ok := schema.Table(p.Right)
	if !ok {
		return nil, NewUnknownTableError(p.Right, schema.TableNames())
	}
	scope := []*ir.Table{left, right}

	if e.strictColumns {
		if err := checkColumns(scope, p.Columns, p.Where, p.OrderBy); err != nil {
			return nil, err
		}
		if err := checkOn(scope, p.On); err != nil {
			return nil, err
		}
	}

	rows, err := nestedLoopJoin(left, right, p.On, newRowBudget(e.maxJoinRows))
	if err != nil {
		return nil, NewEvaluationError(err)
	}
	tr.stage(StageJoin, len(rows))

	return e.finish(rows, scope, p.Columns, p.Where, p.OrderBy, nil, tr)
}

// finish applies filter, order, limit and projection in that fixed order.
func (e *Engine) finish(
	rows []ir.Row,
	scope []*ir.Table,
	cols []query.ColumnRef,
	where query.Predicate,
	order *query.OrderSpec,
	limit *int,
	tr *tracer,
) (*Output, error) {
	f, err := compileFilter(where)
	if err != nil {
		return nil, NewEvaluationError(err)
	}
	rows = f.apply(rows)
	tr.stage(StageFilter, len(rows))

	rows = orderRows(rows, order, e.collation)
	tr.stage(StageOrder, len(rows))

	if limit != nil && *limit < len(rows) {
		rows = rows[:*limit]
	}
	tr.stage(StageLimit, len(rows))

	names, projected := project(rows, cols, scope)
	tr.stage(StageProject, len(projected))

	return &Output{Columns: names, Rows: projected}, nil
}

func classifyParseError(err error) *QueryError {
	switch {
	case query.IsMalformedJoin(err):
		return &QueryError{Code: CodeMalformedJoin, Message: err.Error(), Cause: err}
	case query.IsSyntaxError(err):
		return &QueryError{Code: CodeSyntaxError, Message: err.Error(), Cause: err}
	default:
		return NewEvaluationError(err)
	}
}

// checkColumns verifies every referenced column exists in some table in
// scope. Qualifiers are ignored, matching how lookups strip them.
func checkColumns(scope []*ir.Table, cols []query.ColumnRef, where query.Predicate, order *query.OrderSpec) error {
	for _, c := range cols {
		if c.Wildcard {
			continue
		}
		if err := requireColumn(scope, c.Source); err != nil {
			return err
		}
	}
	for _, cmp := range query.Conjuncts(where) {
		if err := requireColumn(scope, cmp.Column); err != nil {
			return err
		}
	}
	if order != nil {
		return requireColumn(scope, order.Column)
	}
	return nil
}

func checkOn(scope []*ir.Table, on query.JoinCondition) error {
	if err := requireColumn(scope[:1], leftOnColumn(scope[0], scope[1], on)); err != nil {
		return err
	}
	return requireColumn(scope[1:], rightOnColumn(scope[0], scope[1], on))
}

func requireColumn(scope []*ir.Table, name string) error {
	if _, ok := declaredColumn(scope, name); ok {
		return nil
	}
	names := make([]string, len(scope))
	for i, t := range scope {
		names[i] = t.Name
	}
	return NewUnknownColumnError(name, names)
}

// declaredColumn finds the schema spelling of a column among the tables in
// scope. Later tables win, matching the join merge order.
func declaredColumn(scope []*ir.Table, name string) (string, bool) {
	for i := len(scope) - 1; i >= 0; i-- {
		if c, ok := scope[i].Column(name); ok {
			return c.Name, true
		}
	}
	return "", false
}
