package harness

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/querylab/internal/engine"
	"github.com/roach88/querylab/internal/ir"
)

// IDGenerator produces grading run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ScenarioNotFoundError is returned when an exercise names a scenario that
// is not loaded.
type ScenarioNotFoundError struct {
	Exercise  string
	Scenario  string
	Available []string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	if e.Scenario == "" {
		return fmt.Sprintf(
			"exercise %q names no scenario and %d are loaded (%s)",
			e.Exercise, len(e.Available), strings.Join(e.Available, ", "),
		)
	}
	return fmt.Sprintf(
		"exercise %q references scenario %q which is not loaded (available: %s)",
		e.Exercise, e.Scenario, strings.Join(e.Available, ", "),
	)
}

// Harness grades exercises by running them through the engine.
type Harness struct {
	ids        IDGenerator
	logger     *slog.Logger
	engineOpts []engine.Option
}

// Option configures a Harness.
type Option func(*Harness)

// WithIDGenerator sets the run ID source. Tests use a sequence generator
// for reproducible reports.
func WithIDGenerator(g IDGenerator) Option {
	return func(h *Harness) { h.ids = g }
}

// WithLogger sets the harness logger. It is passed on to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithEngineOptions adds options applied to every engine the harness
// builds, before the exercise's own settings.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(h *Harness) { h.engineOpts = append(h.engineOpts, opts...) }
}

// New creates a Harness. Logging is discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run grades an exercise with default options.
func Run(ex *Exercise, schemas []*ir.Schema) (*Result, error) {
	return New().Run(ex, schemas)
}

// Run executes the exercise query against its scenario and checks every
// expectation.
//
// A failing expectation marks the Result failed. The returned error is
// reserved for exercises that cannot be graded at all, such as one naming
// a scenario that is not loaded.
func (h *Harness) Run(ex *Exercise, schemas []*ir.Schema) (*Result, error) {
	schema, err := selectScenario(ex, schemas)
	if err != nil {
		return nil, err
	}

	opts := append([]engine.Option{engine.WithLogger(h.logger)}, h.engineOpts...)
	opts = append(opts, engine.WithStrictColumns(ex.StrictColumns))
	eng := engine.New(opts...)

	result := NewResult(h.ids.Generate())
	result.Query = eng.Execute(ex.Query, schema)

	if result.Query.Success {
		hash, err := ir.ResultHash(result.Query.Columns, result.Query.Rows)
		if err != nil {
			return nil, fmt.Errorf("exercise %q: %w", ex.Name, err)
		}
		result.ResultHash = hash
	}

	for _, e := range EvaluateExpect(result.Query, ex.Expect) {
		result.AddError(e.Error())
	}

	h.logger.Info("exercise graded",
		"exercise", ex.Name,
		"scenario", schema.Name,
		"run_id", result.RunID,
		"pass", result.Pass,
		"rows", result.Query.RowCount,
		"code", result.Query.Code,
	)

	return result, nil
}

// selectScenario finds the schema an exercise runs against.
func selectScenario(ex *Exercise, schemas []*ir.Schema) (*ir.Schema, error) {
	available := make([]string, len(schemas))
	for i, s := range schemas {
		available[i] = s.Name
	}

	if ex.Scenario == "" {
		if len(schemas) == 1 {
			return schemas[0], nil
		}
		return nil, &ScenarioNotFoundError{Exercise: ex.Name, Available: available}
	}

	for _, s := range schemas {
		if s.Name == ex.Scenario {
			return s, nil
		}
	}
	return nil, &ScenarioNotFoundError{Exercise: ex.Name, Scenario: ex.Scenario, Available: available}
}
