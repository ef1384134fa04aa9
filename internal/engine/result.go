package engine

import (
	"encoding/json"
	"log/slog"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

// Pipeline stage names reported in StageTrace.
const (
	StageParse   = "parse"
	StageScan    = "scan"
	StageJoin    = "join"
	StageFilter  = "filter"
	StageOrder   = "order"
	StageLimit   = "limit"
	StageProject = "project"
)

// StageTrace records one completed pipeline stage.
type StageTrace struct {
	Stage  string `json:"stage"`
	Rows   int    `json:"rows"`
	Micros int64  `json:"micros"`
}

// Output is what a successful Run produces.
type Output struct {
	Plan    query.Plan
	Columns []string
	Rows    []ir.Row
	Stages  []StageTrace
}

// Result is the single outcome contract of Execute.
//
// Rows is present iff Success; Error and Code are present iff not Success.
// Columns lists output keys in display order. Each Result is freshly
// allocated and shares no mutable state with the schema.
type Result struct {
	Success             bool
	Columns             []string
	Rows                []ir.Row
	RowCount            int
	Error               string
	Code                ErrorCode
	ExecutionTimeMicros int64
	Stages              []StageTrace
}

// resultJSON is the wire form of Result. Pointers keep "rows" present for
// an empty success and absent for a failure.
type resultJSON struct {
	Success             bool         `json:"success"`
	Columns             []string     `json:"columns,omitempty"`
	Rows                *[]ir.Row    `json:"rows,omitempty"`
	RowCount            int          `json:"row_count"`
	Error               string       `json:"error,omitempty"`
	Code                ErrorCode    `json:"code,omitempty"`
	ExecutionTimeMicros int64        `json:"execution_time_micros"`
	Stages              []StageTrace `json:"stages,omitempty"`
}

// MarshalJSON implements json.Marshaler for Result.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Success:             r.Success,
		Columns:             r.Columns,
		RowCount:            r.RowCount,
		Error:               r.Error,
		Code:                r.Code,
		ExecutionTimeMicros: r.ExecutionTimeMicros,
		Stages:              r.Stages,
	}
	if r.Success {
		rows := r.Rows
		if rows == nil {
			rows = []ir.Row{}
		}
		out.Rows = &rows
	}
	return json.Marshal(out)
}

// tracer times pipeline stages and logs their progress.
type tracer struct {
	sw      *stopwatch
	enabled bool
	logger  *slog.Logger
	stages  []StageTrace
}

func (e *Engine) newTracer() *tracer {
	return &tracer{
		sw:      startStopwatch(e.clock),
		enabled: e.trace,
		logger:  e.logger,
	}
}

func (t *tracer) stage(name string, rows int) {
	t.logger.Debug("stage complete", "stage", name, "rows", rows)
	if !t.enabled {
		return
	}
	t.stages = append(t.stages, StageTrace{Stage: name, Rows: rows, Micros: t.sw.Lap()})
}

// finish takes the closing time reading when stages were not lapped.
func (t *tracer) finish() {
	if !t.enabled {
		t.sw.Lap()
	}
}

func (t *tracer) total() int64 {
	return t.sw.Total()
}
