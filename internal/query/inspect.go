package query

import (
	"fmt"
	"strings"

	"github.com/roach88/querylab/internal/ir"
)

// WarningCode classifies an author-facing warning.
type WarningCode string

const (
	WarnUnknownTable      WarningCode = "UNKNOWN_TABLE"
	WarnUnknownColumn     WarningCode = "UNKNOWN_COLUMN"
	WarnUnknownQualifier  WarningCode = "UNKNOWN_QUALIFIER"
	WarnColumnCollision   WarningCode = "COLUMN_COLLISION"
	WarnWildcardJoin      WarningCode = "WILDCARD_JOIN"
	WarnNonNumericCompare WarningCode = "NON_NUMERIC_COMPARE"
)

// Warning describes a construct that executes but probably does not do what
// a learner or lesson author expects.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Inspect checks a plan against a schema and returns warnings.
//
// Inspect never changes how a plan executes. Unknown tables are reported
// here as warnings; execution reports them as errors. Unknown columns are
// reported here because lenient execution silently yields absent values
// for them.
//
// Inspect is a pure function with no side effects.
func Inspect(plan Plan, schema *ir.Schema) []Warning {
	in := &inspector{schema: schema, warnings: []Warning{}}

	switch p := plan.(type) {
	case *Select:
		in.inspectSelect(p)
	case *Join:
		in.inspectJoin(p)
	default:
		in.addWarning(WarnUnknownTable, "unknown plan type %T", plan)
	}
	return in.warnings
}

// inspector accumulates warnings during traversal.
type inspector struct {
	schema   *ir.Schema
	warnings []Warning
	tables   []*ir.Table // tables in scope, in FROM/JOIN order
}

func (in *inspector) addWarning(code WarningCode, format string, args ...any) {
	in.warnings = append(in.warnings, Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (in *inspector) bind(name string) bool {
	t, ok := in.schema.Table(name)
	if !ok {
		in.addWarning(WarnUnknownTable, "table %q does not exist (available: %s)",
			name, strings.Join(in.schema.TableNames(), ", "))
		return false
	}
	in.tables = append(in.tables, t)
	return true
}

func (in *inspector) inspectSelect(sel *Select) {
	if !in.bind(sel.Table) {
		return
	}
	in.inspectColumns(sel.Columns)
	in.inspectWhere(sel.Where)
	in.inspectOrder(sel.OrderBy)
}

func (in *inspector) inspectJoin(join *Join) {
	leftOK := in.bind(join.Left)
	rightOK := in.bind(join.Right)
	if !leftOK || !rightOK {
		return
	}

	in.checkColumn(join.On.LeftTable, join.On.LeftColumn)
	in.checkColumn(join.On.RightTable, join.On.RightColumn)

	left, right := in.tables[0], in.tables[1]
	for _, c := range right.Columns {
		if _, clash := left.Column(c.Name); clash {
			in.addWarning(WarnColumnCollision,
				"column %q exists in both %q and %q; joined rows keep the value from %q",
				c.Name, left.Name, right.Name, right.Name)
		}
	}

	if IsWildcard(join.Columns) {
		in.addWarning(WarnWildcardJoin,
			"SELECT * over a join shows colliding columns only once; list the columns you need")
	}

	in.inspectColumns(join.Columns)
	in.inspectWhere(join.Where)
	in.inspectOrder(join.OrderBy)
}

func (in *inspector) inspectColumns(cols []ColumnRef) {
	for _, c := range cols {
		if c.Wildcard {
			continue
		}
		in.checkColumn(c.Table, c.Source)
	}
}

func (in *inspector) inspectWhere(where Predicate) {
	for _, cmp := range Conjuncts(where) {
		col := in.checkColumn(cmp.Table, cmp.Column)
		if col == nil {
			continue
		}
		switch cmp.Op {
		case OpLt, OpLe, OpGt, OpGe:
			if !numericType(col.Type) {
				in.addWarning(WarnNonNumericCompare,
					"%q is a %s column; %s compares numbers, so non-numeric values never match",
					col.Name, col.Type, cmp.Op)
			}
		}
	}
}

func (in *inspector) inspectOrder(order *OrderSpec) {
	if order == nil {
		return
	}
	in.checkColumn(order.Table, order.Column)
}

// checkColumn resolves a possibly-qualified column against the tables in
// scope, warning when it cannot be found.
func (in *inspector) checkColumn(qualifier, name string) *ir.Column {
	scope := in.tables
	if qualifier != "" {
		scope = nil
		for _, t := range in.tables {
			if strings.EqualFold(t.Name, qualifier) {
				scope = append(scope, t)
			}
		}
		if len(scope) == 0 {
			in.addWarning(WarnUnknownQualifier,
				"%q in %s.%s does not name a table in this query", qualifier, qualifier, name)
			return nil
		}
	}

	for _, t := range scope {
		if c, ok := t.Column(name); ok {
			return c
		}
	}
	in.addWarning(WarnUnknownColumn, "column %q does not exist; it will be absent from every row", name)
	return nil
}

func numericType(t ir.ColumnType) bool {
	switch t {
	case ir.TypeInteger, ir.TypeDecimal, ir.TypeBoolean:
		return true
	}
	return false
}
