package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/querylab/internal/ir"
)

// CompileScenarios compiles every scenario under the top-level "scenario"
// field of v, in declaration order. It stops at the first error.
func CompileScenarios(v cue.Value) ([]*ir.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	scenariosVal := v.LookupPath(cue.ParsePath("scenario"))
	if !scenariosVal.Exists() {
		return nil, nil
	}

	iter, err := scenariosVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var schemas []*ir.Schema
	for iter.Next() {
		s, err := CompileScenario(iter.Value())
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// CompileScenario parses a CUE value into a Schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the scenario struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`scenario: school: { table: students: { ... } }`)
//	schema, err := CompileScenario(v.LookupPath(cue.ParsePath("scenario.school")))
//
// Row values are coerced to their column's declared type where possible.
// Values that do not fit are kept as written so Validate can report them.
func CompileScenario(v cue.Value) (*ir.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := &ir.Schema{}

	// Scenario name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		schema.Name = labels[len(labels)-1].String()
	}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		schema.Description = desc
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tableVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		table, err := parseTable(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, *table)
	}

	if len(schema.Tables) == 0 {
		return nil, &CompileError{
			Field:   "table",
			Message: "at least one table is required",
			Pos:     tableVal.Pos(),
		}
	}

	return schema, nil
}

// parseTable extracts one table: its columns, then its rows.
func parseTable(name string, v cue.Value) (*ir.Table, error) {
	table := &ir.Table{Name: name}

	columnsVal := v.LookupPath(cue.ParsePath("columns"))
	if !columnsVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("table.%s.columns", name),
			Message: "table columns are required",
			Pos:     v.Pos(),
		}
	}

	colIter, err := columnsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for colIter.Next() {
		col, err := parseColumn(name, colIter.Value())
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, col)
	}

	rowsVal := v.LookupPath(cue.ParsePath("rows"))
	if !rowsVal.Exists() {
		return table, nil // rows are optional; seeds may supply them
	}

	rowIter, err := rowsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; rowIter.Next(); i++ {
		row, err := parseRow(table, i, rowIter.Value())
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// parseColumn parses {name, type, primary_key?, nullable?, references?}.
func parseColumn(table string, v cue.Value) (ir.Column, error) {
	var col ir.Column

	name, err := requiredString(v, "name", fmt.Sprintf("table.%s.columns", table))
	if err != nil {
		return col, err
	}
	col.Name = name

	typ, err := requiredString(v, "type", fmt.Sprintf("table.%s.columns.%s", table, name))
	if err != nil {
		return col, err
	}
	col.Type = ir.ColumnType(typ)

	if col.PrimaryKey, err = optionalBool(v, "primary_key"); err != nil {
		return col, err
	}
	if col.Nullable, err = optionalBool(v, "nullable"); err != nil {
		return col, err
	}

	refVal := v.LookupPath(cue.ParsePath("references"))
	if refVal.Exists() {
		field := fmt.Sprintf("table.%s.columns.%s.references", table, name)
		refTable, err := requiredString(refVal, "table", field)
		if err != nil {
			return col, err
		}
		refColumn, err := requiredString(refVal, "column", field)
		if err != nil {
			return col, err
		}
		col.ForeignKey = &ir.ForeignKey{Table: refTable, Column: refColumn}
	}

	return col, nil
}

// parseRow accepts either a struct keyed by column name or a list of values
// in column order.
func parseRow(table *ir.Table, index int, v cue.Value) (ir.Row, error) {
	field := fmt.Sprintf("table.%s.rows[%d]", table.Name, index)
	row := make(ir.Row)

	switch v.IncompleteKind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			val, err := extractValue(iter.Value())
			if err != nil {
				return nil, err
			}
			row[iter.Label()] = val
		}

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		i := 0
		for ; iter.Next(); i++ {
			if i >= len(table.Columns) {
				continue
			}
			val, err := extractValue(iter.Value())
			if err != nil {
				return nil, err
			}
			row[table.Columns[i].Name] = val
		}
		if i != len(table.Columns) {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("positional row has %d values, table has %d columns", i, len(table.Columns)),
				Pos:     v.Pos(),
			}
		}

	default:
		return nil, &CompileError{
			Field:   field,
			Message: "row must be a struct or a list",
			Pos:     v.Pos(),
		}
	}

	return table.ConformRow(row), nil
}

// extractValue converts a concrete CUE scalar to a cell value.
func extractValue(v cue.Value) (ir.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Decimal(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Text(s), nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func requiredString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
