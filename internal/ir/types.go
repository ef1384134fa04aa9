package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ColumnType is the declared type of a column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeVarchar ColumnType = "varchar"
	TypeDate    ColumnType = "date"
	TypeDecimal ColumnType = "decimal"
	TypeBoolean ColumnType = "boolean"
	TypeText    ColumnType = "text"
)

// ValidColumnTypes defines allowed column types.
var ValidColumnTypes = map[ColumnType]bool{
	TypeInteger: true,
	TypeVarchar: true,
	TypeDate:    true,
	TypeDecimal: true,
	TypeBoolean: true,
	TypeText:    true,
}

// ForeignKey points a column at a column of another table.
type ForeignKey struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Column describes one column of a table.
type Column struct {
	Name       string      `json:"name"`
	Type       ColumnType  `json:"type"`
	PrimaryKey bool        `json:"primary_key,omitempty"`
	ForeignKey *ForeignKey `json:"foreign_key,omitempty"`
	Nullable   bool        `json:"nullable,omitempty"`
}

// Row maps a column name to its value. A column absent from the map is
// distinct from a column holding Null.
type Row map[string]Value

// Lookup resolves a column name against the row. An exact key match wins;
// otherwise, among keys equal under case folding, the lowest in byte order
// is used so that rows holding both "Id" and "ID" always resolve the same
// way. The resolved key is returned alongside the value.
func (r Row) Lookup(name string) (Value, string, bool) {
	if v, ok := r[name]; ok {
		return v, name, true
	}
	found := ""
	for k := range r {
		if strings.EqualFold(k, name) && (found == "" || k < found) {
			found = k
		}
	}
	if found == "" {
		return nil, "", false
	}
	return r[found], found, true
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// UnmarshalJSON implements json.Unmarshaler for Row.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = make(Row, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("row key %q: %w", k, err)
		}
		(*r)[k] = val
	}
	return nil
}

// Table is a named, ordered collection of rows.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column finds a column by name, case-insensitively.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ConformRow returns a copy of r with each value coerced to its column's
// declared type. Keys the table does not declare, and values that do not
// fit, are kept as they are so validation can report them.
func (t *Table) ConformRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
		col, ok := t.Column(k)
		if !ok {
			continue
		}
		if cv, err := Conform(v, col.Type); err == nil {
			out[k] = cv
		}
	}
	return out
}

// Schema is the fixed set of tables available to one exercise scenario.
// It is built once when a scenario loads and never mutated afterwards.
type Schema struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Tables      []Table `json:"tables"`
}

// Table finds a table by name, case-insensitively.
// The returned pointer must be treated as read-only.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// TableNames returns table names in declaration order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// WithRows returns a copy of the schema whose named table carries rows
// instead of its original rows. The receiver is left untouched.
func (s *Schema) WithRows(table string, rows []Row) (*Schema, error) {
	out := &Schema{
		Name:        s.Name,
		Description: s.Description,
		Tables:      make([]Table, len(s.Tables)),
	}
	copy(out.Tables, s.Tables)

	t, ok := out.Table(table)
	if !ok {
		return nil, fmt.Errorf("table %q not found in schema %q", table, s.Name)
	}
	t.Rows = rows
	return out, nil
}
