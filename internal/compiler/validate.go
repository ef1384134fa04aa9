package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querylab/internal/ir"
)

// Validation error codes (E120-E139)
const (
	ErrNoTables         = "E120" // scenario has no tables
	ErrDuplicateTable   = "E121" // table name repeated (case-insensitive)
	ErrNoColumns        = "E122" // table has no columns
	ErrDuplicateColumn  = "E123" // column name repeated within a table
	ErrInvalidFieldType = "E124" // column type not in the supported set
	ErrUnknownRowKey    = "E125" // row has a key the table does not declare
	ErrTypeMismatch     = "E126" // cell value does not fit its column type
	ErrNullNotAllowed   = "E127" // NULL in a column not marked nullable
	ErrDuplicateKey     = "E128" // primary key value repeated
	ErrDanglingRef      = "E129" // foreign key names a missing table/column
	ErrOrphanRef        = "E130" // foreign key value has no referenced row
	ErrEmptyName        = "E131" // blank table or column name
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled schema against the lesson data rules.
// Returns all errors found (does not fail-fast).
//
// Structure is checked first (names, types, duplicates), then every row
// against its table, then foreign keys across tables.
func Validate(s *ir.Schema) []ValidationError {
	var errs []ValidationError

	if len(s.Tables) == 0 {
		return []ValidationError{{
			Field:   s.Name,
			Message: "scenario must declare at least one table",
			Code:    ErrNoTables,
		}}
	}

	seenTables := make(map[string]bool)
	for i := range s.Tables {
		t := &s.Tables[i]
		key := strings.ToLower(t.Name)

		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tables[%d].name", i),
				Message: "table name must be non-empty",
				Code:    ErrEmptyName,
			})
		}
		if seenTables[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tables[%d].name", i),
				Message: fmt.Sprintf("duplicate table name: %q", t.Name),
				Code:    ErrDuplicateTable,
			})
		}
		seenTables[key] = true

		errs = append(errs, validateColumns(t)...)
		errs = append(errs, validateRows(t)...)
	}

	errs = append(errs, validateReferences(s)...)
	return errs
}

func validateColumns(t *ir.Table) []ValidationError {
	var errs []ValidationError

	if len(t.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   t.Name,
			Message: "table must declare at least one column",
			Code:    ErrNoColumns,
		})
	}

	seen := make(map[string]bool)
	for j, c := range t.Columns {
		field := fmt.Sprintf("%s.columns[%d]", t.Name, j)

		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "column name must be non-empty",
				Code:    ErrEmptyName,
			})
		}

		key := strings.ToLower(c.Name)
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate column name: %q", c.Name),
				Code:    ErrDuplicateColumn,
			})
		}
		seen[key] = true

		if !ir.ValidColumnTypes[c.Type] {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid type %q for column %q", c.Type, c.Name),
				Code:    ErrInvalidFieldType,
			})
		}
	}

	return errs
}

func validateRows(t *ir.Table) []ValidationError {
	var errs []ValidationError
	keys := make(map[string]map[string]int) // pk column -> value text -> first row

	for i, row := range t.Rows {
		for _, k := range row.SortedKeys() {
			field := fmt.Sprintf("%s.rows[%d].%s", t.Name, i, k)
			col, ok := t.Column(k)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("table %q has no column %q", t.Name, k),
					Code:    ErrUnknownRowKey,
				})
				continue
			}

			v := row[k]
			if _, isNull := v.(ir.Null); isNull {
				if !col.Nullable {
					errs = append(errs, ValidationError{
						Field:   field,
						Message: fmt.Sprintf("column %q is not nullable", col.Name),
						Code:    ErrNullNotAllowed,
					})
				}
				continue
			}

			if !ir.ValidColumnTypes[col.Type] {
				continue // reported by validateColumns
			}
			if _, err := ir.Conform(v, col.Type); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrTypeMismatch,
				})
			}
		}

		for _, col := range t.Columns {
			if !col.PrimaryKey {
				continue
			}
			v, _, ok := row.Lookup(col.Name)
			if !ok {
				continue
			}
			if _, isNull := v.(ir.Null); isNull {
				continue
			}
			if keys[col.Name] == nil {
				keys[col.Name] = make(map[string]int)
			}
			if first, dup := keys[col.Name][v.String()]; dup {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.rows[%d].%s", t.Name, i, col.Name),
					Message: fmt.Sprintf("primary key %s repeats rows[%d]", v, first),
					Code:    ErrDuplicateKey,
				})
				continue
			}
			keys[col.Name][v.String()] = i
		}
	}

	return errs
}

func validateReferences(s *ir.Schema) []ValidationError {
	var errs []ValidationError

	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c.ForeignKey == nil {
				continue
			}
			field := fmt.Sprintf("%s.columns.%s.references", t.Name, c.Name)

			target, ok := s.Table(c.ForeignKey.Table)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("referenced table %q does not exist", c.ForeignKey.Table),
					Code:    ErrDanglingRef,
				})
				continue
			}
			if _, ok := target.Column(c.ForeignKey.Column); !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("referenced column %s.%s does not exist", target.Name, c.ForeignKey.Column),
					Code:    ErrDanglingRef,
				})
				continue
			}

			errs = append(errs, validateOrphans(&t, c, target)...)
		}
	}

	return errs
}

// validateOrphans reports foreign key values with no matching referenced
// row. Matching is strict equality, the same rule a join uses.
func validateOrphans(t *ir.Table, c ir.Column, target *ir.Table) []ValidationError {
	var errs []ValidationError

	for i, row := range t.Rows {
		v, _, ok := row.Lookup(c.Name)
		if !ok {
			continue
		}
		if _, isNull := v.(ir.Null); isNull {
			continue
		}

		found := slices.ContainsFunc(target.Rows, func(r ir.Row) bool {
			rv, _, ok := r.Lookup(c.ForeignKey.Column)
			return ok && ir.Identical(v, rv)
		})
		if !found {
			errs = append(errs, ValidationError{
				Field: fmt.Sprintf("%s.rows[%d].%s", t.Name, i, c.Name),
				Message: fmt.Sprintf("value %s has no matching row in %s.%s",
					v, target.Name, c.ForeignKey.Column),
				Code: ErrOrphanRef,
			})
		}
	}

	return errs
}
