package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/querysql"
)

// LoadSchema reads every user table of the database into a Schema named name.
//
// Tables come back in creation order, columns in declaration order and rows
// in rowid order. Declared SQL types map onto lesson column types by SQLite's
// affinity rules (see ColumnTypeOf); cell values are coerced to those types
// where they fit and kept as stored otherwise.
func (s *Store) LoadSchema(ctx context.Context, name string) (*ir.Schema, error) {
	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	schema := &ir.Schema{Name: name, Tables: make([]ir.Table, 0, len(names))}
	for _, tn := range names {
		table, err := s.loadTable(ctx, tn)
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, *table)
	}

	resolveImplicitReferences(schema)
	return schema, nil
}

// tableNames returns user tables in creation order.
func (s *Store) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.Query(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

func (s *Store) loadTable(ctx context.Context, name string) (*ir.Table, error) {
	table := &ir.Table{Name: name}

	cols, err := s.columns(ctx, name)
	if err != nil {
		return nil, err
	}
	table.Columns = cols

	if err := s.foreignKeys(ctx, table); err != nil {
		return nil, err
	}

	table.Rows, err = s.rows(ctx, table)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Store) columns(ctx context.Context, table string) ([]ir.Column, error) {
	rows, err := s.Query(ctx, `
		SELECT name, type, "notnull", pk
		FROM pragma_table_info(?)
		ORDER BY cid ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ir.Column
	for rows.Next() {
		var (
			name, decl string
			notNull    bool
			pk         int
		)
		if err := rows.Scan(&name, &decl, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, ir.Column{
			Name:       name,
			Type:       ColumnTypeOf(decl),
			PrimaryKey: pk > 0,
			Nullable:   !notNull && pk == 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	return cols, nil
}

// foreignKeys attaches single-column foreign keys to their columns.
// Composite keys have no lesson equivalent and are skipped.
func (s *Store) foreignKeys(ctx context.Context, table *ir.Table) error {
	rows, err := s.Query(ctx, `
		SELECT id, "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id ASC, seq ASC
	`, table.Name)
	if err != nil {
		return fmt.Errorf("query foreign keys of %s: %w", table.Name, err)
	}
	defer rows.Close()

	type ref struct {
		from, table string
		to          sql.NullString
	}
	byID := make(map[int][]ref)
	var ids []int

	for rows.Next() {
		var (
			id int
			r  ref
		)
		if err := rows.Scan(&id, &r.from, &r.table, &r.to); err != nil {
			return fmt.Errorf("scan foreign key of %s: %w", table.Name, err)
		}
		if _, seen := byID[id]; !seen {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate foreign keys of %s: %w", table.Name, err)
	}

	for _, id := range ids {
		refs := byID[id]
		if len(refs) != 1 {
			continue
		}
		col, ok := table.Column(refs[0].from)
		if !ok {
			continue
		}
		// An empty column means "the parent's primary key"; it is filled
		// in once every table is loaded.
		col.ForeignKey = &ir.ForeignKey{Table: refs[0].table, Column: refs[0].to.String}
	}
	return nil
}

func (s *Store) rows(ctx context.Context, table *ir.Table) ([]ir.Row, error) {
	rows, err := s.Query(ctx,
		"SELECT * FROM "+querysql.Quote(table.Name)+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("query rows of %s: %w", table.Name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table.Name, err)
	}

	out := []ir.Row{}
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", table.Name, err)
		}

		row := make(ir.Row, len(names))
		for i, n := range names {
			v, err := ir.FromGo(raw[i])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", table.Name, n, err)
			}
			row[n] = v
		}
		out = append(out, table.ConformRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", table.Name, err)
	}
	return out, nil
}

// resolveImplicitReferences fills in "REFERENCES parent" clauses that name
// no column with the parent's single primary key column.
func resolveImplicitReferences(s *ir.Schema) {
	for i := range s.Tables {
		for j := range s.Tables[i].Columns {
			fk := s.Tables[i].Columns[j].ForeignKey
			if fk == nil || fk.Column != "" {
				continue
			}
			parent, ok := s.Table(fk.Table)
			if !ok {
				continue
			}
			var pks []string
			for _, c := range parent.Columns {
				if c.PrimaryKey {
					pks = append(pks, c.Name)
				}
			}
			if len(pks) == 1 {
				fk.Column = pks[0]
			}
		}
	}
}

// ColumnTypeOf maps a declared SQL column type to a lesson column type.
//
// Well-known names map directly (DATE, BOOLEAN, VARCHAR, DECIMAL, ...);
// anything else follows SQLite's affinity rules: INT means integer; CHAR,
// CLOB or TEXT mean text; REAL, FLOA, DOUB, NUMERIC or DEC mean decimal.
// An empty or unrecognized declaration is text.
func ColumnTypeOf(decl string) ir.ColumnType {
	d := strings.ToUpper(strings.TrimSpace(decl))
	if i := strings.IndexByte(d, '('); i >= 0 {
		d = strings.TrimSpace(d[:i])
	}

	switch d {
	case "DATE", "DATETIME", "TIMESTAMP":
		return ir.TypeDate
	case "BOOLEAN", "BOOL":
		return ir.TypeBoolean
	case "VARCHAR", "CHARACTER VARYING", "NVARCHAR", "VARYING CHARACTER":
		return ir.TypeVarchar
	}

	switch {
	case strings.Contains(d, "INT"):
		return ir.TypeInteger
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return ir.TypeText
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DEC"):
		return ir.TypeDecimal
	default:
		return ir.TypeText
	}
}

// sqlTypeOf is the declared SQL type used when writing a column.
func sqlTypeOf(t ir.ColumnType) string {
	switch t {
	case ir.TypeInteger:
		return "INTEGER"
	case ir.TypeVarchar:
		return "VARCHAR"
	case ir.TypeDate:
		return "DATE"
	case ir.TypeDecimal:
		return "DECIMAL"
	case ir.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
