package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/querylab/internal/compiler"
	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/querysql"
)

// ErrReadOnly is returned when writing to a store opened with Open.
var ErrReadOnly = errors.New("store is read-only")

// WriteSchema creates every table of the schema and inserts its rows,
// all in a single transaction.
//
// Tables are created and filled in compiler.LoadOrder, so referenced rows
// exist before the rows that point at them. A schema whose rows break a
// foreign key (or a key cycle whose rows depend on each other) fails and
// leaves the database untouched.
func (s *Store) WriteSchema(ctx context.Context, schema *ir.Schema) error {
	if s.readOnly {
		return ErrReadOnly
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	order := compiler.LoadOrder(schema)
	for _, name := range order {
		table, ok := schema.Table(name)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}

	for _, name := range order {
		table, ok := schema.Table(name)
		if !ok {
			continue
		}
		if err := insertRows(ctx, tx, table); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// createTableSQL renders the CREATE TABLE statement for one table.
func createTableSQL(t *ir.Table) string {
	var pks []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pks = append(pks, querysql.Quote(c.Name))
		}
	}

	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		var b strings.Builder
		b.WriteString(querysql.Quote(c.Name))
		b.WriteString(" ")
		b.WriteString(sqlTypeOf(c.Type))
		if c.PrimaryKey && len(pks) == 1 {
			b.WriteString(" PRIMARY KEY")
		}
		if !c.Nullable && !c.PrimaryKey {
			b.WriteString(" NOT NULL")
		}
		if fk := c.ForeignKey; fk != nil {
			fmt.Fprintf(&b, " REFERENCES %s(%s)", querysql.Quote(fk.Table), querysql.Quote(fk.Column))
		}
		defs = append(defs, b.String())
	}
	if len(pks) > 1 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(pks, ", ")+")")
	}

	return "CREATE TABLE " + querysql.Quote(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

func insertRows(ctx context.Context, tx *sql.Tx, t *ir.Table) error {
	if len(t.Rows) == 0 || len(t.Columns) == 0 {
		return nil
	}

	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = querysql.Quote(c.Name)
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.Quote(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			v, _, _ := row.Lookup(c.Name)
			args[j] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s.rows[%d]: %w", t.Name, i, err)
		}
	}
	return nil
}

// sqlValue converts a cell to a database/sql argument.
// Absent cells are written as NULL.
func sqlValue(v ir.Value) any {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil
	case ir.Text:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Decimal:
		return float64(val)
	case ir.Bool:
		return bool(val)
	case ir.Date:
		return val.String()
	default:
		return v.String()
	}
}
