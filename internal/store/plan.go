package store

import (
	"context"
	"fmt"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
	"github.com/roach88/querylab/internal/querysql"
)

// RunPlan compiles plan to SQL and runs it against the database.
//
// Columns come back in statement order. When a join yields two columns of
// the same name, the later one wins in each row, matching the engine's
// merge of right-hand values over left-hand ones.
func (s *Store) RunPlan(ctx context.Context, plan query.Plan) ([]string, []ir.Row, error) {
	stmt, params, err := querysql.NewSQLCompiler().Compile(plan)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.Query(ctx, stmt, params...)
	if err != nil {
		return nil, nil, fmt.Errorf("run %q: %w", stmt, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("result columns: %w", err)
	}

	var columns []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			columns = append(columns, n)
		}
	}

	out := []ir.Row{}
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan result row: %w", err)
		}

		row := make(ir.Row, len(columns))
		for i, n := range names {
			v, err := ir.FromGo(raw[i])
			if err != nil {
				return nil, nil, fmt.Errorf("result column %s: %w", n, err)
			}
			row[n] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return columns, out, nil
}
