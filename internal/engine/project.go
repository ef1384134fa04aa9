package engine

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

// orderRows stable-sorts a copy of rows by the ORDER BY column.
//
// Two values that both read as numbers compare numerically; otherwise their
// text forms compare under the collation's locale rules. Absent and NULL
// values sort as empty text. DESC reverses the comparator, so ties keep
// their input order in both directions.
func orderRows(rows []ir.Row, spec *query.OrderSpec, tag language.Tag) []ir.Row {
	if spec == nil || len(rows) < 2 {
		return rows
	}

	// A Collator is not safe for concurrent use; each ordering gets its own.
	coll := collate.New(tag)
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b ir.Row) int {
		av, bv := cell(a, spec.Column), cell(b, spec.Column)
		if spec.Desc {
			return compareCells(coll, bv, av)
		}
		return compareCells(coll, av, bv)
	})
	return sorted
}

func compareCells(coll *collate.Collator, a, b ir.Value) int {
	an, aok := numberOf(a)
	bn, bok := numberOf(b)
	if aok && bok {
		return cmp.Compare(an, bn)
	}
	return coll.CompareString(textOf(a), textOf(b))
}

func numberOf(v ir.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return v.Number()
}

func textOf(v ir.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// project builds output rows.
//
// For "*" each row passes through as a copy and the columns are the tables'
// declared columns (left then right, without repeats). Otherwise each output
// row holds only the requested fields, keyed by alias or by the declared
// column name. A requested column a row lacks is left out of that row.
func project(rows []ir.Row, cols []query.ColumnRef, scope []*ir.Table) ([]string, []ir.Row) {
	out := make([]ir.Row, len(rows))

	if query.IsWildcard(cols) {
		for i, r := range rows {
			out[i] = r.Clone()
		}
		return wildcardColumns(scope), out
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = outputName(c)
	}

	for i, r := range rows {
		pr := make(ir.Row, len(cols))
		for j, c := range cols {
			if v, _, ok := r.Lookup(c.Source); ok {
				pr[names[j]] = v
			}
		}
		out[i] = pr
	}
	return names, out
}

// outputName is the requested name: the alias if given, otherwise the bare
// column as written in the query.
func outputName(c query.ColumnRef) string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Source
}

func wildcardColumns(scope []*ir.Table) []string {
	var names []string
	for _, t := range scope {
		for _, c := range t.Columns {
			if !slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, c.Name) }) {
				names = append(names, c.Name)
			}
		}
	}
	return names
}
