package engine

import (
	"strings"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

// nestedLoopJoin pairs every left row with every right row whose ON values
// are identical, emitting merged rows in left-major order.
//
// Equality here is strict (ir.Identical), not the case-insensitive text
// comparison WHERE uses. Absent and NULL values never join.
//
// A merged row holds the left fields overwritten by the right fields, so
// the right table wins when both declare the same column name.
func nestedLoopJoin(left, right *ir.Table, on query.JoinCondition, budget *rowBudget) ([]ir.Row, error) {
	leftCol := leftOnColumn(left, right, on)
	rightCol := rightOnColumn(left, right, on)

	out := make([]ir.Row, 0)
	for _, l := range left.Rows {
		lv, _, _ := l.Lookup(leftCol)
		for _, r := range right.Rows {
			rv, _, _ := r.Lookup(rightCol)
			if !ir.Identical(lv, rv) {
				continue
			}
			if err := budget.Spend(); err != nil {
				return nil, err
			}
			out = append(out, merge(l, r))
		}
	}
	return out, nil
}

func merge(l, r ir.Row) ir.Row {
	m := make(ir.Row, len(l)+len(r))
	for k, v := range l {
		m[k] = v
	}
	for k, v := range r {
		m[k] = v
	}
	return m
}

// onSwapped reports whether the ON clause names the right table first,
// as in "FROM orders JOIN students ON students.id = orders.student_id".
func onSwapped(left, right *ir.Table, on query.JoinCondition) bool {
	if strings.EqualFold(left.Name, right.Name) {
		return false
	}
	return strings.EqualFold(on.LeftTable, right.Name) && strings.EqualFold(on.RightTable, left.Name)
}

// leftOnColumn returns the ON column belonging to the left (FROM) table.
func leftOnColumn(left, right *ir.Table, on query.JoinCondition) string {
	if onSwapped(left, right, on) {
		return on.RightColumn
	}
	return on.LeftColumn
}

// rightOnColumn returns the ON column belonging to the right (JOIN) table.
func rightOnColumn(left, right *ir.Table, on query.JoinCondition) string {
	if onSwapped(left, right, on) {
		return on.LeftColumn
	}
	return on.RightColumn
}
