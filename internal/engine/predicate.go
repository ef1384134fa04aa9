package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

// condition is a compiled comparison, prepared once per execution.
type condition struct {
	column  string
	op      query.Op
	text    string  // lower-cased literal for equality
	num     float64 // numeric literal for ordering
	numOK   bool
	pattern *regexp.Regexp // LIKE only
}

// filter is a compiled conjunction. An empty filter keeps every row.
type filter []condition

func compileFilter(p query.Predicate) (filter, error) {
	cmps := query.Conjuncts(p)
	f := make(filter, 0, len(cmps))
	for _, c := range cmps {
		cond := condition{
			column: c.Column,
			op:     c.Op,
			text:   strings.ToLower(c.Literal.Raw),
		}
		cond.num, cond.numOK = ir.Text(c.Literal.Raw).Number()

		if c.Op == query.OpLike {
			re, err := likePattern(c.Literal.Raw)
			if err != nil {
				return nil, fmt.Errorf("LIKE pattern %q: %w", c.Literal.Raw, err)
			}
			cond.pattern = re
		}
		f = append(f, cond)
	}
	return f, nil
}

// apply returns the rows that satisfy every condition, in input order.
// With no conditions the input slice is returned as is.
func (f filter) apply(rows []ir.Row) []ir.Row {
	if len(f) == 0 {
		return rows
	}
	out := make([]ir.Row, 0, len(rows))
	for _, r := range rows {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f filter) match(row ir.Row) bool {
	for _, c := range f {
		if !c.match(row) {
			return false
		}
	}
	return true
}

func (c condition) match(row ir.Row) bool {
	v := cell(row, c.column)

	switch c.op {
	case query.OpEq:
		return c.equals(v)
	case query.OpNe, query.OpNeAlt:
		return !c.equals(v)
	case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		return c.orders(v)
	case query.OpLike:
		return v != nil && c.pattern.MatchString(v.String())
	default:
		return false
	}
}

// equals compares text forms case-insensitively. An absent value equals
// nothing.
func (c condition) equals(v ir.Value) bool {
	return v != nil && strings.ToLower(v.String()) == c.text
}

// orders compares numerically. Anything without a numeric reading, on
// either side, compares false.
func (c condition) orders(v ir.Value) bool {
	if v == nil || !c.numOK {
		return false
	}
	n, ok := v.Number()
	if !ok {
		return false
	}

	switch c.op {
	case query.OpLt:
		return n < c.num
	case query.OpLe:
		return n <= c.num
	case query.OpGt:
		return n > c.num
	case query.OpGe:
		return n >= c.num
	}
	return false
}

// cell looks a column up in a row. Missing columns and NULL cells both
// come back as nil.
func cell(row ir.Row, column string) ir.Value {
	v, _, ok := row.Lookup(column)
	if !ok {
		return nil
	}
	if _, isNull := v.(ir.Null); isNull {
		return nil
	}
	return v
}

// likePattern translates a LIKE pattern into an anchored, case-insensitive
// regular expression: "%" is any run of characters, "_" is exactly one.
func likePattern(p string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.Compile(b.String())
}
