package query

import (
	"strconv"
	"strings"

	"github.com/roach88/querylab/internal/ir"
)

// Plan is the parsed form of one statement.
//
// This is a sealed interface - only *Select and *Join implement it.
// String renders the plan back to canonical SQL text; parsing that text
// yields an equal plan.
type Plan interface {
	planNode() // Marker method - seals interface to this package
	String() string
}

// Predicate is a WHERE condition.
//
// This is a sealed interface - only *Comparison and *And implement it.
// There is no OR and no grouping; a WHERE clause is a flat conjunction.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	String() string
}

// ColumnRef is one entry of a select list.
//
// Either Wildcard is set (the whole list is "*"), or Source names a column,
// optionally qualified by Table and renamed by Alias.
type ColumnRef struct {
	Wildcard bool
	Table    string // optional qualifier, stripped before lookup
	Source   string
	Alias    string
}

// Name returns the output key for this reference: the alias when present,
// otherwise the bare source column.
func (c ColumnRef) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Source
}

func (c ColumnRef) String() string {
	if c.Wildcard {
		return "*"
	}
	var b strings.Builder
	if c.Table != "" {
		b.WriteString(c.Table)
		b.WriteByte('.')
	}
	b.WriteString(c.Source)
	if c.Alias != "" {
		b.WriteString(" as ")
		b.WriteString(c.Alias)
	}
	return b.String()
}

// IsWildcard reports whether a select list is the bare "*".
func IsWildcard(cols []ColumnRef) bool {
	return len(cols) == 1 && cols[0].Wildcard
}

// OrderSpec is an ORDER BY clause. The zero Desc value means ascending.
type OrderSpec struct {
	Table  string
	Column string
	Desc   bool
}

func (o OrderSpec) String() string {
	dir := "asc"
	if o.Desc {
		dir = "desc"
	}
	return qualified(o.Table, o.Column) + " " + dir
}

// Select is the plain single-table statement.
type Select struct {
	Columns []ColumnRef
	Table   string
	Where   Predicate  // nil = no filter
	OrderBy *OrderSpec // nil = insertion order
	Limit   *int       // nil = no limit
}

func (*Select) planNode() {}

func (s *Select) String() string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(columnList(s.Columns))
	b.WriteString(" from ")
	b.WriteString(s.Table)
	writeTail(&b, s.Where, s.OrderBy)
	if s.Limit != nil {
		b.WriteString(" limit ")
		b.WriteString(strconv.Itoa(*s.Limit))
	}
	return b.String()
}

// JoinCondition is the ON clause: LeftTable.LeftColumn = RightTable.RightColumn,
// in the order the learner wrote it.
type JoinCondition struct {
	LeftTable   string
	LeftColumn  string
	RightTable  string
	RightColumn string
}

func (j JoinCondition) String() string {
	return qualified(j.LeftTable, j.LeftColumn) + " = " + qualified(j.RightTable, j.RightColumn)
}

// Join is the two-table equi-join statement. It has no LIMIT.
type Join struct {
	Columns []ColumnRef
	Left    string
	Right   string
	On      JoinCondition
	Where   Predicate
	OrderBy *OrderSpec
}

func (*Join) planNode() {}

func (j *Join) String() string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(columnList(j.Columns))
	b.WriteString(" from ")
	b.WriteString(j.Left)
	b.WriteString(" join ")
	b.WriteString(j.Right)
	b.WriteString(" on ")
	b.WriteString(j.On.String())
	writeTail(&b, j.Where, j.OrderBy)
	return b.String()
}

// Op is a comparison operator.
type Op string

const (
	OpEq    Op = "="
	OpNe    Op = "!="
	OpNeAlt Op = "<>"
	OpLt    Op = "<"
	OpLe    Op = "<="
	OpGt    Op = ">"
	OpGe    Op = ">="
	OpLike  Op = "like"
)

// Literal is the right-hand operand of a comparison, kept as written.
// Quoted literals had their surrounding quotes removed.
type Literal struct {
	Raw    string
	Quoted bool
}

// Value returns the literal as a cell value: quoted text stays Text,
// bare integers become Int, bare decimals become Decimal.
func (l Literal) Value() ir.Value {
	if l.Quoted {
		return ir.Text(l.Raw)
	}
	if i, err := strconv.ParseInt(l.Raw, 10, 64); err == nil {
		return ir.Int(i)
	}
	if f, err := strconv.ParseFloat(l.Raw, 64); err == nil {
		return ir.Decimal(f)
	}
	return ir.Text(l.Raw)
}

func (l Literal) String() string {
	if l.Quoted {
		return "'" + strings.ReplaceAll(l.Raw, "'", "''") + "'"
	}
	return l.Raw
}

// Comparison is a single "column op literal" condition.
type Comparison struct {
	Table   string // optional qualifier
	Column  string
	Op      Op
	Literal Literal
}

func (*Comparison) predicateNode() {}

func (c *Comparison) String() string {
	return qualified(c.Table, c.Column) + " " + string(c.Op) + " " + c.Literal.String()
}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (*And) predicateNode() {}

func (a *And) String() string {
	parts := make([]string, len(a.Predicates))
	for i, p := range a.Predicates {
		parts[i] = p.String()
	}
	return strings.Join(parts, " and ")
}

// Conjuncts flattens a predicate into its comparisons, left to right.
// A nil predicate has none.
func Conjuncts(p Predicate) []*Comparison {
	switch pred := p.(type) {
	case nil:
		return nil
	case *Comparison:
		return []*Comparison{pred}
	case *And:
		var out []*Comparison
		for _, sub := range pred.Predicates {
			out = append(out, Conjuncts(sub)...)
		}
		return out
	default:
		return nil
	}
}

func qualified(table, column string) string {
	if table == "" {
		return column
	}
	return table + "." + column
}

func columnList(cols []ColumnRef) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func writeTail(b *strings.Builder, where Predicate, order *OrderSpec) {
	if where != nil {
		b.WriteString(" where ")
		b.WriteString(where.String())
	}
	if order != nil {
		b.WriteString(" order by ")
		b.WriteString(order.String())
	}
}
