package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/querylab/internal/query"
)

// SQLCompiler compiles a query.Plan to parameterized SQL for SQLite.
//
// The generated statement follows the engine's semantics as closely as SQLite
// allows:
//   - "=" compares lower-cased text forms; "!=" and "<>" are its negation,
//     so NULL cells satisfy them
//   - ordering comparisons bind a numeric parameter; a non-numeric literal
//     compiles to a condition that is never true
//   - LIKE is SQLite's own, which is case-insensitive for ASCII
//
// All literal values are bound as parameters, never interpolated. Every
// statement ends with an ORDER BY whose rowid tiebreaker reproduces the
// engine's stable ordering.
type SQLCompiler struct {
	// RowID names the implicit row-order column. Defaults to "rowid".
	RowID string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{RowID: "rowid"}
}

// Compile converts a plan to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(p query.Plan) (string, []any, error) {
	if p == nil {
		return "", nil, fmt.Errorf("cannot compile nil plan")
	}

	switch plan := p.(type) {
	case *query.Select:
		return c.compileSelect(plan)
	case *query.Join:
		return c.compileJoin(plan)
	default:
		return "", nil, fmt.Errorf("unsupported plan type: %T", p)
	}
}

func (c *SQLCompiler) compileSelect(s *query.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(selectList(s.Columns, nil))
	b.WriteString(" FROM ")
	b.WriteString(Quote(s.Table))

	if s.Where != nil {
		where, whereParams, err := c.compilePredicate(s.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile where: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderKey(s.OrderBy, s.Table))

	if s.Limit != nil {
		b.WriteString(" LIMIT ?")
		params = append(params, int64(*s.Limit))
	}

	return b.String(), params, nil
}

func (c *SQLCompiler) compileJoin(j *query.Join) (string, []any, error) {
	var b strings.Builder
	var params []any

	b.WriteString("SELECT ")
	b.WriteString(selectList(j.Columns, []string{j.Left, j.Right}))
	b.WriteString(" FROM ")
	b.WriteString(Quote(j.Left))
	b.WriteString(" INNER JOIN ")
	b.WriteString(Quote(j.Right))
	b.WriteString(" ON ")
	b.WriteString(column(j.On.LeftTable, j.On.LeftColumn))
	b.WriteString(" = ")
	b.WriteString(column(j.On.RightTable, j.On.RightColumn))

	if j.Where != nil {
		where, whereParams, err := c.compilePredicate(j.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile where: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	// Left-major, then right: the nested loop's emission order.
	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderKey(j.OrderBy, j.Left, j.Right))

	return b.String(), params, nil
}

// orderKey returns the ORDER BY list for a statement. The requested key, if
// any, comes first; the rowid of each table follows as tiebreaker.
func (c *SQLCompiler) orderKey(o *query.OrderSpec, tables ...string) string {
	var keys []string
	if o != nil {
		key := column(o.Table, o.Column)
		if o.Desc {
			key += " DESC"
		} else {
			key += " ASC"
		}
		keys = append(keys, key)
	}

	rowid := c.RowID
	if rowid == "" {
		rowid = "rowid"
	}
	for _, t := range tables {
		if len(tables) == 1 {
			keys = append(keys, rowid+" ASC")
			continue
		}
		keys = append(keys, Quote(t)+"."+rowid+" ASC")
	}
	return strings.Join(keys, ", ")
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// Returns (sql, params, error).
func (c *SQLCompiler) compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case *query.Comparison:
		return c.compileComparison(pred)
	case *query.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and *query.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // vacuous truth
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, subParams, err := c.compilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) compileComparison(cmp *query.Comparison) (string, []any, error) {
	col := column(cmp.Table, cmp.Column)
	text := strings.ToLower(cmp.Literal.Raw)

	switch cmp.Op {
	case query.OpEq:
		return fmt.Sprintf("lower(%s) = ?", col), []any{text}, nil
	case query.OpNe, query.OpNeAlt:
		return fmt.Sprintf("(%s IS NULL OR lower(%s) <> ?)", col, col), []any{text}, nil
	case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		n, ok := numericParam(cmp.Literal)
		if !ok {
			return "1 = 0", nil, nil
		}
		return fmt.Sprintf("%s %s ?", col, cmp.Op), []any{n}, nil
	case query.OpLike:
		return fmt.Sprintf("%s LIKE ?", col), []any{cmp.Literal.Raw}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", cmp.Op)
	}
}

// numericParam returns the literal as an int64 or float64 parameter.
func numericParam(l query.Literal) (any, bool) {
	n, ok := l.Value().Number()
	if !ok {
		return nil, false
	}
	if n == float64(int64(n)) {
		return int64(n), true
	}
	return n, true
}

// selectList renders a select list. A wildcard over a join expands to each
// table's columns in FROM order.
func selectList(cols []query.ColumnRef, tables []string) string {
	if query.IsWildcard(cols) {
		if len(tables) == 0 {
			return "*"
		}
		parts := make([]string, len(tables))
		for i, t := range tables {
			parts[i] = Quote(t) + ".*"
		}
		return strings.Join(parts, ", ")
	}

	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = column(c.Table, c.Source) + " AS " + Quote(c.Name())
	}
	return strings.Join(parts, ", ")
}

func column(table, name string) string {
	if table == "" {
		return Quote(name)
	}
	return Quote(table) + "." + Quote(name)
}

// Quote renders an identifier as a double-quoted SQLite identifier.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
