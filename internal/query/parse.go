package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse recognizes a normalized statement as a *Select or *Join plan.
//
// The plain shape is attempted first and the join shape second. When both
// fail the error is a *SyntaxError pointing at the furthest position either
// attempt reached. A join whose ON clause has the wrong shape is reported as
// a *MalformedJoinError instead. A statement with more than one JOIN keyword
// is always a syntax error.
//
// Parse performs no semantic validation: unknown tables and columns parse.
func Parse(normalized string) (Plan, error) {
	toks, err := lex(normalized)
	if err != nil {
		var le *lexError
		errors.As(err, &le)
		return nil, &SyntaxError{
			Query:  normalized,
			Pos:    le.pos,
			Near:   tokenAt(normalized, le.pos),
			Detail: le.msg,
		}
	}

	if n := countKeyword(toks, "join"); n > 1 {
		second := nthKeyword(toks, "join", 2)
		return nil, &SyntaxError{
			Query:  normalized,
			Pos:    second.pos,
			Near:   second.text,
			Detail: "only one JOIN is supported",
		}
	}

	sp := &parser{src: normalized, toks: toks}
	sel, simpleErr := sp.simpleSelect()
	if simpleErr == nil {
		return sel, nil
	}

	jp := &parser{src: normalized, toks: toks}
	join, joinErr := jp.joinSelect()
	if joinErr == nil {
		return join, nil
	}

	var mj *MalformedJoinError
	if errors.As(joinErr, &mj) {
		return nil, mj
	}

	furthest := asMismatch(simpleErr)
	if jm := asMismatch(joinErr); jm.tok.pos > furthest.tok.pos {
		furthest = jm
	}
	near := ""
	if furthest.tok.kind != tokEOF {
		near = furthest.tok.display()
	}
	return nil, &SyntaxError{
		Query:  normalized,
		Pos:    furthest.tok.pos,
		Near:   near,
		Detail: furthest.want,
	}
}

// mismatch is the parser's internal failure: the token found and what was
// wanted in its place.
type mismatch struct {
	tok  token
	want string
}

func (m *mismatch) Error() string {
	return fmt.Sprintf("expected %s at offset %d", m.want, m.tok.pos)
}

func asMismatch(err error) *mismatch {
	var m *mismatch
	if errors.As(err, &m) {
		return m
	}
	return &mismatch{want: err.Error()}
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(want string) error {
	return &mismatch{tok: p.peek(), want: want}
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokWord && strings.EqualFold(t.text, kw)
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.fail(strings.ToUpper(kw))
	}
	return nil
}

func (p *parser) acceptSymbol(sym string) bool {
	t := p.peek()
	if t.kind == tokSymbol && t.text == sym {
		p.pos++
		return true
	}
	return false
}

func (p *parser) identifier() (string, error) {
	t := p.peek()
	if t.kind == tokWord && isIdentifier(t.text) {
		p.pos++
		return t.text, nil
	}
	return "", p.fail("identifier")
}

// qualifiedIdentifier parses [table "."] column.
func (p *parser) qualifiedIdentifier() (table, column string, err error) {
	first, err := p.identifier()
	if err != nil {
		return "", "", err
	}
	if !p.acceptSymbol(".") {
		return "", first, nil
	}
	second, err := p.identifier()
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

func (p *parser) expectEnd() error {
	if p.peek().kind != tokEOF {
		return p.fail("end of statement")
	}
	return nil
}

// simpleSelect := "select" column_list "from" identifier
//
//	["where" predicate_list] ["order by" order_spec] ["limit" integer]
func (p *parser) simpleSelect() (*Select, error) {
	cols, table, err := p.selectHead()
	if err != nil {
		return nil, err
	}
	sel := &Select{Columns: cols, Table: table}

	if sel.Where, err = p.optionalWhere(); err != nil {
		return nil, err
	}
	if sel.OrderBy, err = p.optionalOrderBy(); err != nil {
		return nil, err
	}
	if p.acceptKeyword("limit") {
		n, err := p.limitCount()
		if err != nil {
			return nil, err
		}
		sel.Limit = &n
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return sel, nil
}

// joinSelect := "select" column_list "from" identifier ["inner"] "join"
//
//	identifier "on" identifier "." identifier "=" identifier "." identifier
//	["where" predicate_list] ["order by" order_spec]
func (p *parser) joinSelect() (*Join, error) {
	cols, left, err := p.selectHead()
	if err != nil {
		return nil, err
	}
	p.acceptKeyword("inner")
	if err := p.expectKeyword("join"); err != nil {
		return nil, err
	}
	right, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("on"); err != nil {
		return nil, err
	}

	onStart := p.pos
	on, ok := p.joinCondition()
	if !ok {
		return nil, &MalformedJoinError{Clause: p.clauseText(onStart)}
	}

	join := &Join{Columns: cols, Left: left, Right: right, On: on}
	if join.Where, err = p.optionalWhere(); err != nil {
		return nil, err
	}
	if join.OrderBy, err = p.optionalOrderBy(); err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return join, nil
}

// joinCondition parses ident.ident = ident.ident and requires the clause to
// end there.
func (p *parser) joinCondition() (JoinCondition, bool) {
	var jc JoinCondition
	var err error

	if jc.LeftTable, jc.LeftColumn, err = p.qualifiedIdentifier(); err != nil || jc.LeftTable == "" {
		return jc, false
	}
	if !p.acceptSymbol("=") {
		return jc, false
	}
	if jc.RightTable, jc.RightColumn, err = p.qualifiedIdentifier(); err != nil || jc.RightTable == "" {
		return jc, false
	}
	return jc, p.conditionEnds()
}

// conditionEnds reports whether the ON clause stops at the current token.
// Further conditions or stray operands keep the clause going.
func (p *parser) conditionEnds() bool {
	t := p.peek()
	if t.kind == tokEOF {
		return true
	}
	if t.kind != tokWord {
		return false
	}
	switch kw := strings.ToLower(t.text); kw {
	case "and", "or", "not":
		return false
	default:
		return reserved[kw]
	}
}

// clauseText returns source text from token index start up to the next
// WHERE or ORDER keyword, for error messages.
func (p *parser) clauseText(start int) string {
	from := p.toks[start].pos
	to := len(p.src)
	for _, t := range p.toks[start:] {
		if t.kind == tokWord && (strings.EqualFold(t.text, "where") || strings.EqualFold(t.text, "order")) {
			to = t.pos
			break
		}
	}
	return strings.TrimSpace(p.src[from:to])
}

func (p *parser) selectHead() ([]ColumnRef, string, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, "", err
	}
	cols, err := p.columnList()
	if err != nil {
		return nil, "", err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, "", err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, "", err
	}
	return cols, table, nil
}

// columnList := "*" | column_ref ("," column_ref)*
func (p *parser) columnList() ([]ColumnRef, error) {
	if p.acceptSymbol("*") {
		return []ColumnRef{{Wildcard: true}}, nil
	}

	var cols []ColumnRef
	for {
		ref, err := p.columnRef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, ref)
		if !p.acceptSymbol(",") {
			return cols, nil
		}
	}
}

// columnRef := [identifier "."] identifier ["as" identifier]
func (p *parser) columnRef() (ColumnRef, error) {
	var ref ColumnRef
	var err error
	if ref.Table, ref.Source, err = p.qualifiedIdentifier(); err != nil {
		return ref, err
	}
	if p.acceptKeyword("as") {
		if ref.Alias, err = p.identifier(); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

func (p *parser) optionalWhere() (Predicate, error) {
	if !p.acceptKeyword("where") {
		return nil, nil
	}

	var preds []Predicate
	for {
		cmp, err := p.comparison()
		if err != nil {
			return nil, err
		}
		preds = append(preds, cmp)
		if !p.acceptKeyword("and") {
			break
		}
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return &And{Predicates: preds}, nil
}

// comparison := identifier operator literal
func (p *parser) comparison() (*Comparison, error) {
	var cmp Comparison
	var err error
	if cmp.Table, cmp.Column, err = p.qualifiedIdentifier(); err != nil {
		return nil, err
	}
	if cmp.Op, err = p.operator(); err != nil {
		return nil, err
	}
	if cmp.Literal, err = p.literal(); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (p *parser) operator() (Op, error) {
	if p.acceptKeyword("like") {
		return OpLike, nil
	}
	t := p.peek()
	if t.kind == tokSymbol {
		switch op := Op(t.text); op {
		case OpEq, OpNe, OpNeAlt, OpLt, OpLe, OpGt, OpGe:
			p.pos++
			return op, nil
		}
	}
	return "", p.fail("comparison operator")
}

func (p *parser) literal() (Literal, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.pos++
		return Literal{Raw: t.text, Quoted: true}, nil
	case t.kind == tokNumber:
		p.pos++
		return Literal{Raw: t.text}, nil
	case t.kind == tokWord && !reserved[strings.ToLower(t.text)]:
		p.pos++
		return Literal{Raw: t.text}, nil
	}
	return Literal{}, p.fail("literal value")
}

// order_spec := identifier ["asc" | "desc"]
func (p *parser) optionalOrderBy() (*OrderSpec, error) {
	if !p.acceptKeyword("order") {
		return nil, nil
	}
	if err := p.expectKeyword("by"); err != nil {
		return nil, err
	}

	var spec OrderSpec
	var err error
	if spec.Table, spec.Column, err = p.qualifiedIdentifier(); err != nil {
		return nil, err
	}
	if !p.acceptKeyword("asc") && p.acceptKeyword("desc") {
		spec.Desc = true
	}
	return &spec, nil
}

func (p *parser) limitCount() (int, error) {
	t := p.peek()
	if t.kind == tokNumber {
		if n, err := strconv.Atoi(t.text); err == nil && n >= 0 {
			p.pos++
			return n, nil
		}
	}
	return 0, p.fail("non-negative integer")
}

func countKeyword(toks []token, kw string) int {
	n := 0
	for _, t := range toks {
		if t.kind == tokWord && strings.EqualFold(t.text, kw) {
			n++
		}
	}
	return n
}

func nthKeyword(toks []token, kw string, n int) token {
	for _, t := range toks {
		if t.kind == tokWord && strings.EqualFold(t.text, kw) {
			n--
			if n == 0 {
				return t
			}
		}
	}
	return token{kind: tokEOF}
}

// tokenAt returns the run of non-space text starting at pos.
func tokenAt(src string, pos int) string {
	if pos >= len(src) {
		return ""
	}
	end := strings.IndexByte(src[pos:], ' ')
	if end < 0 {
		return src[pos:]
	}
	return src[pos : pos+end]
}
