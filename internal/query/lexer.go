package query

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokWord
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind tokenKind
	text string // unquoted contents for tokString
	pos  int
}

// display returns the token as it appeared in the source, for messages.
func (t token) display() string {
	if t.kind == tokString {
		return "'" + t.text + "'"
	}
	return t.text
}

type lexError struct {
	pos int
	msg string
}

func (e *lexError) Error() string { return e.msg }

var twoCharSymbols = []string{"!=", "<>", "<=", ">="}

const oneCharSymbols = "=<>,.*();"

// reserved words can never be identifiers or bare literals.
var reserved = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"not": true, "order": true, "by": true, "limit": true, "join": true,
	"inner": true, "on": true, "as": true, "asc": true, "desc": true,
	"like": true,
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '\'' || c == '"':
			text, end, ok := scanQuoted(src, i)
			if !ok {
				return nil, &lexError{pos: i, msg: "unterminated string literal"}
			}
			toks = append(toks, token{kind: tokString, text: text, pos: i})
			i = end

		case hasTwoCharSymbol(src[i:]):
			toks = append(toks, token{kind: tokSymbol, text: src[i : i+2], pos: i})
			i += 2

		case strings.IndexByte(oneCharSymbols, c) >= 0:
			toks = append(toks, token{kind: tokSymbol, text: src[i : i+1], pos: i})
			i++

		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			end := scanNumber(src, i)
			toks = append(toks, token{kind: tokNumber, text: src[i:end], pos: i})
			i = end

		case isWordByte(c):
			end := i
			for end < len(src) && (isWordByte(src[end]) || isDigit(src[end])) {
				end++
			}
			toks = append(toks, token{kind: tokWord, text: src[i:end], pos: i})
			i = end

		default:
			return nil, &lexError{pos: i, msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

// scanQuoted reads a quoted literal starting at src[start]. A doubled quote
// inside the literal stands for one quote character.
func scanQuoted(src string, start int) (string, int, bool) {
	quote := src[start]
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		if src[i] == quote {
			if i+1 < len(src) && src[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), i + 1, true
		}
		b.WriteByte(src[i])
		i++
	}
	return "", 0, false
}

func scanNumber(src string, start int) int {
	i := start
	if src[i] == '-' {
		i++
	}
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	return i
}

func hasTwoCharSymbol(s string) bool {
	for _, sym := range twoCharSymbols {
		if strings.HasPrefix(s, sym) {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isWordByte accepts ASCII letters, '_', '$', '%' and any byte of a
// multi-byte UTF-8 sequence.
func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		c == '_' || c == '$' || c == '%' || c >= 0x80
}

// isIdentifier reports whether a word token may name a table or column.
func isIdentifier(word string) bool {
	return !reserved[strings.ToLower(word)] && !strings.Contains(word, "%")
}
