package query

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	spacedOperator = regexp.MustCompile(` ?([,=<>]) ?`)
)

// Normalize reduces raw query text to its canonical form: lower case,
// single spaces, no spaces around ",", "=", "<" or ">", and no trailing
// semicolon. It never fails and does not validate syntax.
//
// Normalization is textual. Quoted literals are lower-cased and have their
// whitespace collapsed like the rest of the statement.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSpace(s)
	return spacedOperator.ReplaceAllString(s, "$1")
}
