package query

import (
	"errors"
	"fmt"
)

// AcceptedShapes names the two statement shapes the parser recognizes.
// It is embedded in every SyntaxError message.
const AcceptedShapes = "expected either " +
	"SELECT <columns> FROM <table> [WHERE <condition> [AND ...]] [ORDER BY <column> [ASC|DESC]] [LIMIT <n>] " +
	"or SELECT <columns> FROM <table> [INNER] JOIN <table> ON <table>.<column> = <table>.<column> " +
	"[WHERE <condition> [AND ...]] [ORDER BY <column> [ASC|DESC]]"

// SyntaxError reports a statement that matches neither supported shape.
type SyntaxError struct {
	Query  string // normalized text that failed to parse
	Pos    int    // byte offset of the furthest point either shape reached
	Near   string // token at Pos, or "" at end of input
	Detail string // what the parser wanted at Pos
}

func (e *SyntaxError) Error() string {
	near := "end of input"
	if e.Near != "" {
		near = fmt.Sprintf("%q", e.Near)
	}
	if e.Detail != "" {
		return fmt.Sprintf("syntax error near %s (%s): %s", near, e.Detail, AcceptedShapes)
	}
	return fmt.Sprintf("syntax error near %s: %s", near, AcceptedShapes)
}

// MalformedJoinError reports a JOIN whose ON clause is not a single
// table.column = table.column equality.
type MalformedJoinError struct {
	Clause string // the ON clause text as written
}

func (e *MalformedJoinError) Error() string {
	return fmt.Sprintf("malformed join: ON clause must have the form <table>.<column> = <table>.<column>, got %q", e.Clause)
}

// IsSyntaxError checks if an error is a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsMalformedJoin checks if an error is a *MalformedJoinError.
func IsMalformedJoin(err error) bool {
	var mj *MalformedJoinError
	return errors.As(err, &mj)
}
