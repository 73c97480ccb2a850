package plan

import (
	"github.com/dianpeng/qbench/sql"
)

// Query is one experiment's query, classified once and shared by every
// engine.
type Query struct {
	Name     string
	Text     string
	Tables   []string // as declared by the experiment
	Aliases  AliasMap
	Stmt     *sql.Select // nil when the text is outside of the grammar
	ParseErr error       // why Stmt is nil
	Shape    Shape
	Err      error // classification failure, Shape is nil
}

// Compile tokenizes the text, resolves its aliases and classifies it. The
// returned Query is never nil; on failure Err repeats the returned error so
// that the engines that don't classify can still run the text.
func Compile(
	name string,
	text string,
	tables []string,
	schemas SchemaSource,
) (*Query, error) {
	q := &Query{
		Name:   name,
		Text:   text,
		Tables: tables,
	}

	fail := func(err error) (*Query, error) {
		q.Err = err
		return q, err
	}

	tok, err := sql.Tokenize(text)
	if err != nil {
		// text the lexer can't read is outside every shape, not malformed
		q.ParseErr = err
		q.Shape = unsupported("lex: %s", err)
		return q, nil
	}

	if m, err := ResolveAliases(tok); err != nil {
		return fail(err)
	} else {
		q.Aliases = m
	}

	if s, err := sql.Parse(text); err != nil {
		q.ParseErr = err
	} else {
		q.Stmt = s
	}

	if shape, err := Classify(tok, q.Aliases, q.Stmt, schemas); err != nil {
		return fail(err)
	} else {
		q.Shape = shape
	}
	return q, nil
}
