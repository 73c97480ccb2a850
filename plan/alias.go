package plan

import (
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/sql"
)

var ErrMalformedQuery = errors.New("malformed query")

// AliasMap maps an alias to the canonical table name, scoped to one query.
type AliasMap map[string]string

// Resolve returns the table an alias stands for; an alias never declared
// resolves to itself.
func (self AliasMap) Resolve(ident string) string {
	if n, ok := self[ident]; ok {
		return n
	}
	return ident
}

func malformed(tok []sql.Token, idx int, msg string) error {
	pos := 0
	if idx < len(tok) {
		pos = tok[idx].End
	} else if len(tok) > 0 {
		pos = tok[len(tok)-1].End
	}
	return errors.Wrapf(ErrMalformedQuery, "offset %d: %s", pos, msg)
}

// ResolveAliases scans the token stream for FROM and JOIN. The identifier
// following either keyword is a table name, and an identifier right after
// it, optionally introduced by AS, is its alias. Any keyword ends the table
// reference. A later declaration of the same alias overwrites the earlier.
func ResolveAliases(tok []sql.Token) (AliasMap, error) {
	out := AliasMap{}

	for idx, t := range tok {
		if t.Kind != sql.TkFrom && t.Kind != sql.TkJoin {
			continue
		}

		if idx+1 >= len(tok) || tok[idx+1].Kind != sql.TkId {
			return nil, malformed(tok, idx, "expect a table name")
		}
		name := tok[idx+1].Lexeme.Text

		next := idx + 2
		if next < len(tok) && tok[next].Kind == sql.TkAs {
			next++
			if next >= len(tok) || tok[next].Kind != sql.TkId {
				return nil, malformed(tok, next-1, "expect an alias after AS")
			}
		}
		if next < len(tok) && tok[next].Kind == sql.TkId {
			out[tok[next].Lexeme.Text] = name
		}
	}

	return out, nil
}
