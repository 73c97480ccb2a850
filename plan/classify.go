package plan

import (
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/sql"
)

// SchemaSource gives the schema of a loaded table, *catalog.Catalog is one.
type SchemaSource interface {
	Schema(table string) (catalog.Schema, bool)
}

func indexOf(tok []sql.Token, kind int) int {
	for idx, t := range tok {
		if t.Kind == kind {
			return idx
		}
	}
	return -1
}

func countOf(tok []sql.Token, kind int) int {
	n := 0
	for _, t := range tok {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// hasCountStar looks for the token sequence count ( * )
func hasCountStar(tok []sql.Token) bool {
	for idx := 0; idx+3 < len(tok); idx++ {
		if tok[idx].Is("count") &&
			tok[idx+1].Kind == sql.TkLPar &&
			tok[idx+2].Kind == sql.TkMul &&
			tok[idx+3].Kind == sql.TkRPar {
			return true
		}
	}
	return false
}

func lookupSchema(schemas SchemaSource, table string) (catalog.Schema, bool) {
	if schemas == nil {
		return nil, false
	}
	return schemas.Schema(table)
}

// fromTable is the table named right after FROM, resolved through aliases.
func fromTable(tok []sql.Token, aliases AliasMap) (string, bool) {
	idx := indexOf(tok, sql.TkFrom)
	if idx < 0 || idx+1 >= len(tok) || tok[idx+1].Kind != sql.TkId {
		return "", false
	}
	return aliases.Resolve(tok[idx+1].Lexeme.Text), true
}

// Classify picks exactly one shape for a query. The token stream decides the
// kind of shape, stmt, when not nil, refines its parameters. The returned
// error is either ErrMalformedQuery or, for a count(*) over a table nobody
// loaded, catalog.ErrTableNotFound. A query that matches no shape is not an
// error, it is classified as Unsupported.
func Classify(
	tok []sql.Token,
	aliases AliasMap,
	stmt *sql.Select,
	schemas SchemaSource,
) (Shape, error) {
	// 1) join
	if j := indexOf(tok, sql.TkJoin); j >= 0 {
		if countOf(tok, sql.TkOuter) > 0 {
			return &Unsupported{Reason: "outer join"}, nil
		}
		if countOf(tok, sql.TkJoin) > 1 {
			return &Unsupported{Reason: "more than one join"}, nil
		}
		if j == 0 || tok[j-1].Kind != sql.TkId {
			return nil, malformed(tok, j, "expect a table before JOIN")
		}
		if j+1 >= len(tok) || tok[j+1].Kind != sql.TkId {
			return nil, malformed(tok, j, "expect a table after JOIN")
		}

		shape := newEquiJoinFilter(
			aliases.Resolve(tok[j-1].Lexeme.Text),
			aliases.Resolve(tok[j+1].Lexeme.Text),
		)
		if stmt == nil {
			shape.Rows = !hasCountStar(tok)
			return shape, nil
		}
		return refineJoin(shape, stmt, schemas), nil
	}

	table, hasFrom := fromTable(tok, aliases)

	// 2) group by
	if indexOf(tok, sql.TkGroupBy) >= 0 {
		if !hasFrom {
			return &Unsupported{Reason: "group by without a table"}, nil
		}
		shape := newGroupAggregate(table)
		if stmt == nil {
			return shape, nil
		}
		return refineGroup(shape, stmt), nil
	}

	// 3) count(*) over a date range
	if hasCountStar(tok) && hasFrom {
		schema, ok := lookupSchema(schemas, table)
		if !ok {
			return nil, errors.Wrapf(catalog.ErrTableNotFound, "%s", table)
		}

		var shape Shape = newCountDateRange(table)
		if stmt != nil {
			shape = refineCount(shape.(*CountDateRange), stmt)
		}
		c, ok := shape.(*CountDateRange)
		if !ok {
			return shape, nil
		}
		if !schema.Has(c.DateCol, catalog.TypeDate) {
			return &Unsupported{Reason: "table " + table + " has no date column " + c.DateCol}, nil
		}
		// a bare count(*) still reports the total price whenever there is one
		switch {
		case c.SumCol == "" && schema.Index(defSumCol) >= 0:
			c.SumCol = defSumCol
		case c.SumCol == defSumCol && stmt == nil && schema.Index(defSumCol) < 0:
			c.SumCol = ""
		}
		return c, nil
	}

	return &Unsupported{Reason: "no known shape"}, nil
}
