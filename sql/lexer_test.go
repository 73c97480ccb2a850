package sql

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestComment(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer(`
-- last line
#  last line
`)
		assert.True(l.Next() == TkEof)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`
# abc
/* abcd */    id -- def
# xyz
`)
		assert.True(l.Next() == TkId)
		assert.Equal("id", l.Lexeme.Text)
		assert.True(l.Next() == TkEof)
	}

	{
		l := newLexer(`/* never closed`)
		assert.True(l.Next() == TkError)
	}
}

func TestOp(t *testing.T) {
	assert := assert.New(t)
	l := newLexer("+-*/%.(),; <> != <= >= = == < > && ||")
	for _, tk := range []int{
		TkAdd, TkSub, TkMul, TkDiv, TkMod, TkDot, TkLPar, TkRPar, TkComma,
		TkSemicolon, TkNe, TkNe, TkLe, TkGe, TkEq, TkEq, TkLt, TkGt, TkAnd, TkOr,
	} {
		assert.Equal(tk, l.Next())
	}
	assert.True(l.Next() == TkEof)
}

func TestKeyword(t *testing.T) {
	assert := assert.New(t)
	{
		l := newLexer("SELECT Count(*) FROM Orders o INNER  JOIN lineitem l ON")
		assert.Equal(TkSelect, l.Next())
		assert.Equal(TkId, l.Next())
		assert.Equal("count", l.Lexeme.Text)
		assert.Equal(TkLPar, l.Next())
		assert.Equal(TkMul, l.Next())
		assert.Equal(TkRPar, l.Next())
		assert.Equal(TkFrom, l.Next())
		assert.Equal(TkId, l.Next())
		assert.Equal("orders", l.Lexeme.Text)
		assert.Equal(TkId, l.Next())
		assert.Equal("o", l.Lexeme.Text)
		assert.Equal(TkJoin, l.Next())
		assert.Equal(TkId, l.Next())
		assert.Equal(TkId, l.Next())
		assert.Equal(TkOn, l.Next())
		assert.Equal(TkEof, l.Next())
	}
	{
		l := newLexer("group \n by Order By groupby left join Between and Or not In")
		assert.Equal(TkGroupBy, l.Next())
		assert.Equal(TkOrderBy, l.Next())
		assert.Equal(TkId, l.Next())
		assert.Equal("groupby", l.Lexeme.Text)
		assert.Equal(TkOuter, l.Next())
		assert.Equal(TkJoin, l.Next())
		assert.Equal(TkBetween, l.Next())
		assert.Equal(TkAnd, l.Next())
		assert.Equal(TkOr, l.Next())
		assert.Equal(TkNot, l.Next())
		assert.Equal(TkIn, l.Next())
	}
	{
		// keyword prefixes stay identifiers
		l := newLexer("inner_t ordering fromage o_orderdate")
		for _, w := range []string{"inner_t", "ordering", "fromage", "o_orderdate"} {
			assert.Equal(TkId, l.Next())
			assert.Equal(w, l.Lexeme.Text)
		}
	}
	assert.True(IsKeyword(TkWhere))
	assert.False(IsKeyword(TkId))
}

func TestNum(t *testing.T) {
	assert := assert.New(t)
	l := newLexer("30 2.5 1e3 .5 7E-1")

	assert.Equal(TkInt, l.Next())
	assert.Equal(int64(30), l.Lexeme.Int)
	assert.Equal(TkReal, l.Next())
	assert.Equal(2.5, l.Lexeme.Real)
	assert.Equal(TkReal, l.Next())
	assert.Equal(1000.0, l.Lexeme.Real)
	assert.Equal(TkReal, l.Next())
	assert.Equal(0.5, l.Lexeme.Real)
	assert.Equal(TkReal, l.Next())
	assert.InDelta(0.7, l.Lexeme.Real, 1e-9)
	assert.Equal(TkEof, l.Next())
}

func TestStr(t *testing.T) {
	assert := assert.New(t)
	l := newLexer(`'it''s' 'a\tb' "O_OrderKey" '1995-01-01'`)

	assert.Equal(TkStr, l.Next())
	assert.Equal("it's", l.Lexeme.Text)
	assert.Equal(TkStr, l.Next())
	assert.Equal("a\tb", l.Lexeme.Text)
	assert.Equal(TkId, l.Next())
	assert.Equal("o_orderkey", l.Lexeme.Text)
	assert.Equal(TkStr, l.Next())
	assert.Equal("1995-01-01", l.Lexeme.Text)
	assert.Equal(TkEof, l.Next())

	assert.Equal(TkError, newLexer(`'abc`).Next())
	assert.Equal(TkError, newLexer(`'\q'`).Next())
}

func TestTokenize(t *testing.T) {
	assert := assert.New(t)

	toks, err := Tokenize("from orders o")
	assert.Nil(err)
	assert.Len(toks, 3)
	assert.Equal(TkFrom, toks[0].Kind)
	assert.True(toks[1].Is("orders"))
	assert.Equal(5, toks[1].Start)
	assert.Equal(11, toks[1].End)
	assert.True(toks[2].Is("o"))
	assert.False(toks[0].Is("from"))

	toks, err = Tokenize("   ")
	assert.Nil(err)
	assert.Len(toks, 0)

	_, err = Tokenize("a ! b")
	assert.NotNil(err)
	assert.Contains(err.Error(), "around position(1: 3)")

	// errors carry a stack trace
	_, traced := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(traced)

	_, err = Parse("select a from")
	_, traced = err.(interface{ StackTrace() errors.StackTrace })
	assert.True(traced)
}
