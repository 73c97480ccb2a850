package sql

// Parser of the query surface syntax. It is deliberately small, the grammar
// only covers what the benchmark experiments are written in:
//
// select :=
//     SELECT DISTINCT? projection
//     FROM table-ref
//     join?
//     (WHERE expr)?
//     (GROUP BY expr-list)?
//     (HAVING expr)?
//     (ORDER BY expr-list (ASC|DESC)?)?
//     (LIMIT INT)?
//     ';'?
//
// projection := proj (',' proj)*
// proj := '*' | expr (AS? ID)?
// table-ref := ID (AS? ID)?
// join := INNER? JOIN table-ref ON expr
//
// expr := binary | unary | primary
// binary := expr binary-op expr           (precedence climbing)
// binary-op := OR | AND | BETWEEN | IN | NOT BETWEEN | NOT IN |
//              = | != | < | <= | > | >= | + | - | * | / | %
// unary := (NOT|'-'|'+') expr
// primary := const | col-name | call | '(' expr ')' | DATE STR
// col-name := ID ('.' ID)?
// call := ID '(' (DISTINCT? expr-list | '*')? ')'
// const := INT | REAL | STR | TRUE | FALSE | NULL

import (
	"fmt"

	"github.com/pkg/errors"
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is a shortcut of NewParser(xx).Parse()
func Parse(xx string) (*Select, error) {
	return newParser(xx).Parse()
}

func (self *Parser) posStart() int {
	return self.L.Start
}

func (self *Parser) posEnd() int {
	return self.L.Start
}

func (self *Parser) snippet(start, end int) string {
	if end > len(self.L.Source) {
		end = len(self.L.Source)
	}
	if start >= end {
		return ""
	}
	return self.L.Source[start:end]
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return errors.New(self.L.Lexeme.Text)
	}
	return errors.Errorf("%s: %s", self.L.dinfo(), msg)
}

func (self *Parser) expect(tk int, what string) error {
	if self.L.Token == tk {
		self.L.Next()
		return nil
	}
	return self.err(fmt.Sprintf("expect %s", what))
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	end := self.posEnd()
	if self.L.Token == TkEof {
		end = len(self.L.Source)
	}
	return CodeInfo{
		Start:   start,
		End:     end,
		Snippet: self.snippet(start, end),
	}
}

func (self *Parser) Parse() (*Select, error) {
	self.L.Next()
	if self.L.Token != TkSelect {
		return nil, self.err("unknown statement, expect *select*")
	}

	s, err := self.parseSelect()
	if err != nil {
		return nil, err
	}

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after parser thinks the statement is finished")
	}
	return s, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	start := self.posStart()
	self.L.Next() // skip the *select* keyword

	s := &Select{
		Limit: -1,
	}

	if self.L.Token == TkDistinct {
		s.Distinct = true
		self.L.Next()
	}

	if n, err := self.parseProjection(); err != nil {
		return nil, err
	} else {
		s.Projection = n
	}

	if self.L.Token != TkFrom {
		return nil, self.err("from clause is not specified")
	}
	self.L.Next()

	if n, err := self.parseTableRef(); err != nil {
		return nil, err
	} else {
		s.From = n
	}

	if self.L.Token == TkOuter {
		return nil, self.err("only inner join is supported")
	}
	if self.L.Token == TkJoin {
		if n, err := self.parseJoin(); err != nil {
			return nil, err
		} else {
			s.Join = n
		}
	}
	if self.L.Token == TkJoin || self.L.Token == TkOuter {
		return nil, self.err("at most one join is supported")
	}

	if self.L.Token == TkWhere {
		self.L.Next()
		if n, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			s.Where = n
		}
	}

	if self.L.Token == TkGroupBy {
		self.L.Next()
		if n, err := self.parseExprList(); err != nil {
			return nil, err
		} else {
			s.GroupBy = n
		}
	}

	if self.L.Token == TkHaving {
		self.L.Next()
		if n, err := self.parseExpr(); err != nil {
			return nil, err
		} else {
			s.Having = n
		}
	}

	if self.L.Token == TkOrderBy {
		if n, err := self.parseOrderBy(); err != nil {
			return nil, err
		} else {
			s.OrderBy = n
		}
	}

	if self.L.Token == TkLimit {
		if self.L.Next() != TkInt {
			return nil, self.err("expect a integer after limit")
		}
		s.Limit = self.L.Lexeme.Int
		self.L.Next()
	}

	s.CodeInfo = self.currentCodeInfo(start)
	return s, nil
}

// element (',' element)*, never empty
func (self *Parser) parseSqlList(
	visitor func(int) error,
) error {
	if err := visitor(0); err != nil {
		return err
	}

	for idx := 1; self.L.Token == TkComma; idx++ {
		self.L.Next()
		if err := visitor(idx); err != nil {
			return err
		}
	}
	return nil
}

func (self *Parser) parseExprList() ([]Expr, error) {
	out := []Expr{}
	if err := self.parseSqlList(
		func(_ int) error {
			if e, err := self.parseExpr(); err != nil {
				return err
			} else {
				out = append(out, e)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}
	return out, nil
}

func (self *Parser) parseProjection() ([]*Col, error) {
	out := []*Col{}

	if err := self.parseSqlList(
		func(_ int) error {
			start := self.posStart()

			if self.L.Token == TkMul {
				self.L.Next()
				out = append(out, &Col{
					CodeInfo: self.currentCodeInfo(start),
					Star:     true,
				})
				return nil
			}

			col := &Col{}
			if e, err := self.parseExpr(); err != nil {
				return err
			} else {
				col.Value = e
			}

			if self.L.Token == TkAs {
				if self.L.Next() != TkId {
					return self.err("expect an alias identifier after *as*")
				}
				col.As = self.L.Lexeme.Text
				self.L.Next()
			} else if self.L.Token == TkId {
				col.As = self.L.Lexeme.Text
				self.L.Next()
			}

			col.CodeInfo = self.currentCodeInfo(start)
			out = append(out, col)
			return nil
		},
	); err != nil {
		return nil, err
	}

	return out, nil
}

func (self *Parser) parseTableRef() (*TableRef, error) {
	start := self.posStart()

	if self.L.Token != TkId {
		return nil, self.err("expect a table name")
	}
	t := &TableRef{
		Name: self.L.Lexeme.Text,
	}
	self.L.Next()

	switch self.L.Token {
	case TkAs:
		if self.L.Next() != TkId {
			return nil, self.err("expect a identifier after *as*")
		}
		t.Alias = self.L.Lexeme.Text
		self.L.Next()
	case TkId:
		t.Alias = self.L.Lexeme.Text
		self.L.Next()
	}

	t.CodeInfo = self.currentCodeInfo(start)
	return t, nil
}

func (self *Parser) parseJoin() (*Join, error) {
	start := self.posStart()
	self.L.Next() // eat the *join*

	j := &Join{}
	if n, err := self.parseTableRef(); err != nil {
		return nil, err
	} else {
		j.Table = n
	}

	if err := self.expect(TkOn, "*on* after joined table"); err != nil {
		return nil, err
	}

	if n, err := self.parseExpr(); err != nil {
		return nil, err
	} else {
		j.On = n
	}

	j.CodeInfo = self.currentCodeInfo(start)
	return j, nil
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	start := self.posStart()
	self.L.Next() // eat order by

	oB := &OrderBy{
		Order: OrderAsc,
	}
	if n, err := self.parseExprList(); err != nil {
		return nil, err
	} else {
		oB.Name = n
	}

	switch self.L.Token {
	case TkAsc:
		self.L.Next()
	case TkDesc:
		oB.Order = OrderDesc
		self.L.Next()
	}

	oB.CodeInfo = self.currentCodeInfo(start)
	return oB, nil
}

// ----------------------------------------------------------------------------
// Expression Parsing
// ----------------------------------------------------------------------------

func (self *Parser) parseExpr() (Expr, error) {
	return self.doParseBin(0)
}

const maxOpPrec = 7
const invalidOpPrec = -1

func (self *Parser) binPrec(tk int) int {
	switch tk {
	case TkOr:
		return 0
	case TkAnd:
		return 1
	case TkIn, TkBetween, TkNot:
		return 2
	case TkEq, TkNe:
		return 3
	case TkLt, TkLe, TkGt, TkGe:
		return 4
	case TkAdd, TkSub:
		return 5
	case TkMul, TkDiv, TkMod:
		return 6
	default:
		return invalidOpPrec
	}
}

// precedence climbing
func (self *Parser) doParseBin(prec int) (Expr, error) {
	start := self.posStart()

	l, err := self.parseUnary()
	if err != nil {
		return nil, err
	}
	if prec == maxOpPrec {
		return l, nil
	}
	return self.doParseBinRest(l, prec, start)
}

func (self *Parser) doParseBinRest(
	lhs Expr,
	prec int,
	start int,
) (Expr, error) {
	for {
		tk := self.L.Token
		nextPrec := self.binPrec(tk)
		if nextPrec == invalidOpPrec || nextPrec < prec {
			break
		}

		ntk := self.L.Next() // eat the operator token

		if tk == TkNot {
			switch ntk {
			case TkIn:
				tk = tkNotIn
			case TkBetween:
				tk = tkNotBetween
			default:
				return nil, self.err("expect IN or BETWEEN after NOT")
			}
			self.L.Next()
		}

		var newNode Expr

		switch tk {
		case TkBetween, tkNotBetween:
			lower, err := self.doParseBin(nextPrec + 1)
			if err != nil {
				return nil, err
			}
			if err := self.expect(TkAnd, "AND for BETWEEN operator"); err != nil {
				return nil, err
			}
			upper, err := self.doParseBin(nextPrec + 1)
			if err != nil {
				return nil, err
			}

			info := self.currentCodeInfo(start)
			between := &Binary{
				Op:       TkAnd,
				L:        &Binary{Op: TkGe, L: lhs, R: lower, CodeInfo: info},
				R:        &Binary{Op: TkLe, L: lhs, R: upper, CodeInfo: info},
				CodeInfo: info,
			}
			if tk == TkBetween {
				newNode = between
			} else {
				newNode = &Unary{Op: TkNot, Operand: between, CodeInfo: info}
			}

		case TkIn, tkNotIn:
			set, err := self.parseInSet()
			if err != nil {
				return nil, err
			}

			info := self.currentCodeInfo(start)
			var out Expr
			for _, v := range set {
				eq := &Binary{Op: TkEq, L: lhs, R: v, CodeInfo: info}
				if out == nil {
					out = eq
				} else {
					out = &Binary{Op: TkOr, L: out, R: eq, CodeInfo: info}
				}
			}
			if tk == tkNotIn {
				newNode = &Unary{Op: TkNot, Operand: out, CodeInfo: info}
			} else {
				newNode = out
			}

		default:
			rhs, err := self.doParseBin(nextPrec + 1)
			if err != nil {
				return nil, err
			}
			newNode = &Binary{
				Op:       tk,
				L:        lhs,
				R:        rhs,
				CodeInfo: self.currentCodeInfo(start),
			}
		}

		lhs = newNode
	}

	return lhs, nil
}

func (self *Parser) parseInSet() ([]Expr, error) {
	if err := self.expect(TkLPar, "'(' for IN operator"); err != nil {
		return nil, err
	}
	out, err := self.parseExprList()
	if err != nil {
		return nil, err
	}
	if err := self.expect(TkRPar, "')' to close IN operator's set"); err != nil {
		return nil, err
	}
	return out, nil
}

func (self *Parser) parseUnary() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkNot, TkSub, TkAdd:
		op := self.L.Token
		self.L.Next()
		operand, err := self.parseUnary()
		if err != nil {
			return nil, err
		}
		if op == TkAdd {
			return operand, nil
		}
		// fold negative literals so that "x > -1" keeps a constant operand
		if c, ok := operand.(*Const); ok && op == TkSub {
			switch c.Ty {
			case ConstInt:
				c.Int = -c.Int
				c.CodeInfo = self.currentCodeInfo(start)
				return c, nil
			case ConstReal:
				c.Real = -c.Real
				c.CodeInfo = self.currentCodeInfo(start)
				return c, nil
			}
		}
		return &Unary{
			Op:       op,
			Operand:  operand,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	default:
		return self.parsePrimary()
	}
}

func (self *Parser) parsePrimary() (Expr, error) {
	start := self.posStart()

	switch self.L.Token {
	case TkTrue, TkFalse, TkNull, TkStr, TkInt, TkReal:
		return self.parseConst(), nil

	case TkLPar:
		self.L.Next()
		e, err := self.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := self.expect(TkRPar, "')' to close sub expression"); err != nil {
			return nil, err
		}
		return e, nil

	case TkId:
		id := self.L.Lexeme.Text
		self.L.Next()

		switch self.L.Token {
		case TkDot:
			if self.L.Next() != TkId {
				return nil, self.err("expect a column name after '.'")
			}
			col := self.L.Lexeme.Text
			self.L.Next()
			return &Ref{
				Table:    id,
				Id:       col,
				CodeInfo: self.currentCodeInfo(start),
			}, nil

		case TkLPar:
			return self.parseCall(id, start)

		case TkStr:
			// typed literal, ie DATE '1995-01-01', kept as its text
			if id == "date" || id == "timestamp" {
				c := self.parseConst()
				c.CodeInfo = self.currentCodeInfo(start)
				return c, nil
			}
		}

		return &Ref{
			Id:       id,
			CodeInfo: self.currentCodeInfo(start),
		}, nil

	default:
		return nil, self.err("unexpected token for expression")
	}
}

func (self *Parser) parseCall(name string, start int) (Expr, error) {
	call := &Call{
		Name: name,
	}

	switch self.L.Next() {
	case TkMul:
		call.Star = true
		self.L.Next()
	case TkRPar:
	default:
		if self.L.Token == TkDistinct {
			call.Distinct = true
			self.L.Next()
		}
		if args, err := self.parseExprList(); err != nil {
			return nil, err
		} else {
			call.Args = args
		}
	}

	if err := self.expect(TkRPar, "')' to close call arguments"); err != nil {
		return nil, err
	}
	call.CodeInfo = self.currentCodeInfo(start)
	return call, nil
}

func (self *Parser) parseConst() *Const {
	start := self.posStart()
	c := &Const{}

	switch self.L.Token {
	case TkTrue, TkFalse:
		c.Ty = ConstBool
		c.Bool = self.L.Token == TkTrue
	case TkNull:
		c.Ty = ConstNull
	case TkStr:
		c.Ty = ConstStr
		c.String = self.L.Lexeme.Text
	case TkInt:
		c.Ty = ConstInt
		c.Int = self.L.Lexeme.Int
	case TkReal:
		c.Ty = ConstReal
		c.Real = self.L.Lexeme.Real
	default:
		panic("unreachable")
	}

	self.L.Next()
	c.CodeInfo = self.currentCodeInfo(start)
	return c
}
