package sql

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Stringify the AST. Free functions, one line per statement; binary nodes are
// fully parenthesized so the tree shape is visible.

func doPrintExprConst(c *Const, buf *bytes.Buffer) {
	switch c.Ty {
	case ConstBool:
		buf.WriteString(strconv.FormatBool(c.Bool))
	case ConstStr:
		buf.WriteString("'")
		buf.WriteString(strings.ReplaceAll(c.String, "'", "''"))
		buf.WriteString("'")
	case ConstInt:
		buf.WriteString(strconv.FormatInt(c.Int, 10))
	case ConstReal:
		buf.WriteString(strconv.FormatFloat(c.Real, 'f', -1, 64))
	case ConstNull:
		buf.WriteString("null")
	default:
		panic("unreachable")
	}
}

func doPrintExprRef(r *Ref, buf *bytes.Buffer) {
	if r.Table != "" {
		buf.WriteString(r.Table)
		buf.WriteString(".")
	}
	buf.WriteString(r.Id)
}

func doPrintExprCall(c *Call, buf *bytes.Buffer) {
	buf.WriteString(c.Name)
	buf.WriteString("(")
	if c.Star {
		buf.WriteString("*")
	}
	if c.Distinct {
		buf.WriteString("distinct ")
	}
	for idx, a := range c.Args {
		if idx > 0 {
			buf.WriteString(", ")
		}
		doPrintExpr(a, buf)
	}
	buf.WriteString(")")
}

func doPrintExpr(expr Expr, buf *bytes.Buffer) {
	switch expr.Type() {
	case ExprConst:
		doPrintExprConst(expr.(*Const), buf)

	case ExprRef:
		doPrintExprRef(expr.(*Ref), buf)

	case ExprCall:
		doPrintExprCall(expr.(*Call), buf)

	case ExprUnary:
		u := expr.(*Unary)
		buf.WriteString(OpName(u.Op))
		if u.Op == TkNot {
			buf.WriteString(" ")
		}
		doPrintExpr(u.Operand, buf)

	case ExprBinary:
		b := expr.(*Binary)
		buf.WriteString("(")
		doPrintExpr(b.L, buf)
		buf.WriteString(" ")
		buf.WriteString(OpName(b.Op))
		buf.WriteString(" ")
		doPrintExpr(b.R, buf)
		buf.WriteString(")")

	default:
		panic("unreachable")
	}
}

func PrintExpr(expr Expr) string {
	buf := &bytes.Buffer{}
	doPrintExpr(expr, buf)
	return buf.String()
}

func printTableRef(t *TableRef, buf *bytes.Buffer) {
	buf.WriteString(t.Name)
	if t.Alias != "" {
		buf.WriteString(" as ")
		buf.WriteString(t.Alias)
	}
}

func printExprList(list []Expr, buf *bytes.Buffer) {
	for idx, e := range list {
		if idx > 0 {
			buf.WriteString(", ")
		}
		doPrintExpr(e, buf)
	}
}

func PrintSelect(s *Select) string {
	buf := &bytes.Buffer{}
	buf.WriteString("select ")
	if s.Distinct {
		buf.WriteString("distinct ")
	}

	for idx, c := range s.Projection {
		if idx > 0 {
			buf.WriteString(", ")
		}
		if c.Star {
			buf.WriteString("*")
			continue
		}
		doPrintExpr(c.Value, buf)
		if c.As != "" {
			buf.WriteString(" as ")
			buf.WriteString(c.As)
		}
	}

	buf.WriteString(" from ")
	printTableRef(s.From, buf)

	if s.Join != nil {
		buf.WriteString(" join ")
		printTableRef(s.Join.Table, buf)
		buf.WriteString(" on ")
		doPrintExpr(s.Join.On, buf)
	}
	if s.Where != nil {
		buf.WriteString(" where ")
		doPrintExpr(s.Where, buf)
	}
	if len(s.GroupBy) > 0 {
		buf.WriteString(" group by ")
		printExprList(s.GroupBy, buf)
	}
	if s.Having != nil {
		buf.WriteString(" having ")
		doPrintExpr(s.Having, buf)
	}
	if s.OrderBy != nil {
		buf.WriteString(" order by ")
		printExprList(s.OrderBy.Name, buf)
		if s.OrderBy.Order == OrderDesc {
			buf.WriteString(" desc")
		}
	}
	if s.Limit >= 0 {
		buf.WriteString(fmt.Sprintf(" limit %d", s.Limit))
	}
	return buf.String()
}
