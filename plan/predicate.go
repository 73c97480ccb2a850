package plan

import (
	"fmt"
	"strconv"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/sql"
)

const (
	OpLt = iota
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

func opName(op int) string {
	switch op {
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpEq:
		return "="
	default:
		return "!="
	}
}

func opFromToken(tk int) (int, bool) {
	switch tk {
	case sql.TkLt:
		return OpLt, true
	case sql.TkLe:
		return OpLe, true
	case sql.TkGt:
		return OpGt, true
	case sql.TkGe:
		return OpGe, true
	case sql.TkEq:
		return OpEq, true
	case sql.TkNe:
		return OpNe, true
	default:
		return -1, false
	}
}

// Predicate compares one numeric or date column against a constant. Dates
// compare as day numbers.
type Predicate struct {
	Table  string // resolved table name, empty when the column is unqualified
	Column string
	Op     int
	Value  float64
	Date   bool
}

func (self Predicate) String() string {
	v := strconv.FormatFloat(self.Value, 'f', -1, 64)
	if self.Date {
		v = fmt.Sprintf("'%s'", catalog.FormatDate(int32(self.Value)))
	}
	col := self.Column
	if self.Table != "" {
		col = self.Table + "." + col
	}
	return fmt.Sprintf("%s %s %s", col, opName(self.Op), v)
}

// Compare evaluates the predicate against a numeric left hand side.
func (self Predicate) Compare(x float64) bool {
	switch self.Op {
	case OpLt:
		return x < self.Value
	case OpLe:
		return x <= self.Value
	case OpGt:
		return x > self.Value
	case OpGe:
		return x >= self.Value
	case OpEq:
		return x == self.Value
	default:
		return x != self.Value
	}
}

// Eval evaluates the predicate against one cell. NULL never passes.
func (self Predicate) Eval(v catalog.Value) bool {
	if v.Null {
		return false
	}
	switch v.Type {
	case catalog.TypeDate:
		return self.Compare(float64(v.Int))
	default:
		if x, ok := v.AsFloat(); ok {
			return self.Compare(x)
		}
		return false
	}
}

// Bind checks the predicate column against the schema and returns its index.
func (self Predicate) Bind(table string, schema catalog.Schema) (int, error) {
	if self.Date {
		return schema.Require(table, self.Column, catalog.TypeDate)
	}
	return schema.Require(table, self.Column, catalog.TypeInt, catalog.TypeFloat)
}

// BoundPredicate is a predicate bound to a column index of its input.
type BoundPredicate struct {
	Predicate
	Col int
}
