// Package result holds the engine independent form of a query answer and
// compares answers across engines.
package result

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dianpeng/qbench/catalog"
)

// how many rows of a table a summary shows
const summaryRows = 4

// Result is what one engine answered for one experiment.
type Result interface {
	Summary() string
	Cells() [][]catalog.Value
}

// Count is the surviving row count of a join-filter.
type Count struct {
	N int64
}

// CountSum is the (count, total) pair of a date range count.
type CountSum struct {
	N   int64
	Sum catalog.Value
}

// Table is a small tabular answer, a group-by or whatever a SQL engine
// returned.
type Table struct {
	Columns []string
	Rows    [][]catalog.Value
}

func (self *Count) Summary() string {
	return fmt.Sprintf("%d", self.N)
}

func (self *Count) Cells() [][]catalog.Value {
	return [][]catalog.Value{{catalog.Int(self.N)}}
}

func (self *CountSum) Summary() string {
	return fmt.Sprintf("(%d, %s)", self.N, self.Sum)
}

func (self *CountSum) Cells() [][]catalog.Value {
	return [][]catalog.Value{{catalog.Int(self.N), self.Sum}}
}

func (self *Table) Summary() string {
	if len(self.Rows) == 1 && len(self.Columns) <= 2 {
		cells := make([]string, 0, 2)
		for _, v := range self.Rows[0] {
			cells = append(cells, v.String())
		}
		if len(cells) == 1 {
			return cells[0]
		}
		return "(" + strings.Join(cells, ", ") + ")"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d rows", len(self.Rows))
	for i, r := range self.Rows {
		if i == summaryRows {
			b.WriteString("; ...")
			break
		}
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		cells := make([]string, 0, len(r))
		for _, v := range r {
			cells = append(cells, v.String())
		}
		b.WriteString(strings.Join(cells, "|"))
	}
	return b.String()
}

func (self *Table) Cells() [][]catalog.Value {
	return self.Rows
}

// canonical makes cells of different engines comparable: dates and bools
// lose their type, SQLite has neither.
func canonical(v catalog.Value) catalog.Value {
	if v.Null {
		return catalog.Null(catalog.TypeString)
	}
	switch v.Type {
	case catalog.TypeDate:
		return catalog.String(v.String())
	case catalog.TypeBool:
		return catalog.Int(v.Int)
	default:
		return v
	}
}

func canonicalRows(r Result) [][]catalog.Value {
	src := r.Cells()
	out := make([][]catalog.Value, 0, len(src))
	for _, row := range src {
		c := make([]catalog.Value, 0, len(row))
		for _, v := range row {
			c = append(c, canonical(v))
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return catalog.LessRow(out[i], out[j])
	})
	return out
}

func sameCell(a, b catalog.Value, tol float64) bool {
	if a.Null || b.Null {
		return a.Null == b.Null
	}
	x, xok := a.AsFloat()
	y, yok := b.AsFloat()
	if xok && yok {
		scale := math.Max(1, math.Max(math.Abs(x), math.Abs(y)))
		return math.Abs(x-y) <= tol*scale
	}
	return a.String() == b.String()
}

// Equivalent reports whether two answers agree, ignoring row order and
// allowing a relative tolerance on numbers. A bare count matches a
// (count, total) pair on the count alone, the SQL engine answers
// SELECT COUNT(*) with one column while the frame engines always sum.
func Equivalent(a, b Result, tol float64) bool {
	x := canonicalRows(a)
	y := canonicalRows(b)
	if len(x) != len(y) {
		return false
	}

	if len(x) == 1 && len(x[0]) != len(y[0]) {
		if len(x[0]) == 1 && len(y[0]) == 2 {
			y = [][]catalog.Value{y[0][:1]}
		} else if len(x[0]) == 2 && len(y[0]) == 1 {
			x = [][]catalog.Value{x[0][:1]}
		}
	}

	for i := range x {
		if len(x[i]) != len(y[i]) {
			return false
		}
		for j := range x[i] {
			if !sameCell(x[i][j], y[i][j], tol) {
				return false
			}
		}
	}
	return true
}
