package plan

import (
	"fmt"

	"github.com/dianpeng/qbench/catalog"
)

const (
	AggSum = iota
	AggMin
	AggMax
	AggAvg
	AggCount
)

func aggTypeToName(i int) string {
	switch i {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	default:
		return "unknown"
	}
}

func aggFromName(n string) (int, bool) {
	switch n {
	case "min":
		return AggMin, true
	case "max":
		return AggMax, true
	case "avg":
		return AggAvg, true
	case "sum":
		return AggSum, true
	case "count":
		return AggCount, true
	default:
		return -1, false
	}
}

// Agg is one aggregation of a GroupAggregate. An empty Column is count(*).
type Agg struct {
	Func   int
	Column string
}

func (self Agg) Star() bool {
	return self.Column == ""
}

func (self Agg) Name() string {
	if self.Star() {
		return "count(*)"
	}
	return fmt.Sprintf("%s(%s)", aggTypeToName(self.Func), self.Column)
}

// Bind checks the aggregated column against the schema. count(*) binds to
// index -1.
func (self Agg) Bind(table string, schema catalog.Schema) (int, error) {
	if self.Star() {
		return -1, nil
	}
	switch self.Func {
	case AggSum, AggAvg:
		return schema.Require(table, self.Column, catalog.TypeInt, catalog.TypeFloat)
	default:
		return schema.Require(table, self.Column)
	}
}

// Accumulator folds the values of one group for one aggregation, following
// SQL: NULL inputs are skipped, and an aggregation other than count over no
// input is NULL. A sum over an integer column stays an integer.
type Accumulator struct {
	agg   Agg
	ty    int
	count int64
	isum  int64
	fsum  float64
	best  catalog.Value
	has   bool
}

// NewAccumulator creates the state for one group; ty is the type of the
// aggregated column.
func NewAccumulator(agg Agg, ty int) *Accumulator {
	return &Accumulator{
		agg: agg,
		ty:  ty,
	}
}

func (self *Accumulator) Add(v catalog.Value) {
	if self.agg.Star() {
		self.count++
		return
	}
	if v.Null {
		return
	}
	self.count++

	switch self.agg.Func {
	case AggSum, AggAvg:
		if v.Type == catalog.TypeInt {
			self.isum += v.Int
		}
		if f, ok := v.AsFloat(); ok {
			self.fsum += f
		}

	case AggMin:
		if !self.has || catalog.Compare(v, self.best) < 0 {
			self.best = v
		}
		self.has = true

	case AggMax:
		if !self.has || catalog.Compare(v, self.best) > 0 {
			self.best = v
		}
		self.has = true
	}
}

func (self *Accumulator) Value() catalog.Value {
	switch self.agg.Func {
	case AggCount:
		return catalog.Int(self.count)

	case AggSum:
		if self.count == 0 {
			return catalog.Null(self.ty)
		}
		if self.ty == catalog.TypeInt {
			return catalog.Int(self.isum)
		}
		return catalog.Float(self.fsum)

	case AggAvg:
		if self.count == 0 {
			return catalog.Null(catalog.TypeFloat)
		}
		return catalog.Float(self.fsum / float64(self.count))

	default:
		if !self.has {
			return catalog.Null(self.ty)
		}
		return self.best
	}
}

// ResultType is the type an aggregation yields over a column of type in.
func (self Agg) ResultType(in int) int {
	switch self.Func {
	case AggCount:
		return catalog.TypeInt
	case AggAvg:
		return catalog.TypeFloat
	default:
		return in
	}
}

// BoundAgg is an aggregation bound to a column index of its input, -1 for
// count(*).
type BoundAgg struct {
	Agg
	Col int
}
