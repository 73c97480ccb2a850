package plan

import (
	"fmt"
	"strings"

	"github.com/dianpeng/qbench/catalog"
)

const (
	ShapeUnsupported = iota
	ShapeEquiJoinFilter
	ShapeGroupAggregate
	ShapeCountDateRange
)

func ShapeName(kind int) string {
	switch kind {
	case ShapeEquiJoinFilter:
		return "equi-join-filter"
	case ShapeGroupAggregate:
		return "group-aggregate"
	case ShapeCountDateRange:
		return "count-date-range"
	default:
		return "unsupported"
	}
}

// Shape is the classified structural category of a query. A shape is
// immutable once classified.
type Shape interface {
	Kind() int
	Tables() []string
	Dump() string
}

// EquiJoinFilter counts the rows of left inner join right on
// left.LeftKey = right.RightKey that satisfy every filter.
type EquiJoinFilter struct {
	LeftTable  string
	RightTable string
	LeftKey    string
	RightKey   string
	Filters    []Predicate
	Rows       bool // the query lists the rows instead of count(*)
}

// Output column of a GroupAggregate, either a group key or an aggregation,
// indexing GroupCols or Aggs.
type Output struct {
	IsAgg bool
	Index int
}

// GroupAggregate partitions the rows satisfying every filter by GroupCols and
// computes Aggs per partition.
type GroupAggregate struct {
	Table     string
	GroupCols []string
	Aggs      []Agg
	Filters   []Predicate
	Output    []Output
}

// CountDateRange counts the rows whose DateCol falls in [Lo, Hi], both bounds
// inclusive, and sums SumCol over them. An empty SumCol makes it a plain
// count.
type CountDateRange struct {
	Table   string
	DateCol string
	Lo      int32
	Hi      int32
	SumCol  string
	Filters []Predicate
}

type Unsupported struct {
	Reason string
}

func (self *EquiJoinFilter) Kind() int        { return ShapeEquiJoinFilter }
func (self *EquiJoinFilter) Tables() []string { return []string{self.LeftTable, self.RightTable} }

func (self *GroupAggregate) Kind() int        { return ShapeGroupAggregate }
func (self *GroupAggregate) Tables() []string { return []string{self.Table} }

func (self *CountDateRange) Kind() int        { return ShapeCountDateRange }
func (self *CountDateRange) Tables() []string { return []string{self.Table} }

func (self *Unsupported) Kind() int        { return ShapeUnsupported }
func (self *Unsupported) Tables() []string { return nil }

func dumpFilters(f []Predicate) string {
	if len(f) == 0 {
		return "[]"
	}
	parts := make([]string, 0, len(f))
	for _, p := range f {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " and "))
}

func (self *EquiJoinFilter) Dump() string {
	out := "count"
	if self.Rows {
		out = "rows"
	}
	return fmt.Sprintf(
		"equi-join-filter(%s.%s = %s.%s, filter=%s, answer=%s)",
		self.LeftTable,
		self.LeftKey,
		self.RightTable,
		self.RightKey,
		dumpFilters(self.Filters),
		out,
	)
}

func (self *GroupAggregate) Dump() string {
	aggs := make([]string, 0, len(self.Aggs))
	for _, a := range self.Aggs {
		aggs = append(aggs, a.Name())
	}
	return fmt.Sprintf(
		"group-aggregate(%s, by=[%s], agg=[%s], filter=%s)",
		self.Table,
		strings.Join(self.GroupCols, ", "),
		strings.Join(aggs, ", "),
		dumpFilters(self.Filters),
	)
}

func (self *CountDateRange) Dump() string {
	return fmt.Sprintf(
		"count-date-range(%s, %s in [%s, %s], sum=%s, filter=%s)",
		self.Table,
		self.DateCol,
		catalog.FormatDate(self.Lo),
		catalog.FormatDate(self.Hi),
		self.SumCol,
		dumpFilters(self.Filters),
	)
}

func (self *Unsupported) Dump() string {
	if self.Reason == "" {
		return "unsupported"
	}
	return fmt.Sprintf("unsupported(%s)", self.Reason)
}

// defaultOutput lists the group keys followed by the aggregations.
func (self *GroupAggregate) defaultOutput() []Output {
	out := make([]Output, 0, len(self.GroupCols)+len(self.Aggs))
	for i := range self.GroupCols {
		out = append(out, Output{Index: i})
	}
	for i := range self.Aggs {
		out = append(out, Output{IsAgg: true, Index: i})
	}
	return out
}

func (self *GroupAggregate) outputs() []Output {
	if len(self.Output) == 0 {
		return self.defaultOutput()
	}
	return self.Output
}

// ColumnNames are the result column names, in output order.
func (self *GroupAggregate) ColumnNames() []string {
	out := []string{}
	for _, o := range self.outputs() {
		if o.IsAgg {
			out = append(out, self.Aggs[o.Index].Name())
		} else {
			out = append(out, self.GroupCols[o.Index])
		}
	}
	return out
}

// Project arranges the keys and aggregation values of one group in output
// order.
func (self *GroupAggregate) Project(keys, aggs []catalog.Value) []catalog.Value {
	out := make([]catalog.Value, 0, len(keys)+len(aggs))
	for _, o := range self.outputs() {
		if o.IsAgg {
			out = append(out, aggs[o.Index])
		} else {
			out = append(out, keys[o.Index])
		}
	}
	return out
}

// The parameters of the canonical benchmark queries.
const (
	defJoinLeftKey  = "o_orderkey"
	defJoinRightKey = "l_orderkey"
	defFilterCol    = "l_quantity"
	defFilterVal    = 30
	defDateCol      = "o_orderdate"
	defDateLo       = "1995-01-01"
	defDateHi       = "1995-12-31"
	defSumCol       = "o_totalprice"
)

func newEquiJoinFilter(left, right string) *EquiJoinFilter {
	return &EquiJoinFilter{
		LeftTable:  left,
		RightTable: right,
		LeftKey:    defJoinLeftKey,
		RightKey:   defJoinRightKey,
		Filters: []Predicate{
			{
				Column: defFilterCol,
				Op:     OpGt,
				Value:  defFilterVal,
			},
		},
	}
}

func newGroupAggregate(table string) *GroupAggregate {
	return &GroupAggregate{
		Table:     table,
		GroupCols: []string{"l_returnflag", "l_linestatus"},
		Aggs: []Agg{
			{Func: AggSum, Column: "l_quantity"},
			{Func: AggSum, Column: "l_extendedprice"},
		},
	}
}

func mustDate(s string) int32 {
	d, err := catalog.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newCountDateRange(table string) *CountDateRange {
	return &CountDateRange{
		Table:   table,
		DateCol: defDateCol,
		Lo:      mustDate(defDateLo),
		Hi:      mustDate(defDateHi),
		SumCol:  defSumCol,
	}
}
