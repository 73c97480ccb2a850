package exec

import (
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
)

// The bound forms of the shapes. Column indexes refer to the input of the
// operator that uses them; for a join that is the left columns followed by
// the right ones.

type joinPlan struct {
	lk, rk  int
	filters []plan.BoundPredicate
}

type groupPlan struct {
	filters []plan.BoundPredicate
	keys    []int
	aggs    []plan.BoundAgg
}

type countPlan struct {
	filters []plan.BoundPredicate
	aggs    []plan.BoundAgg // count(*) and maybe sum
}

func bindFilters(table string, schema catalog.Schema, preds []plan.Predicate) ([]plan.BoundPredicate, error) {
	out := make([]plan.BoundPredicate, 0, len(preds))
	for _, p := range preds {
		if p.Table != "" && p.Table != table {
			return nil, errors.Wrapf(catalog.ErrSchemaMismatch, "predicate %s does not refer to %s", p, table)
		}
		idx, err := p.Bind(table, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, plan.BoundPredicate{Predicate: p, Col: idx})
	}
	return out, nil
}

func bindJoin(s *plan.EquiJoinFilter, left, right catalog.Schema) (*joinPlan, error) {
	lk, err := left.Require(s.LeftTable, s.LeftKey)
	if err != nil {
		return nil, err
	}
	rk, err := right.Require(s.RightTable, s.RightKey)
	if err != nil {
		return nil, err
	}

	out := &joinPlan{lk: lk, rk: rk}
	for _, p := range s.Filters {
		var (
			idx int
			err error
		)
		switch {
		case p.Table == s.LeftTable:
			idx, err = p.Bind(s.LeftTable, left)
		case p.Table == s.RightTable:
			if idx, err = p.Bind(s.RightTable, right); err == nil {
				idx += len(left)
			}
		case p.Table == "":
			// an unqualified column belongs to the side that has it
			if idx, err = p.Bind(s.LeftTable, left); err != nil {
				if idx, err = p.Bind(s.RightTable, right); err == nil {
					idx += len(left)
				}
			}
		default:
			err = errors.Wrapf(catalog.ErrSchemaMismatch, "predicate %s is on neither side of the join", p)
		}
		if err != nil {
			return nil, err
		}
		out.filters = append(out.filters, plan.BoundPredicate{Predicate: p, Col: idx})
	}
	return out, nil
}

func bindGroup(s *plan.GroupAggregate, schema catalog.Schema) (*groupPlan, error) {
	filters, err := bindFilters(s.Table, schema, s.Filters)
	if err != nil {
		return nil, err
	}
	out := &groupPlan{filters: filters}

	for _, c := range s.GroupCols {
		idx, err := schema.Require(s.Table, c)
		if err != nil {
			return nil, err
		}
		out.keys = append(out.keys, idx)
	}
	for _, a := range s.Aggs {
		idx, err := a.Bind(s.Table, schema)
		if err != nil {
			return nil, err
		}
		out.aggs = append(out.aggs, plan.BoundAgg{Agg: a, Col: idx})
	}
	return out, nil
}

// bindCount turns the date range into two inclusive date predicates ahead of
// the other filters.
func bindCount(s *plan.CountDateRange, schema catalog.Schema) (*countPlan, error) {
	preds := []plan.Predicate{
		{Column: s.DateCol, Op: plan.OpGe, Value: float64(s.Lo), Date: true},
		{Column: s.DateCol, Op: plan.OpLe, Value: float64(s.Hi), Date: true},
	}
	filters, err := bindFilters(s.Table, schema, append(preds, s.Filters...))
	if err != nil {
		return nil, err
	}

	out := &countPlan{
		filters: filters,
		aggs:    []plan.BoundAgg{{Agg: plan.Agg{Func: plan.AggCount}, Col: -1}},
	}
	if s.SumCol != "" {
		sum := plan.Agg{Func: plan.AggSum, Column: s.SumCol}
		idx, err := sum.Bind(s.Table, schema)
		if err != nil {
			return nil, err
		}
		out.aggs = append(out.aggs, plan.BoundAgg{Agg: sum, Col: idx})
	}
	return out, nil
}

// countResult turns the single row of the count aggregation into a count
// or a (count, total) pair.
func countResult(s *plan.CountDateRange, row []catalog.Value) result.Result {
	if s.SumCol == "" {
		return &result.Count{N: row[0].Int}
	}
	return &result.CountSum{N: row[0].Int, Sum: row[1]}
}

// groupResult arranges group-by output rows, keys then aggregations, in the
// order the query projects them.
func groupResult(s *plan.GroupAggregate, rows [][]catalog.Value) *result.Table {
	out := &result.Table{Columns: s.ColumnNames()}
	n := len(s.GroupCols)
	for _, r := range rows {
		out.Rows = append(out.Rows, s.Project(r[:n], r[n:]))
	}
	return out
}
