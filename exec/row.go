package exec

import (
	"context"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
	"github.com/dianpeng/qbench/rowframe"
)

type rowBackend struct {
	logger log.Logger
}

func (self *rowBackend) Engine() catalog.Engine { return catalog.RowEngine }
func (self *rowBackend) Close() error           { return nil }

// Drop is a no-op, a frame goes away with its last reference.
func (self *rowBackend) Drop(string) error { return nil }

func (self *rowBackend) Load(ctx context.Context, table string, files []string) (catalog.Table, error) {
	f, err := rowframe.Load(ctx, self.logger, table, files)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (self *rowBackend) frame(cat *catalog.Catalog, name string) (*rowframe.Frame, error) {
	t, err := cat.Lookup(name, catalog.RowEngine)
	if err != nil {
		return nil, err
	}
	f, ok := t.(*rowframe.Frame)
	if !ok {
		return nil, errors.Errorf("table %s is a %T, not a row frame", name, t)
	}
	return f, nil
}

func rowFilter(filters []plan.BoundPredicate) func(rowframe.Row) bool {
	return func(r rowframe.Row) bool {
		for _, p := range filters {
			if !p.Eval(r[p.Col]) {
				return false
			}
		}
		return true
	}
}

func (self *rowBackend) Execute(ctx context.Context, cat *catalog.Catalog, q *plan.Query) (result.Result, error) {
	shape, err := shapeOf(q)
	if err != nil {
		return nil, err
	}

	switch s := shape.(type) {
	case *plan.EquiJoinFilter:
		left, err := self.frame(cat, s.LeftTable)
		if err != nil {
			return nil, err
		}
		right, err := self.frame(cat, s.RightTable)
		if err != nil {
			return nil, err
		}
		p, err := bindJoin(s, left.Schema(), right.Schema())
		if err != nil {
			return nil, err
		}

		joined, err := left.Join(ctx, right, p.lk, p.rk)
		if err != nil {
			return nil, err
		}
		kept, err := joined.Filter(ctx, rowFilter(p.filters))
		if err != nil {
			return nil, err
		}
		return &result.Count{N: int64(kept.NumRows())}, nil

	case *plan.GroupAggregate:
		f, err := self.frame(cat, s.Table)
		if err != nil {
			return nil, err
		}
		p, err := bindGroup(s, f.Schema())
		if err != nil {
			return nil, err
		}

		kept, err := f.Filter(ctx, rowFilter(p.filters))
		if err != nil {
			return nil, err
		}
		grouped, err := kept.GroupBy(ctx, p.keys, p.aggs)
		if err != nil {
			return nil, err
		}
		rows := make([][]catalog.Value, 0, grouped.NumRows())
		for _, r := range grouped.Rows {
			rows = append(rows, r)
		}
		return groupResult(s, rows), nil

	case *plan.CountDateRange:
		f, err := self.frame(cat, s.Table)
		if err != nil {
			return nil, err
		}
		p, err := bindCount(s, f.Schema())
		if err != nil {
			return nil, err
		}

		kept, err := f.Filter(ctx, rowFilter(p.filters))
		if err != nil {
			return nil, err
		}
		total, err := kept.GroupBy(ctx, nil, p.aggs)
		if err != nil {
			return nil, err
		}
		return countResult(s, total.Rows[0]), nil

	default:
		return nil, errors.Wrap(ErrUnsupported, shape.Dump())
	}
}
