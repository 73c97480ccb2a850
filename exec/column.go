package exec

import (
	"context"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/columnar"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
)

type columnBackend struct {
	logger log.Logger
	tables []*columnar.Table
}

func (self *columnBackend) Engine() catalog.Engine { return catalog.ColumnEngine }

func (self *columnBackend) Load(ctx context.Context, table string, files []string) (catalog.Table, error) {
	t, err := columnar.Load(ctx, self.logger, table, files)
	if err != nil {
		return nil, err
	}
	self.tables = append(self.tables, t)
	return t, nil
}

func (self *columnBackend) Drop(table string) error {
	for i, t := range self.tables {
		if t.Name() == table {
			t.Release()
			self.tables = append(self.tables[:i], self.tables[i+1:]...)
			return nil
		}
	}
	return nil
}

func (self *columnBackend) Close() error {
	for _, t := range self.tables {
		t.Release()
	}
	self.tables = nil
	return nil
}

func (self *columnBackend) table(cat *catalog.Catalog, name string) (*columnar.Table, error) {
	t, err := cat.Lookup(name, catalog.ColumnEngine)
	if err != nil {
		return nil, err
	}
	c, ok := t.(*columnar.Table)
	if !ok {
		return nil, errors.Errorf("table %s is a %T, not a columnar table", name, t)
	}
	return c, nil
}

func tableRows(t *columnar.Table) [][]catalog.Value {
	out := make([][]catalog.Value, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		out = append(out, t.Row(i))
	}
	return out
}

func (self *columnBackend) Execute(ctx context.Context, cat *catalog.Catalog, q *plan.Query) (result.Result, error) {
	shape, err := shapeOf(q)
	if err != nil {
		return nil, err
	}

	switch s := shape.(type) {
	case *plan.EquiJoinFilter:
		left, err := self.table(cat, s.LeftTable)
		if err != nil {
			return nil, err
		}
		right, err := self.table(cat, s.RightTable)
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
		defer joined.Release()
		kept, err := joined.Filter(ctx, p.filters)
		if err != nil {
			return nil, err
		}
		defer kept.Release()
		return &result.Count{N: int64(kept.NumRows())}, nil

	case *plan.GroupAggregate:
		t, err := self.table(cat, s.Table)
		if err != nil {
			return nil, err
		}
		p, err := bindGroup(s, t.Schema())
		if err != nil {
			return nil, err
		}

		kept, err := t.Filter(ctx, p.filters)
		if err != nil {
			return nil, err
		}
		defer kept.Release()
		grouped, err := kept.GroupBy(ctx, p.keys, p.aggs)
		if err != nil {
			return nil, err
		}
		defer grouped.Release()
		return groupResult(s, tableRows(grouped)), nil

	case *plan.CountDateRange:
		t, err := self.table(cat, s.Table)
		if err != nil {
			return nil, err
		}
		p, err := bindCount(s, t.Schema())
		if err != nil {
			return nil, err
		}

		kept, err := t.Filter(ctx, p.filters)
		if err != nil {
			return nil, err
		}
		defer kept.Release()
		total, err := kept.GroupBy(ctx, nil, p.aggs)
		if err != nil {
			return nil, err
		}
		defer total.Release()
		return countResult(s, total.Row(0)), nil

	default:
		return nil, errors.Wrap(ErrUnsupported, shape.Dump())
	}
}
