package rowframe

import (
	"context"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
)

type group struct {
	keys []catalog.Value
	accs []*plan.Accumulator
}

func sameKeys(a, b []catalog.Value) bool {
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}

// GroupBy partitions the rows by the key columns and folds every partition
// with the aggregations. The output holds the keys followed by one column per
// aggregation, sorted by the keys. Without keys the output is one row.
func (self *Frame) GroupBy(ctx context.Context, keys []int, aggs []plan.BoundAgg) (*Frame, error) {
	schema := catalog.Schema{}
	for _, k := range keys {
		schema = append(schema, self.schema[k])
	}
	inTypes := make([]int, len(aggs))
	for i, a := range aggs {
		if a.Col >= 0 {
			inTypes[i] = self.schema[a.Col].Type
		} else {
			inTypes[i] = catalog.TypeInt
		}
		schema = append(schema, catalog.Field{
			Name: a.Name(),
			Type: a.ResultType(inTypes[i]),
		})
	}

	newGroup := func(k []catalog.Value) *group {
		g := &group{keys: k}
		for i, a := range aggs {
			g.accs = append(g.accs, plan.NewAccumulator(a.Agg, inTypes[i]))
		}
		return g
	}

	d := xxhash.New()
	table := make(map[uint64][]*group)
	groups := []*group{}
	if len(keys) == 0 {
		groups = append(groups, newGroup(nil))
	}

	kv := make([]catalog.Value, len(keys))
	for idx, r := range self.Rows {
		if idx%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var g *group
		if len(keys) == 0 {
			g = groups[0]
		} else {
			for i, k := range keys {
				kv[i] = r[k]
			}
			h := keyHash(d, kv...)
			for _, c := range table[h] {
				if sameKeys(c.keys, kv) {
					g = c
					break
				}
			}
			if g == nil {
				g = newGroup(append([]catalog.Value(nil), kv...))
				table[h] = append(table[h], g)
				groups = append(groups, g)
			}
		}

		for i, a := range aggs {
			if a.Col < 0 {
				g.accs[i].Add(catalog.Value{})
			} else {
				g.accs[i].Add(r[a.Col])
			}
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return catalog.LessRow(groups[i].keys, groups[j].keys)
	})

	out := make([]Row, 0, len(groups))
	for _, g := range groups {
		row := make(Row, 0, len(schema))
		row = append(row, g.keys...)
		for _, acc := range g.accs {
			row = append(row, acc.Value())
		}
		out = append(out, row)
	}
	return New(self.name, schema, out), nil
}
