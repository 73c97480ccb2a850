package columnar

import (
	"context"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
)

func cancelled(ctx context.Context, i int) error {
	if i%checkEvery == 0 {
		return ctx.Err()
	}
	return nil
}

// Take gathers the rows at idx into a new table.
func (self *Table) Take(idx []int) *Table {
	cols := make([]arrow.Array, len(self.cols))
	for i, c := range self.cols {
		cols[i] = take(c, idx)
	}
	out := New(self.name, self.schema, cols)
	out.rows = len(idx)
	return out
}

// Filter keeps the rows satisfying every condition. Each condition is
// evaluated over a whole column before the next one runs.
func (self *Table) Filter(ctx context.Context, conds []plan.BoundPredicate) (*Table, error) {
	keep := make([]bool, self.rows)
	for i := range keep {
		keep[i] = true
	}

	for _, c := range conds {
		a := self.cols[c.Col]
		get, ok := numbers(a)
		if !ok {
			return nil, errors.Wrapf(
				catalog.ErrSchemaMismatch,
				"column %s of %s is %s",
				self.schema[c.Col].Name,
				self.name,
				a.DataType(),
			)
		}
		for i := range keep {
			if err := cancelled(ctx, i); err != nil {
				return nil, err
			}
			if keep[i] && (a.IsNull(i) || !c.Compare(get(i))) {
				keep[i] = false
			}
		}
	}

	idx := []int{}
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return self.Take(idx), nil
}

func keyHash(d *xxhash.Digest, values ...catalog.Value) uint64 {
	d.Reset()
	for i, v := range values {
		if i > 0 {
			_, _ = d.Write([]byte{0})
		}
		_, _ = d.WriteString(v.Key())
	}
	return d.Sum64()
}

// matchInt64 pairs the rows of two int64 key columns.
func matchInt64(ctx context.Context, l, r *array.Int64) ([]int, []int, error) {
	build := make(map[int64][]int, r.Len())
	for i := 0; i < r.Len(); i++ {
		if err := cancelled(ctx, i); err != nil {
			return nil, nil, err
		}
		if r.IsValid(i) {
			build[r.Value(i)] = append(build[r.Value(i)], i)
		}
	}

	li, ri := []int{}, []int{}
	for i := 0; i < l.Len(); i++ {
		if err := cancelled(ctx, i); err != nil {
			return nil, nil, err
		}
		if l.IsNull(i) {
			continue
		}
		for _, j := range build[l.Value(i)] {
			li = append(li, i)
			ri = append(ri, j)
		}
	}
	return li, ri, nil
}

// matchAny pairs the rows of two key columns of any type through their
// hashed keys.
func matchAny(ctx context.Context, l, r arrow.Array) ([]int, []int, error) {
	d := xxhash.New()
	build := make(map[uint64][]int, r.Len())
	for i := 0; i < r.Len(); i++ {
		if err := cancelled(ctx, i); err != nil {
			return nil, nil, err
		}
		if r.IsNull(i) {
			continue
		}
		h := keyHash(d, valueAt(r, i))
		build[h] = append(build[h], i)
	}

	li, ri := []int{}, []int{}
	for i := 0; i < l.Len(); i++ {
		if err := cancelled(ctx, i); err != nil {
			return nil, nil, err
		}
		if l.IsNull(i) {
			continue
		}
		v := valueAt(l, i)
		key := v.Key()
		for _, j := range build[keyHash(d, v)] {
			if valueAt(r, j).Key() == key {
				li = append(li, i)
				ri = append(ri, j)
			}
		}
	}
	return li, ri, nil
}

// Join is an inner hash join of self and right on self[lk] = right[rk]. The
// output columns are the left columns followed by the right columns.
func (self *Table) Join(ctx context.Context, right *Table, lk, rk int) (*Table, error) {
	var li, ri []int
	var err error

	l, lok := self.cols[lk].(*array.Int64)
	r, rok := right.cols[rk].(*array.Int64)
	if lok && rok {
		li, ri, err = matchInt64(ctx, l, r)
	} else {
		li, ri, err = matchAny(ctx, self.cols[lk], right.cols[rk])
	}
	if err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, 0, len(self.cols)+len(right.cols))
	for _, c := range self.cols {
		cols = append(cols, take(c, li))
	}
	for _, c := range right.cols {
		cols = append(cols, take(c, ri))
	}
	schema := append(append(catalog.Schema{}, self.schema...), right.schema...)
	out := New(self.name+"_"+right.name, schema, cols)
	out.rows = len(li)
	return out, nil
}

type group struct {
	keys []catalog.Value
	accs []*plan.Accumulator
}

// GroupBy assigns every row a group through the hashed key columns, then
// folds each aggregation column into its group. The output holds the keys
// followed by one column per aggregation, sorted by the keys. Without keys
// the output is one row.
func (self *Table) GroupBy(ctx context.Context, keys []int, aggs []plan.BoundAgg) (*Table, error) {
	schema := catalog.Schema{}
	for _, k := range keys {
		schema = append(schema, self.schema[k])
	}
	inTypes := make([]int, len(aggs))
	for i, a := range aggs {
		inTypes[i] = catalog.TypeInt
		if a.Col >= 0 {
			inTypes[i] = self.schema[a.Col].Type
		}
		schema = append(schema, catalog.Field{Name: a.Name(), Type: a.ResultType(inTypes[i])})
	}

	newGroup := func(k []catalog.Value) *group {
		g := &group{keys: k}
		for i, a := range aggs {
			g.accs = append(g.accs, plan.NewAccumulator(a.Agg, inTypes[i]))
		}
		return g
	}

	// pass 1: group id of every row
	groups := []*group{}
	ids := make([]int, self.rows)
	if len(keys) == 0 {
		groups = append(groups, newGroup(nil))
	} else {
		d := xxhash.New()
		table := make(map[uint64][]int)
		kv := make([]catalog.Value, len(keys))

		for i := 0; i < self.rows; i++ {
			if err := cancelled(ctx, i); err != nil {
				return nil, err
			}
			for j, k := range keys {
				kv[j] = valueAt(self.cols[k], i)
			}
			h := keyHash(d, kv...)

			id := -1
			for _, c := range table[h] {
				if sameKeys(groups[c].keys, kv) {
					id = c
					break
				}
			}
			if id < 0 {
				id = len(groups)
				groups = append(groups, newGroup(append([]catalog.Value(nil), kv...)))
				table[h] = append(table[h], id)
			}
			ids[i] = id
		}
	}

	// pass 2: one column at a time
	for a, spec := range aggs {
		var col arrow.Array
		if spec.Col >= 0 {
			col = self.cols[spec.Col]
		}
		for i := 0; i < self.rows; i++ {
			if err := cancelled(ctx, i); err != nil {
				return nil, err
			}
			v := catalog.Value{}
			if col != nil {
				v = valueAt(col, i)
			}
			groups[ids[i]].accs[a].Add(v)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return catalog.LessRow(groups[i].keys, groups[j].keys)
	})

	rows := make([][]catalog.Value, 0, len(groups))
	for _, g := range groups {
		r := append([]catalog.Value{}, g.keys...)
		for _, acc := range g.accs {
			r = append(r, acc.Value())
		}
		rows = append(rows, r)
	}
	return FromValues(self.name, schema, rows), nil
}

func sameKeys(a, b []catalog.Value) bool {
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}
