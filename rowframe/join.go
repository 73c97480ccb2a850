package rowframe

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/dianpeng/qbench/catalog"
)

func keyHash(d *xxhash.Digest, values ...catalog.Value) uint64 {
	d.Reset()
	for i, v := range values {
		if i > 0 {
			_, _ = d.Write([]byte{0}) // separator
		}
		_, _ = d.WriteString(v.Key())
	}
	return d.Sum64()
}

// Join is an inner hash join of self and right on self[lk] = right[rk]. The
// output rows are the left columns followed by the right columns. NULL keys
// never match.
func (self *Frame) Join(ctx context.Context, right *Frame, lk, rk int) (*Frame, error) {
	d := xxhash.New()

	// build on the right side
	build := make(map[uint64][]int, len(right.Rows))
	for idx, r := range right.Rows {
		if idx%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if r[rk].Null {
			continue
		}
		h := keyHash(d, r[rk])
		build[h] = append(build[h], idx)
	}

	schema := append(append(catalog.Schema{}, self.schema...), right.schema...)
	out := []Row{}

	for idx, l := range self.Rows {
		if idx%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if l[lk].Null {
			continue
		}
		key := l[lk].Key()
		for _, ridx := range build[keyHash(d, l[lk])] {
			r := right.Rows[ridx]
			if r[rk].Key() != key {
				continue
			}
			row := make(Row, 0, len(l)+len(r))
			row = append(row, l...)
			row = append(row, r...)
			out = append(out, row)
		}
	}

	return New(self.name+"_"+right.name, schema, out), nil
}
