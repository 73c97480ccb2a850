package rowframe

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/loader"
)

// how many rows an operator processes between two cancellation checks
const checkEvery = 4096

type Row []catalog.Value

// Frame is an in-memory, row oriented table. Operators never modify a frame,
// they produce a new one.
type Frame struct {
	name   string
	schema catalog.Schema
	Rows   []Row
}

func New(name string, schema catalog.Schema, rows []Row) *Frame {
	return &Frame{
		name:   name,
		schema: schema,
		Rows:   rows,
	}
}

func (self *Frame) Name() string           { return self.name }
func (self *Frame) Schema() catalog.Schema { return self.schema }
func (self *Frame) NumRows() int           { return len(self.Rows) }

// Load reads every partition of a table into one frame and normalizes its
// date columns.
func Load(ctx context.Context, logger log.Logger, name string, files []string) (*Frame, error) {
	set, err := loader.OpenTable(logger, name, files)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	rows := make([]Row, 0, set.NumRows())
	if err := set.ScanRows(ctx, func(r []catalog.Value) error {
		rows = append(rows, Row(r))
		return nil
	}); err != nil {
		return nil, err
	}

	f := New(name, append(catalog.Schema(nil), set.Schema...), rows)
	if bad := f.NormalizeDates(); bad > 0 {
		level.Warn(logger).Log("msg", "unparseable dates replaced by NULL", "table", name, "count", bad)
	}
	return f, nil
}

// NormalizeDates turns the text columns holding dates into date columns, in
// place. It is meant to run once, right after the load. Values that don't
// parse become NULL; their number is returned.
func (self *Frame) NormalizeDates() int {
	bad := 0
	for _, col := range catalog.DateCandidates(self.schema) {
		if self.schema[col].Type == catalog.TypeDate {
			continue
		}
		for _, r := range self.Rows {
			v := r[col]
			if v.Null {
				r[col] = catalog.Null(catalog.TypeDate)
				continue
			}
			if d, err := catalog.ParseDate(v.Str); err != nil {
				r[col] = catalog.Null(catalog.TypeDate)
				bad++
			} else {
				r[col] = catalog.Date(d)
			}
		}
		self.schema[col].Type = catalog.TypeDate
	}
	return bad
}

// Filter keeps the rows satisfying keep.
func (self *Frame) Filter(ctx context.Context, keep func(Row) bool) (*Frame, error) {
	out := []Row{}
	for idx, r := range self.Rows {
		if idx%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if keep(r) {
			out = append(out, r)
		}
	}
	return New(self.name, self.schema, out), nil
}
