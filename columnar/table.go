package columnar

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/loader"
)

const checkEvery = 4096

// Table is a column oriented table, one arrow array per column.
type Table struct {
	name   string
	schema catalog.Schema
	cols   []arrow.Array
	rows   int
}

// New takes ownership of the arrays; they must all have the same length.
func New(name string, schema catalog.Schema, cols []arrow.Array) *Table {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return &Table{
		name:   name,
		schema: schema,
		cols:   cols,
		rows:   rows,
	}
}

// FromValues builds a table from rows of cells.
func FromValues(name string, schema catalog.Schema, rows [][]catalog.Value) *Table {
	builders := make([]array.Builder, len(schema))
	for i, f := range schema {
		builders[i] = newBuilder(f.Type)
		builders[i].Reserve(len(rows))
	}
	for _, r := range rows {
		for i, v := range r {
			appendValue(builders[i], v)
		}
	}
	cols := make([]arrow.Array, len(schema))
	for i, b := range builders {
		cols[i] = b.NewArray()
		b.Release()
	}
	return New(name, schema, cols)
}

func (self *Table) Name() string             { return self.name }
func (self *Table) Schema() catalog.Schema   { return self.schema }
func (self *Table) NumRows() int             { return self.rows }
func (self *Table) Column(i int) arrow.Array { return self.cols[i] }

// Row reads one row back into cells.
func (self *Table) Row(i int) []catalog.Value {
	out := make([]catalog.Value, len(self.cols))
	for c, a := range self.cols {
		out[c] = valueAt(a, i)
	}
	return out
}

func (self *Table) Release() {
	for _, c := range self.cols {
		c.Release()
	}
	self.cols = nil
}

// Load reads a table column by column, one arrow array per column spanning
// every partition, then converts its date columns.
func Load(ctx context.Context, logger log.Logger, name string, files []string) (*Table, error) {
	set, err := loader.OpenTable(logger, name, files)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	schema := append(catalog.Schema(nil), set.Schema...)
	cols := make([]arrow.Array, 0, len(schema))
	release := func() {
		for _, c := range cols {
			c.Release()
		}
	}

	for i, f := range schema {
		b := newBuilder(f.Type)
		b.Reserve(int(set.NumRows()))
		err := set.ScanColumn(ctx, i, func(batch []catalog.Value) error {
			for _, v := range batch {
				appendValue(b, v)
			}
			return nil
		})
		if err != nil {
			b.Release()
			release()
			return nil, err
		}
		cols = append(cols, b.NewArray())
		b.Release()
	}

	t := New(name, schema, cols)
	if bad := t.NormalizeDates(); bad > 0 {
		level.Warn(logger).Log("msg", "unparseable dates replaced by NULL", "table", name, "count", bad)
	}
	level.Debug(logger).Log("msg", "arrow table ready", "table", name, "rows", t.rows, "schema", ArrowSchema(t.schema))
	return t, nil
}

// NormalizeDates replaces the string arrays of date candidate columns by
// date32 arrays. Values that don't parse become NULL; their number is
// returned.
func (self *Table) NormalizeDates() int {
	bad := 0
	for _, col := range catalog.DateCandidates(self.schema) {
		src, ok := self.cols[col].(*array.String)
		if !ok {
			continue
		}

		b := array.NewDate32Builder(alloc)
		b.Reserve(src.Len())
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				b.AppendNull()
				continue
			}
			if d, err := catalog.ParseDate(src.Value(i)); err != nil {
				b.AppendNull()
				bad++
			} else {
				b.Append(arrow.Date32(d))
			}
		}

		self.cols[col] = b.NewArray()
		b.Release()
		src.Release()
		self.schema[col].Type = catalog.TypeDate
	}
	return bad
}
