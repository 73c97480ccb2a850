package loader

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
)

var ErrLoad = errors.New("load error")

const (
	rowBatch   = 256
	valueBatch = 4096
)

// Prefix is the file name prefix of a table's partitions. The orders table is
// stored as order*, every other table under its own name.
func Prefix(table string) string {
	if table == "orders" {
		return "order"
	}
	return table
}

// Files lists the partitions of a table, sorted by name.
func Files(dataPath, table string) ([]string, error) {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, errors.Wrapf(ErrLoad, "table %s: %s", table, err)
	}

	prefix := Prefix(table)
	out := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		out = append(out, filepath.Join(dataPath, e.Name()))
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrLoad, "table %s: no file with prefix %q in %s", table, prefix, dataPath)
	}
	sort.Strings(out)
	return out, nil
}

// File is one opened parquet partition.
type File struct {
	Path    string
	Size    int64
	Schema  catalog.Schema
	f       *os.File
	pf      *parquet.File
	columns []column
}

func Open(logger log.Logger, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(ErrLoad, err.Error())
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(ErrLoad, err.Error())
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(ErrLoad, "%s: %s", path, err)
	}

	cols, err := columnsOf(pf.Schema())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%s", path)
	}

	out := &File{
		Path:    path,
		Size:    st.Size(),
		f:       f,
		pf:      pf,
		columns: cols,
	}
	for _, c := range cols {
		out.Schema = append(out.Schema, c.field)
	}

	level.Debug(logger).Log(
		"msg", "opened parquet file",
		"path", path,
		"size", humanize.Bytes(uint64(st.Size())),
		"rows", pf.NumRows(),
		"row_groups", len(pf.RowGroups()),
	)
	return out, nil
}

func (self *File) NumRows() int64 {
	return self.pf.NumRows()
}

func (self *File) Close() error {
	return self.f.Close()
}

// ScanRows decodes the file row by row. The row handed to fn is owned by
// fn.
func (self *File) ScanRows(ctx context.Context, fn func([]catalog.Value) error) error {
	buf := make([]parquet.Row, rowBatch)
	for _, rg := range self.pf.RowGroups() {
		if err := self.scanRowGroup(ctx, rg, buf, fn); err != nil {
			return err
		}
	}
	return nil
}

func (self *File) scanRowGroup(
	ctx context.Context,
	rg parquet.RowGroup,
	buf []parquet.Row,
	fn func([]catalog.Value) error,
) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := rows.ReadRows(buf)
		for _, r := range buf[:n] {
			out := make([]catalog.Value, len(self.columns))
			for _, v := range r {
				c := v.Column()
				out[c] = self.columns[c].value(v)
			}
			if err := fn(out); err != nil {
				return err
			}
		}

		if err == io.EOF || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(ErrLoad, "%s: %s", self.Path, err)
		}
	}
}

// ScanColumn decodes one column chunk by chunk and page by page. The batch
// handed to fn is reused once fn returns.
func (self *File) ScanColumn(ctx context.Context, col int, fn func([]catalog.Value) error) error {
	if col < 0 || col >= len(self.columns) {
		return errors.Wrapf(ErrLoad, "%s: no column %d", self.Path, col)
	}

	buf := make([]parquet.Value, valueBatch)
	out := make([]catalog.Value, 0, valueBatch)

	for _, rg := range self.pf.RowGroups() {
		pages := rg.ColumnChunks()[col].Pages()
		err := func() error {
			defer pages.Close()

			for {
				if err := ctx.Err(); err != nil {
					return err
				}

				page, err := pages.ReadPage()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}

				values := page.Values()
				for {
					n, err := values.ReadValues(buf)
					out = out[:0]
					for _, v := range buf[:n] {
						out = append(out, self.columns[col].value(v))
					}
					if n > 0 {
						if err := fn(out); err != nil {
							return err
						}
					}
					if err == io.EOF || (err == nil && n == 0) {
						break
					}
					if err != nil {
						return err
					}
				}
			}
		}()
		if err != nil {
			return errors.Wrapf(ErrLoad, "%s: column %s: %s", self.Path, self.Schema[col].Name, err)
		}
	}
	return nil
}

// Set is every partition of one table.
type Set struct {
	Table  string
	Schema catalog.Schema
	Files  []*File
}

// OpenTable opens every file of a table and checks that they agree on the
// schema. Nothing stays open on failure.
func OpenTable(logger log.Logger, table string, paths []string) (*Set, error) {
	set := &Set{
		Table: table,
	}
	for _, p := range paths {
		f, err := Open(logger, p)
		if err != nil {
			set.Close()
			return nil, errors.Wrapf(err, "table %s", table)
		}
		set.Files = append(set.Files, f)

		if set.Schema == nil {
			set.Schema = f.Schema
		} else if !set.Schema.Equal(f.Schema) {
			set.Close()
			return nil, errors.Wrapf(
				ErrLoad,
				"table %s: schema of %s (%s) differs from (%s)",
				table,
				p,
				f.Schema,
				set.Schema,
			)
		}
	}
	if len(set.Files) == 0 {
		return nil, errors.Wrapf(ErrLoad, "table %s: no file", table)
	}
	return set, nil
}

func (self *Set) NumRows() int64 {
	n := int64(0)
	for _, f := range self.Files {
		n += f.NumRows()
	}
	return n
}

func (self *Set) Size() int64 {
	n := int64(0)
	for _, f := range self.Files {
		n += f.Size
	}
	return n
}

func (self *Set) Close() error {
	var first error
	for _, f := range self.Files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ScanRows scans every file, in file order.
func (self *Set) ScanRows(ctx context.Context, fn func([]catalog.Value) error) error {
	for _, f := range self.Files {
		if err := f.ScanRows(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// ScanColumn scans one column of every file, in file order.
func (self *Set) ScanColumn(ctx context.Context, col int, fn func([]catalog.Value) error) error {
	for _, f := range self.Files {
		if err := f.ScanColumn(ctx, col, fn); err != nil {
			return err
		}
	}
	return nil
}
