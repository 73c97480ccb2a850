// Package sqlengine keeps tables in an embedded, in-memory SQLite database
// and runs query text on it unchanged.
package sqlengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/loader"
	"github.com/dianpeng/qbench/result"
)

var ErrQuery = errors.New("sqlite error")

// Table is the catalog view of one SQLite table.
type Table struct {
	name   string
	schema catalog.Schema
	rows   int
}

func (self *Table) Name() string           { return self.name }
func (self *Table) Schema() catalog.Schema { return self.schema }
func (self *Table) NumRows() int           { return self.rows }

// DB is one connection to a private in-memory database. A DB is not safe
// for concurrent use.
type DB struct {
	conn   *sqlite.Conn
	logger log.Logger
}

func Open(logger log.Logger) (*DB, error) {
	conn, err := sqlite.OpenConn(":memory:")
	if err != nil {
		return nil, errors.Wrap(ErrQuery, err.Error())
	}
	return &DB{
		conn:   conn,
		logger: logger,
	}, nil
}

func (self *DB) Close() error {
	return self.conn.Close()
}

func quote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqlType(ty int) string {
	switch ty {
	case catalog.TypeInt, catalog.TypeBool:
		return "INTEGER"
	case catalog.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func bind(stmt *sqlite.Stmt, param int, v catalog.Value) {
	if v.Null {
		stmt.BindNull(param)
		return
	}
	switch v.Type {
	case catalog.TypeInt, catalog.TypeBool:
		stmt.BindInt64(param, v.Int)
	case catalog.TypeFloat:
		stmt.BindFloat(param, v.Float)
	default:
		// dates as ISO text
		stmt.BindText(param, v.String())
	}
}

// withContext lets ctx interrupt whatever runs on the connection until the
// returned function is called.
func (self *DB) withContext(ctx context.Context) func() {
	old := self.conn.SetInterrupt(ctx.Done())
	return func() {
		self.conn.SetInterrupt(old)
	}
}

func (self *DB) wrap(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), err.Error())
	}
	return errors.Wrap(ErrQuery, err.Error())
}

// Load creates a table named after the logical table and fills it from its
// parquet files in one savepoint. Date candidate columns end up as ISO text.
func (self *DB) Load(ctx context.Context, name string, files []string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := loader.OpenTable(self.logger, name, files)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	schema := append(catalog.Schema(nil), set.Schema...)
	defer self.withContext(ctx)()

	cols := make([]string, 0, len(schema))
	marks := make([]string, 0, len(schema))
	for _, f := range schema {
		cols = append(cols, fmt.Sprintf("%s %s", quote(f.Name), sqlType(f.Type)))
		marks = append(marks, "?")
	}
	if err := sqlitex.ExecuteTransient(
		self.conn,
		fmt.Sprintf("CREATE TABLE %s (%s);", quote(name), strings.Join(cols, ", ")),
		nil,
	); err != nil {
		return nil, self.wrap(ctx, err)
	}

	rows, err := self.fill(ctx, name, set, strings.Join(marks, ", "))
	if err != nil {
		self.Drop(name)
		return nil, err
	}

	bad, err := self.normalizeDates(name, schema)
	if err != nil {
		self.Drop(name)
		return nil, self.wrap(ctx, err)
	}
	if bad > 0 {
		level.Warn(self.logger).Log("msg", "unparseable dates replaced by NULL", "table", name, "count", bad)
	}

	return &Table{
		name:   name,
		schema: schema,
		rows:   rows,
	}, nil
}

func (self *DB) fill(ctx context.Context, name string, set *loader.Set, marks string) (rows int, err error) {
	defer sqlitex.Save(self.conn)(&err)

	stmt, _, err := self.conn.PrepareTransient(fmt.Sprintf("INSERT INTO %s VALUES (%s);", quote(name), marks))
	if err != nil {
		return 0, self.wrap(ctx, err)
	}
	defer stmt.Finalize()

	err = set.ScanRows(ctx, func(r []catalog.Value) error {
		for i, v := range r {
			bind(stmt, i+1, v)
		}
		if _, err := stmt.Step(); err != nil {
			return self.wrap(ctx, err)
		}
		rows++
		return stmt.Reset()
	})
	return rows, err
}

// normalizeDates rewrites every text date candidate through SQLite's date(),
// which yields NULL for text it can't read. It returns the number of such
// values.
func (self *DB) normalizeDates(name string, schema catalog.Schema) (int, error) {
	bad := 0
	for _, idx := range catalog.DateCandidates(schema) {
		col := quote(schema[idx].Name)
		if err := sqlitex.ExecuteTransient(
			self.conn,
			fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NOT NULL AND date(%s) IS NULL;", quote(name), col, col),
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					bad += int(stmt.ColumnInt64(0))
					return nil
				},
			},
		); err != nil {
			return 0, err
		}
		if err := sqlitex.ExecuteTransient(
			self.conn,
			fmt.Sprintf("UPDATE %s SET %s = date(%s);", quote(name), col, col),
			nil,
		); err != nil {
			return 0, err
		}
		schema[idx].Type = catalog.TypeDate
	}
	return bad, nil
}

// Drop removes a table. It also runs when a load was interrupted.
func (self *DB) Drop(name string) error {
	defer self.conn.SetInterrupt(self.conn.SetInterrupt(nil))
	if err := sqlitex.ExecuteTransient(self.conn, fmt.Sprintf("DROP TABLE IF EXISTS %s;", quote(name)), nil); err != nil {
		return errors.Wrap(ErrQuery, err.Error())
	}
	return nil
}

func columnValue(stmt *sqlite.Stmt, col int) catalog.Value {
	switch stmt.ColumnType(col) {
	case sqlite.TypeInteger:
		return catalog.Int(stmt.ColumnInt64(col))
	case sqlite.TypeFloat:
		return catalog.Float(stmt.ColumnFloat(col))
	case sqlite.TypeNull:
		return catalog.Null(catalog.TypeString)
	default:
		return catalog.String(stmt.ColumnText(col))
	}
}

// Query runs one statement verbatim and collects every row it returns.
func (self *DB) Query(ctx context.Context, text string) (*result.Table, error) {
	defer self.withContext(ctx)()

	stmt, trailing, err := self.conn.PrepareTransient(text)
	if err != nil {
		return nil, self.wrap(ctx, err)
	}
	if stmt == nil {
		return nil, errors.Wrap(ErrQuery, "empty statement")
	}
	defer stmt.Finalize()

	if rest := strings.TrimSpace(text[len(text)-trailing:]); rest != "" && rest != ";" {
		return nil, errors.Wrapf(ErrQuery, "more than one statement: %q", rest)
	}

	out := &result.Table{}
	for i := 0; i < stmt.ColumnCount(); i++ {
		out.Columns = append(out.Columns, stmt.ColumnName(i))
	}
	for {
		row, err := stmt.Step()
		if err != nil {
			return nil, self.wrap(ctx, err)
		}
		if !row {
			break
		}
		r := make([]catalog.Value, stmt.ColumnCount())
		for i := range r {
			r[i] = columnValue(stmt, i)
		}
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}
