package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianpeng/qbench/catalog"
)

type orderRow struct {
	OrderKey   int64   `parquet:"o_orderkey"`
	OrderDate  string  `parquet:"o_orderdate"`
	TotalPrice float64 `parquet:"o_totalprice"`
	Priority   *int32  `parquet:"o_shippriority,optional"`
}

type otherRow struct {
	Key int64 `parquet:"o_orderkey"`
}

func writeOrders(t *testing.T, dir string) {
	one := int32(1)
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_b.parquet"), []orderRow{
		{OrderKey: 3, OrderDate: "1995-06-15", TotalPrice: 30.5},
	}))
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_a.parquet"), []orderRow{
		{OrderKey: 1, OrderDate: "1994-12-31", TotalPrice: 10, Priority: &one},
		{OrderKey: 2, OrderDate: "1995-01-01", TotalPrice: 20.25},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lineitem.parquet"), []byte("x"), 0o644))
}

func TestPrefix(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("order", Prefix("orders"))
	assert.Equal("lineitem", Prefix("lineitem"))
}

func TestFiles(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeOrders(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "order_dir"), 0o755))

	files, err := Files(dir, "orders")
	assert.Nil(err)
	assert.Equal([]string{
		filepath.Join(dir, "order_a.parquet"),
		filepath.Join(dir, "order_b.parquet"),
	}, files)

	_, err = Files(dir, "customer")
	assert.True(errors.Is(err, ErrLoad))
	_, err = Files(filepath.Join(dir, "nope"), "orders")
	assert.True(errors.Is(err, ErrLoad))
}

func TestOpenTable(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeOrders(t, dir)

	files, err := Files(dir, "orders")
	require.NoError(t, err)

	set, err := OpenTable(log.NewNopLogger(), "orders", files)
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(catalog.Schema{
		{Name: "o_orderkey", Type: catalog.TypeInt},
		{Name: "o_orderdate", Type: catalog.TypeString},
		{Name: "o_totalprice", Type: catalog.TypeFloat},
		{Name: "o_shippriority", Type: catalog.TypeInt},
	}, set.Schema)
	assert.Equal(int64(3), set.NumRows())
	assert.True(set.Size() > 0)

	rows := [][]catalog.Value{}
	assert.Nil(set.ScanRows(context.Background(), func(r []catalog.Value) error {
		rows = append(rows, r)
		return nil
	}))
	assert.Equal([][]catalog.Value{
		{catalog.Int(1), catalog.String("1994-12-31"), catalog.Float(10), catalog.Int(1)},
		{catalog.Int(2), catalog.String("1995-01-01"), catalog.Float(20.25), catalog.Null(catalog.TypeInt)},
		{catalog.Int(3), catalog.String("1995-06-15"), catalog.Float(30.5), catalog.Null(catalog.TypeInt)},
	}, rows)

	prices := []catalog.Value{}
	assert.Nil(set.ScanColumn(context.Background(), 2, func(b []catalog.Value) error {
		prices = append(prices, b...)
		return nil
	}))
	assert.Equal([]catalog.Value{catalog.Float(10), catalog.Float(20.25), catalog.Float(30.5)}, prices)

	prio := []catalog.Value{}
	assert.Nil(set.ScanColumn(context.Background(), 3, func(b []catalog.Value) error {
		prio = append(prio, b...)
		return nil
	}))
	assert.Equal([]catalog.Value{catalog.Int(1), catalog.Null(catalog.TypeInt), catalog.Null(catalog.TypeInt)}, prio)

	assert.NotNil(set.ScanColumn(context.Background(), 9, func([]catalog.Value) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(errors.Is(set.ScanRows(ctx, func([]catalog.Value) error { return nil }), context.Canceled))
}

func TestOpenTableFailure(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	writeOrders(t, dir)
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_c.parquet"), []otherRow{{Key: 1}}))

	files, err := Files(dir, "orders")
	require.NoError(t, err)
	_, err = OpenTable(log.NewNopLogger(), "orders", files)
	assert.True(errors.Is(err, ErrLoad))

	_, err = OpenTable(log.NewNopLogger(), "lineitem", []string{filepath.Join(dir, "lineitem.parquet")})
	assert.True(errors.Is(err, ErrLoad))

	_, err = OpenTable(log.NewNopLogger(), "orders", nil)
	assert.True(errors.Is(err, ErrLoad))
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	decode := func(node parquet.Node, v parquet.Value) (int, catalog.Value) {
		c, err := columnOf("c", node.Type())
		require.NoError(t, err)
		return c.field.Type, c.value(v)
	}

	ty, v := decode(parquet.Date(), parquet.Int32Value(9131))
	assert.Equal(catalog.TypeDate, ty)
	assert.Equal("1995-01-01", v.String())

	ty, v = decode(parquet.Timestamp(parquet.Millisecond), parquet.Int64Value(788961600000))
	assert.Equal(catalog.TypeDate, ty)
	assert.Equal("1995-01-01", v.String())

	ty, v = decode(parquet.Decimal(2, 9, parquet.Int32Type), parquet.Int32Value(12345))
	assert.Equal(catalog.TypeFloat, ty)
	assert.InDelta(123.45, v.Float, 1e-9)

	ty, v = decode(parquet.String(), parquet.ByteArrayValue([]byte("R")))
	assert.Equal(catalog.TypeString, ty)
	assert.Equal(catalog.String("R"), v)

	ty, v = decode(parquet.Leaf(parquet.BooleanType), parquet.BooleanValue(true))
	assert.Equal(catalog.TypeBool, ty)
	assert.Equal(catalog.Bool(true), v)

	_, v = decode(parquet.Leaf(parquet.DoubleType), parquet.NullValue())
	assert.True(v.Null)

	assert.InDelta(-1.5, bigDecimal([]byte{0xff, 0x6a}, 2).Float, 1e-9)

	_, err := columnOf("c", parquet.Leaf(parquet.Int96Type).Type())
	assert.True(errors.Is(err, ErrLoad))
}
