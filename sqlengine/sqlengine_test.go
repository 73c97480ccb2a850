package sqlengine

import (
	"context"
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
}

type lineRow struct {
	OrderKey int64 `parquet:"l_orderkey"`
	Quantity int32 `parquet:"l_quantity"`
}

func setup(t *testing.T) (*DB, string) {
	dir := t.TempDir()
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order.parquet"), []orderRow{
		{OrderKey: 1, OrderDate: "1994-12-31", TotalPrice: 10},
		{OrderKey: 2, OrderDate: "1995-06-15 00:00:00", TotalPrice: 172799.49},
		{OrderKey: 3, OrderDate: "later", TotalPrice: 5},
	}))
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "lineitem.parquet"), []lineRow{
		{OrderKey: 1, Quantity: 10},
		{OrderKey: 2, Quantity: 31},
		{OrderKey: 2, Quantity: 45},
	}))

	db, err := Open(log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, dir
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)
	db, dir := setup(t)

	tbl, err := db.Load(context.Background(), "orders", []string{filepath.Join(dir, "order.parquet")})
	require.NoError(t, err)
	assert.Equal("orders", tbl.Name())
	assert.Equal(3, tbl.NumRows())
	assert.Equal(catalog.Schema{
		{Name: "o_orderkey", Type: catalog.TypeInt},
		{Name: "o_orderdate", Type: catalog.TypeDate},
		{Name: "o_totalprice", Type: catalog.TypeFloat},
	}, tbl.Schema())

	res, err := db.Query(context.Background(), "SELECT o_orderdate FROM orders ORDER BY o_orderkey")
	assert.Nil(err)
	assert.Equal([][]catalog.Value{
		{catalog.String("1994-12-31")},
		{catalog.String("1995-06-15")},
		{catalog.Null(catalog.TypeString)},
	}, res.Rows)

	// a second load of the same name fails, the first copy stays
	_, err = db.Load(context.Background(), "orders", []string{filepath.Join(dir, "order.parquet")})
	assert.True(errors.Is(err, ErrQuery))

	assert.Nil(db.Drop("orders"))
	_, err = db.Query(context.Background(), "SELECT * FROM orders")
	assert.True(errors.Is(err, ErrQuery))
}

func TestQuery(t *testing.T) {
	assert := assert.New(t)
	db, dir := setup(t)

	_, err := db.Load(context.Background(), "orders", []string{filepath.Join(dir, "order.parquet")})
	require.NoError(t, err)
	_, err = db.Load(context.Background(), "lineitem", []string{filepath.Join(dir, "lineitem.parquet")})
	require.NoError(t, err)

	res, err := db.Query(
		context.Background(),
		"SELECT COUNT(*), SUM(o_totalprice) FROM orders o WHERE o_orderdate BETWEEN '1995-01-01' AND '1995-12-31'",
	)
	assert.Nil(err)
	assert.Equal([]string{"COUNT(*)", "SUM(o_totalprice)"}, res.Columns)
	assert.Equal([][]catalog.Value{{catalog.Int(1), catalog.Float(172799.49)}}, res.Rows)

	res, err = db.Query(
		context.Background(),
		"SELECT COUNT(*) FROM orders o JOIN lineitem l ON o.o_orderkey = l.l_orderkey WHERE l.l_quantity > 30;",
	)
	assert.Nil(err)
	assert.Equal([][]catalog.Value{{catalog.Int(2)}}, res.Rows)

	_, err = db.Query(context.Background(), "SELECT 1; SELECT 2")
	assert.True(errors.Is(err, ErrQuery))

	_, err = db.Query(context.Background(), "SELEC nothing")
	assert.True(errors.Is(err, ErrQuery))

	_, err = db.Query(context.Background(), "   ")
	assert.True(errors.Is(err, ErrQuery))
}

func TestLoadFailure(t *testing.T) {
	assert := assert.New(t)
	db, dir := setup(t)

	_, err := db.Load(context.Background(), "customer", []string{filepath.Join(dir, "customer.parquet")})
	assert.NotNil(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = db.Load(ctx, "orders", []string{filepath.Join(dir, "order.parquet")})
	assert.True(errors.Is(err, context.Canceled))

	// nothing is left behind
	_, err = db.Query(context.Background(), "SELECT * FROM orders")
	assert.True(errors.Is(err, ErrQuery))
}
