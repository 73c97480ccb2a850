package columnar

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
)

type orderRow struct {
	OrderKey   int64   `parquet:"o_orderkey"`
	OrderDate  string  `parquet:"o_orderdate"`
	TotalPrice float64 `parquet:"o_totalprice"`
	Status     string  `parquet:"o_orderstatus"`
}

func rows(t *Table) [][]catalog.Value {
	out := [][]catalog.Value{}
	for i := 0; i < t.NumRows(); i++ {
		out = append(out, t.Row(i))
	}
	return out
}

func orders() *Table {
	return FromValues("orders", catalog.Schema{
		{Name: "o_orderkey", Type: catalog.TypeInt},
		{Name: "o_orderdate", Type: catalog.TypeDate},
		{Name: "o_totalprice", Type: catalog.TypeFloat},
	}, [][]catalog.Value{
		{catalog.Int(1), catalog.Date(9131), catalog.Float(10)},
		{catalog.Int(2), catalog.Date(9200), catalog.Float(20)},
		{catalog.Int(3), catalog.Null(catalog.TypeDate), catalog.Float(30)},
	})
}

func lineitem() *Table {
	return FromValues("lineitem", catalog.Schema{
		{Name: "l_orderkey", Type: catalog.TypeInt},
		{Name: "l_quantity", Type: catalog.TypeInt},
		{Name: "l_returnflag", Type: catalog.TypeString},
	}, [][]catalog.Value{
		{catalog.Int(1), catalog.Int(40), catalog.String("R")},
		{catalog.Int(1), catalog.Int(10), catalog.String("A")},
		{catalog.Int(2), catalog.Int(35), catalog.String("R")},
		{catalog.Int(9), catalog.Int(50), catalog.String("N")},
		{catalog.Null(catalog.TypeInt), catalog.Int(50), catalog.String("N")},
	})
}

func TestLoad(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_1.parquet"), []orderRow{
		{OrderKey: 1, OrderDate: "1995-01-01", TotalPrice: 10, Status: "F"},
		{OrderKey: 2, OrderDate: "garbage", TotalPrice: 20, Status: "O"},
	}))
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_2.parquet"), []orderRow{
		{OrderKey: 3, OrderDate: "1995-12-31", TotalPrice: 30, Status: "F"},
	}))

	tbl, err := Load(context.Background(), log.NewNopLogger(), "orders", []string{
		filepath.Join(dir, "order_1.parquet"),
		filepath.Join(dir, "order_2.parquet"),
	})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(3, tbl.NumRows())
	assert.Equal(catalog.TypeDate, tbl.Schema()[1].Type)
	assert.Equal(arrow.DATE32, tbl.Column(1).DataType().ID())
	assert.Equal(arrow.STRING, tbl.Column(3).DataType().ID())
	assert.Equal([][]catalog.Value{
		{catalog.Int(1), catalog.Date(9131), catalog.Float(10), catalog.String("F")},
		{catalog.Int(2), catalog.Null(catalog.TypeDate), catalog.Float(20), catalog.String("O")},
		{catalog.Int(3), catalog.Date(9495), catalog.Float(30), catalog.String("F")},
	}, rows(tbl))

	as := ArrowSchema(tbl.Schema())
	assert.Equal("o_orderdate", as.Field(1).Name)
	assert.Equal(arrow.DATE32, as.Field(1).Type.ID())
	assert.True(as.Field(1).Nullable)

	_, err = Load(context.Background(), log.NewNopLogger(), "orders", nil)
	assert.NotNil(err)
}

func TestFilter(t *testing.T) {
	assert := assert.New(t)
	o := orders()

	out, err := o.Filter(context.Background(), []plan.BoundPredicate{
		{Col: 1, Predicate: plan.Predicate{Column: "o_orderdate", Op: plan.OpGe, Value: 9131, Date: true}},
		{Col: 2, Predicate: plan.Predicate{Column: "o_totalprice", Op: plan.OpLt, Value: 20}},
	})
	assert.Nil(err)
	assert.Equal([][]catalog.Value{
		{catalog.Int(1), catalog.Date(9131), catalog.Float(10)},
	}, rows(out))

	// no condition keeps everything
	out, err = o.Filter(context.Background(), nil)
	assert.Nil(err)
	assert.Equal(3, out.NumRows())

	_, err = lineitem().Filter(context.Background(), []plan.BoundPredicate{
		{Col: 2, Predicate: plan.Predicate{Column: "l_returnflag", Op: plan.OpEq, Value: 1}},
	})
	assert.True(errors.Is(err, catalog.ErrSchemaMismatch))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Filter(ctx, []plan.BoundPredicate{{Col: 2, Predicate: plan.Predicate{Op: plan.OpGt}}})
	assert.True(errors.Is(err, context.Canceled))
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)

	out, err := orders().Join(context.Background(), lineitem(), 0, 0)
	assert.Nil(err)
	assert.Equal(6, len(out.Schema()))
	assert.Equal(3, out.NumRows())
	for _, r := range rows(out) {
		assert.Equal(r[0], r[3])
	}

	// float against int keys goes through the hashed path
	fl := FromValues("f", catalog.Schema{{Name: "k", Type: catalog.TypeFloat}}, [][]catalog.Value{
		{catalog.Float(2)},
		{catalog.Float(2.5)},
	})
	out, err = orders().Join(context.Background(), fl, 0, 0)
	assert.Nil(err)
	assert.Equal(1, out.NumRows())
	assert.Equal(catalog.Int(2), out.Row(0)[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = orders().Join(ctx, lineitem(), 0, 0)
	assert.True(errors.Is(err, context.Canceled))
}

func TestGroupBy(t *testing.T) {
	assert := assert.New(t)
	li := lineitem()

	out, err := li.GroupBy(context.Background(), []int{2}, []plan.BoundAgg{
		{Agg: plan.Agg{Func: plan.AggSum, Column: "l_quantity"}, Col: 1},
		{Agg: plan.Agg{Func: plan.AggCount}, Col: -1},
		{Agg: plan.Agg{Func: plan.AggMin, Column: "l_quantity"}, Col: 1},
	})
	assert.Nil(err)
	assert.Equal([]string{"l_returnflag", "sum(l_quantity)", "count(*)", "min(l_quantity)"}, out.Schema().Names())
	assert.Equal([][]catalog.Value{
		{catalog.String("A"), catalog.Int(10), catalog.Int(1), catalog.Int(10)},
		{catalog.String("N"), catalog.Int(100), catalog.Int(2), catalog.Int(50)},
		{catalog.String("R"), catalog.Int(75), catalog.Int(2), catalog.Int(35)},
	}, rows(out))

	empty := li.Take(nil)
	out, err = empty.GroupBy(context.Background(), nil, []plan.BoundAgg{
		{Agg: plan.Agg{Func: plan.AggCount}, Col: -1},
		{Agg: plan.Agg{Func: plan.AggSum, Column: "l_quantity"}, Col: 1},
	})
	assert.Nil(err)
	assert.Equal([][]catalog.Value{{catalog.Int(0), catalog.Null(catalog.TypeInt)}}, rows(out))

	out, err = li.GroupBy(context.Background(), []int{0}, []plan.BoundAgg{
		{Agg: plan.Agg{Func: plan.AggCount}, Col: -1},
	})
	assert.Nil(err)
	assert.Equal(4, out.NumRows())
	assert.True(out.Row(0)[0].Null)
}

func TestNormalizeDates(t *testing.T) {
	assert := assert.New(t)
	tbl := FromValues("t", catalog.Schema{
		{Name: "l_shipdate", Type: catalog.TypeString},
	}, [][]catalog.Value{
		{catalog.String("1995-01-01")},
		{catalog.String("bad")},
		{catalog.Null(catalog.TypeString)},
	})
	assert.Equal(1, tbl.NormalizeDates())
	assert.Equal(arrow.DATE32, tbl.Column(0).DataType().ID())
	assert.Equal([][]catalog.Value{
		{catalog.Date(9131)},
		{catalog.Null(catalog.TypeDate)},
		{catalog.Null(catalog.TypeDate)},
	}, rows(tbl))
	assert.Equal(0, tbl.NormalizeDates())
}
