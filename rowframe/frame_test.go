package rowframe

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
	"github.com/dianpeng/qbench/plan"
)

type orderRow struct {
	OrderKey   int64   `parquet:"o_orderkey"`
	OrderDate  string  `parquet:"o_orderdate"`
	TotalPrice float64 `parquet:"o_totalprice"`
}

func orders() *Frame {
	return New("orders", catalog.Schema{
		{Name: "o_orderkey", Type: catalog.TypeInt},
		{Name: "o_orderdate", Type: catalog.TypeDate},
		{Name: "o_totalprice", Type: catalog.TypeFloat},
	}, []Row{
		{catalog.Int(1), catalog.Date(9131), catalog.Float(10)},
		{catalog.Int(2), catalog.Date(9200), catalog.Float(20)},
		{catalog.Int(3), catalog.Null(catalog.TypeDate), catalog.Float(30)},
	})
}

func lineitem() *Frame {
	return New("lineitem", catalog.Schema{
		{Name: "l_orderkey", Type: catalog.TypeInt},
		{Name: "l_quantity", Type: catalog.TypeInt},
		{Name: "l_returnflag", Type: catalog.TypeString},
	}, []Row{
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
		{OrderKey: 1, OrderDate: "1995-01-01", TotalPrice: 10},
		{OrderKey: 2, OrderDate: "garbage", TotalPrice: 20},
	}))
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "order_2.parquet"), []orderRow{
		{OrderKey: 3, OrderDate: "1995-12-31 00:00:00", TotalPrice: 30},
	}))

	f, err := Load(context.Background(), log.NewNopLogger(), "orders", []string{
		filepath.Join(dir, "order_1.parquet"),
		filepath.Join(dir, "order_2.parquet"),
	})
	require.NoError(t, err)

	assert.Equal("orders", f.Name())
	assert.Equal(3, f.NumRows())
	assert.Equal(catalog.TypeDate, f.Schema()[1].Type)
	assert.Equal(catalog.Date(9131), f.Rows[0][1])
	assert.True(f.Rows[1][1].Null)
	assert.Equal("1995-12-31", f.Rows[2][1].String())

	_, err = Load(context.Background(), log.NewNopLogger(), "orders", nil)
	assert.NotNil(err)
}

func TestNormalizeDates(t *testing.T) {
	assert := assert.New(t)
	f := New("t", catalog.Schema{
		{Name: "d_date", Type: catalog.TypeString},
		{Name: "name", Type: catalog.TypeString},
	}, []Row{
		{catalog.String("1995-01-01"), catalog.String("x")},
		{catalog.String("nope"), catalog.String("y")},
		{catalog.Null(catalog.TypeString), catalog.String("z")},
	})
	assert.Equal(1, f.NormalizeDates())
	assert.Equal(catalog.TypeDate, f.Schema()[0].Type)
	assert.Equal(catalog.TypeString, f.Schema()[1].Type)
	assert.Equal(catalog.Date(9131), f.Rows[0][0])
	assert.True(f.Rows[1][0].Null)
	assert.True(f.Rows[2][0].Null)
	assert.Equal(catalog.String("x"), f.Rows[0][1])

	// second run is a no-op
	assert.Equal(0, f.NormalizeDates())
}

func TestFilter(t *testing.T) {
	assert := assert.New(t)
	o := orders()

	p := plan.Predicate{Table: "orders", Column: "o_orderdate", Op: plan.OpGe, Value: 9150, Date: true}
	out, err := o.Filter(context.Background(), func(r Row) bool { return p.Eval(r[1]) })
	assert.Nil(err)
	assert.Equal(1, out.NumRows())
	assert.Equal(catalog.Int(2), out.Rows[0][0])
	assert.Equal(3, o.NumRows())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.Filter(ctx, func(Row) bool { return true })
	assert.True(errors.Is(err, context.Canceled))
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)

	out, err := orders().Join(context.Background(), lineitem(), 0, 0)
	assert.Nil(err)
	assert.Equal(6, len(out.Schema()))
	assert.Equal(3, out.NumRows())
	for _, r := range out.Rows {
		assert.Equal(r[0], r[3])
	}

	// the other way round gives the same pairs
	back, err := lineitem().Join(context.Background(), orders(), 0, 0)
	assert.Nil(err)
	assert.Equal(3, back.NumRows())

	// mixed int and float keys still match
	fl := New("f", catalog.Schema{{Name: "k", Type: catalog.TypeFloat}}, []Row{{catalog.Float(2)}})
	out, err = orders().Join(context.Background(), fl, 0, 0)
	assert.Nil(err)
	assert.Equal(1, out.NumRows())

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
		{Agg: plan.Agg{Func: plan.AggAvg, Column: "l_quantity"}, Col: 1},
		{Agg: plan.Agg{Func: plan.AggMax, Column: "l_orderkey"}, Col: 0},
	})
	assert.Nil(err)
	assert.Equal([]string{"l_returnflag", "sum(l_quantity)", "count(*)", "avg(l_quantity)", "max(l_orderkey)"}, out.Schema().Names())
	assert.Equal(catalog.TypeInt, out.Schema()[1].Type)
	assert.Equal(catalog.TypeFloat, out.Schema()[3].Type)
	assert.Equal([]Row{
		{catalog.String("A"), catalog.Int(10), catalog.Int(1), catalog.Float(10), catalog.Int(1)},
		{catalog.String("N"), catalog.Int(100), catalog.Int(2), catalog.Float(50), catalog.Int(9)},
		{catalog.String("R"), catalog.Int(75), catalog.Int(2), catalog.Float(37.5), catalog.Int(2)},
	}, out.Rows)

	// no key, one row even over no input
	empty := New("e", li.Schema(), nil)
	out, err = empty.GroupBy(context.Background(), nil, []plan.BoundAgg{
		{Agg: plan.Agg{Func: plan.AggCount}, Col: -1},
		{Agg: plan.Agg{Func: plan.AggSum, Column: "l_quantity"}, Col: 1},
	})
	assert.Nil(err)
	assert.Equal([]Row{{catalog.Int(0), catalog.Null(catalog.TypeInt)}}, out.Rows)

	// NULL keys form their own group, sorted first
	out, err = li.GroupBy(context.Background(), []int{0}, []plan.BoundAgg{
		{Agg: plan.Agg{Func: plan.AggCount}, Col: -1},
	})
	assert.Nil(err)
	assert.Equal(4, out.NumRows())
	assert.True(out.Rows[0][0].Null)
	assert.Equal([]Row{
		{catalog.Int(1), catalog.Int(2)},
		{catalog.Int(2), catalog.Int(1)},
		{catalog.Int(9), catalog.Int(1)},
	}, out.Rows[1:])
}
