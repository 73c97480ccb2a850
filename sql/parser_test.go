package sql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doTestSelect(lhs, rhs string, assert *assert.Assertions) {
	v, err := Parse(rhs)
	if err != nil {
		print(fmt.Sprintf("%s\n", err))
	}
	assert.True(err == nil)
	if v != nil {
		assert.Equal(lhs, PrintSelect(v))
	}
}

func doTestSelectFail(rhs string, assert *assert.Assertions) error {
	v, err := Parse(rhs)
	assert.Nil(v)
	assert.NotNil(err)
	return err
}

func TestSelect1(t *testing.T) {
	assert := assert.New(t)

	doTestSelect(
		"select count(*) from orders as o where ((o_orderdate >= '1995-01-01') and (o_orderdate <= '1995-12-31'))",
		"SELECT COUNT(*) FROM orders o WHERE o_orderdate BETWEEN '1995-01-01' AND '1995-12-31'",
		assert)

	doTestSelect(
		"select count(*) from orders as o join lineitem as l on (o.o_orderkey = l.l_orderkey) where (l.l_quantity > 30)",
		"select count(*) from orders o join lineitem l on o.o_orderkey = l.l_orderkey where l.l_quantity > 30",
		assert)

	doTestSelect(
		"select count(*) from orders as o join lineitem as l on (o.o_orderkey = l.l_orderkey)",
		"select count(*) from orders AS o inner join lineitem AS l on o.o_orderkey = l.l_orderkey;",
		assert)

	doTestSelect(
		"select l_returnflag, l_linestatus, sum(l_quantity) as sum_qty, sum(l_extendedprice) from lineitem group by l_returnflag, l_linestatus order by l_returnflag desc limit 10",
		"SELECT l_returnflag, l_linestatus, SUM(l_quantity) AS sum_qty, sum(l_extendedprice) FROM lineitem GROUP BY l_returnflag, l_linestatus ORDER BY l_returnflag DESC LIMIT 10;",
		assert)

	doTestSelect(
		"select distinct a, b as c from t having (count(*) > 1)",
		"select distinct a, b c from t having count(*) > 1",
		assert)

	doTestSelect(
		"select * from orders where (o_orderdate >= '1995-01-01')",
		"select * from orders where o_orderdate >= date '1995-01-01'",
		assert)
}

func TestExpr(t *testing.T) {
	assert := assert.New(t)

	doTestSelect(
		"select ((a + (b * 2)) - 1) from t",
		"select a + b * 2 - 1 from t",
		assert)

	doTestSelect(
		"select a from t where (not ((a = 1) or (a = 2)) and (b != -3))",
		"select a from t where a not in (1, 2) and b <> -3",
		assert)

	doTestSelect(
		"select a from t where not ((a >= 1) and (a <= 2.5))",
		"select a from t where a not between 1 and 2.5",
		assert)

	doTestSelect(
		"select a from t where (((a = 1) or (b = 2)) and (c = true))",
		"select a from t where (a = 1 or b = 2) and c = TRUE",
		assert)

	doTestSelect(
		"select count(distinct a), f() from t where (x = null)",
		"select count(distinct a), f() from t where x = NULL",
		assert)
}

func TestSelectFail(t *testing.T) {
	assert := assert.New(t)

	err := doTestSelectFail("select a from", assert)
	assert.Contains(err.Error(), "around position(1: 14)")

	doTestSelectFail("update t set a = 1", assert)
	doTestSelectFail("select a from t left join x on a = b", assert)
	doTestSelectFail("select a from t join x on a = b join y on b = c", assert)
	doTestSelectFail("select a from t join x", assert)
	doTestSelectFail("select a from t where", assert)
	doTestSelectFail("select a from t )", assert)
	doTestSelectFail("select a from t limit x", assert)
	doTestSelectFail("select a from t where a not like 'x'", assert)
	doTestSelectFail("select a from t where a between 1", assert)
	doTestSelectFail("select a from t where b = 'open", assert)
}

func TestSelectHelper(t *testing.T) {
	assert := assert.New(t)

	s, err := Parse("select count(*) from orders o join lineitem on o.o_orderkey = l_orderkey where l_quantity > 30 and o_totalprice < 10")
	assert.Nil(err)

	tbs := s.Tables()
	assert.Len(tbs, 2)
	assert.Equal("o", tbs[0].Ident())
	assert.Equal("lineitem", tbs[1].Ident())

	n, ok := s.ResolveTable("o")
	assert.True(ok)
	assert.Equal("orders", n)
	n, ok = s.ResolveTable("orders")
	assert.True(ok)
	assert.Equal("orders", n)
	n, ok = s.ResolveTable("lineitem")
	assert.True(ok)
	assert.Equal("lineitem", n)
	_, ok = s.ResolveTable("x")
	assert.False(ok)

	conj := Conjuncts(s.Where)
	assert.Len(conj, 2)
	assert.Equal("(l_quantity > 30)", PrintExpr(conj[0]))
	assert.Equal("(o_totalprice < 10)", PrintExpr(conj[1]))
	assert.Len(Conjuncts(nil), 0)

	assert.Equal(TkGt, FlipOp(TkLt))
	assert.True(IsCompareOp(TkNe))
	assert.True(IsAggFunc("sum"))
	assert.False(IsAggFunc("lower"))
}
