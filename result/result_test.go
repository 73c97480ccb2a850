package result

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dianpeng/qbench/catalog"
)

func TestSummary(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("2", (&Count{N: 2}).Summary())
	assert.Equal("(1, 172799.49)", (&CountSum{N: 1, Sum: catalog.Float(172799.49)}).Summary())
	assert.Equal("(0, NULL)", (&CountSum{Sum: catalog.Null(catalog.TypeFloat)}).Summary())

	assert.Equal("7", (&Table{
		Columns: []string{"count(*)"},
		Rows:    [][]catalog.Value{{catalog.Int(7)}},
	}).Summary())

	assert.Equal("2 rows: A|F|10.50; R|1995-01-01|3", (&Table{
		Columns: []string{"a", "b", "c"},
		Rows: [][]catalog.Value{
			{catalog.String("A"), catalog.String("F"), catalog.Float(10.5)},
			{catalog.String("R"), catalog.Date(9131), catalog.Int(3)},
		},
	}).Summary())

	long := &Table{Columns: []string{"a"}}
	for i := 0; i < 6; i++ {
		long.Rows = append(long.Rows, []catalog.Value{catalog.Int(int64(i))})
	}
	assert.Equal("6 rows: 0; 1; 2; 3; ...", long.Summary())
	assert.Equal("0 rows", (&Table{Columns: []string{"a", "b", "c"}}).Summary())
}

func TestEquivalent(t *testing.T) {
	assert := assert.New(t)

	// counts and their 1x1 table form
	assert.True(Equivalent(&Count{N: 2}, &Table{Rows: [][]catalog.Value{{catalog.Int(2)}}}, 1e-9))
	assert.False(Equivalent(&Count{N: 2}, &Count{N: 3}, 1e-9))

	// pairs, int against float sums
	pair := &CountSum{N: 1, Sum: catalog.Float(100)}
	assert.True(Equivalent(pair, &Table{Rows: [][]catalog.Value{{catalog.Int(1), catalog.Int(100)}}}, 1e-9))
	assert.True(Equivalent(pair, &CountSum{N: 1, Sum: catalog.Float(100.0000001)}, 1e-6))
	assert.False(Equivalent(pair, &CountSum{N: 1, Sum: catalog.Float(101)}, 1e-6))

	// a bare count against a pair compares the count only
	assert.True(Equivalent(&Table{Rows: [][]catalog.Value{{catalog.Int(1)}}}, pair, 1e-9))
	assert.True(Equivalent(pair, &Count{N: 1}, 1e-9))
	assert.False(Equivalent(pair, &Count{N: 2}, 1e-9))

	// tables ignore row order, dates match their ISO text
	a := &Table{Rows: [][]catalog.Value{
		{catalog.String("R"), catalog.Date(9131), catalog.Float(1.5)},
		{catalog.String("A"), catalog.Date(9132), catalog.Float(2.5)},
	}}
	b := &Table{Rows: [][]catalog.Value{
		{catalog.String("A"), catalog.String("1995-01-02"), catalog.Float(2.5)},
		{catalog.String("R"), catalog.String("1995-01-01"), catalog.Float(1.5)},
	}}
	assert.True(Equivalent(a, b, 1e-9))

	c := &Table{Rows: b.Rows[:1]}
	assert.False(Equivalent(a, c, 1e-9))

	// NULL only matches NULL
	assert.True(Equivalent(
		&CountSum{Sum: catalog.Null(catalog.TypeFloat)},
		&Table{Rows: [][]catalog.Value{{catalog.Int(0), catalog.Null(catalog.TypeInt)}}},
		1e-9,
	))
	assert.False(Equivalent(
		&CountSum{Sum: catalog.Float(0)},
		&Table{Rows: [][]catalog.Value{{catalog.Int(0), catalog.Null(catalog.TypeInt)}}},
		1e-9,
	))

	// bools against SQLite integers
	assert.True(Equivalent(
		&Table{Rows: [][]catalog.Value{{catalog.Bool(true)}}},
		&Table{Rows: [][]catalog.Value{{catalog.Int(1)}}},
		1e-9,
	))
}
