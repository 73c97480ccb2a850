package plan

import (
	"fmt"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/sql"
)

const (
	sideUnknown = iota
	sideLeft
	sideRight
)

func unsupported(format string, args ...interface{}) *Unsupported {
	return &Unsupported{Reason: fmt.Sprintf(format, args...)}
}

// clauses no shape carries
func checkClauses(stmt *sql.Select) *Unsupported {
	switch {
	case stmt.Distinct:
		return unsupported("distinct")
	case stmt.Having != nil:
		return unsupported("having")
	case stmt.Limit >= 0:
		return unsupported("limit")
	}
	return nil
}

func isCountStar(e sql.Expr) bool {
	c, ok := e.(*sql.Call)
	return ok && c.Name == "count" && c.Star
}

// aggCall reads f(col) out of a projection, count(*) included.
func aggCall(e sql.Expr) (Agg, bool) {
	c, ok := e.(*sql.Call)
	if !ok || c.Distinct {
		return Agg{}, false
	}
	fn, ok := aggFromName(c.Name)
	if !ok {
		return Agg{}, false
	}
	if c.Star {
		return Agg{Func: AggCount}, fn == AggCount
	}
	if len(c.Args) != 1 {
		return Agg{}, false
	}
	r, ok := c.Args[0].(*sql.Ref)
	if !ok {
		return Agg{}, false
	}
	return Agg{Func: fn, Column: r.Id}, true
}

func constValue(c *sql.Const) (float64, bool, bool) {
	if v, ok := c.AsNumber(); ok {
		return v, false, true
	}
	if c.Ty == sql.ConstStr {
		if d, err := catalog.ParseDate(c.String); err == nil {
			return float64(d), true, true
		}
	}
	return 0, false, false
}

// toPredicate converts "col op constant", or its mirror, into a Predicate.
func toPredicate(stmt *sql.Select, e sql.Expr) (Predicate, *Unsupported) {
	b, ok := e.(*sql.Binary)
	if !ok || !sql.IsCompareOp(b.Op) {
		return Predicate{}, unsupported("predicate %s", sql.PrintExpr(e))
	}

	tk := b.Op
	ref, lok := b.L.(*sql.Ref)
	cst, rok := b.R.(*sql.Const)
	if !lok || !rok {
		ref, lok = b.R.(*sql.Ref)
		cst, rok = b.L.(*sql.Const)
		tk = sql.FlipOp(tk)
	}
	if !lok || !rok {
		return Predicate{}, unsupported("predicate %s", sql.PrintExpr(e))
	}

	v, isDate, ok := constValue(cst)
	if !ok {
		return Predicate{}, unsupported("constant in predicate %s", sql.PrintExpr(e))
	}

	op, _ := opFromToken(tk)
	p := Predicate{
		Column: ref.Id,
		Op:     op,
		Value:  v,
		Date:   isDate,
	}
	if ref.Table != "" {
		if name, ok := stmt.ResolveTable(ref.Table); ok {
			p.Table = name
		} else {
			return Predicate{}, unsupported("unknown table %s", ref.Table)
		}
	}
	return p, nil
}

func wherePredicates(stmt *sql.Select) ([]Predicate, *Unsupported) {
	var out []Predicate
	for _, e := range sql.Conjuncts(stmt.Where) {
		p, bad := toPredicate(stmt, e)
		if bad != nil {
			return nil, bad
		}
		out = append(out, p)
	}
	return out, nil
}

func sideOf(
	stmt *sql.Select,
	ref *sql.Ref,
	left catalog.Schema,
	right catalog.Schema,
) int {
	if ref.Table != "" {
		switch ref.Table {
		case stmt.From.Ident():
			return sideLeft
		case stmt.Join.Table.Ident():
			return sideRight
		case stmt.From.Name:
			return sideLeft
		case stmt.Join.Table.Name:
			return sideRight
		}
		return sideUnknown
	}
	if left.Index(ref.Id) >= 0 {
		return sideLeft
	}
	if right.Index(ref.Id) >= 0 {
		return sideRight
	}
	return sideUnknown
}

func refineJoin(
	shape *EquiJoinFilter,
	stmt *sql.Select,
	schemas SchemaSource,
) Shape {
	if stmt.Join == nil {
		return shape
	}
	if bad := checkClauses(stmt); bad != nil {
		return bad
	}
	if len(stmt.GroupBy) > 0 {
		return unsupported("group by over a join")
	}
	rows, ok := joinProjection(stmt.Projection)
	if !ok {
		return unsupported("aggregation in a join projection other than count(*)")
	}

	on := sql.Conjuncts(stmt.Join.On)
	if len(on) != 1 {
		return unsupported("join on more than one key")
	}
	eq, ok := on[0].(*sql.Binary)
	if !ok || eq.Op != sql.TkEq {
		return unsupported("non equi join")
	}
	l, lok := eq.L.(*sql.Ref)
	r, rok := eq.R.(*sql.Ref)
	if !lok || !rok {
		return unsupported("join key is not a column")
	}

	ls, _ := lookupSchema(schemas, shape.LeftTable)
	rs, _ := lookupSchema(schemas, shape.RightTable)
	sl := sideOf(stmt, l, ls, rs)
	sr := sideOf(stmt, r, ls, rs)
	if (l.Table != "" && sl == sideUnknown) || (r.Table != "" && sr == sideUnknown) {
		return unsupported("unknown table in join condition")
	}
	if sl == sideRight || sr == sideLeft {
		l, r = r, l
	}

	filters, bad := wherePredicates(stmt)
	if bad != nil {
		return bad
	}

	return &EquiJoinFilter{
		LeftTable:  shape.LeftTable,
		RightTable: shape.RightTable,
		LeftKey:    l.Id,
		RightKey:   r.Id,
		Filters:    filters,
		Rows:       rows,
	}
}

// joinProjection tells a lone count(*) from a projection listing the joined
// rows. Any other aggregation is rejected.
func joinProjection(proj []*sql.Col) (rows bool, ok bool) {
	if len(proj) == 1 && !proj[0].Star && isCountStar(proj[0].Value) {
		return false, true
	}
	for _, c := range proj {
		if !c.Star && hasAgg(c.Value) {
			return false, false
		}
	}
	return true, true
}

func hasAgg(e sql.Expr) bool {
	switch v := e.(type) {
	case *sql.Call:
		if sql.IsAggFunc(v.Name) {
			return true
		}
		for _, a := range v.Args {
			if hasAgg(a) {
				return true
			}
		}
	case *sql.Unary:
		return hasAgg(v.Operand)
	case *sql.Binary:
		return hasAgg(v.L) || hasAgg(v.R)
	}
	return false
}

func refineGroup(shape *GroupAggregate, stmt *sql.Select) Shape {
	if bad := checkClauses(stmt); bad != nil {
		return bad
	}

	out := &GroupAggregate{
		Table: shape.Table,
	}
	for _, e := range stmt.GroupBy {
		r, ok := e.(*sql.Ref)
		if !ok {
			return unsupported("group by expression %s", sql.PrintExpr(e))
		}
		out.GroupCols = append(out.GroupCols, r.Id)
	}

	groupIndex := func(n string) int {
		for i, g := range out.GroupCols {
			if g == n {
				return i
			}
		}
		return -1
	}

	for _, c := range stmt.Projection {
		if c.Star {
			return unsupported("* in a grouped projection")
		}
		if r, ok := c.Value.(*sql.Ref); ok {
			idx := groupIndex(r.Id)
			if idx < 0 {
				return unsupported("column %s is not grouped", r.Id)
			}
			out.Output = append(out.Output, Output{Index: idx})
			continue
		}
		agg, ok := aggCall(c.Value)
		if !ok {
			return unsupported("projection %s", sql.PrintExpr(c.Value))
		}
		out.Output = append(out.Output, Output{IsAgg: true, Index: len(out.Aggs)})
		out.Aggs = append(out.Aggs, agg)
	}

	filters, bad := wherePredicates(stmt)
	if bad != nil {
		return bad
	}
	out.Filters = filters
	return out
}

func refineCount(shape *CountDateRange, stmt *sql.Select) Shape {
	if bad := checkClauses(stmt); bad != nil {
		return bad
	}

	out := &CountDateRange{
		Table: shape.Table,
	}

	proj := stmt.Projection
	if len(proj) == 0 || len(proj) > 2 || proj[0].Star || !isCountStar(proj[0].Value) {
		return unsupported("projection other than count(*) [, sum(col)]")
	}
	if len(proj) == 2 {
		agg, ok := aggCall(proj[1].Value)
		if proj[1].Star || !ok || agg.Func != AggSum {
			return unsupported("projection %s", sql.PrintExpr(proj[1].Value))
		}
		out.SumCol = agg.Column
	}

	preds, bad := wherePredicates(stmt)
	if bad != nil {
		return bad
	}

	hasLo, hasHi := false, false
	for _, p := range preds {
		if !p.Date || (out.DateCol != "" && p.Column != out.DateCol) || p.Op == OpNe {
			out.Filters = append(out.Filters, p)
			continue
		}
		out.DateCol = p.Column

		d := int32(p.Value)
		lo, hi := int32(0), int32(0)
		setLo, setHi := false, false
		switch p.Op {
		case OpGe:
			lo, setLo = d, true
		case OpGt:
			lo, setLo = d+1, true
		case OpLe:
			hi, setHi = d, true
		case OpLt:
			hi, setHi = d-1, true
		case OpEq:
			lo, hi, setLo, setHi = d, d, true, true
		}
		if setLo && (!hasLo || lo > out.Lo) {
			out.Lo, hasLo = lo, true
		}
		if setHi && (!hasHi || hi < out.Hi) {
			out.Hi, hasHi = hi, true
		}
	}

	if !hasLo || !hasHi {
		return unsupported("count(*) without a closed date range")
	}
	return out
}
