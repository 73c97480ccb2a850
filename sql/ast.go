package sql

const (
	ConstNull = iota
	ConstBool
	ConstStr
	ConstInt
	ConstReal
)

const (
	ExprConst = iota
	ExprRef
	ExprCall
	ExprUnary
	ExprBinary
)

const (
	OrderAsc = iota
	OrderDesc
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

type Expr interface {
	Type() int
	CInfo() CodeInfo
}

type Const struct {
	Ty       int
	Bool     bool
	String   string
	Real     float64
	Int      int64
	CodeInfo CodeInfo
}

// Ref is a column reference, optionally qualified by a table name or alias.
type Ref struct {
	Table    string
	Id       string
	CodeInfo CodeInfo
}

// Call is a function call, aggregation included. count(*) is a call with
// Star set and no arguments.
type Call struct {
	Name     string
	Star     bool
	Distinct bool
	Args     []Expr
	CodeInfo CodeInfo
}

type Unary struct {
	Op       int
	Operand  Expr
	CodeInfo CodeInfo
}

type Binary struct {
	Op       int
	L        Expr
	R        Expr
	CodeInfo CodeInfo
}

func (self *Const) Type() int       { return ExprConst }
func (self *Const) CInfo() CodeInfo { return self.CodeInfo }

func (self *Ref) Type() int       { return ExprRef }
func (self *Ref) CInfo() CodeInfo { return self.CodeInfo }

func (self *Call) Type() int       { return ExprCall }
func (self *Call) CInfo() CodeInfo { return self.CodeInfo }

func (self *Unary) Type() int       { return ExprUnary }
func (self *Unary) CInfo() CodeInfo { return self.CodeInfo }

func (self *Binary) Type() int       { return ExprBinary }
func (self *Binary) CInfo() CodeInfo { return self.CodeInfo }

// AsNumber returns the numeric value of an int or real constant.
func (self *Const) AsNumber() (float64, bool) {
	switch self.Ty {
	case ConstInt:
		return float64(self.Int), true
	case ConstReal:
		return self.Real, true
	default:
		return 0, false
	}
}

// Projection entry. Star is the bare '*'.
type Col struct {
	CodeInfo CodeInfo
	Star     bool
	As       string
	Value    Expr
}

type TableRef struct {
	CodeInfo CodeInfo
	Name     string
	Alias    string
}

// Ident returns the name the table is referred to by inside of the query.
func (self *TableRef) Ident() string {
	if self.Alias != "" {
		return self.Alias
	}
	return self.Name
}

type Join struct {
	CodeInfo CodeInfo
	Table    *TableRef
	On       Expr
}

type OrderBy struct {
	CodeInfo CodeInfo
	Order    int
	Name     []Expr
}

type Select struct {
	CodeInfo CodeInfo
	Distinct bool

	Projection []*Col
	From       *TableRef
	Join       *Join
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    *OrderBy
	Limit      int64 // -1 when absent
}

// Tables returns every table reference in clause order.
func (self *Select) Tables() []*TableRef {
	out := []*TableRef{self.From}
	if self.Join != nil {
		out = append(out, self.Join.Table)
	}
	return out
}

// ResolveTable maps an alias or table name used inside of the query to the
// table name.
func (self *Select) ResolveTable(ident string) (string, bool) {
	for _, t := range self.Tables() {
		if t.Alias == ident || (t.Alias == "" && t.Name == ident) {
			return t.Name, true
		}
	}
	for _, t := range self.Tables() {
		if t.Name == ident {
			return t.Name, true
		}
	}
	return "", false
}

// Conjuncts flattens a tree of AND into its operands.
func Conjuncts(e Expr) []Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*Binary); ok && b.Op == TkAnd {
		return append(Conjuncts(b.L), Conjuncts(b.R)...)
	}
	return []Expr{e}
}
