package sql

func IsAggFunc(n string) bool {
	switch n {
	case "min", "max", "sum", "avg", "count":
		return true
	default:
		return false
	}
}

// OpName returns the surface spelling of a binary or unary operator token.
func OpName(tk int) string {
	switch tk {
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkLt:
		return "<"
	case TkLe:
		return "<="
	case TkGt:
		return ">"
	case TkGe:
		return ">="
	case TkEq:
		return "="
	case TkNe:
		return "!="
	case TkAnd:
		return "and"
	case TkOr:
		return "or"
	case TkNot:
		return "not"
	default:
		return "?"
	}
}

// FlipOp mirrors a comparison so that "3 < x" can be read as "x > 3".
func FlipOp(tk int) int {
	switch tk {
	case TkLt:
		return TkGt
	case TkLe:
		return TkGe
	case TkGt:
		return TkLt
	case TkGe:
		return TkLe
	default:
		return tk
	}
}

func IsCompareOp(tk int) bool {
	switch tk {
	case TkLt, TkLe, TkGt, TkGe, TkEq, TkNe:
		return true
	default:
		return false
	}
}
