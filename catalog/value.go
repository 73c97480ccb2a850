package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	TypeInt = iota
	TypeFloat
	TypeString
	TypeDate
	TypeBool
)

func TypeName(ty int) string {
	switch ty {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeDate:
		return "date"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsNumeric reports whether values of the type can take part in sum/compare
// arithmetic.
func IsNumeric(ty int) bool {
	return ty == TypeInt || ty == TypeFloat
}

const dateLayout = "2006-01-02"

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseDate turns an ISO date into the number of days since 1970-01-01. A
// trailing time component ("1995-01-01 00:00:00", "1995-01-01T00:00:00Z") is
// accepted and dropped.
func ParseDate(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		switch s[len(dateLayout)] {
		case ' ', 'T':
			s = s[:len(dateLayout)]
		}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid date %q", s)
	}
	return DaysOf(t), nil
}

func DaysOf(t time.Time) int32 {
	t = t.UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int32(d.Unix() / 86400)
}

func FormatDate(days int32) string {
	return epoch.AddDate(0, 0, int(days)).Format(dateLayout)
}

// Value is a single typed cell. Dates live in Int as a day number.
type Value struct {
	Type  int
	Null  bool
	Int   int64
	Float float64
	Str   string
}

func Null(ty int) Value     { return Value{Type: ty, Null: true} }
func Int(v int64) Value     { return Value{Type: TypeInt, Int: v} }
func Float(v float64) Value { return Value{Type: TypeFloat, Float: v} }
func String(v string) Value { return Value{Type: TypeString, Str: v} }
func Date(days int32) Value { return Value{Type: TypeDate, Int: int64(days)} }

func Bool(v bool) Value {
	if v {
		return Value{Type: TypeBool, Int: 1}
	}
	return Value{Type: TypeBool}
}

// AsFloat returns the numeric value of an int or float cell.
func (self Value) AsFloat() (float64, bool) {
	if self.Null {
		return 0, false
	}
	switch self.Type {
	case TypeInt:
		return float64(self.Int), true
	case TypeFloat:
		return self.Float, true
	default:
		return 0, false
	}
}

func (self Value) String() string {
	if self.Null {
		return "NULL"
	}
	switch self.Type {
	case TypeInt:
		return strconv.FormatInt(self.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(self.Float, 'f', 2, 64)
	case TypeString:
		return self.Str
	case TypeDate:
		return FormatDate(int32(self.Int))
	case TypeBool:
		return strconv.FormatBool(self.Int != 0)
	default:
		return fmt.Sprintf("<%d>", self.Type)
	}
}

// Key is a representation usable as a map key; int and float of the same
// magnitude collapse so that join keys of mixed width still match.
func (self Value) Key() string {
	if self.Null {
		return "\x00null"
	}
	switch self.Type {
	case TypeFloat:
		if self.Float == float64(int64(self.Float)) {
			return strconv.FormatInt(int64(self.Float), 10)
		}
		return strconv.FormatFloat(self.Float, 'g', -1, 64)
	default:
		return self.String()
	}
}

// Compare orders two non-NULL cells: numbers numerically across int and
// float, dates and bools by their Int, strings lexicographically. Values of
// unrelated types order by type.
func Compare(a, b Value) int {
	if x, ok := a.AsFloat(); ok {
		if y, ok := b.AsFloat(); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}
	if a.Type != b.Type {
		return a.Type - b.Type
	}
	switch a.Type {
	case TypeString:
		return strings.Compare(a.Str, b.Str)
	default:
		switch {
		case a.Int < b.Int:
			return -1
		case a.Int > b.Int:
			return 1
		default:
			return 0
		}
	}
}

// LessRow orders two rows of cells column by column, NULL first.
func LessRow(a, b []Value) bool {
	for i := range a {
		switch {
		case a[i].Null && b[i].Null:
			continue
		case a[i].Null:
			return true
		case b[i].Null:
			return false
		}
		if c := Compare(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}
