package loader

import (
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
)

// decodeFunc turns one non-NULL parquet value of a column into a cell.
type decodeFunc func(v parquet.Value) catalog.Value

type column struct {
	field  catalog.Field
	decode decodeFunc
}

func (self column) value(v parquet.Value) catalog.Value {
	if v.IsNull() {
		return catalog.Null(self.field.Type)
	}
	return self.decode(v)
}

func scaled(unscaled float64, scale int32) catalog.Value {
	return catalog.Float(unscaled / math.Pow10(int(scale)))
}

// big endian two's complement, as parquet stores binary decimals
func bigDecimal(b []byte, scale int32) catalog.Value {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return scaled(f, scale)
}

func timestampDays(v int64, unit format.TimeUnit) catalog.Value {
	var t time.Time
	switch {
	case unit.Millis != nil:
		t = time.UnixMilli(v)
	case unit.Micros != nil:
		t = time.UnixMicro(v)
	default:
		t = time.Unix(0, v)
	}
	return catalog.Date(catalog.DaysOf(t))
}

// columnOf maps one flat parquet column onto a catalog field and a decoder.
func columnOf(name string, t parquet.Type) (column, error) {
	lt := t.LogicalType()
	if lt == nil {
		lt = &format.LogicalType{}
	}

	mk := func(ty int, fn decodeFunc) (column, error) {
		return column{
			field:  catalog.Field{Name: name, Type: ty},
			decode: fn,
		}, nil
	}

	switch t.Kind() {
	case parquet.Boolean:
		return mk(catalog.TypeBool, func(v parquet.Value) catalog.Value {
			return catalog.Bool(v.Boolean())
		})

	case parquet.Int32:
		switch {
		case lt.Date != nil:
			return mk(catalog.TypeDate, func(v parquet.Value) catalog.Value {
				return catalog.Date(v.Int32())
			})
		case lt.Decimal != nil:
			scale := lt.Decimal.Scale
			return mk(catalog.TypeFloat, func(v parquet.Value) catalog.Value {
				return scaled(float64(v.Int32()), scale)
			})
		default:
			return mk(catalog.TypeInt, func(v parquet.Value) catalog.Value {
				return catalog.Int(int64(v.Int32()))
			})
		}

	case parquet.Int64:
		switch {
		case lt.Timestamp != nil:
			unit := lt.Timestamp.Unit
			return mk(catalog.TypeDate, func(v parquet.Value) catalog.Value {
				return timestampDays(v.Int64(), unit)
			})
		case lt.Decimal != nil:
			scale := lt.Decimal.Scale
			return mk(catalog.TypeFloat, func(v parquet.Value) catalog.Value {
				return scaled(float64(v.Int64()), scale)
			})
		default:
			return mk(catalog.TypeInt, func(v parquet.Value) catalog.Value {
				return catalog.Int(v.Int64())
			})
		}

	case parquet.Float:
		return mk(catalog.TypeFloat, func(v parquet.Value) catalog.Value {
			return catalog.Float(float64(v.Float()))
		})

	case parquet.Double:
		return mk(catalog.TypeFloat, func(v parquet.Value) catalog.Value {
			return catalog.Float(v.Double())
		})

	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt.Decimal != nil {
			scale := lt.Decimal.Scale
			return mk(catalog.TypeFloat, func(v parquet.Value) catalog.Value {
				return bigDecimal(v.ByteArray(), scale)
			})
		}
		return mk(catalog.TypeString, func(v parquet.Value) catalog.Value {
			return catalog.String(string(v.ByteArray()))
		})

	default:
		return column{}, errors.Wrapf(ErrLoad, "column %s: unsupported physical type %s", name, t.Kind())
	}
}

// columnsOf maps the flat schema of a file. Nested and repeated columns
// are rejected.
func columnsOf(schema *parquet.Schema) ([]column, error) {
	out := []column{}
	for _, f := range schema.Fields() {
		if !f.Leaf() || f.Repeated() {
			return nil, errors.Wrapf(ErrLoad, "column %s: nested or repeated columns are not supported", f.Name())
		}
		// query identifiers are case folded
		c, err := columnOf(strings.ToLower(f.Name()), f.Type())
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
