package columnar

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/dianpeng/qbench/catalog"
)

var alloc = memory.NewGoAllocator()

func arrowType(ty int) arrow.DataType {
	switch ty {
	case catalog.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case catalog.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case catalog.TypeDate:
		return arrow.PrimitiveTypes.Date32
	case catalog.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// ArrowSchema maps a catalog schema onto arrow fields, all nullable.
func ArrowSchema(s catalog.Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s))
	for _, f := range s {
		fields = append(fields, arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

func newBuilder(ty int) array.Builder {
	return array.NewBuilder(alloc, arrowType(ty))
}

func appendValue(b array.Builder, v catalog.Value) {
	if v.Null {
		b.AppendNull()
		return
	}
	switch b := b.(type) {
	case *array.Int64Builder:
		b.Append(v.Int)
	case *array.Float64Builder:
		if f, ok := v.AsFloat(); ok {
			b.Append(f)
		} else {
			b.AppendNull()
		}
	case *array.Date32Builder:
		b.Append(arrow.Date32(v.Int))
	case *array.BooleanBuilder:
		b.Append(v.Int != 0)
	case *array.StringBuilder:
		b.Append(v.String())
	default:
		panic(fmt.Sprintf("unsupported builder %T", b))
	}
}

// valueAt reads one cell of an array.
func valueAt(a arrow.Array, i int) catalog.Value {
	switch a := a.(type) {
	case *array.Int64:
		if a.IsNull(i) {
			return catalog.Null(catalog.TypeInt)
		}
		return catalog.Int(a.Value(i))
	case *array.Float64:
		if a.IsNull(i) {
			return catalog.Null(catalog.TypeFloat)
		}
		return catalog.Float(a.Value(i))
	case *array.Date32:
		if a.IsNull(i) {
			return catalog.Null(catalog.TypeDate)
		}
		return catalog.Date(int32(a.Value(i)))
	case *array.Boolean:
		if a.IsNull(i) {
			return catalog.Null(catalog.TypeBool)
		}
		return catalog.Bool(a.Value(i))
	case *array.String:
		if a.IsNull(i) {
			return catalog.Null(catalog.TypeString)
		}
		return catalog.String(a.Value(i))
	default:
		panic(fmt.Sprintf("unsupported array %s", a.DataType()))
	}
}

// take gathers the cells at idx into a new array of the same type.
func take(a arrow.Array, idx []int) arrow.Array {
	b := array.NewBuilder(alloc, a.DataType())
	defer b.Release()
	b.Reserve(len(idx))

	switch src := a.(type) {
	case *array.Int64:
		dst := b.(*array.Int64Builder)
		for _, i := range idx {
			if src.IsNull(i) {
				dst.AppendNull()
			} else {
				dst.Append(src.Value(i))
			}
		}
	case *array.Float64:
		dst := b.(*array.Float64Builder)
		for _, i := range idx {
			if src.IsNull(i) {
				dst.AppendNull()
			} else {
				dst.Append(src.Value(i))
			}
		}
	case *array.Date32:
		dst := b.(*array.Date32Builder)
		for _, i := range idx {
			if src.IsNull(i) {
				dst.AppendNull()
			} else {
				dst.Append(src.Value(i))
			}
		}
	default:
		for _, i := range idx {
			appendValue(b, valueAt(a, i))
		}
	}
	return b.NewArray()
}

// numbers exposes a numeric or date array as float64 cells plus validity.
func numbers(a arrow.Array) (func(int) float64, bool) {
	switch a := a.(type) {
	case *array.Int64:
		return func(i int) float64 { return float64(a.Value(i)) }, true
	case *array.Float64:
		return func(i int) float64 { return a.Value(i) }, true
	case *array.Date32:
		return func(i int) float64 { return float64(a.Value(i)) }, true
	default:
		return nil, false
	}
}
