package catalog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Engine identifies one of the interchangeable backends under comparison.
type Engine int

const (
	RowEngine Engine = iota
	SqlEngine
	ColumnEngine
)

// Engines lists the backends in report order.
var Engines = []Engine{RowEngine, SqlEngine, ColumnEngine}

func (self Engine) String() string {
	switch self {
	case RowEngine:
		return "row"
	case SqlEngine:
		return "sql"
	case ColumnEngine:
		return "column"
	default:
		return fmt.Sprintf("engine(%d)", int(self))
	}
}

// Title is the human facing name used in report headers.
func (self Engine) Title() string {
	switch self {
	case RowEngine:
		return "Row"
	case SqlEngine:
		return "SQLite"
	case ColumnEngine:
		return "Arrow"
	default:
		return self.String()
	}
}

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
)

type Field struct {
	Name string
	Type int
}

type Schema []Field

func (self Schema) Index(name string) int {
	for i, f := range self {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (self Schema) Has(name string, ty int) bool {
	idx := self.Index(name)
	return idx >= 0 && self[idx].Type == ty
}

func (self Schema) Names() []string {
	out := make([]string, 0, len(self))
	for _, f := range self {
		out = append(out, f.Name)
	}
	return out
}

func (self Schema) Equal(other Schema) bool {
	if len(self) != len(other) {
		return false
	}
	for i := range self {
		if self[i] != other[i] {
			return false
		}
	}
	return true
}

func (self Schema) String() string {
	parts := make([]string, 0, len(self))
	for _, f := range self {
		parts = append(parts, fmt.Sprintf("%s:%s", f.Name, TypeName(f.Type)))
	}
	return strings.Join(parts, ", ")
}

// Require returns the index of a column, failing with ErrSchemaMismatch when
// the column is absent or, if any types are given, of none of those types.
func (self Schema) Require(table, name string, types ...int) (int, error) {
	idx := self.Index(name)
	if idx < 0 {
		return -1, errors.Wrapf(ErrSchemaMismatch, "column %s not in table %s", name, table)
	}
	if len(types) == 0 {
		return idx, nil
	}
	for _, ty := range types {
		if self[idx].Type == ty {
			return idx, nil
		}
	}
	return -1, errors.Wrapf(
		ErrSchemaMismatch,
		"column %s.%s has type %s",
		table,
		name,
		TypeName(self[idx].Type),
	)
}

// DateCandidates are the columns normalized to dates right after a load:
// columns that already are dates, and text columns named like one.
func DateCandidates(s Schema) []int {
	out := []int{}
	for i, f := range s {
		if f.Type == TypeDate || (f.Type == TypeString && strings.HasSuffix(f.Name, "date")) {
			out = append(out, i)
		}
	}
	return out
}

// Table is an engine specific, loaded table.
type Table interface {
	Name() string
	Schema() Schema
	NumRows() int
}

// Catalog maps a logical table name to one loaded copy per engine. It is
// populated once at startup and read-only afterwards.
type Catalog struct {
	order   []string
	entries map[string]map[Engine]Table
}

func New() *Catalog {
	return &Catalog{
		entries: make(map[string]map[Engine]Table),
	}
}

func (self *Catalog) Register(name string, engine Engine, table Table) {
	m, ok := self.entries[name]
	if !ok {
		m = make(map[Engine]Table)
		self.entries[name] = m
		self.order = append(self.order, name)
	}
	m[engine] = table
}

func (self *Catalog) Lookup(name string, engine Engine) (Table, error) {
	if m, ok := self.entries[name]; ok {
		if t, ok := m[engine]; ok {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrTableNotFound, "%s (%s engine)", name, engine)
}

func (self *Catalog) Has(name string) bool {
	_, ok := self.entries[name]
	return ok
}

// Schema returns the schema of any loaded copy of the table; all copies are
// loaded from the same files.
func (self *Catalog) Schema(name string) (Schema, bool) {
	m, ok := self.entries[name]
	if !ok {
		return nil, false
	}
	for _, e := range Engines {
		if t, ok := m[e]; ok {
			return t.Schema(), true
		}
	}
	return nil, false
}

// Tables returns the registered names in registration order.
func (self *Catalog) Tables() []string {
	return append([]string(nil), self.order...)
}
