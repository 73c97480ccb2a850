// Package bench times every engine on every table load and experiment and
// collects the outcome into a Report.
package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/exec"
	"github.com/dianpeng/qbench/loader"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
)

var ErrEngine = errors.New("engine failure")

// Kind sorts a failed cell for the report.
type Kind int

const (
	KindNone Kind = iota
	KindUnsupported
	KindMalformed
	KindLookup
	KindSchema
	KindLoad
	KindTimeout
	KindEngine
)

func (self Kind) String() string {
	switch self {
	case KindNone:
		return "ok"
	case KindUnsupported:
		return "unsupported"
	case KindMalformed:
		return "malformed"
	case KindLookup:
		return "lookup"
	case KindSchema:
		return "schema"
	case KindLoad:
		return "load"
	case KindTimeout:
		return "timeout"
	default:
		return "engine"
	}
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, exec.ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, plan.ErrMalformedQuery):
		return KindMalformed
	case errors.Is(err, catalog.ErrTableNotFound):
		return KindLookup
	case errors.Is(err, catalog.ErrSchemaMismatch):
		return KindSchema
	case errors.Is(err, loader.ErrLoad):
		return KindLoad
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	default:
		return KindEngine
	}
}

// Measure times fn alone. A panic in fn is turned into an ErrEngine.
func Measure(fn func() (result.Result, error)) (res result.Result, elapsed time.Duration, err error) {
	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			res = nil
			err = errors.Wrapf(ErrEngine, "panic: %v", r)
		}
	}()
	res, err = fn()
	return
}

// Cell is the outcome of one engine on one experiment.
type Cell struct {
	Engine  catalog.Engine
	Elapsed time.Duration
	Result  result.Result
	Err     error
}

func (self *Cell) Kind() Kind {
	return KindOf(self.Err)
}

// Summary is the result, or an error marker naming the kind of failure.
func (self *Cell) Summary() string {
	if self.Err != nil {
		return fmt.Sprintf("<%s error>", self.Kind())
	}
	if self.Result == nil {
		return "<none>"
	}
	return self.Result.Summary()
}

const (
	Unchecked = iota // fewer than two engines answered
	Agree
	Disagree
)

type ExperimentResult struct {
	Name      string
	Shape     string
	Cells     []*Cell // report engine order
	Agreement int

	// The query lists joined rows; the frame engines answer with their count
	// and a tabular answer is compared by its number of rows.
	CountRows bool
}

func (self *ExperimentResult) Cell(e catalog.Engine) *Cell {
	for _, c := range self.Cells {
		if c.Engine == e {
			return c
		}
	}
	return nil
}

func (self *ExperimentResult) answer(c *Cell) result.Result {
	if t, ok := c.Result.(*result.Table); ok && self.CountRows {
		return &result.Count{N: int64(len(t.Rows))}
	}
	return c.Result
}

// check compares every answer against the SQL engine's, or against the
// first answer when SQL failed.
func (self *ExperimentResult) check(tol float64) int {
	var ref *Cell
	if c := self.Cell(catalog.SqlEngine); c != nil && c.Err == nil && c.Result != nil {
		ref = c
	}
	answered := 0
	for _, c := range self.Cells {
		if c.Err != nil || c.Result == nil {
			continue
		}
		answered++
		if ref == nil {
			ref = c
		}
	}
	if answered < 2 {
		return Unchecked
	}
	for _, c := range self.Cells {
		if c.Err != nil || c.Result == nil || c == ref {
			continue
		}
		if !result.Equivalent(self.answer(ref), self.answer(c), tol) {
			return Disagree
		}
	}
	return Agree
}

type LoadTiming struct {
	Table   string
	Rows    int
	Elapsed map[catalog.Engine]time.Duration
	Err     map[catalog.Engine]error
}

func newLoadTiming(table string) *LoadTiming {
	return &LoadTiming{
		Table:   table,
		Elapsed: make(map[catalog.Engine]time.Duration),
		Err:     make(map[catalog.Engine]error),
	}
}

// Loaded reports whether every engine has the table.
func (self *LoadTiming) Loaded() bool {
	return len(self.Err) == 0
}

// Report is everything a run produced, in input order.
type Report struct {
	Experiments []*ExperimentResult
	Loads       []*LoadTiming
}
