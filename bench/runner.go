package bench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/config"
	"github.com/dianpeng/qbench/exec"
	"github.com/dianpeng/qbench/loader"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
)

const DefaultTolerance = 1e-6

// Runner drives the engines one at a time so that no two timed calls
// overlap.
type Runner struct {
	logger    log.Logger
	backends  []exec.Backend
	timeout   time.Duration
	tolerance float64
}

// NewRunner takes the backends in report order. A zero timeout means
// queries may run forever.
func NewRunner(logger log.Logger, backends []exec.Backend, timeout time.Duration) *Runner {
	return &Runner{
		logger:    logger,
		backends:  backends,
		timeout:   timeout,
		tolerance: DefaultTolerance,
	}
}

// Run loads every table, then runs every experiment.
func (self *Runner) Run(ctx context.Context, c *config.Config) *Report {
	cat, loads := self.Load(ctx, c.DataPath, c.Tables)
	return &Report{
		Loads:       loads,
		Experiments: self.Experiments(ctx, cat, c.Experiments),
	}
}

// Load gives every table to every engine. A table some engine failed to load
// is dropped from all of them and left out of the catalog.
func (self *Runner) Load(ctx context.Context, dataPath string, tables []string) (*catalog.Catalog, []*LoadTiming) {
	cat := catalog.New()
	out := []*LoadTiming{}

	for _, t := range tables {
		lt := newLoadTiming(t)
		out = append(out, lt)

		files, err := loader.Files(dataPath, t)
		if err != nil {
			level.Error(self.logger).Log("msg", "cannot load table", "table", t, "err", err)
			for _, b := range self.backends {
				lt.Err[b.Engine()] = err
			}
			continue
		}

		loaded := map[catalog.Engine]catalog.Table{}
		for _, b := range self.backends {
			var tbl catalog.Table
			_, elapsed, err := Measure(func() (result.Result, error) {
				var err error
				tbl, err = b.Load(ctx, t, files)
				return nil, err
			})
			lt.Elapsed[b.Engine()] = elapsed

			if err != nil {
				lt.Err[b.Engine()] = err
				level.Error(self.logger).Log("msg", "cannot load table", "table", t, "engine", b.Engine(), "err", err)
				continue
			}
			loaded[b.Engine()] = tbl
			lt.Rows = tbl.NumRows()
			level.Info(self.logger).Log(
				"msg", fmt.Sprintf("Time taken to load %s data with %s", t, b.Engine().Title()),
				"seconds", elapsed.Seconds(),
				"rows", tbl.NumRows(),
			)
		}

		if !lt.Loaded() {
			for _, b := range self.backends {
				if _, ok := loaded[b.Engine()]; ok {
					if err := b.Drop(t); err != nil {
						level.Warn(self.logger).Log("msg", "cannot drop table", "table", t, "engine", b.Engine(), "err", err)
					}
				}
			}
			continue
		}
		for e, tbl := range loaded {
			cat.Register(t, e, tbl)
		}
	}
	level.Info(self.logger).Log("msg", "tables loaded", "tables", strings.Join(cat.Tables(), ","))
	return cat, out
}

// Experiments runs every experiment once on every engine.
func (self *Runner) Experiments(ctx context.Context, cat *catalog.Catalog, exps []config.Experiment) []*ExperimentResult {
	out := make([]*ExperimentResult, 0, len(exps))
	for _, e := range exps {
		out = append(out, self.experiment(ctx, cat, e))
	}
	return out
}

func (self *Runner) experiment(ctx context.Context, cat *catalog.Catalog, e config.Experiment) *ExperimentResult {
	logger := log.With(self.logger, "experiment", e.Name)
	tables := e.TableList()
	res := &ExperimentResult{Name: e.Name}

	var missing error
	for _, t := range tables {
		if !cat.Has(t) {
			level.Warn(logger).Log("msg", fmt.Sprintf("table %s not found in loaded data", t))
			if missing == nil {
				missing = errors.Wrapf(catalog.ErrTableNotFound, "%s", t)
			}
		}
	}
	if missing != nil {
		for _, b := range self.backends {
			res.Cells = append(res.Cells, &Cell{Engine: b.Engine(), Err: missing})
		}
		return res
	}

	q, err := plan.Compile(e.Name, e.Query, tables, cat)
	if err != nil {
		level.Warn(logger).Log("msg", "cannot classify query", "err", err)
	} else {
		res.Shape = q.Shape.Dump()
		kind := plan.ShapeName(q.Shape.Kind())
		if q.Shape.Kind() == plan.ShapeUnsupported {
			level.Info(logger).Log("msg", "query matches no known shape", "shape", kind, "detail", res.Shape)
		} else {
			level.Debug(logger).Log("msg", "classified", "shape", kind, "detail", res.Shape)
		}
		if j, ok := q.Shape.(*plan.EquiJoinFilter); ok {
			res.CountRows = j.Rows
		}
	}

	for _, b := range self.backends {
		res.Cells = append(res.Cells, self.cell(ctx, logger, cat, b, q))
	}
	res.Agreement = res.check(self.tolerance)
	if res.Agreement == Disagree {
		level.Warn(logger).Log("msg", "engines disagree")
	}
	return res
}

func (self *Runner) cell(
	ctx context.Context,
	logger log.Logger,
	cat *catalog.Catalog,
	b exec.Backend,
	q *plan.Query,
) *Cell {
	if self.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, self.timeout)
		defer cancel()
	}

	res, elapsed, err := Measure(func() (result.Result, error) {
		return b.Execute(ctx, cat, q)
	})
	c := &Cell{
		Engine:  b.Engine(),
		Elapsed: elapsed,
		Result:  res,
		Err:     err,
	}
	if err != nil {
		level.Warn(logger).Log("msg", "engine failed", "engine", b.Engine(), "kind", c.Kind(), "err", err)
	} else {
		level.Debug(logger).Log("msg", "engine answered", "engine", b.Engine(), "seconds", elapsed.Seconds(), "result", res.Summary())
	}
	return c
}
