// Package exec runs one classified query on one engine. The row and column
// engines reproduce the query's shape with their own operators; the SQL
// engine gets the text.
package exec

import (
	"context"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
)

var ErrUnsupported = errors.New("unsupported query shape")

// Backend is one engine: it loads its own copy of every table and answers
// queries against the catalog entries it registered.
type Backend interface {
	Engine() catalog.Engine
	Load(ctx context.Context, table string, files []string) (catalog.Table, error)
	Drop(table string) error
	Execute(ctx context.Context, cat *catalog.Catalog, q *plan.Query) (result.Result, error)
	Close() error
}

// New creates the backend of one engine.
func New(engine catalog.Engine, logger log.Logger) (Backend, error) {
	logger = log.With(logger, "engine", engine)
	switch engine {
	case catalog.RowEngine:
		return &rowBackend{logger: logger}, nil
	case catalog.SqlEngine:
		return newSqlBackend(logger)
	case catalog.ColumnEngine:
		return &columnBackend{logger: logger}, nil
	default:
		return nil, errors.Errorf("unknown engine %d", int(engine))
	}
}

// All creates the backends of every engine, in report order.
func All(logger log.Logger) ([]Backend, error) {
	out := []Backend{}
	for _, e := range catalog.Engines {
		b, err := New(e, logger)
		if err != nil {
			for _, prev := range out {
				prev.Close()
			}
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// shapeOf is the shape a frame engine has to reproduce.
func shapeOf(q *plan.Query) (plan.Shape, error) {
	if q.Err != nil {
		return nil, q.Err
	}
	if u, ok := q.Shape.(*plan.Unsupported); ok {
		return nil, errors.Wrap(ErrUnsupported, u.Dump())
	}
	return q.Shape, nil
}
