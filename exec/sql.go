package exec

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dianpeng/qbench/catalog"
	"github.com/dianpeng/qbench/plan"
	"github.com/dianpeng/qbench/result"
	"github.com/dianpeng/qbench/sqlengine"
)

type sqlBackend struct {
	logger log.Logger
	db     *sqlengine.DB
}

func newSqlBackend(logger log.Logger) (*sqlBackend, error) {
	db, err := sqlengine.Open(logger)
	if err != nil {
		return nil, err
	}
	return &sqlBackend{
		logger: logger,
		db:     db,
	}, nil
}

func (self *sqlBackend) Engine() catalog.Engine { return catalog.SqlEngine }
func (self *sqlBackend) Close() error           { return self.db.Close() }
func (self *sqlBackend) Drop(table string) error {
	return self.db.Drop(table)
}

func (self *sqlBackend) Load(ctx context.Context, table string, files []string) (catalog.Table, error) {
	t, err := self.db.Load(ctx, table, files)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Execute runs the text as written, whatever its shape. The declared tables
// must still be loaded.
func (self *sqlBackend) Execute(ctx context.Context, cat *catalog.Catalog, q *plan.Query) (result.Result, error) {
	for _, t := range q.Tables {
		if _, err := cat.Lookup(t, catalog.SqlEngine); err != nil {
			return nil, err
		}
	}
	if q.Err != nil {
		level.Debug(self.logger).Log("msg", "running unclassified query", "experiment", q.Name, "err", q.Err)
	}
	res, err := self.db.Query(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	return res, nil
}
