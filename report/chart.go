package report

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"

	"github.com/dianpeng/qbench/bench"
	"github.com/dianpeng/qbench/catalog"
)

var ErrRender = errors.New("report rendering error")

// LoadChart plots the load time of every table, one line per engine.
// Tables an engine failed to load have no point on its line.
func LoadChart(loads []*bench.LoadTiming) (*plot.Plot, error) {
	names := make([]string, 0, len(loads))
	series := make(map[catalog.Engine]plotter.XYs)
	for i, l := range loads {
		names = append(names, l.Table)
		for _, e := range catalog.Engines {
			if _, failed := l.Err[e]; failed {
				continue
			}
			series[e] = append(series[e], plotter.XY{X: float64(i), Y: l.Elapsed[e].Seconds()})
		}
	}
	return lineChart("Load time per table", "table", names, series)
}

// QueryChart plots the query time of every experiment, one line per engine.
// Failed cells are left out.
func QueryChart(exps []*bench.ExperimentResult) (*plot.Plot, error) {
	names := make([]string, 0, len(exps))
	series := make(map[catalog.Engine]plotter.XYs)
	for i, x := range exps {
		names = append(names, x.Name)
		for _, c := range x.Cells {
			if c.Err != nil {
				continue
			}
			series[c.Engine] = append(series[c.Engine], plotter.XY{X: float64(i), Y: c.Elapsed.Seconds()})
		}
	}
	return lineChart("Query time per experiment", "experiment", names, series)
}

func lineChart(
	title string,
	xlabel string,
	names []string,
	series map[catalog.Engine]plotter.XYs,
) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "seconds"
	p.Legend.Top = true

	lines := []interface{}{}
	for _, e := range catalog.Engines {
		if pts, ok := series[e]; ok && len(pts) > 0 {
			lines = append(lines, e.Title(), pts)
		}
	}
	if len(lines) > 0 {
		if err := plotutil.AddLinePoints(p, lines...); err != nil {
			return nil, errors.Wrap(ErrRender, err.Error())
		}
	}
	if len(names) > 0 {
		p.NominalX(names...)
	}
	return p, nil
}
