package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/dianpeng/qbench/bench"
	"github.com/dianpeng/qbench/catalog"
)

const (
	LoadChartFile  = "load_times.png"
	QueryChartFile = "query_times.png"
	PDFFile        = "report.pdf"

	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch

	pageWidth = 190.0 // mm inside the A4 margins
	rowHeight = 6.0
)

// Files is what Write left in the report directory.
type Files struct {
	LoadChart  string
	QueryChart string
	PDF        string
}

// Write renders both charts as PNG into dir, creating it when needed, and
// bundles them into a two page PDF: loads first, then queries.
func Write(dir string, rep *bench.Report) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(ErrRender, err.Error())
	}
	out := &Files{
		LoadChart:  filepath.Join(dir, LoadChartFile),
		QueryChart: filepath.Join(dir, QueryChartFile),
		PDF:        filepath.Join(dir, PDFFile),
	}

	lp, err := LoadChart(rep.Loads)
	if err != nil {
		return nil, err
	}
	if err := save(lp, out.LoadChart); err != nil {
		return nil, err
	}
	qp, err := QueryChart(rep.Experiments)
	if err != nil {
		return nil, err
	}
	if err := save(qp, out.QueryChart); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Query engine benchmark", false)

	loadRows := [][]string{}
	for _, l := range rep.Loads {
		row := []string{l.Table}
		for _, e := range catalog.Engines {
			row = append(row, seconds(l.Elapsed[e].Seconds(), l.Err[e]))
		}
		loadRows = append(loadRows, row)
	}
	page(pdf, "Load Times", out.LoadChart, header("Table", " Load (s)"), loadRows)

	queryRows := [][]string{}
	for _, x := range rep.Experiments {
		row := []string{x.Name}
		for _, e := range catalog.Engines {
			c := x.Cell(e)
			if c == nil {
				row = append(row, "-")
				continue
			}
			row = append(row, seconds(c.Elapsed.Seconds(), c.Err))
		}
		queryRows = append(queryRows, row)
	}
	page(pdf, "Query Times", out.QueryChart, header("Experiment", " Time (s)"), queryRows)

	if err := pdf.OutputFileAndClose(out.PDF); err != nil {
		return nil, errors.Wrap(ErrRender, err.Error())
	}
	return out, nil
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return errors.Wrapf(ErrRender, "%s: %s", path, err)
	}
	return nil
}

func header(first, suffix string) []string {
	out := []string{first}
	for _, e := range catalog.Engines {
		out = append(out, e.Title()+suffix)
	}
	return out
}

func seconds(s float64, err error) string {
	if err != nil {
		return fmt.Sprintf("<%s error>", bench.KindOf(err))
	}
	return fmt.Sprintf("%.6f", s)
}

func page(pdf *fpdf.Fpdf, title, chart string, head []string, rows [][]string) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(pageWidth, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.ImageOptions(chart, 10, pdf.GetY(), pageWidth, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(4)

	w := pageWidth / float64(len(head))
	pdf.SetFont("Helvetica", "B", 10)
	for _, h := range head {
		pdf.CellFormat(w, rowHeight, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		for i, v := range r {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(w, rowHeight, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}
