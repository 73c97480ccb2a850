// Package report renders a bench.Report: always as console tables, and on
// request as charts bundled into a PDF.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/dianpeng/qbench/bench"
	"github.com/dianpeng/qbench/catalog"
)

const (
	experimentRule = 200
	loadRule       = 75
)

// Console prints the experiment and load matrices. Color follows the
// terminal unless NoColor is set.
type Console struct {
	w       io.Writer
	header  *color.Color
	failure *color.Color
	good    *color.Color
}

func NewConsole(w io.Writer, noColor bool) *Console {
	out := &Console{
		w:       w,
		header:  color.New(color.Bold),
		failure: color.New(color.FgRed),
		good:    color.New(color.FgGreen),
	}
	if noColor {
		out.header.DisableColor()
		out.failure.DisableColor()
		out.good.DisableColor()
	}
	return out
}

func (self *Console) Print(rep *bench.Report) {
	self.Experiments(rep.Experiments)
	self.Loads(rep.Loads)
}

func (self *Console) Experiments(exps []*bench.ExperimentResult) {
	fmt.Fprintln(self.w, "\nResults Summary:")

	head := []string{fmt.Sprintf("%-25s", "Experiment")}
	for _, e := range catalog.Engines {
		head = append(head, fmt.Sprintf("%-15s", e.Title()+" Time (s)"))
	}
	for _, e := range catalog.Engines {
		head = append(head, fmt.Sprintf("%-50s", e.Title()+" Result"))
	}
	head = append(head, "Consistent")
	self.header.Fprintln(self.w, strings.Join(head, " "))
	fmt.Fprintln(self.w, strings.Repeat("=", experimentRule))

	for _, x := range exps {
		line := []string{fmt.Sprintf("%-25s", x.Name)}
		for _, e := range catalog.Engines {
			var secs float64
			if c := x.Cell(e); c != nil {
				secs = c.Elapsed.Seconds()
			}
			line = append(line, fmt.Sprintf("%-15.6f", secs))
		}
		for _, e := range catalog.Engines {
			line = append(line, self.result(x.Cell(e)))
		}
		line = append(line, self.agreement(x.Agreement))
		fmt.Fprintln(self.w, strings.Join(line, " "))
	}
}

func (self *Console) result(c *bench.Cell) string {
	if c == nil {
		return fmt.Sprintf("%-50s", "-")
	}
	text := fmt.Sprintf("%-50s", c.Summary())
	if c.Err != nil {
		return self.failure.Sprint(text)
	}
	return text
}

func (self *Console) agreement(a int) string {
	switch a {
	case bench.Agree:
		return self.good.Sprint("yes")
	case bench.Disagree:
		return self.failure.Sprint("NO")
	default:
		return "-"
	}
}

func (self *Console) Loads(loads []*bench.LoadTiming) {
	fmt.Fprintln(self.w, "\nLoad Times:")

	head := []string{fmt.Sprintf("%-15s", "Table")}
	for _, e := range catalog.Engines {
		head = append(head, fmt.Sprintf("%-20s", e.Title()+" Load Time (s)"))
	}
	head = append(head, "Rows")
	self.header.Fprintln(self.w, strings.Join(head, " "))
	fmt.Fprintln(self.w, strings.Repeat("=", loadRule))

	for _, l := range loads {
		line := []string{fmt.Sprintf("%-15s", l.Table)}
		for _, e := range catalog.Engines {
			if err, ok := l.Err[e]; ok {
				line = append(line, self.failure.Sprintf("%-20s", fmt.Sprintf("<%s error>", bench.KindOf(err))))
				continue
			}
			line = append(line, fmt.Sprintf("%-20.6f", l.Elapsed[e].Seconds()))
		}
		if l.Loaded() {
			line = append(line, humanize.Comma(int64(l.Rows)))
		} else {
			line = append(line, "-")
		}
		fmt.Fprintln(self.w, strings.Join(line, " "))
	}
}
