package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/factorpool/internal/frame"
)

// SaveGroupChart draws one cumulative-return line per group column and saves
// the chart as PNG at path
func SaveGroupChart(path, title string, groups *frame.Table) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "cumulative return"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())

	index := groups.Index()
	for i, col := range groups.Columns() {
		rets, _ := groups.Column(col)
		curve := Cumulative(rets)

		pts := make(plotter.XYs, len(curve))
		for j, c := range curve {
			pts[j].X = float64(index[j].Unix())
			pts[j].Y = c
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line %s: %w", col, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(col, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
