package bench

import (
	"fmt"
	"image/color"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vegasq/shardstat/output"
)

// MinTimesFile is the name WriteCSV's output conventionally gets.
const MinTimesFile = "min_times.csv"

// WriteCSV writes the timing table to path.
func (r *Report) WriteCSV(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return output.NewCSVFormatter(f).Format(r.Table())
}

// Plot draws the minimum time of each variant as a horizontal bar chart
// and saves it to path. The image format follows the extension.
func (r *Report) Plot(path string) error {
	if len(r.Timings) == 0 {
		return fmt.Errorf("no timings to plot")
	}

	// the first variant is drawn at the top
	n := len(r.Timings)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, tm := range r.Timings {
		values[n-1-i] = tm.Min.Seconds()
		labels[n-1-i] = tm.Variant.Name()
	}

	p := plot.New()
	p.Title.Text = "Minimum run time"
	p.X.Label.Text = "Run time (sec)"
	p.X.Min = 0
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = color.RGBA{R: 255, G: 140, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	height := vg.Length(n)*0.4*vg.Inch + vg.Inch
	if err := p.Save(6*vg.Inch, height, path); err != nil {
		return fmt.Errorf("failed to save plot to %s: %w", path, err)
	}
	return nil
}
