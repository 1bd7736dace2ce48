package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"wavebench/internal/benchmark"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteCharts saves one PNG bar chart of mean times per group that has a
// text chart, and returns the written paths in report order.
func WriteCharts(dir string, s Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory %s: %w", dir, err)
	}
	var paths []string
	for _, g := range s.Groups {
		if !g.Chart {
			continue
		}
		path := filepath.Join(dir, chartName(g))
		if err := writeGroupChart(path, g); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func chartName(g Group) string {
	parts := []string{string(g.Category), benchmark.ArtifactName(g.File)}
	if g.Scale != "" {
		parts = append(parts, benchmark.ArtifactName(g.Scale))
	}
	return strings.Join(parts, "_") + ".png"
}

func writeGroupChart(path string, g Group) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", g.Category, g.File)
	p.Y.Label.Text = "Mean time (ms)"

	var values plotter.Values
	var ticks []plot.Tick
	for _, e := range g.Entries {
		if e.MeanS <= 0 {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: float64(len(values)), Label: e.Library})
		values = append(values, e.MeanS*1000)
	}

	bar, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("failed to build chart for %s: %w", g.File, err)
	}
	bar.Color = color.RGBA{54, 162, 235, 255}
	p.Add(bar)

	p.X.Min = -0.5
	p.X.Max = float64(len(values)) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	width := vg.Length(max(len(values), 3)) * 1.5 * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
