// Package report renders diagnostic charts of a run: the diff distribution
// before and after exclusion, and compression by condition.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no values to plot")

const histogramBins = 20

// NewDiffHistogram overlays the diff distribution before and after the
// exclusion filter and marks the cutoff with a vertical line.
func NewDiffHistogram(title string, before, after []float64, cutoff float64) (*plot.Plot, error) {
	if len(before) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Path time - optimal time (s)"
	p.Y.Label.Text = "Trials"

	hBefore, err := plotter.NewHist(plotter.Values(before), histogramBins)
	if err != nil {
		return nil, fmt.Errorf("failed to bin unfiltered diffs: %w", err)
	}
	hBefore.FillColor = color.RGBA{R: 190, G: 190, B: 190, A: 255}
	p.Add(hBefore)
	p.Legend.Add("unfiltered", hBefore)

	ymax := 0.0
	for _, b := range hBefore.Bins {
		ymax = math.Max(ymax, b.Weight)
	}

	if len(after) > 0 {
		hAfter, err := plotter.NewHist(plotter.Values(after), histogramBins)
		if err != nil {
			return nil, fmt.Errorf("failed to bin filtered diffs: %w", err)
		}
		hAfter.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 160}
		p.Add(hAfter)
		p.Legend.Add("retained", hAfter)
	}

	if !math.IsNaN(cutoff) && !math.IsInf(cutoff, 0) {
		line, err := plotter.NewLine(plotter.XYs{{X: cutoff, Y: 0}, {X: cutoff, Y: ymax}})
		if err != nil {
			return nil, fmt.Errorf("failed to draw cutoff: %w", err)
		}
		line.Color = color.RGBA{R: 200, A: 255}
		line.Width = vg.Points(2)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("cutoff %.2f", cutoff), line)
	}
	p.Legend.Top = true
	return p, nil
}

// DiffHistogram renders NewDiffHistogram to w in format ("png", "svg",
// "pdf", ...).
func DiffHistogram(w io.Writer, format, title string, before, after []float64, cutoff float64) error {
	p, err := NewDiffHistogram(title, before, after, cutoff)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("failed to render histogram: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write histogram: %w", err)
	}
	return nil
}
