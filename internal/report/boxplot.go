package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/temporal-compression/internal/filter"
)

// echartsAssetsHost serves the echarts scripts referenced by the HTML.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Group is one box of the compression boxplot.
type Group struct {
	Name   string
	Values []float64
}

// FiveNumber returns min, first quartile, median, third quartile and max
// of xs, using the same linear quantile rule as the exclusion filter.
func FiveNumber(xs []float64) ([5]float64, error) {
	var out [5]float64
	if len(xs) == 0 {
		return out, ErrNoData
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	out[0], out[4] = sorted[0], sorted[len(sorted)-1]
	for i, q := range []float64{0.25, 0.5, 0.75} {
		v, err := filter.Quantile(q, sorted, filter.Linear)
		if err != nil {
			return out, err
		}
		out[i+1] = v
	}
	return out, nil
}

// CompressionBoxPlot writes an HTML page with one box per group. Groups
// without values are drawn empty.
func CompressionBoxPlot(w io.Writer, title string, groups []Group) error {
	if len(groups) == 0 {
		return ErrNoData
	}
	names := make([]string, len(groups))
	data := make([]opts.BoxPlotData, len(groups))
	for i, g := range groups {
		names[i] = g.Name
		box, err := FiveNumber(g.Values)
		if err != nil {
			data[i] = opts.BoxPlotData{Name: g.Name}
			continue
		}
		data[i] = opts.BoxPlotData{Name: g.Name, Value: box[:]}
	}

	bp := charts.NewBoxPlot()
	bp.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "500px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "sim_time / path_time by condition"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Compression", NameLocation: "middle", NameGap: 40}),
	)
	bp.SetXAxis(names).AddSeries("compression", data)
	if err := bp.Render(w); err != nil {
		return fmt.Errorf("failed to render boxplot: %w", err)
	}
	return nil
}
