package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
)

// ErrNothingToPlot is returned by WritePlot without results.
var ErrNothingToPlot = errors.New("no results to plot")

const (
	chartWidth  = "100%"
	chartHeight = "520px"
	lineWidth   = 2
)

// WritePlot renders the live-memory profile of each result as one line of an
// HTML chart, with the schedule position on the x axis.
func WritePlot(w io.Writer, title string, results ...*linearize.Result) error {
	if len(results) == 0 {
		return ErrNothingToPlot
	}

	steps := 0
	for _, res := range results {
		steps = max(steps, len(res.Profile))
	}

	labels := make([]string, steps)
	for k := range labels {
		labels[k] = strconv.Itoa(k)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "live intermediate memory after each operator (bytes)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}, opts.DataZoom{Type: "inside"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "position"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "bytes"}),
	)
	line.SetXAxis(labels)

	for _, res := range results {
		data := make([]opts.LineData, len(res.Profile))
		for k, v := range res.Profile {
			data[k] = opts.LineData{Value: v}
		}

		line.AddSeries(fmt.Sprintf("%s (peak %.0f)", res.Strategy, res.Peak), data,
			charts.WithLineChartOpts(opts.LineChart{Step: "end"}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}
