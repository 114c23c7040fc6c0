package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/putt.report/internal/trajectory"
)

func scatterData(p Paths, path trajectory.Path) []opts.ScatterData {
	data := make([]opts.ScatterData, 0, len(path))
	for _, pt := range path {
		if !pt.HasCoords() {
			continue
		}
		symbol := "circle"
		if pt.Predicted {
			symbol = "emptyCircle"
		}
		data = append(data, opts.ScatterData{Value: []interface{}{pt.X, p.flipY(pt.Y)}, Symbol: symbol})
	}
	return data
}

func newPathsScatter(p Paths) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: p.Title, Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: p.Title, Subtitle: p.subtitle()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: p.Width, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: p.Height, Name: "Distance (px)", NameLocation: "middle", NameGap: 35}),
	)

	scatter.AddSeries("reference", []opts.ScatterData{
		{Value: []interface{}{p.ReferenceX, 0}},
		{Value: []interface{}{p.ReferenceX, p.Height}},
	}, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))

	for i, path := range p.Attempts {
		scatter.AddSeries(fmt.Sprintf("attempt %d", i+1), scatterData(p, path),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColor(attemptColor(i))}))
	}
	if len(p.Current) > 0 {
		scatter.AddSeries("current", scatterData(p, p.Current),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#000000"}))
	}
	return scatter
}

func newDispersionBar(p Paths) *charts.Bar {
	labels := make([]string, len(p.Result.Attempts))
	data := make([]opts.BarData, len(p.Result.Attempts))
	for i, m := range p.Result.Attempts {
		labels[i] = fmt.Sprintf("attempt %d", i+1)
		data[i] = opts.BarData{Value: m.DispersionPx}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Dispersion per attempt", Subtitle: p.Result.Recommendation}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("dispersion (px)", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// RenderPathsChart writes an HTML page with the paths scatter chart and,
// when a result is present, a per-attempt dispersion bar chart.
func RenderPathsChart(w io.Writer, p Paths) error {
	if err := p.validate(); err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = p.Title
	page.AddCharts(newPathsScatter(p))
	if p.Result != nil && len(p.Result.Attempts) > 0 {
		page.AddCharts(newDispersionBar(p))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
