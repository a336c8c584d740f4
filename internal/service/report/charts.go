package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"posturemonitor/internal/models"
)

// RenderCharts writes an HTML page with the hip angle over time, the number
// of rows per angle range and the share of time spent in each range.
func RenderCharts(w io.Writer, rows []models.LogRow, assetsHost string) error {
	summary := Summarize(rows)

	page := components.NewPage()
	page.PageTitle = "Hip Angle Analysis"
	if assetsHost != "" {
		page.SetAssetsHost(assetsHost)
	}
	page.AddCharts(
		angleLine(rows, assetsHost),
		rangeBar(summary, assetsHost),
		durationPie(summary, assetsHost),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func initOpts(title, assetsHost string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "100%", Height: "420px", AssetsHost: assetsHost}
}

func angleLine(rows []models.LogRow, assetsHost string) *charts.Line {
	x := make([]string, 0, len(rows))
	left := make([]opts.LineData, 0, len(rows))
	right := make([]opts.LineData, 0, len(rows))

	for _, row := range rows {
		x = append(x, row.Timestamp)
		point := opts.LineData{Value: row.HipAngle}
		empty := opts.LineData{Value: "-"}
		if row.Side == models.Left {
			left, right = append(left, point), append(right, empty)
		} else {
			left, right = append(left, empty), append(right, point)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Hip Angle Over Time", assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: "Hip Angle Over Time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "deg", Min: 0, Max: 180}),
	)
	line.SetXAxis(x).
		AddSeries("left", left).
		AddSeries("right", right)
	return line
}

func rangeBar(s Summary, assetsHost string) *charts.Bar {
	x := make([]string, 0, len(s.Ranges))
	y := make([]opts.BarData, 0, len(s.Ranges))
	for _, rt := range s.Ranges {
		x = append(x, rt.Range)
		y = append(y, opts.BarData{Value: rt.Frequency})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Distribution of Hip Angles", assetsHost)),
		charts.WithTitleOpts(opts.Title{
			Title:    "Distribution of Hip Angles",
			Subtitle: fmt.Sprintf("mean %.1f°, stddev %.1f°", s.AngleMean, s.AngleStdDev),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("samples", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func durationPie(s Summary, assetsHost string) *charts.Pie {
	items := make([]opts.PieData, 0, len(s.Ranges))
	for _, rt := range s.Ranges {
		items = append(items, opts.PieData{Name: rt.Range, Value: rt.Duration})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts("Time Spent in Each Angle Range", assetsHost)),
		charts.WithTitleOpts(opts.Title{Title: "Time Spent in Each Angle Range"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("duration", items,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}
