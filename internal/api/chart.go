package api

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fleet-data/completion.report/internal/httputil"
	"github.com/fleet-data/completion.report/internal/report"
)

// handleCompletionChart renders the per-driver completion bar chart for the
// most recent upload, one series per group so each team gets its own
// colour.
func (s *Server) handleCompletionChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	run := s.snapshot()
	if run == nil {
		httputil.NotFound(w, "no upload processed yet")
		return
	}

	summaries := append([]report.DriverSummary(nil), run.Report.Summaries...)
	// Highest completion first; drivers with no completion data sink to the
	// bottom of the chart.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].CompletionPct, summaries[j].CompletionPct
		if a.Valid != b.Valid {
			return a.Valid
		}
		return a.Value > b.Value
	})

	drivers := make([]string, len(summaries))
	groupOrder := make([]string, 0, 8)
	seen := map[string]bool{}
	for i, s := range summaries {
		drivers[i] = s.Driver
		if !seen[s.Group] {
			seen[s.Group] = true
			groupOrder = append(groupOrder, s.Group)
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Driver Completion",
			Width:     "100%",
			Height:    "720px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Completion Rate by Driver (%)",
			Subtitle: fmt.Sprintf("%s · run %s · %s", run.Filename, run.RunID, run.At.Format(time.RFC3339)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	bar.SetXAxis(drivers)
	for _, group := range groupOrder {
		series := make([]opts.BarData, len(summaries))
		for i, sum := range summaries {
			if sum.Group == group && sum.CompletionPct.Valid {
				series[i] = opts.BarData{Value: sum.CompletionPct.Value}
			} else {
				series[i] = opts.BarData{Value: nil}
			}
		}
		bar.AddSeries(group, series,
			charts.WithBarChartOpts(opts.BarChart{Stack: "completion"}),
		)
	}

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
