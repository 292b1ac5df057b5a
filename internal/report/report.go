// Package report turns a decoded upload into the driver-level summary
// table, the overall completion metrics, and the anomaly and unassigned
// views the dashboard renders. Everything here is scoped to one upload;
// nothing is persisted.
package report

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/fleet-data/completion.report/internal/columns"
	"github.com/fleet-data/completion.report/internal/fields"
	"github.com/fleet-data/completion.report/internal/groups"
	"github.com/fleet-data/completion.report/internal/ingest"
)

// Resolver maps a raw driver identifier cell to a group label. Satisfied by
// *groups.Store.
type Resolver interface {
	Resolve(raw string) string
}

// Row is one parsed and classified observation from the upload.
type Row struct {
	Driver        string       `json:"driver"`
	Group         string       `json:"group"`
	ToBe          int          `json:"to_be"`
	Total         int          `json:"total"`
	Delivered     int          `json:"delivered"`
	Completion    fields.Float `json:"completion"`
	InactiveHours fields.Float `json:"inactive_hours"`
}

// DriverSummary is one aggregated row per distinct (driver, group) in the
// upload: mean completion, summed package counts, and the worst observed
// inactivity.
type DriverSummary struct {
	Driver        string       `json:"driver"`
	Group         string       `json:"group"`
	CompletionPct fields.Float `json:"completion_pct"`
	Delivered     int          `json:"delivered"`
	ToBe          int          `json:"to_be"`
	Total         int          `json:"total"`
	InactiveHours fields.Float `json:"inactive_hours"`
	InactiveLabel string       `json:"inactive_time"`
}

// Overall holds the headline metrics across the whole upload.
type Overall struct {
	CompletionRate    float64 `json:"completion_rate"` // delivered/total, 0 when total is 0
	TotalPackages     int     `json:"total_packages"`
	DeliveredPackages int     `json:"delivered_packages"`
	RemainingPackages int     `json:"remaining_packages"`
}

// Report is the full result of processing one upload.
type Report struct {
	Rows      []Row           `json:"rows"`
	Summaries []DriverSummary `json:"summaries"`
	Overall   Overall         `json:"overall"`
}

// Build parses, classifies and aggregates the uploaded table using the
// resolved column selectors. Group is re-derived per row, so the grouping
// key is (driver, group); with the store invariant holding, each driver
// lands in exactly one summary row.
func Build(table *ingest.Table, res columns.Resolution, resolver Resolver) *Report {
	r := &Report{Rows: make([]Row, 0, len(table.Rows))}

	type agg struct {
		summary     DriverSummary
		completions []float64
	}
	accs := make(map[[2]string]*agg)

	for _, raw := range table.Rows {
		driver := ingest.Cell(raw, res.Driver.Index)
		toBe, total, delivered := fields.ParseRatio(ingest.Cell(raw, res.Ratio.Index))
		row := Row{
			Driver:        driver,
			Group:         resolver.Resolve(driver),
			ToBe:          toBe,
			Total:         total,
			Delivered:     delivered,
			Completion:    fields.ParsePercent(ingest.Cell(raw, res.Completion.Index)),
			InactiveHours: fields.ParseHours(ingest.Cell(raw, res.Inactive.Index)),
		}
		r.Rows = append(r.Rows, row)

		key := [2]string{row.Driver, row.Group}
		a, ok := accs[key]
		if !ok {
			a = &agg{summary: DriverSummary{Driver: row.Driver, Group: row.Group}}
			accs[key] = a
		}
		a.summary.ToBe += row.ToBe
		a.summary.Total += row.Total
		a.summary.Delivered += row.Delivered
		if row.Completion.Valid {
			a.completions = append(a.completions, row.Completion.Value)
		}
		if row.InactiveHours.Valid {
			cur := a.summary.InactiveHours
			if !cur.Valid || row.InactiveHours.Value > cur.Value {
				a.summary.InactiveHours = row.InactiveHours
			}
		}
	}

	for _, a := range accs {
		// Mean over present samples only; all-missing stays missing.
		if len(a.completions) > 0 {
			a.summary.CompletionPct = fields.Of(stat.Mean(a.completions, nil))
		}
		a.summary.InactiveLabel = fields.FormatHours(a.summary.InactiveHours)
		r.Summaries = append(r.Summaries, a.summary)
	}

	sort.Slice(r.Summaries, func(i, j int) bool {
		return lessDriver(r.Summaries[i], r.Summaries[j])
	})

	for _, s := range r.Summaries {
		r.Overall.TotalPackages += s.Total
		r.Overall.DeliveredPackages += s.Delivered
		r.Overall.RemainingPackages += s.ToBe
	}
	if r.Overall.TotalPackages > 0 {
		r.Overall.CompletionRate =
			float64(r.Overall.DeliveredPackages) / float64(r.Overall.TotalPackages)
	}

	return r
}

// lessDriver orders summaries by driver id, numerically where both ids
// parse, with group label as the tie break.
func lessDriver(a, b DriverSummary) bool {
	if a.Driver != b.Driver {
		ai, aerr := strconv.Atoi(a.Driver)
		bi, berr := strconv.Atoi(b.Driver)
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return a.Driver < b.Driver
	}
	return a.Group < b.Group
}

// Anomalies returns the summaries flagged by the two-predicate threshold
// test, sorted ascending by completion rate. A missing completion or
// inactivity value never satisfies its comparison, so such rows cannot be
// flagged.
func (r *Report) Anomalies(lowCompletionPct, inactiveHours float64) []DriverSummary {
	var out []DriverSummary
	for _, s := range r.Summaries {
		if !s.InactiveHours.Valid || !s.CompletionPct.Valid {
			continue
		}
		if s.InactiveHours.Value >= inactiveHours && s.CompletionPct.Value < lowCompletionPct {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletionPct.Value < out[j].CompletionPct.Value
	})
	return out
}

// Unassigned returns the summaries of drivers absent from the group
// mapping, for operator follow-up.
func (r *Report) Unassigned() []DriverSummary {
	var out []DriverSummary
	for _, s := range r.Summaries {
		if s.Group == groups.Unassigned {
			out = append(out, s)
		}
	}
	return out
}
