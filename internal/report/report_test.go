package report

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fleet-data/completion.report/internal/columns"
	"github.com/fleet-data/completion.report/internal/fields"
	"github.com/fleet-data/completion.report/internal/groups"
	"github.com/fleet-data/completion.report/internal/ingest"
)

// mapResolver classifies drivers from a fixed map; anything else is
// unassigned.
type mapResolver map[string]string

func (m mapResolver) Resolve(raw string) string {
	if g, ok := m[raw]; ok {
		return g
	}
	return groups.Unassigned
}

var exportColumns = []string{"Driver ID", "To Be Delivered/Total", "Completion", "Inactive Time"}

func buildReport(t *testing.T, rows [][]string, resolver Resolver) *Report {
	t.Helper()
	table := &ingest.Table{Columns: exportColumns, Rows: rows}
	res := columns.Resolve(table.Columns, table.Sample())
	return Build(table, res, resolver)
}

func TestAggregationReductions(t *testing.T) {
	// Driver 100 has two observations: completion [80, missing], inactive
	// [2h, 5h]. Mean ignores the missing sample; max picks the worst
	// inactivity.
	r := buildReport(t, [][]string{
		{"100", "10/50", "80%", "02:00:00"},
		{"100", "5/25", "", "05:00:00"},
	}, mapResolver{"100": "TJ (11)"})

	if len(r.Summaries) != 1 {
		t.Fatalf("got %d summary rows, want 1", len(r.Summaries))
	}
	s := r.Summaries[0]

	if !s.CompletionPct.Valid || s.CompletionPct.Value != 80 {
		t.Errorf("completion = %+v, want 80 (missing ignored)", s.CompletionPct)
	}
	if !s.InactiveHours.Valid || s.InactiveHours.Value != 5 {
		t.Errorf("inactive = %+v, want max 5", s.InactiveHours)
	}
	if s.ToBe != 15 || s.Total != 75 || s.Delivered != 60 {
		t.Errorf("sums = to_be %d, total %d, delivered %d; want 15, 75, 60", s.ToBe, s.Total, s.Delivered)
	}
	if s.InactiveLabel != "5h 0m 0s" {
		t.Errorf("inactive label = %q", s.InactiveLabel)
	}
}

func TestAggregationAllMissingStaysMissing(t *testing.T) {
	r := buildReport(t, [][]string{
		{"100", "10/50", "", "bad"},
		{"100", "5/25", "N/A", ""},
	}, mapResolver{})

	s := r.Summaries[0]
	if s.CompletionPct.Valid {
		t.Errorf("completion = %+v, want missing (not zero)", s.CompletionPct)
	}
	if s.InactiveHours.Valid {
		t.Errorf("inactive = %+v, want missing", s.InactiveHours)
	}
	if s.InactiveLabel != "N/A" {
		t.Errorf("inactive label = %q, want N/A", s.InactiveLabel)
	}
}

func TestAnomalyPredicateIgnoresMissing(t *testing.T) {
	// Missing completion with long inactivity must not be flagged: missing
	// compares false, it is not coerced to 0.
	r := buildReport(t, [][]string{
		{"100", "10/50", "", "06:00:00"},
	}, mapResolver{})

	if flagged := r.Anomalies(80, 3.0); len(flagged) != 0 {
		t.Errorf("flagged %d drivers, want 0", len(flagged))
	}
}

func TestAnomaliesSortedAscendingByCompletion(t *testing.T) {
	r := buildReport(t, [][]string{
		{"1", "50/100", "70%", "05:00:00"},
		{"2", "50/100", "30%", "05:00:00"},
		{"3", "50/100", "50%", "05:00:00"},
		{"4", "50/100", "95%", "05:00:00"}, // above threshold, not flagged
	}, mapResolver{})

	flagged := r.Anomalies(80, 3.0)
	var got []string
	for _, s := range flagged {
		got = append(got, s.Driver)
	}
	if diff := cmp.Diff([]string{"2", "3", "1"}, got); diff != "" {
		t.Errorf("anomaly order (-want +got):\n%s", diff)
	}
}

func TestEndToEndScenario(t *testing.T) {
	r := buildReport(t, [][]string{
		{"100", "50/100", "40%", "04:00:00"},
		{"200", "90/100", "90%", "00:10:00"},
	}, mapResolver{"100": "SPEEDY (2, 9, 20)", "200": "ANDY (10, 17, 19)"})

	if len(r.Summaries) != 2 {
		t.Fatalf("got %d summary rows, want 2", len(r.Summaries))
	}

	d100 := r.Summaries[0]
	if d100.Driver != "100" || d100.Delivered != 50 || d100.CompletionPct.Value != 40 ||
		d100.InactiveHours.Value != 4.0 {
		t.Errorf("driver 100 summary = %+v", d100)
	}
	// The ratio cell is to-be over total, so "90/100" leaves 10 delivered
	// even though the completion column reads 90%. The two columns are
	// independent inputs and are reported as such.
	d200 := r.Summaries[1]
	if d200.Driver != "200" || d200.ToBe != 90 || d200.Delivered != 10 || d200.CompletionPct.Value != 90 {
		t.Errorf("driver 200 summary = %+v", d200)
	}
	if math.Abs(d200.InactiveHours.Value-10.0/60) > 1e-9 {
		t.Errorf("driver 200 inactive = %v, want ~0.167", d200.InactiveHours.Value)
	}

	flagged := r.Anomalies(80, 3.0)
	if len(flagged) != 1 || flagged[0].Driver != "100" {
		t.Errorf("flagged = %+v, want only driver 100", flagged)
	}
}

func TestOverallMetrics(t *testing.T) {
	r := buildReport(t, [][]string{
		{"100", "50/100", "40%", "04:00:00"},
		{"200", "10/100", "90%", "00:10:00"},
	}, mapResolver{})

	want := Overall{
		CompletionRate:    140.0 / 200.0,
		TotalPackages:     200,
		DeliveredPackages: 140,
		RemainingPackages: 60,
	}
	if diff := cmp.Diff(want, r.Overall); diff != "" {
		t.Errorf("overall metrics (-want +got):\n%s", diff)
	}
}

func TestOverallMetricsEmptyUpload(t *testing.T) {
	r := buildReport(t, nil, mapResolver{})
	if r.Overall.CompletionRate != 0 {
		t.Errorf("completion rate on empty upload = %v, want 0", r.Overall.CompletionRate)
	}
}

func TestUnassignedSubset(t *testing.T) {
	r := buildReport(t, [][]string{
		{"100", "50/100", "40%", "04:00:00"},
		{"200", "90/100", "90%", "00:10:00"},
		{"not-a-driver", "1/2", "50%", "00:00:00"},
	}, mapResolver{"100": "TJ (11)"})

	un := r.Unassigned()
	if len(un) != 2 {
		t.Fatalf("unassigned = %d rows, want 2", len(un))
	}
	for _, s := range un {
		if s.Group != groups.Unassigned {
			t.Errorf("unassigned row has group %q", s.Group)
		}
	}
}

func TestSummariesSortedNumerically(t *testing.T) {
	r := buildReport(t, [][]string{
		{"1000", "1/2", "50%", "00:00:00"},
		{"9", "1/2", "50%", "00:00:00"},
		{"200", "1/2", "50%", "00:00:00"},
	}, mapResolver{})

	var got []string
	for _, s := range r.Summaries {
		got = append(got, s.Driver)
	}
	if diff := cmp.Diff([]string{"9", "200", "1000"}, got); diff != "" {
		t.Errorf("summary order (-want +got):\n%s", diff)
	}
}

func TestInconsistentClassificationSplitsRows(t *testing.T) {
	// Group is part of the grouping key. If classification were to differ
	// between rows of one driver the summaries split; this is an accepted
	// edge, exercised here with a resolver that cannot happen in production.
	calls := 0
	flip := resolverFunc(func(raw string) string {
		calls++
		if calls%2 == 0 {
			return "B"
		}
		return "A"
	})

	r := buildReport(t, [][]string{
		{"100", "1/2", "50%", "00:00:00"},
		{"100", "1/2", "50%", "00:00:00"},
	}, flip)

	if len(r.Summaries) != 2 {
		t.Errorf("got %d summary rows, want 2 split rows", len(r.Summaries))
	}
}

type resolverFunc func(string) string

func (f resolverFunc) Resolve(raw string) string { return f(raw) }

var _ Resolver = (*groups.Store)(nil)

func TestMissingValueJSONShapeInSummary(t *testing.T) {
	s := DriverSummary{CompletionPct: fields.Missing, InactiveHours: fields.Of(2)}
	if s.CompletionPct.Valid {
		t.Fatal("zero Float must be missing")
	}
}
