package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fleet-data/completion.report/internal/columns"
	"github.com/fleet-data/completion.report/internal/httputil"
	"github.com/fleet-data/completion.report/internal/ingest"
	"github.com/fleet-data/completion.report/internal/report"
)

// thresholds carries the operator-configured anomaly cutoffs.
type thresholds struct {
	LowCompletionPct float64 `json:"low_completion_pct"`
	InactiveHours    float64 `json:"inactive_hours"`
}

// uploadResponse is everything the display shell needs to render one
// processed upload.
type uploadResponse struct {
	RunID       string                 `json:"run_id"`
	ProcessedAt time.Time              `json:"processed_at"`
	Filename    string                 `json:"filename"`
	RowCount    int                    `json:"row_count"`
	Detected    columns.Resolution     `json:"detected_columns"`
	Preview     *ingest.Table          `json:"preview"`
	Overall     report.Overall         `json:"overall"`
	Summaries   []report.DriverSummary `json:"summaries"`
	Anomalies   []report.DriverSummary `json:"anomalies"`
	Unassigned  []report.DriverSummary `json:"unassigned"`
	Thresholds  thresholds             `json:"thresholds"`
}

// handleUpload processes one export file end to end: decode, resolve
// columns, parse, classify, aggregate, filter. Nothing about the upload is
// persisted; the response carries the complete result.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.GetMaxUploadBytes())
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "upload requires a spreadsheet in the \"file\" field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	thr, err := s.parseThresholds(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	table, err := ingest.Decode(header.Filename, data)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("failed to decode %s: %v", header.Filename, err))
		return
	}

	res := columns.Resolve(table.Columns, table.Sample())
	rep := report.Build(table, res, s.store)

	run := &uploadRun{
		RunID:      uuid.NewString(),
		At:         s.clock.Now(),
		Filename:   header.Filename,
		Resolution: res,
		Report:     rep,
	}
	s.setSnapshot(run)

	httputil.WriteJSONOK(w, uploadResponse{
		RunID:       run.RunID,
		ProcessedAt: run.At,
		Filename:    run.Filename,
		RowCount:    len(table.Rows),
		Detected:    res,
		Preview: &ingest.Table{
			Columns: table.Columns,
			Rows:    table.Preview(s.cfg.GetPreviewRows()),
		},
		Overall:    rep.Overall,
		Summaries:  rep.Summaries,
		Anomalies:  rep.Anomalies(thr.LowCompletionPct, thr.InactiveHours),
		Unassigned: rep.Unassigned(),
		Thresholds: thr,
	})
}

// parseThresholds reads the optional threshold form values, falling back to
// the configured defaults.
func (s *Server) parseThresholds(r *http.Request) (thresholds, error) {
	thr := thresholds{
		LowCompletionPct: s.cfg.GetLowCompletionPct(),
		InactiveHours:    s.cfg.GetInactiveHours(),
	}
	if v := r.FormValue("low_completion_pct"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return thr, fmt.Errorf("invalid low_completion_pct %q", v)
		}
		thr.LowCompletionPct = f
	}
	if v := r.FormValue("inactive_hours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return thr, fmt.Errorf("invalid inactive_hours %q", v)
		}
		thr.InactiveHours = f
	}
	return thr, nil
}
