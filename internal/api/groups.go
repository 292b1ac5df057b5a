package api

import (
	"fmt"
	"net/http"

	"github.com/fleet-data/completion.report/internal/groups"
	"github.com/fleet-data/completion.report/internal/httputil"
)

// groupEntry is one team with its currently assigned drivers.
type groupEntry struct {
	Label   string `json:"label"`
	TeamID  int    `json:"team_id"`
	Display string `json:"display"`
	Drivers []int  `json:"drivers"`
}

// handleGroups lists the known teams and their merged driver membership.
func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	merged := s.store.Merged()
	out := make([]groupEntry, 0, len(merged))
	for _, g := range s.store.Groups() {
		out = append(out, groupEntry{
			Label:   g.Label,
			TeamID:  g.TeamID,
			Display: g.Display,
			Drivers: merged[g.Label],
		})
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"groups": out})
}

// handleAssign moves a batch of operator-entered drivers into a group.
// Validation failures abort the whole batch before any store mutation.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	ids, err := groups.ParseDriverIDs(r.FormValue("drivers"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	target := r.FormValue("group")
	g, ok := s.store.Find(target)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("unknown group %q", target))
		return
	}

	if err := s.store.ReassignAll(ids, g.Label); err != nil {
		// The overlay file on disk is still the pre-call state.
		httputil.InternalServerError(w, fmt.Sprintf("failed to save group mapping: %v", err))
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"saved": len(ids),
		"group": g.Label,
	})
}
