// Package groups owns the persistent driver-to-group mapping.
//
// The mapping has two layers: a compiled-in table of known teams and an
// operator-entered overlay persisted as a JSON file. Only the overlay is
// ever written to disk; defaults live in the binary. The store is the sole
// authority for the single-membership invariant: a driver id belongs to at
// most one group at any time, enforced inside Reassign rather than at call
// sites.
package groups

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fleet-data/completion.report/internal/fsutil"
	"github.com/fleet-data/completion.report/internal/monitoring"
)

// Unassigned is the sentinel group label for drivers absent from the merged
// mapping, including non-numeric driver identifiers.
const Unassigned = "UNASSIGNED"

// Group is one organisational team drivers can be assigned to.
type Group struct {
	Label   string `json:"label"`   // short label used in summaries and the overlay file
	TeamID  int    `json:"team_id"` // upstream dispatch team id
	Display string `json:"display"` // operator-facing selector label
	Members []int  `json:"-"`       // seeded members, merged under the overlay
}

// Defaults is the compiled-in team table. Driver membership normally arrives
// through the operator overlay; the seeded member sets ship empty.
var Defaults = []Group{
	{Label: "ANDY (10, 17, 19)", TeamID: 849, Display: "ANDY (Team 849 | Routes 10, 17, 19)"},
	{Label: "ULTIMILE (12)", TeamID: 853, Display: "ULTIMILE (Team 853 | Route 12)"},
	{Label: "DING DONG (3, 6)", TeamID: 600, Display: "DING DONG (Team 600 | Routes 3, 6)"},
	{Label: "SPEEDY (2, 9, 20)", TeamID: 369, Display: "SPEEDY (Team 369 | Routes 2, 9, 20)"},
	{Label: "TJ (11)", TeamID: 1337, Display: "TJ (Team 1337 | Route 11)"},
}

// Store manages the merged mapping and its persisted overlay.
type Store struct {
	mu       sync.Mutex
	path     string
	fs       fsutil.FileSystem
	defaults []Group
	overlay  map[string][]int // group label -> sorted driver ids
	evicted  map[int]bool     // seeded members reassigned away from their default group
}

// NewStore creates a store over the overlay file at path, seeded with the
// compiled-in Defaults, and loads any existing overlay. Load failures are
// absorbed: a missing or corrupt overlay leaves the dashboard usable with
// defaults only.
func NewStore(path string, fs fsutil.FileSystem) *Store {
	return NewStoreWithDefaults(path, fs, Defaults)
}

// NewStoreWithDefaults is NewStore with an explicit default table.
func NewStoreWithDefaults(path string, fs fsutil.FileSystem, defaults []Group) *Store {
	s := &Store{
		path:     path,
		fs:       fs,
		defaults: defaults,
		overlay:  make(map[string][]int),
		evicted:  make(map[int]bool),
	}
	s.load()
	return s
}

// load reads the persisted overlay. Any read or parse failure degrades to an
// empty overlay rather than an error.
func (s *Store) load() {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return
	}
	var overlay map[string][]int
	if err := json.Unmarshal(data, &overlay); err != nil {
		monitoring.Logf("groups: ignoring unparseable overlay %s: %v", s.path, err)
		return
	}
	for label, ids := range overlay {
		s.overlay[label] = dedupSorted(ids)
	}
}

// Groups returns the known teams in their defined order.
func (s *Store) Groups() []Group {
	out := make([]Group, len(s.defaults))
	copy(out, s.defaults)
	return out
}

// Find locates a known group by its label or display label.
func (s *Store) Find(name string) (Group, bool) {
	for _, g := range s.defaults {
		if g.Label == name || g.Display == name {
			return g, true
		}
	}
	return Group{}, false
}

// Merged returns the effective mapping: per group, the union of the seeded
// member set and the overlay set, ids sorted. Overlay groups that are not in
// the default table are included so a hand-edited overlay round-trips.
func (s *Store) Merged() map[string][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergedLocked()
}

func (s *Store) mergedLocked() map[string][]int {
	merged := make(map[string][]int)
	for _, g := range s.defaults {
		var ids []int
		for _, id := range g.Members {
			if !s.evicted[id] {
				ids = append(ids, id)
			}
		}
		ids = append(ids, s.overlay[g.Label]...)
		merged[g.Label] = dedupSorted(ids)
	}
	for label, ids := range s.overlay {
		if _, ok := merged[label]; !ok {
			merged[label] = dedupSorted(ids)
		}
	}
	return merged
}

// Resolve maps a raw driver identifier cell to its group label. Identifiers
// that do not parse as integers resolve to Unassigned without error.
func (s *Store) Resolve(raw string) string {
	id, ok := parseDriverID(raw)
	if !ok {
		return Unassigned
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Persisted entries take precedence over seeded membership on conflict.
	for _, g := range s.defaults {
		if containsID(s.overlay[g.Label], id) {
			return g.Label
		}
	}
	for label, ids := range s.overlay {
		if _, known := s.Find(label); !known && containsID(ids, id) {
			return label
		}
	}
	for _, g := range s.defaults {
		if containsID(g.Members, id) && !s.evicted[id] {
			return g.Label
		}
	}
	return Unassigned
}

// Reassign moves a single driver into target, evicting it from every other
// group, and persists the overlay.
func (s *Store) Reassign(driverID int, target string) error {
	return s.ReassignAll([]int{driverID}, target)
}

// ReassignAll moves a batch of drivers into target. The operation is atomic
// with respect to both the on-disk overlay and the single-membership
// invariant: on save failure neither the in-memory mapping nor the prior
// overlay file is modified.
func (s *Store) ReassignAll(driverIDs []int, target string) error {
	if len(driverIDs) == 0 {
		return fmt.Errorf("no driver ids to assign")
	}
	g, ok := s.Find(target)
	if !ok {
		return fmt.Errorf("unknown group %q", target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string][]int, len(s.overlay)+1)
	for label, ids := range s.overlay {
		kept := ids[:0:0]
		for _, id := range ids {
			if !containsID(driverIDs, id) {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			next[label] = kept
		}
	}
	next[g.Label] = dedupSorted(append(append([]int(nil), next[g.Label]...), driverIDs...))

	if err := s.save(next); err != nil {
		return err
	}
	s.overlay = next
	// Seeded default membership cannot be rewritten on disk, so evictions
	// from it are tracked in memory for the life of the process.
	for _, id := range driverIDs {
		s.evicted[id] = true
	}
	return nil
}

// save serialises the full overlay with stable ordering and 4-space
// indentation for human diffing, then swaps it into place with a
// write-then-replace so a failed write never truncates the previous file.
func (s *Store) save(overlay map[string][]int) error {
	data, err := json.MarshalIndent(overlay, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode group overlay: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, os.FileMode(0644)); err != nil {
		return fmt.Errorf("failed to write group overlay: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil {
			monitoring.Logf("groups: failed to clean up %s: %v", tmp, rmErr)
		}
		return fmt.Errorf("failed to replace group overlay: %w", err)
	}
	return nil
}

// ParseDriverIDs parses operator-entered driver ids, accepting comma or
// space delimiters. The whole batch is rejected on any non-numeric token or
// on empty input, so a typo never partially mutates the store.
func ParseDriverIDs(s string) ([]int, error) {
	tokens := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("enter at least one driver id")
	}
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		id, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("driver ids must be numeric, got %q", tok)
		}
		ids = append(ids, id)
	}
	return dedupSorted(ids), nil
}

// parseDriverID parses a raw identifier cell. Integer-valued floats
// ("11155.0", as spreadsheet exports write them) are accepted.
func parseDriverID(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.Atoi(raw); err == nil {
		return id, true
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil && v == float64(int(v)) {
		return int(v), true
	}
	return 0, false
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func dedupSorted(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	out := append([]int(nil), ids...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
