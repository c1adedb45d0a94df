// Package bulk turns a list selection into the target of a bulk operation.
package bulk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Page is a snapshot of one page of a filtered candidate list
type Page struct {
	IDs      []string
	Total    int // authoritative count of all matching candidates
	PageSize int
	Filters  models.CandidateFilters
}

// Resolver tracks what the user selected on a list page and resolves it into
// a BulkTarget. Until the user explicitly upgrades to "all matching", the
// target is the selected ids of the visible page only.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	page     Page
	visible  map[string]struct{}
	selected map[string]struct{}
	mode     models.TargetKind

	// filters the byFilter target was confirmed against
	confirmed models.CandidateFilters
	stale     bool
}

// NewResolver creates a resolver over a page with nothing selected
func NewResolver(page Page) *Resolver {
	r := &Resolver{
		selected: make(map[string]struct{}),
		mode:     models.TargetExplicit,
	}
	r.setPage(page)
	return r
}

// Mode returns whether the target is explicit ids or all matching candidates
func (r *Resolver) Mode() models.TargetKind { return r.mode }

// Stale reports whether filters changed after selecting all matching
func (r *Resolver) Stale() bool { return r.stale }

// Select adds a visible id to the selection. Ids not on the page are ignored.
func (r *Resolver) Select(id string) bool {
	if _, ok := r.visible[id]; !ok {
		return false
	}
	r.selected[id] = struct{}{}
	return true
}

// Deselect removes an id. Deselecting while all matching candidates are
// selected falls back to an explicit selection of the rest of the visible page.
func (r *Resolver) Deselect(id string) {
	if r.mode == models.TargetByFilter {
		r.mode = models.TargetExplicit
		r.stale = false
		r.selected = make(map[string]struct{}, len(r.page.IDs))
		r.SelectPage()
	}
	delete(r.selected, id)
}

// SelectPage selects every visible id
func (r *Resolver) SelectPage() {
	for _, id := range r.page.IDs {
		r.selected[id] = struct{}{}
	}
}

// Clear drops the selection and leaves select-all mode
func (r *Resolver) Clear() {
	r.selected = make(map[string]struct{})
	r.mode = models.TargetExplicit
	r.stale = false
}

// CanSelectAllMatching reports whether the "select all N matching" upgrade
// should be offered: the whole page is selected and more candidates match
// than fit on it.
func (r *Resolver) CanSelectAllMatching() bool {
	if r.mode != models.TargetExplicit || len(r.page.IDs) == 0 {
		return false
	}
	for _, id := range r.page.IDs {
		if _, ok := r.selected[id]; !ok {
			return false
		}
	}
	return r.page.Total > r.page.PageSize
}

// SelectAllMatching upgrades the selection to every candidate matching the
// page's filters
func (r *Resolver) SelectAllMatching() error {
	if !r.CanSelectAllMatching() {
		return fmt.Errorf("%w: select the whole page before selecting all matching candidates",
			models.ErrBulkTargetAmbiguous)
	}
	r.mode = models.TargetByFilter
	r.confirmed = r.page.Filters
	r.stale = false
	return nil
}

// Refresh installs a new page snapshot. In explicit mode the selection is
// narrowed to the ids still visible. In select-all mode a filter change marks
// the target stale until Confirm is called.
func (r *Resolver) Refresh(page Page) {
	r.setPage(page)

	if r.mode == models.TargetByFilter {
		if Fingerprint(page.Filters) != Fingerprint(r.confirmed) {
			r.stale = true
		}
		return
	}
	for id := range r.selected {
		if _, ok := r.visible[id]; !ok {
			delete(r.selected, id)
		}
	}
}

// Confirm accepts the current filters as the select-all target
func (r *Resolver) Confirm() {
	if r.mode != models.TargetByFilter {
		return
	}
	r.confirmed = r.page.Filters
	r.stale = false
}

// Resolve returns the target description for a bulk endpoint
func (r *Resolver) Resolve() (models.BulkTarget, error) {
	if r.mode == models.TargetByFilter {
		if r.stale {
			return models.BulkTarget{}, filtersChanged()
		}
		return models.BulkTarget{Kind: models.TargetByFilter, Filters: r.confirmed}, nil
	}

	ids := r.selectedIDs()
	if len(ids) == 0 {
		return models.BulkTarget{}, models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonNothingSelected, "",
			"no candidates selected")
	}
	return models.BulkTarget{Kind: models.TargetExplicit, IDs: ids}, nil
}

// PreviewCount is the number of candidates a bulk action would affect. In
// select-all mode it is the authoritative total, not the visible page size.
func (r *Resolver) PreviewCount() (int, error) {
	if r.mode == models.TargetByFilter {
		if r.stale {
			return 0, filtersChanged()
		}
		return r.page.Total, nil
	}
	return len(r.selectedIDs()), nil
}

func (r *Resolver) setPage(page Page) {
	r.page = page
	r.visible = make(map[string]struct{}, len(page.IDs))
	for _, id := range page.IDs {
		r.visible[id] = struct{}{}
	}
}

// selectedIDs returns the selection in page order
func (r *Resolver) selectedIDs() []string {
	ids := make([]string, 0, len(r.selected))
	for _, id := range r.page.IDs {
		if _, ok := r.selected[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func filtersChanged() error {
	return models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonFiltersChanged, "",
		"filters changed after selecting all matching candidates; confirm the selection again")
}

// Fingerprint identifies a filter snapshot. Filters that differ only in
// surrounding whitespace share a fingerprint.
func Fingerprint(f models.CandidateFilters) string {
	f.Search = strings.TrimSpace(f.Search)
	f.OccupationID = strings.TrimSpace(f.OccupationID)
	f.CenterID = strings.TrimSpace(f.CenterID)
	f.SeriesID = strings.TrimSpace(f.SeriesID)

	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
