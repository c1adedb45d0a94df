package models

// TargetKind tells how a bulk target addresses candidates
type TargetKind string

const (
	TargetExplicit TargetKind = "explicit"
	TargetByFilter TargetKind = "byFilter"
)

// BulkTarget is the resolved subject of a bulk operation
type BulkTarget struct {
	Kind    TargetKind       `json:"kind"`
	IDs     []string         `json:"ids,omitempty"`
	Filters CandidateFilters `json:"filters,omitempty"`
}

// BulkTargetRequest is the wire form of a bulk target: either
// {candidate_ids: [...]} or {select_all: true, filters: {...}}.
type BulkTargetRequest struct {
	CandidateIDs      []string          `json:"candidate_ids,omitempty"`
	SelectAll         bool              `json:"select_all,omitempty"`
	Filters           *CandidateFilters `json:"filters,omitempty"`
	ConfirmationToken string            `json:"confirmation_token,omitempty"`
}

// Target converts the wire form into a BulkTarget
func (r BulkTargetRequest) Target() BulkTarget {
	if r.SelectAll {
		t := BulkTarget{Kind: TargetByFilter}
		if r.Filters != nil {
			t.Filters = *r.Filters
		}
		return t
	}
	return BulkTarget{Kind: TargetExplicit, IDs: r.CandidateIDs}
}

// BulkTargetFromTarget converts a BulkTarget back into its wire form
func BulkTargetFromTarget(t BulkTarget, token string) BulkTargetRequest {
	if t.Kind == TargetByFilter {
		f := t.Filters
		return BulkTargetRequest{SelectAll: true, Filters: &f, ConfirmationToken: token}
	}
	return BulkTargetRequest{CandidateIDs: t.IDs}
}

// ChangeCenterRequest is the bulk-change-center payload
type ChangeCenterRequest struct {
	BulkTargetRequest
	CenterID string `json:"center_id"`
}

// ChangeSeriesRequest is the bulk-change-series payload
type ChangeSeriesRequest struct {
	BulkTargetRequest
	FromSeriesID string `json:"from_assessment_series"`
	ToSeriesID   string `json:"assessment_series"`
}

// BulkSelectionRequest describes the list page the user is looking at and what is selected on it
type BulkSelectionRequest struct {
	Filters           CandidateFilters `json:"filters"`
	Page              int              `json:"page"`
	PageSize          int              `json:"page_size"`
	SelectedIDs       []string         `json:"selected_ids"`
	SelectAllMatching bool             `json:"select_all_matching"`
}

// BulkSelection is the resolved selection returned to the user before a bulk action
type BulkSelection struct {
	Target            BulkTarget `json:"target"`
	PreviewCount      int        `json:"preview_count"`
	Total             int        `json:"total"`
	CanSelectAll      bool       `json:"can_select_all"`
	ConfirmationToken string     `json:"confirmation_token,omitempty"`
}

// BulkOperationResult reports how many candidates a bulk operation touched
type BulkOperationResult struct {
	Affected int `json:"affected"`
}
