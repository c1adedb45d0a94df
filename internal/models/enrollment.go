package models

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// RegistrationCategory selects the composition and fee rules for an enrollment
type RegistrationCategory string

const (
	CategoryModular    RegistrationCategory = "modular"
	CategoryFormal     RegistrationCategory = "formal"
	CategoryWorkersPAS RegistrationCategory = "workers_pas"
)

// IsValid reports whether c is one of the known categories
func (c RegistrationCategory) IsValid() bool {
	switch c {
	case CategoryModular, CategoryFormal, CategoryWorkersPAS:
		return true
	}
	return false
}

// Selection is the raw level/modules/papers choice made by the user
type Selection struct {
	LevelID   string   `json:"occupation_level,omitempty"`
	ModuleIDs []string `json:"modules,omitempty"`
	PaperIDs  []string `json:"papers,omitempty"`
}

// Composition is a validated selection. It is never persisted as such;
// it becomes an Enrollment on submission.
type Composition struct {
	Category       RegistrationCategory `json:"category"`
	LevelID        string               `json:"occupation_level,omitempty"`
	ModuleIDs      []string             `json:"modules"`
	PaperIDs       []string             `json:"papers"`
	CatalogVersion string               `json:"catalog_version"`
}

// EnrollmentOptions is everything a candidate may be enrolled under.
// Level is set only for modular candidates; Levels only for formal and workers_pas.
type EnrollmentOptions struct {
	CandidateID          string               `json:"candidate_id"`
	RegistrationCategory RegistrationCategory `json:"registration_category"`
	Occupation           *Occupation          `json:"occupation"`
	Levels               []*OccupationLevel   `json:"levels,omitempty"`
	Level                *OccupationLevel     `json:"level,omitempty"`
	Modules              []*Module            `json:"modules,omitempty"`
	AssessmentSeries     []*AssessmentSeries  `json:"assessment_series"`
	CatalogVersion       string               `json:"catalog_version"`
}

// Module finds an offered module by ID
func (o *EnrollmentOptions) Module(id string) *Module {
	for _, m := range o.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// LevelByID finds an offered level by ID
func (o *EnrollmentOptions) LevelByID(id string) *OccupationLevel {
	for _, l := range o.Levels {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Candidate is a registered person
type Candidate struct {
	ID                   string               `json:"id"`
	RegNo                string               `json:"reg_no"`
	FullName             string               `json:"full_name"`
	OccupationID         string               `json:"occupation_id"`
	RegistrationCategory RegistrationCategory `json:"registration_category"`
	CenterID             string               `json:"center_id"`
	CreatedAt            time.Time            `json:"created_at"`
}

// CandidateFilters are the list filters of the candidate table. They are also
// the filter snapshot of a select-all bulk target.
type CandidateFilters struct {
	Search               string               `json:"search,omitempty"`
	OccupationID         string               `json:"occupation_id,omitempty"`
	CenterID             string               `json:"center_id,omitempty"`
	RegistrationCategory RegistrationCategory `json:"registration_category,omitempty"`
	SeriesID             string               `json:"assessment_series,omitempty"`
}

// CandidatePage is one page of the candidate list with the authoritative total
type CandidatePage struct {
	Items    []*Candidate `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// Enrollment is a persisted composition for one candidate in one series
type Enrollment struct {
	ID             string               `json:"id"`
	CandidateID    string               `json:"candidate_id"`
	SeriesID       string               `json:"assessment_series"`
	Category       RegistrationCategory `json:"registration_category"`
	OccupationID   string               `json:"occupation_id"`
	LevelID        string               `json:"occupation_level,omitempty"`
	ModuleIDs      []string             `json:"modules"`
	PaperIDs       []string             `json:"papers"`
	Fee            *apd.Decimal         `json:"fee"`
	CatalogVersion string               `json:"catalog_version"`
	CreatedAt      time.Time            `json:"created_at"`
}

// EnrollRequest is the single enroll submit payload
type EnrollRequest struct {
	SeriesID string `json:"assessment_series"`
	Selection
	CatalogVersion string `json:"catalog_version,omitempty"`
}

// BulkEnrollRequest is the bulk enroll submit payload
type BulkEnrollRequest struct {
	BulkTargetRequest
	SeriesID string `json:"assessment_series"`
	Selection
	CatalogVersion string `json:"catalog_version,omitempty"`
}

// FeeQuoteRequest asks for validation and a fee for a selection
type FeeQuoteRequest struct {
	Selection
	CandidateCount int `json:"candidate_count,omitempty"`
}

// FeeQuote is the outcome of validating and pricing a selection
type FeeQuote struct {
	Composition    *Composition `json:"composition,omitempty"`
	CandidateCount int          `json:"candidate_count"`
	Amount         *apd.Decimal `json:"amount"`
}

// BulkEnrollResult reports a bulk enroll submission
type BulkEnrollResult struct {
	Enrolled        int          `json:"enrolled"`
	Skipped         []string     `json:"skipped,omitempty"` // already enrolled in the series
	Composition     *Composition `json:"composition"`
	FeePerCandidate *apd.Decimal `json:"fee_per_candidate"`
	TotalFee        *apd.Decimal `json:"total_fee"`
}

// CreateCandidateRequest registers a candidate
type CreateCandidateRequest struct {
	RegNo                string               `json:"reg_no"`
	FullName             string               `json:"full_name"`
	OccupationID         string               `json:"occupation_id"`
	RegistrationCategory RegistrationCategory `json:"registration_category"`
	CenterID             string               `json:"center_id"`
}
