package models

import "time"

// AssessmentType is the kind of assessment a mark was awarded for
type AssessmentType string

const (
	AssessmentTheory    AssessmentType = "theory"
	AssessmentPractical AssessmentType = "practical"
)

// IsValid reports whether t is theory or practical
func (t AssessmentType) IsValid() bool {
	return t == AssessmentTheory || t == AssessmentPractical
}

// MissingMark is the wire and storage sentinel for an absent attempt.
// It is not a score.
const MissingMark = -1.0

// Verdict values
const (
	VerdictSuccess       = "Success"
	VerdictNotSuccessful = "Not Successful"
	VerdictMissing       = "Missing"
	VerdictNone          = "-"
)

// NoGrade is shown when no grade applies
const NoGrade = "-"

// Result is a mark for one module or paper of an enrollment
type Result struct {
	ID           string         `json:"id"`
	EnrollmentID string         `json:"enrollment_id"`
	ModuleID     string         `json:"module_id,omitempty"`
	PaperID      string         `json:"paper_id,omitempty"`
	Type         AssessmentType `json:"type"`
	Mark         *float64       `json:"mark"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ResultEntry is one row of a results add/update submission
type ResultEntry struct {
	ModuleID string         `json:"module_id,omitempty"`
	PaperID  string         `json:"paper_id,omitempty"`
	Type     AssessmentType `json:"type,omitempty"`
	Mark     *float64       `json:"mark"`
}

// ResultsRequest is the results add/update payload
type ResultsRequest struct {
	SeriesID string        `json:"assessment_series"`
	Results  []ResultEntry `json:"results"`
}

// Classification is a grade and verdict for a mark
type Classification struct {
	Grade   string `json:"grade"`
	Verdict string `json:"verdict"`
}

// GradedResult is a result with its classification, as shown to users.
// Mark is nil for callers not allowed to see mark values.
type GradedResult struct {
	Result
	Classification
}
