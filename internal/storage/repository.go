package storage

import (
	"context"
	"errors"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// ErrConflict is returned when a write would duplicate a unique record,
// such as a second enrollment of a candidate in one series
var ErrConflict = errors.New("record already exists")

// Repository defines the interface for registration persistence.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	// Candidates
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	GetCandidates(ctx context.Context, ids []string) ([]*models.Candidate, error)
	ListCandidates(ctx context.Context, filters models.CandidateFilters, limit, offset int) ([]*models.Candidate, int, error)
	// ResolveTarget returns the ids a bulk target addresses, in list order
	ResolveTarget(ctx context.Context, target models.BulkTarget) ([]string, error)
	ChangeCenter(ctx context.Context, candidateIDs []string, centerID string) (int, error)

	// Assessment series
	GetSeries(ctx context.Context, id string) (*models.AssessmentSeries, error)
	ListSeries(ctx context.Context) ([]*models.AssessmentSeries, error)

	// Enrollments
	CreateEnrollments(ctx context.Context, enrollments []*models.Enrollment) error
	GetEnrollment(ctx context.Context, id string) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, candidateID string) ([]*models.Enrollment, error)
	ListSeriesEnrollments(ctx context.Context, seriesID string) ([]*models.Enrollment, error)
	EnrolledCandidates(ctx context.Context, seriesID string, candidateIDs []string) (map[string]bool, error)
	ChangeSeries(ctx context.Context, candidateIDs []string, fromSeriesID, toSeriesID string) (int, error)
	// DeleteEnrollment removes an enrollment together with its results
	DeleteEnrollment(ctx context.Context, id string) error

	// Results
	UpsertResults(ctx context.Context, enrollmentID string, results []*models.Result) error
	ListResults(ctx context.Context, enrollmentID string) ([]*models.Result, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
