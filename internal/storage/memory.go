package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// MemoryRepository is an in-process Repository. It backs tests and local
// runs without a database; nothing survives a restart.
type MemoryRepository struct {
	mu          sync.RWMutex
	candidates  map[string]*models.Candidate
	series      map[string]*models.AssessmentSeries
	enrollments map[string]*models.Enrollment
	results     map[string][]*models.Result // by enrollment id
	clients     map[string]*models.ApiClient
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		candidates:  make(map[string]*models.Candidate),
		series:      make(map[string]*models.AssessmentSeries),
		enrollments: make(map[string]*models.Enrollment),
		results:     make(map[string][]*models.Result),
		clients:     make(map[string]*models.ApiClient),
	}
}

// AddSeries stores an assessment series
func (m *MemoryRepository) AddSeries(s *models.AssessmentSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.series[s.ID] = &cp
}

// AddClient stores an API client
func (m *MemoryRepository) AddClient(c *models.ApiClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.clients[c.ApiKey] = &cp
}

// CreateCandidate stores a candidate; reg numbers are unique
func (m *MemoryRepository) CreateCandidate(_ context.Context, c *models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.candidates[c.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.candidates {
		if existing.RegNo == c.RegNo {
			return ErrConflict
		}
	}
	cp := *c
	m.candidates[c.ID] = &cp
	return nil
}

// GetCandidate returns a copy of a candidate
func (m *MemoryRepository) GetCandidate(_ context.Context, id string) (*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.candidates[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// GetCandidates returns candidates in the order of ids, skipping unknown ones
func (m *MemoryRepository) GetCandidates(_ context.Context, ids []string) ([]*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	result := make([]*models.Candidate, 0, len(ids))
	for _, id := range ids {
		c, ok := m.candidates[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		cp := *c
		result = append(result, &cp)
	}
	return result, nil
}

// ListCandidates filters, orders newest first and paginates
func (m *MemoryRepository) ListCandidates(_ context.Context, filters models.CandidateFilters, limit, offset int) ([]*models.Candidate, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.match(filters)
	total := len(matched)

	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	result := make([]*models.Candidate, 0, len(matched))
	for _, c := range matched {
		cp := *c
		result = append(result, &cp)
	}
	return result, total, nil
}

// ResolveTarget returns the ids a bulk target addresses
func (m *MemoryRepository) ResolveTarget(ctx context.Context, target models.BulkTarget) ([]string, error) {
	if target.Kind == models.TargetExplicit {
		candidates, err := m.GetCandidates(ctx, target.IDs)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, c := range m.match(target.Filters) {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ChangeCenter moves candidates to another center
func (m *MemoryRepository) ChangeCenter(_ context.Context, candidateIDs []string, centerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, id := range candidateIDs {
		if c, ok := m.candidates[id]; ok {
			c.CenterID = centerID
			n++
		}
	}
	return n, nil
}

// match must be called with the lock held
func (m *MemoryRepository) match(f models.CandidateFilters) []*models.Candidate {
	search := strings.ToLower(f.Search)

	var result []*models.Candidate
	for _, c := range m.candidates {
		if search != "" && !strings.Contains(strings.ToLower(c.RegNo), search) &&
			!strings.Contains(strings.ToLower(c.FullName), search) {
			continue
		}
		if f.OccupationID != "" && c.OccupationID != f.OccupationID {
			continue
		}
		if f.CenterID != "" && c.CenterID != f.CenterID {
			continue
		}
		if f.RegistrationCategory != "" && c.RegistrationCategory != f.RegistrationCategory {
			continue
		}
		if f.SeriesID != "" && !m.enrolledIn(c.ID, f.SeriesID) {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *MemoryRepository) enrolledIn(candidateID, seriesID string) bool {
	for _, e := range m.enrollments {
		if e.CandidateID == candidateID && e.SeriesID == seriesID {
			return true
		}
	}
	return false
}

// GetSeries returns an assessment series
func (m *MemoryRepository) GetSeries(_ context.Context, id string) (*models.AssessmentSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// ListSeries returns all series, most recent first
func (m *MemoryRepository) ListSeries(_ context.Context) ([]*models.AssessmentSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.AssessmentSeries, 0, len(m.series))
	for _, s := range m.series {
		cp := *s
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.After(result[j].StartDate) })
	return result, nil
}

// CreateEnrollments stores all enrollments or none
func (m *MemoryRepository) CreateEnrollments(_ context.Context, enrollments []*models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		key := e.CandidateID + "|" + e.SeriesID
		if batch[key] || m.enrolledIn(e.CandidateID, e.SeriesID) {
			return ErrConflict
		}
		batch[key] = true
	}

	for _, e := range enrollments {
		cp := *e
		cp.ModuleIDs = append([]string{}, e.ModuleIDs...)
		cp.PaperIDs = append([]string{}, e.PaperIDs...)
		m.enrollments[e.ID] = &cp
	}
	return nil
}

// GetEnrollment returns an enrollment
func (m *MemoryRepository) GetEnrollment(_ context.Context, id string) (*models.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.enrollments[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// ListEnrollments returns a candidate's enrollments, newest first
func (m *MemoryRepository) ListEnrollments(_ context.Context, candidateID string) ([]*models.Enrollment, error) {
	return m.filterEnrollments(func(e *models.Enrollment) bool { return e.CandidateID == candidateID }), nil
}

// ListSeriesEnrollments returns the enrollments of a series
func (m *MemoryRepository) ListSeriesEnrollments(_ context.Context, seriesID string) ([]*models.Enrollment, error) {
	return m.filterEnrollments(func(e *models.Enrollment) bool { return e.SeriesID == seriesID }), nil
}

func (m *MemoryRepository) filterEnrollments(keep func(*models.Enrollment) bool) []*models.Enrollment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*models.Enrollment
	for _, e := range m.enrollments {
		if keep(e) {
			cp := *e
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// EnrolledCandidates reports which candidates are enrolled in the series
func (m *MemoryRepository) EnrolledCandidates(_ context.Context, seriesID string, candidateIDs []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	enrolled := make(map[string]bool)
	for _, id := range candidateIDs {
		if m.enrolledIn(id, seriesID) {
			enrolled[id] = true
		}
	}
	return enrolled, nil
}

// ChangeSeries moves enrollments between series, skipping candidates
// already enrolled in the target series
func (m *MemoryRepository) ChangeSeries(_ context.Context, candidateIDs []string, fromSeriesID, toSeriesID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		wanted[id] = true
	}

	n := 0
	for _, e := range m.enrollments {
		if e.SeriesID != fromSeriesID || !wanted[e.CandidateID] || m.enrolledIn(e.CandidateID, toSeriesID) {
			continue
		}
		e.SeriesID = toSeriesID
		n++
	}
	return n, nil
}

// DeleteEnrollment removes an enrollment and its results
func (m *MemoryRepository) DeleteEnrollment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.results, id)
	delete(m.enrollments, id)
	return nil
}

// UpsertResults inserts results or replaces the marks of existing ones
func (m *MemoryRepository) UpsertResults(_ context.Context, enrollmentID string, results []*models.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.results[enrollmentID]
	for _, res := range results {
		replaced := false
		for _, old := range existing {
			if old.ModuleID == res.ModuleID && old.PaperID == res.PaperID && old.Type == res.Type {
				old.Mark = copyMark(res.Mark)
				old.UpdatedAt = res.UpdatedAt
				replaced = true
				break
			}
		}
		if !replaced {
			cp := *res
			cp.EnrollmentID = enrollmentID
			cp.Mark = copyMark(res.Mark)
			existing = append(existing, &cp)
		}
	}
	m.results[enrollmentID] = existing
	return nil
}

// ListResults returns an enrollment's results
func (m *MemoryRepository) ListResults(_ context.Context, enrollmentID string) ([]*models.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Result, 0, len(m.results[enrollmentID]))
	for _, r := range m.results[enrollmentID] {
		cp := *r
		cp.Mark = copyMark(r.Mark)
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		if a.PaperID != b.PaperID {
			return a.PaperID < b.PaperID
		}
		return a.Type < b.Type
	})
	return result, nil
}

// GetClientByApiKey returns the client owning an API key
func (m *MemoryRepository) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[apiKey]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// UpdateClientLastUsed stamps the client's last use
func (m *MemoryRepository) UpdateClientLastUsed(_ context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[apiKey]; ok {
		now := time.Now()
		c.LastUsedAt = &now
	}
	return nil
}

// Ping always succeeds
func (m *MemoryRepository) Ping(context.Context) error { return nil }

// Close is a no-op
func (m *MemoryRepository) Close() error { return nil }

func copyMark(mark *float64) *float64 {
	if mark == nil {
		return nil
	}
	v := *mark
	return &v
}
