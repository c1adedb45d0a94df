// Package registration runs the enrollment workflow against the catalog and
// the candidate repository.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/ClaireAgaba/informal-system-sub000/internal/bulk"
	"github.com/ClaireAgaba/informal-system-sub000/internal/catalog"
	"github.com/ClaireAgaba/informal-system-sub000/internal/enrollment"
	"github.com/ClaireAgaba/informal-system-sub000/internal/fees"
	"github.com/ClaireAgaba/informal-system-sub000/internal/grading"
	"github.com/ClaireAgaba/informal-system-sub000/internal/marksheet"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
	"github.com/ClaireAgaba/informal-system-sub000/internal/storage"
)

// Common errors
var (
	ErrCandidateNotFound   = errors.New("candidate not found")
	ErrSeriesNotFound      = errors.New("assessment series not found")
	ErrEnrollmentNotFound  = errors.New("enrollment not found")
	ErrOccupationNotFound  = errors.New("occupation not found")
	ErrAlreadyEnrolled     = errors.New("candidate is already enrolled in this series")
	ErrDuplicateRegNo      = errors.New("registration number already exists")
	ErrHeterogeneousTarget = errors.New("bulk target mixes occupations or registration categories")
	ErrEmptyTarget         = errors.New("bulk target matches no candidates")
	ErrInvalidInput        = errors.New("invalid input")
)

// Service defines the registration workflow used by the HTTP layer
type Service interface {
	ListOccupations(ctx context.Context) ([]*models.Occupation, error)
	GetOccupation(ctx context.Context, id string) (*models.Occupation, error)
	ListSeries(ctx context.Context) ([]*models.AssessmentSeries, error)

	CreateCandidate(ctx context.Context, req models.CreateCandidateRequest) (*models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context, filters models.CandidateFilters, page, pageSize int) (*models.CandidatePage, error)

	Options(ctx context.Context, candidateID string) (*models.EnrollmentOptions, error)
	Quote(ctx context.Context, candidateID string, req models.FeeQuoteRequest) (*models.FeeQuote, error)
	Enroll(ctx context.Context, candidateID string, req models.EnrollRequest) (*models.Enrollment, error)
	Enrollments(ctx context.Context, candidateID string) ([]*models.Enrollment, error)

	BulkSelection(ctx context.Context, req models.BulkSelectionRequest) (*models.BulkSelection, error)
	BulkEnroll(ctx context.Context, req models.BulkEnrollRequest) (*models.BulkEnrollResult, error)
	ChangeCenter(ctx context.Context, req models.ChangeCenterRequest) (*models.BulkOperationResult, error)
	ChangeSeries(ctx context.Context, req models.ChangeSeriesRequest) (*models.BulkOperationResult, error)

	RecordResults(ctx context.Context, enrollmentID string, req models.ResultsRequest, replace bool) ([]*models.GradedResult, error)
	Results(ctx context.Context, enrollmentID string) ([]*models.GradedResult, error)
	ClearEnrollment(ctx context.Context, enrollmentID string) error
	Marksheet(ctx context.Context, seriesID string) (*models.AssessmentSeries, []marksheet.Row, error)

	Ping(ctx context.Context) error
	Close() error
}

// Options configures a Registrar
type Options struct {
	ConfirmationTTL time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// Registrar implements Service over a repository and a catalog source
type Registrar struct {
	repo          storage.Repository
	catalog       catalog.Source
	confirmations bulk.ConfirmationStore
	opts          Options
}

// NewRegistrar creates a new Registrar
func NewRegistrar(repo storage.Repository, source catalog.Source, confirmations bulk.ConfirmationStore, opts Options) *Registrar {
	if opts.ConfirmationTTL <= 0 {
		opts.ConfirmationTTL = 10 * time.Minute
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 25
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 200
	}
	return &Registrar{
		repo:          repo,
		catalog:       source,
		confirmations: confirmations,
		opts:          opts,
	}
}

// Ping checks the repository connection
func (r *Registrar) Ping(ctx context.Context) error {
	return r.repo.Ping(ctx)
}

// Close closes the repository
func (r *Registrar) Close() error {
	return r.repo.Close()
}

// ListOccupations returns every occupation of the catalog
func (r *Registrar) ListOccupations(ctx context.Context) ([]*models.Occupation, error) {
	return r.catalog.ListOccupations(ctx)
}

// GetOccupation returns one occupation of the catalog
func (r *Registrar) GetOccupation(ctx context.Context, id string) (*models.Occupation, error) {
	occ, err := r.catalog.GetOccupation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupation: %w", err)
	}
	if occ == nil {
		return nil, ErrOccupationNotFound
	}
	return occ, nil
}

// ListSeries returns all assessment series
func (r *Registrar) ListSeries(ctx context.Context) ([]*models.AssessmentSeries, error) {
	return r.repo.ListSeries(ctx)
}

// CreateCandidate registers a candidate for an occupation
func (r *Registrar) CreateCandidate(ctx context.Context, req models.CreateCandidateRequest) (*models.Candidate, error) {
	req.RegNo = strings.TrimSpace(req.RegNo)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.RegNo == "" || req.FullName == "" {
		return nil, fmt.Errorf("%w: reg_no and full_name are required", ErrInvalidInput)
	}
	if !req.RegistrationCategory.IsValid() {
		return nil, fmt.Errorf("%w: unknown registration category %q", ErrInvalidInput, req.RegistrationCategory)
	}

	occ, err := r.GetOccupation(ctx, req.OccupationID)
	if err != nil {
		return nil, err
	}
	if _, err := catalog.BuildOptions(&models.Candidate{
		OccupationID:         occ.ID,
		RegistrationCategory: req.RegistrationCategory,
	}, occ, nil); err != nil {
		return nil, err
	}

	c := &models.Candidate{
		ID:                   uuid.New().String(),
		RegNo:                req.RegNo,
		FullName:             req.FullName,
		OccupationID:         occ.ID,
		RegistrationCategory: req.RegistrationCategory,
		CenterID:             req.CenterID,
		CreatedAt:            time.Now().UTC(),
	}
	if err := r.repo.CreateCandidate(ctx, c); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrDuplicateRegNo
		}
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	slog.Info("candidate registered",
		"candidate_id", c.ID,
		"reg_no", c.RegNo,
		"occupation_id", c.OccupationID,
		"category", c.RegistrationCategory,
	)
	return c, nil
}

// GetCandidate returns a candidate by ID
func (r *Registrar) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := r.repo.GetCandidate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if c == nil {
		return nil, ErrCandidateNotFound
	}
	return c, nil
}

// ListCandidates returns one page of the filtered candidate list
func (r *Registrar) ListCandidates(ctx context.Context, filters models.CandidateFilters, page, pageSize int) (*models.CandidatePage, error) {
	page, pageSize = r.paging(page, pageSize)
	items, total, err := r.repo.ListCandidates(ctx, filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	if items == nil {
		items = []*models.Candidate{}
	}
	return &models.CandidatePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Options returns what a candidate may be enrolled under
func (r *Registrar) Options(ctx context.Context, candidateID string) (*models.EnrollmentOptions, error) {
	c, err := r.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return r.options(ctx, c)
}

func (r *Registrar) options(ctx context.Context, c *models.Candidate) (*models.EnrollmentOptions, error) {
	occ, err := r.GetOccupation(ctx, c.OccupationID)
	if err != nil {
		return nil, err
	}
	series, err := r.repo.ListSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	return catalog.BuildOptions(c, occ, series)
}

// Quote validates a selection for a candidate and prices it for
// req.CandidateCount candidates (one when unset)
func (r *Registrar) Quote(ctx context.Context, candidateID string, req models.FeeQuoteRequest) (*models.FeeQuote, error) {
	opts, err := r.Options(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	n := req.CandidateCount
	if n == 0 {
		n = 1
	}
	comp, fee, err := compose(opts, req.Selection, n, "")
	if err != nil {
		return nil, err
	}
	return &models.FeeQuote{Composition: comp, CandidateCount: n, Amount: fee}, nil
}

// Enroll validates and prices a selection and records the enrollment
func (r *Registrar) Enroll(ctx context.Context, candidateID string, req models.EnrollRequest) (*models.Enrollment, error) {
	c, err := r.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if err := r.requireSeries(ctx, req.SeriesID); err != nil {
		return nil, err
	}
	opts, err := r.options(ctx, c)
	if err != nil {
		return nil, err
	}

	comp, fee, err := compose(opts, req.Selection, 1, req.CatalogVersion)
	if err != nil {
		return nil, err
	}

	enrolled, err := r.repo.EnrolledCandidates(ctx, req.SeriesID, []string{c.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled[c.ID] {
		return nil, ErrAlreadyEnrolled
	}

	e := newEnrollment(c, req.SeriesID, opts, comp, fee)
	if err := r.repo.CreateEnrollments(ctx, []*models.Enrollment{e}); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to save enrollment: %w", err)
	}

	slog.Info("candidate enrolled",
		"enrollment_id", e.ID,
		"candidate_id", c.ID,
		"series_id", e.SeriesID,
		"category", e.Category,
		"fee", e.Fee.String(),
	)
	return e, nil
}

// Enrollments lists a candidate's enrollments
func (r *Registrar) Enrollments(ctx context.Context, candidateID string) ([]*models.Enrollment, error) {
	if _, err := r.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	return r.repo.ListEnrollments(ctx, candidateID)
}

// BulkSelection resolves what the user selected on a list page. Select-all
// targets come back with a confirmation token that the bulk request must echo.
func (r *Registrar) BulkSelection(ctx context.Context, req models.BulkSelectionRequest) (*models.BulkSelection, error) {
	page, pageSize := r.paging(req.Page, req.PageSize)
	items, total, err := r.repo.ListCandidates(ctx, req.Filters, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	ids := make([]string, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.ID)
	}
	resolver := bulk.NewResolver(bulk.Page{IDs: ids, Total: total, PageSize: pageSize, Filters: req.Filters})
	for _, id := range req.SelectedIDs {
		resolver.Select(id)
	}
	if req.SelectAllMatching {
		// when everything matching fits on the page, the page is the target
		resolver.SelectPage()
		if resolver.CanSelectAllMatching() {
			if err := resolver.SelectAllMatching(); err != nil {
				return nil, err
			}
		}
	}

	sel := &models.BulkSelection{
		Total:        total,
		CanSelectAll: resolver.CanSelectAllMatching(),
	}
	target, err := resolver.Resolve()
	if err != nil {
		if reason, _ := models.ReasonOf(err); reason == models.ReasonNothingSelected {
			sel.Target = models.BulkTarget{Kind: models.TargetExplicit}
			return sel, nil
		}
		return nil, err
	}
	sel.Target = target
	if sel.PreviewCount, err = resolver.PreviewCount(); err != nil {
		return nil, err
	}

	if target.Kind == models.TargetByFilter {
		token, err := bulk.Confirm(ctx, r.confirmations, target.Filters, sel.PreviewCount, r.opts.ConfirmationTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to issue confirmation: %w", err)
		}
		sel.ConfirmationToken = token
	}
	return sel, nil
}

// BulkEnroll enrolls every candidate of a bulk target with one composition.
// The composition is validated against the first candidate's options and the
// target must share one occupation and registration category. Candidates
// already enrolled in the series are skipped.
func (r *Registrar) BulkEnroll(ctx context.Context, req models.BulkEnrollRequest) (*models.BulkEnrollResult, error) {
	if err := r.requireSeries(ctx, req.SeriesID); err != nil {
		return nil, err
	}
	candidates, err := r.resolveCandidates(ctx, req.BulkTargetRequest)
	if err != nil {
		return nil, err
	}

	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.OccupationID != first.OccupationID || c.RegistrationCategory != first.RegistrationCategory {
			return nil, fmt.Errorf("%w: %s differs from %s", ErrHeterogeneousTarget, c.RegNo, first.RegNo)
		}
	}

	opts, err := r.options(ctx, first)
	if err != nil {
		return nil, err
	}
	comp, fee, err := compose(opts, req.Selection, 1, req.CatalogVersion)
	if err != nil {
		return nil, err
	}

	enrolled, err := r.repo.EnrolledCandidates(ctx, req.SeriesID, candidateIDs(candidates))
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollments: %w", err)
	}

	result := &models.BulkEnrollResult{Composition: comp, FeePerCandidate: fee}
	var batch []*models.Enrollment
	for _, c := range candidates {
		if enrolled[c.ID] {
			result.Skipped = append(result.Skipped, c.ID)
			continue
		}
		batch = append(batch, newEnrollment(c, req.SeriesID, opts, comp, fee))
	}
	if len(batch) == 0 {
		return result, nil
	}

	total, err := fees.Compute(first.RegistrationCategory, comp, opts, len(batch))
	if err != nil {
		return nil, err
	}
	if err := r.repo.CreateEnrollments(ctx, batch); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to save enrollments: %w", err)
	}
	result.Enrolled = len(batch)
	result.TotalFee = total

	slog.Info("bulk enrollment completed",
		"series_id", req.SeriesID,
		"target", targetKind(req.BulkTargetRequest),
		"enrolled", result.Enrolled,
		"skipped", len(result.Skipped),
		"total_fee", total.String(),
	)
	return result, nil
}

// ChangeCenter moves every candidate of a bulk target to another center
func (r *Registrar) ChangeCenter(ctx context.Context, req models.ChangeCenterRequest) (*models.BulkOperationResult, error) {
	if strings.TrimSpace(req.CenterID) == "" {
		return nil, fmt.Errorf("%w: center_id is required", ErrInvalidInput)
	}
	candidates, err := r.resolveCandidates(ctx, req.BulkTargetRequest)
	if err != nil {
		return nil, err
	}

	n, err := r.repo.ChangeCenter(ctx, candidateIDs(candidates), req.CenterID)
	if err != nil {
		return nil, fmt.Errorf("failed to change center: %w", err)
	}
	slog.Info("bulk center change", "center_id", req.CenterID, "target", targetKind(req.BulkTargetRequest), "affected", n)
	return &models.BulkOperationResult{Affected: n}, nil
}

// ChangeSeries moves the enrollments of a bulk target from one series to another
func (r *Registrar) ChangeSeries(ctx context.Context, req models.ChangeSeriesRequest) (*models.BulkOperationResult, error) {
	if req.FromSeriesID == "" || req.ToSeriesID == "" {
		return nil, fmt.Errorf("%w: from_assessment_series and assessment_series are required", ErrInvalidInput)
	}
	if req.FromSeriesID == req.ToSeriesID {
		return &models.BulkOperationResult{}, nil
	}
	if err := r.requireSeries(ctx, req.FromSeriesID); err != nil {
		return nil, err
	}
	if err := r.requireSeries(ctx, req.ToSeriesID); err != nil {
		return nil, err
	}
	candidates, err := r.resolveCandidates(ctx, req.BulkTargetRequest)
	if err != nil {
		return nil, err
	}

	n, err := r.repo.ChangeSeries(ctx, candidateIDs(candidates), req.FromSeriesID, req.ToSeriesID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to change series: %w", err)
	}
	slog.Info("bulk series change",
		"from_series_id", req.FromSeriesID,
		"to_series_id", req.ToSeriesID,
		"target", targetKind(req.BulkTargetRequest),
		"affected", n,
	)
	return &models.BulkOperationResult{Affected: n}, nil
}

// RecordResults validates and stores marks for an enrollment. Without replace
// a row that already has a mark is rejected; with replace it is overwritten.
func (r *Registrar) RecordResults(ctx context.Context, enrollmentID string, req models.ResultsRequest, replace bool) ([]*models.GradedResult, error) {
	e, err := r.getEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if req.SeriesID != "" && req.SeriesID != e.SeriesID {
		return nil, fmt.Errorf("%w: enrollment belongs to series %s", ErrInvalidInput, e.SeriesID)
	}
	occ, err := r.GetOccupation(ctx, e.OccupationID)
	if err != nil {
		return nil, err
	}

	rows, err := enrollment.ValidateResults(e, occ, req.Results)
	if err != nil {
		return nil, err
	}

	if !replace {
		existing, err := r.repo.ListResults(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list results: %w", err)
		}
		have := make(map[string]bool, len(existing))
		for _, res := range existing {
			have[resultKey(res.ModuleID, res.PaperID, res.Type)] = true
		}
		for i, row := range rows {
			if have[resultKey(row.ModuleID, row.PaperID, row.Type)] {
				return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonDuplicateResult, e.Category,
					fmt.Sprintf("row %d: a result already exists; update it instead", i+1))
			}
		}
	}

	now := time.Now().UTC()
	results := make([]*models.Result, len(rows))
	for i, row := range rows {
		results[i] = &models.Result{
			ID:           uuid.New().String(),
			EnrollmentID: e.ID,
			ModuleID:     row.ModuleID,
			PaperID:      row.PaperID,
			Type:         row.Type,
			Mark:         row.Mark,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	if err := r.repo.UpsertResults(ctx, e.ID, results); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	slog.Info("results recorded", "enrollment_id", e.ID, "rows", len(results), "replace", replace)
	return r.Results(ctx, e.ID)
}

// Results returns an enrollment's results with grade and verdict
func (r *Registrar) Results(ctx context.Context, enrollmentID string) ([]*models.GradedResult, error) {
	if _, err := r.getEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	results, err := r.repo.ListResults(ctx, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	graded := make([]*models.GradedResult, len(results))
	for i, res := range results {
		graded[i] = &models.GradedResult{
			Result:         *res,
			Classification: grading.Classify(res.Mark, res.Type),
		}
	}
	return graded, nil
}

// ClearEnrollment removes an enrollment together with its results
func (r *Registrar) ClearEnrollment(ctx context.Context, enrollmentID string) error {
	e, err := r.getEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if err := r.repo.DeleteEnrollment(ctx, e.ID); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	slog.Info("enrollment cleared", "enrollment_id", e.ID, "candidate_id", e.CandidateID, "series_id", e.SeriesID)
	return nil
}

// Marksheet collects the graded rows of every enrollment in a series.
// Enrollments without results contribute one row with no grade.
func (r *Registrar) Marksheet(ctx context.Context, seriesID string) (*models.AssessmentSeries, []marksheet.Row, error) {
	series, err := r.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get series: %w", err)
	}
	if series == nil {
		return nil, nil, ErrSeriesNotFound
	}

	enrollments, err := r.repo.ListSeriesEnrollments(ctx, seriesID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	ids := make([]string, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.CandidateID
	}
	candidates, err := r.repo.GetCandidates(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	byID := make(map[string]*models.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	occupations := make(map[string]*models.Occupation)
	var rows []marksheet.Row
	for _, e := range enrollments {
		c := byID[e.CandidateID]
		if c == nil {
			continue
		}
		occ, ok := occupations[e.OccupationID]
		if !ok {
			if occ, err = r.catalog.GetOccupation(ctx, e.OccupationID); err != nil {
				return nil, nil, fmt.Errorf("failed to get occupation: %w", err)
			}
			occupations[e.OccupationID] = occ
		}

		base := marksheet.Row{
			RegNo:    c.RegNo,
			FullName: c.FullName,
			Category: string(e.Category),
			Grade:    models.NoGrade,
			Verdict:  models.VerdictNone,
		}
		if occ != nil {
			base.Occupation = occ.Code
			if l := occ.Level(e.LevelID); l != nil {
				base.Level = l.Name
			}
		}

		results, err := r.repo.ListResults(ctx, e.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list results: %w", err)
		}
		if len(results) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, res := range results {
			row := base
			row.Type = string(res.Type)
			row.Mark = res.Mark
			cls := grading.Classify(res.Mark, res.Type)
			row.Grade, row.Verdict = cls.Grade, cls.Verdict
			if occ != nil {
				if m := occ.Module(res.ModuleID); m != nil {
					row.Module = m.Code
				}
				if p := occ.Paper(res.PaperID); p != nil {
					row.Paper = p.Code
				}
			}
			rows = append(rows, row)
		}
	}
	return series, rows, nil
}

// resolveCandidates loads the candidates a bulk target addresses. Select-all
// targets must carry a confirmation for exactly their filters, and the match
// count must not have changed since it was shown.
func (r *Registrar) resolveCandidates(ctx context.Context, req models.BulkTargetRequest) ([]*models.Candidate, error) {
	target := req.Target()

	var confirmed *bulk.Confirmation
	if target.Kind == models.TargetByFilter {
		c, err := bulk.Verify(ctx, r.confirmations, req.ConfirmationToken, target.Filters)
		if err != nil {
			return nil, err
		}
		confirmed = c
	} else if len(target.IDs) == 0 {
		return nil, models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonNothingSelected, "",
			"no candidates selected")
	}

	ids, err := r.repo.ResolveTarget(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bulk target: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrEmptyTarget
	}
	if confirmed != nil && confirmed.Count != len(ids) {
		return nil, models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonTargetChanged, "",
			fmt.Sprintf("%d candidates were confirmed but %d now match; preview the selection again", confirmed.Count, len(ids)))
	}

	candidates, err := r.repo.GetCandidates(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyTarget
	}
	return candidates, nil
}

func (r *Registrar) requireSeries(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: assessment_series is required", ErrInvalidInput)
	}
	s, err := r.repo.GetSeries(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get series: %w", err)
	}
	if s == nil {
		return ErrSeriesNotFound
	}
	return nil
}

func (r *Registrar) getEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	e, err := r.repo.GetEnrollment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if e == nil {
		return nil, ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *Registrar) paging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = r.opts.DefaultPageSize
	}
	if pageSize > r.opts.MaxPageSize {
		pageSize = r.opts.MaxPageSize
	}
	return page, pageSize
}

// compose drives an interaction from a submitted selection to a submittable
// composition. clientVersion is the catalog version the caller composed
// against; a mismatch is reported before any rule is evaluated.
func compose(opts *models.EnrollmentOptions, sel models.Selection, n int, clientVersion string) (*models.Composition, *apd.Decimal, error) {
	if err := enrollment.CheckCatalogVersion(clientVersion, opts.CatalogVersion); err != nil {
		return nil, nil, err
	}

	in := enrollment.NewInteraction()
	in.LoadOptions(opts)
	if err := in.SelectCategory(opts.RegistrationCategory); err != nil {
		return nil, nil, err
	}
	steps := []func() error{
		func() error { return in.SetLevel(sel.LevelID) },
		func() error { return in.SetModules(sel.ModuleIDs) },
		func() error { return in.SetPapers(sel.PaperIDs) },
		func() error { return in.SetCandidateCount(n) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, nil, err
		}
	}
	if _, _, err := in.Evaluate(); err != nil {
		return nil, nil, err
	}

	if opts.RegistrationCategory == models.CategoryWorkersPAS && fees.WorkersPASFeeVaries(opts.Levels) {
		slog.Warn("workers PAS per-paper fee differs between levels, charging the first level",
			"occupation_id", opts.Occupation.ID,
		)
	}
	return in.Submission(opts.CatalogVersion)
}

func newEnrollment(c *models.Candidate, seriesID string, opts *models.EnrollmentOptions, comp *models.Composition, fee *apd.Decimal) *models.Enrollment {
	return &models.Enrollment{
		ID:             uuid.New().String(),
		CandidateID:    c.ID,
		SeriesID:       seriesID,
		Category:       comp.Category,
		OccupationID:   opts.Occupation.ID,
		LevelID:        comp.LevelID,
		ModuleIDs:      comp.ModuleIDs,
		PaperIDs:       comp.PaperIDs,
		Fee:            fee,
		CatalogVersion: comp.CatalogVersion,
		CreatedAt:      time.Now().UTC(),
	}
}

func candidateIDs(candidates []*models.Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

func targetKind(req models.BulkTargetRequest) models.TargetKind {
	return req.Target().Kind
}

func resultKey(moduleID, paperID string, t models.AssessmentType) string {
	return moduleID + "|" + paperID + "|" + string(t)
}
