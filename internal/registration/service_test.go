package registration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaireAgaba/informal-system-sub000/internal/bulk"
	"github.com/ClaireAgaba/informal-system-sub000/internal/catalog"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
	"github.com/ClaireAgaba/informal-system-sub000/internal/storage"
)

func fee(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func electrical() *models.Occupation {
	return &models.Occupation{
		ID: "occ-elec", Code: "ELEC", Name: "Electrical Installation",
		Category: models.OccupationFormal, SupportsModular: true,
		Levels: []*models.OccupationLevel{
			{
				ID: "elec-mod", Name: "Modular", StructureType: models.StructureModules, Modular: true,
				Modules: []*models.Module{
					{ID: "m1", Code: "EM1", Name: "Wiring"},
					{ID: "m2", Code: "EM2", Name: "Safety"},
					{ID: "m3", Code: "EM3", Name: "Metering"},
				},
				ModularFeeSingleModule: fee("50000"),
				ModularFeeDoubleModule: fee("90000"),
			},
			{
				ID: "elec-l1", Name: "Level 1", StructureType: models.StructureModules,
				Modules: []*models.Module{
					{ID: "l1m1", Code: "L1M1", Name: "Domestic Wiring"},
					{ID: "l1m2", Code: "L1M2", Name: "Tools"},
				},
				FormalFee: fee("150000"),
			},
			{
				ID: "elec-l2", Name: "Level 2", StructureType: models.StructurePapers,
				Modules: []*models.Module{
					{ID: "l2m1", Code: "L2M1", Name: "Industrial Wiring", Papers: []*models.Paper{
						{ID: "l2p1", Code: "L2P1", Name: "Theory", Type: models.AssessmentTheory},
						{ID: "l2p2", Code: "L2P2", Name: "Practical", Type: models.AssessmentPractical},
					}},
				},
				FormalFee: fee("200000"),
			},
		},
	}
}

func tailoring() *models.Occupation {
	return &models.Occupation{
		ID: "occ-tail", Code: "TAIL", Name: "Tailoring", Category: models.OccupationWorkersPAS,
		Levels: []*models.OccupationLevel{
			{
				ID: "tail-l1", Name: "Level 1", StructureType: models.StructurePapers,
				Modules: []*models.Module{
					{ID: "tm1", Code: "TM1", Name: "Cutting", Papers: []*models.Paper{
						{ID: "tp1", Code: "TP1", Name: "Cutting Theory", Type: models.AssessmentTheory},
						{ID: "tp2", Code: "TP2", Name: "Cutting Practical", Type: models.AssessmentPractical},
					}},
					{ID: "tm2", Code: "TM2", Name: "Sewing", Papers: []*models.Paper{
						{ID: "tp3", Code: "TP3", Name: "Sewing Practical", Type: models.AssessmentPractical},
					}},
					{ID: "tm3", Code: "TM3", Name: "Finishing", Papers: []*models.Paper{
						{ID: "tp4", Code: "TP4", Name: "Finishing Practical", Type: models.AssessmentPractical},
					}},
				},
				WorkersPASPerPaperFee: fee("75000"),
			},
		},
	}
}

type fixture struct {
	svc    *Registrar
	repo   *storage.MemoryRepository
	loader *catalog.Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loader := catalog.NewLoader()
	require.NoError(t, loader.Add(electrical()))
	require.NoError(t, loader.Add(tailoring()))

	repo := storage.NewMemoryRepository()
	repo.AddSeries(&models.AssessmentSeries{ID: "s1", Name: "March 2026", IsCurrent: true})
	repo.AddSeries(&models.AssessmentSeries{ID: "s2", Name: "June 2026"})

	return &fixture{
		svc:    NewRegistrar(repo, loader, bulk.NewMemoryStore(), Options{DefaultPageSize: 2}),
		repo:   repo,
		loader: loader,
	}
}

func (f *fixture) candidate(t *testing.T, regNo, occupationID string, cat models.RegistrationCategory, center string) *models.Candidate {
	t.Helper()
	c, err := f.svc.CreateCandidate(context.Background(), models.CreateCandidateRequest{
		RegNo:                regNo,
		FullName:             "Candidate " + regNo,
		OccupationID:         occupationID,
		RegistrationCategory: cat,
		CenterID:             center,
	})
	require.NoError(t, err)
	return c
}

func assertReason(t *testing.T, err error, kind error, reason models.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	got, ok := models.ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, reason, got)
}

func TestCreateCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.candidate(t, "REG-1", "occ-elec", models.CategoryModular, "c1")
	assert.NotEmpty(t, c.ID)

	_, err := f.svc.CreateCandidate(ctx, models.CreateCandidateRequest{
		RegNo: "REG-1", FullName: "Again", OccupationID: "occ-elec", RegistrationCategory: models.CategoryFormal,
	})
	assert.ErrorIs(t, err, ErrDuplicateRegNo)

	_, err = f.svc.CreateCandidate(ctx, models.CreateCandidateRequest{
		RegNo: "REG-2", FullName: "Nobody", OccupationID: "occ-none", RegistrationCategory: models.CategoryFormal,
	})
	assert.ErrorIs(t, err, ErrOccupationNotFound)

	_, err = f.svc.CreateCandidate(ctx, models.CreateCandidateRequest{
		RegNo: "REG-3", FullName: "Tailor", OccupationID: "occ-tail", RegistrationCategory: models.CategoryModular,
	})
	assertReason(t, err, models.ErrCompositionInvalid, models.ReasonCategoryMismatch)

	_, err = f.svc.CreateCandidate(ctx, models.CreateCandidateRequest{RegNo: " ", FullName: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListCandidatesPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.candidate(t, fmt.Sprintf("REG-%d", i), "occ-elec", models.CategoryFormal, "c1")
	}

	page, err := f.svc.ListCandidates(context.Background(), models.CandidateFilters{}, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.PageSize)
	assert.Len(t, page.Items, 1)
}

func TestOptionsAndQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "REG-1", "occ-elec", models.CategoryModular, "c1")

	opts, err := f.svc.Options(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, opts.Level)
	assert.Equal(t, "elec-mod", opts.Level.ID)
	assert.Len(t, opts.AssessmentSeries, 2)

	quote, err := f.svc.Quote(ctx, c.ID, models.FeeQuoteRequest{
		Selection:      models.Selection{ModuleIDs: []string{"m1", "m2"}},
		CandidateCount: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, quote.CandidateCount)
	assert.Equal(t, 0, quote.Amount.Cmp(apd.New(270000, 0)))

	_, err = f.svc.Quote(ctx, c.ID, models.FeeQuoteRequest{
		Selection: models.Selection{ModuleIDs: []string{"m1", "m2", "m3"}},
	})
	assertReason(t, err, models.ErrCompositionInvalid, models.ReasonTooManyModules)

	_, err = f.svc.Options(ctx, "missing")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
}

func TestEnrollWorkersPAS(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "REG-1", "occ-tail", models.CategoryWorkersPAS, "c1")

	opts, err := f.svc.Options(ctx, c.ID)
	require.NoError(t, err)

	e, err := f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:       "s1",
		Selection:      models.Selection{PaperIDs: []string{"tp1", "tp3", "tp4"}},
		CatalogVersion: opts.CatalogVersion,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, e.Fee.Cmp(apd.New(225000, 0)))
	assert.ElementsMatch(t, []string{"tm1", "tm2", "tm3"}, e.ModuleIDs)
	assert.Equal(t, opts.CatalogVersion, e.CatalogVersion)

	_, err = f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:  "s1",
		Selection: models.Selection{PaperIDs: []string{"tp3", "tp4"}},
	})
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	_, err = f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:  "s2",
		Selection: models.Selection{PaperIDs: []string{"tp1", "tp2"}},
	})
	assertReason(t, err, models.ErrCompositionInvalid, models.ReasonDuplicateModulePaper)

	_, err = f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:  "nope",
		Selection: models.Selection{PaperIDs: []string{"tp3", "tp4"}},
	})
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestEnrollRejectsStaleCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "REG-1", "occ-elec", models.CategoryFormal, "c1")

	opts, err := f.svc.Options(ctx, c.ID)
	require.NoError(t, err)

	changed := electrical()
	changed.Levels[1].FormalFee = fee("175000")
	require.NoError(t, f.loader.Add(changed))

	_, err = f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:       "s1",
		Selection:      models.Selection{LevelID: "elec-l1"},
		CatalogVersion: opts.CatalogVersion,
	})
	assertReason(t, err, models.ErrStaleCatalogData, models.ReasonCatalogChanged)

	fresh, err := f.svc.Options(ctx, c.ID)
	require.NoError(t, err)
	e, err := f.svc.Enroll(ctx, c.ID, models.EnrollRequest{
		SeriesID:       "s1",
		Selection:      models.Selection{LevelID: "elec-l1"},
		CatalogVersion: fresh.CatalogVersion,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, e.Fee.Cmp(apd.New(175000, 0)))
}

func TestBulkSelectionExplicitAndSelectAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.candidate(t, fmt.Sprintf("REG-%d", i), "occ-elec", models.CategoryModular, "c1")
	}
	filters := models.CandidateFilters{CenterID: "c1"}

	page, err := f.svc.ListCandidates(ctx, filters, 1, 2)
	require.NoError(t, err)

	sel, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{
		Filters:     filters,
		Page:        1,
		PageSize:    2,
		SelectedIDs: []string{page.Items[0].ID, page.Items[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TargetExplicit, sel.Target.Kind)
	assert.Equal(t, 2, sel.PreviewCount, "explicit selection never exceeds the visible page")
	assert.True(t, sel.CanSelectAll)
	assert.Empty(t, sel.ConfirmationToken)

	all, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{
		Filters:           filters,
		Page:              1,
		PageSize:          2,
		SelectedIDs:       []string{page.Items[0].ID, page.Items[1].ID},
		SelectAllMatching: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TargetByFilter, all.Target.Kind)
	assert.Equal(t, 5, all.PreviewCount)
	assert.NotEmpty(t, all.ConfirmationToken)

	none, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{Filters: filters})
	require.NoError(t, err)
	assert.Equal(t, 0, none.PreviewCount)
	assert.Equal(t, 5, none.Total)

	few, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{
		Filters:           filters,
		PageSize:          10,
		SelectAllMatching: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TargetExplicit, few.Target.Kind, "a page holding every match stays explicit")
	assert.Equal(t, 5, few.PreviewCount)
}

func TestBulkEnrollSelectAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.candidate(t, fmt.Sprintf("REG-%d", i), "occ-elec", models.CategoryModular, "c1")
	}
	other := f.candidate(t, "OTHER", "occ-elec", models.CategoryModular, "c2")
	filters := models.CandidateFilters{CenterID: "c1"}
	selection := models.Selection{ModuleIDs: []string{"m1", "m2"}}

	// unconfirmed select-all is refused
	_, err := f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{SelectAll: true, Filters: &filters},
		SeriesID:          "s1",
		Selection:         selection,
	})
	assertReason(t, err, models.ErrBulkTargetAmbiguous, models.ReasonNotConfirmed)

	sel, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{
		Filters: filters, PageSize: 2, SelectAllMatching: true,
	})
	require.NoError(t, err)

	// token confirmed for other filters
	changed := models.CandidateFilters{CenterID: "c2"}
	_, err = f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{SelectAll: true, Filters: &changed, ConfirmationToken: sel.ConfirmationToken},
		SeriesID:          "s1",
		Selection:         selection,
	})
	assertReason(t, err, models.ErrBulkTargetAmbiguous, models.ReasonFiltersChanged)

	res, err := f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{SelectAll: true, Filters: &filters, ConfirmationToken: sel.ConfirmationToken},
		SeriesID:          "s1",
		Selection:         selection,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Enrolled)
	assert.Equal(t, 0, res.FeePerCandidate.Cmp(apd.New(90000, 0)))
	assert.Equal(t, 0, res.TotalFee.Cmp(apd.New(270000, 0)))

	enrollments, err := f.svc.Enrollments(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, enrollments, "candidates outside the filters are untouched")

	// a second run skips everyone already enrolled
	res, err = f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{SelectAll: true, Filters: &filters, ConfirmationToken: sel.ConfirmationToken},
		SeriesID:          "s1",
		Selection:         selection,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enrolled)
	assert.Len(t, res.Skipped, 3)
	assert.Nil(t, res.TotalFee)
}

func TestBulkEnrollTargetChangedSincePreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.candidate(t, fmt.Sprintf("REG-%d", i), "occ-elec", models.CategoryModular, "c1")
	}
	filters := models.CandidateFilters{CenterID: "c1"}

	sel, err := f.svc.BulkSelection(ctx, models.BulkSelectionRequest{Filters: filters, SelectAllMatching: true})
	require.NoError(t, err)
	require.NotEmpty(t, sel.ConfirmationToken)
	f.candidate(t, "LATE", "occ-elec", models.CategoryModular, "c1")

	_, err = f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{SelectAll: true, Filters: &filters, ConfirmationToken: sel.ConfirmationToken},
		SeriesID:          "s1",
		Selection:         models.Selection{ModuleIDs: []string{"m1"}},
	})
	assertReason(t, err, models.ErrBulkTargetAmbiguous, models.ReasonTargetChanged)
}

func TestBulkEnrollHeterogeneousTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.candidate(t, "REG-1", "occ-elec", models.CategoryModular, "c1")
	b := f.candidate(t, "REG-2", "occ-elec", models.CategoryFormal, "c1")

	_, err := f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{a.ID, b.ID}},
		SeriesID:          "s1",
		Selection:         models.Selection{ModuleIDs: []string{"m1"}},
	})
	assert.ErrorIs(t, err, ErrHeterogeneousTarget)

	_, err = f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{"ghost"}},
		SeriesID:          "s1",
		Selection:         models.Selection{ModuleIDs: []string{"m1"}},
	})
	assert.ErrorIs(t, err, ErrEmptyTarget)

	_, err = f.svc.BulkEnroll(ctx, models.BulkEnrollRequest{SeriesID: "s1"})
	assertReason(t, err, models.ErrBulkTargetAmbiguous, models.ReasonNothingSelected)
}

func TestChangeCenterAndSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.candidate(t, "REG-1", "occ-elec", models.CategoryFormal, "c1")
	b := f.candidate(t, "REG-2", "occ-elec", models.CategoryFormal, "c1")

	res, err := f.svc.ChangeCenter(ctx, models.ChangeCenterRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{a.ID}},
		CenterID:          "c7",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	moved, err := f.svc.GetCandidate(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "c7", moved.CenterID)

	_, err = f.svc.ChangeCenter(ctx, models.ChangeCenterRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{a.ID}},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, c := range []*models.Candidate{a, b} {
		_, err := f.svc.Enroll(ctx, c.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l1"}})
		require.NoError(t, err)
	}
	res, err = f.svc.ChangeSeries(ctx, models.ChangeSeriesRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{a.ID, b.ID}},
		FromSeriesID:      "s1",
		ToSeriesID:        "s2",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Affected)

	_, err = f.svc.ChangeSeries(ctx, models.ChangeSeriesRequest{
		BulkTargetRequest: models.BulkTargetRequest{CandidateIDs: []string{a.ID}},
		FromSeriesID:      "s1",
		ToSeriesID:        "s9",
	})
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func mark(v float64) *float64 { return &v }

func TestRecordResultsFormalPapers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "REG-1", "occ-elec", models.CategoryFormal, "c1")
	e, err := f.svc.Enroll(ctx, c.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l2"}})
	require.NoError(t, err)

	graded, err := f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		SeriesID: "s1",
		Results: []models.ResultEntry{
			{PaperID: "l2p1", Mark: mark(84.5)},
			{PaperID: "l2p2", Mark: mark(models.MissingMark)},
		},
	}, false)
	require.NoError(t, err)
	require.Len(t, graded, 2)

	byPaper := map[string]*models.GradedResult{}
	for _, g := range graded {
		byPaper[g.PaperID] = g
	}
	assert.Equal(t, "A", byPaper["l2p1"].Grade)
	assert.Equal(t, models.VerdictSuccess, byPaper["l2p1"].Verdict)
	assert.Equal(t, models.AssessmentTheory, byPaper["l2p1"].Type)
	assert.Equal(t, "l2m1", byPaper["l2p1"].ModuleID)
	assert.Equal(t, models.VerdictMissing, byPaper["l2p2"].Verdict)

	// adding again is refused, updating overwrites
	_, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		Results: []models.ResultEntry{{PaperID: "l2p2", Mark: mark(70)}},
	}, false)
	assertReason(t, err, models.ErrCompositionInvalid, models.ReasonDuplicateResult)

	graded, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		Results: []models.ResultEntry{{PaperID: "l2p2", Mark: mark(70)}},
	}, true)
	require.NoError(t, err)
	for _, g := range graded {
		if g.PaperID == "l2p2" {
			assert.Equal(t, "B", g.Grade)
			assert.Equal(t, models.VerdictSuccess, g.Verdict)
		}
	}

	_, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		Results: []models.ResultEntry{{PaperID: "l2p1", Type: models.AssessmentPractical, Mark: mark(60)}},
	}, true)
	assertReason(t, err, models.ErrCompositionInvalid, models.ReasonPaperTypeOverride)

	_, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		Results: []models.ResultEntry{{PaperID: "l2p1", Mark: mark(101)}},
	}, true)
	assertReason(t, err, models.ErrMarkOutOfRange, models.ReasonMarkOutOfRange)

	_, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{SeriesID: "s2"}, true)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClearEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "REG-1", "occ-elec", models.CategoryFormal, "c1")
	e, err := f.svc.Enroll(ctx, c.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l1"}})
	require.NoError(t, err)
	_, err = f.svc.RecordResults(ctx, e.ID, models.ResultsRequest{
		Results: []models.ResultEntry{{ModuleID: "l1m1", Type: models.AssessmentPractical, Mark: mark(66)}},
	}, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearEnrollment(ctx, e.ID))
	_, err = f.svc.Results(ctx, e.ID)
	assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	assert.ErrorIs(t, f.svc.ClearEnrollment(ctx, e.ID), ErrEnrollmentNotFound)

	// the candidate can be enrolled again
	_, err = f.svc.Enroll(ctx, c.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l1"}})
	assert.NoError(t, err)
}

func TestMarksheetRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.candidate(t, "REG-1", "occ-elec", models.CategoryFormal, "c1")
	b := f.candidate(t, "REG-2", "occ-elec", models.CategoryFormal, "c1")

	ea, err := f.svc.Enroll(ctx, a.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l1"}})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, b.ID, models.EnrollRequest{SeriesID: "s1", Selection: models.Selection{LevelID: "elec-l1"}})
	require.NoError(t, err)
	_, err = f.svc.RecordResults(ctx, ea.ID, models.ResultsRequest{
		Results: []models.ResultEntry{
			{ModuleID: "l1m1", Type: models.AssessmentTheory, Mark: mark(45)},
			{ModuleID: "l1m1", Type: models.AssessmentPractical, Mark: mark(65)},
		},
	}, false)
	require.NoError(t, err)

	series, rows, err := f.svc.Marksheet(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "March 2026", series.Name)
	require.Len(t, rows, 3)

	verdicts := map[string]string{}
	for _, r := range rows {
		assert.Equal(t, "ELEC", r.Occupation)
		assert.Equal(t, "Level 1", r.Level)
		verdicts[r.RegNo+"/"+r.Type] = r.Verdict
	}
	assert.Equal(t, models.VerdictNotSuccessful, verdicts["REG-1/theory"])
	assert.Equal(t, models.VerdictSuccess, verdicts["REG-1/practical"])
	assert.Equal(t, models.VerdictNone, verdicts["REG-2/"])

	_, _, err = f.svc.Marksheet(ctx, "nope")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}
