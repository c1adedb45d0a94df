package enrollment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func assertReason(t *testing.T, err error, want models.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrCompositionInvalid), "expected CompositionInvalid, got %v", err)
	reason, ok := models.ReasonOf(err)
	require.True(t, ok, "error carries no reason: %v", err)
	assert.Equal(t, want, reason)
}

func TestValidateModular(t *testing.T) {
	tests := []struct {
		name    string
		sel     models.Selection
		reason  models.Reason
		modules []string
	}{
		{name: "no modules", sel: models.Selection{}, reason: models.ReasonNoModules},
		{name: "one module", sel: models.Selection{ModuleIDs: []string{"m1"}}, modules: []string{"m1"}},
		{name: "two modules", sel: models.Selection{ModuleIDs: []string{"m1", "m2"}}, modules: []string{"m1", "m2"}},
		{name: "three modules", sel: models.Selection{ModuleIDs: []string{"m1", "m2", "m3"}}, reason: models.ReasonTooManyModules},
		{name: "duplicates collapse", sel: models.Selection{ModuleIDs: []string{"m1", "m1", "m2"}}, modules: []string{"m1", "m2"}},
		{name: "unknown module", sel: models.Selection{ModuleIDs: []string{"lm1"}}, reason: models.ReasonUnknownModule},
		{name: "papers", sel: models.Selection{ModuleIDs: []string{"m1"}, PaperIDs: []string{"p1"}}, reason: models.ReasonPapersNotAllowed},
		{name: "user chosen level", sel: models.Selection{LevelID: "lvl-1", ModuleIDs: []string{"m1"}}, reason: models.ReasonLevelNotSelectable},
		{name: "modular level echoed", sel: models.Selection{LevelID: "lvl-mod", ModuleIDs: []string{"m1"}}, modules: []string{"m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := Validate(models.CategoryModular, tt.sel, modularOptions())
			if tt.reason != "" {
				assertReason(t, err, tt.reason)
				assert.Nil(t, comp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.CategoryModular, comp.Category)
			assert.Equal(t, "lvl-mod", comp.LevelID)
			assert.Equal(t, tt.modules, comp.ModuleIDs)
			assert.Empty(t, comp.PaperIDs)
			assert.Equal(t, "v1", comp.CatalogVersion)
		})
	}
}

func TestValidateModularDerivesLevelFromOccupation(t *testing.T) {
	opts := modularOptions()
	opts.Level = nil
	opts.Modules = nil

	comp, err := Validate(models.CategoryModular, models.Selection{ModuleIDs: []string{"m2"}}, opts)
	require.NoError(t, err)
	assert.Equal(t, "lvl-mod", comp.LevelID)
}

func TestValidateModularWithoutModularLevel(t *testing.T) {
	opts := modularOptions()
	opts.Level = nil
	opts.Occupation.Levels = opts.Occupation.StandardLevels()

	_, err := Validate(models.CategoryModular, models.Selection{ModuleIDs: []string{"m1"}}, opts)
	assertReason(t, err, models.ReasonNoModularLevel)
}

func TestValidateFormal(t *testing.T) {
	tests := []struct {
		name   string
		sel    models.Selection
		reason models.Reason
	}{
		{name: "no level", sel: models.Selection{}, reason: models.ReasonLevelRequired},
		{name: "unknown level", sel: models.Selection{LevelID: "nope"}, reason: models.ReasonUnknownLevel},
		{name: "modular level not offered", sel: models.Selection{LevelID: "lvl-mod"}, reason: models.ReasonUnknownLevel},
		{name: "level only", sel: models.Selection{LevelID: "lvl-1"}},
		{name: "module level with modules", sel: models.Selection{LevelID: "lvl-1", ModuleIDs: []string{"lm1"}}},
		{name: "paper level", sel: models.Selection{LevelID: "lvl-2"}},
		{name: "papers at enrollment", sel: models.Selection{LevelID: "lvl-2", PaperIDs: []string{"p1"}}, reason: models.ReasonPapersNotAllowed},
		{name: "modules on paper level", sel: models.Selection{LevelID: "lvl-2", ModuleIDs: []string{"pm1"}}, reason: models.ReasonModulesNotAllowed},
		{name: "module of another level", sel: models.Selection{LevelID: "lvl-1", ModuleIDs: []string{"m1"}}, reason: models.ReasonUnknownModule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := Validate(models.CategoryFormal, tt.sel, formalOptions())
			if tt.reason != "" {
				assertReason(t, err, tt.reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.sel.LevelID, comp.LevelID)
			assert.NotNil(t, comp.ModuleIDs)
			assert.Empty(t, comp.PaperIDs)
		})
	}
}

func TestValidateWorkersPAS(t *testing.T) {
	tests := []struct {
		name    string
		papers  []string
		reason  models.Reason
		modules []string
	}{
		{name: "one paper", papers: []string{"wp1"}, reason: models.ReasonTooFewPapers},
		{name: "two papers", papers: []string{"wp1", "wp3"}, modules: []string{"wm1", "wm2"}},
		{name: "three papers", papers: []string{"wp1", "wp3", "wp4"}, modules: []string{"wm1", "wm2", "wm3"}},
		{name: "four papers", papers: []string{"wp1", "wp3", "wp4", "wp5"}, modules: []string{"wm1", "wm2", "wm3", "wm4"}},
		{name: "five papers", papers: []string{"wp1", "wp3", "wp4", "wp5", "wp6"}, reason: models.ReasonTooManyPapers},
		{name: "same module pair", papers: []string{"wp1", "wp2"}, reason: models.ReasonDuplicateModulePaper},
		{name: "same module pair among four", papers: []string{"wp3", "wp4", "wp1", "wp2"}, reason: models.ReasonDuplicateModulePaper},
		{name: "unknown paper", papers: []string{"wp1", "zz"}, reason: models.ReasonUnknownPaper},
		{name: "papers across levels", papers: []string{"wp1", "wp7"}, modules: []string{"wm1", "wm6"}},
		{name: "duplicate id collapses below minimum", papers: []string{"wp1", "wp1"}, reason: models.ReasonTooFewPapers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp, err := Validate(models.CategoryWorkersPAS, models.Selection{PaperIDs: tt.papers}, workersOptions())
			if tt.reason != "" {
				assertReason(t, err, tt.reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.papers, comp.PaperIDs)
			assert.Equal(t, tt.modules, comp.ModuleIDs)
		})
	}
}

func TestValidateWorkersPASDuplicateIsDistinctFromCounts(t *testing.T) {
	_, err := Validate(models.CategoryWorkersPAS, models.Selection{PaperIDs: []string{"wp1", "wp2", "wp3"}}, workersOptions())
	reason, _ := models.ReasonOf(err)
	assert.Equal(t, models.ReasonDuplicateModulePaper, reason)
	assert.NotEqual(t, models.ReasonTooFewPapers, reason)
	assert.NotEqual(t, models.ReasonTooManyPapers, reason)
}

func TestValidateWorkersPASRestrictedToChosenLevel(t *testing.T) {
	_, err := Validate(models.CategoryWorkersPAS,
		models.Selection{LevelID: "w1", PaperIDs: []string{"wp1", "wp7"}}, workersOptions())
	assertReason(t, err, models.ReasonUnknownPaper)

	_, err = Validate(models.CategoryWorkersPAS,
		models.Selection{ModuleIDs: []string{"wm1"}, PaperIDs: []string{"wp1", "wp3"}}, workersOptions())
	assertReason(t, err, models.ReasonModulesNotAllowed)
}

func TestValidateCategoryChecks(t *testing.T) {
	_, err := Validate("diploma", models.Selection{}, formalOptions())
	assertReason(t, err, models.ReasonUnknownCategory)

	_, err = Validate(models.CategoryModular, models.Selection{ModuleIDs: []string{"m1"}}, formalOptions())
	assertReason(t, err, models.ReasonCategoryMismatch)

	_, err = Validate(models.CategoryFormal, models.Selection{LevelID: "lvl-1"}, nil)
	assertReason(t, err, models.ReasonOptionsNotLoaded)

	_, err = Validate(models.CategoryFormal, models.Selection{LevelID: "lvl-1"}, &models.EnrollmentOptions{})
	assertReason(t, err, models.ReasonOptionsNotLoaded)
}

func TestRuleErrorCarriesCategory(t *testing.T) {
	_, err := Validate(models.CategoryWorkersPAS, models.Selection{PaperIDs: []string{"wp1"}}, workersOptions())

	var re *models.RuleError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, models.CategoryWorkersPAS, re.Category)
	assert.NotEmpty(t, re.Message)
}
