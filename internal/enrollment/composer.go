// Package enrollment validates level/module/paper selections against the
// composition rules of each registration category.
package enrollment

import (
	"fmt"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Cardinality bounds per category
const (
	MaxModularModules  = 2
	MinWorkersPASPaper = 2
	MaxWorkersPASPaper = 4
)

// Validate checks a selection against the options a candidate may be enrolled
// under and returns the resulting composition. Rules are evaluated in a fixed
// order and the first failure is returned as a *models.RuleError.
func Validate(category models.RegistrationCategory, sel models.Selection, opts *models.EnrollmentOptions) (*models.Composition, error) {
	if !category.IsValid() {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, category,
			fmt.Sprintf("unknown registration category %q", category))
	}
	if opts == nil || opts.Occupation == nil {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonOptionsNotLoaded, category,
			"enrollment options not loaded")
	}
	if opts.RegistrationCategory != "" && opts.RegistrationCategory != category {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonCategoryMismatch, category,
			fmt.Sprintf("candidate is registered as %s", opts.RegistrationCategory))
	}

	sel = models.Selection{
		LevelID:   sel.LevelID,
		ModuleIDs: dedupe(sel.ModuleIDs),
		PaperIDs:  dedupe(sel.PaperIDs),
	}

	var (
		comp *models.Composition
		err  error
	)
	switch category {
	case models.CategoryModular:
		comp, err = validateModular(sel, opts)
	case models.CategoryFormal:
		comp, err = validateFormal(sel, opts)
	case models.CategoryWorkersPAS:
		comp, err = validateWorkersPAS(sel, opts)
	}
	if err != nil {
		return nil, err
	}

	comp.Category = category
	comp.CatalogVersion = opts.CatalogVersion
	return comp, nil
}

// ModularLevel is the level a modular enrollment is fixed to. It is derived
// from the catalog and never chosen by the user.
func ModularLevel(opts *models.EnrollmentOptions) *models.OccupationLevel {
	if opts == nil {
		return nil
	}
	if opts.Level != nil {
		return opts.Level
	}
	if opts.Occupation == nil {
		return nil
	}
	return opts.Occupation.ModularLevel()
}

func validateModular(sel models.Selection, opts *models.EnrollmentOptions) (*models.Composition, error) {
	cat := models.CategoryModular

	level := ModularLevel(opts)
	if level == nil {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonNoModularLevel, cat,
			fmt.Sprintf("occupation %s has no modular level", opts.Occupation.Code))
	}
	if sel.LevelID != "" && sel.LevelID != level.ID {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonLevelNotSelectable, cat,
			"the modular level is fixed by the occupation and cannot be chosen")
	}

	switch n := len(sel.ModuleIDs); {
	case n == 0:
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonNoModules, cat,
			"select at least one module")
	case n > MaxModularModules:
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonTooManyModules, cat,
			"modular registration requires 1 or 2 modules")
	}

	for _, id := range sel.ModuleIDs {
		if offeredModule(opts, level, id) == nil {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownModule, cat,
				fmt.Sprintf("module %s is not offered for modular registration", id))
		}
	}

	if len(sel.PaperIDs) > 0 {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonPapersNotAllowed, cat,
			"papers cannot be selected for modular registration")
	}

	return &models.Composition{
		LevelID:   level.ID,
		ModuleIDs: sel.ModuleIDs,
		PaperIDs:  []string{},
	}, nil
}

// validateFormal fixes only the level. Module and paper detail is supplied
// later, row by row, when results are entered (see ValidateResults).
func validateFormal(sel models.Selection, opts *models.EnrollmentOptions) (*models.Composition, error) {
	cat := models.CategoryFormal

	if sel.LevelID == "" {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonLevelRequired, cat,
			"select a level")
	}
	level := opts.LevelByID(sel.LevelID)
	if level == nil {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownLevel, cat,
			fmt.Sprintf("level %s is not offered for this occupation", sel.LevelID))
	}
	if len(sel.PaperIDs) > 0 {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonPapersNotAllowed, cat,
			"papers are chosen when results are entered, not at enrollment")
	}
	if len(sel.ModuleIDs) > 0 && level.StructureType == models.StructurePapers {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonModulesNotAllowed, cat,
			fmt.Sprintf("level %s is assessed by papers", level.Name))
	}
	for _, id := range sel.ModuleIDs {
		if level.Module(id) == nil {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownModule, cat,
				fmt.Sprintf("module %s does not belong to level %s", id, level.Name))
		}
	}

	return &models.Composition{
		LevelID:   level.ID,
		ModuleIDs: nonNil(sel.ModuleIDs),
		PaperIDs:  []string{},
	}, nil
}

func validateWorkersPAS(sel models.Selection, opts *models.EnrollmentOptions) (*models.Composition, error) {
	cat := models.CategoryWorkersPAS

	var level *models.OccupationLevel
	if sel.LevelID != "" {
		if level = opts.LevelByID(sel.LevelID); level == nil {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownLevel, cat,
				fmt.Sprintf("level %s is not offered for this occupation", sel.LevelID))
		}
	}
	if len(sel.ModuleIDs) > 0 {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonModulesNotAllowed, cat,
			"modules follow from the selected papers")
	}

	switch n := len(sel.PaperIDs); {
	case n < MinWorkersPASPaper:
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonTooFewPapers, cat,
			fmt.Sprintf("select at least %d papers", MinWorkersPASPaper))
	case n > MaxWorkersPASPaper:
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonTooManyPapers, cat,
			fmt.Sprintf("select at most %d papers", MaxWorkersPASPaper))
	}

	moduleOf := make(map[string]string, len(sel.PaperIDs))
	moduleIDs := make([]string, 0, len(sel.PaperIDs))
	for _, id := range sel.PaperIDs {
		paper := offeredPaper(opts, level, id)
		if paper == nil {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownPaper, cat,
				fmt.Sprintf("paper %s is not offered for this occupation", id))
		}
		if other, taken := moduleOf[paper.ModuleID]; taken {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonDuplicateModulePaper, cat,
				fmt.Sprintf("papers %s and %s belong to the same module; select one paper per module", other, id))
		}
		moduleOf[paper.ModuleID] = id
		moduleIDs = append(moduleIDs, paper.ModuleID)
	}

	comp := &models.Composition{
		ModuleIDs: moduleIDs,
		PaperIDs:  sel.PaperIDs,
	}
	if level != nil {
		comp.LevelID = level.ID
	}
	return comp, nil
}

func offeredModule(opts *models.EnrollmentOptions, level *models.OccupationLevel, id string) *models.Module {
	if len(opts.Modules) > 0 {
		return opts.Module(id)
	}
	if m := level.Module(id); m != nil {
		return m
	}
	for _, m := range opts.Occupation.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func offeredPaper(opts *models.EnrollmentOptions, level *models.OccupationLevel, id string) *models.Paper {
	levels := opts.Levels
	if level != nil {
		levels = []*models.OccupationLevel{level}
	}
	for _, l := range levels {
		for _, m := range l.Modules {
			if p := m.Paper(id); p != nil {
				return p
			}
		}
	}
	return nil
}

// dedupe collapses repeated ids keeping first-seen order
func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
