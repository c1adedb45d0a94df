package enrollment

import (
	"fmt"

	"github.com/ClaireAgaba/informal-system-sub000/internal/grading"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// ValidateResults checks result rows submitted for an enrollment. It is the
// second phase of composition: formal enrollments fix only the level, and the
// module or paper each mark belongs to is resolved here.
//
// The returned rows are normalized: a paper's catalog type replaces an empty
// submitted type and the owning module is filled in for paper rows.
func ValidateResults(e *models.Enrollment, occ *models.Occupation, entries []models.ResultEntry) ([]models.ResultEntry, error) {
	if e == nil {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonOptionsNotLoaded, "",
			"enrollment is required")
	}
	if occ == nil {
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonOptionsNotLoaded, e.Category,
			"occupation is required")
	}

	out := make([]models.ResultEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		if err := grading.ValidateMark(entry.Mark); err != nil {
			return nil, rowError(e.Category, models.ErrMarkOutOfRange, models.ReasonMarkOutOfRange, i,
				"mark must be between 0 and 100, or -1 for missing")
		}

		row, err := resolveRow(e, occ, entry, i)
		if err != nil {
			return nil, err
		}

		key := row.ModuleID + "|" + row.PaperID + "|" + string(row.Type)
		if _, dup := seen[key]; dup {
			return nil, rowError(e.Category, models.ErrCompositionInvalid, models.ReasonDuplicateResult, i,
				"a result for this module or paper and type was already given")
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}

	return out, nil
}

func resolveRow(e *models.Enrollment, occ *models.Occupation, entry models.ResultEntry, i int) (models.ResultEntry, error) {
	cat := e.Category

	switch cat {
	case models.CategoryFormal:
		level := occ.Level(e.LevelID)
		if level == nil {
			return entry, rowError(cat, models.ErrStaleCatalogData, models.ReasonCatalogChanged, i,
				fmt.Sprintf("enrolled level %s no longer exists", e.LevelID))
		}
		if level.StructureType == models.StructurePapers {
			if entry.PaperID == "" {
				return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperRequired, i,
					fmt.Sprintf("level %s is assessed by papers; paper_id is required", level.Name))
			}
			var paper *models.Paper
			for _, p := range level.Papers() {
				if p.ID == entry.PaperID {
					paper = p
					break
				}
			}
			if paper == nil {
				return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonUnknownPaper, i,
					fmt.Sprintf("paper %s does not belong to level %s", entry.PaperID, level.Name))
			}
			return paperRow(cat, entry, paper, i)
		}

		if entry.PaperID != "" {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperNotAllowed, i,
				fmt.Sprintf("level %s is assessed by modules; paper_id must be empty", level.Name))
		}
		if entry.ModuleID == "" {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonModuleRequired, i,
				"module_id is required")
		}
		if level.Module(entry.ModuleID) == nil {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonUnknownModule, i,
				fmt.Sprintf("module %s does not belong to level %s", entry.ModuleID, level.Name))
		}
		if len(e.ModuleIDs) > 0 && !contains(e.ModuleIDs, entry.ModuleID) {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonModuleNotEnrolled, i,
				fmt.Sprintf("module %s is not part of this enrollment", entry.ModuleID))
		}
		return moduleRow(cat, entry, i)

	case models.CategoryModular:
		if entry.PaperID != "" {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperNotAllowed, i,
				"modular results are entered per module")
		}
		if entry.ModuleID == "" {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonModuleRequired, i,
				"module_id is required")
		}
		if !contains(e.ModuleIDs, entry.ModuleID) {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonModuleNotEnrolled, i,
				fmt.Sprintf("module %s is not part of this enrollment", entry.ModuleID))
		}
		return moduleRow(cat, entry, i)

	case models.CategoryWorkersPAS:
		if entry.PaperID == "" {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperRequired, i,
				"paper_id is required")
		}
		if !contains(e.PaperIDs, entry.PaperID) {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperNotEnrolled, i,
				fmt.Sprintf("paper %s is not part of this enrollment", entry.PaperID))
		}
		paper := occ.Paper(entry.PaperID)
		if paper == nil {
			return entry, rowError(cat, models.ErrStaleCatalogData, models.ReasonCatalogChanged, i,
				fmt.Sprintf("enrolled paper %s no longer exists", entry.PaperID))
		}
		return paperRow(cat, entry, paper, i)
	}

	return entry, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, cat,
		fmt.Sprintf("unknown registration category %q", cat))
}

// paperRow applies the paper's catalog type, which callers cannot override
func paperRow(cat models.RegistrationCategory, entry models.ResultEntry, paper *models.Paper, i int) (models.ResultEntry, error) {
	if entry.ModuleID != "" && entry.ModuleID != paper.ModuleID {
		return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonUnknownPaper, i,
			fmt.Sprintf("paper %s does not belong to module %s", paper.ID, entry.ModuleID))
	}
	entry.ModuleID = paper.ModuleID

	if paper.Type.IsValid() {
		if entry.Type != "" && entry.Type != paper.Type {
			return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonPaperTypeOverride, i,
				fmt.Sprintf("paper %s is a %s paper", paper.Code, paper.Type))
		}
		entry.Type = paper.Type
		return entry, nil
	}
	if !entry.Type.IsValid() {
		return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonTypeRequired, i,
			"type must be theory or practical")
	}
	return entry, nil
}

func moduleRow(cat models.RegistrationCategory, entry models.ResultEntry, i int) (models.ResultEntry, error) {
	if !entry.Type.IsValid() {
		return entry, rowError(cat, models.ErrCompositionInvalid, models.ReasonTypeRequired, i,
			"type must be theory or practical")
	}
	return entry, nil
}

func rowError(cat models.RegistrationCategory, kind error, reason models.Reason, i int, msg string) error {
	return models.NewRuleError(kind, reason, cat, fmt.Sprintf("row %d: %s", i+1, msg))
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
