package catalog

import (
	"fmt"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// BuildOptions describes what a candidate may be enrolled under. The modular
// level is derived here once; modular candidates never choose it.
func BuildOptions(c *models.Candidate, occ *models.Occupation, series []*models.AssessmentSeries) (*models.EnrollmentOptions, error) {
	if c == nil || occ == nil {
		return nil, fmt.Errorf("candidate and occupation are required")
	}

	cat := c.RegistrationCategory
	opts := &models.EnrollmentOptions{
		CandidateID:          c.ID,
		RegistrationCategory: cat,
		Occupation:           occ,
		AssessmentSeries:     series,
		CatalogVersion:       occ.Version,
	}

	switch cat {
	case models.CategoryModular:
		if occ.Category != models.OccupationFormal || !occ.SupportsModular {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonCategoryMismatch, cat,
				fmt.Sprintf("occupation %s does not offer modular registration", occ.Code))
		}
		if level := occ.ModularLevel(); level != nil {
			opts.Level = level
			opts.Modules = append(opts.Modules, level.Modules...)
		}
		opts.Modules = append(opts.Modules, occ.Modules...)

	case models.CategoryFormal:
		if occ.Category != models.OccupationFormal {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonCategoryMismatch, cat,
				fmt.Sprintf("occupation %s is not a formal occupation", occ.Code))
		}
		opts.Levels = occ.StandardLevels()

	case models.CategoryWorkersPAS:
		if occ.Category != models.OccupationWorkersPAS {
			return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonCategoryMismatch, cat,
				fmt.Sprintf("occupation %s is not a worker's PAS occupation", occ.Code))
		}
		opts.Levels = occ.StandardLevels()

	default:
		return nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, cat,
			fmt.Sprintf("unknown registration category %q", cat))
	}

	return opts, nil
}
