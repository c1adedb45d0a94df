// Package fees prices validated compositions from the catalog fee schedule.
package fees

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// decimalCtx is wide enough for any realistic fee times candidate count
var decimalCtx = apd.BaseContext.WithPrecision(34)

// Compute returns the fee for candidateCount candidates enrolled under comp.
//
// It returns ErrFeeUnresolved with a nil amount while the composition is
// incomplete or the catalog does not define the fee, and ErrZeroFee when the
// schedule prices the composition at zero. A nil amount is never a zero fee.
func Compute(category models.RegistrationCategory, comp *models.Composition, opts *models.EnrollmentOptions, candidateCount int) (*apd.Decimal, error) {
	if !category.IsValid() {
		return nil, unresolved("no registration category")
	}
	if comp == nil || opts == nil {
		return nil, unresolved("no composition")
	}
	if comp.Category != "" && comp.Category != category {
		return nil, unresolved("composition was built for %s", comp.Category)
	}
	if candidateCount < 1 {
		return nil, unresolved("candidate count must be at least 1")
	}

	unit, units, err := schedule(category, comp, opts)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, unresolved("%s fee is not defined in the catalog", category)
	}
	if unit.Negative {
		return nil, unresolved("%s fee is negative in the catalog", category)
	}

	amount := new(apd.Decimal)
	if _, err := decimalCtx.Mul(amount, unit, apd.New(int64(units)*int64(candidateCount), 0)); err != nil {
		return nil, fmt.Errorf("compute fee: %w", err)
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: %s composition priced at zero", models.ErrZeroFee, category)
	}
	return amount, nil
}

// schedule picks the fee field and the number of units it is charged for
func schedule(category models.RegistrationCategory, comp *models.Composition, opts *models.EnrollmentOptions) (*apd.Decimal, int, error) {
	switch category {
	case models.CategoryFormal:
		level := findLevel(opts, comp.LevelID)
		if level == nil {
			return nil, 0, unresolved("no level selected")
		}
		return level.FormalFee, 1, nil

	case models.CategoryModular:
		level := opts.Level
		if level == nil || (comp.LevelID != "" && level.ID != comp.LevelID) {
			level = findLevel(opts, comp.LevelID)
		}
		if level == nil {
			return nil, 0, unresolved("no modular level")
		}
		switch len(comp.ModuleIDs) {
		case 1:
			return level.ModularFeeSingleModule, 1, nil
		case 2:
			return level.ModularFeeDoubleModule, 1, nil
		}
		return nil, 0, unresolved("modular fee is defined for 1 or 2 modules, got %d", len(comp.ModuleIDs))

	case models.CategoryWorkersPAS:
		if len(comp.PaperIDs) == 0 {
			return nil, 0, unresolved("no papers selected")
		}
		levels := pricingLevels(opts)
		if len(levels) == 0 {
			return nil, 0, unresolved("occupation has no levels")
		}
		// The per-paper fee comes from the first level, whatever level the
		// papers belong to.
		return levels[0].WorkersPASPerPaperFee, len(comp.PaperIDs), nil
	}

	return nil, 0, unresolved("unknown category %q", category)
}

// WorkersPASFeeVaries reports whether an occupation's levels disagree on the
// per-paper fee. Compute always charges the first level's fee.
func WorkersPASFeeVaries(levels []*models.OccupationLevel) bool {
	var first *apd.Decimal
	for i, l := range levels {
		if i == 0 {
			first = l.WorkersPASPerPaperFee
			continue
		}
		fee := l.WorkersPASPerPaperFee
		if (first == nil) != (fee == nil) {
			return true
		}
		if first != nil && first.Cmp(fee) != 0 {
			return true
		}
	}
	return false
}

func pricingLevels(opts *models.EnrollmentOptions) []*models.OccupationLevel {
	if len(opts.Levels) > 0 {
		return opts.Levels
	}
	if opts.Occupation != nil {
		return opts.Occupation.StandardLevels()
	}
	return nil
}

func findLevel(opts *models.EnrollmentOptions, id string) *models.OccupationLevel {
	if id == "" {
		return nil
	}
	if l := opts.LevelByID(id); l != nil {
		return l
	}
	if opts.Level != nil && opts.Level.ID == id {
		return opts.Level
	}
	if opts.Occupation != nil {
		return opts.Occupation.Level(id)
	}
	return nil
}

func unresolved(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrFeeUnresolved, fmt.Sprintf(format, args...))
}
