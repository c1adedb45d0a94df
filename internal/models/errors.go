package models

import (
	"errors"
	"fmt"
)

// Engine error kinds. Every rule violation wraps exactly one of them.
var (
	ErrCompositionInvalid  = errors.New("composition invalid")
	ErrFeeUnresolved       = errors.New("fee not resolvable")
	ErrZeroFee             = errors.New("fee computed as zero")
	ErrMarkOutOfRange      = errors.New("mark out of range")
	ErrStaleCatalogData    = errors.New("catalog data is stale")
	ErrBulkTargetAmbiguous = errors.New("bulk target is ambiguous")
)

// Reason identifies the specific rule that rejected an input
type Reason string

const (
	ReasonOptionsNotLoaded     Reason = "options_not_loaded"
	ReasonUnknownCategory      Reason = "unknown_category"
	ReasonCategoryMismatch     Reason = "category_mismatch"
	ReasonNoModularLevel       Reason = "no_modular_level"
	ReasonLevelNotSelectable   Reason = "level_not_selectable"
	ReasonNoModules            Reason = "no_modules"
	ReasonTooManyModules       Reason = "too_many_modules"
	ReasonUnknownModule        Reason = "unknown_module"
	ReasonLevelRequired        Reason = "level_required"
	ReasonUnknownLevel         Reason = "unknown_level"
	ReasonModulesNotAllowed    Reason = "modules_not_allowed"
	ReasonPapersNotAllowed     Reason = "papers_not_allowed"
	ReasonTooFewPapers         Reason = "too_few_papers"
	ReasonTooManyPapers        Reason = "too_many_papers"
	ReasonUnknownPaper         Reason = "unknown_paper"
	ReasonDuplicateModulePaper Reason = "duplicate_module_paper"

	ReasonPaperRequired     Reason = "paper_required"
	ReasonPaperNotAllowed   Reason = "paper_not_allowed"
	ReasonModuleRequired    Reason = "module_required"
	ReasonModuleNotEnrolled Reason = "module_not_enrolled"
	ReasonPaperNotEnrolled  Reason = "paper_not_enrolled"
	ReasonPaperTypeOverride Reason = "paper_type_override"
	ReasonTypeRequired      Reason = "type_required"
	ReasonDuplicateResult   Reason = "duplicate_result"
	ReasonMarkOutOfRange    Reason = "mark_out_of_range"

	ReasonNotSubmittable  Reason = "not_submittable"
	ReasonCatalogChanged  Reason = "catalog_changed"
	ReasonFiltersChanged  Reason = "filters_changed"
	ReasonNothingSelected Reason = "nothing_selected"
	ReasonNotConfirmed    Reason = "not_confirmed"
	ReasonTargetChanged   Reason = "target_changed"
)

// RuleError is a recoverable rule violation returned to callers as a value
type RuleError struct {
	Kind     error
	Reason   Reason
	Category RegistrationCategory
	Message  string
}

// Error implements the error interface
func (e *RuleError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Kind, e.Reason, e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Reason, e.Message)
}

// Unwrap exposes the kind for errors.Is
func (e *RuleError) Unwrap() error {
	return e.Kind
}

// NewRuleError creates a rule violation of the given kind
func NewRuleError(kind error, reason Reason, category RegistrationCategory, message string) *RuleError {
	return &RuleError{
		Kind:     kind,
		Reason:   reason,
		Category: category,
		Message:  message,
	}
}

// ReasonOf extracts the rule reason from err, if it carries one
func ReasonOf(err error) (Reason, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
