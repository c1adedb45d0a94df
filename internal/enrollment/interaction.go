package enrollment

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/ClaireAgaba/informal-system-sub000/internal/fees"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// State of an enrollment interaction
type State string

const (
	StateIdle               State = "idle"
	StateCategorySelected   State = "category_selected"
	StateCompositionEditing State = "composition_editing"
	StateValid              State = "valid"
	StateInvalid            State = "invalid"
)

// Interaction tracks one user's enrollment form: the loaded options, the
// selection being edited and the composition and fee last evaluated for it.
// Any edit drops the evaluated composition and fee, so a submission is always
// built from the selection as it currently stands.
//
// An Interaction is not safe for concurrent use.
type Interaction struct {
	state          State
	options        *models.EnrollmentOptions
	category       models.RegistrationCategory
	selection      models.Selection
	candidateCount int

	composition *models.Composition
	fee         *apd.Decimal
	err         error
}

// NewInteraction returns an idle interaction
func NewInteraction() *Interaction {
	return &Interaction{state: StateIdle, candidateCount: 1}
}

// State returns the current state
func (in *Interaction) State() State { return in.state }

// Category returns the selected category
func (in *Interaction) Category() models.RegistrationCategory { return in.category }

// Selection returns a copy of the selection being edited
func (in *Interaction) Selection() models.Selection {
	return models.Selection{
		LevelID:   in.selection.LevelID,
		ModuleIDs: append([]string(nil), in.selection.ModuleIDs...),
		PaperIDs:  append([]string(nil), in.selection.PaperIDs...),
	}
}

// CandidateCount returns how many candidates the fee is computed for
func (in *Interaction) CandidateCount() int { return in.candidateCount }

// Options returns the loaded enrollment options
func (in *Interaction) Options() *models.EnrollmentOptions { return in.options }

// Composition returns the last valid composition, nil unless Valid
func (in *Interaction) Composition() *models.Composition { return in.composition }

// Fee returns the fee of the last valid composition, nil unless Valid
func (in *Interaction) Fee() *apd.Decimal { return in.fee }

// Err returns why the last evaluation failed, nil unless Invalid
func (in *Interaction) Err() error { return in.err }

// LoadOptions installs freshly fetched options. Options from a different
// catalog version or for another candidate replace the old ones and the
// selection built against them is discarded, never merged.
func (in *Interaction) LoadOptions(opts *models.EnrollmentOptions) {
	if opts == nil {
		return
	}
	prev := in.options
	in.options = opts

	if prev == nil || prev.CatalogVersion != opts.CatalogVersion || prev.CandidateID != opts.CandidateID {
		in.selection = models.Selection{}
		in.reset()
		if in.category != "" {
			in.state = StateCategorySelected
		}
		return
	}
	if in.state == StateValid || in.state == StateInvalid {
		in.edited()
	}
}

// SelectCategory starts a new composition under category. All edits made
// under a previous category are discarded.
func (in *Interaction) SelectCategory(category models.RegistrationCategory) error {
	if !category.IsValid() {
		return models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, category,
			fmt.Sprintf("unknown registration category %q", category))
	}
	in.category = category
	in.selection = models.Selection{}
	in.reset()
	in.state = StateCategorySelected
	return nil
}

// SetLevel edits the selected level
func (in *Interaction) SetLevel(levelID string) error {
	if err := in.editable(); err != nil {
		return err
	}
	in.selection.LevelID = levelID
	in.edited()
	return nil
}

// SetModules replaces the selected modules
func (in *Interaction) SetModules(ids []string) error {
	if err := in.editable(); err != nil {
		return err
	}
	in.selection.ModuleIDs = append([]string(nil), ids...)
	in.edited()
	return nil
}

// SetPapers replaces the selected papers
func (in *Interaction) SetPapers(ids []string) error {
	if err := in.editable(); err != nil {
		return err
	}
	in.selection.PaperIDs = append([]string(nil), ids...)
	in.edited()
	return nil
}

// SetCandidateCount sets how many candidates the fee covers (bulk preview)
func (in *Interaction) SetCandidateCount(n int) error {
	if err := in.editable(); err != nil {
		return err
	}
	in.candidateCount = n
	in.edited()
	return nil
}

// Evaluate validates the current selection and prices it. The interaction
// becomes Valid only when both succeed.
func (in *Interaction) Evaluate() (*models.Composition, *apd.Decimal, error) {
	if in.state == StateIdle {
		return nil, nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, "",
			"select a registration category first")
	}

	in.reset()

	comp, err := Validate(in.category, in.selection, in.options)
	if err != nil {
		return nil, nil, in.fail(err)
	}
	fee, err := fees.Compute(in.category, comp, in.options, in.candidateCount)
	if err != nil {
		return comp, nil, in.fail(err)
	}

	in.composition = comp
	in.fee = fee
	in.state = StateValid
	return comp, fee, nil
}

// Submission returns the composition and fee to submit. It is only allowed
// from Valid. currentVersion is the catalog version at submission time; when
// set and different from the version the composition was built from, the
// submission is refused as stale.
func (in *Interaction) Submission(currentVersion string) (*models.Composition, *apd.Decimal, error) {
	if in.state != StateValid || in.composition == nil {
		return nil, nil, models.NewRuleError(models.ErrCompositionInvalid, models.ReasonNotSubmittable, in.category,
			fmt.Sprintf("composition is %s", in.state))
	}
	if err := CheckCatalogVersion(in.composition.CatalogVersion, currentVersion); err != nil {
		return nil, nil, err
	}
	return in.composition, in.fee, nil
}

// CheckCatalogVersion refuses a composition built from an older catalog.
// An empty version on either side is not checked.
func CheckCatalogVersion(built, current string) error {
	if built == "" || current == "" || built == current {
		return nil
	}
	return models.NewRuleError(models.ErrStaleCatalogData, models.ReasonCatalogChanged, "",
		"the catalog changed since the options were loaded; reload and select again")
}

func (in *Interaction) editable() error {
	if in.state == StateIdle {
		return models.NewRuleError(models.ErrCompositionInvalid, models.ReasonUnknownCategory, "",
			"select a registration category first")
	}
	return nil
}

func (in *Interaction) edited() {
	in.reset()
	in.state = StateCompositionEditing
}

func (in *Interaction) reset() {
	in.composition = nil
	in.fee = nil
	in.err = nil
}

func (in *Interaction) fail(err error) error {
	in.err = err
	in.state = StateInvalid
	return err
}
