package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Prepare links modules and papers to their owners, validates the occupation
// and stamps its content version. Every Source runs it before handing an
// occupation out.
func Prepare(occ *models.Occupation) error {
	link(occ)
	if err := Validate(occ); err != nil {
		return fmt.Errorf("occupation %s: %w", occ.ID, err)
	}
	v, err := Version(occ)
	if err != nil {
		return err
	}
	occ.Version = v
	return nil
}

func link(occ *models.Occupation) {
	for _, m := range occ.Modules {
		m.OccupationID = occ.ID
		for _, p := range m.Papers {
			p.ModuleID = m.ID
		}
	}
	for _, l := range occ.Levels {
		l.OccupationID = occ.ID
		for _, m := range l.Modules {
			m.LevelID = l.ID
			m.OccupationID = occ.ID
			for _, p := range m.Papers {
				p.ModuleID = m.ID
			}
		}
	}
}

// Validate checks the structural rules of an occupation. All problems are
// reported together.
func Validate(occ *models.Occupation) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if occ.ID == "" {
		fail("id is required")
	}
	if occ.Name == "" {
		fail("name is required")
	}
	switch occ.Category {
	case models.OccupationFormal, models.OccupationWorkersPAS:
	default:
		fail("unknown category %q", occ.Category)
	}

	levelIDs := make(map[string]bool)
	moduleIDs := make(map[string]bool)
	paperIDs := make(map[string]bool)
	modularLevels := 0

	checkModule := func(m *models.Module) {
		if m.ID == "" {
			fail("module %q has no id", m.Code)
			return
		}
		if moduleIDs[m.ID] {
			fail("duplicate module id %s", m.ID)
		}
		moduleIDs[m.ID] = true
		for _, p := range m.Papers {
			if p.ID == "" {
				fail("paper %q of module %s has no id", p.Code, m.ID)
				continue
			}
			if paperIDs[p.ID] {
				fail("duplicate paper id %s", p.ID)
			}
			paperIDs[p.ID] = true
			if p.Type != "" && !p.Type.IsValid() {
				fail("paper %s has unknown type %q", p.ID, p.Type)
			}
		}
	}

	for _, m := range occ.Modules {
		checkModule(m)
	}

	for _, l := range occ.Levels {
		if l.ID == "" {
			fail("level %q has no id", l.Name)
			continue
		}
		if levelIDs[l.ID] {
			fail("duplicate level id %s", l.ID)
		}
		levelIDs[l.ID] = true

		switch l.StructureType {
		case models.StructureModules, models.StructurePapers:
		default:
			fail("level %s has unknown structure_type %q", l.ID, l.StructureType)
		}

		if l.Modular {
			modularLevels++
			if !occ.SupportsModular {
				fail("level %s is modular but the occupation does not support modular registration", l.ID)
			}
		}

		for name, fee := range map[string]*apd.Decimal{
			"formal":                l.FormalFee,
			"modular_single_module": l.ModularFeeSingleModule,
			"modular_double_module": l.ModularFeeDoubleModule,
			"workers_pas_per_paper": l.WorkersPASPerPaperFee,
		} {
			if fee != nil && fee.Negative && !fee.IsZero() {
				fail("level %s has a negative %s fee", l.ID, name)
			}
		}

		for _, m := range l.Modules {
			checkModule(m)
		}
	}

	if modularLevels > 1 {
		fail("occupation has %d modular levels, at most one is allowed", modularLevels)
	}

	return errors.Join(errs...)
}

// Version is a content hash of the occupation. Any change to levels,
// modules, papers or fees changes it.
func Version(occ *models.Occupation) (string, error) {
	c := *occ
	c.Version = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to hash occupation: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}
