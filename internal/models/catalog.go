package models

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OccupationCategory is the catalog classification of an occupation
type OccupationCategory string

const (
	OccupationFormal     OccupationCategory = "formal"
	OccupationWorkersPAS OccupationCategory = "workers_pas"
)

// StructureType tells how a level is assessed. A level is either
// module-graded or paper-graded, never both.
type StructureType string

const (
	StructureModules StructureType = "modules"
	StructurePapers  StructureType = "papers"
)

// Occupation is the read-only description of an occupation's assessable structure
type Occupation struct {
	ID              string             `json:"id"`
	Code            string             `json:"code"`
	Name            string             `json:"name"`
	Category        OccupationCategory `json:"category"`
	SupportsModular bool               `json:"supports_modular"`
	Levels          []*OccupationLevel `json:"levels"`
	Modules         []*Module          `json:"modules,omitempty"` // attached directly to the occupation (modular)
	Version         string             `json:"version"`           // content hash of this catalog entry
}

// OccupationLevel is a tier within an occupation
type OccupationLevel struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	OccupationID  string        `json:"occupation_id"`
	StructureType StructureType `json:"structure_type"`
	Modular       bool          `json:"modular"`
	Modules       []*Module     `json:"modules,omitempty"`

	// nil means the fee is not defined by the catalog
	FormalFee              *apd.Decimal `json:"formal_fee,omitempty"`
	ModularFeeSingleModule *apd.Decimal `json:"modular_fee_single_module,omitempty"`
	ModularFeeDoubleModule *apd.Decimal `json:"modular_fee_double_module,omitempty"`
	WorkersPASPerPaperFee  *apd.Decimal `json:"workers_pas_per_paper_fee,omitempty"`
}

// Module is an assessable unit of a level (or of the occupation itself for modular registration)
type Module struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	LevelID      string   `json:"level_id,omitempty"`
	OccupationID string   `json:"occupation_id"`
	Papers       []*Paper `json:"papers,omitempty"`
}

// Paper belongs to a module. Type is authoritative and never taken from user input.
type Paper struct {
	ID       string         `json:"id"`
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	ModuleID string         `json:"module_id"`
	Type     AssessmentType `json:"type"`
}

// AssessmentSeries is a sitting candidates are enrolled into
type AssessmentSeries struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}

// ModularLevel returns the occupation's sole modular level, or nil when the
// occupation has none (or, inconsistently, more than one).
func (o *Occupation) ModularLevel() *OccupationLevel {
	var found *OccupationLevel
	for _, l := range o.Levels {
		if !l.Modular {
			continue
		}
		if found != nil {
			return nil
		}
		found = l
	}
	return found
}

// StandardLevels returns the non-modular levels in catalog order
func (o *Occupation) StandardLevels() []*OccupationLevel {
	levels := make([]*OccupationLevel, 0, len(o.Levels))
	for _, l := range o.Levels {
		if !l.Modular {
			levels = append(levels, l)
		}
	}
	return levels
}

// Level finds a level by ID
func (o *Occupation) Level(id string) *OccupationLevel {
	for _, l := range o.Levels {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Module finds a module by ID anywhere in the occupation
func (o *Occupation) Module(id string) *Module {
	for _, m := range o.Modules {
		if m.ID == id {
			return m
		}
	}
	for _, l := range o.Levels {
		if m := l.Module(id); m != nil {
			return m
		}
	}
	return nil
}

// Paper finds a paper by ID anywhere in the occupation
func (o *Occupation) Paper(id string) *Paper {
	for _, m := range o.Modules {
		if p := m.Paper(id); p != nil {
			return p
		}
	}
	for _, l := range o.Levels {
		for _, m := range l.Modules {
			if p := m.Paper(id); p != nil {
				return p
			}
		}
	}
	return nil
}

// Module finds a module of this level by ID
func (l *OccupationLevel) Module(id string) *Module {
	for _, m := range l.Modules {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Papers returns all papers of the level's modules
func (l *OccupationLevel) Papers() []*Paper {
	var papers []*Paper
	for _, m := range l.Modules {
		papers = append(papers, m.Papers...)
	}
	return papers
}

// Paper finds a paper of this module by ID
func (m *Module) Paper(id string) *Paper {
	for _, p := range m.Papers {
		if p.ID == id {
			return p
		}
	}
	return nil
}
