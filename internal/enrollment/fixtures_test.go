package enrollment

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func dec(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func module(id, levelID string, papers ...*models.Paper) *models.Module {
	for _, p := range papers {
		p.ModuleID = id
	}
	return &models.Module{ID: id, Code: id, Name: "Module " + id, LevelID: levelID, OccupationID: "occ", Papers: papers}
}

func paper(id string, t models.AssessmentType) *models.Paper {
	return &models.Paper{ID: id, Code: id, Name: "Paper " + id, Type: t}
}

// formalOccupation supports formal and modular registration
func formalOccupation() *models.Occupation {
	modular := &models.OccupationLevel{
		ID: "lvl-mod", Name: "Modular", StructureType: models.StructureModules, Modular: true,
		Modules: []*models.Module{
			module("m1", "lvl-mod"),
			module("m2", "lvl-mod"),
			module("m3", "lvl-mod"),
		},
		ModularFeeSingleModule: dec("50000"),
		ModularFeeDoubleModule: dec("90000"),
	}
	byModules := &models.OccupationLevel{
		ID: "lvl-1", Name: "Level 1", StructureType: models.StructureModules,
		Modules: []*models.Module{
			module("lm1", "lvl-1"),
			module("lm2", "lvl-1"),
		},
		FormalFee: dec("150000"),
	}
	byPapers := &models.OccupationLevel{
		ID: "lvl-2", Name: "Level 2", StructureType: models.StructurePapers,
		Modules: []*models.Module{
			module("pm1", "lvl-2",
				paper("p1", models.AssessmentTheory),
				paper("p2", models.AssessmentPractical),
			),
		},
		FormalFee: dec("200000"),
	}
	return &models.Occupation{
		ID: "occ", Code: "ELEC", Name: "Electrician", Category: models.OccupationFormal,
		SupportsModular: true,
		Levels:          []*models.OccupationLevel{modular, byModules, byPapers},
		Version:         "v1",
	}
}

func workersOccupation() *models.Occupation {
	w1 := &models.OccupationLevel{
		ID: "w1", Name: "Level 1", StructureType: models.StructurePapers,
		Modules: []*models.Module{
			module("wm1", "w1", paper("wp1", models.AssessmentTheory), paper("wp2", models.AssessmentPractical)),
			module("wm2", "w1", paper("wp3", models.AssessmentPractical)),
			module("wm3", "w1", paper("wp4", models.AssessmentTheory)),
			module("wm4", "w1", paper("wp5", models.AssessmentPractical)),
			module("wm5", "w1", paper("wp6", models.AssessmentTheory)),
		},
		WorkersPASPerPaperFee: dec("75000"),
	}
	w2 := &models.OccupationLevel{
		ID: "w2", Name: "Level 2", StructureType: models.StructurePapers,
		Modules: []*models.Module{
			module("wm6", "w2", paper("wp7", models.AssessmentTheory)),
		},
		WorkersPASPerPaperFee: dec("80000"),
	}
	return &models.Occupation{
		ID: "occ-w", Code: "TAIL", Name: "Tailoring", Category: models.OccupationWorkersPAS,
		Levels:  []*models.OccupationLevel{w1, w2},
		Version: "w-v1",
	}
}

func modularOptions() *models.EnrollmentOptions {
	occ := formalOccupation()
	lvl := occ.ModularLevel()
	return &models.EnrollmentOptions{
		CandidateID:          "cand-1",
		RegistrationCategory: models.CategoryModular,
		Occupation:           occ,
		Level:                lvl,
		Modules:              lvl.Modules,
		CatalogVersion:       occ.Version,
	}
}

func formalOptions() *models.EnrollmentOptions {
	occ := formalOccupation()
	return &models.EnrollmentOptions{
		CandidateID:          "cand-2",
		RegistrationCategory: models.CategoryFormal,
		Occupation:           occ,
		Levels:               occ.StandardLevels(),
		CatalogVersion:       occ.Version,
	}
}

func workersOptions() *models.EnrollmentOptions {
	occ := workersOccupation()
	return &models.EnrollmentOptions{
		CandidateID:          "cand-3",
		RegistrationCategory: models.CategoryWorkersPAS,
		Occupation:           occ,
		Levels:               occ.Levels,
		CatalogVersion:       occ.Version,
	}
}
