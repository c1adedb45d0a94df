// Package grading converts marks into grades and pass verdicts.
package grading

import (
	"math"
	"strconv"
	"strings"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Band is a closed integer mark interval awarding one grade
type Band struct {
	Grade string
	Min   int
	Max   int
}

// contains treats the band as [Min, Max+1) so fractional marks between two
// integer bands fall into the lower one.
func (b Band) contains(mark float64) bool {
	return mark >= float64(b.Min) && mark < float64(b.Max+1)
}

var theoryBands = []Band{
	{"A+", 85, 100},
	{"A", 80, 84},
	{"B", 70, 79},
	{"B-", 60, 69},
	{"C", 50, 59},
	{"C-", 40, 49},
	{"D", 30, 39},
	{"E", 0, 29},
}

var practicalBands = []Band{
	{"A+", 90, 100},
	{"A", 85, 89},
	{"B+", 75, 84},
	{"B", 65, 74},
	{"B-", 60, 64},
	{"C", 55, 59},
	{"C-", 50, 54},
	{"D", 40, 49},
	{"D-", 30, 39},
	{"E", 0, 29},
}

// Pass thresholds, independent of the grade bands
const (
	TheoryPassMark    = 50.0
	PracticalPassMark = 65.0
)

// Mark domain
const (
	MinMark = 0.0
	MaxMark = 100.0
)

// Bands returns a copy of the grade table for an assessment type
func Bands(t models.AssessmentType) []Band {
	src := theoryBands
	if t == models.AssessmentPractical {
		src = practicalBands
	}
	out := make([]Band, len(src))
	copy(out, src)
	return out
}

// PassMark returns the pass threshold for an assessment type
func PassMark(t models.AssessmentType) float64 {
	if t == models.AssessmentPractical {
		return PracticalPassMark
	}
	return TheoryPassMark
}

var noClaim = models.Classification{Grade: models.NoGrade, Verdict: models.VerdictNone}

// Classify maps a mark to a grade and verdict.
//
// A nil mark has not been entered yet and yields "-"/"-". The missing
// sentinel yields "-"/"Missing" and is never compared against bands or pass
// marks. Marks outside [0,100] must be rejected with ValidateMark before they
// get here; Classify makes no claim about them rather than clamping.
func Classify(mark *float64, t models.AssessmentType) models.Classification {
	if mark == nil || math.IsNaN(*mark) || !t.IsValid() {
		return noClaim
	}
	m := *mark
	if m == models.MissingMark {
		return models.Classification{Grade: models.NoGrade, Verdict: models.VerdictMissing}
	}
	if m < MinMark || m > MaxMark {
		return noClaim
	}

	grade := models.NoGrade
	for _, b := range Bands(t) {
		if b.contains(m) {
			grade = b.Grade
			break
		}
	}

	verdict := models.VerdictNotSuccessful
	if m >= PassMark(t) {
		verdict = models.VerdictSuccess
	}

	return models.Classification{Grade: grade, Verdict: verdict}
}

// ClassifyRaw classifies a mark as typed by a user or read from a
// spreadsheet. Blank or unparsable input yields "-"/"-".
func ClassifyRaw(raw string, t models.AssessmentType) models.Classification {
	mark, ok := ParseMark(raw)
	if !ok {
		return noClaim
	}
	return Classify(&mark, t)
}

// ParseMark parses a mark; ok is false for blank or non-numeric input
func ParseMark(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	mark, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(mark) || math.IsInf(mark, 0) {
		return 0, false
	}
	return mark, true
}

// ValidateMark rejects marks outside [0,100] other than the missing sentinel.
// A nil mark is accepted (not entered).
func ValidateMark(mark *float64) error {
	if mark == nil {
		return nil
	}
	m := *mark
	if m == models.MissingMark {
		return nil
	}
	if math.IsNaN(m) || m < MinMark || m > MaxMark {
		return models.NewRuleError(models.ErrMarkOutOfRange, models.ReasonMarkOutOfRange, "",
			"mark must be between 0 and 100, or -1 for missing")
	}
	return nil
}
