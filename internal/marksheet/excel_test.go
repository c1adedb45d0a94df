package marksheet

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func sampleRows() []Row {
	pass := 72.5
	missing := models.MissingMark
	return []Row{
		{RegNo: "REG-1", FullName: "Ann Akello", Category: "formal", Occupation: "ELEC", Level: "Level 2",
			Module: "L2M1", Paper: "L2P1", Type: "theory", Mark: &pass, Grade: "B", Verdict: models.VerdictSuccess},
		{RegNo: "REG-2", FullName: "Brian Okello", Category: "formal", Occupation: "ELEC", Level: "Level 2",
			Module: "L2M1", Paper: "L2P2", Type: "practical", Mark: &missing, Grade: models.NoGrade, Verdict: models.VerdictMissing},
	}
}

func TestWriteWithMarks(t *testing.T) {
	series := &models.AssessmentSeries{ID: "s1", Name: "March 2026"}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, series, sampleRows(), true))

	rows := readRows(t, buf.Bytes(), "March 2026")
	require.Len(t, rows, 3)
	assert.Equal(t, Columns(true), rows[0])
	assert.Equal(t, "72.5", rows[1][8])
	assert.Equal(t, "-", rows[2][8])
	assert.Equal(t, models.VerdictMissing, rows[2][10])
}

func TestWriteHidesMarks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, sampleRows(), false))

	rows := readRows(t, buf.Bytes(), "Marksheet")
	require.Len(t, rows, 3)
	assert.NotContains(t, rows[0], "Mark")
	for _, r := range rows[1:] {
		assert.NotContains(t, r, "72.5")
	}
	assert.Equal(t, "B", rows[1][8])
}

func TestSheetNameTruncated(t *testing.T) {
	name := SheetName(&models.AssessmentSeries{Name: "November 2026 Assessment Series Extended"})
	assert.Len(t, name, 31)
}

func TestSheetNameSanitized(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"May/June 2026", "May-June 2026"},
		{`Q1: [Extra] a\b?*`, "Q1- (Extra) a-b--"},
		{"'quoted'", "quoted"},
		{"  ", "Marksheet"},
		{"", "Marksheet"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SheetName(&models.AssessmentSeries{Name: tc.name}), tc.name)
	}
	assert.Equal(t, "Marksheet", SheetName(nil))
}

func TestSheetNameTruncatesByRune(t *testing.T) {
	name := SheetName(&models.AssessmentSeries{Name: strings.Repeat("é", 40)})
	assert.True(t, utf8.ValidString(name))
	assert.Equal(t, 31, utf8.RuneCountInString(name))
}

func TestWriteWithSlashInSeriesName(t *testing.T) {
	series := &models.AssessmentSeries{ID: "s1", Name: "May/June 2026"}
	mark := 72.0
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, series, []Row{{RegNo: "REG-001", Type: "theory", Mark: &mark, Grade: "B", Verdict: "Success"}}, true))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("May-June 2026")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "REG-001", rows[1][0])
}
