// Package marksheet exports graded series results as an Excel workbook.
package marksheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// ContentType is the MIME type of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Row is one graded result line of a marksheet
type Row struct {
	RegNo      string
	FullName   string
	Category   string
	Occupation string
	Level      string
	Module     string
	Paper      string
	Type       string
	Mark       *float64
	Grade      string
	Verdict    string
}

// Columns returns the header row. The mark column is present only when
// marks may be shown.
func Columns(showMarks bool) []string {
	cols := []string{"Reg No", "Full Name", "Category", "Occupation", "Level", "Module", "Paper", "Type"}
	if showMarks {
		cols = append(cols, "Mark")
	}
	return append(cols, "Grade", "Verdict")
}

func (r Row) values(showMarks bool) []any {
	vals := []any{r.RegNo, r.FullName, r.Category, r.Occupation, r.Level, r.Module, r.Paper, r.Type}
	if showMarks {
		vals = append(vals, FormatMark(r.Mark))
	}
	return append(vals, r.Grade, r.Verdict)
}

// FormatMark renders a mark for display. Absent and missing marks show as "-".
func FormatMark(mark *float64) string {
	if mark == nil || *mark == models.MissingMark {
		return models.NoGrade
	}
	return strconv.FormatFloat(*mark, 'f', -1, 64)
}

const (
	defaultSheetName = "Marksheet"
	maxSheetName     = 31
)

var sheetNameReplacer = strings.NewReplacer(":", "-", `\`, "-", "/", "-", "?", "-", "*", "-", "[", "(", "]", ")")

// SheetName is the worksheet name used for a series. Characters Excel
// rejects in sheet names are replaced and the result is cut to 31 runes.
func SheetName(series *models.AssessmentSeries) string {
	if series == nil {
		return defaultSheetName
	}
	name := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(series.Name)), "'")
	if runes := []rune(name); len(runes) > maxSheetName {
		name = strings.TrimSpace(string(runes[:maxSheetName]))
	}
	if name == "" {
		return defaultSheetName
	}
	return name
}

// Write renders the rows of a series into a workbook and writes it to w
func Write(w io.Writer, series *models.AssessmentSeries, rows []Row, showMarks bool) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := SheetName(series)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	for i, header := range Columns(showMarks) {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		for j, v := range row.values(showMarks) {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
