// Package export writes a subject's gradebook to an .xlsx workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"schooldash/backend/internal/grade"
)

const sheetName = "Notas"

// Column widths in characters.
const (
	nameWidth    = 40
	slotWidth    = 7
	averageWidth = 12
)

// Sheet is the data of one exported subject.
type Sheet struct {
	Subject  grade.Subject
	Students []grade.Student
	Scores   grade.ScoreSource
}

// Build lays out the workbook: a header row, then one row per student with
// the name, every slot of both semesters and both semester averages.
func Build(s Sheet) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	first := s.Subject.SemesterSlots(grade.FirstSemester)
	second := s.Subject.SemesterSlots(grade.SecondSemester)

	header := []interface{}{"Aluno"}
	for _, sem := range grade.Semesters {
		for i := range s.Subject.SemesterSlots(sem) {
			header = append(header, fmt.Sprintf("%dS N%d", sem, i+1))
		}
	}
	header = append(header, "Média 1S", "Média 2S")

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, st := range s.Students {
		row := []interface{}{st.Name}
		for _, slot := range append(append([]int(nil), first...), second...) {
			v := s.Scores.Score(grade.CellKey{StudentID: st.ID, SubjectID: s.Subject.ID, Slot: slot})
			if v.Valid {
				row = append(row, v.Value)
			} else {
				row = append(row, nil)
			}
		}
		for _, sem := range grade.Semesters {
			row = append(row, averageCell(grade.SemesterAverage(s.Scores, st.ID, s.Subject, sem)))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := layout(f, len(header)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write builds the workbook and streams it to w.
func Write(w io.Writer, s Sheet) error {
	f, err := Build(s)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func averageCell(a grade.Average) interface{} {
	if a.Valid && !a.Concept {
		return a.Value
	}
	return a.Display()
}

func layout(f *excelize.File, cols int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", nameWidth); err != nil {
		return err
	}
	if cols > 3 {
		lastSlot, _ := excelize.ColumnNumberToName(cols - 2)
		if err := f.SetColWidth(sheetName, "B", lastSlot, slotWidth); err != nil {
			return err
		}
	}
	firstAvg, _ := excelize.ColumnNumberToName(cols - 1)
	if err := f.SetColWidth(sheetName, firstAvg, last, averageWidth); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, "A1", last+"1", bold)
}

// FileName derives the download name from the subject's display name:
// "Educação Física" becomes "notas_educacao_fisica.xlsx".
func FileName(subjectName string) string {
	// Chains keep state between calls, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, subjectName)
	if err != nil {
		folded = subjectName
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		pendingSep = true
	}

	if b.Len() == 0 {
		return "notas.xlsx"
	}
	return "notas_" + b.String() + ".xlsx"
}
