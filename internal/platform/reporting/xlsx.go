package reporting

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var resultHeaders = []string{
	"Test Case", "Patient", "Status", "Group", "Group Name",
	"Expected IP", "Actual IP", "Expected MP", "Actual MP", "Expected MPE", "Actual MPE",
	"Expected Obs 1", "Expected Obs 2", "Expected Obs 3", "Expected Obs 4",
	"Actual Obs 1", "Actual Obs 2", "Actual Obs 3", "Actual Obs 4",
	"Expected Score", "Actual Score", "Passed", "Mismatches",
}

var summaryHeaders = []string{"Group", "Group Name", "Compared", "Passed", "Mean Score", "Median Score"}

// WriteXLSX writes one row per group comparison, plus one row per errored
// patient, and a summary sheet.
func WriteXLSX(path string, rep *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return err
	}
	if err := writeRow(f, resultsSheet, 1, toCells(resultHeaders)); err != nil {
		return err
	}

	row := 2
	for _, r := range rep.Results {
		status := string(r.Status())
		if len(r.Comparisons) == 0 {
			cells := make([]any, len(resultHeaders))
			cells[0], cells[1], cells[2] = r.TestCase, r.PatientID, status
			cells[len(cells)-2], cells[len(cells)-1] = false, r.Error
			if err := writeRow(f, resultsSheet, row, cells); err != nil {
				return err
			}
			row++
			continue
		}
		for _, c := range r.Comparisons {
			e, a := c.Expected, c.Actual
			cells := []any{
				r.TestCase, r.PatientID, status, string(c.GroupID), c.GroupID.DisplayName(),
				e.InitialPopulation, a.InitialPopulation,
				e.MeasurePopulation, a.MeasurePopulation,
				e.MeasurePopulationExclusion, a.MeasurePopulationExclusion,
				e.Observations[0], e.Observations[1], e.Observations[2], e.Observations[3],
				a.Observations[0], a.Observations[1], a.Observations[2], a.Observations[3],
				c.ExpectedScore, c.ActualScore, c.Passed, strings.Join(c.Mismatches, "; "),
			}
			if err := writeRow(f, resultsSheet, row, cells); err != nil {
				return err
			}
			row++
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	if err := writeRow(f, summarySheet, 1, toCells(summaryHeaders)); err != nil {
		return err
	}
	for i, g := range rep.Summary.Groups {
		cells := []any{string(g.GroupID), g.GroupID.DisplayName(), g.Compared, g.Passed, g.MeanScore, g.MedianScore}
		if err := writeRow(f, summarySheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	for col, v := range cells {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func toCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
