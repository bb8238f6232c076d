package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/sdejongh/sigrename/pkg/models"
)

// Conventional artifact names written next to the processed files
const (
	WorkbookName = "rename_report.xlsx"
	CSVName      = "rename_report.csv"
)

const (
	reportSheet  = "Report"
	summarySheet = "Summary"
	maxColWidth  = 60
)

// Columns are the per-file columns shared by the workbook and the CSV
var Columns = []string{
	"original_name",
	"original_ext",
	"detected_ext",
	"action",
	"output_name",
	"format",
	"basis",
	"reason",
}

var summaryColumns = []string{
	"format",
	"extension",
	"files",
	"renamed",
	"size",
	"description",
	"recommended_viewer",
}

// Row renders one action record in column order
func Row(a models.ActionRecord) []string {
	return []string{
		a.OriginalName,
		a.OriginalExt,
		a.DetectedExt,
		string(a.Action),
		a.OutputName,
		a.Format,
		string(a.Basis),
		a.Reason,
	}
}

type styles struct {
	header int
	row    int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "444444", Style: 1},
		{Type: "right", Color: "444444", Style: 1},
		{Type: "top", Color: "444444", Style: 1},
		{Type: "bottom", Color: "444444", Style: 1},
	}
	align := &excelize.Alignment{Horizontal: "left", Vertical: "center"}

	var s styles
	var err error

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"111111"}, Pattern: 1},
		Border:    border,
		Alignment: align,
	})
	if err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}

	s.row, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E5E5E5"}, Pattern: 1},
		Border:    border,
		Alignment: align,
	})
	if err != nil {
		return s, fmt.Errorf("failed to create row style: %w", err)
	}

	s.total, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"BDBDBD"}, Pattern: 1},
		Border:    append(border[:3:3], excelize.Border{Type: "bottom", Color: "111111", Style: 5}),
		Alignment: align,
	})
	if err != nil {
		return s, fmt.Errorf("failed to create total style: %w", err)
	}

	return s, nil
}

// WriteWorkbook writes the formatted report: one styled row per action on
// the first sheet and the per-format summary on a second sheet.
func WriteWorkbook(w io.Writer, actions []models.ActionRecord, summary models.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, Row(a))
	}
	if err := writeTable(f, reportSheet, Columns, rows, st, false); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	summaryRows := make([][]string, 0, len(summary.Formats)+1)
	for _, fc := range summary.Formats {
		desc, viewer := Describe(fc.Format)
		summaryRows = append(summaryRows, []string{
			fc.Format,
			fc.Ext,
			fmt.Sprint(fc.Count),
			fmt.Sprint(fc.Renamed),
			fmt.Sprint(fc.Bytes),
			desc,
			viewer,
		})
	}
	summaryRows = append(summaryRows, []string{
		"TOTAL", "", fmt.Sprint(summary.Total), fmt.Sprint(summary.Renamed), "", fmt.Sprintf("%d failed", summary.Failed), "",
	})
	if err := writeTable(f, summarySheet, summaryColumns, summaryRows, st, true); err != nil {
		return err
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// writeTable writes a header and rows to sheet, applies the styles and
// sizes every column to its longest value. When lastIsTotal is set the last
// row gets the total style.
func writeTable(f *excelize.File, sheet string, header []string, rows [][]string, st styles, lastIsTotal bool) error {
	widths := make([]int, len(header))

	put := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(values))
		for i, v := range values {
			vals[i] = v
			if n := utf8.RuneCountInString(v); i < len(widths) && n > widths[i] {
				widths[i] = n
			}
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
		}
		return nil
	}

	if err := put(1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := put(i+2, row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	last := len(rows) + 1
	if len(rows) > 0 {
		bodyEnd := last
		if lastIsTotal {
			bodyEnd--
		}
		if bodyEnd >= 2 {
			if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", lastCol, bodyEnd), st.row); err != nil {
				return fmt.Errorf("failed to style rows of %s: %w", sheet, err)
			}
		}
		if lastIsTotal {
			if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", last), fmt.Sprintf("%s%d", lastCol, last), st.total); err != nil {
				return fmt.Errorf("failed to style total of %s: %w", sheet, err)
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(width+2, maxColWidth))); err != nil {
			return fmt.Errorf("failed to size column %s of %s: %w", col, sheet, err)
		}
	}

	return nil
}
