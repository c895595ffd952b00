// Package sheetfile reads and writes entry records as .xlsx workbooks laid
// out like the response sheet: one header row of column names, one row per
// record.
package sheetfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/warp/timesheet/store/sheets"
	"github.com/warp/timesheet/timesheet"
)

// SheetName is the worksheet written by Export.
const SheetName = "Form Responses"

// Numeric columns are written as numbers so the sheet can total them.
var numericColumns = map[string]bool{
	sheets.ColHours:    true,
	sheets.ColDayCount: true,
}

// dateColumns may come back from Excel as date serials.
var dateColumns = map[string]bool{
	sheets.ColDate:     true,
	sheets.ColFromDate: true,
	sheets.ColToDate:   true,
}

// Export writes records to w as a single-sheet workbook.
func Export(w io.Writer, records []timesheet.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(sheets.Columns))
	for i, col := range sheets.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(sheets.Columns), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, rec := range records {
		cells := sheets.Cells(rec)
		row := make([]any, len(sheets.Columns))
		for j, col := range sheets.Columns {
			row[j] = cellValue(col, cells[col])
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, addr, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(sheets.Columns))
	_ = f.SetColWidth(SheetName, "A", lastCol, 18)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func cellValue(col, value string) any {
	if numericColumns[col] && value != "" {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return n
		}
	}
	return value
}

// =============================================================================
// IMPORT
// =============================================================================

// Result is the outcome of Import. Skipped holds the 1-based sheet row
// numbers that were not Work or Leave rows.
type Result struct {
	Records []timesheet.Record
	Skipped []int
}

// Import reads the first worksheet of an .xlsx workbook. Headers are matched
// case-insensitively; unknown columns are ignored.
func Import(r io.Reader, dec sheets.Decoder) (Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return Result{}, fmt.Errorf("no worksheet found")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("worksheet is empty")
	}

	known := make(map[string]string, len(sheets.Columns))
	for _, col := range sheets.Columns {
		known[normalizeHeader(col)] = col
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = known[normalizeHeader(h)]
	}

	var res Result
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cells := make(map[string]string, len(header))
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			cells[col] = cellText(col, row[i])
		}
		rec, ok := dec.Record(cells)
		if !ok {
			res.Skipped = append(res.Skipped, n+2)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// cellText converts Excel date serials in date columns to ISO dates.
func cellText(col, value string) string {
	value = strings.TrimSpace(value)
	if !dateColumns[col] {
		return value
	}
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil || serial < 1 {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
