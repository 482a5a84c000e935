package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ManifestFilename is the archive entry holding the manifest workbook.
const ManifestFilename = "manifest.xlsx"

// manifestRow describes one record visited by an archive job.
type manifestRow struct {
	RecordID string
	Date     string
	Category string
	Amount   string
	Filename string // empty when the record was skipped
	Error    string
}

// buildManifest renders the archive index as an XLSX workbook.
func buildManifest(rows []manifestRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Manifest"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Record ID", "Date", "Category", "Amount", "File", "Skipped Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.RecordID)
		write(2, r.Date)
		write(3, r.Category)
		write(4, r.Amount)
		write(5, r.Filename)
		write(6, truncate(r.Error, 140))
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "D", 14)
	_ = f.SetColWidth(sheet, "E", "E", 48)
	_ = f.SetColWidth(sheet, "F", "F", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate caps s at n runes, the last one an ellipsis when anything was cut.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return string(runes[:1])
	}
	return string(runes[:n-1]) + "…"
}
