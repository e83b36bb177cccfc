package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kotae/internal/models"
)

// extractXLSXTables extracts one table per non-empty sheet. Each row is a
// slice of cell strings as excelize renders them; empty sheets are skipped.
func extractXLSXTables(content []byte) ([]models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	var tables []models.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		columns := 0
		if len(rows) > 0 {
			columns = len(rows[0])
		}
		tables = append(tables, models.Table{
			Index:   len(tables),
			Data:    rows,
			Rows:    len(rows),
			Columns: columns,
		})
	}
	return tables, nil
}
