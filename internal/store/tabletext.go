package store

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// RenderTable flattens a table into the text it is similarity-indexed under.
// A table carrying an extraction error renders to exactly that error string.
// Otherwise the first row is rendered as a header line and up to three data
// rows follow, one per line.
func RenderTable(table models.Table) string {
	if table.Error != "" {
		return table.Error
	}
	if len(table.Data) == 0 {
		return ""
	}
	parts := []string{"Table headers: " + strings.Join(table.Data[0], " | ")}
	rows := table.Data[1:]
	if len(rows) > 3 {
		rows = rows[:3]
	}
	for _, row := range rows {
		parts = append(parts, strings.Join(row, " | "))
	}
	return strings.Join(parts, "\n")
}
