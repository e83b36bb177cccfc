// Package models defines core data structures for documents, tables, and answers.
package models

import "time"

// Document is the registry entry for one ingested file.
type Document struct {
	ID         string    `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	TextChunks int       `json:"text_chunks" db:"text_chunks"`
	Tables     int       `json:"tables" db:"tables"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	// SourcePath is set for documents ingested from a watched directory,
	// so a file removal can be mapped back to its document.
	SourcePath string `json:"source_path,omitempty" db:"source_path"`
}

// Table is one table extracted from a document. Data is an ordered grid of
// cell strings; the first row is conventionally a header row, but that is
// not verified. Error is set instead of Data when table extraction failed
// (extraction failures are carried as data, never raised).
type Table struct {
	Index   int        `json:"table_id"`
	Data    [][]string `json:"data,omitempty"`
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Error   string     `json:"error,omitempty"`
}

// ExtractedContent is the output contract of the content extractor.
type ExtractedContent struct {
	RawText string
	Tables  []Table
}

// IngestResult summarizes one successful ingestion.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	TextChunks int    `json:"text_chunks"`
	Tables     int    `json:"tables"`
	// Analysis is the advisory structuring output (or a fallback note when
	// the reasoning pass failed). Diagnostic only.
	Analysis string `json:"-"`
}
