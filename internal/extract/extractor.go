// Package extract provides text and table extraction from document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// UnsupportedFormatError is returned when a file's extension is not one of
// the recognized formats. It is the only hard failure extraction produces;
// parse errors are embedded in the extracted content instead.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Extension)
}

// Extractor extracts raw text and tables from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and extracts content based on filename's
// extension. Recognized: .pdf (text only), .docx (text and tables),
// .xlsx (tables), .txt and .md (text only). Other extensions fail with
// UnsupportedFormatError.
//
// Parse failures do not fail extraction: the error message becomes the raw
// text (or a table entry with an error marker), so ingestion stays available
// for malformed files.
func (e *Extractor) Extract(path, filename string) (*models.ExtractedContent, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !Supported(ext) {
		return nil, &UnsupportedFormatError{Extension: strings.TrimPrefix(ext, ".")}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts content from raw bytes based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (*models.ExtractedContent, error) {
	switch ext {
	case ".pdf":
		// PDF table extraction is not implemented; text only.
		text, err := extractPDF(content)
		if err != nil {
			text = fmt.Sprintf("Error reading PDF: %v", err)
		}
		return &models.ExtractedContent{RawText: text}, nil
	case ".docx":
		text, err := extractDOCXText(content)
		if err != nil {
			text = fmt.Sprintf("Error reading DOCX: %v", err)
		}
		tables, err := extractDOCXTables(content)
		if err != nil {
			tables = []models.Table{{Error: fmt.Sprintf("Error extracting tables: %v", err)}}
		}
		return &models.ExtractedContent{RawText: text, Tables: tables}, nil
	case ".xlsx":
		tables, err := extractXLSXTables(content)
		if err != nil {
			tables = []models.Table{{Error: fmt.Sprintf("Error extracting tables: %v", err)}}
		}
		return &models.ExtractedContent{Tables: tables}, nil
	case ".txt", ".md":
		text, _ := extractPlain(content)
		return &models.ExtractedContent{RawText: text}, nil
	default:
		return nil, &UnsupportedFormatError{Extension: strings.TrimPrefix(ext, ".")}
	}
}

// Supported reports whether ext (with leading dot, lowercase) is a
// recognized document format.
func Supported(ext string) bool {
	switch ext {
	case ".pdf", ".docx", ".xlsx", ".txt", ".md":
		return true
	}
	return false
}
