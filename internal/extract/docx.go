package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t> (and any other attributes).
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// wTbl, wTr, and wTc match table, row, and cell blocks in the document XML.
// (?s) so blocks spanning newlines are matched.
var (
	wTbl = regexp.MustCompile(`(?s)<w:tbl[ >].*?</w:tbl>`)
	wTr  = regexp.MustCompile(`(?s)<w:tr[ >].*?</w:tr>`)
	wTc  = regexp.MustCompile(`(?s)<w:tc[ >].*?</w:tc>`)
)

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return ""
		}
		_ = rc.Close()

		content := buf.String()
		if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		return ""
	}
	return ""
}

// docxDocumentXML returns the main document XML from .docx bytes.
func docxDocumentXML(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", docPath)
}

// extractDOCXText extracts body text from .docx bytes. DOCX is a ZIP containing
// word/document.xml (OOXML). We extract all <w:t>...</w:t> text nodes so content
// is searchable regardless of paragraph/run attributes. Table blocks are removed
// first; their content is captured separately by extractDOCXTables.
func extractDOCXText(content []byte) (string, error) {
	docXML, err := docxDocumentXML(content)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	body := wTbl.ReplaceAllString(string(docXML), "")
	parts := wtTag.FindAllStringSubmatch(body, -1)
	if len(parts) == 0 {
		return "", nil
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// extractDOCXTables extracts every <w:tbl> block as a grid of trimmed cell
// strings. Cell text is the concatenation of its <w:t> nodes. Rows with no
// cells are skipped; a table with no rows is skipped entirely.
func extractDOCXTables(content []byte) ([]models.Table, error) {
	docXML, err := docxDocumentXML(content)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX tables: %w", err)
	}
	var tables []models.Table
	for _, tbl := range wTbl.FindAllString(string(docXML), -1) {
		var data [][]string
		for _, tr := range wTr.FindAllString(tbl, -1) {
			var row []string
			for _, tc := range wTc.FindAllString(tr, -1) {
				var cell strings.Builder
				for _, p := range wtTag.FindAllStringSubmatch(tc, -1) {
					cell.WriteString(p[1])
				}
				row = append(row, strings.TrimSpace(cell.String()))
			}
			if len(row) > 0 {
				data = append(data, row)
			}
		}
		if len(data) == 0 {
			continue
		}
		tables = append(tables, models.Table{
			Index:   len(tables),
			Data:    data,
			Rows:    len(data),
			Columns: len(data[0]),
		})
	}
	return tables, nil
}
