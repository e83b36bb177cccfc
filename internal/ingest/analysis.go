package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// analysisTextLimit caps how much raw text the structuring pass sees.
const analysisTextLimit = 2000

var (
	textExtractionRole = llm.Role{
		Name: "Text Extraction Specialist",
		Goal: "Extract and structure text content from documents with high accuracy",
		Backstory: "You are an expert in document analysis and text extraction. You specialize in " +
			"identifying and extracting meaningful text content from various document formats while " +
			"maintaining structure and context.",
	}

	tableExtractionRole = llm.Role{
		Name: "Table Analysis Specialist",
		Goal: "Identify, extract, and structure tabular data from documents",
		Backstory: "You are a specialist in identifying and extracting structured data from documents. " +
			"You excel at finding tables, charts, and other structured information and converting them " +
			"into usable formats.",
	}
)

// analyzeDocument runs the advisory structuring pass over extracted content.
// Its output is diagnostic only and is never parsed; any failure is folded
// into a fallback note so ingestion proceeds regardless.
func analyzeDocument(ctx context.Context, oracle llm.Oracle, filename string, content *models.ExtractedContent) string {
	textSummary, err := oracle.Complete(ctx, textExtractionRole, textAnalysisPrompt(filename, content.RawText))
	if err != nil {
		return fmt.Sprintf("Document analysis failed: %v", err)
	}
	tableSummary, err := oracle.Complete(ctx, tableExtractionRole, tableAnalysisPrompt(filename, content.Tables))
	if err != nil {
		return fmt.Sprintf("Document analysis failed: %v", err)
	}
	return textSummary + "\n\n" + tableSummary
}

func textAnalysisPrompt(filename, rawText string) string {
	return fmt.Sprintf(`Analyze and structure the following text content from document '%s':

%s

Your tasks:
1. Clean and structure the text
2. Identify key sections and headings
3. Break text into meaningful chunks
4. Extract key information and metadata

Return structured JSON with text_chunks, sections, and metadata.`,
		filename, utils.Truncate(rawText, analysisTextLimit))
}

func tableAnalysisPrompt(filename string, tables []models.Table) string {
	tableJSON, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		tableJSON = []byte("[]")
	}
	return fmt.Sprintf(`Analyze the tabular data extracted from document '%s':

Tables found: %d
Table data: %s

Your tasks:
1. Analyze each table structure
2. Identify headers and data types
3. Look for captions if any
4. Create meaningful descriptions for each table
5. Structure data for easy querying

Return structured JSON with table analysis and metadata.`,
		filename, len(tables), tableJSON)
}
