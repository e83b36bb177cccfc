package qa

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

var (
	supervisorRole = llm.Role{
		Name: "Question Analysis Supervisor",
		Goal: "Analyze user questions and determine the best approach to answer them",
		Backstory: "You are an intelligent supervisor who understands user intent and " +
			"coordinates different specialists to provide comprehensive answers.",
	}

	textRole = llm.Role{
		Name: "Text Information Retrieval Specialist",
		Goal: "Find and synthesize relevant text information to answer user questions",
		Backstory: "You specialize in searching through text content and documents to find " +
			"relevant information and provide strictly 'to the point' answers based on textual context. " +
			"Do not generate an answer based on your knowledge but only based on the document context, " +
			"ideally in similar language. " +
			"Do not write any code or perform any mathematics if the context is scientific.",
	}

	tableRole = llm.Role{
		Name: "Data Analysis Specialist",
		Goal: "Analyze tabular data and provide insights based on structured information",
		Backstory: "You are an expert in analyzing tables, charts, and structured data to answer " +
			"questions that require numerical analysis or data interpretation.",
	}
)

func supervisorPrompt(question string, textCount, tableCount int) string {
	return fmt.Sprintf(`Analyze this user question: %q

Available information:
- Text chunks: %d relevant pieces found
- Tables: %d relevant tables found

Determine:
1. What type of question this is (factual, analytical, comparative, etc.)
2. Whether it requires text analysis, table analysis, or both
3. What specific information should be retrieved

Provide a plan for answering this question.`, question, textCount, tableCount)
}

func textPrompt(question, plan string, matches []models.TextMatch, limit int) string {
	return fmt.Sprintf(`Answer this question using text information: %q

Analysis plan:
%s

Relevant text content:
%s
Provide a comprehensive, 'to the point' answer based on the text content.`,
		question, plan, formatTextChunks(matches, limit))
}

func tablePrompt(question, plan, textAnswer string, matches []models.TableMatch, limit int) string {
	return fmt.Sprintf(`Answer this question using table/data analysis: %q

Analysis plan:
%s

Answer from text analysis:
%s

Relevant tables:
%s
Analyze the data and provide the final answer to the question, combining it with the
text analysis above when the tables add nothing.`,
		question, plan, textAnswer, formatTables(matches, limit))
}

func formatTextChunks(matches []models.TextMatch, limit int) string {
	if len(matches) == 0 {
		return "No relevant text found.\n"
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "Text %d (from %s):\n%s\n\n", i+1, m.Filename, m.Content)
	}
	return b.String()
}

func formatTables(matches []models.TableMatch, limit int) string {
	if len(matches) == 0 {
		return "No relevant tables found.\n"
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "Table %d (from %s):\n", i+1, m.Filename)
		fmt.Fprintf(&b, "Description: %s\n", m.Description)
		fmt.Fprintf(&b, "Data: %v\n\n", m.Data)
	}
	return b.String()
}
