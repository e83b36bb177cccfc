package models

// Agent labels reported in Answer.AgentUsed. The label is derived from
// retrieval counts alone and approximates which modality dominated; it is
// not a trace of what the reasoning stages actually used.
const (
	AgentTextRetrieval = "text_retrieval"
	AgentTableAnalysis = "table_analysis"
	AgentCombined      = "combined"
)

// TextMatch is one text-chunk retrieval hit. Score is a distance: lower is
// more relevant.
type TextMatch struct {
	Content    string  `json:"content"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// TableMatch is one table retrieval hit. Description is the flattened
// rendering the table was indexed under; Data is the full structured grid.
type TableMatch struct {
	Description string     `json:"description"`
	Filename    string     `json:"filename"`
	TableIndex  int        `json:"table_index"`
	Data        [][]string `json:"data"`
	Score       float64    `json:"score"`
}

// Answer is the result of the question-answering pipeline.
type Answer struct {
	Answer string `json:"answer"`
	// Sources is a coarse provenance signal, always exactly two strings:
	// "Text chunks: {n}" and "Tables: {m}".
	Sources   []string `json:"sources"`
	AgentUsed string   `json:"agent_used"`
}
