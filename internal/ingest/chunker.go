package ingest

import "strings"

// DefaultChunkSize is the target chunk length in characters.
const DefaultChunkSize = 500

// ChunkText splits text into word-preserving chunks. Words are accumulated
// greedily; a chunk is emitted as soon as its running size (word lengths plus
// one separator each) reaches chunkSize. A trailing partial chunk is emitted
// as-is, so every word appears in exactly one chunk in original order.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	words := strings.Fields(text)
	var chunks []string
	var current []string
	size := 0

	for _, word := range words {
		current = append(current, word)
		size += len(word) + 1
		if size >= chunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			size = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
