// Package embedding provides text embedding for similarity indexing.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must return
// unit-normalized vectors so inner product equals cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
