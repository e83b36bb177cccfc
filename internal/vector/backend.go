// Package vector provides similarity-searchable collections of text entries.
package vector

import "context"

// Hit is one similarity search result. Distance is ascending: lower is more
// relevant.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// Backend is a similarity backend holding named collections. Documents are
// embedded at add time; queries are embedded at query time, so callers work
// purely in text.
type Backend interface {
	// Add stores documents with the given IDs and metadata. ids, documents,
	// and metadatas must have equal length.
	Add(ctx context.Context, collection string, ids, documents []string, metadatas []map[string]string) error
	// Query returns up to n hits ordered by ascending distance.
	Query(ctx context.Context, collection, query string, n int) ([]Hit, error)
	// Get returns the IDs of all entries whose metadata contains every
	// key/value pair in where. A missing collection yields no IDs, not an error.
	Get(ctx context.Context, collection string, where map[string]string) ([]string, error)
	// Delete removes entries by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, collection string, ids []string) error
	// Count returns the number of entries in the collection.
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}
