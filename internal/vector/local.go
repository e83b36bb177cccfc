package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/embedding"
)

// LocalBackend is a brute-force cosine similarity backend. Each collection is
// held in memory and persisted as a JSON file under dir, so collections
// survive process restarts. Suitable for a single-operator service and tests.
type LocalBackend struct {
	embedder    embedding.Embedder
	dir         string
	mu          sync.RWMutex
	collections map[string]*localCollection
}

type localCollection struct {
	mu      sync.RWMutex
	entries []localEntry
}

type localEntry struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Vector   []float32         `json:"vector"`
}

// NewLocalBackend creates a local backend persisting under dir. If dir is
// empty, collections are memory-only.
func NewLocalBackend(embedder embedding.Embedder, dir string) (*LocalBackend, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create vector dir: %w", err)
		}
	}
	return &LocalBackend{
		embedder:    embedder,
		dir:         dir,
		collections: make(map[string]*localCollection),
	}, nil
}

// collection returns the named collection, loading it from disk on first access.
func (b *LocalBackend) collection(name string) (*localCollection, error) {
	b.mu.RLock()
	c, ok := b.collections[name]
	b.mu.RUnlock()
	if ok {
		return c, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok = b.collections[name]; ok {
		return c, nil
	}
	c = &localCollection{}
	if b.dir != "" {
		data, err := os.ReadFile(b.path(name))
		if err == nil {
			if err := json.Unmarshal(data, &c.entries); err != nil {
				return nil, fmt.Errorf("load collection %q: %w", name, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load collection %q: %w", name, err)
		}
	}
	b.collections[name] = c
	return c, nil
}

func (b *LocalBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Add embeds documents and appends them to the collection, then persists it.
func (b *LocalBackend) Add(ctx context.Context, collection string, ids, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, documents, and metadatas length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	c, err := b.collection(collection)
	if err != nil {
		return err
	}
	vectors, err := b.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, id := range ids {
		c.entries = append(c.entries, localEntry{
			ID:       id,
			Document: documents[i],
			Metadata: metadatas[i],
			Vector:   vectors[i],
		})
	}
	return b.saveLocked(collection, c)
}

// Query embeds the query text and returns the n nearest entries by cosine
// distance (1 - inner product of unit vectors).
func (b *LocalBackend) Query(ctx context.Context, collection, query string, n int) ([]Hit, error) {
	c, err := b.collection(collection)
	if err != nil {
		return nil, err
	}
	qv, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || len(c.entries) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(c.entries))
	for _, e := range c.entries {
		var dot float64
		for i := range qv {
			if i >= len(e.Vector) {
				break
			}
			dot += float64(qv[i] * e.Vector[i])
		}
		hits = append(hits, Hit{
			ID:       e.ID,
			Document: e.Document,
			Metadata: e.Metadata,
			Distance: 1 - dot,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if n > len(hits) {
		n = len(hits)
	}
	return hits[:n], nil
}

// Get returns IDs of entries whose metadata contains every pair in where.
func (b *LocalBackend) Get(ctx context.Context, collection string, where map[string]string) ([]string, error) {
	c, err := b.collection(collection)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for _, e := range c.entries {
		match := true
		for k, v := range where {
			if e.Metadata[k] != v {
				match = false
				break
			}
		}
		if match {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

// Delete removes entries by ID and persists the collection.
func (b *LocalBackend) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := b.collection(collection)
	if err != nil {
		return err
	}
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.entries[:0]
	for _, e := range c.entries {
		if !remove[e.ID] {
			kept = append(kept, e)
		}
	}
	c.entries = kept
	return b.saveLocked(collection, c)
}

// Count returns the number of entries in the collection.
func (b *LocalBackend) Count(ctx context.Context, collection string) (int, error) {
	c, err := b.collection(collection)
	if err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Close is a no-op; every mutation is persisted immediately.
func (b *LocalBackend) Close() error {
	return nil
}

// saveLocked persists the collection. Caller must hold c.mu.
func (b *LocalBackend) saveLocked(name string, c *localCollection) error {
	if b.dir == "" {
		return nil
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshal collection %q: %w", name, err)
	}
	tmp := b.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write collection %q: %w", name, err)
	}
	if err := os.Rename(tmp, b.path(name)); err != nil {
		return fmt.Errorf("persist collection %q: %w", name, err)
	}
	return nil
}
