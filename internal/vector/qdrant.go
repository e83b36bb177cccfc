package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/embedding"
)

// QdrantBackend is a minimal REST client to Qdrant. Each logical collection
// maps to a Qdrant collection with cosine distance. Because Qdrant point IDs
// must be UUIDs, entry IDs are carried in the payload and the point ID is a
// SHA1 UUID derived from them.
type QdrantBackend struct {
	embedder embedding.Embedder
	url      string
	apiKey   string
	client   *http.Client

	mu      sync.Mutex
	ensured map[string]bool
}

// QdrantConfig configures the Qdrant backend. APIKeyEnv names the environment
// variable holding the API key (may be unset for a local instance).
type QdrantConfig struct {
	URL       string
	APIKeyEnv string
	Timeout   time.Duration
}

// NewQdrantBackend creates a Qdrant REST backend.
func NewQdrantBackend(embedder embedding.Embedder, cfg QdrantConfig) *QdrantBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantBackend{
		embedder: embedder,
		url:      cfg.URL,
		apiKey:   os.Getenv(cfg.APIKeyEnv),
		client:   &http.Client{Timeout: timeout},
		ensured:  make(map[string]bool),
	}
}

// pointID derives a stable Qdrant-compatible UUID for an entry ID.
func pointID(collection, id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(collection+"/"+id)).String()
}

// ensureCollection creates the collection if it does not exist yet.
func (b *QdrantBackend) ensureCollection(ctx context.Context, name string, dimension int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ensured[name] {
		return nil
	}
	status, err := b.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", name), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		if status, err = b.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", name), body, nil); err != nil {
			return err
		}
		if status >= 300 {
			return fmt.Errorf("qdrant create collection %s failed: status %d", name, status)
		}
	}
	b.ensured[name] = true
	return nil
}

// Add embeds documents and upserts them as points.
func (b *QdrantBackend) Add(ctx context.Context, collection string, ids, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, documents, and metadatas length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	vectors, err := b.embedder.EmbedBatch(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if err := b.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		return err
	}
	points := make([]map[string]any, len(ids))
	for i, id := range ids {
		points[i] = map[string]any{
			"id":     pointID(collection, id),
			"vector": vectors[i],
			"payload": map[string]any{
				"entry_id": id,
				"document": documents[i],
				"metadata": metadatas[i],
			},
		}
	}
	status, err := b.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", collection),
		map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant upsert into %s failed: status %d", collection, status)
	}
	return nil
}

// Query embeds the query text and searches the collection. Qdrant reports
// cosine similarity; distance is 1 - score so lower is more relevant.
func (b *QdrantBackend) Query(ctx context.Context, collection, query string, n int) ([]Hit, error) {
	if n <= 0 {
		return nil, nil
	}
	qv, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := b.ensureCollection(ctx, collection, len(qv)); err != nil {
		return nil, err
	}
	req := map[string]any{
		"vector":       qv,
		"limit":        n,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	status, err := b.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", collection), req, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant search in %s failed: status %d", collection, status)
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{
			ID:       r.Payload.EntryID,
			Document: r.Payload.Document,
			Metadata: r.Payload.Metadata,
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

type qdrantPayload struct {
	EntryID  string            `json:"entry_id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

// Get scrolls the collection with a payload filter and returns matching entry IDs.
func (b *QdrantBackend) Get(ctx context.Context, collection string, where map[string]string) ([]string, error) {
	must := make([]map[string]any, 0, len(where))
	for k, v := range where {
		must = append(must, map[string]any{
			"key":   "metadata." + k,
			"match": map[string]any{"value": v},
		})
	}
	req := map[string]any{
		"filter":       map[string]any{"must": must},
		"limit":        10000,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload qdrantPayload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	status, err := b.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/scroll", collection), req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant scroll in %s failed: status %d", collection, status)
	}
	ids := make([]string, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		ids = append(ids, p.Payload.EntryID)
	}
	return ids, nil
}

// Delete removes points by entry ID.
func (b *QdrantBackend) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(collection, id)
	}
	status, err := b.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", collection),
		map[string]any{"points": points}, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status >= 300 {
		return fmt.Errorf("qdrant delete from %s failed: status %d", collection, status)
	}
	return nil
}

// Count returns the exact point count of the collection.
func (b *QdrantBackend) Count(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	status, err := b.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", collection),
		map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	if status == http.StatusNotFound {
		return 0, nil
	}
	if status >= 300 {
		return 0, fmt.Errorf("qdrant count in %s failed: status %d", collection, status)
	}
	return resp.Result.Count, nil
}

// Close is a no-op for QdrantBackend.
func (b *QdrantBackend) Close() error {
	return nil
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status is returned so callers can treat 404 as empty.
func (b *QdrantBackend) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.url+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
