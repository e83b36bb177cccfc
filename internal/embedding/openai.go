package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
)

const openaiMaxRetries = 3

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. Results are
// unit-normalized and cached.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
	cache      *EmbeddingCache
}

// OpenAIConfig configures the embeddings client. APIKeyEnv names the
// environment variable holding the key.
type OpenAIConfig struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimensions int
	CacheSize  int
	Timeout    time.Duration
}

// NewOpenAIEmbedder creates an embeddings client. Returns an error if the API
// key environment variable is empty.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	return &OpenAIEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
		cache:      NewEmbeddingCache(cfg.CacheSize),
	}, nil
}

// Embed returns the embedding for text, using the cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one request, retrying on 429 and 5xx with
// exponential backoff (Retry-After is respected when present).
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, _ := json.Marshal(map[string]any{
		"input": texts,
		"model": e.model,
	})
	url := e.baseURL + "/embeddings"

	var lastErr error
	for attempt := 0; attempt <= openaiMaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = err
			if waitErr := backoff(ctx, attempt, ""); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			if waitErr := backoff(ctx, attempt, retryAfter); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if waitErr := backoff(ctx, attempt, ""); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		var out struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return nil, fmt.Errorf("decode embeddings response: %w", err)
		}
		if len(out.Data) != len(texts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(out.Data))
		}
		embeddings := make([][]float32, len(texts))
		for i, d := range out.Data {
			if e.dimensions == 0 {
				e.dimensions = len(d.Embedding)
			}
			utils.NormalizeL2(d.Embedding)
			embeddings[i] = d.Embedding
			e.cache.Set(texts[i], d.Embedding)
		}
		return embeddings, nil
	}
	return nil, lastErr
}

// Dimensions returns the embedding dimension (0 until the first successful call
// when not configured explicitly).
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// backoff sleeps for an exponential delay (capped at 5s), or the server's
// Retry-After when given. Returns early if ctx is cancelled.
func backoff(ctx context.Context, attempt int, retryAfter string) error {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			d = time.Duration(secs) * time.Second
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
