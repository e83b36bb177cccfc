package vector

import (
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
)

// NewBackend constructs the similarity backend named by the storage config.
func NewBackend(embedder embedding.Embedder, cfg config.StorageConfig) (Backend, error) {
	switch cfg.VectorBackend {
	case "", "local":
		return NewLocalBackend(embedder, cfg.VectorDir)
	case "qdrant":
		return NewQdrantBackend(embedder, QdrantConfig{
			URL:       cfg.QdrantURL,
			APIKeyEnv: cfg.QdrantAPIKeyEnv,
			Timeout:   15 * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}
