// Package store maintains the searchable knowledge base: two similarity
// collections (text chunks and table renderings) plus a SQLite registry of
// ingested documents.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

const (
	textCollection  = "document_texts"
	tableCollection = "document_tables"
)

// KnowledgeStore indexes document content for retrieval and tracks document
// membership. Searches degrade to empty results on backend failure so the
// answering pipeline can proceed with whatever context is available.
type KnowledgeStore struct {
	backend  vector.Backend
	registry *Registry
	logger   *zap.Logger
}

// Option configures a KnowledgeStore.
type Option func(*KnowledgeStore)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *KnowledgeStore) {
		s.logger = logger
	}
}

// NewKnowledgeStore creates a knowledge store over the given backend and
// registry.
func NewKnowledgeStore(backend vector.Backend, registry *Registry, opts ...Option) *KnowledgeStore {
	s := &KnowledgeStore{
		backend:  backend,
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store indexes a document's chunks and tables, then registers the document.
// The registry row is written last so a partially indexed document never
// appears in listings.
func (s *KnowledgeStore) Store(ctx context.Context, doc models.Document, chunks []string, tables []models.Table) error {
	if len(chunks) > 0 {
		ids := make([]string, len(chunks))
		metadatas := make([]map[string]string, len(chunks))
		for i := range chunks {
			ids[i] = fmt.Sprintf("%s_text_%d", doc.ID, i)
			metadatas[i] = map[string]string{
				"document_id": doc.ID,
				"filename":    doc.Filename,
				"chunk_index": strconv.Itoa(i),
				"type":        "text",
			}
		}
		if err := s.backend.Add(ctx, textCollection, ids, chunks, metadatas); err != nil {
			return fmt.Errorf("failed to index text chunks: %w", err)
		}
	}

	if len(tables) > 0 {
		ids := make([]string, len(tables))
		documents := make([]string, len(tables))
		metadatas := make([]map[string]string, len(tables))
		for i, table := range tables {
			tableData, err := json.Marshal(table.Data)
			if err != nil {
				return fmt.Errorf("failed to serialize table %d: %w", i, err)
			}
			ids[i] = fmt.Sprintf("%s_table_%d", doc.ID, i)
			documents[i] = RenderTable(table)
			metadatas[i] = map[string]string{
				"document_id": doc.ID,
				"filename":    doc.Filename,
				"table_index": strconv.Itoa(i),
				"type":        "table",
				"table_data":  string(tableData),
			}
		}
		if err := s.backend.Add(ctx, tableCollection, ids, documents, metadatas); err != nil {
			return fmt.Errorf("failed to index tables: %w", err)
		}
	}

	if err := s.registry.Add(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("document stored",
		zap.String("id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("text_chunks", doc.TextChunks),
		zap.Int("tables", doc.Tables))
	return nil
}

// SearchText returns up to limit text chunks nearest to the query. Backend
// failures are logged and yield an empty result, never an error.
func (s *KnowledgeStore) SearchText(ctx context.Context, query string, limit int) []models.TextMatch {
	hits, err := s.backend.Query(ctx, textCollection, query, limit)
	if err != nil {
		s.logger.Warn("text search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	matches := make([]models.TextMatch, 0, len(hits))
	for _, hit := range hits {
		chunkIndex, _ := strconv.Atoi(hit.Metadata["chunk_index"])
		matches = append(matches, models.TextMatch{
			Content:    hit.Document,
			Filename:   hit.Metadata["filename"],
			ChunkIndex: chunkIndex,
			Score:      hit.Distance,
		})
	}
	return matches
}

// SearchTables returns up to limit tables nearest to the query, with the
// structured grid reconstituted from its stored form. Backend failures are
// logged and yield an empty result, never an error.
func (s *KnowledgeStore) SearchTables(ctx context.Context, query string, limit int) []models.TableMatch {
	hits, err := s.backend.Query(ctx, tableCollection, query, limit)
	if err != nil {
		s.logger.Warn("table search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	matches := make([]models.TableMatch, 0, len(hits))
	for _, hit := range hits {
		tableIndex, _ := strconv.Atoi(hit.Metadata["table_index"])
		var data [][]string
		if raw := hit.Metadata["table_data"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				s.logger.Warn("malformed stored table data",
					zap.String("id", hit.ID), zap.Error(err))
			}
		}
		matches = append(matches, models.TableMatch{
			Description: hit.Document,
			Filename:    hit.Metadata["filename"],
			TableIndex:  tableIndex,
			Data:        data,
			Score:       hit.Distance,
		})
	}
	return matches
}

// ListDocuments returns the registry contents.
func (s *KnowledgeStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.registry.List(ctx)
}

// GetDocument returns a single registry entry, or nil if absent.
func (s *KnowledgeStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return s.registry.Get(ctx, id)
}

// FindBySourcePath maps a watched file path back to its document.
func (s *KnowledgeStore) FindBySourcePath(ctx context.Context, path string) (*models.Document, error) {
	return s.registry.GetBySourcePath(ctx, path)
}

// DeleteDocument removes every indexed entry belonging to the document, then
// its registry row. Missing entries are a no-op; a storage-layer error is a
// hard failure and leaves the document's deletion state unknown.
func (s *KnowledgeStore) DeleteDocument(ctx context.Context, id string) error {
	where := map[string]string{"document_id": id}
	for _, collection := range []string{textCollection, tableCollection} {
		ids, err := s.backend.Get(ctx, collection, where)
		if err != nil {
			return fmt.Errorf("failed to locate entries in %s: %w", collection, err)
		}
		if len(ids) == 0 {
			continue
		}
		if err := s.backend.Delete(ctx, collection, ids); err != nil {
			return fmt.Errorf("failed to delete entries from %s: %w", collection, err)
		}
	}
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.String("id", id))
	return nil
}

// Counts reports registry and collection sizes for the status endpoint.
// Collection counts degrade to zero on backend failure.
func (s *KnowledgeStore) Counts(ctx context.Context) (documents, textChunks, tables int, err error) {
	documents, err = s.registry.Count(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	if n, cerr := s.backend.Count(ctx, textCollection); cerr == nil {
		textChunks = n
	} else {
		s.logger.Warn("text collection count failed", zap.Error(cerr))
	}
	if n, cerr := s.backend.Count(ctx, tableCollection); cerr == nil {
		tables = n
	} else {
		s.logger.Warn("table collection count failed", zap.Error(cerr))
	}
	return documents, textChunks, tables, nil
}

// Close closes the registry and the similarity backend.
func (s *KnowledgeStore) Close() error {
	rerr := s.registry.Close()
	berr := s.backend.Close()
	if rerr != nil {
		return rerr
	}
	return berr
}
