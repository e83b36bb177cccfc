// Package ingest turns uploaded files into indexed knowledge: extraction,
// chunking, an advisory structuring pass, and storage.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

// Pipeline ingests documents into the knowledge store.
type Pipeline struct {
	extractor *extract.Extractor
	store     *store.KnowledgeStore
	oracle    llm.Oracle
	chunkSize int
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithOracle enables the advisory structuring pass. Without an oracle the
// pass is skipped; ingestion does not depend on it.
func WithOracle(oracle llm.Oracle) Option {
	return func(p *Pipeline) {
		p.oracle = oracle
	}
}

// WithChunkSize overrides the target chunk size.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) {
		p.chunkSize = size
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(extractor *extract.Extractor, store *store.KnowledgeStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		store:     store,
		chunkSize: DefaultChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts, chunks, and indexes the file at path. filename determines
// the format and is recorded as the document's display name; sourcePath is
// recorded for documents ingested from a watched directory (empty for
// uploads), and an existing document with the same source path is replaced.
// An unsupported extension fails with extract.UnsupportedFormatError before
// anything is stored.
func (p *Pipeline) Ingest(ctx context.Context, path, filename, sourcePath string) (*models.IngestResult, error) {
	content, err := p.extractor.Extract(path, filename)
	if err != nil {
		return nil, err
	}
	chunks := ChunkText(content.RawText, p.chunkSize)

	analysis := ""
	if p.oracle != nil {
		analysis = analyzeDocument(ctx, p.oracle, filename, content)
		p.logger.Debug("document analysis",
			zap.String("filename", filename),
			zap.String("analysis", analysis))
	}

	// A watched file that changed replaces its earlier document instead of
	// accumulating duplicates.
	if sourcePath != "" {
		existing, err := p.store.FindBySourcePath(ctx, sourcePath)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if err := p.store.DeleteDocument(ctx, existing.ID); err != nil {
				return nil, err
			}
			p.logger.Debug("replacing document for changed file",
				zap.String("old_id", existing.ID),
				zap.String("source_path", sourcePath))
		}
	}

	doc := models.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		TextChunks: len(chunks),
		Tables:     len(content.Tables),
		CreatedAt:  time.Now().UTC(),
		SourcePath: sourcePath,
	}
	if err := p.store.Store(ctx, doc, chunks, content.Tables); err != nil {
		return nil, err
	}
	p.logger.Info("document ingested",
		zap.String("id", doc.ID),
		zap.String("filename", filename),
		zap.Int("text_chunks", doc.TextChunks),
		zap.Int("tables", doc.Tables))

	return &models.IngestResult{
		DocumentID: doc.ID,
		Filename:   filename,
		TextChunks: doc.TextChunks,
		Tables:     doc.Tables,
		Analysis:   analysis,
	}, nil
}
