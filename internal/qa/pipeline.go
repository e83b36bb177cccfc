// Package qa answers natural-language questions over the knowledge base by
// chaining three reasoning stages over retrieved text and table context.
package qa

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
)

// Searcher is the retrieval surface the pipeline needs. Both methods degrade
// to empty results on backend failure.
type Searcher interface {
	SearchText(ctx context.Context, query string, limit int) []models.TextMatch
	SearchTables(ctx context.Context, query string, limit int) []models.TableMatch
}

// Pipeline runs three stages in sequence: a supervisor stage that plans the
// approach, a text-grounded stage, and a table-grounded stage. Each stage
// sees the previous stages' output; the final stage's completion is the
// answer. The supervisor's plan is advisory context only and never gates
// which stages run.
type Pipeline struct {
	searcher Searcher
	oracle   llm.Oracle
	cfg      config.QAConfig
	logger   *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a question-answering pipeline.
func NewPipeline(searcher Searcher, oracle llm.Oracle, cfg config.QAConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher: searcher,
		oracle:   oracle,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer retrieves context for the question and runs the reasoning stages.
// Retrieval failures degrade silently to empty context; oracle failures are
// hard errors.
func (p *Pipeline) Answer(ctx context.Context, question string) (*models.Answer, error) {
	texts := p.searcher.SearchText(ctx, question, p.cfg.TextLimit)
	tables := p.searcher.SearchTables(ctx, question, p.cfg.TableLimit)
	p.logger.Debug("retrieved context",
		zap.String("question", question),
		zap.Int("text_matches", len(texts)),
		zap.Int("table_matches", len(tables)))

	plan, err := p.oracle.Complete(ctx, supervisorRole, supervisorPrompt(question, len(texts), len(tables)))
	if err != nil {
		return nil, fmt.Errorf("supervisor stage failed: %w", err)
	}
	textAnswer, err := p.oracle.Complete(ctx, textRole, textPrompt(question, plan, texts, p.cfg.TextPromptLimit))
	if err != nil {
		return nil, fmt.Errorf("text stage failed: %w", err)
	}
	finalAnswer, err := p.oracle.Complete(ctx, tableRole, tablePrompt(question, plan, textAnswer, tables, p.cfg.TablePromptLimit))
	if err != nil {
		return nil, fmt.Errorf("table stage failed: %w", err)
	}

	return &models.Answer{
		Answer: finalAnswer,
		Sources: []string{
			fmt.Sprintf("Text chunks: %d", len(texts)),
			fmt.Sprintf("Tables: %d", len(tables)),
		},
		AgentUsed: agentUsed(len(texts), len(tables)),
	}, nil
}

// agentUsed labels which modality dominated retrieval. Ties go to the table
// branch.
func agentUsed(textCount, tableCount int) string {
	if textCount > tableCount {
		return models.AgentTextRetrieval
	}
	if tableCount > 0 {
		return models.AgentTableAnalysis
	}
	return models.AgentCombined
}
