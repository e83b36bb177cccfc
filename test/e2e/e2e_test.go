// Package e2e exercises the full ingest-and-answer flow in process.
package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/vector"
)

// contextOracle answers by quoting the retrieved context back, so tests can
// assert the pipeline delivered the right content to the final stage.
type contextOracle struct {
	lastPrompt string
}

func (o *contextOracle) Complete(ctx context.Context, role llm.Role, prompt string) (string, error) {
	o.lastPrompt = prompt
	return "Based on the documents: " + role.Name, nil
}

type stack struct {
	store    *store.KnowledgeStore
	ingestor *ingest.Pipeline
	qa       *qa.Pipeline
	oracle   *contextOracle
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	backend, err := vector.NewLocalBackend(embedding.NewHashEmbedder(64), filepath.Join(dir, "vectors"))
	if err != nil {
		t.Fatal(err)
	}
	registry, err := store.NewRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	ks := store.NewKnowledgeStore(backend, registry)
	t.Cleanup(func() { _ = ks.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	oracle := &contextOracle{}
	return &stack{
		store:    ks,
		ingestor: ingest.NewPipeline(extract.NewExtractor(), ks),
		qa:       qa.NewPipeline(ks, oracle, cfg.QA),
		oracle:   oracle,
	}
}

func (s *stack) ingestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	result, err := s.ingestor.Ingest(context.Background(), path, name, "")
	if err != nil {
		t.Fatal(err)
	}
	return result.DocumentID
}

func TestIngestThenAsk(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	s.ingestFile(t, "sky.txt", "The sky is blue.")

	answer, err := s.qa.Answer(ctx, "What color is the sky?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Answer == "" {
		t.Error("empty answer")
	}
	if len(answer.Sources) != 2 || answer.Sources[0] != "Text chunks: 1" || answer.Sources[1] != "Tables: 0" {
		t.Errorf("sources: %v", answer.Sources)
	}
	if answer.AgentUsed != "text_retrieval" {
		t.Errorf("agent_used: %q", answer.AgentUsed)
	}
	if !strings.Contains(s.oracle.lastPrompt, "What color is the sky?") {
		t.Error("final stage never saw the question")
	}
}

func TestAskWithNoDocuments(t *testing.T) {
	s := newStack(t)
	answer, err := s.qa.Answer(context.Background(), "Anything at all?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.AgentUsed != "combined" {
		t.Errorf("agent_used with empty knowledge base: %q", answer.AgentUsed)
	}
	if answer.Sources[0] != "Text chunks: 0" || answer.Sources[1] != "Tables: 0" {
		t.Errorf("sources: %v", answer.Sources)
	}
}

func TestDeleteRemovesFromRetrieval(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)

	keepID := s.ingestFile(t, "keep.txt", "Grass is green in summer.")
	dropID := s.ingestFile(t, "drop.txt", "Snow is white in winter.")

	if err := s.store.DeleteDocument(ctx, dropID); err != nil {
		t.Fatal(err)
	}

	matches := s.store.SearchText(ctx, "What color is snow in winter?", 10)
	for _, m := range matches {
		if strings.Contains(m.Content, "Snow is white") {
			t.Error("deleted document still retrievable")
		}
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != keepID {
		t.Errorf("registry after delete: %v", docs)
	}

	answer, err := s.qa.Answer(ctx, "What color is grass?")
	if err != nil {
		t.Fatal(err)
	}
	if answer.Sources[0] != "Text chunks: 1" {
		t.Errorf("surviving document should still be retrieved: %v", answer.Sources)
	}
}

func TestRestartKeepsKnowledge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := embedding.NewHashEmbedder(64)

	build := func() *store.KnowledgeStore {
		backend, err := vector.NewLocalBackend(emb, filepath.Join(dir, "vectors"))
		if err != nil {
			t.Fatal(err)
		}
		registry, err := store.NewRegistry(filepath.Join(dir, "documents.db"))
		if err != nil {
			t.Fatal(err)
		}
		return store.NewKnowledgeStore(backend, registry)
	}

	ks := build()
	ingestor := ingest.NewPipeline(extract.NewExtractor(), ks)
	path := filepath.Join(t.TempDir(), "persist.txt")
	if err := os.WriteFile(path, []byte("Persistence survives restarts."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ingestor.Ingest(ctx, path, "persist.txt", ""); err != nil {
		t.Fatal(err)
	}
	if err := ks.Close(); err != nil {
		t.Fatal(err)
	}

	ks2 := build()
	defer ks2.Close()
	docs, err := ks2.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("registry after restart: %v", docs)
	}
	matches := ks2.SearchText(ctx, "Persistence survives restarts.", 5)
	if len(matches) != 1 {
		t.Errorf("index after restart: %v", matches)
	}
}
