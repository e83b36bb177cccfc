package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestStore(t *testing.T) *store.KnowledgeStore {
	t.Helper()
	dir := t.TempDir()
	backend, err := vector.NewLocalBackend(embedding.NewHashEmbedder(32), filepath.Join(dir, "vectors"))
	if err != nil {
		t.Fatal(err)
	}
	registry, err := store.NewRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	s := store.NewKnowledgeStore(backend, registry)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipeline_IngestText(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks)

	path := writeTempFile(t, "note.txt", "The sky is blue.")
	result, err := p.Ingest(ctx, path, "note.txt", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.DocumentID == "" {
		t.Error("expected a document id")
	}
	if result.TextChunks != 1 || result.Tables != 0 {
		t.Errorf("counts: got %d chunks, %d tables", result.TextChunks, result.Tables)
	}

	docs, err := ks.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Filename != "note.txt" {
		t.Fatalf("registry: got %v", docs)
	}
	if docs[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	matches := ks.SearchText(ctx, "What color is the sky?", 5)
	if len(matches) != 1 || matches[0].Content != "The sky is blue." {
		t.Errorf("search after ingest: got %v", matches)
	}
}

func TestPipeline_UnsupportedFormat(t *testing.T) {
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks)

	path := writeTempFile(t, "slides.pptx", "irrelevant")
	_, err := p.Ingest(context.Background(), path, "slides.pptx", "")
	var unsupported *extract.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if unsupported.Extension != "pptx" {
		t.Errorf("extension: got %q", unsupported.Extension)
	}

	docs, err := ks.ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("nothing should be stored on format rejection, got %v", docs)
	}
}

type stubOracle struct {
	output string
	err    error
}

func (o stubOracle) Complete(ctx context.Context, role llm.Role, prompt string) (string, error) {
	return o.output, o.err
}

func TestPipeline_AnalysisFailureDoesNotBlockIngest(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks,
		WithOracle(stubOracle{err: errors.New("model down")}))

	path := writeTempFile(t, "note.txt", "Grass is green.")
	result, err := p.Ingest(ctx, path, "note.txt", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Analysis, "Document analysis failed:") {
		t.Errorf("analysis fallback: got %q", result.Analysis)
	}
	if result.TextChunks != 1 {
		t.Errorf("document should still be indexed, got %d chunks", result.TextChunks)
	}
}

func TestPipeline_SourcePathRecorded(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks)

	path := writeTempFile(t, "watched.md", "# Title\n\nBody text.")
	if _, err := p.Ingest(ctx, path, "watched.md", path); err != nil {
		t.Fatal(err)
	}
	doc, err := ks.FindBySourcePath(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil || doc.Filename != "watched.md" {
		t.Fatalf("expected document for source path, got %v", doc)
	}
}

func TestPipeline_ReingestReplacesBySourcePath(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks)

	path := writeTempFile(t, "watched.txt", "First version of the file.")
	first, err := p.Ingest(ctx, path, "watched.txt", path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("Second version of the file."), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := p.Ingest(ctx, path, "watched.txt", path)
	if err != nil {
		t.Fatal(err)
	}
	if second.DocumentID == first.DocumentID {
		t.Error("re-ingest should assign a new document id")
	}

	docs, err := ks.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != second.DocumentID {
		t.Fatalf("re-ingesting a watched file should replace the document, got %v", docs)
	}

	matches := ks.SearchText(ctx, "Second version of the file.", 10)
	for _, m := range matches {
		if strings.Contains(m.Content, "First version") {
			t.Error("stale chunks survive replacement")
		}
	}
}

func TestPipeline_UploadsNeverReplace(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks)

	path := writeTempFile(t, "note.txt", "The sky is blue.")
	for i := 0; i < 2; i++ {
		if _, err := p.Ingest(ctx, path, "note.txt", ""); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := ks.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("uploads are independent documents, got %d", len(docs))
	}
}

func TestPipeline_AnalysisLogged(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	core, logs := observer.New(zap.DebugLevel)
	p := NewPipeline(extract.NewExtractor(), ks,
		WithOracle(stubOracle{output: "structured summary"}),
		WithLogger(zap.New(core)))

	path := writeTempFile(t, "note.txt", "The sky is blue.")
	result, err := p.Ingest(ctx, path, "note.txt", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Analysis, "structured summary") {
		t.Errorf("analysis: got %q", result.Analysis)
	}

	entries := logs.FilterMessage("document analysis").All()
	if len(entries) != 1 {
		t.Fatalf("expected one analysis log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if got, _ := fields["analysis"].(string); !strings.Contains(got, "structured summary") {
		t.Errorf("logged analysis: %v", fields["analysis"])
	}
}

func TestPipeline_ChunkSizeOption(t *testing.T) {
	ctx := context.Background()
	ks := newTestStore(t)
	p := NewPipeline(extract.NewExtractor(), ks, WithChunkSize(20))

	path := writeTempFile(t, "long.txt", strings.Repeat("many words here ", 10))
	result, err := p.Ingest(ctx, path, "long.txt", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.TextChunks < 2 {
		t.Errorf("expected multiple chunks at size 20, got %d", result.TextChunks)
	}
}
