package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestStore(t *testing.T) *KnowledgeStore {
	t.Helper()
	dir := t.TempDir()
	backend, err := vector.NewLocalBackend(embedding.NewHashEmbedder(32), filepath.Join(dir, "vectors"))
	if err != nil {
		t.Fatal(err)
	}
	registry, err := NewRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	s := NewKnowledgeStore(backend, registry)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func storeTestDoc(t *testing.T, s *KnowledgeStore, id, filename string, chunks []string, tables []models.Table) {
	t.Helper()
	doc := models.Document{
		ID:         id,
		Filename:   filename,
		TextChunks: len(chunks),
		Tables:     len(tables),
		CreatedAt:  time.Now(),
	}
	if err := s.Store(context.Background(), doc, chunks, tables); err != nil {
		t.Fatal(err)
	}
}

func TestKnowledgeStore_StoreAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	storeTestDoc(t, s, "d1", "report.txt",
		[]string{"the sky is blue", "grass is green"},
		[]models.Table{{Index: 0, Data: [][]string{{"year", "revenue"}, {"2023", "10"}}, Rows: 2, Columns: 2}})

	texts := s.SearchText(ctx, "the sky is blue", 5)
	if len(texts) != 2 {
		t.Fatalf("expected 2 text matches, got %d", len(texts))
	}
	if texts[0].Content != "the sky is blue" || texts[0].Filename != "report.txt" || texts[0].ChunkIndex != 0 {
		t.Errorf("unexpected first match: %+v", texts[0])
	}
	if texts[0].Score > texts[1].Score {
		t.Error("matches not ordered by ascending score")
	}

	tables := s.SearchTables(ctx, "revenue by year", 3)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table match, got %d", len(tables))
	}
	if tables[0].Description != "Table headers: year | revenue\n2023 | 10" {
		t.Errorf("description: got %q", tables[0].Description)
	}
	if len(tables[0].Data) != 2 || tables[0].Data[1][1] != "10" {
		t.Errorf("structured data not reconstituted: %v", tables[0].Data)
	}
}

func TestKnowledgeStore_DeletePurgesEverything(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	storeTestDoc(t, s, "d1", "a.txt", []string{"alpha beta"}, []models.Table{{Data: [][]string{{"x"}, {"1"}}}})
	storeTestDoc(t, s, "d2", "a.txt", []string{"gamma delta"}, nil)

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatal(err)
	}

	for _, m := range s.SearchText(ctx, "alpha", 10) {
		if m.Content == "alpha beta" {
			t.Error("deleted document's chunk still searchable")
		}
	}
	if got := s.SearchTables(ctx, "x", 10); len(got) != 0 {
		t.Errorf("deleted document's table still searchable: %v", got)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "d2" {
		t.Fatalf("expected only d2 to remain, got %v", docs)
	}

	// d2 shares the filename but must be untouched.
	texts := s.SearchText(ctx, "gamma delta", 5)
	if len(texts) != 1 || texts[0].Content != "gamma delta" {
		t.Errorf("surviving document lost its chunks: %v", texts)
	}
}

func TestKnowledgeStore_DeleteMissingIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteDocument(context.Background(), "no-such-id"); err != nil {
		t.Fatalf("deleting unknown id: %v", err)
	}
}

func TestKnowledgeStore_ListIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	storeTestDoc(t, s, "d1", "a.txt", []string{"one"}, nil)
	storeTestDoc(t, s, "d2", "b.txt", []string{"two"}, nil)

	first, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("lists differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("lists differ at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

type failingBackend struct{}

func (failingBackend) Add(ctx context.Context, collection string, ids, documents []string, metadatas []map[string]string) error {
	return errors.New("backend down")
}
func (failingBackend) Query(ctx context.Context, collection, query string, n int) ([]vector.Hit, error) {
	return nil, errors.New("backend down")
}
func (failingBackend) Get(ctx context.Context, collection string, where map[string]string) ([]string, error) {
	return nil, errors.New("backend down")
}
func (failingBackend) Delete(ctx context.Context, collection string, ids []string) error {
	return errors.New("backend down")
}
func (failingBackend) Count(ctx context.Context, collection string) (int, error) {
	return 0, errors.New("backend down")
}
func (failingBackend) Close() error { return nil }

func TestKnowledgeStore_SearchDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	registry, err := NewRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	s := NewKnowledgeStore(failingBackend{}, registry)
	t.Cleanup(func() { _ = s.Close() })

	if got := s.SearchText(context.Background(), "anything", 5); len(got) != 0 {
		t.Errorf("expected empty text result, got %v", got)
	}
	if got := s.SearchTables(context.Background(), "anything", 3); len(got) != 0 {
		t.Errorf("expected empty table result, got %v", got)
	}
}

func TestKnowledgeStore_DeleteFailureIsHard(t *testing.T) {
	dir := t.TempDir()
	registry, err := NewRegistry(filepath.Join(dir, "documents.db"))
	if err != nil {
		t.Fatal(err)
	}
	s := NewKnowledgeStore(failingBackend{}, registry)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.DeleteDocument(context.Background(), "d1"); err == nil {
		t.Fatal("expected hard failure when the backend errors")
	}
}

func TestKnowledgeStore_Counts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	storeTestDoc(t, s, "d1", "a.txt", []string{"one", "two"}, []models.Table{{Data: [][]string{{"h"}, {"1"}}}})

	docs, texts, tables, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docs != 1 || texts != 2 || tables != 1 {
		t.Errorf("counts: got %d docs, %d texts, %d tables", docs, texts, tables)
	}
}
