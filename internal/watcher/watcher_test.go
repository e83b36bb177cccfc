package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (r *recorder) ingest(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested = append(r.ingested, path)
}

func (r *recorder) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *recorder) waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		ok := check()
		r.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_IngestOnCreate(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New([]string{dir}, []string{".txt"}, false, rec.ingest, rec.remove,
		WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, func() bool { return len(rec.ingested) >= 1 })
	if rec.ingested[0] != path {
		t.Errorf("ingested %q, want %q", rec.ingested[0], path)
	}
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New([]string{dir}, []string{".txt"}, false, rec.ingest, rec.remove,
		WithDebounce(30*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "skip.bin"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "keep.txt")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, func() bool { return len(rec.ingested) >= 1 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.ingested {
		if p != keep {
			t.Errorf("unexpected ingest of %q", p)
		}
	}
}

func TestWatcher_RemoveCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New([]string{dir}, []string{".txt"}, false, rec.ingest, rec.remove,
		WithDebounce(30*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, func() bool { return len(rec.removed) >= 1 })
	if rec.removed[0] != path {
		t.Errorf("removed %q, want %q", rec.removed[0], path)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w := New([]string{dir}, []string{".txt"}, false, rec.ingest, rec.remove)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	rec.waitFor(t, func() bool { return len(rec.ingested) >= 1 })
}

func TestWatcher_AddRemoveDirectory(t *testing.T) {
	rec := &recorder{}
	w := New(nil, []string{".txt"}, false, rec.ingest, rec.remove,
		WithDebounce(30*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	dir := t.TempDir()
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if dirs := w.Directories(); len(dirs) != 1 {
		t.Fatalf("directories: got %v", dirs)
	}

	path := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, func() bool { return len(rec.ingested) >= 1 })

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if dirs := w.Directories(); len(dirs) != 0 {
		t.Errorf("directories after remove: got %v", dirs)
	}
}
