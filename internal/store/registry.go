package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// Registry is the SQLite-backed document registry. The similarity collections
// hold the searchable content; the registry is the authoritative list of live
// documents and their chunk/table counts.
type Registry struct {
	db *sql.DB
}

// NewRegistry opens (creating if necessary) the registry database at dbPath.
func NewRegistry(dbPath string) (*Registry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		text_chunks INTEGER NOT NULL DEFAULT 0,
		tables INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		source_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source_path ON documents(source_path);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Add inserts a registry row for the document.
func (r *Registry) Add(ctx context.Context, doc models.Document) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, text_chunks, tables, created_at, source_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.TextChunks, doc.Tables, doc.CreatedAt.UTC(), doc.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}
	return nil
}

// Get returns the document with the given ID, or (nil, nil) if absent.
func (r *Registry) Get(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, text_chunks, tables, created_at, source_path
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetBySourcePath returns the document ingested from the given path, or
// (nil, nil) if no document maps to it.
func (r *Registry) GetBySourcePath(ctx context.Context, path string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, text_chunks, tables, created_at, source_path
		 FROM documents WHERE source_path = ? LIMIT 1`, path)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var doc models.Document
	var createdAt time.Time
	err := row.Scan(&doc.ID, &doc.Filename, &doc.TextChunks, &doc.Tables, &createdAt, &doc.SourcePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc.CreatedAt = createdAt
	return &doc, nil
}

// List returns all registered documents, newest first.
func (r *Registry) List(ctx context.Context) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, text_chunks, tables, created_at, source_path
		 FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		var createdAt time.Time
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.TextChunks, &doc.Tables, &createdAt, &doc.SourcePath); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.CreatedAt = createdAt
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes the registry row. Deleting an unknown ID is not an error.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Count returns the number of registered documents.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}
