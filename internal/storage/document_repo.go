package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks clinicassist-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document catalog operations.
type DocumentStore interface {
	// Insert inserts a single document into the database.
	// The doc.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, doc *Document) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*Document, error)
	// Count returns the number of live (non-staged) documents.
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every document and, via cascade, every chunk.
	DeleteAll(ctx context.Context) error
	// PromoteStaged atomically replaces the live catalog with the staged one:
	// live rows are removed and staged rows become live.
	PromoteStaged(ctx context.Context) error
	// DiscardStaged removes staged rows, leaving the live catalog untouched.
	// Used to roll back a failed rebuild.
	DiscardStaged(ctx context.Context) error
}

// DocumentRepo provides methods for document catalog operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a single document into the database.
// The doc.ID must be set (UUID) before calling this method.
func (r *DocumentRepo) Insert(ctx context.Context, doc *Document) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, source_path, format, staged) VALUES (?, ?, ?, ?)",
		doc.ID, doc.SourcePath, doc.Format, doc.Staged,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx,
		"SELECT id, source_path, format, staged, created_at FROM documents WHERE id = ?",
		id,
	).Scan(&doc.ID, &doc.SourcePath, &doc.Format, &doc.Staged, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return &doc, nil
}

// Count returns the number of live (non-staged) documents.
func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE staged = 0").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// DeleteAll removes every document and, via cascade, every chunk.
func (r *DocumentRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents")
	if err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// PromoteStaged atomically replaces the live catalog with the staged one.
// Live documents (and their chunks, via cascade) are deleted and staged rows
// are flipped to live, all in one transaction.
func (r *DocumentRepo) PromoteStaged(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin promote transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	steps := []string{
		"DELETE FROM documents WHERE staged = 0",
		"UPDATE documents SET staged = 0 WHERE staged = 1",
		"UPDATE chunks SET staged = 0 WHERE staged = 1",
	}
	for _, stmt := range steps {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to promote staged catalog: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promote transaction: %w", err)
	}
	return nil
}

// DiscardStaged removes staged rows, leaving the live catalog untouched.
func (r *DocumentRepo) DiscardStaged(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE staged = 1")
	if err != nil {
		return fmt.Errorf("failed to discard staged documents: %w", err)
	}
	return nil
}
