package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_meta_store.go -package=mocks clinicassist-ai/internal/storage MetaStore

import (
	"context"
	"database/sql"
	"fmt"
)

// MetaKeyEmbeddingModel records which embedding model produced the
// persisted vectors. A mismatch at query time invalidates the index.
const MetaKeyEmbeddingModel = "embedding_model"

// MetaStore defines the interface for index metadata operations.
type MetaStore interface {
	// Get returns the value for a key. Returns ErrNotFound if unset.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a key/value pair, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// MetaRepo provides methods for index metadata operations.
// It implements the MetaStore interface.
type MetaRepo struct {
	db *sql.DB
}

// NewMetaRepo creates a new MetaRepo.
func NewMetaRepo(db *sql.DB) *MetaRepo {
	return &MetaRepo{db: db}
}

// Get returns the value for a key. Returns ErrNotFound if unset.
func (r *MetaRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM index_meta WHERE key = ?",
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query index metadata: %w", err)
	}

	return value, nil
}

// Set stores a key/value pair, replacing any previous value.
func (r *MetaRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set index metadata: %w", err)
	}
	return nil
}
