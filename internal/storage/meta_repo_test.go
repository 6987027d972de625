package storage

import (
	"context"
	"testing"
)

func TestMetaRepo_GetSet(t *testing.T) {
	db := newTestDB(t)
	repo := NewMetaRepo(db)
	ctx := context.Background()

	if _, err := repo.Get(ctx, MetaKeyEmbeddingModel); err != ErrNotFound {
		t.Errorf("Get(unset) error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(ctx, MetaKeyEmbeddingModel, "nomic-embed-text-v1.5"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := repo.Get(ctx, MetaKeyEmbeddingModel)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "nomic-embed-text-v1.5" {
		t.Errorf("Get() = %q, want %q", got, "nomic-embed-text-v1.5")
	}

	// Set replaces the previous value.
	if err := repo.Set(ctx, MetaKeyEmbeddingModel, "other-model"); err != nil {
		t.Fatalf("Set(replace) error = %v", err)
	}
	got, err = repo.Get(ctx, MetaKeyEmbeddingModel)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "other-model" {
		t.Errorf("Get() = %q, want %q", got, "other-model")
	}
}
