package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestChunkRepo_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()

	doc := insertDocument(t, docs, false)
	chunk := &ChunkRecord{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		ChunkIndex:  2,
		StartOffset: 1400,
		EndOffset:   2200,
		Text:        "dosage guidance for adult patients",
	}
	if err := chunks.Insert(ctx, chunk); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := chunks.GetByID(ctx, chunk.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DocumentID != doc.ID || got.ChunkIndex != 2 || got.StartOffset != 1400 || got.EndOffset != 2200 {
		t.Errorf("GetByID() = %+v, want match for %+v", got, chunk)
	}
	if got.Text != chunk.Text {
		t.Errorf("Text = %q, want %q", got.Text, chunk.Text)
	}

	if _, err := chunks.GetByID(ctx, uuid.NewString()); err != ErrNotFound {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_CountExcludesStaged(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepo(db)
	chunks := NewChunkRepo(db)
	ctx := context.Background()

	doc := insertDocument(t, docs, false)
	for i, staged := range []bool{false, false, true} {
		chunk := &ChunkRecord{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Text:       "text",
			EndOffset:  4,
			Staged:     staged,
		}
		if err := chunks.Insert(ctx, chunk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	count, err := chunks.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}
