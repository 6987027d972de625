package storage

import "time"

// Document represents one ingested source file in the database.
type Document struct {
	ID         string // UUID
	SourcePath string // Path relative to the documents directory
	Format     string // "pdf", "md" or "txt"
	Staged     bool   // True while the document belongs to an in-flight rebuild
	CreatedAt  time.Time
}

// ChunkRecord represents a chunk of document text, indexed for vector search.
type ChunkRecord struct {
	ID          string // UUID (same as the vector store point ID)
	DocumentID  string // UUID (foreign key to documents.id)
	ChunkIndex  int    // Index within the document (starts at 0)
	StartOffset int    // Rune offset of the chunk start within the document text
	EndOffset   int    // Rune offset just past the chunk end
	Text        string // Chunk text content
	Staged      bool   // Mirrors the owning document's staged flag
}
