package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks clinicassist-ai/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Collections are addressed through an alias so a rebuild can assemble a
// staging collection and swap it in without readers observing a partial
// index.
type VectorStore interface {
	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search over the collection.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Count returns the exact number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// CreateCollection creates a fresh collection with the given vector size.
	// Any existing collection of the same name is dropped first.
	CreateCollection(ctx context.Context, collection string, vectorSize int) error

	// DropCollection removes a collection. Dropping a missing collection is
	// not an error.
	DropCollection(ctx context.Context, collection string) error

	// ResolveAlias returns the collection an alias points at, or "" if the
	// alias does not exist.
	ResolveAlias(ctx context.Context, alias string) (string, error)

	// SwapAlias repoints an alias at a collection, replacing any previous
	// binding. Callers must hold the index write lock.
	SwapAlias(ctx context.Context, alias, collection string) error
}
