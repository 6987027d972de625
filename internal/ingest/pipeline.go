// Package ingest builds the retrieval index: it extracts text from source
// documents, chunks it, embeds the chunks and persists vectors and catalog
// rows. A rebuild assembles everything in a staging collection and swaps it
// in atomically, so queries never observe a half-built index.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/service"
	"clinicassist-ai/internal/storage"
	"clinicassist-ai/internal/vectorstore"
)

// Embedder turns texts into vectors. *llm.EmbeddingsClient satisfies this.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Pipeline ingests documents into the vector index and document catalog.
type Pipeline struct {
	loader    *Loader
	chunker   *Chunker
	embedder  Embedder
	resources *resource.Manager
	vectors   vectorstore.VectorStore
	docs      storage.DocumentStore
	chunks    storage.ChunkStore
	meta      storage.MetaStore

	alias      string
	vectorSize int

	// indexLock serializes index swaps against reads. Queries take the
	// read side; Rebuild and Clear take the write side around the swap.
	indexLock *sync.RWMutex
}

// Config carries the pipeline dependencies.
type Config struct {
	Loader     *Loader
	Chunker    *Chunker
	Embedder   Embedder
	Resources  *resource.Manager
	Vectors    vectorstore.VectorStore
	Documents  storage.DocumentStore
	Chunks     storage.ChunkStore
	Meta       storage.MetaStore
	Alias      string
	VectorSize int
	IndexLock  *sync.RWMutex
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		loader:     cfg.Loader,
		chunker:    cfg.Chunker,
		embedder:   cfg.Embedder,
		resources:  cfg.Resources,
		vectors:    cfg.Vectors,
		docs:       cfg.Documents,
		chunks:     cfg.Chunks,
		meta:       cfg.Meta,
		alias:      cfg.Alias,
		vectorSize: cfg.VectorSize,
		indexLock:  cfg.IndexLock,
	}
}

// collection names alternate between two fixed slots so a staging build
// never collides with the live collection.
func (p *Pipeline) stagingCollection(active string) string {
	a, b := p.alias+"-a", p.alias+"-b"
	if active == a {
		return b
	}
	return a
}

// Bootstrap makes sure the alias resolves to a collection, creating an
// empty one on first start.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	active, err := p.vectors.ResolveAlias(ctx, p.alias)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if active != "" {
		return nil
	}

	initial := p.alias + "-a"
	if err := p.vectors.CreateCollection(ctx, initial, p.vectorSize); err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if err := p.vectors.SwapAlias(ctx, p.alias, initial); err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	return nil
}

// Rebuild replaces the whole index with the contents of dir. The new index
// is staged in a fresh collection and staged catalog rows; only after every
// document lands does the alias swap and the catalog promote. A failure
// anywhere discards the staging work and leaves the live index untouched.
func (p *Pipeline) Rebuild(ctx context.Context, dir string) (docCount, chunkCount int, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, skipped, err := p.loader.LoadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	for _, path := range skipped {
		logger.WarnContext(ctx, "skipping unreadable document", "path", path)
	}
	if len(docs) == 0 {
		return 0, 0, fmt.Errorf("%w: no ingestible documents in %s", service.ErrInvalidInput, dir)
	}

	active, err := p.vectors.ResolveAlias(ctx, p.alias)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	staging := p.stagingCollection(active)

	if err := p.vectors.CreateCollection(ctx, staging, p.vectorSize); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	chunkCount, err = p.ingestAll(ctx, docs, staging, true)
	if err != nil {
		p.rollbackStaging(ctx, staging)
		return 0, 0, err
	}

	// Swap under the write lock so no query sees the gap between the old
	// and new alias binding.
	p.indexLock.Lock()
	swapErr := p.vectors.SwapAlias(ctx, p.alias, staging)
	if swapErr == nil {
		swapErr = p.docs.PromoteStaged(ctx)
	}
	if swapErr == nil {
		swapErr = p.meta.Set(ctx, storage.MetaKeyEmbeddingModel, p.embedder.ModelName())
	}
	p.indexLock.Unlock()

	if swapErr != nil {
		p.rollbackStaging(ctx, staging)
		return 0, 0, fmt.Errorf("%w: %v", service.ErrRetrieval, swapErr)
	}

	if active != "" {
		if err := p.vectors.DropCollection(ctx, active); err != nil {
			logger.WarnContext(ctx, "failed to drop previous collection", "collection", active, "error", err)
		}
	}

	logger.InfoContext(ctx, "index rebuilt",
		"documents", len(docs),
		"chunks", chunkCount,
		"skipped", len(skipped),
		"collection", staging,
	)
	return len(docs), chunkCount, nil
}

// Append adds the contents of dir to the live index without touching what
// is already there. The embedding model must match the one the index was
// built with. The index read lock is held from alias resolution through the
// last upsert, so a concurrent rebuild cannot swap the collection out from
// under the appended points.
func (p *Pipeline) Append(ctx context.Context, dir string) (docCount, chunkCount int, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.checkModelIdentity(ctx); err != nil {
		return 0, 0, err
	}

	docs, skipped, err := p.loader.LoadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	for _, path := range skipped {
		logger.WarnContext(ctx, "skipping unreadable document", "path", path)
	}
	if len(docs) == 0 {
		return 0, 0, fmt.Errorf("%w: no ingestible documents in %s", service.ErrInvalidInput, dir)
	}

	p.indexLock.RLock()
	defer p.indexLock.RUnlock()

	active, err := p.vectors.ResolveAlias(ctx, p.alias)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if active == "" {
		return 0, 0, fmt.Errorf("%w: index not initialized", service.ErrRetrieval)
	}

	chunkCount, err = p.ingestAll(ctx, docs, active, false)
	if err != nil {
		return 0, 0, err
	}

	if err := p.meta.Set(ctx, storage.MetaKeyEmbeddingModel, p.embedder.ModelName()); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	logger.InfoContext(ctx, "documents appended",
		"documents", len(docs),
		"chunks", chunkCount,
		"skipped", len(skipped),
	)
	return len(docs), chunkCount, nil
}

// Clear empties the index: the alias is swapped to a fresh collection and
// the document catalog is wiped.
func (p *Pipeline) Clear(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	active, err := p.vectors.ResolveAlias(ctx, p.alias)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	fresh := p.stagingCollection(active)
	if err := p.vectors.CreateCollection(ctx, fresh, p.vectorSize); err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	p.indexLock.Lock()
	swapErr := p.vectors.SwapAlias(ctx, p.alias, fresh)
	if swapErr == nil {
		swapErr = p.docs.DeleteAll(ctx)
	}
	p.indexLock.Unlock()

	if swapErr != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, swapErr)
	}

	if active != "" {
		if err := p.vectors.DropCollection(ctx, active); err != nil {
			logger.WarnContext(ctx, "failed to drop previous collection", "collection", active, "error", err)
		}
	}

	logger.InfoContext(ctx, "index cleared")
	return nil
}

// ingestAll chunks, embeds and persists every document into the target
// collection. The embedding slot is acquired once per document, so other
// model kinds can interleave between documents of a large batch.
func (p *Pipeline) ingestAll(ctx context.Context, docs []SourceDocument, collection string, staged bool) (int, error) {
	total := 0
	for _, doc := range docs {
		n, err := p.ingestOne(ctx, doc, collection, staged)
		if err != nil {
			return 0, fmt.Errorf("ingesting %s: %w", doc.SourcePath, err)
		}
		total += n
	}
	return total, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, doc SourceDocument, collection string, staged bool) (int, error) {
	chunks := p.chunker.Split(doc.Text)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	handle, err := p.resources.Acquire(ctx, resource.ModelEmbedding)
	if err != nil {
		return 0, err
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	p.resources.Release(handle)
	if err != nil {
		return 0, err
	}

	record := &storage.Document{
		ID:         uuid.NewString(),
		SourcePath: doc.SourcePath,
		Format:     doc.Format,
		Staged:     staged,
	}
	if err := p.docs.Insert(ctx, record); err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		chunkID := uuid.NewString()
		if err := p.chunks.Insert(ctx, &storage.ChunkRecord{
			ID:          chunkID,
			DocumentID:  record.ID,
			ChunkIndex:  c.Index,
			StartOffset: c.Start,
			EndOffset:   c.End,
			Text:        c.Text,
			Staged:      staged,
		}); err != nil {
			return 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: vectors[i],
			Meta: map[string]any{
				"document_id": record.ID,
				"chunk_index": c.Index,
				"source_path": doc.SourcePath,
			},
		}
	}

	if err := p.vectors.Upsert(ctx, collection, points); err != nil {
		return 0, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	return len(chunks), nil
}

// checkModelIdentity rejects appends embedded with a different model than
// the live index.
func (p *Pipeline) checkModelIdentity(ctx context.Context) error {
	recorded, err := p.meta.Get(ctx, storage.MetaKeyEmbeddingModel)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if recorded != p.embedder.ModelName() {
		return fmt.Errorf("%w: index built with %q, configured model is %q",
			service.ErrModelMismatch, recorded, p.embedder.ModelName())
	}
	return nil
}

// rollbackStaging discards staged catalog rows and drops the staging
// collection after a failed rebuild.
func (p *Pipeline) rollbackStaging(ctx context.Context, staging string) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.docs.DiscardStaged(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to discard staged catalog rows", "error", err)
	}
	if err := p.vectors.DropCollection(ctx, staging); err != nil {
		logger.ErrorContext(ctx, "failed to drop staging collection", "collection", staging, "error", err)
	}
}
