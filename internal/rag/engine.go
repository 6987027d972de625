// Package rag answers questions grounded in the ingested document corpus.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/llm"
	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/service"
	"clinicassist-ai/internal/storage"
	"clinicassist-ai/internal/vectorstore"
)

const (
	defaultK = 8
	maxK     = 20

	// ragTemperature is lower than the summarizer's: grounded answers
	// should stick to the retrieved context.
	ragTemperature = 0.3
	ragMaxTokens   = 512
)

// NoGroundingAnswer is returned verbatim when the index holds no documents.
const NoGroundingAnswer = "I don't have any documents in my knowledge base yet, so I can't answer that. " +
	"Add medical records first and ask again."

const personaPrompt = "You are a helpful medical assistant named Katie. The user is asking about their own " +
	"medical information, so first-person references like \"I\" or \"my\" in the question refer to the owner " +
	"of the records in the context. Answer directly and confidently from the context. Only say you don't have " +
	"enough information if you genuinely cannot find the answer after reading ALL the context carefully."

// Embedder turns texts into vectors. *llm.EmbeddingsClient satisfies this.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// Generator produces text from a chat prompt. *llm.Client satisfies this.
type Generator interface {
	Complete(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Engine retrieves relevant chunks for a question and generates a grounded
// answer.
type Engine struct {
	embedder  Embedder
	generator Generator
	resources *resource.Manager
	vectors   vectorstore.VectorStore
	chunks    storage.ChunkStore
	docs      storage.DocumentStore
	meta      storage.MetaStore

	alias string

	// indexLock is shared with the ingestion pipeline. The read side is
	// held across retrieval and evidence fetch so a concurrent rebuild
	// cannot swap the index out from under one query.
	indexLock *sync.RWMutex
}

// Config carries the engine dependencies.
type Config struct {
	Embedder  Embedder
	Generator Generator
	Resources *resource.Manager
	Vectors   vectorstore.VectorStore
	Chunks    storage.ChunkStore
	Documents storage.DocumentStore
	Meta      storage.MetaStore
	Alias     string
	IndexLock *sync.RWMutex
}

// NewEngine creates a new answering engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		embedder:  cfg.Embedder,
		generator: cfg.Generator,
		resources: cfg.Resources,
		vectors:   cfg.Vectors,
		chunks:    cfg.Chunks,
		docs:      cfg.Documents,
		meta:      cfg.Meta,
		alias:     cfg.Alias,
		indexLock: cfg.IndexLock,
	}
}

// Query answers a question grounded in the indexed documents. k bounds the
// number of retrieved chunks; 0 selects the default and oversized values
// are clamped. An empty index yields the fixed no-grounding answer with no
// evidence rather than an error.
func (e *Engine) Query(ctx context.Context, question string, k int) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("%w: empty question", service.ErrInvalidInput)
	}
	if k <= 0 {
		k = defaultK
	}
	if k > maxK {
		k = maxK
	}

	if err := e.checkModelIdentity(ctx); err != nil {
		return Answer{}, err
	}

	evidence, err := e.retrieve(ctx, question, k)
	if err != nil {
		return Answer{}, err
	}
	if evidence == nil {
		logger.InfoContext(ctx, "query against empty index", "question_length", len(question))
		return Answer{Text: NoGroundingAnswer, Evidence: []Evidence{}}, nil
	}

	text, err := e.generate(ctx, question, evidence)
	if err != nil {
		return Answer{}, err
	}

	logger.InfoContext(ctx, "query answered",
		"question_length", len(question),
		"evidence", len(evidence),
		"k", k,
	)
	return Answer{Text: text, Evidence: evidence}, nil
}

// retrieve embeds the question and fetches the supporting chunks. It
// returns a nil slice when the index is empty and an empty non-nil slice
// when the index has points but none survived the catalog lookup.
func (e *Engine) retrieve(ctx context.Context, question string, k int) ([]Evidence, error) {
	logger := contextutil.LoggerFromContext(ctx)

	e.indexLock.RLock()
	defer e.indexLock.RUnlock()

	count, err := e.vectors.Count(ctx, e.alias)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if count == 0 {
		return nil, nil
	}

	handle, err := e.resources.Acquire(ctx, resource.ModelEmbedding)
	if err != nil {
		return nil, err
	}
	queryVecs, err := e.embedder.EmbedTexts(ctx, []string{question})
	e.resources.Release(handle)
	if err != nil {
		return nil, err
	}

	results, err := e.vectors.Search(ctx, e.alias, queryVecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}

	evidence := make([]Evidence, 0, len(results))
	for _, result := range results {
		chunk, err := e.chunks.GetByID(ctx, result.PointID)
		if err == storage.ErrNotFound {
			// Point without a catalog row: stale index entry, skip it.
			logger.WarnContext(ctx, "search hit without catalog row", "point_id", result.PointID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrRetrieval, err)
		}

		source := chunk.DocumentID
		if doc, err := e.docs.GetByID(ctx, chunk.DocumentID); err == nil {
			source = doc.SourcePath
		}

		evidence = append(evidence, Evidence{
			Source: source,
			Offset: chunk.StartOffset,
			Text:   chunk.Text,
			Score:  result.Score,
		})
	}

	return evidence, nil
}

// generate produces the grounded answer under the generation slot.
func (e *Engine) generate(ctx context.Context, question string, evidence []Evidence) (string, error) {
	contexts := make([]string, len(evidence))
	for i, ev := range evidence {
		contexts[i] = ev.Text
	}

	userPrompt := fmt.Sprintf("Medical Records Context:\n%s\n\nUser Question: %s\n\nYour Answer (be direct and concise):",
		strings.Join(contexts, "\n\n"), question)

	handle, err := e.resources.Acquire(ctx, resource.ModelGeneration)
	if err != nil {
		return "", err
	}
	defer e.resources.Release(handle)

	text, err := e.generator.Complete(ctx, []llm.Message{
		{Role: "system", Content: personaPrompt},
		{Role: "user", Content: userPrompt},
	}, llm.ChatParams{
		MaxTokens:   ragMaxTokens,
		Temperature: ragTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// checkModelIdentity rejects queries when the index was built with a
// different embedding model than the one configured now.
func (e *Engine) checkModelIdentity(ctx context.Context) error {
	recorded, err := e.meta.Get(ctx, storage.MetaKeyEmbeddingModel)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrRetrieval, err)
	}
	if recorded != e.embedder.ModelName() {
		return fmt.Errorf("%w: index built with %q, configured model is %q",
			service.ErrModelMismatch, recorded, e.embedder.ModelName())
	}
	return nil
}
