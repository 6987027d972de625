package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"sync"

	"clinicassist-ai/internal/config"
	"clinicassist-ai/internal/http"
	"clinicassist-ai/internal/ingest"
	"clinicassist-ai/internal/llm"
	"clinicassist-ai/internal/pipeline"
	"clinicassist-ai/internal/rag"
	"clinicassist-ai/internal/reasoning"
	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/storage"
	"clinicassist-ai/internal/stt"
	"clinicassist-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	metaRepo := storage.NewMetaRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Fail fast if the persisted index was built with a different embedding model
	if recorded, err := metaRepo.Get(ctx, storage.MetaKeyEmbeddingModel); err == nil && recorded != embedder.ModelName() {
		log.Fatalf("Index built with embedding model %q but %q is configured; rebuild the index or restore the model",
			recorded, embedder.ModelName())
	}

	// Resource manager: one slot per model kind, at most one heavy model resident
	resources := resource.NewManager(map[resource.ModelKind]resource.Loader{
		resource.ModelSpeech:     llm.NewModelLoader(cfg.WhisperBaseURL, cfg.WhisperModelName),
		resource.ModelGeneration: llm.NewModelLoader(cfg.LLMBaseURL, cfg.LLMModelName),
		resource.ModelEmbedding:  llm.NewModelLoader(cfg.EmbeddingBaseURL, cfg.EmbeddingModelName),
	})

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	transcriber := stt.NewEngine(cfg.WhisperBaseURL, cfg.WhisperModelName, resources)
	summarizer := reasoning.NewSummarizer(llmClient, resources)
	audioPipeline := pipeline.New(transcriber, summarizer)

	// Shared between the answering engine (read side) and ingestion (write
	// side around index swaps)
	indexLock := &sync.RWMutex{}

	ingestor := ingest.NewPipeline(ingest.Config{
		Loader:     ingest.NewLoader(),
		Chunker:    ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		Embedder:   embedder,
		Resources:  resources,
		Vectors:    vectorStore,
		Documents:  documentRepo,
		Chunks:     chunkRepo,
		Meta:       metaRepo,
		Alias:      cfg.QdrantCollection,
		VectorSize: cfg.QdrantVectorSize,
		IndexLock:  indexLock,
	})
	if err := ingestor.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to initialize vector index: %v", err)
	}
	slog.Info("Vector index ready", "alias", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	ragEngine := rag.NewEngine(rag.Config{
		Embedder:  embedder,
		Generator: llmClient,
		Resources: resources,
		Vectors:   vectorStore,
		Chunks:    chunkRepo,
		Documents: documentRepo,
		Meta:      metaRepo,
		Alias:     cfg.QdrantCollection,
		IndexLock: indexLock,
	})
	slog.Info("Answering engine initialized")

	router := http.NewRouter(&http.Deps{
		Pipeline:     audioPipeline,
		Summarizer:   summarizer,
		Engine:       ragEngine,
		Ingestor:     ingestor,
		Models:       resources,
		Index:        vectorStore,
		Documents:    documentRepo,
		Chunks:       chunkRepo,
		Alias:        cfg.QdrantCollection,
		DocumentsDir: cfg.DocumentsDir,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
