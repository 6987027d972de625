package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clinicassist-ai/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline     handlers.AudioPipeline
	Summarizer   handlers.Summarizer
	Engine       handlers.AnswerEngine
	Ingestor     handlers.Ingestor
	Models       handlers.ModelManager
	Index        handlers.IndexCounter
	Documents    handlers.CatalogCounter
	Chunks       handlers.CatalogCounter
	Alias        string
	DocumentsDir string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	pipelineHandler := handlers.NewPipelineHandler(deps.Pipeline)
	summarizeHandler := handlers.NewSummarizeHandler(deps.Summarizer)
	ragHandler := handlers.NewRAGHandler(deps.Engine, deps.Ingestor, deps.DocumentsDir)
	modelsHandler := handlers.NewModelsHandler(deps.Models)
	healthHandler := handlers.NewHealthHandler(deps.Models, deps.Index, deps.Documents, deps.Chunks, deps.Alias)

	r.Method(http.MethodPost, "/pipeline/audio-to-soap", pipelineHandler)
	r.Method(http.MethodPost, "/reasoning/summarize", summarizeHandler)

	r.Route("/rag", func(r chi.Router) {
		r.Post("/query", ragHandler.Query)
		r.Post("/rebuild-from-pdfs", ragHandler.Rebuild)
		r.Post("/append-documents", ragHandler.Append)
		r.Post("/clear", ragHandler.Clear)
	})

	r.Post("/models/clear-cache", modelsHandler.ClearCache)
	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
