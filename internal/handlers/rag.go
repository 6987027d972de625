package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/rag"
)

// AnswerEngine answers grounded questions. *rag.Engine satisfies this.
type AnswerEngine interface {
	Query(ctx context.Context, question string, k int) (rag.Answer, error)
}

// Ingestor rebuilds and extends the index. *ingest.Pipeline satisfies this.
type Ingestor interface {
	Rebuild(ctx context.Context, dir string) (docCount, chunkCount int, err error)
	Append(ctx context.Context, dir string) (docCount, chunkCount int, err error)
	Clear(ctx context.Context) error
}

// RAGHandler handles HTTP requests for retrieval-augmented answering and
// index management.
type RAGHandler struct {
	engine       AnswerEngine
	ingestor     Ingestor
	documentsDir string
}

// NewRAGHandler creates a new RAGHandler. documentsDir is the default
// ingestion directory when a request names none.
func NewRAGHandler(engine AnswerEngine, ingestor Ingestor, documentsDir string) *RAGHandler {
	return &RAGHandler{
		engine:       engine,
		ingestor:     ingestor,
		documentsDir: documentsDir,
	}
}

// QueryRequest represents the HTTP request payload for a question.
type QueryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// IngestRequest represents the HTTP request payload for rebuild and append.
type IngestRequest struct {
	Directory string `json:"directory,omitempty"`
}

// IngestResponse reports what an ingestion run loaded.
type IngestResponse struct {
	DocumentsLoaded int `json:"documents_loaded"`
	ChunksIngested  int `json:"chunks_ingested"`
}

// StatusResponse is the generic ok payload.
type StatusResponse struct {
	Status string `json:"status"`
}

// Query handles POST /rag/query.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.engine.Query(ctx, req.Question, req.K)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// Rebuild handles POST /rag/rebuild-from-pdfs. The whole index is replaced
// with the contents of the requested directory.
func (h *RAGHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.ingestDir(w, r)
	if !ok {
		return
	}

	docCount, chunkCount, err := h.ingestor.Rebuild(r.Context(), dir)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		DocumentsLoaded: docCount,
		ChunksIngested:  chunkCount,
	})
}

// Append handles POST /rag/append-documents. Documents are added on top of
// the live index.
func (h *RAGHandler) Append(w http.ResponseWriter, r *http.Request) {
	dir, ok := h.ingestDir(w, r)
	if !ok {
		return
	}

	docCount, chunkCount, err := h.ingestor.Append(r.Context(), dir)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		DocumentsLoaded: docCount,
		ChunksIngested:  chunkCount,
	})
}

// Clear handles POST /rag/clear.
func (h *RAGHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ingestor.Clear(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// ingestDir resolves the ingestion directory from the request body, falling
// back to the configured documents directory. An empty body is fine.
func (h *RAGHandler) ingestDir(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}

	dir := req.Directory
	if dir == "" {
		dir = h.documentsDir
	}
	return dir, true
}
