package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/resource"
)

// ModelManager exposes the resource manager operations the handlers need.
// *resource.Manager satisfies this.
type ModelManager interface {
	Clear(ctx context.Context, kind resource.ModelKind) error
	ClearAll(ctx context.Context) error
	Health() map[resource.ModelKind]resource.SlotState
}

// ModelsHandler handles HTTP requests for model cache management.
type ModelsHandler struct {
	manager ModelManager
}

// NewModelsHandler creates a new ModelsHandler.
func NewModelsHandler(manager ModelManager) *ModelsHandler {
	return &ModelsHandler{manager: manager}
}

// ClearCacheRequest represents the HTTP request payload for clear-cache.
// An empty body (or empty model) clears every idle model.
type ClearCacheRequest struct {
	Model string `json:"model,omitempty"`
}

// ClearCache handles POST /models/clear-cache.
func (h *ModelsHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ClearCacheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	if req.Model == "" {
		err = h.manager.ClearAll(ctx)
	} else {
		err = h.manager.Clear(ctx, resource.ModelKind(req.Model))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// IndexCounter reports the live index size. The Qdrant store satisfies
// this through the collection alias.
type IndexCounter interface {
	Count(ctx context.Context, collection string) (int, error)
}

// CatalogCounter reports live row counts from the document catalog. The
// document and chunk repos satisfy this.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	manager ModelManager
	index   IndexCounter
	docs    CatalogCounter
	chunks  CatalogCounter
	alias   string
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(manager ModelManager, index IndexCounter, docs, chunks CatalogCounter, alias string) *HealthHandler {
	return &HealthHandler{
		manager: manager,
		index:   index,
		docs:    docs,
		chunks:  chunks,
		alias:   alias,
		timeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Models      map[string]string `json:"models"`
	IndexPoints int               `json:"index_points"`
	Documents   int               `json:"documents"`
	Chunks      int               `json:"chunks"`
	Issues      []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /health. The endpoint stays cheap: it reports slot
// states from memory and one point count from the vector store, and never
// touches the models themselves.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Models:    make(map[string]string),
	}

	for kind, state := range h.manager.Health() {
		resp.Models[string(kind)] = string(state)
	}

	count, err := h.index.Count(ctx, h.alias)
	if err != nil {
		resp.Status = "degraded"
		resp.Issues = append(resp.Issues, "vector store unreachable: "+err.Error())
	} else {
		resp.IndexPoints = count
	}

	if docs, err := h.docs.Count(ctx); err != nil {
		resp.Status = "degraded"
		resp.Issues = append(resp.Issues, "document catalog unreachable: "+err.Error())
	} else {
		resp.Documents = docs
	}
	if chunks, err := h.chunks.Count(ctx); err != nil {
		resp.Status = "degraded"
		resp.Issues = append(resp.Issues, "chunk catalog unreachable: "+err.Error())
	} else {
		resp.Chunks = chunks
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
