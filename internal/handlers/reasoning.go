package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/reasoning"
)

// Summarizer generates SOAP notes from transcripts. *reasoning.Summarizer
// satisfies this.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, mood string, maxTokens int) (reasoning.SOAPNote, error)
}

// SummarizeHandler handles HTTP requests for transcript summarization.
type SummarizeHandler struct {
	summarizer Summarizer
}

// NewSummarizeHandler creates a new SummarizeHandler.
func NewSummarizeHandler(s Summarizer) *SummarizeHandler {
	return &SummarizeHandler{summarizer: s}
}

// SummarizeRequest represents the HTTP request payload for summarization.
type SummarizeRequest struct {
	Transcript string `json:"transcript"`
	Mood       string `json:"mood,omitempty"`
	MaxTokens  int    `json:"max_tokens,omitempty"`
}

// SummarizeResponse represents the HTTP response payload.
type SummarizeResponse struct {
	SOAPSummary string `json:"soap_summary"`
	Structured  bool   `json:"structured"`
}

// ServeHTTP handles POST /reasoning/summarize.
func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	note, err := h.summarizer.Summarize(ctx, req.Transcript, req.Mood, req.MaxTokens)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SummarizeResponse{
		SOAPSummary: note.Render(),
		Structured:  note.Structured(),
	})
}
