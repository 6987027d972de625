package handlers

import (
	"context"
	"io"
	"net/http"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/pipeline"
	"clinicassist-ai/internal/stt"
)

// maxAudioUploadBytes bounds the multipart body of an audio upload.
const maxAudioUploadBytes = 25 << 20

// AudioPipeline runs the audio-to-SOAP pipeline. *pipeline.Pipeline
// satisfies this.
type AudioPipeline interface {
	Run(ctx context.Context, clip stt.Clip, mood string) (pipeline.Result, error)
}

// PipelineHandler handles HTTP requests for the audio-to-SOAP pipeline.
type PipelineHandler struct {
	pipeline AudioPipeline
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(p AudioPipeline) *PipelineHandler {
	return &PipelineHandler{pipeline: p}
}

// PipelineResponse is the response payload for audio-to-soap.
type PipelineResponse struct {
	Transcript  stt.Transcript `json:"transcript"`
	SOAPSummary string         `json:"soap_summary"`
	Structured  bool           `json:"structured"`
}

// ServeHTTP handles POST /pipeline/audio-to-soap. The request is multipart
// with a "file" part holding the audio and optional "mood", "encoding" and
// "language" fields.
func (h *PipelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio file")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	audio, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read audio upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read audio file")
		return
	}

	clip := stt.Clip{
		Data:     audio,
		Encoding: r.FormValue("encoding"),
		Language: r.FormValue("language"),
	}

	result, err := h.pipeline.Run(ctx, clip, r.FormValue("mood"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PipelineResponse{
		Transcript:  result.Transcript,
		SOAPSummary: result.Note.Render(),
		Structured:  result.Note.Structured(),
	})
}
