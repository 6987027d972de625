package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"clinicassist-ai/internal/contextutil"
	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/service"
)

// Transcriber converts an audio clip into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (Transcript, error)
}

// Engine transcribes audio via a whisper.cpp-style inference server,
// acquiring the speech model slot around each call.
type Engine struct {
	baseURL   string
	modelName string
	resources *resource.Manager
	client    *http.Client
}

// NewEngine creates a transcription engine backed by the given server.
func NewEngine(baseURL, modelName string, resources *resource.Manager) *Engine {
	return &Engine{
		baseURL:   baseURL,
		modelName: modelName,
		resources: resources,
		client:    http.DefaultClient,
	}
}

// inferenceResponse represents the whisper server /inference response.
type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Error    string  `json:"error,omitempty"`
}

// Transcribe validates the clip, acquires the speech model and runs
// inference. The model slot is released on every exit path.
func (e *Engine) Transcribe(ctx context.Context, clip Clip) (Transcript, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(clip.Data) == 0 {
		return Transcript{}, fmt.Errorf("%w: empty audio", service.ErrInvalidInput)
	}
	format, err := detectFormat(clip)
	if err != nil {
		return Transcript{}, err
	}
	language := clip.Language
	if language == "" {
		language = "en"
	}

	handle, err := e.resources.Acquire(ctx, resource.ModelSpeech)
	if err != nil {
		return Transcript{}, err
	}
	defer e.resources.Release(handle)

	text, info, err := e.infer(ctx, clip.Data, format, language)
	if err != nil {
		logger.ErrorContext(ctx, "transcription failed", "error", err, "bytes", len(clip.Data))
		return Transcript{}, err
	}

	t := Transcript{
		Text:            text,
		Language:        info.Language,
		DurationSeconds: info.Duration,
		Engine:          e.modelName,
	}
	if t.Language == "" {
		t.Language = language
	}

	logger.InfoContext(ctx, "audio transcribed",
		"bytes", len(clip.Data),
		"format", format,
		"language", t.Language,
		"text_length", len(t.Text),
	)
	return t, nil
}

// infer posts the audio to the server's /inference endpoint as a multipart
// upload and returns the transcribed text.
func (e *Engine) infer(ctx context.Context, audio []byte, format, language string) (string, inferenceResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to build request: %w", err)
	}

	url := fmt.Sprintf("%s/inference", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return "", inferenceResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", inferenceResponse{}, fmt.Errorf("%w: %v", service.ErrTranscription, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", inferenceResponse{}, fmt.Errorf("%w: bad status %d: %s", service.ErrTranscription, resp.StatusCode, string(raw))
	}

	var infResp inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&infResp); err != nil {
		return "", inferenceResponse{}, fmt.Errorf("%w: failed to decode response: %v", service.ErrTranscription, err)
	}
	if infResp.Error != "" {
		return "", inferenceResponse{}, fmt.Errorf("%w: %s", service.ErrTranscription, infResp.Error)
	}

	return infResp.Text, infResp, nil
}
