package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinicassist-ai/internal/rag"
	"clinicassist-ai/internal/service"
)

type fakeEngine struct {
	answer      rag.Answer
	err         error
	gotQuestion string
	gotK        int
}

func (f *fakeEngine) Query(ctx context.Context, question string, k int) (rag.Answer, error) {
	f.gotQuestion = question
	f.gotK = k
	return f.answer, f.err
}

type fakeIngestor struct {
	docCount   int
	chunkCount int
	err        error
	gotDir     string
	cleared    bool
}

func (f *fakeIngestor) Rebuild(ctx context.Context, dir string) (int, int, error) {
	f.gotDir = dir
	return f.docCount, f.chunkCount, f.err
}

func (f *fakeIngestor) Append(ctx context.Context, dir string) (int, int, error) {
	f.gotDir = dir
	return f.docCount, f.chunkCount, f.err
}

func (f *fakeIngestor) Clear(ctx context.Context) error {
	f.cleared = true
	return f.err
}

func TestRAGHandler_Query(t *testing.T) {
	engine := &fakeEngine{answer: rag.Answer{
		Text: "You are allergic to penicillin.",
		Evidence: []rag.Evidence{
			{Source: "records/allergies.pdf", Offset: 120, Text: "allergy: penicillin", Score: 0.95},
		},
	}}
	h := NewRAGHandler(engine, &fakeIngestor{}, "/docs")

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "what am I allergic to?", "k": 5}`))
	rec := httptest.NewRecorder()
	h.Query(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp rag.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Text != engine.answer.Text {
		t.Errorf("answer = %q", resp.Text)
	}
	if len(resp.Evidence) != 1 || resp.Evidence[0].Source != "records/allergies.pdf" {
		t.Errorf("evidence = %+v", resp.Evidence)
	}
	if engine.gotK != 5 {
		t.Errorf("k = %d, want 5", engine.gotK)
	}
}

func TestRAGHandler_QueryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty question", service.ErrInvalidInput, http.StatusBadRequest},
		{"model mismatch", service.ErrModelMismatch, http.StatusInternalServerError},
		{"vector store down", service.ErrRetrieval, http.StatusServiceUnavailable},
		{"generation failed", service.ErrGeneration, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRAGHandler(&fakeEngine{err: tt.err}, &fakeIngestor{}, "/docs")

			req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"question": "q"}`))
			rec := httptest.NewRecorder()
			h.Query(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRAGHandler_RebuildDefaultsDirectory(t *testing.T) {
	ingestor := &fakeIngestor{docCount: 3, chunkCount: 40}
	h := NewRAGHandler(&fakeEngine{}, ingestor, "/var/lib/clinic/docs")

	// Empty body falls back to the configured documents directory.
	req := httptest.NewRequest(http.MethodPost, "/rag/rebuild-from-pdfs", nil)
	rec := httptest.NewRecorder()
	h.Rebuild(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ingestor.gotDir != "/var/lib/clinic/docs" {
		t.Errorf("dir = %q, want configured default", ingestor.gotDir)
	}

	var resp IngestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.DocumentsLoaded != 3 || resp.ChunksIngested != 40 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRAGHandler_AppendExplicitDirectory(t *testing.T) {
	ingestor := &fakeIngestor{docCount: 1, chunkCount: 4}
	h := NewRAGHandler(&fakeEngine{}, ingestor, "/docs")

	req := httptest.NewRequest(http.MethodPost, "/rag/append-documents", strings.NewReader(`{"directory": "/tmp/new-docs"}`))
	rec := httptest.NewRecorder()
	h.Append(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ingestor.gotDir != "/tmp/new-docs" {
		t.Errorf("dir = %q, want /tmp/new-docs", ingestor.gotDir)
	}
}

func TestRAGHandler_Clear(t *testing.T) {
	ingestor := &fakeIngestor{}
	h := NewRAGHandler(&fakeEngine{}, ingestor, "/docs")

	req := httptest.NewRequest(http.MethodPost, "/rag/clear", nil)
	rec := httptest.NewRecorder()
	h.Clear(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !ingestor.cleared {
		t.Error("Clear() not invoked")
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}
