package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinicassist-ai/internal/resource"
	"clinicassist-ai/internal/service"
)

type fakeManager struct {
	clearErr    error
	clearAllErr error
	cleared     []resource.ModelKind
	clearedAll  bool
	states      map[resource.ModelKind]resource.SlotState
}

func (f *fakeManager) Clear(ctx context.Context, kind resource.ModelKind) error {
	f.cleared = append(f.cleared, kind)
	return f.clearErr
}

func (f *fakeManager) ClearAll(ctx context.Context) error {
	f.clearedAll = true
	return f.clearAllErr
}

func (f *fakeManager) Health() map[resource.ModelKind]resource.SlotState {
	return f.states
}

type fakeCounter struct {
	count int
	err   error
}

func (f *fakeCounter) Count(ctx context.Context, collection string) (int, error) {
	return f.count, f.err
}

type fakeCatalogCounter struct {
	count int
	err   error
}

func (f *fakeCatalogCounter) Count(ctx context.Context) (int, error) {
	return f.count, f.err
}

func TestModelsHandler_ClearCacheAll(t *testing.T) {
	manager := &fakeManager{}
	h := NewModelsHandler(manager)

	req := httptest.NewRequest(http.MethodPost, "/models/clear-cache", nil)
	rec := httptest.NewRecorder()
	h.ClearCache(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !manager.clearedAll {
		t.Error("ClearAll() not invoked for empty body")
	}
}

func TestModelsHandler_ClearCacheSingle(t *testing.T) {
	manager := &fakeManager{}
	h := NewModelsHandler(manager)

	req := httptest.NewRequest(http.MethodPost, "/models/clear-cache", strings.NewReader(`{"model": "generation"}`))
	rec := httptest.NewRecorder()
	h.ClearCache(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(manager.cleared) != 1 || manager.cleared[0] != resource.ModelGeneration {
		t.Errorf("cleared = %v, want [generation]", manager.cleared)
	}
}

func TestModelsHandler_ClearCacheBusy(t *testing.T) {
	manager := &fakeManager{clearAllErr: service.ErrSlotBusy}
	h := NewModelsHandler(manager)

	req := httptest.NewRequest(http.MethodPost, "/models/clear-cache", nil)
	rec := httptest.NewRecorder()
	h.ClearCache(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	manager := &fakeManager{states: map[resource.ModelKind]resource.SlotState{
		resource.ModelSpeech:     resource.StateUnloaded,
		resource.ModelGeneration: resource.StateReady,
		resource.ModelEmbedding:  resource.StateBusy,
	}}
	h := NewHealthHandler(manager, &fakeCounter{count: 128},
		&fakeCatalogCounter{count: 3}, &fakeCatalogCounter{count: 42}, "clinic-docs")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q", resp.Status)
	}
	if resp.IndexPoints != 128 {
		t.Errorf("IndexPoints = %d, want 128", resp.IndexPoints)
	}
	if resp.Documents != 3 || resp.Chunks != 42 {
		t.Errorf("catalog counts = (%d, %d), want (3, 42)", resp.Documents, resp.Chunks)
	}
	if resp.Models["generation"] != "ready" || resp.Models["embedding"] != "busy" {
		t.Errorf("Models = %v", resp.Models)
	}
}

func TestHealthHandler_VectorStoreDown(t *testing.T) {
	manager := &fakeManager{states: map[resource.ModelKind]resource.SlotState{}}
	h := NewHealthHandler(manager, &fakeCounter{err: errors.New("connection refused")},
		&fakeCatalogCounter{}, &fakeCatalogCounter{}, "clinic-docs")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
	if len(resp.Issues) == 0 {
		t.Error("Issues should name the failing dependency")
	}
}
