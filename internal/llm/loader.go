package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clinicassist-ai/internal/service"
)

// ModelLoader loads and unloads one named model on a llama.cpp-style server
// via the /models/load and /models/unload endpoints. One loader instance is
// bound to one (server, model) pair.
type ModelLoader struct {
	baseURL string
	model   string
	client  *http.Client

	// pollInterval and maxPollAttempts control how long Load waits for the
	// server to report the model in cache. /models/load returns success
	// immediately; the actual load happens asynchronously and may fail.
	pollInterval    time.Duration
	maxPollAttempts int
}

// NewModelLoader creates a loader for the given model on the given server.
func NewModelLoader(baseURL, model string) *ModelLoader {
	return &ModelLoader{
		baseURL:         baseURL,
		model:           model,
		client:          http.DefaultClient,
		pollInterval:    time.Second,
		maxPollAttempts: 30,
	}
}

// LoadModelRequest represents the request payload for loading a model.
type LoadModelRequest struct {
	Model string `json:"model"`
}

// LoadModelResponse represents the response from the load model endpoint.
type LoadModelResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ModelStatus represents the status of a model from the /models endpoint.
type ModelStatus struct {
	ID      string `json:"id"`
	InCache bool   `json:"in_cache"`
	Status  struct {
		Value    string `json:"value"`
		ExitCode *int   `json:"exit_code,omitempty"`
		Failed   *bool  `json:"failed,omitempty"`
	} `json:"status"`
}

// ModelsResponse represents the response from the /models endpoint.
type ModelsResponse struct {
	Data []ModelStatus `json:"data"`
}

// Loaded reports whether the model is currently in the server's cache.
func (ml *ModelLoader) Loaded(ctx context.Context) (bool, error) {
	resp, err := ml.fetchModels(ctx)
	if err != nil {
		return false, err
	}
	for _, model := range resp.Data {
		if model.ID == ml.model {
			return model.InCache, nil
		}
	}
	return false, nil
}

// Load loads the model into accelerator memory and waits until the server
// reports it resident. A load failure (missing weights, out of memory) is
// surfaced as service.ErrResourceExhausted.
func (ml *ModelLoader) Load(ctx context.Context) error {
	// Skip the round trip if the model is already resident.
	loaded, err := ml.Loaded(ctx)
	if err == nil && loaded {
		return nil
	}

	url := fmt.Sprintf("%s/models/load", ml.baseURL)

	body, err := json.Marshal(LoadModelRequest{Model: ml.model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ml.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrResourceExhausted, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: bad status %d: %s", service.ErrResourceExhausted, resp.StatusCode, string(raw))
	}

	var loadResp LoadModelResponse
	if err := json.NewDecoder(resp.Body).Decode(&loadResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !loadResp.Success {
		return fmt.Errorf("%w: %s", service.ErrResourceExhausted, loadResp.Error)
	}

	// Poll until the model is in cache or the load is reported failed.
	for i := 0; i < ml.maxPollAttempts; i++ {
		models, err := ml.fetchModels(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(ml.pollInterval)
			continue
		}

		for _, model := range models.Data {
			if model.ID != ml.model {
				continue
			}
			if model.InCache {
				return nil
			}
			if model.Status.Failed != nil && *model.Status.Failed {
				exitCode := 0
				if model.Status.ExitCode != nil {
					exitCode = *model.Status.ExitCode
				}
				return fmt.Errorf("%w: model load failed with exit code %d", service.ErrResourceExhausted, exitCode)
			}
			break // still loading
		}

		time.Sleep(ml.pollInterval)
	}

	return fmt.Errorf("%w: model did not load within timeout period", service.ErrResourceExhausted)
}

// Unload evicts the model from accelerator memory.
func (ml *ModelLoader) Unload(ctx context.Context) error {
	url := fmt.Sprintf("%s/models/unload", ml.baseURL)

	body, err := json.Marshal(LoadModelRequest{Model: ml.model})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ml.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	return nil
}

// fetchModels retrieves the model list from the /models endpoint.
func (ml *ModelLoader) fetchModels(ctx context.Context) (*ModelsResponse, error) {
	url := fmt.Sprintf("%s/models", ml.baseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ml.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check model status: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var modelsResp ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return &modelsResp, nil
}
