package vectorstore

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

// TestNewQdrantStore_PortDerivation tests the host/port derivation logic
// without creating a real client.
func TestNewQdrantStore_PortDerivation(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantHost string
		wantPort int
	}{
		{
			name:     "default port",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:     "no port specified",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334, // Default
		},
		{
			name:     "no hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost", // Defaults to localhost
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsedURL, err := url.Parse(tt.urlStr)
			if err != nil {
				t.Fatalf("Failed to parse URL: %v", err)
			}

			host := parsedURL.Hostname()
			if host == "" {
				host = "localhost"
			}

			port := 6334
			if parsedURL.Port() != "" {
				httpPort, err := strconv.Atoi(parsedURL.Port())
				if err == nil {
					port = httpPort + 1
				}
			}

			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

// TestNewQdrantStore_InvalidURL tests that invalid URLs return errors.
func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	// Upsert returns early for empty input, before touching the client.
	store := &QdrantStore{}

	if err := store.Upsert(context.Background(), "test-collection", []Point{}); err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	// Validation fails before the client is used.
	store := &QdrantStore{}

	ctx := context.Background()
	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "test-collection", []float32{1.0, 2.0}, -1); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	payload := map[string]*qdrant.Value{
		"document_id": {Kind: &qdrant.Value_StringValue{StringValue: "doc-1"}},
		"chunk_index": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
		"score":       {Kind: &qdrant.Value_DoubleValue{DoubleValue: 0.91}},
		"staged":      {Kind: &qdrant.Value_BoolValue{BoolValue: false}},
		"nil_value":   nil,
	}

	result := convertPayloadToMap(payload)

	if result["document_id"] != "doc-1" {
		t.Errorf("document_id = %v, want doc-1", result["document_id"])
	}
	if result["chunk_index"] != int64(3) {
		t.Errorf("chunk_index = %v, want 3", result["chunk_index"])
	}
	if result["score"] != 0.91 {
		t.Errorf("score = %v, want 0.91", result["score"])
	}
	if result["staged"] != false {
		t.Errorf("staged = %v, want false", result["staged"])
	}
	if _, ok := result["nil_value"]; ok {
		t.Error("nil payload values should be skipped")
	}
}

func TestConvertValue_Nested(t *testing.T) {
	v := &qdrant.Value{Kind: &qdrant.Value_ListValue{
		ListValue: &qdrant.ListValue{Values: []*qdrant.Value{
			{Kind: &qdrant.Value_StringValue{StringValue: "a"}},
			{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{
				Fields: map[string]*qdrant.Value{
					"k": {Kind: &qdrant.Value_IntegerValue{IntegerValue: 1}},
				},
			}}},
		}},
	}}

	got, ok := convertValue(v).([]any)
	if !ok {
		t.Fatalf("convertValue() = %T, want []any", convertValue(v))
	}
	if got[0] != "a" {
		t.Errorf("got[0] = %v, want a", got[0])
	}
	nested, ok := got[1].(map[string]any)
	if !ok {
		t.Fatalf("got[1] = %T, want map[string]any", got[1])
	}
	if nested["k"] != int64(1) {
		t.Errorf("nested[k] = %v, want 1", nested["k"])
	}
}
