package config

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QDRANT_VECTOR_SIZE", "384")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.QdrantVectorSize != 384 {
		t.Errorf("QdrantVectorSize = %d, want 384", cfg.QdrantVectorSize)
	}
	if cfg.QdrantCollection != "records" {
		t.Errorf("QdrantCollection = %q, want %q", cfg.QdrantCollection, "records")
	}
	if cfg.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want 800", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 100 {
		t.Errorf("ChunkOverlap = %d, want 100", cfg.ChunkOverlap)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want %q", cfg.APIPort, "9000")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadMissingVectorSize(t *testing.T) {
	t.Setenv("QDRANT_VECTOR_SIZE", "")
	if _, err := Load(); err == nil {
		t.Error("Load() should fail when QDRANT_VECTOR_SIZE is missing")
	}
}

func TestLoadInvalidVectorSize(t *testing.T) {
	tests := []string{"abc", "0", "-5"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			t.Setenv("QDRANT_VECTOR_SIZE", v)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail for QDRANT_VECTOR_SIZE=%q", v)
			}
		})
	}
}

func TestLoadOverlapMustBeSmallerThanChunkSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject CHUNK_OVERLAP >= CHUNK_SIZE")
	}
}

func TestLoadLogLevels(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("LOG_LEVEL", tt.in)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, tt.want)
			}
		})
	}

	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "loud")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject unknown LOG_LEVEL")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_MODEL", "test-model")
	t.Setenv("EMBEDDING_MODEL_NAME", "test-embedder")
	t.Setenv("WHISPER_MODEL", "whisper-large-v3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMModelName != "test-model" {
		t.Errorf("LLMModelName = %q, want %q", cfg.LLMModelName, "test-model")
	}
	if cfg.EmbeddingModelName != "test-embedder" {
		t.Errorf("EmbeddingModelName = %q, want %q", cfg.EmbeddingModelName, "test-embedder")
	}
	if cfg.WhisperModelName != "whisper-large-v3" {
		t.Errorf("WhisperModelName = %q, want %q", cfg.WhisperModelName, "whisper-large-v3")
	}
}
