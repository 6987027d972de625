package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain text notes")
	writeFile(t, dir, "guides/protocol.md", "# Protocol\n\nWash hands before procedures.")
	writeFile(t, dir, "image.png", "not a document")

	docs, skipped, err := NewLoader().LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	if len(docs) != 2 {
		t.Fatalf("len(docs) = %d, want 2", len(docs))
	}

	byPath := make(map[string]SourceDocument, len(docs))
	for _, d := range docs {
		byPath[d.SourcePath] = d
	}

	txt, ok := byPath["notes.txt"]
	if !ok {
		t.Fatal("notes.txt not loaded")
	}
	if txt.Format != "txt" || txt.Text != "plain text notes" {
		t.Errorf("notes.txt = %+v", txt)
	}

	md, ok := byPath[filepath.Join("guides", "protocol.md")]
	if !ok {
		t.Fatal("guides/protocol.md not loaded")
	}
	if md.Format != "md" {
		t.Errorf("Format = %q, want md", md.Format)
	}
	if !strings.Contains(md.Text, "Protocol") || !strings.Contains(md.Text, "Wash hands before procedures.") {
		t.Errorf("markdown text = %q, want heading and body text", md.Text)
	}
	if strings.Contains(md.Text, "#") {
		t.Errorf("markdown text retains markup: %q", md.Text)
	}
}

func TestLoader_LoadDirSkipsCorruptPDF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "this is not a PDF")
	writeFile(t, dir, "ok.txt", "still ingested")

	docs, skipped, err := NewLoader().LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "broken.pdf" {
		t.Errorf("skipped = %v, want [broken.pdf]", skipped)
	}
	if len(docs) != 1 || docs[0].SourcePath != "ok.txt" {
		t.Errorf("docs = %v, want just ok.txt", docs)
	}
}

func TestLoader_LoadDirSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "   \n")

	docs, skipped, err := NewLoader().LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("docs = %v, want none", docs)
	}
	if len(skipped) != 1 {
		t.Errorf("skipped = %v, want [empty.txt]", skipped)
	}
}

func TestFormatForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".pdf", "pdf"},
		{".PDF", "pdf"},
		{".md", "md"},
		{".markdown", "md"},
		{".txt", "txt"},
		{".docx", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := formatForExt(tt.ext); got != tt.want {
			t.Errorf("formatForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
