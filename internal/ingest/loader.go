package ingest

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// SourceDocument is the extracted text of one file from the documents
// directory.
type SourceDocument struct {
	SourcePath string // Path relative to the documents directory
	Format     string // "pdf", "md" or "txt"
	Text       string
}

// Loader extracts plain text from the supported document formats.
type Loader struct {
	markdown goldmark.Markdown
}

// NewLoader creates a new document loader.
func NewLoader() *Loader {
	return &Loader{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// formatForExt maps file extensions to document formats. Unsupported
// extensions are skipped during a directory walk.
func formatForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "pdf"
	case ".md", ".markdown":
		return "md"
	case ".txt":
		return "txt"
	default:
		return ""
	}
}

// LoadDir walks dir and extracts text from every supported file. Files that
// fail extraction are reported in skipped rather than aborting the walk, so
// one corrupt PDF cannot sink a whole rebuild.
func (l *Loader) LoadDir(dir string) (docs []SourceDocument, skipped []string, err error) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		format := formatForExt(filepath.Ext(path))
		if format == "" {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		text, err := l.extract(path, format)
		if err != nil {
			skipped = append(skipped, rel)
			return nil
		}
		if strings.TrimSpace(text) == "" {
			skipped = append(skipped, rel)
			return nil
		}

		docs = append(docs, SourceDocument{
			SourcePath: rel,
			Format:     format,
			Text:       text,
		})
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("failed to walk documents directory: %w", walkErr)
	}

	return docs, skipped, nil
}

func (l *Loader) extract(path, format string) (string, error) {
	switch format {
	case "pdf":
		return extractPDF(path)
	case "md":
		return l.extractMarkdown(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// extractPDF pulls the plain text out of a PDF file.
func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// extractMarkdown parses markdown and collects the text content of the AST,
// dropping the markup itself.
func (l *Loader) extractMarkdown(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader := text.NewReader(content)
	doc := l.markdown.Parser().Parse(reader)

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			// Blocks separate with a newline when leaving them.
			if n.Type() == ast.TypeBlock && b.Len() > 0 {
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			segment := node.Segment
			b.Write(segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})

	return b.String(), nil
}
