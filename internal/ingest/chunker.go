package ingest

import "strings"

// Chunk is one window of document text. Offsets are rune positions within
// the source document.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Chunker splits document text into fixed-size overlapping windows.
type Chunker struct {
	size    int // Window size in runes
	overlap int // Runes shared between consecutive windows
}

// NewChunker creates a chunker. overlap must be smaller than size; the
// config layer enforces that before we get here.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split windows the text into chunks. Whitespace-only input yields no
// chunks. The final window may be shorter than the configured size; it is
// never dropped, so trailing text always lands in some chunk.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}
