package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Chunk is one indexed slice of a source document.
type Chunk struct {
	Text    string
	Source  string // base file name
	ChunkID string // "<source>__chunk<n>"
}

// Chunking defaults: roughly 1000 characters per chunk with 200
// characters of overlap, split on word boundaries.
const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// LoadAndChunkDocs loads plain-text and markdown documents from dir and
// splits them into overlapping chunks. A missing or empty directory is
// not an error; it yields an empty slice and retrieval is simply
// skipped upstream.
func LoadAndChunkDocs(dir string, logger *zap.Logger) ([]Chunk, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read documents dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var chunks []Chunk
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Error("failed to load document", zap.String("file", name), zap.Error(err))
			continue
		}
		parts := SplitText(string(data), defaultChunkSize, defaultChunkOverlap)
		logger.Info("loaded document",
			zap.String("file", name), zap.Int("chunks", len(parts)))
		for i, p := range parts {
			chunks = append(chunks, Chunk{
				Text:    p,
				Source:  name,
				ChunkID: fmt.Sprintf("%s__chunk%d", name, i),
			})
		}
	}
	return chunks, nil
}

// SplitText splits text into chunks of at most size characters with the
// given overlap, preferring to break at whitespace.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var out []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			out = append(out, strings.TrimSpace(text[start:]))
			break
		}
		// Back up to the last whitespace so words stay intact.
		cut := end
		for cut > start && !isSpace(text[cut]) {
			cut--
		}
		if cut == start {
			cut = end
		}
		out = append(out, strings.TrimSpace(text[start:cut]))
		next := cut - overlap
		for next > start && !isSpace(text[next]) {
			next--
		}
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop empties produced by runs of whitespace.
	filtered := out[:0]
	for _, c := range out {
		if c != "" {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
