// Package retrieval provides lexical document retrieval for the
// extractor stage. Documents are chunked at load time and indexed with
// BM25; queries return the top-k scoring chunks tagged with their
// source file and chunk id.
package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// BM25 parameters (Okapi defaults).
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var wordRe = regexp.MustCompile(`\w+`)

// Tokenize lowercases and splits on word boundaries, dropping
// single-character tokens.
func Tokenize(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Index is an immutable BM25 index over a chunk list.
type Index struct {
	chunks    []Chunk
	termFreqs []map[string]int
	docLens   []float64
	avgDocLen float64
	docFreq   map[string]int
}

// NewIndex builds a BM25 index. Safe for concurrent queries after
// construction.
func NewIndex(chunks []Chunk) *Index {
	idx := &Index{
		chunks:    chunks,
		termFreqs: make([]map[string]int, len(chunks)),
		docLens:   make([]float64, len(chunks)),
		docFreq:   make(map[string]int),
	}
	var total float64
	for i, c := range chunks {
		tokens := Tokenize(c.Text)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = float64(len(tokens))
		total += float64(len(tokens))
		for t := range tf {
			idx.docFreq[t]++
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLen = total / float64(len(chunks))
	}
	return idx
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// GetRelevant returns up to k chunks ranked by BM25 score. Chunks with
// positive scores win; if nothing scores positive the top-k by raw
// order of score are returned anyway so the extractor always gets some
// context when an index exists.
func (idx *Index) GetRelevant(query string, k int) []Chunk {
	if k < 1 {
		k = 1
	}
	qTokens := Tokenize(query)
	if len(qTokens) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	scores := make([]float64, len(idx.chunks))
	for _, t := range qTokens {
		df := idx.docFreq[t]
		if df == 0 {
			continue
		}
		idf := math.Log((float64(len(idx.chunks))-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, tf := range idx.termFreqs {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*idx.docLens[i]/idx.avgDocLen
			scores[i] += idf * f * (bm25K1 + 1) / (f + bm25K1*norm)
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	top := make([]int, 0, k)
	for _, i := range order[:min(k, len(order))] {
		if scores[i] > 0 {
			top = append(top, i)
		}
	}
	if len(top) == 0 {
		top = order[:min(k, len(order))]
	}

	out := make([]Chunk, 0, len(top))
	for _, i := range top {
		out = append(out, idx.chunks[i])
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
