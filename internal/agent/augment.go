package agent

import (
	"context"
	"fmt"
	"strings"

	"arc/internal/knowledge"
	"arc/internal/retrieval"
	"arc/internal/schema"
)

// Retriever is the slice of the retrieval index the augmenter needs.
type Retriever interface {
	GetRelevant(query string, k int) []retrieval.Chunk
}

// Snippets longer than this are cut at the last word boundary.
const maxSnippetChars = 400

// Augmenter decorates an Invoker by prepending retrieved context to the
// prompt: a bounded knowledge-base excerpt first, then the top-k BM25
// chunks for the query. With neither source available the prompt passes
// through untouched.
type Augmenter struct {
	inner     Invoker
	retriever Retriever
	topK      int
	base      []knowledge.ExtractedKnowledge
}

// NewAugmenter wraps inner with retrieval and knowledge-base context.
// Both sources are optional.
func NewAugmenter(inner Invoker, retriever Retriever, topK int, base []knowledge.ExtractedKnowledge) *Augmenter {
	if topK < 1 {
		topK = 1
	}
	return &Augmenter{inner: inner, retriever: retriever, topK: topK, base: base}
}

// Role returns the wrapped agent's role.
func (g *Augmenter) Role() schema.Role { return g.inner.Role() }

// Invoke augments the prompt and delegates to the wrapped agent.
func (g *Augmenter) Invoke(ctx context.Context, prompt string) (schema.Message, error) {
	var sections []string

	if excerpt := knowledge.FormatForPrompt(g.base); excerpt != "" {
		sections = append(sections, "--- Extracted Knowledge Base ---\n"+excerpt)
	}

	if g.retriever != nil {
		if docs := g.retriever.GetRelevant(prompt, g.topK); len(docs) > 0 {
			tagged := make([]string, 0, len(docs))
			for _, d := range docs {
				tagged = append(tagged, fmt.Sprintf("[SOURCE: %s | CHUNK: %s]\n%s",
					d.Source, d.ChunkID, truncateAtWord(strings.TrimSpace(d.Text), maxSnippetChars)))
			}
			sections = append(sections, "--- Retrieved Document Chunks ---\n"+strings.Join(tagged, "\n\n"))
		}
	}

	if len(sections) == 0 {
		return g.inner.Invoke(ctx, prompt)
	}
	augmented := prompt + "\n\n" + strings.Join(sections, "\n\n") + "\n" + strings.Repeat("-", 50) + "\n"
	return g.inner.Invoke(ctx, augmented)
}

// truncateAtWord cuts s to at most n characters at the last space so no
// word is split mid-way.
func truncateAtWord(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + " ..."
}
