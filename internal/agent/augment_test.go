package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arc/internal/knowledge"
	"arc/internal/retrieval"
	"arc/internal/schema"
)

// captureInvoker records the prompt it was given.
type captureInvoker struct {
	prompt string
}

func (c *captureInvoker) Invoke(_ context.Context, prompt string) (schema.Message, error) {
	c.prompt = prompt
	return schema.Message{Role: schema.RoleExtractor, Content: "ok", Citations: []string{}}, nil
}

func (c *captureInvoker) Role() schema.Role { return schema.RoleExtractor }

type fixedRetriever struct {
	chunks []retrieval.Chunk
	lastK  int
}

func (r *fixedRetriever) GetRelevant(_ string, k int) []retrieval.Chunk {
	r.lastK = k
	return r.chunks
}

func TestAugmenterPassThroughWithoutSources(t *testing.T) {
	inner := &captureInvoker{}
	aug := NewAugmenter(inner, nil, 4, nil)

	_, err := aug.Invoke(context.Background(), "bare prompt")
	require.NoError(t, err)
	require.Equal(t, "bare prompt", inner.prompt)
}

func TestAugmenterPrependsKnowledgeAndChunks(t *testing.T) {
	inner := &captureInvoker{}
	retriever := &fixedRetriever{chunks: []retrieval.Chunk{
		{Text: "retrieved passage", Source: "doc.txt", ChunkID: "doc.txt__chunk2"},
	}}
	base := []knowledge.ExtractedKnowledge{{Source: "paper.txt", Summary: "kb summary"}}

	aug := NewAugmenter(inner, retriever, 3, base)
	_, err := aug.Invoke(context.Background(), "the topic")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(inner.prompt, "the topic"), "original prompt comes first")
	require.Contains(t, inner.prompt, "--- Extracted Knowledge Base ---")
	require.Contains(t, inner.prompt, "kb summary")
	require.Contains(t, inner.prompt, "--- Retrieved Document Chunks ---")
	require.Contains(t, inner.prompt, "[SOURCE: doc.txt | CHUNK: doc.txt__chunk2]")
	require.Contains(t, inner.prompt, "retrieved passage")
	require.Contains(t, inner.prompt, strings.Repeat("-", 50))

	kbIdx := strings.Index(inner.prompt, "Extracted Knowledge Base")
	chunkIdx := strings.Index(inner.prompt, "Retrieved Document Chunks")
	require.Less(t, kbIdx, chunkIdx, "knowledge base section precedes retrieved chunks")

	require.Equal(t, 3, retriever.lastK)
}

func TestAugmenterEmptyRetrievalResults(t *testing.T) {
	inner := &captureInvoker{}
	aug := NewAugmenter(inner, &fixedRetriever{}, 4, nil)

	_, err := aug.Invoke(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "prompt", inner.prompt, "no hits and no knowledge leaves the prompt untouched")
}

func TestAugmenterClampsTopK(t *testing.T) {
	retriever := &fixedRetriever{}
	aug := NewAugmenter(&captureInvoker{}, retriever, 0, nil)

	_, err := aug.Invoke(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, 1, retriever.lastK)
}

func TestTruncateAtWord(t *testing.T) {
	require.Equal(t, "short", truncateAtWord("short", 10))

	got := truncateAtWord("alpha beta gamma delta", 12)
	require.Equal(t, "alpha beta ...", got)

	got = truncateAtWord(strings.Repeat("x", 20), 10)
	require.Equal(t, strings.Repeat("x", 10)+" ...", got, "no space means hard cut")
}
