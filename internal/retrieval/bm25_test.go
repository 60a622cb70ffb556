package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases", "Quantum Computing", []string{"quantum", "computing"}},
		{"drops single chars", "a I x quantum", []string{"quantum"}},
		{"punctuation splits", "error-rates; qubits!", []string{"error", "rates", "qubits"}},
		{"digits kept", "model gpt4 scored 95", []string{"model", "gpt4", "95"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func chunksFor(texts ...string) []Chunk {
	out := make([]Chunk, len(texts))
	for i, txt := range texts {
		out[i] = Chunk{Text: txt, Source: "doc.txt", ChunkID: "doc.txt__chunk0"}
	}
	return out
}

func TestGetRelevantRanksByTermMatch(t *testing.T) {
	idx := NewIndex(chunksFor(
		"quantum computing uses qubits and superposition for parallel computation",
		"classical algorithms sort integers using comparison operations",
		"quantum error correction protects qubits from decoherence noise",
	))
	require.Equal(t, 3, idx.Len())

	got := idx.GetRelevant("quantum qubits", 2)
	require.Len(t, got, 2)
	for _, c := range got {
		require.Contains(t, c.Text, "quantum")
	}
}

func TestGetRelevantRareTermWins(t *testing.T) {
	idx := NewIndex(chunksFor(
		"the weather today involves rain and wind across the region",
		"the weather forecast mentions superconductors briefly at the end",
	))
	got := idx.GetRelevant("superconductors", 1)
	require.Len(t, got, 1)
	require.Contains(t, got[0].Text, "superconductors")
}

func TestGetRelevantFallbackWhenNothingMatches(t *testing.T) {
	idx := NewIndex(chunksFor(
		"first document about databases",
		"second document about networking",
		"third document about compilers",
	))
	// No query term appears anywhere, but an index exists so the
	// extractor still gets some context.
	got := idx.GetRelevant("zzqq xxyy", 2)
	require.Len(t, got, 2)
}

func TestGetRelevantEdgeCases(t *testing.T) {
	idx := NewIndex(chunksFor("quantum computing basics"))

	require.Nil(t, idx.GetRelevant("", 3), "empty query yields nothing")
	require.Nil(t, idx.GetRelevant("a b c", 3), "all tokens filtered yields nothing")
	require.Len(t, idx.GetRelevant("quantum", 0), 1, "k below one is clamped to one")
	require.Len(t, idx.GetRelevant("quantum", 10), 1, "k above corpus size returns everything")

	empty := NewIndex(nil)
	require.Equal(t, 0, empty.Len())
	require.Nil(t, empty.GetRelevant("quantum", 3))
}
