package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadBaseMissingFile(t *testing.T) {
	base, err := LoadBase(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Nil(t, base)

	base, err = LoadBase("")
	require.NoError(t, err)
	require.Nil(t, base)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	in := []ExtractedKnowledge{
		{
			Source:       "paper.txt",
			Title:        "A Study",
			KeyConcepts:  []string{"qubits", "decoherence"},
			MainFindings: []string{"error rates drop"},
			Summary:      "Short summary.",
		},
	}
	require.NoError(t, SaveBase(path, in))

	out, err := LoadBase(path)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestLoadBaseCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadBase(path)
	require.Error(t, err)
}

func TestFormatForPromptEmpty(t *testing.T) {
	require.Equal(t, "", FormatForPrompt(nil))
	require.Equal(t, "", FormatForPrompt([]ExtractedKnowledge{}))
}

func TestFormatForPromptBounds(t *testing.T) {
	doc := ExtractedKnowledge{
		Source:        "big.txt",
		Title:         "Big Document",
		Summary:       strings.Repeat("s", 400),
		KeyConcepts:   []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7"},
		MainFindings:  []string{strings.Repeat("f", 200), "f2", "f3", "f4"},
		Methodologies: []string{"m1", "m2", "m3", "m4"},
	}
	base := []ExtractedKnowledge{doc, doc, doc, doc, doc}

	out := FormatForPrompt(base)

	require.Contains(t, out, "Document 3:")
	require.NotContains(t, out, "Document 4:", "only the first three documents are rendered")
	require.Contains(t, out, strings.Repeat("s", 300)+"...", "summary capped at 300 chars")
	require.NotContains(t, out, strings.Repeat("s", 301))
	require.Contains(t, out, "c5")
	require.NotContains(t, out, "c6", "concepts capped at five")
	require.Contains(t, out, strings.Repeat("f", 150)+"...", "findings capped at 150 chars")
	require.NotContains(t, out, "f4", "findings capped at three")
	require.NotContains(t, out, "m4", "methodologies capped at three")
}

func TestFormatForPromptUnknownSource(t *testing.T) {
	out := FormatForPrompt([]ExtractedKnowledge{{Summary: "something"}})
	require.Contains(t, out, "Document 1: Unknown")
}
