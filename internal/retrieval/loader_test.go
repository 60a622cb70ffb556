package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		got := SplitText("hello world", 1000, 200)
		require.Equal(t, []string{"hello world"}, got)
	})

	t.Run("empty text yields nil", func(t *testing.T) {
		require.Nil(t, SplitText("", 1000, 200))
		require.Nil(t, SplitText("   \n\t ", 1000, 200))
	})

	t.Run("words stay intact", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta ", 100)
		for _, c := range SplitText(text, 100, 20) {
			for _, w := range strings.Fields(c) {
				require.Contains(t, []string{"alpha", "beta", "gamma", "delta"}, w,
					"chunk boundary split a word: %q", w)
			}
		}
	})

	t.Run("overlap repeats trailing words", func(t *testing.T) {
		text := strings.Repeat("word ", 100)
		chunks := SplitText(text, 100, 20)
		require.Greater(t, len(chunks), 1)
		for i := 1; i < len(chunks); i++ {
			require.True(t, strings.HasPrefix(chunks[i], "word"))
		}
	})

	t.Run("no whitespace forces hard cut", func(t *testing.T) {
		text := strings.Repeat("x", 250)
		chunks := SplitText(text, 100, 0)
		require.Len(t, chunks, 3)
		require.Len(t, chunks[0], 100)
	})

	t.Run("covers the whole text", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
		chunks := SplitText(text, 1000, 200)
		joined := strings.Join(chunks, " ")
		require.Contains(t, joined, "lorem ipsum dolor sit amet")
		var total int
		for _, c := range chunks {
			total += len(c)
		}
		require.GreaterOrEqual(t, total, len(strings.TrimSpace(text)),
			"chunks with overlap must cover at least the full text")
	})
}

func TestLoadAndChunkDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta document content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("alpha document content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.pdf"), []byte("binary"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	chunks, err := LoadAndChunkDocs(dir, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "only .txt and .md at the top level are loaded")

	// Deterministic ordering by file name.
	require.Equal(t, "a.md", chunks[0].Source)
	require.Equal(t, "a.md__chunk0", chunks[0].ChunkID)
	require.Equal(t, "b.txt", chunks[1].Source)
	require.Equal(t, "b.txt__chunk0", chunks[1].ChunkID)
}

func TestLoadAndChunkDocsMissingDir(t *testing.T) {
	chunks, err := LoadAndChunkDocs(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	require.Nil(t, chunks)
}

func TestLoadAndChunkDocsChunkIDsIncrement(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("sentence with several words in it ", 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "long.txt"), []byte(long), 0o644))

	chunks, err := LoadAndChunkDocs(dir, nil)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		require.Equal(t, "long.txt", c.Source)
		require.Equal(t, fmt.Sprintf("long.txt__chunk%d", i), c.ChunkID)
	}
}
