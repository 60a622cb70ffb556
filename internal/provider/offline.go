package provider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// OfflineClient is a deterministic, zero-dependency Client used when no
// real provider is configured and by tests. The same instruction/prompt
// pair always yields byte-identical output, which is what makes
// pipeline composition testable without a network.
type OfflineClient struct{}

// NewOfflineClient returns the deterministic placeholder client.
func NewOfflineClient() *OfflineClient { return &OfflineClient{} }

// Generate synthesizes a placeholder completion from the input hash.
func (c *OfflineClient) Generate(_ context.Context, instructions, prompt string) (Generation, error) {
	return OfflineGeneration(instructions, prompt), nil
}

// OfflineGeneration is the deterministic synthesis shared by the
// offline client and the permissive agent fallback. Confidence is the
// first four hash bytes scaled into [0.55, 0.95], rounded to three
// decimals.
func OfflineGeneration(instructions, prompt string) Generation {
	sum := sha256.Sum256([]byte(instructions + "\n" + prompt))
	h := hex.EncodeToString(sum[:])

	raw := float64(binary.BigEndian.Uint32(sum[:4])) / float64(math.MaxUint32)
	confidence := math.Round((0.55+0.4*raw)*1000) / 1000

	headline := strings.TrimSpace(strings.SplitN(instructions, "\n", 2)[0])
	content := fmt.Sprintf(
		"%s\nPrompt: %s\nResponse: Based on the provided context, here are the key points and next steps.",
		headline, prompt,
	)
	return Generation{
		Content:    content,
		Citations:  []string{"mock://ref/" + h[0:8], "mock://ref/" + h[8:16]},
		Confidence: confidence,
	}
}
