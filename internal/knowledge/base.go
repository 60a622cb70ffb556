// Package knowledge manages the pre-computed knowledge base consumed by
// the extractor stage: loading the serialized base, rendering a bounded
// excerpt for prompt injection, and the batch job that builds the base
// from source documents with an LLM.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ExtractedKnowledge is the structured knowledge distilled from one
// source document.
type ExtractedKnowledge struct {
	Source        string   `json:"source"`
	Title         string   `json:"title,omitempty"`
	KeyConcepts   []string `json:"key_concepts,omitempty"`
	MainFindings  []string `json:"main_findings,omitempty"`
	DataPoints    []string `json:"data_points,omitempty"`
	Methodologies []string `json:"methodologies,omitempty"`
	Citations     []string `json:"citations,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// LoadBase reads a knowledge base file. A missing file is not an error;
// it returns nil so the extractor simply runs unaugmented.
func LoadBase(path string) ([]ExtractedKnowledge, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}
	var base []ExtractedKnowledge
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	return base, nil
}

// SaveBase writes the knowledge base as indented JSON.
func SaveBase(path string, base []ExtractedKnowledge) error {
	data, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge base: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}
	return nil
}

// Prompt-injection bounds. Only the first three documents are included
// and every field is length-capped so the excerpt cannot crowd out the
// actual prompt.
const (
	maxPromptDocs     = 3
	maxSummaryChars   = 300
	maxFindingChars   = 150
	maxPromptConcepts = 5
	maxPromptFindings = 3
	maxPromptMethods  = 3
)

// FormatForPrompt renders a bounded excerpt of the knowledge base for
// inclusion in the extractor prompt. Empty base yields "".
func FormatForPrompt(base []ExtractedKnowledge) string {
	if len(base) == 0 {
		return ""
	}
	var docs []string
	for i, doc := range base[:minInt(maxPromptDocs, len(base))] {
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}
		parts := []string{fmt.Sprintf("Document %d: %s", i+1, source)}
		if doc.Title != "" {
			parts = append(parts, "  Title: "+doc.Title)
		}
		if doc.Summary != "" {
			parts = append(parts, "  Summary: "+truncate(doc.Summary, maxSummaryChars))
		}
		if len(doc.KeyConcepts) > 0 {
			parts = append(parts, "  Key Concepts: "+strings.Join(capList(doc.KeyConcepts, maxPromptConcepts), ", "))
		}
		if len(doc.MainFindings) > 0 {
			parts = append(parts, "  Main Findings:")
			for _, f := range capList(doc.MainFindings, maxPromptFindings) {
				parts = append(parts, "    - "+truncate(f, maxFindingChars))
			}
		}
		if len(doc.Methodologies) > 0 {
			parts = append(parts, "  Methodologies: "+strings.Join(capList(doc.Methodologies, maxPromptMethods), ", "))
		}
		docs = append(docs, strings.Join(parts, "\n"))
	}
	return strings.Join(docs, "\n\n")
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
