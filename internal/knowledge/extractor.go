package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arc/internal/provider"
	"arc/internal/retrieval"
)

const extractionPrompt = `You are an expert research analyst. Analyze the following text excerpt from a research paper or article and extract structured information.

TEXT:
%s

Extract the following information in JSON format:
{
  "title": "Document title if mentioned, otherwise null",
  "key_concepts": ["concept1", "concept2"],
  "main_findings": ["finding1", "finding2"],
  "data_points": ["statistic1", "measurement1"],
  "methodologies": ["method1", "approach1"],
  "citations": ["Author (Year)"],
  "summary": "Brief 2-3 sentence summary of the content"
}

Return ONLY valid JSON, no additional text.`

const synthesisPrompt = `You are synthesizing knowledge extracted from multiple chunks of a document.

Here are the extracted facts from different sections:

%s

Create a comprehensive synthesis that combines and deduplicates information, identifies the main themes, highlights the most important findings, summarizes key data points, and lists unique methodologies.

Return a JSON object with fields: title, key_concepts, main_findings, data_points, methodologies, citations, summary.
Return ONLY valid JSON, no additional text.`

// Extractor runs the knowledge-extraction batch job: per-chunk LLM
// extraction followed by a per-document synthesis pass. Documents are
// processed concurrently; calls within one document stay sequential.
type Extractor struct {
	client    provider.Client
	maxChunks int
	cacheDir  string // per-document result cache; empty disables caching
	workers   int
	logger    *zap.Logger
}

// ExtractorConfig configures the batch job.
type ExtractorConfig struct {
	MaxChunksPerDoc int    // default 5
	CacheDir        string // empty disables the cache
	Workers         int    // concurrent documents, default 2
}

// NewExtractor creates an extraction job around a generation client.
func NewExtractor(client provider.Client, cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if cfg.MaxChunksPerDoc <= 0 {
		cfg.MaxChunksPerDoc = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client:    client,
		maxChunks: cfg.MaxChunksPerDoc,
		cacheDir:  cfg.CacheDir,
		workers:   cfg.Workers,
		logger:    logger,
	}
}

// BuildBase extracts knowledge from every document under articlesDir
// and returns one ExtractedKnowledge per source, sorted by source name.
func (e *Extractor) BuildBase(ctx context.Context, articlesDir string) ([]ExtractedKnowledge, error) {
	chunks, err := retrieval.LoadAndChunkDocs(articlesDir, e.logger)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no documents found in %s", articlesDir)
	}

	bySource := make(map[string][]retrieval.Chunk)
	for _, c := range chunks {
		bySource[c.Source] = append(bySource[c.Source], c)
	}

	var (
		mu   sync.Mutex
		base []ExtractedKnowledge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for source, docChunks := range bySource {
		g.Go(func() error {
			doc, err := e.ExtractDocument(gctx, source, docChunks)
			if err != nil {
				return fmt.Errorf("extraction failed for %s: %w", source, err)
			}
			mu.Lock()
			base = append(base, doc)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(base, func(i, j int) bool { return base[i].Source < base[j].Source })
	return base, nil
}

// ExtractDocument extracts and synthesizes knowledge for one document.
// Cached results are returned without touching the provider.
func (e *Extractor) ExtractDocument(ctx context.Context, source string, chunks []retrieval.Chunk) (ExtractedKnowledge, error) {
	if cached, ok := e.readCache(source); ok {
		e.logger.Info("using cached extraction", zap.String("source", source))
		return cached, nil
	}

	if len(chunks) > e.maxChunks {
		chunks = chunks[:e.maxChunks]
	}

	var partials []ExtractedKnowledge
	for _, c := range chunks {
		gen, err := e.client.Generate(ctx, "", fmt.Sprintf(extractionPrompt, c.Text))
		if err != nil {
			return ExtractedKnowledge{}, fmt.Errorf("chunk %s: %w", c.ChunkID, err)
		}
		var partial ExtractedKnowledge
		if err := parseJSONResponse(gen.Content, &partial); err != nil {
			// A malformed chunk extraction is skipped, not fatal.
			e.logger.Warn("skipping unparseable chunk extraction",
				zap.String("chunk", c.ChunkID), zap.Error(err))
			continue
		}
		partials = append(partials, partial)
	}
	if len(partials) == 0 {
		return ExtractedKnowledge{}, fmt.Errorf("no chunk of %s produced parseable output", source)
	}

	doc, err := e.synthesize(ctx, partials)
	if err != nil {
		return ExtractedKnowledge{}, err
	}
	doc.Source = source
	e.writeCache(source, doc)
	return doc, nil
}

func (e *Extractor) synthesize(ctx context.Context, partials []ExtractedKnowledge) (ExtractedKnowledge, error) {
	if len(partials) == 1 {
		return partials[0], nil
	}
	blob, err := json.MarshalIndent(partials, "", "  ")
	if err != nil {
		return ExtractedKnowledge{}, fmt.Errorf("failed to marshal partials: %w", err)
	}
	gen, err := e.client.Generate(ctx, "", fmt.Sprintf(synthesisPrompt, blob))
	if err != nil {
		return ExtractedKnowledge{}, fmt.Errorf("synthesis call failed: %w", err)
	}
	var doc ExtractedKnowledge
	if err := parseJSONResponse(gen.Content, &doc); err != nil {
		// Fall back to the first partial rather than losing the document.
		e.logger.Warn("synthesis output unparseable, using first chunk", zap.Error(err))
		return partials[0], nil
	}
	return doc, nil
}

// parseJSONResponse unmarshals an LLM reply that may be wrapped in
// markdown code fences or surrounded by prose.
func parseJSONResponse(content string, v any) error {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}

func (e *Extractor) cachePath(source string) string {
	return filepath.Join(e.cacheDir, source+".json")
}

func (e *Extractor) readCache(source string) (ExtractedKnowledge, bool) {
	if e.cacheDir == "" {
		return ExtractedKnowledge{}, false
	}
	data, err := os.ReadFile(e.cachePath(source))
	if err != nil {
		return ExtractedKnowledge{}, false
	}
	var doc ExtractedKnowledge
	if err := json.Unmarshal(data, &doc); err != nil {
		return ExtractedKnowledge{}, false
	}
	return doc, true
}

func (e *Extractor) writeCache(source string, doc ExtractedKnowledge) {
	if e.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(e.cacheDir, 0o755); err != nil {
		e.logger.Warn("failed to create cache dir", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(e.cachePath(source), data, 0o644); err != nil {
		e.logger.Warn("failed to write cache", zap.String("source", source), zap.Error(err))
	}
}
