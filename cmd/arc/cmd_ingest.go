package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arc/internal/knowledge"
)

var (
	ingestArticlesDir string
	ingestOutput      string
	ingestNoCache     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract structured knowledge from source documents",
	Long: `Runs the knowledge-extraction batch job: every document in the
articles directory is chunked, analyzed by the configured provider, and
synthesized into one knowledge record. The result feeds the extractor
stage of later runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}

		articlesDir := ingestArticlesDir
		if articlesDir == "" {
			articlesDir = rt.cfg.Knowledge.ArticlesDir
		}
		output := ingestOutput
		if output == "" {
			output = rt.cfg.Knowledge.BasePath
		}
		cacheDir := rt.cfg.Knowledge.CacheDir
		if ingestNoCache {
			cacheDir = ""
		}

		extractor := knowledge.NewExtractor(rt.client, knowledge.ExtractorConfig{
			MaxChunksPerDoc: rt.cfg.Knowledge.MaxChunksPerDoc,
			CacheDir:        cacheDir,
		}, logger)

		base, err := extractor.BuildBase(cmd.Context(), articlesDir)
		if err != nil {
			return err
		}
		if err := knowledge.SaveBase(output, base); err != nil {
			return err
		}
		fmt.Printf("Extracted knowledge from %d document(s) into %s\n", len(base), output)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestArticlesDir, "articles-dir", "", "Directory containing source documents (default from config)")
	ingestCmd.Flags().StringVar(&ingestOutput, "output", "", "Output knowledge base file (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoCache, "no-cache", false, "Disable the per-document extraction cache")
}
