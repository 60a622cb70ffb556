// Command arc is the Agentic Research Collaborator: a multi-round,
// role-specialized research pipeline with persisted, replayable traces.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arc/internal/agent"
	"arc/internal/config"
	"arc/internal/knowledge"
	"arc/internal/orchestrator"
	"arc/internal/provider"
	"arc/internal/retrieval"
	"arc/internal/server"
	"arc/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arc",
	Short: "arc - Agentic Research Collaborator",
	Long: `arc coordinates five role-specialized agents (extractor, challenger,
integrator, validator, planner) into a multi-round research pipeline
with optional clarification debates at each handoff, and persists the
resulting conversation trace for inspection and visualization.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real deployments set the environment directly.
		_ = godotenv.Load()

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runtime bundles everything the subcommands need.
type runtime struct {
	cfg    config.Config
	orch   *orchestrator.Orchestrator
	store  *store.Store
	client provider.Client
	info   server.Info
}

// buildRuntime loads the configuration and constructs the provider
// client, store, and orchestrator template shared by a process.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	gemini, groq, xai := config.APIKeys()
	settings := provider.Settings{
		Provider:     cfg.Provider.Name,
		GeminiAPIKey: gemini,
		GroqAPIKey:   groq,
		XAIAPIKey:    xai,
		Model:        cfg.Provider.Model,
		BaseURL:      cfg.Provider.BaseURL,
		MinInterval:  cfg.Provider.MinInterval,
		Retry: provider.RetryPolicy{
			MaxRetries: cfg.Provider.RetryMax,
			BaseDelay:  cfg.Provider.RetryBase,
		},
		Require: cfg.Provider.Require,
	}
	client, err := provider.New(ctx, settings, logger)
	if err != nil {
		return nil, err
	}
	resolved := settings.Resolve()
	logger.Info("provider configured",
		zap.String("provider", resolved), zap.String("model", cfg.Provider.Model))

	kb, err := knowledge.LoadBase(cfg.Knowledge.BasePath)
	if err != nil {
		return nil, err
	}
	if len(kb) > 0 {
		logger.Info("knowledge base loaded",
			zap.String("path", cfg.Knowledge.BasePath), zap.Int("documents", len(kb)))
	}

	var retriever agent.Retriever
	chunkCount := 0
	if cfg.Retrieval.Enabled {
		chunks, err := retrieval.LoadAndChunkDocs(cfg.Retrieval.FilesDir, logger)
		if err != nil {
			return nil, err
		}
		if len(chunks) > 0 {
			retriever = retrieval.NewIndex(chunks)
			chunkCount = len(chunks)
			logger.Info("retrieval index built", zap.Int("chunks", chunkCount))
		}
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	tmpl := orchestrator.Template{
		Client:             client,
		PermissiveFallback: !cfg.Provider.Require,
		Retriever:          retriever,
		Knowledge:          kb,
		RetrievalK:         cfg.Retrieval.TopK,
		FilesDir:           cfg.Retrieval.FilesDir,
		DebateEnabled:      cfg.Pipeline.DebateEnabled && cfg.Pipeline.MaxDebateRounds > 0,
		MaxDebateRounds:    cfg.Pipeline.MaxDebateRounds,
		StepDelay:          cfg.Pipeline.StepDelay,
	}

	return &runtime{
		cfg:    cfg,
		orch:   orchestrator.New(tmpl, st, logger),
		store:  st,
		client: client,
		info: server.Info{
			Provider:        resolved,
			Model:           cfg.Provider.Model,
			RequireProvider: cfg.Provider.Require,
			RetrievalChunks: chunkCount,
			FilesDir:        cfg.Retrieval.FilesDir,
		},
	}, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "arc.yaml", "Path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ingestCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
