// Package config loads arc configuration from an optional YAML file
// with environment-variable overrides. API keys are only ever read from
// the environment so they never end up in a committed config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all arc configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Provider  ProviderConfig  `yaml:"provider"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Server    ServerConfig    `yaml:"server"`
}

// ProviderConfig selects and tunes the generation provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"` // gemini, groq, xai, offline; empty auto-detects by key
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Require     bool          `yaml:"require"` // fail instead of offline fallback
	MinInterval time.Duration `yaml:"min_interval"`
	RetryMax    int           `yaml:"retry_max"`
	RetryBase   time.Duration `yaml:"retry_base_delay"`
}

// PipelineConfig tunes turn execution.
type PipelineConfig struct {
	StepDelay       time.Duration `yaml:"step_delay"`
	DebateEnabled   bool          `yaml:"debate_enabled"`
	MaxDebateRounds int           `yaml:"max_debate_rounds"`
}

// RetrievalConfig configures default extractor retrieval.
type RetrievalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FilesDir string `yaml:"files_dir"`
	TopK     int    `yaml:"top_k"`
}

// KnowledgeConfig configures the knowledge base and extraction job.
type KnowledgeConfig struct {
	BasePath        string `yaml:"base_path"`
	ArticlesDir     string `yaml:"articles_dir"`
	CacheDir        string `yaml:"cache_dir"`
	MaxChunksPerDoc int    `yaml:"max_chunks_per_doc"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir: "data",
		Provider: ProviderConfig{
			RetryMax:  4,
			RetryBase: time.Second,
		},
		Pipeline: PipelineConfig{
			DebateEnabled:   true,
			MaxDebateRounds: 1,
		},
		Retrieval: RetrievalConfig{
			FilesDir: "files",
			TopK:     4,
		},
		Knowledge: KnowledgeConfig{
			BasePath:        "data/knowledge_base.json",
			ArticlesDir:     "articles",
			CacheDir:        "data/knowledge_cache",
			MaxChunksPerDoc: 5,
		},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads the config file at path (a missing file falls back to
// defaults) and applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Provider.Name, "LLM_PROVIDER")
	setString(&c.Provider.Model, "MODEL_NAME")
	setString(&c.DataDir, "ARC_DATA_DIR")
	setString(&c.Retrieval.FilesDir, "ARC_FILES_DIR")
	setString(&c.Knowledge.BasePath, "KNOWLEDGE_BASE_PATH")
	setBool(&c.Provider.Require, "REQUIRE_PROVIDER")
	setBool(&c.Retrieval.Enabled, "ENABLE_RETRIEVAL")
	setBool(&c.Pipeline.DebateEnabled, "DEBATE_ENABLE")
	setInt(&c.Pipeline.MaxDebateRounds, "DEBATE_ROUNDS")
	setInt(&c.Provider.RetryMax, "LLM_RETRY_MAX")
	setInt(&c.Server.Port, "PORT")
	setSeconds(&c.Pipeline.StepDelay, "AGENT_STEP_DELAY_S")
	setSeconds(&c.Provider.MinInterval, "LLM_MIN_INTERVAL_S")
}

// APIKeys reads provider credentials from the environment.
func APIKeys() (gemini, groq, xai string) {
	return os.Getenv("GEMINI_API_KEY"), os.Getenv("GROQ_API_KEY"), os.Getenv("GROK_API_KEY")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			*dst = time.Duration(parsed * float64(time.Second))
		}
	}
}
