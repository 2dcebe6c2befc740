package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all text2cal configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Engine    EngineConfig    `yaml:"engine"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`   // "openai", "hash"
	Model      string `yaml:"model"`      // e.g. "text-embedding-3-small"
	Dimensions int    `yaml:"dimensions"` // 1536 for text-embedding-3-small
	MaxRetries int    `yaml:"max_retries"`
	OpenAIKey  string `yaml:"openai_key"`
}

type LLMConfig struct {
	Provider     string `yaml:"provider"` // "anthropic", "openai", "mock"
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	AnthropicKey string `yaml:"anthropic_key"`
	OpenAIKey    string `yaml:"openai_key"`
}

type EngineConfig struct {
	Alpha         float64 `yaml:"alpha"`          // semantic vs curated blend factor
	ContextBudget int     `yaml:"context_budget"` // size budget for assembled context
	BudgetUnit    string  `yaml:"budget_unit"`    // "chars" or "tokens"
	CandidateDays int     `yaml:"candidate_days"` // day window for ranking candidates
	TopK          int     `yaml:"top_k"`
	CacheEntries  int     `yaml:"cache_entries"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 5001,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Embedding: EmbeddingConfig{
			Provider:   "hash",
			Model:      "text-embedding-3-small",
			Dimensions: 384,
			MaxRetries: 3,
		},
		LLM: LLMConfig{
			Provider:  "mock",
			MaxTokens: 1024,
		},
		Engine: EngineConfig{
			Alpha:         0.5,
			ContextBudget: 2000,
			BudgetUnit:    "chars",
			CandidateDays: 30,
			TopK:          10,
			CacheEntries:  1024,
		},
	}
}

// Load reads a YAML config file layered over Default(), then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("TEXT2CAL_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.OpenAIKey = v
		c.LLM.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicKey = v
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
