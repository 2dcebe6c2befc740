package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/hyChia88/Text2Cal/internal/config"
	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/llm"
	"github.com/hyChia88/Text2Cal/internal/store"
)

// loadConfig reads the config file named by TEXT2CAL_CONFIG (if any)
// layered over defaults and environment overrides.
func loadConfig() (config.Config, error) {
	return config.Load(os.Getenv("TEXT2CAL_CONFIG"))
}

func openStore(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	return store.Open(dbPath)
}

// newEmbedder picks the embedding provider. An API key in the
// environment upgrades the default; without one the deterministic hash
// embedder keeps every command usable offline.
func newEmbedder(cfg config.EmbeddingConfig) engine.Embedder {
	if cfg.Provider == "hash" && cfg.OpenAIKey != "" {
		// Model-native dimensions, not the hash embedder's.
		cfg.Provider = "openai"
		cfg.Dimensions = 0
	}
	if cfg.Provider == "openai" {
		if cfg.OpenAIKey != "" {
			return engine.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.Model, cfg.Dimensions)
		}
		fmt.Fprintln(os.Stderr, "warning: no OpenAI key, using hash embedder")
	}
	return engine.NewHashEmbedder(cfg.Dimensions)
}

// newLLMClient builds the generation client, falling back to a no-op
// mock when the configured provider cannot be constructed.
func newLLMClient(cfg config.LLMConfig) llm.Client {
	if cfg.Provider == "mock" {
		if cfg.AnthropicKey != "" {
			cfg.Provider = "anthropic"
		} else if cfg.OpenAIKey != "" {
			cfg.Provider = "openai"
		}
	}
	client, err := llm.NewClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: generation not configured (%v), suggestions degrade\n", err)
		return &llm.MockClient{Response: &llm.Response{Provider: "mock"}}
	}
	return client
}

func engineOptions(cfg config.EngineConfig) engine.Options {
	unit := engine.UnitChars
	if cfg.BudgetUnit == "tokens" {
		unit = engine.UnitTokens
	}
	return engine.Options{
		Alpha:         cfg.Alpha,
		ContextBudget: engine.Budget{Limit: cfg.ContextBudget, Unit: unit},
		CandidateDays: cfg.CandidateDays,
		TopK:          cfg.TopK,
		CacheEntries:  int64(cfg.CacheEntries),
	}
}

// openEngine wires the full stack for a CLI command and rebuilds the
// in-memory state from the store. Callers own closing both returns.
func openEngine(ctx context.Context) (*engine.Engine, *store.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := openStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	opts := engineOptions(cfg.Engine)
	opts.EmbedRetries = cfg.Embedding.MaxRetries
	eng, err := engine.New(db, newEmbedder(cfg.Embedding), newLLMClient(cfg.LLM), opts)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := eng.Rebuild(ctx); err != nil {
		eng.Close()
		db.Close()
		return nil, nil, fmt.Errorf("rebuild: %w", err)
	}
	return eng, db, nil
}
