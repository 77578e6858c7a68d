package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/embed"
	"github.com/queryloom/queryloom/internal/engine"
	"github.com/queryloom/queryloom/internal/knowledge"
	"github.com/queryloom/queryloom/internal/llm"
	"github.com/queryloom/queryloom/internal/log"
)

// errNoAPIKey is returned when neither the environment nor the request
// supplies a model credential.
var errNoAPIKey = errors.New("no API key: set GEMINI_API_KEY or supply a credential per request")

// newEngineFactory builds the engine constructor used by the registry.
// Each credential gets its own embedder, knowledge store handle, and
// model client; an empty credential falls back to GEMINI_API_KEY.
func newEngineFactory(cfg *config.Config, logger log.Logger) engine.Factory {
	return func(ctx context.Context, credential string) (*engine.Engine, error) {
		key := credential
		if key == "" {
			key = cfg.APIKey()
		}
		if key == "" {
			return nil, errNoAPIKey
		}

		embedder, err := embed.NewGemini(ctx, key, cfg.EmbedderModel, logger)
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}

		store, err := knowledge.NewStore(cfg.StoreDir, embedder, logger)
		if err != nil {
			return nil, fmt.Errorf("opening knowledge store: %w", err)
		}

		chat, err := llm.NewClient(ctx, key, cfg.ModelName, cfg.Temperature, logger)
		if err != nil {
			return nil, fmt.Errorf("creating model client: %w", err)
		}

		return engine.New(store, chat,
			engine.WithTopK(cfg.TopK),
			engine.WithLogger(logger),
		), nil
	}
}
