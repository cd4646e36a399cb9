package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/propdoc-io/propdoc/internal/acquire"
	"github.com/propdoc-io/propdoc/internal/answer"
	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/embeddings"
	"github.com/propdoc-io/propdoc/internal/ingest"
	"github.com/propdoc-io/propdoc/internal/query"
	"github.com/propdoc-io/propdoc/internal/store"
	"github.com/propdoc-io/propdoc/internal/vectordb"
)

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	index    *vectordb.ChromemStore
	pipeline *ingest.Pipeline
	engine   *query.Engine
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `propdoc init` to create a config file", err)
	}
	return cfg, nil
}

// openApp wires store, index, pipeline and engine from the config. The
// semantic index is loaded from the data directory when a snapshot exists.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "propdoc.db"))
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	index, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating semantic index: %w", err)
	}
	if err := index.Load(ctx, cfg.DataDir); err != nil {
		// A missing snapshot is normal before the first ingest.
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: no semantic index at %s: %v\n", cfg.DataDir, err)
		}
	}

	acq := acquire.New(cfg)
	return &app{
		cfg:      cfg,
		store:    st,
		index:    index,
		pipeline: ingest.NewPipeline(acq, st, index, cfg),
		engine:   query.NewEngine(st, index, cfg.Retrieval),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel), cfg.Ingest.EmbedMaxAttempts), nil
}

// newSynthesizer returns nil when no API key is set; queries then return
// the bundle without prose.
func newSynthesizer(cfg *config.Config) answer.Synthesizer {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil
	}
	return answer.NewOpenAISynthesizer(apiKey, cfg.OpenAIModel)
}
