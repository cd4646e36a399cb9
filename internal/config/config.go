package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PROPDOC_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: PROPDOC_DATA_DIR -> data_dir, etc.
	if err := k.Load(env.Provider("PROPDOC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PROPDOC_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}

	if c.Extraction.OCRCeiling <= 0 || c.Extraction.OCRCeiling > 1 {
		return fmt.Errorf("extraction.ocr_ceiling must be in (0,1], got %v", c.Extraction.OCRCeiling)
	}
	if c.Extraction.FieldThreshold < 0 || c.Extraction.FieldThreshold > 1 {
		return fmt.Errorf("extraction.field_threshold must be in [0,1], got %v", c.Extraction.FieldThreshold)
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.SimilarityFloor < 0 || c.Retrieval.SimilarityFloor > 1 {
		return fmt.Errorf("retrieval.similarity_floor must be in [0,1]")
	}
	if c.Retrieval.HighConfidence < c.Retrieval.SimilarityFloor {
		return fmt.Errorf("retrieval.high_confidence must be >= similarity_floor")
	}
	if c.Retrieval.ContextBudget <= 0 {
		return fmt.Errorf("retrieval.context_budget must be positive")
	}
	if c.Retrieval.MaxItems <= 0 {
		return fmt.Errorf("retrieval.max_items must be positive")
	}

	if c.Ingest.MaxConcurrency < 0 {
		return fmt.Errorf("ingest.max_concurrency must be non-negative")
	}
	if c.Ingest.EmbedMaxAttempts < 1 {
		return fmt.Errorf("ingest.embed_max_attempts must be at least 1")
	}

	return nil
}
