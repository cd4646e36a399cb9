package config

import "time"

// DefaultExcludes are glob patterns skipped during directory ingestion.
var DefaultExcludes = []string{
	".git/**",
	"**/.DS_Store",
	"**/*.tmp",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        ".propdoc",
		OpenAIModel:    "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		Extraction: ExtractionConfig{
			OCRCeiling:       0.85,
			FieldThreshold:   0.6,
			DensityThreshold: 20,
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			SimilarityFloor: 0.7,
			HighConfidence:  0.85,
			ContextBudget:   8000,
			MaxItems:        12,
		},
		Ingest: IngestConfig{
			MaxConcurrency:   4,
			Deadline:         5 * time.Minute,
			EmbedMaxAttempts: 3,
			Include:          []string{"**/*.pdf"},
			Exclude:          DefaultExcludes,
		},
		OCR: OCRConfig{
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			DPI:       300,
			Language:  "eng",
		},
		Server: ServerConfig{
			Port: 8090,
		},
	}
}
