package config

import "time"

// Config is the top-level propdoc configuration, corresponding to .propdoc.yml.
type Config struct {
	DataDir        string          `yaml:"data_dir" koanf:"data_dir"`
	OpenAIModel    string          `yaml:"openai_model" koanf:"openai_model"`
	EmbeddingModel string          `yaml:"embedding_model" koanf:"embedding_model"`
	Extraction     ExtractionConfig `yaml:"extraction" koanf:"extraction"`
	Chunking       ChunkingConfig   `yaml:"chunking" koanf:"chunking"`
	Retrieval      RetrievalConfig  `yaml:"retrieval" koanf:"retrieval"`
	Ingest         IngestConfig     `yaml:"ingest" koanf:"ingest"`
	OCR            OCRConfig        `yaml:"ocr" koanf:"ocr"`
	Server         ServerConfig     `yaml:"server" koanf:"server"`
}

// ExtractionConfig holds field-extraction thresholds.
type ExtractionConfig struct {
	// OCRCeiling caps acquisition confidence for pages read through optical
	// recognition. Digital pages can reach 1.0, OCR pages cannot.
	OCRCeiling float64 `yaml:"ocr_ceiling" koanf:"ocr_ceiling"`
	// FieldThreshold is the minimum confidence for a field to count toward a
	// complete record. Fields below it are kept but flagged needs_review.
	FieldThreshold float64 `yaml:"field_threshold" koanf:"field_threshold"`
	// DensityThreshold is the minimum non-whitespace character count per page
	// for the digital text path to be trusted over OCR.
	DensityThreshold int `yaml:"density_threshold" koanf:"density_threshold"`
}

// ChunkingConfig controls how page text is split into passages.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig controls the hybrid retrieval engine.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k" koanf:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor" koanf:"similarity_floor"`
	// HighConfidence is the similarity above which a semantic passage may
	// interleave with structured facts instead of ranking below them.
	HighConfidence float64 `yaml:"high_confidence" koanf:"high_confidence"`
	// ContextBudget bounds the total character size of the context bundle.
	ContextBudget int `yaml:"context_budget" koanf:"context_budget"`
	MaxItems      int `yaml:"max_items" koanf:"max_items"`
}

// IngestConfig controls pipeline concurrency and resilience.
type IngestConfig struct {
	MaxConcurrency   int           `yaml:"max_concurrency" koanf:"max_concurrency"`
	Deadline         time.Duration `yaml:"deadline" koanf:"deadline"`
	EmbedMaxAttempts int           `yaml:"embed_max_attempts" koanf:"embed_max_attempts"`
	Include          []string      `yaml:"include" koanf:"include"`
	Exclude          []string      `yaml:"exclude" koanf:"exclude"`
}

// OCRConfig holds paths to the external text-extraction tools.
type OCRConfig struct {
	Pdftotext string `yaml:"pdftotext" koanf:"pdftotext"`
	Pdftoppm  string `yaml:"pdftoppm" koanf:"pdftoppm"`
	Tesseract string `yaml:"tesseract" koanf:"tesseract"`
	DPI       int    `yaml:"dpi" koanf:"dpi"`
	Language  string `yaml:"language" koanf:"language"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
