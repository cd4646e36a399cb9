package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .propdoc.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to propdoc! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (SQLite DB and vector index)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 2. Embedding model.
	embedPrompt := promptui.Select{
		Label: "Select embedding model",
		Items: []string{"text-embedding-3-small", "text-embedding-3-large"},
	}
	_, embedModel, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding model: %w", err)
	}
	cfg.EmbeddingModel = embedModel

	// 3. Answer model.
	modelPrompt := promptui.Select{
		Label: "Select answer model",
		Items: []string{"gpt-4o", "gpt-4o-mini"},
	}
	_, model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("answer model: %w", err)
	}
	cfg.OpenAIModel = model

	// 4. OCR availability.
	ocrPrompt := promptui.Prompt{
		Label:     "Scanned documents expected (requires pdftoppm + tesseract)",
		IsConfirm: true,
		Default:   "y",
	}
	if _, err := ocrPrompt.Run(); err != nil {
		// Declined: leave tool paths configured but nothing depends on them
		// until an image-only page shows up.
		fmt.Println("OCR tools can be configured later in .propdoc.yml.")
	}

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(".propdoc.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration saved to .propdoc.yml")
	fmt.Println("Set OPENAI_API_KEY before running `propdoc ingest`.")
	return cfg, nil
}
