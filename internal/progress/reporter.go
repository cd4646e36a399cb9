// Package progress surfaces batch ingestion feedback on the terminal.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives per-document stage updates during a batch ingestion.
type Reporter interface {
	Start(total int)
	Stage(done int, file, stage string)
	Finish()
}

// NewReporter returns a TerminalReporter in an interactive terminal, or a
// CIReporter when the CI environment variable is set.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{}
	}
	return &TerminalReporter{}
}

// TerminalReporter renders a progress bar whose description tracks the
// document currently moving through the pipeline.
type TerminalReporter struct {
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Stage(done int, file, stage string) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(fmt.Sprintf("%s: %s", file, stage))
	_ = r.bar.Set(done)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints one line per stage, suitable for CI logs.
type CIReporter struct {
	total int
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(os.Stderr, "Ingesting %d documents\n", total)
}

func (r *CIReporter) Stage(done int, file, stage string) {
	fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", done, r.total, file, stage)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(os.Stderr, "Ingestion complete")
}
