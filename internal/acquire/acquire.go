// Package acquire turns a PDF into ordered pages of text, choosing a digital
// extraction path or an optical-recognition fallback per page.
package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
)

// Acquirer produces page-level text via pdftotext, with pdftoppm + tesseract
// as the recognition fallback for pages the digital path cannot read.
type Acquirer struct {
	ocr         config.OCRConfig
	extraction  config.ExtractionConfig
	concurrency int
	runner      Runner
}

// New creates an Acquirer from configuration, using the host exec runner.
func New(cfg *config.Config) *Acquirer {
	conc := cfg.Ingest.MaxConcurrency
	if conc < 1 {
		conc = 1
	}
	return &Acquirer{
		ocr:         cfg.OCR,
		extraction:  cfg.Extraction,
		concurrency: conc,
		runner:      ExecRunner{},
	}
}

// SetRunner replaces the command runner. Used by tests.
func (a *Acquirer) SetRunner(r Runner) { a.runner = r }

// AcquireDocument extracts text for every page of the PDF at path. A page
// that yields no text by either path is returned with empty text and
// confidence 0 rather than failing the document.
func (a *Acquirer) AcquireDocument(ctx context.Context, path, docID string) ([]document.Page, document.AcquisitionMethod, error) {
	pageTexts, err := a.digitalPages(ctx, path)
	if err != nil {
		// No text layer at all: render and recognize every page.
		slog.Info("acquire.digital.unavailable", "doc", docID, "error", err)
		return a.ocrWholeDocument(ctx, path, docID)
	}
	if len(pageTexts) == 0 {
		return nil, "", fmt.Errorf("acquire %s: document has no pages", path)
	}

	pages := make([]document.Page, len(pageTexts))

	g, gctx := errgroup.Group{}, ctx
	g.SetLimit(a.concurrency)

	for i, text := range pageTexts {
		num := i + 1
		density := nonWhitespaceCount(text)

		if density >= a.extraction.DensityThreshold {
			pages[i] = document.Page{
				DocumentID: docID,
				Number:     num,
				Text:       text,
				Blocks:     deriveBlocks(text),
				Method:     document.MethodDigital,
				Confidence: digitalConfidence(text, a.extraction.DensityThreshold),
			}
			continue
		}

		// Sparse or image-only page: recognition fallback. The placeholder
		// keeps the page row valid if the context dies before the OCR runs.
		pages[i] = document.Page{
			DocumentID: docID,
			Number:     num,
			Method:     document.MethodNone,
			Blocks:     []document.LayoutBlock{{Kind: document.BlockImage, X1: 1, Y1: 1}},
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages[num-1] = a.ocrPage(gctx, path, docID, num)
			return nil
		})
	}

	// On abort the pages acquired so far come back with the error so the
	// caller can keep them for diagnostics.
	if err := g.Wait(); err != nil {
		return pages, documentMethod(pages), fmt.Errorf("acquire %s: %w", path, err)
	}

	return pages, documentMethod(pages), nil
}

// digitalPages runs pdftotext over the whole file and splits on the
// form-feed page separator.
func (a *Acquirer) digitalPages(ctx context.Context, path string) ([]string, error) {
	out, errb, err := a.runner.Run(ctx, a.ocr.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(errb), 256))
	}
	pageTexts := strings.Split(string(out), "\f")
	// pdftotext terminates the final page with \f, leaving an empty tail.
	if n := len(pageTexts); n > 1 && strings.TrimSpace(pageTexts[n-1]) == "" {
		pageTexts = pageTexts[:n-1]
	}
	return pageTexts, nil
}

// ocrPage renders one page to an image and recognizes it. Any failure maps
// to an empty page with confidence 0.
func (a *Acquirer) ocrPage(ctx context.Context, path, docID string, num int) document.Page {
	page := document.Page{
		DocumentID: docID,
		Number:     num,
		Method:     document.MethodNone,
		Blocks:     []document.LayoutBlock{{Kind: document.BlockImage, X1: 1, Y1: 1}},
	}

	img, cleanup, err := a.renderPage(ctx, path, num)
	if err != nil {
		slog.Warn("acquire.ocr.render_failed", "doc", docID, "page", num, "error", err)
		return page
	}
	defer cleanup()

	text, err := a.tesseract(ctx, img)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("acquire.ocr.empty", "doc", docID, "page", num, "error", err)
		return page
	}

	page.Text = text
	page.Blocks = deriveBlocks(text)
	page.Method = document.MethodOCR
	page.Confidence = ocrConfidence(text, a.extraction.OCRCeiling)
	return page
}

// ocrWholeDocument handles PDFs with no readable text layer: render every
// page up front, then recognize them concurrently.
func (a *Acquirer) ocrWholeDocument(ctx context.Context, path, docID string) ([]document.Page, document.AcquisitionMethod, error) {
	imgs, cleanup, err := a.renderAll(ctx, path)
	if err != nil {
		return nil, "", fmt.Errorf("acquire %s: %w", path, err)
	}
	defer cleanup()
	if len(imgs) == 0 {
		return nil, "", fmt.Errorf("acquire %s: no pages rendered", path)
	}

	pages := make([]document.Page, len(imgs))
	for i := range pages {
		pages[i] = document.Page{
			DocumentID: docID,
			Number:     i + 1,
			Method:     document.MethodNone,
			Blocks:     []document.LayoutBlock{{Kind: document.BlockImage, X1: 1, Y1: 1}},
		}
	}

	g, gctx := errgroup.Group{}, ctx
	g.SetLimit(a.concurrency)

	for i, img := range imgs {
		img := img
		num := i + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page := document.Page{
				DocumentID: docID,
				Number:     num,
				Method:     document.MethodNone,
				Blocks:     []document.LayoutBlock{{Kind: document.BlockImage, X1: 1, Y1: 1}},
			}
			text, err := a.tesseract(gctx, img)
			if err == nil && strings.TrimSpace(text) != "" {
				page.Text = text
				page.Blocks = deriveBlocks(text)
				page.Method = document.MethodOCR
				page.Confidence = ocrConfidence(text, a.extraction.OCRCeiling)
			}
			pages[num-1] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pages, documentMethod(pages), fmt.Errorf("acquire %s: %w", path, err)
	}

	return pages, documentMethod(pages), nil
}

func (a *Acquirer) renderPage(ctx context.Context, path string, num int) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "propdoc-pg-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := a.runner.Run(ctx, a.ocr.Pdftoppm,
		"-f", fmt.Sprintf("%d", num), "-l", fmt.Sprintf("%d", num),
		"-r", fmt.Sprintf("%d", a.ocr.DPI), "-png", path, prefix)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 256))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no image for page %d", num)
	}
	sort.Strings(matches)
	return matches[0], cleanup, nil
}

func (a *Acquirer) renderAll(ctx context.Context, path string) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "propdoc-doc-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := a.runner.Run(ctx, a.ocr.Pdftoppm,
		"-r", fmt.Sprintf("%d", a.ocr.DPI), "-png", path, prefix)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm: %w (%s)", err, truncate(string(errb), 256))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	return matches, cleanup, nil
}

func (a *Acquirer) tesseract(ctx context.Context, img string) (string, error) {
	out, errb, err := a.runner.Run(ctx, a.ocr.Tesseract, img, "stdout", "-l", a.ocr.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 256))
	}
	return string(out), nil
}

// documentMethod derives the document-level acquisition method from its pages.
func documentMethod(pages []document.Page) document.AcquisitionMethod {
	var digital, ocr int
	for _, p := range pages {
		switch p.Method {
		case document.MethodDigital:
			digital++
		case document.MethodOCR:
			ocr++
		}
	}
	switch {
	case digital > 0 && ocr > 0:
		return document.MethodMixed
	case digital > 0:
		return document.MethodDigital
	default:
		return document.MethodOCR
	}
}
