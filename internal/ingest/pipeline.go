// Package ingest orchestrates the extraction pipeline: acquire -> extract ->
// persist records -> chunk -> embed -> index, with the structured write
// always landing before the semantic one.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/propdoc-io/propdoc/internal/chunker"
	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/extract"
	"github.com/propdoc-io/propdoc/internal/store"
	"github.com/propdoc-io/propdoc/internal/vectordb"
)

// Acquirer turns a source file into pages of text.
type Acquirer interface {
	AcquireDocument(ctx context.Context, path, docID string) ([]document.Page, document.AcquisitionMethod, error)
}

// ProgressFunc receives pipeline stage notifications.
type ProgressFunc func(stage string, d *document.Document)

// Pipeline stages
const (
	StageAcquiring = "acquiring"
	StageExtracted = "extracted"
	StageIndexed   = "indexed"
	StageFailed    = "failed"
	StageSkipped   = "skipped"
)

// Result summarizes one document's trip through the pipeline.
type Result struct {
	DocumentID   string
	Version      int
	Status       document.Status
	Method       document.AcquisitionMethod
	PageCount    int
	RecordCount  int
	PassageCount int
	// Skipped means the content hash was already indexed.
	Skipped bool
	// Resumed means extraction was found complete and only indexing ran.
	Resumed bool
}

// Pipeline wires the extraction stages together.
type Pipeline struct {
	acquirer   Acquirer
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	store      *store.Store
	index      vectordb.VectorStore
	cfg        *config.Config
	locks      *keyedLocks
	onProgress ProgressFunc
}

// NewPipeline creates a Pipeline from its stages.
func NewPipeline(acquirer Acquirer, st *store.Store, index vectordb.VectorStore, cfg *config.Config) *Pipeline {
	return &Pipeline{
		acquirer:  acquirer,
		extractor: extract.New(cfg.Extraction),
		chunker:   chunker.New(cfg.Chunking),
		store:     st,
		index:     index,
		cfg:       cfg,
		locks:     newKeyedLocks(),
	}
}

// SetProgressFunc sets the progress callback.
func (p *Pipeline) SetProgressFunc(fn ProgressFunc) {
	p.onProgress = fn
}

func (p *Pipeline) progress(stage string, d *document.Document) {
	if p.onProgress != nil {
		p.onProgress(stage, d)
	}
}

// IngestFile ingests one source file for a property.
func (p *Pipeline) IngestFile(ctx context.Context, path, property string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.ingest(ctx, data, path, filepath.Base(path), property)
}

// IngestBytes ingests in-memory content, e.g. an HTTP upload. The bytes are
// staged to a temp file for the external text tools.
func (p *Pipeline) IngestBytes(ctx context.Context, data []byte, filename, property string) (*Result, error) {
	tmp, err := os.CreateTemp("", "propdoc-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	tmp.Close()
	return p.ingest(ctx, data, tmp.Name(), filename, property)
}

func (p *Pipeline) ingest(ctx context.Context, data []byte, path, filename, property string) (*Result, error) {
	docID := document.HashBytes(data)

	// Concurrent ingestions of the same bytes serialize here; the loser of
	// the race then observes the winner's final state and no-ops.
	release := p.locks.acquire(docID)
	defer release()

	if p.cfg.Ingest.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Ingest.Deadline)
		defer cancel()
	}

	existing, err := p.store.GetDocument(ctx, docID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.Status == document.StatusIndexed {
		slog.Info("ingest.skipped", "document", docID, "filename", filename)
		p.progress(StageSkipped, existing)
		return &Result{
			DocumentID: docID, Version: existing.Version, Status: existing.Status,
			Method: existing.Method, PageCount: existing.PageCount, Skipped: true,
		}, nil
	}

	// A document stuck in extracted means the structured write landed but
	// indexing did not; resume from the stored pages.
	if existing != nil && existing.Status == document.StatusExtracted {
		return p.resumeIndexing(ctx, existing, property)
	}

	version := 1
	if existing != nil {
		version = existing.Version
	} else if v, err := p.store.NextVersion(ctx, property, filename); err == nil {
		version = v
	}

	doc := &document.Document{
		ID:           docID,
		PropertyName: property,
		Filename:     filename,
		Status:       document.StatusPending,
		Method:       document.MethodNone,
		Version:      version,
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	// A previously failed document re-enters the lifecycle at pending; the
	// upsert leaves status untouched for existing rows.
	if existing != nil && existing.Status == document.StatusFailed {
		if err := p.store.SetStatus(ctx, docID, document.StatusPending, ""); err != nil {
			return nil, err
		}
	}
	p.progress(StageAcquiring, doc)

	start := time.Now()
	pages, method, err := p.acquirer.AcquireDocument(ctx, path, docID)
	if err != nil {
		// A blown deadline or per-page error still keeps whatever was
		// acquired, for diagnostics. The context may already be dead.
		if len(pages) > 0 {
			bg := context.WithoutCancel(ctx)
			doc.Method = method
			doc.PageCount = len(pages)
			if uerr := p.store.UpsertDocument(bg, doc); uerr != nil {
				slog.Warn("ingest.partial_pages", "document", docID, "error", uerr)
			} else if serr := p.store.SavePages(bg, docID, pages); serr != nil {
				slog.Warn("ingest.partial_pages", "document", docID, "error", serr)
			}
		}
		return p.fail(ctx, doc, fmt.Errorf("acquiring pages: %w", err))
	}
	doc.Method = method
	doc.PageCount = len(pages)
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	records := p.extractor.Records(docID, version, pages)

	// Structured write first. Pages are stored even when extraction found
	// nothing so a later run can retry without re-acquiring.
	if err := p.store.SavePages(ctx, docID, pages); err != nil {
		return p.fail(ctx, doc, fmt.Errorf("saving pages: %w", err))
	}
	if err := p.store.ReplaceRecords(ctx, docID, version, records); err != nil {
		return p.fail(ctx, doc, fmt.Errorf("saving records: %w", err))
	}
	if err := p.store.SetStatus(ctx, docID, document.StatusExtracted, ""); err != nil {
		return nil, err
	}
	doc.Status = document.StatusExtracted
	p.progress(StageExtracted, doc)

	slog.Info("ingest.extracted", "document", docID, "filename", filename,
		"pages", len(pages), "records", len(records), "method", method,
		"elapsed", time.Since(start))

	res, err := p.indexDocument(ctx, doc, property, pages)
	if err != nil {
		return res, err
	}
	res.RecordCount = len(records)
	return res, nil
}

// resumeIndexing finishes a document whose structured write already landed.
func (p *Pipeline) resumeIndexing(ctx context.Context, doc *document.Document, property string) (*Result, error) {
	if property == "" {
		property = doc.PropertyName
	}
	pages, err := p.store.GetPages(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	slog.Info("ingest.resuming", "document", doc.ID, "pages", len(pages))
	res, err := p.indexDocument(ctx, doc, property, pages)
	if res != nil {
		res.Resumed = true
	}
	return res, err
}

// indexDocument runs the semantic half of the dual write: chunk, embed,
// index, then supersede prior versions and flip the document to indexed.
func (p *Pipeline) indexDocument(ctx context.Context, doc *document.Document, property string, pages []document.Page) (*Result, error) {
	passages := p.chunker.Split(doc.ID, doc.Version, pages)

	if err := p.store.SavePassages(ctx, doc.ID, passages); err != nil {
		return p.fail(ctx, doc, fmt.Errorf("saving passages: %w", err))
	}
	if err := p.index.AddPassages(ctx, property, vectordb.FromPassages(property, passages)); err != nil {
		return p.fail(ctx, doc, fmt.Errorf("indexing passages: %w", err))
	}

	// A new version of a previously seen file supersedes the old one: its
	// records go stale and its passages leave the index.
	prior, err := p.store.PriorVersions(ctx, property, doc.Filename, doc.ID)
	if err != nil {
		return nil, err
	}
	for _, oldID := range prior {
		if err := p.store.SupersedeDocument(ctx, oldID); err != nil {
			return nil, err
		}
		if err := p.index.DeleteByDocument(ctx, oldID); err != nil {
			return nil, fmt.Errorf("removing superseded passages for %s: %w", oldID, err)
		}
		slog.Info("ingest.superseded", "document", oldID, "by", doc.ID)
	}

	if err := p.store.SetStatus(ctx, doc.ID, document.StatusIndexed, ""); err != nil {
		return nil, err
	}
	doc.Status = document.StatusIndexed
	p.progress(StageIndexed, doc)

	if p.cfg.DataDir != "" {
		if err := p.index.Persist(ctx, p.cfg.DataDir); err != nil {
			slog.Warn("ingest.persist_failed", "error", err)
		}
	}

	return &Result{
		DocumentID: doc.ID, Version: doc.Version, Status: doc.Status,
		Method: doc.Method, PageCount: doc.PageCount, PassageCount: len(passages),
	}, nil
}

// fail marks the document failed and returns the original error. The status
// write uses an uncancelled context so a blown deadline still gets recorded.
func (p *Pipeline) fail(ctx context.Context, doc *document.Document, cause error) (*Result, error) {
	bg := context.WithoutCancel(ctx)
	if err := p.store.SetStatus(bg, doc.ID, document.StatusFailed, cause.Error()); err != nil {
		slog.Error("ingest.fail_status", "document", doc.ID, "error", err)
	}
	doc.Status = document.StatusFailed
	doc.FailReason = cause.Error()
	p.progress(StageFailed, doc)
	slog.Error("ingest.failed", "document", doc.ID, "error", cause)
	return &Result{DocumentID: doc.ID, Version: doc.Version, Status: document.StatusFailed, Method: doc.Method}, cause
}
