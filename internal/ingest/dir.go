package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// BatchResult aggregates a directory ingestion.
type BatchResult struct {
	// ID correlates the log lines of one batch run.
	ID      string
	Results []*Result
	Errors  []error
	Skipped int
}

// IngestDir walks root and ingests every file matching the include globs,
// minus the excludes. One file's failure never aborts the batch; errors are
// collected and reported together.
func (p *Pipeline) IngestDir(ctx context.Context, root, property string) (*BatchResult, error) {
	files, err := p.ListFiles(root)
	if err != nil {
		return nil, err
	}

	concurrency := p.cfg.Ingest.MaxConcurrency
	if concurrency < 1 {
		concurrency = 4
	}

	batch := &BatchResult{ID: uuid.NewString()}
	slog.Info("ingest.batch.start", "batch", batch.ID, "root", root, "files", len(files))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := p.IngestFile(ctx, path, property)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Errors = append(batch.Errors, fmt.Errorf("%s: %w", path, err))
			}
			if res != nil {
				batch.Results = append(batch.Results, res)
				if res.Skipped {
					batch.Skipped++
				}
			}
		}(path)
	}
	wg.Wait()

	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].DocumentID < batch.Results[j].DocumentID
	})
	slog.Info("ingest.batch.done", "batch", batch.ID,
		"ingested", len(batch.Results), "skipped", batch.Skipped, "failed", len(batch.Errors))
	return batch, nil
}

// ListFiles applies the configured include and exclude globs under root.
func (p *Pipeline) ListFiles(root string) ([]string, error) {
	includes := p.cfg.Ingest.Include
	if len(includes) == 0 {
		includes = []string{"**/*.pdf"}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(includes, rel) {
			return nil
		}
		if matchesAny(p.cfg.Ingest.Exclude, rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory %s does not exist", root)
		}
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func matchesAny(globs []string, rel string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		// Bare patterns like "*.pdf" should match at any depth.
		if !strings.Contains(g, "/") {
			if ok, _ := doublestar.Match(g, base); ok {
				return true
			}
		}
	}
	return false
}
