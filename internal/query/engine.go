package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/extract"
	"github.com/propdoc-io/propdoc/internal/store"
	"github.com/propdoc-io/propdoc/internal/vectordb"
)

// Engine executes routed plans against the structured store and the
// semantic index.
type Engine struct {
	store *store.Store
	index vectordb.VectorStore
	cfg   config.RetrievalConfig
}

// NewEngine creates an Engine.
func NewEngine(st *store.Store, index vectordb.VectorStore, cfg config.RetrievalConfig) *Engine {
	return &Engine{store: st, index: index, cfg: cfg}
}

// Ask routes and executes in one call.
func (e *Engine) Ask(ctx context.Context, query, property string) (*ContextBundle, error) {
	plan := Route(query)
	if property != "" {
		plan.Filter.Property = property
	}
	return e.Execute(ctx, plan)
}

// Execute runs the plan. Hybrid plans degrade rather than fail: if one path
// errors the other's results come back with Partial set.
func (e *Engine) Execute(ctx context.Context, plan Plan) (*ContextBundle, error) {
	if plan.TopK <= 0 {
		plan.TopK = e.cfg.TopK
	}
	if plan.Floor <= 0 {
		plan.Floor = float32(e.cfg.SimilarityFloor)
	}

	bundle := &ContextBundle{Query: plan.Query, Intent: plan.Intent}

	var facts []Item
	var aggregates *extract.Summary
	var passages []Item
	var structuredErr, semanticErr error

	if plan.Intent != IntentSemantic {
		facts, aggregates, structuredErr = e.structured(ctx, plan)
	}
	if plan.Intent != IntentStructured {
		passages, semanticErr = e.semantic(ctx, plan)
	}

	switch plan.Intent {
	case IntentStructured:
		if structuredErr != nil {
			return nil, structuredErr
		}
	case IntentSemantic:
		if semanticErr != nil {
			return nil, semanticErr
		}
	case IntentHybrid:
		// One path failing degrades the result instead of erroring; only a
		// double failure surfaces.
		if structuredErr != nil && semanticErr != nil {
			return nil, fmt.Errorf("both retrieval paths failed: %w", structuredErr)
		}
		if structuredErr != nil || semanticErr != nil {
			bundle.Partial = true
			err := structuredErr
			if err == nil {
				err = semanticErr
			}
			slog.Warn("query.partial", "intent", plan.Intent, "error", err)
		}
	}

	bundle.Aggregates = aggregates
	bundle.Items = e.fuse(facts, passages)
	e.truncate(bundle)
	return bundle, nil
}

// structured translates the plan filter into store predicates and computes
// exact aggregates over the fetched records.
func (e *Engine) structured(ctx context.Context, plan Plan) ([]Item, *extract.Summary, error) {
	filter := store.RecordFilter{
		Entity:       document.EntityUnit,
		PropertyName: plan.Filter.Property,
		Key:          plan.Filter.UnitNumber,
	}
	equals := make(map[string]string)
	if plan.Filter.UnitType != "" {
		equals["unit_type"] = plan.Filter.UnitType
	}
	if plan.Filter.Status != "" {
		equals["status"] = plan.Filter.Status
	}
	if len(equals) > 0 {
		filter.FieldEquals = equals
	}

	recs, err := e.store.QueryRecords(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("structured retrieval: %w", err)
	}

	// A unit-scoped query also pulls that unit's lease and tenant facts.
	if plan.Filter.UnitNumber != "" {
		related, err := e.store.QueryRecords(ctx, store.RecordFilter{
			Key: plan.Filter.UnitNumber, PropertyName: plan.Filter.Property,
		})
		if err == nil {
			seen := make(map[string]bool, len(recs))
			for _, r := range recs {
				seen[r.ID] = true
			}
			for _, r := range related {
				if !seen[r.ID] {
					recs = append(recs, r)
				}
			}
		}
	}

	summary := extract.Summarize(recs)

	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, Item{
			Kind:        ItemFact,
			Text:        factText(r),
			DocumentID:  r.DocumentID,
			PageStart:   r.PageStart,
			PageEnd:     r.PageEnd,
			Score:       e.cfg.HighConfidence,
			NeedsReview: r.NeedsReview,
		})
	}
	return items, &summary, nil
}

func (e *Engine) semantic(ctx context.Context, plan Plan) ([]Item, error) {
	var filter *vectordb.Filter
	if plan.Filter.Property != "" {
		filter = &vectordb.Filter{PropertyName: plan.Filter.Property}
	}

	hits, err := e.index.Search(ctx, plan.Query, plan.TopK, plan.Floor, filter)
	if err != nil {
		return nil, fmt.Errorf("semantic retrieval: %w", err)
	}

	items := make([]Item, 0, len(hits))
	for _, h := range hits {
		items = append(items, Item{
			Kind:       ItemPassage,
			Text:       h.Passage.Text,
			DocumentID: h.Passage.DocumentID,
			PageStart:  h.Passage.PageStart,
			PageEnd:    h.Passage.PageEnd,
			Score:      float64(h.Similarity),
		})
	}
	return items, nil
}

// fuse merges facts and passages: facts carry the high-confidence rank, so
// only passages at or above that similarity interleave with them; weaker
// passages trail. Duplicates by document and page range collapse to the
// best-scored occurrence.
func (e *Engine) fuse(facts, passages []Item) []Item {
	merged := make([]Item, 0, len(facts)+len(passages))
	merged = append(merged, facts...)
	merged = append(merged, passages...)

	// Stable sort keeps the structured ordering among equal scores, which
	// puts facts ahead of equally scored passages.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	type rangeKey struct {
		doc        string
		start, end int
		kind       ItemKind
	}
	seen := make(map[rangeKey]bool, len(merged))
	out := merged[:0]
	for _, it := range merged {
		k := rangeKey{it.DocumentID, it.PageStart, it.PageEnd, it.Kind}
		if it.Kind == ItemPassage && seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	return out
}

// truncate enforces MaxItems and the character budget, dropping the
// lowest-ranked items first.
func (e *Engine) truncate(b *ContextBundle) {
	if e.cfg.MaxItems > 0 && len(b.Items) > e.cfg.MaxItems {
		b.Items = b.Items[:e.cfg.MaxItems]
		b.Truncated = true
	}
	if e.cfg.ContextBudget <= 0 {
		return
	}
	used := 0
	for i, it := range b.Items {
		used += len(it.Text)
		if used > e.cfg.ContextBudget {
			b.Items = b.Items[:i]
			b.Truncated = true
			return
		}
	}
}
