package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/embeddings"
)

const collectionName = "passages"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

// FromPassages converts domain passages to indexable ones.
func FromPassages(property string, ps []document.Passage) []Passage {
	out := make([]Passage, len(ps))
	for i, p := range ps {
		out[i] = Passage{
			ID:           p.ID,
			DocumentID:   p.DocumentID,
			Version:      p.Version,
			Seq:          p.Seq,
			PageStart:    p.PageStart,
			PageEnd:      p.PageEnd,
			PropertyName: property,
			Text:         p.Text,
		}
	}
	return out
}

func (s *ChromemStore) AddPassages(ctx context.Context, property string, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		if p.PropertyName == "" {
			p.PropertyName = property
		}
		docs[i] = chromem.Document{
			ID:       p.ID,
			Content:  p.Text,
			Metadata: metadataToMap(p),
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

// Search runs a top-k similarity query and drops hits under the floor.
func (s *ChromemStore) Search(ctx context.Context, query string, k int, floor float32, filter *Filter) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, buildWhereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var hits []Hit
	for _, r := range results {
		if r.Similarity < floor {
			continue
		}
		hits = append(hits, Hit{
			Passage:    mapToPassage(r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, docID string) error {
	where := map[string]string{"document_id": docID}
	return s.collection.Delete(ctx, where, nil)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/passages.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(dir+"/passages.gob.gz", "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap flattens passage attribution into chromem's string map.
func metadataToMap(p Passage) map[string]string {
	return map[string]string{
		"document_id": p.DocumentID,
		"version":     strconv.Itoa(p.Version),
		"seq":         strconv.Itoa(p.Seq),
		"page_start":  strconv.Itoa(p.PageStart),
		"page_end":    strconv.Itoa(p.PageEnd),
		"property":    p.PropertyName,
	}
}

func mapToPassage(id, content string, m map[string]string) Passage {
	version, _ := strconv.Atoi(m["version"])
	seq, _ := strconv.Atoi(m["seq"])
	pageStart, _ := strconv.Atoi(m["page_start"])
	pageEnd, _ := strconv.Atoi(m["page_end"])

	return Passage{
		ID:           id,
		DocumentID:   m["document_id"],
		Version:      version,
		Seq:          seq,
		PageStart:    pageStart,
		PageEnd:      pageEnd,
		PropertyName: m["property"],
		Text:         content,
	}
}

// buildWhereClause converts a Filter to a chromem where clause.
func buildWhereClause(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.DocumentID != "" {
		where["document_id"] = filter.DocumentID
	}
	if filter.PropertyName != "" {
		where["property"] = filter.PropertyName
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
