// Package vectordb is the semantic side of the dual write: passage vectors
// with document attribution metadata, stored in chromem-go.
package vectordb

import "context"

// VectorStore stores and searches passages by embedding similarity.
type VectorStore interface {
	// AddPassages adds or updates passages in the index.
	AddPassages(ctx context.Context, property string, passages []Passage) error

	// Search performs a semantic search. Hits below floor are dropped
	// after the top-k query.
	Search(ctx context.Context, query string, k int, floor float32, filter *Filter) ([]Hit, error)

	// DeleteByDocument removes every passage of a document, used when a
	// newer document version supersedes it.
	DeleteByDocument(ctx context.Context, docID string) error

	// Persist saves the index to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the index from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the number of indexed passages.
	Count() int
}
