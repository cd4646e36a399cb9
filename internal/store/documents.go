package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/propdoc-io/propdoc/internal/document"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrIllegalTransition is returned when a status change violates the
// document lifecycle.
var ErrIllegalTransition = errors.New("illegal status transition")

// UpsertDocument inserts the document or refreshes its mutable columns.
// The content hash is the identity, so re-inserting identical bytes is a
// no-op apart from the timestamp.
func (s *Store) UpsertDocument(ctx context.Context, d *document.Document) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO documents (id, property_name, filename, page_count, method, status, version, fail_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			property_name = excluded.property_name,
			filename = excluded.filename,
			page_count = excluded.page_count,
			method = excluded.method,
			updated_at = datetime('now')`,
		d.ID, d.PropertyName, d.Filename, d.PageCount, string(d.Method), string(d.Status), d.Version, d.FailReason)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", d.ID, err)
	}
	return nil
}

// GetDocument loads a document by content hash.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, property_name, filename, page_count, method, status, version, fail_reason, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]*document.Document, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, property_name, filename, page_count, method, status, version, fail_reason, created_at, updated_at
		FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*document.Document, error) {
	var d document.Document
	var method, status string
	err := row.Scan(&d.ID, &d.PropertyName, &d.Filename, &d.PageCount, &method, &status,
		&d.Version, &d.FailReason, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	d.Method = document.AcquisitionMethod(method)
	d.Status = document.Status(status)
	return &d, nil
}

// SetStatus moves a document through its lifecycle, rejecting transitions
// the lifecycle does not allow. The check and the update run in one
// transaction so racing writers cannot skip states.
func (s *Store) SetStatus(ctx context.Context, id string, to document.Status, failReason string) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status for %s: %w", id, err)
	}

	from := document.Status(current)
	if from != to && !document.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, fail_reason = ?, updated_at = datetime('now') WHERE id = ?`,
		string(to), failReason, id); err != nil {
		return fmt.Errorf("updating status for %s: %w", id, err)
	}
	return tx.Commit()
}

// SavePages replaces the stored page text for a document.
func (s *Store) SavePages(ctx context.Context, docID string, pages []document.Page) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("clearing pages for %s: %w", docID, err)
	}
	for _, p := range pages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pages (document_id, number, text, method, confidence) VALUES (?, ?, ?, ?, ?)`,
			docID, p.Number, p.Text, string(p.Method), p.Confidence); err != nil {
			return fmt.Errorf("inserting page %d for %s: %w", p.Number, docID, err)
		}
	}
	return tx.Commit()
}

// GetPages loads the stored pages for a document in page order.
func (s *Store) GetPages(ctx context.Context, docID string) ([]document.Page, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT number, text, method, confidence FROM pages WHERE document_id = ? ORDER BY number`, docID)
	if err != nil {
		return nil, fmt.Errorf("loading pages for %s: %w", docID, err)
	}
	defer rows.Close()

	var pages []document.Page
	for rows.Next() {
		p := document.Page{DocumentID: docID}
		var method string
		if err := rows.Scan(&p.Number, &p.Text, &method, &p.Confidence); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		p.Method = document.AcquisitionMethod(method)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// NextVersion returns one past the highest version any document with the
// same property and filename has reached. Used when changed bytes arrive
// under a name the system has seen before.
func (s *Store) NextVersion(ctx context.Context, property, filename string) (int, error) {
	var max sql.NullInt64
	err := s.QueryRowContext(ctx, `
		SELECT MAX(version) FROM documents WHERE property_name = ? AND filename = ?`,
		property, filename).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("reading max version for %s/%s: %w", property, filename, err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// PriorVersions lists document IDs that share property and filename with
// the given document but are not it. Their records get superseded when the
// new version lands.
func (s *Store) PriorVersions(ctx context.Context, property, filename, keepID string) ([]string, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id FROM documents WHERE property_name = ? AND filename = ? AND id != ?`,
		property, filename, keepID)
	if err != nil {
		return nil, fmt.Errorf("listing prior versions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
