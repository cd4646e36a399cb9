package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/propdoc-io/propdoc/internal/document"
)

// ReplaceRecords writes a document's extracted records in one transaction:
// the document's own prior-version rows are marked superseded, then the new
// rows are inserted. Readers never observe a half-written generation.
func (s *Store) ReplaceRecords(ctx context.Context, docID string, version int, recs []*document.StructuredRecord) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET superseded = 1 WHERE document_id = ? AND version < ?`, docID, version); err != nil {
		return fmt.Errorf("superseding prior records for %s: %w", docID, err)
	}
	// Same version re-written (retry after a mid-ingest failure): replace
	// rows outright, the IDs are deterministic. Fields are cleared
	// explicitly so the rewrite does not hinge on the cascade pragma.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM record_fields WHERE record_id IN
			(SELECT id FROM records WHERE document_id = ? AND version = ?)`, docID, version); err != nil {
		return fmt.Errorf("clearing current record fields for %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM records WHERE document_id = ? AND version = ?`, docID, version); err != nil {
		return fmt.Errorf("clearing current records for %s: %w", docID, err)
	}

	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, document_id, version, entity, key, page_start, page_end, complete, needs_review, superseded)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			r.ID, r.DocumentID, r.Version, string(r.Entity), r.Key, r.PageStart, r.PageEnd,
			boolInt(r.Complete), boolInt(r.NeedsReview)); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
		for _, f := range r.Fields {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO record_fields (record_id, name, value, confidence, page_number, needs_review)
				VALUES (?, ?, ?, ?, ?, ?)`,
				r.ID, f.Name, f.Value, f.Confidence, f.PageNumber, boolInt(f.NeedsReview)); err != nil {
				return fmt.Errorf("inserting field %s.%s: %w", r.ID, f.Name, err)
			}
		}
	}
	return tx.Commit()
}

// SupersedeDocument soft-invalidates every record of a document. Used when
// a newer version of the same source file lands under a different hash.
func (s *Store) SupersedeDocument(ctx context.Context, docID string) error {
	if _, err := s.ExecContext(ctx, `UPDATE records SET superseded = 1 WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("superseding records for %s: %w", docID, err)
	}
	return nil
}

// SavePassages replaces the bookkeeping rows for a document's passages.
func (s *Store) SavePassages(ctx context.Context, docID string, passages []document.Passage) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE document_id = ?`, docID); err != nil {
		return fmt.Errorf("clearing passages for %s: %w", docID, err)
	}
	for _, p := range passages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO passages (id, document_id, version, seq, page_start, page_end, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.DocumentID, p.Version, p.Seq, p.PageStart, p.PageEnd, p.Text); err != nil {
			return fmt.Errorf("inserting passage %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// GetPassages loads a document's passages in sequence order.
func (s *Store) GetPassages(ctx context.Context, docID string) ([]document.Passage, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, version, seq, page_start, page_end, text FROM passages WHERE document_id = ? ORDER BY seq`, docID)
	if err != nil {
		return nil, fmt.Errorf("loading passages for %s: %w", docID, err)
	}
	defer rows.Close()

	var passages []document.Passage
	for rows.Next() {
		p := document.Passage{DocumentID: docID}
		if err := rows.Scan(&p.ID, &p.Version, &p.Seq, &p.PageStart, &p.PageEnd, &p.Text); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

// CompareOp is a typed comparison operator for numeric field predicates.
type CompareOp string

const (
	OpGT CompareOp = ">"
	OpGE CompareOp = ">="
	OpLT CompareOp = "<"
	OpLE CompareOp = "<="
)

// FieldCompare is a numeric predicate over a record field.
type FieldCompare struct {
	Name  string
	Op    CompareOp
	Value float64
}

// RecordFilter selects structured records. Zero values mean "any".
// Superseded records are excluded unless IncludeSuperseded is set.
type RecordFilter struct {
	Entity            document.Entity
	Key               string
	DocumentID        string
	PropertyName      string
	FieldEquals       map[string]string
	FieldCompare      []FieldCompare
	NeedsReview       *bool
	IncludeSuperseded bool
}

// QueryRecords fetches the records matching the filter, fields included,
// in deterministic order (document, entity, key).
func (s *Store) QueryRecords(ctx context.Context, f RecordFilter) ([]*document.StructuredRecord, error) {
	var where []string
	var args []any

	if !f.IncludeSuperseded {
		where = append(where, "r.superseded = 0")
	}
	if f.Entity != "" {
		where = append(where, "r.entity = ?")
		args = append(args, string(f.Entity))
	}
	if f.Key != "" {
		where = append(where, "r.key = ?")
		args = append(args, f.Key)
	}
	if f.DocumentID != "" {
		where = append(where, "r.document_id = ?")
		args = append(args, f.DocumentID)
	}
	if f.PropertyName != "" {
		where = append(where, "d.property_name = ?")
		args = append(args, f.PropertyName)
	}
	if f.NeedsReview != nil {
		where = append(where, "r.needs_review = ?")
		args = append(args, boolInt(*f.NeedsReview))
	}
	for name, value := range f.FieldEquals {
		where = append(where, `EXISTS (
			SELECT 1 FROM record_fields rf WHERE rf.record_id = r.id AND rf.name = ? AND rf.value = ?)`)
		args = append(args, name, value)
	}
	for _, c := range f.FieldCompare {
		switch c.Op {
		case OpGT, OpGE, OpLT, OpLE:
		default:
			return nil, fmt.Errorf("invalid comparison operator %q", c.Op)
		}
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM record_fields rf WHERE rf.record_id = r.id AND rf.name = ? AND CAST(rf.value AS REAL) %s ?)`, c.Op))
		args = append(args, c.Name, c.Value)
	}

	q := `SELECT r.id, r.document_id, r.version, r.entity, r.key, r.page_start, r.page_end, r.complete, r.needs_review
		FROM records r JOIN documents d ON d.id = r.document_id`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY r.document_id, r.entity, r.key"

	rows, err := s.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var recs []*document.StructuredRecord
	byID := make(map[string]*document.StructuredRecord)
	for rows.Next() {
		var r document.StructuredRecord
		var entity string
		var complete, needsReview int
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Version, &entity, &r.Key,
			&r.PageStart, &r.PageEnd, &complete, &needsReview); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Entity = document.Entity(entity)
		r.Complete = complete != 0
		r.NeedsReview = needsReview != 0
		recs = append(recs, &r)
		byID[r.ID] = &r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	if err := s.loadFields(ctx, byID); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Store) loadFields(ctx context.Context, byID map[string]*document.StructuredRecord) error {
	ids := make([]any, 0, len(byID))
	ph := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
		ph = append(ph, "?")
	}

	rows, err := s.QueryContext(ctx, fmt.Sprintf(`
		SELECT record_id, name, value, confidence, page_number, needs_review
		FROM record_fields WHERE record_id IN (%s) ORDER BY record_id, name`,
		strings.Join(ph, ",")), ids...)
	if err != nil {
		return fmt.Errorf("loading record fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recID string
		var f document.ExtractedField
		var needsReview int
		if err := rows.Scan(&recID, &f.Name, &f.Value, &f.Confidence, &f.PageNumber, &needsReview); err != nil {
			return fmt.Errorf("scanning field: %w", err)
		}
		f.NeedsReview = needsReview != 0
		if r, ok := byID[recID]; ok {
			f.Entity = r.Entity
			r.Fields = append(r.Fields, f)
		}
	}
	return rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
