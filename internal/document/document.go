package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Status tracks a document through the ingestion pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExtracted Status = "extracted"
	StatusIndexed   Status = "indexed"
	StatusFailed    Status = "failed"
)

// AcquisitionMethod records how page text was obtained.
type AcquisitionMethod string

const (
	MethodDigital AcquisitionMethod = "digital"
	MethodOCR     AcquisitionMethod = "ocr"
	MethodMixed   AcquisitionMethod = "mixed"
	// MethodNone marks a page that yielded no text by any path.
	MethodNone AcquisitionMethod = "none"
)

// Document identifies an ingested source file by its content hash.
type Document struct {
	ID           string // SHA-256 hex of the raw bytes.
	PropertyName string
	Filename     string
	PageCount    int
	Method       AcquisitionMethod
	Status       Status
	Version      int
	FailReason   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HashBytes computes the content hash used as a Document ID.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// legalTransitions lists the allowed status moves. Failed is reachable from
// any non-terminal state and re-enters the lifecycle at pending when the
// document is ingested again; indexed documents only change via
// re-ingestion, which creates a new version.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusExtracted, StatusFailed},
	StatusExtracted: {StatusIndexed, StatusFailed},
	StatusFailed:    {StatusPending},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BlockKind classifies a layout block on a page.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockTable BlockKind = "table"
	BlockImage BlockKind = "image"
)

// LayoutBlock is a positioned region of page content.
type LayoutBlock struct {
	Kind   BlockKind
	X0, Y0 float64
	X1, Y1 float64
}

// Page holds the acquired text of a single document page.
type Page struct {
	DocumentID string
	Number     int // 1-based.
	Text       string
	Blocks     []LayoutBlock
	Method     AcquisitionMethod
	Confidence float64 // [0,1]; 0 means no text was recoverable.
}

// Passage is a bounded, overlapping chunk of page text, the unit of
// semantic retrieval. Deterministic ID: same document and sequence always
// produce the same passage identity.
type Passage struct {
	ID         string
	DocumentID string
	Version    int
	Seq        int
	PageStart  int
	PageEnd    int
	Text       string
}

// PassageID derives the deterministic identity for a chunk.
func PassageID(docID string, version, seq int) string {
	return fmt.Sprintf("%s:v%d:p%d", docID, version, seq)
}
