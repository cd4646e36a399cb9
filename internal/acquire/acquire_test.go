package acquire

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
)

const densePage = `Rent Roll - Building A
Unit    Type      Sqft   Rent       Tenant            Status
01-101  MBL2AC60  850    $1,511.00  Simon Marie       Occupied
01-102  MBL2AC60  850    $1,306.00  Pottinger Margaret Occupied
01-103  MBL3AC60  1100   $1,788.00                    Vacant
Generated 03/31/2025 for management review.`

const ocrPage = `01-104 MBL2AC60 $1,402.00 Occupied 04/01/2025
Lease term runs through 03/31/2026 with monthly rent 1,402.00`

// stubRunner fakes pdftotext / pdftoppm / tesseract without touching the host.
type stubRunner struct {
	digitalText string
	digitalErr  error
	ocrText     string
	ocrErr      error
	calls       []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	switch name {
	case "pdftotext":
		if s.digitalErr != nil {
			return nil, []byte("no text layer"), s.digitalErr
		}
		return []byte(s.digitalText), nil, nil
	case "pdftoppm":
		// The acquirer globs <prefix>-*.png, so materialize one.
		prefix := args[len(args)-1]
		if err := os.WriteFile(prefix+"-1.png", []byte("png"), 0o644); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	case "tesseract":
		if s.ocrErr != nil {
			return nil, []byte("ocr boom"), s.ocrErr
		}
		return []byte(s.ocrText), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func testAcquirer(r Runner) *Acquirer {
	a := New(config.DefaultConfig())
	a.SetRunner(r)
	return a
}

func TestAcquireAllDigital(t *testing.T) {
	stub := &stubRunner{digitalText: densePage + "\f" + densePage + "\f"}
	a := testAcquirer(stub)

	pages, method, err := a.AcquireDocument(context.Background(), "roll.pdf", "doc1")
	if err != nil {
		t.Fatalf("AcquireDocument: %v", err)
	}
	if method != document.MethodDigital {
		t.Errorf("method = %s, want digital", method)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	for _, p := range pages {
		if p.Method != document.MethodDigital {
			t.Errorf("page %d method = %s", p.Number, p.Method)
		}
		if p.Confidence <= 0 || p.Confidence > 1 {
			t.Errorf("page %d confidence %v out of range", p.Number, p.Confidence)
		}
	}
	if pages[0].Number != 1 || pages[1].Number != 2 {
		t.Error("pages must be returned in order")
	}
}

func TestAcquireMixedRoutesSparsePageToOCR(t *testing.T) {
	stub := &stubRunner{
		digitalText: densePage + "\f" + "  \n " + "\f", // page 2 nearly empty
		ocrText:     ocrPage,
	}
	a := testAcquirer(stub)

	pages, method, err := a.AcquireDocument(context.Background(), "roll.pdf", "doc1")
	if err != nil {
		t.Fatalf("AcquireDocument: %v", err)
	}
	if method != document.MethodMixed {
		t.Errorf("method = %s, want mixed", method)
	}
	if pages[1].Method != document.MethodOCR {
		t.Fatalf("sparse page method = %s, want ocr", pages[1].Method)
	}
	if pages[1].Confidence > 0.85 {
		t.Errorf("OCR confidence %v exceeds ceiling", pages[1].Confidence)
	}
	if !strings.Contains(pages[1].Text, "01-104") {
		t.Error("recognized text was not captured")
	}
}

func TestAcquireOCRConfidenceNeverExceedsCeiling(t *testing.T) {
	// Text hitting every artifact bonus still caps at the ceiling.
	rich := "01-101 $1,511.00 12/31/2025 usd " + strings.Repeat("x", 200)
	if got := ocrConfidence(rich, 0.85); got > 0.85 {
		t.Errorf("ocrConfidence = %v, want <= 0.85", got)
	}
	if got := ocrConfidence("", 0.85); got != 0 {
		t.Errorf("empty text confidence = %v, want 0", got)
	}
}

func TestAcquireUnreadablePageRecordedNotFatal(t *testing.T) {
	stub := &stubRunner{
		digitalText: densePage + "\f" + " " + "\f",
		ocrErr:      fmt.Errorf("exit status 1"),
	}
	a := testAcquirer(stub)

	pages, method, err := a.AcquireDocument(context.Background(), "roll.pdf", "doc1")
	if err != nil {
		t.Fatalf("a page failing both paths must not fail the document: %v", err)
	}
	dead := pages[1]
	if dead.Text != "" || dead.Confidence != 0 {
		t.Errorf("unreadable page: text=%q confidence=%v, want empty/0", dead.Text, dead.Confidence)
	}
	if dead.Method != document.MethodNone {
		t.Errorf("unreadable page method = %s, want none", dead.Method)
	}
	if method != document.MethodDigital {
		t.Errorf("method = %s, want digital (only readable page was digital)", method)
	}
}

func TestAcquireFallsBackToWholeDocumentOCR(t *testing.T) {
	stub := &stubRunner{
		digitalErr: fmt.Errorf("exit status 1"),
		ocrText:    ocrPage,
	}
	a := testAcquirer(stub)

	pages, method, err := a.AcquireDocument(context.Background(), "scan.pdf", "doc1")
	if err != nil {
		t.Fatalf("AcquireDocument: %v", err)
	}
	if method != document.MethodOCR {
		t.Errorf("method = %s, want ocr", method)
	}
	if len(pages) != 1 || pages[0].Method != document.MethodOCR {
		t.Fatalf("expected one recognized page, got %+v", pages)
	}
}

func TestDeriveBlocksFindsTable(t *testing.T) {
	blocks := deriveBlocks(densePage)
	var hasTable bool
	for _, b := range blocks {
		if b.Kind == document.BlockTable {
			hasTable = true
			if b.Y1 <= b.Y0 {
				t.Errorf("table block has empty extent: %+v", b)
			}
		}
	}
	if !hasTable {
		t.Error("expected a table block in rent-roll text")
	}

	empty := deriveBlocks("   ")
	if len(empty) != 1 || empty[0].Kind != document.BlockImage {
		t.Errorf("blank page should yield a single image block, got %+v", empty)
	}
}

func TestDigitalConfidenceBelowDensityIsZero(t *testing.T) {
	if got := digitalConfidence("ab", 20); got != 0 {
		t.Errorf("confidence = %v, want 0 for sub-threshold density", got)
	}
	if got := digitalConfidence(densePage, 20); got < 0.6 {
		t.Errorf("dense page confidence = %v, want >= 0.6", got)
	}
}

func TestAcquireAbortKeepsPagesAcquiredSoFar(t *testing.T) {
	stub := &stubRunner{
		digitalText: densePage + "\f" + " " + "\f", // page 2 needs recognition
		ocrText:     ocrPage,
	}
	a := testAcquirer(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // dead before the recognition fallback runs

	pages, method, err := a.AcquireDocument(ctx, "roll.pdf", "doc1")
	if err == nil {
		t.Fatal("expected the context error")
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want both pages back alongside the error", len(pages))
	}
	if pages[0].Method != document.MethodDigital || !strings.Contains(pages[0].Text, "01-101") {
		t.Errorf("acquired page lost: %+v", pages[0])
	}
	if pages[1].Number != 2 || pages[1].Method != document.MethodNone {
		t.Errorf("aborted page = %+v, want a numbered placeholder", pages[1])
	}
	if method != document.MethodDigital {
		t.Errorf("method = %s, want digital (only page 1 was read)", method)
	}
}
