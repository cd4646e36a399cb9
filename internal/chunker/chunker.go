// Package chunker splits acquired page text into overlapping passages for
// embedding. Passage boundaries prefer sentence ends so retrieval hits read
// as coherent excerpts rather than mid-sentence fragments.
package chunker

import (
	"sort"
	"strings"

	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/document"
)

// Chunker produces passages with a fixed window and overlap.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker from the chunking configuration.
func New(cfg config.ChunkingConfig) *Chunker {
	return &Chunker{size: cfg.Size, overlap: cfg.Overlap}
}

// pageSpan maps a range of offsets in the joined text back to a page number.
type pageSpan struct {
	start int // inclusive offset in joined text
	end   int // exclusive
	page  int
}

// Split chunks the document text into passages. Passage IDs derive from the
// document identity, version and sequence number, so the same bytes always
// produce the same passages.
func (c *Chunker) Split(docID string, version int, pages []document.Page) []document.Passage {
	joined, spans := join(pages)
	if strings.TrimSpace(joined) == "" {
		return nil
	}

	var passages []document.Passage
	seq := 0
	start := 0
	for start < len(joined) {
		end := start + c.size
		if end >= len(joined) {
			end = len(joined)
		} else {
			end = breakpoint(joined, start, end)
		}

		text := strings.TrimSpace(joined[start:end])
		if text != "" {
			first, last := pageRange(spans, start, end)
			passages = append(passages, document.Passage{
				ID:         document.PassageID(docID, version, seq),
				DocumentID: docID,
				Version:    version,
				Seq:        seq,
				PageStart:  first,
				PageEnd:    last,
				Text:       text,
			})
			seq++
		}

		if end == len(joined) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return passages
}

// join concatenates page texts with form feeds and records which offset
// range belongs to which page.
func join(pages []document.Page) (string, []pageSpan) {
	var b strings.Builder
	var spans []pageSpan
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		start := b.Len()
		b.WriteString(p.Text)
		spans = append(spans, pageSpan{start: start, end: b.Len(), page: p.Number})
	}
	return b.String(), spans
}

// sentenceEnds mark acceptable break characters, in preference order.
var sentenceEnds = []string{". ", ".\n", "! ", "? ", "\n"}

// breakpoint finds the best cut between start+size*0.7 and start+size. A
// sentence end inside that tail wins; otherwise the hard window boundary
// stands.
func breakpoint(text string, start, hardEnd int) int {
	tailStart := start + (hardEnd-start)*7/10
	tail := text[tailStart:hardEnd]
	for _, sep := range sentenceEnds {
		if i := strings.LastIndex(tail, sep); i >= 0 {
			return tailStart + i + len(sep)
		}
	}
	return hardEnd
}

// pageRange returns the first and last page numbers a [start,end) slice of
// the joined text overlaps.
func pageRange(spans []pageSpan, start, end int) (int, int) {
	first, last := 0, 0
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > start })
	for ; i < len(spans); i++ {
		s := spans[i]
		if s.start >= end {
			break
		}
		if first == 0 {
			first = s.page
		}
		last = s.page
	}
	if first == 0 && len(spans) > 0 {
		first, last = spans[0].page, spans[0].page
	}
	return first, last
}
