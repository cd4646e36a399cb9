package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/propdoc-io/propdoc/internal/document"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one pipeline stage notification pushed to subscribers.
type Event struct {
	DocumentID string `json:"document_id"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// eventHub fans pipeline progress out to websocket subscribers, each
// filtered to one document.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan Event]string // channel -> document filter
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan Event]string)}
}

func (h *eventHub) subscribe(docID string) chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = docID
	h.mu.Unlock()
	return ch
}

func (h *eventHub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// publish is the pipeline's ProgressFunc. Slow subscribers drop events
// rather than stalling ingestion.
func (h *eventHub) publish(stage string, d *document.Document) {
	ev := Event{
		DocumentID: d.ID,
		Stage:      stage,
		Status:     string(d.Status),
		FailReason: d.FailReason,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, filter := range h.subs {
		if filter != "" && filter != d.ID {
			continue
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleDocumentEvents streams a document's pipeline stages over a
// websocket until the document reaches a terminal state or the client
// goes away.
func (s *Server) handleDocumentEvents(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("server.events.upgrade", "error", err)
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe(docID)
	defer s.hub.unsubscribe(ch)

	// If the document already settled, report that and finish.
	if doc, err := s.store.GetDocument(r.Context(), docID); err == nil {
		ev := Event{
			DocumentID: doc.ID,
			Stage:      string(doc.Status),
			Status:     string(doc.Status),
			FailReason: doc.FailReason,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
		if doc.Status == document.StatusIndexed || doc.Status == document.StatusFailed {
			return
		}
	}

	for {
		select {
		case ev := <-ch:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			if ev.Status == string(document.StatusIndexed) || ev.Status == string(document.StatusFailed) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
