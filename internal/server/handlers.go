package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/propdoc-io/propdoc/internal/document"
	"github.com/propdoc-io/propdoc/internal/store"
)

const maxUploadBytes = 64 << 20

// docView is the JSON shape of a document.
type docView struct {
	ID           string `json:"id"`
	PropertyName string `json:"property_name"`
	Filename     string `json:"filename"`
	PageCount    int    `json:"page_count"`
	Method       string `json:"method"`
	Status       string `json:"status"`
	Version      int    `json:"version"`
	FailReason   string `json:"fail_reason,omitempty"`
}

func viewOf(d *document.Document) docView {
	return docView{
		ID:           d.ID,
		PropertyName: d.PropertyName,
		Filename:     d.Filename,
		PageCount:    d.PageCount,
		Method:       string(d.Method),
		Status:       string(d.Status),
		Version:      d.Version,
		FailReason:   d.FailReason,
	}
}

// handleUpload accepts a multipart document and starts ingestion. The
// response is 202: the document identity is known immediately from the
// bytes, the pipeline runs in the background.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload")
		return
	}
	property := r.FormValue("property")

	// The request context dies with the response; ingestion outlives it.
	docID := document.HashBytes(data)
	bg := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.pipeline.IngestBytes(bg, data, header.Filename, property); err != nil {
			slog.Error("server.ingest", "document", docID, "error", err)
		}
	}()

	writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"document_id": docID,
		"status":      string(document.StatusPending),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, viewOf(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]docView, 0, len(docs))
	for _, d := range docs {
		views = append(views, viewOf(d))
	}
	writeJSON(w, views)
}

type queryRequest struct {
	Query      string `json:"query"`
	Property   string `json:"property,omitempty"`
	Synthesize bool   `json:"synthesize,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	bundle, err := s.engine.Ask(r.Context(), req.Query, req.Property)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{"bundle": bundle}
	if req.Synthesize && s.synthesizer != nil {
		ans, err := s.synthesizer.Synthesize(r.Context(), req.Query, bundle)
		if err != nil {
			// The bundle stands on its own; synthesis failure degrades.
			slog.Warn("server.synthesize", "error", err)
			resp["synthesis_error"] = err.Error()
		} else {
			resp["answer"] = ans
		}
	}
	writeJSON(w, resp)
}

// handleHealth reports store and index health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]any{"status": "ok"}

	if err := s.store.Ping(); err != nil {
		health["status"] = "degraded"
		health["store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		docs, err := s.store.ListDocuments(r.Context())
		if err == nil {
			health["documents"] = len(docs)
		}
	}
	health["passages"] = s.index.Count()

	writeJSONStatus(w, status, health)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("server.encode", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
