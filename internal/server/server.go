// Package server exposes ingestion and retrieval over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/propdoc-io/propdoc/internal/answer"
	"github.com/propdoc-io/propdoc/internal/config"
	"github.com/propdoc-io/propdoc/internal/ingest"
	"github.com/propdoc-io/propdoc/internal/query"
	"github.com/propdoc-io/propdoc/internal/store"
	"github.com/propdoc-io/propdoc/internal/vectordb"
)

// Server serves the document and query APIs.
type Server struct {
	cfg         config.ServerConfig
	store       *store.Store
	index       vectordb.VectorStore
	pipeline    *ingest.Pipeline
	engine      *query.Engine
	synthesizer answer.Synthesizer // may be nil
	hub         *eventHub
	router      chi.Router
	httpServer  *http.Server
}

// New creates a Server. synthesizer may be nil; queries then return the
// bundle without prose.
func New(cfg config.ServerConfig, st *store.Store, index vectordb.VectorStore, pipeline *ingest.Pipeline, engine *query.Engine, synthesizer answer.Synthesizer) *Server {
	s := &Server{
		cfg:         cfg,
		store:       st,
		index:       index,
		pipeline:    pipeline,
		engine:      engine,
		synthesizer: synthesizer,
		hub:         newEventHub(),
	}
	pipeline.SetProgressFunc(s.hub.publish)
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/documents", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/events", s.handleDocumentEvents)
		r.Post("/query", s.handleQuery)
	})
	return r
}

// Router returns the router, with all API routes registered.
func (s *Server) Router() http.Handler { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("server.listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
