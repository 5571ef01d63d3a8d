// Package rest exposes the content store and retrieval engine over a small
// read-only HTTP API. Crawling and extraction stay CLI-driven; the server
// exists so answer generators and dashboards can query a long-running corpus.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baransitours-bot/webcra/internal/core/domain"
	"github.com/baransitours-bot/webcra/internal/core/ports/driven"
	"github.com/baransitours-bot/webcra/internal/core/ports/driving"
	"github.com/baransitours-bot/webcra/internal/logger"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server serves store contents and retrieval queries over HTTP.
type Server struct {
	store     driven.ContentStore
	retriever driving.RetrievalService

	httpServer *http.Server
}

// NewServer creates a new REST server. The retriever is optional; without it
// the query endpoint reports 503.
func NewServer(store driven.ContentStore, retriever driving.RetrievalService) *Server {
	return &Server{
		store:     store,
		retriever: retriever,
	}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/documents", s.handleDocuments)
		r.Get("/documents/history", s.handleDocumentHistory)
		r.Get("/records", s.handleRecords)
		r.Get("/records/history", s.handleRecordHistory)
		r.Post("/query", s.handleQuery)
	})
	return r
}

// Start listens on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	logger.Info("REST server listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	docs, err := s.store.GetLatestDocuments(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load documents failed")
		return
	}
	out := make([]documentPayload, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentPayload(&docs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocumentHistory(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	history, err := s.store.GetDocumentHistory(r.Context(), url)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown document url")
			return
		}
		writeError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	out := make([]documentPayload, 0, len(history))
	for i := range history {
		out = append(out, toDocumentPayload(&history[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	category := r.URL.Query().Get("category")
	records, err := s.store.GetLatestRecords(r.Context(), topic, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load records failed")
		return
	}
	out := make([]recordPayload, 0, len(records))
	for i := range records {
		out = append(out, toRecordPayload(&records[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key parameter is required")
		return
	}
	history, err := s.store.GetRecordHistory(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown record key")
			return
		}
		writeError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	out := make([]recordPayload, 0, len(history))
	for i := range history {
		out = append(out, toRecordPayload(&history[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// queryRequest is the body for POST /v1/query.
type queryRequest struct {
	Query      string `json:"query"`
	Topic      string `json:"topic"`
	Category   string `json:"category"`
	MaxItems   int    `json:"max_items"`
	CharBudget int    `json:"char_budget"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.retriever == nil {
		writeError(w, http.StatusServiceUnavailable, "retrieval not configured")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	bundle, err := s.retriever.Retrieve(r.Context(), req.Query, domain.RetrieveOptions{
		Topic:      req.Topic,
		Category:   req.Category,
		MaxItems:   req.MaxItems,
		CharBudget: req.CharBudget,
	})
	if err != nil {
		logger.Warn("Query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "retrieval failed")
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// documentPayload is the wire shape for documents. Raw HTML is deliberately
// omitted from list responses.
type documentPayload struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Depth     int       `json:"depth"`
	Version   int       `json:"version"`
	IsLatest  bool      `json:"is_latest"`
	FetchedAt time.Time `json:"fetched_at"`
}

func toDocumentPayload(doc *domain.Document) documentPayload {
	return documentPayload{
		ID:        doc.ID,
		URL:       doc.URL,
		Topic:     doc.Topic,
		Title:     doc.Title,
		Content:   doc.Content,
		Depth:     doc.Depth,
		Version:   doc.Version,
		IsLatest:  doc.IsLatest,
		FetchedAt: doc.FetchedAt,
	}
}

// recordPayload is the wire shape for records.
type recordPayload struct {
	ID         string            `json:"id"`
	Key        string            `json:"key"`
	Kind       string            `json:"kind"`
	Topic      string            `json:"topic"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	KeyPoints  []string          `json:"key_points,omitempty"`
	SourceURLs []string          `json:"source_urls"`
	Version    int               `json:"version"`
	IsLatest   bool              `json:"is_latest"`
	CreatedAt  time.Time         `json:"created_at"`
}

func toRecordPayload(rec *domain.Record) recordPayload {
	return recordPayload{
		ID:         rec.ID,
		Key:        rec.Key,
		Kind:       string(rec.Kind),
		Topic:      rec.Topic,
		Name:       rec.Name,
		Category:   rec.Category,
		Fields:     rec.Fields,
		Summary:    rec.Summary,
		KeyPoints:  rec.KeyPoints,
		SourceURLs: rec.SourceURLs,
		Version:    rec.Version,
		IsLatest:   rec.IsLatest,
		CreatedAt:  rec.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Response encoding failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
