// Package api exposes the knowledge store over HTTP for retrieval-side
// consumers. Crawling is not reachable through this surface.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ewdlop/DarkWebNote/internal/knowledge"
)

const defaultTopK = 3

// Server routes retrieval requests to a knowledge store.
type Server struct {
	mux    *http.ServeMux
	store  *knowledge.Store
	rag    *knowledge.RAG
	logger *slog.Logger
}

// NewServer wires the retrieval endpoints.
func NewServer(store *knowledge.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mux:    http.NewServeMux(),
		store:  store,
		rag:    knowledge.NewRAG(store),
		logger: logger,
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /query", s.handleQuery)
	s.mux.HandleFunc("GET /generate", s.handleGenerate)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryResponse struct {
	Query   string                        `json:"query"`
	Results []knowledge.RetrievedDocument `json:"results"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query, topK, ok := s.queryParams(w, r)
	if !ok {
		return
	}

	docs := s.store.Retrieve(query, topK)
	results := make([]knowledge.RetrievedDocument, 0, len(docs))
	for _, doc := range docs {
		results = append(results, knowledge.RetrievedDocument{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}
	s.writeJSON(w, http.StatusOK, queryResponse{Query: query, Results: results})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	query, topK, ok := s.queryParams(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.rag.Generate(query, topK))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"documents": s.store.Count(),
		"path":      s.store.Path(),
	})
}

func (s *Server) queryParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter q"})
		return "", 0, false
	}

	topK := defaultTopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parameter k must be a non-negative integer"})
			return "", 0, false
		}
		topK = parsed
	}
	return query, topK, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
