// Package httpapi bridges the orchestrator to HTTP clients. It is a thin
// I/O adapter: every route calls the core and renders its output.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// Core is the slice of the orchestrator the HTTP adapter needs.
type Core interface {
	StartConversation(ctx context.Context, userID string) (string, error)
	EndConversation(ctx context.Context, sessionID string)
	ProcessMessageDetailed(ctx context.Context, sessionID, text string) *domain.TurnResult
	ConversationSummary(ctx context.Context, sessionID string) string
}

// Server handles the REST surface.
type Server struct {
	core   Core
	logger *slog.Logger
}

// NewHandler builds the router. gatherer may be nil to omit /metrics.
func NewHandler(core Core, logger *slog.Logger, gatherer prometheus.Gatherer) http.Handler {
	s := &Server{core: core, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Post("/conversations", s.startConversation)
	r.Post("/conversations/{id}/messages", s.postMessage)
	r.Get("/conversations/{id}/summary", s.getSummary)
	r.Delete("/conversations/{id}", s.endConversation)
	return r
}

type startRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) startConversation(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	id, err := s.core.StartConversation(r.Context(), body.UserID)
	if err != nil {
		s.logger.Error("failed to start conversation", "err", err)
		http.Error(w, "could not start conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: id})
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result := s.core.ProcessMessageDetailed(r.Context(), chi.URLParam(r, "id"), body.Text)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.core.ConversationSummary(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) endConversation(w http.ResponseWriter, r *http.Request) {
	s.core.EndConversation(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
