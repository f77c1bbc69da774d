package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/auth"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const notFoundMessage = "That article doesn't exist"

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	view, err := s.articles.Get(r.Context(), name, auth.FromContext(r.Context()))
	if err != nil {
		s.articleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpvote(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	view, err := s.articles.Upvote(r.Context(), name, auth.FromContext(r.Context()))
	if err != nil {
		s.articleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.articles.AddComment(r.Context(), name, auth.FromContext(r.Context()), req.Text)
	if err != nil {
		s.articleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	value, err := s.secrets.GetSecret(r.Context(), name)
	if err != nil {
		s.logger.Error("Failed to get secret", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get secret")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"value": value})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// articleError maps service errors onto one status convention for all
// article routes.
func (s *Server) articleError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMessage)
		return
	}
	s.logger.Error("Article operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Database error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
