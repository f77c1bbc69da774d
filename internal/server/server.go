package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/article"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/auth"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/secrets"
	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Server struct {
	articles *article.Service
	store    store.Store
	verifier auth.Verifier
	secrets  secrets.Provider
	logger   *zap.Logger
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
}

func NewServer(articles *article.Service, st store.Store, v auth.Verifier, sp secrets.Provider, logger *zap.Logger) *Server {
	s := &Server{
		articles: articles,
		store:    st,
		verifier: v,
		secrets:  sp,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	// Wrapped outside the router so unmatched paths and methods are logged too.
	s.handler = s.logRequests(s.router)
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Everything under /api resolves the optional authtoken first.
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(auth.Authenticate(s.verifier, s.logger))

	api.HandleFunc("/articles/{name}", s.handleGetArticle).Methods(http.MethodGet)
	api.Handle("/articles/{name}/upvote", auth.RequireIdentity(http.HandlerFunc(s.handleUpvote))).Methods(http.MethodPut)
	api.Handle("/articles/{name}/comments", auth.RequireIdentity(http.HandlerFunc(s.handleAddComment))).Methods(http.MethodPost)
	api.HandleFunc("/get-secret", s.handleGetSecret).Methods(http.MethodGet)
}

// ServeHTTP lets the server be mounted directly, e.g. in httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Start launches the HTTP server. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
