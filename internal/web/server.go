// Package web provides the HTTP server and handlers for the admin API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/vinacert/regadmin/internal/config"
	"github.com/vinacert/regadmin/internal/importer"
	"github.com/vinacert/regadmin/internal/logging"
	"github.com/vinacert/regadmin/internal/registry"
	mw "github.com/vinacert/regadmin/internal/web/middleware"
)

// Server is the HTTP server for the registration admin API.
type Server struct {
	cfg      *config.Config
	store    *registry.Store
	importer *importer.Pipeline
	tokens   mw.TokenValidator
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server with all routes and middleware configured.
func NewServer(cfg *config.Config, store *registry.Store, pipeline *importer.Pipeline, tokens mw.TokenValidator) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		importer: pipeline,
		tokens:   tokens,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(httprate.LimitByIP(s.cfg.Rate.RequestsPerMinute, time.Minute))
}

// setupRoutes configures all HTTP routes. Everything under /api/admin sits
// behind the admin gate.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(mw.AdminGate(s.cfg.Auth, s.tokens))

		r.Get("/companies", s.handleListCompanies)
		r.Get("/list", s.handleListRegistrations)
		r.Get("/company-code", s.handlePlainCode)
		r.Post("/set-customer-code", s.handleSetCustomerCode)

		r.Post("/product", s.handleUpsertProduct)
		r.Delete("/product/{id}", s.handleDeleteProduct)
		r.Post("/bulk-delete", s.handleBulkDelete)

		r.Post("/import-csv", s.handleImport)
		r.Get("/export", s.handleExport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"ok": true})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing to do but log
		slog.Error("json encode error", "error", err)
	}
}

// writeError logs the failure and responds with {"error": message}.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", message,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
