// Package testapp is a self-contained contact list application with the
// same DOM and REST contract as the public demo, for integration runs and
// local demos.
package testapp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
)

// Server serves the contact list SPA and its REST API
type Server struct {
	store  *Store
	logger arbor.ILogger
	router chi.Router
	server *http.Server
}

// New creates a server over store
func New(store *Store, logger arbor.ILogger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the backing store
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.signupHandler)
		r.Post("/login", s.loginHandler)
		r.With(s.requireAuth).Post("/logout", s.logoutHandler)
		r.With(s.requireAuth).Get("/me", s.meHandler)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.listContactsHandler)
		r.Post("/", s.createContactHandler)
		r.Get("/{id}", s.getContactHandler)
		r.Put("/{id}", s.updateContactHandler)
		r.Delete("/{id}", s.deleteContactHandler)
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	for _, page := range pageRoutes {
		r.Get(page, s.indexHandler)
	}
	return r
}

// Start listens on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().
		Str("address", addr).
		Msg("Contact list test application starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("Shutting down test application...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
