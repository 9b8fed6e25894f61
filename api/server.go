// Package api exposes the query service over HTTP: search,
// augmentation probes, metadata lookup and dataset download.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tablehub/internal/augment"
	"tablehub/internal/logging"
	"tablehub/internal/profiler"
	"tablehub/ports"
)

// Server is the HTTP query service.
type Server struct {
	catalog      ports.Catalog
	matcher      *augment.Matcher
	profiler     *profiler.Profiler
	materializer ports.Materializer
	log          *logging.Logger
	http         *http.Server
}

// NewServer wires the query service
func NewServer(port int, catalog ports.Catalog, matcher *augment.Matcher, prof *profiler.Profiler, materializer ports.Materializer) *Server {
	s := &Server{
		catalog:      catalog,
		matcher:      matcher,
		profiler:     prof,
		materializer: materializer,
		log:          logging.NewDefaultLogger("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Post("/search", s.handleSearch)
	r.Get("/download/{id}", s.handleDownload)
	r.Get("/metadata/{id}", s.handleMetadata)
	r.Post("/augment", s.handleAugment)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}
	return s
}

// Handler returns the routed handler, for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests
func (s *Server) ListenAndServe() error {
	s.log.Info("listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// cors allows browser clients from any origin to POST queries.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
