// Package api is the operational HTTP surface exposed by the loop-mode
// processes: a liveness check and the most recent cycle summary. It is a
// monitoring endpoint, not a control plane.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/innovareai/outreach-dispatcher/internal/scheduler"
)

// Server publishes /healthz and /status while a loop process runs.
type Server struct {
	httpServer *http.Server
	started    time.Time
	last       atomic.Pointer[scheduler.CycleSummary]
	cycles     atomic.Int64
}

// NewServer builds the operational server on the given listen address.
func NewServer(addr string) *Server {
	s := &Server{started: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Record publishes the summary of a completed cycle.
func (s *Server) Record(summary *scheduler.CycleSummary) {
	s.last.Store(summary)
	s.cycles.Add(1)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[API] Operational endpoint listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] Server error: %v", err)
		}
	}()
}

// Shutdown stops the server, draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"cycles": s.cycles.Load(),
	}
	if last := s.last.Load(); last != nil {
		resp["last_cycle"] = last
		resp["healthy"] = !last.Failed()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Encode response: %v", err)
	}
}
