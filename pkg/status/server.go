// Package status serves run statistics and Prometheus metrics over HTTP.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/entrhq/autoanswer/pkg/answering"
	"github.com/entrhq/autoanswer/pkg/logging"
	"github.com/entrhq/autoanswer/pkg/metrics"
)

// Reporter supplies the statistics served by /stats and /cache/stats.
// *answering.Orchestrator satisfies it.
type Reporter interface {
	Report() answering.Report
}

// Server is the status HTTP server.
type Server struct {
	reporter Reporter
	metrics  *metrics.Metrics
	log      logging.Leveled
	router   *chi.Mux
}

// New builds the router. m may be nil, in which case /metrics is not served.
func New(reporter Reporter, m *metrics.Metrics, log logging.Leveled) *Server {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{reporter: reporter, metrics: m, log: log, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", s.handleStats)
	r.Get("/cache/stats", s.handleCacheStats)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.reporter.Report())
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.reporter.Report().Cache)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("status server listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("status server shutdown error: %v", err)
		return err
	}
	<-errCh
	s.log.Infof("status server stopped")
	return nil
}
