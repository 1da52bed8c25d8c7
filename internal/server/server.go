// Package server exposes lead generation, list export, email delivery and
// geography stats over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/email"
	"github.com/sells-group/leadgen-cli/internal/metrics"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/progress"
	"github.com/sells-group/leadgen-cli/internal/store"
)

const gracefulShutdownTimeout = 5 * time.Second

// Runner executes one generation request, emitting events to sink.
type Runner interface {
	Run(ctx context.Context, req model.GenerateRequest, sink progress.Sink) (model.Event, error)
}

// Mailer delivers a lead list by email.
type Mailer interface {
	Send(ctx context.Context, req email.Request) (string, error)
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
}

// Server wires the handlers to their dependencies.
type Server struct {
	runner Runner
	store  store.Store
	mailer Mailer
	opts   Options

	// runs tracks generation runs that outlive their request.
	runs sync.WaitGroup
}

// New creates a Server. st and mailer may be nil; their routes then answer
// 503.
func New(runner Runner, st store.Store, mailer Mailer, opts Options) *Server {
	return &Server{runner: runner, store: st, mailer: mailer, opts: opts}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.RequestID,
		requestLogger,
		middleware.Recoverer,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/leads", s.handleGenerate)
		r.Get("/lists/{id}", s.handleListDetail)
		r.Get("/lists/{id}/export.csv", s.handleExportCSV)
		r.Get("/lists/{id}/export.xlsx", s.handleExportXLSX)
		r.Post("/email", s.handleEmail)
		r.Get("/geography", s.handleGeography)
	})

	return r
}

// Serve listens on ln until ctx is cancelled, then shuts down and waits for
// detached runs to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down", zap.Error(ctx.Err()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("server: listening", zap.String("addr", ln.Addr().String()))
	err := srv.Serve(ln)
	s.runs.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		return eris.Wrap(err, "server: serve")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	return dec.Decode(v)
}
