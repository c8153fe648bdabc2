// Package server exposes run history, job triggers and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/leapetl/pkg/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Trigger defaults.
const (
	DefaultTriggerRate  = 1.0
	DefaultTriggerBurst = 3
)

// Runner executes jobs. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, trigger string, selected []string, downstream bool) (*core.Run, error)
	HasJob(name string) bool
}

// Server is the status server.
type Server struct {
	addr     string
	runner   Runner
	store    core.Store
	metrics  http.Handler
	logger   *slog.Logger
	notifier *Notifier
	limiter  *rate.Limiter

	// baseCtx bounds runs started by the trigger endpoint.
	baseCtx context.Context
}

// Config holds configuration for the status server.
type Config struct {
	Addr    string
	Runner  Runner
	Store   core.Store
	Metrics http.Handler
	Logger  *slog.Logger

	// TriggerRate is the sustained number of trigger requests per second.
	TriggerRate float64
	// TriggerBurst is the number of trigger requests allowed at once.
	TriggerBurst int
}

// New creates a new status server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rps, burst := cfg.TriggerRate, cfg.TriggerBurst
	if rps <= 0 {
		rps = DefaultTriggerRate
	}
	if burst <= 0 {
		burst = DefaultTriggerBurst
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}

	return &Server{
		addr:     cfg.Addr,
		runner:   cfg.Runner,
		store:    cfg.Store,
		metrics:  metrics,
		logger:   logger,
		notifier: NewNotifier(),
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		baseCtx:  context.Background(),
	}
}

// Notifier returns the server's notifier for run events.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// RunFinished publishes a finished run to event stream subscribers.
func (s *Server) RunFinished(run *core.Run) {
	if run != nil {
		s.notifier.Broadcast(run)
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics)

	r.Route("/runs", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	r.Get("/events", s.handleEvents)

	r.With(s.rateLimit).Post("/jobs/{name}/trigger", s.handleTrigger)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting status server", slog.String("addr", s.addr))

	eg, egctx := errgroup.WithContext(ctx)
	s.baseCtx = egctx

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down status server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("trigger rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
