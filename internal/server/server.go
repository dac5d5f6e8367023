// Package server exposes the package manager to an editor host over a
// small local JSON API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/extpm-labs/extpm/internal/catalog"
	"github.com/extpm-labs/extpm/internal/installer"
	"github.com/extpm-labs/extpm/internal/logging"
	"github.com/extpm-labs/extpm/internal/metrics"
	"github.com/extpm-labs/extpm/internal/registry"
	"github.com/extpm-labs/extpm/internal/resolver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// DefaultAddr binds to loopback only.
const DefaultAddr = "127.0.0.1:7878"

// Service is the package manager surface the API drives.
type Service interface {
	ScanAll() *catalog.Catalog
	Snapshot(ctx context.Context, force bool) (*registry.Snapshot, error)
	Plan(ctx context.Context, name string) (*resolver.Plan, error)
	Install(ctx context.Context, name string, progress installer.Progress) (*resolver.Plan, *installer.Result, error)
	Uninstall(name string) error
	Metrics() *metrics.Metrics
}

// Server routes API requests to a Service.
type Server struct {
	svc    Service
	logger *zap.Logger
	router chi.Router
}

// New builds the router.
func New(svc Service, logger *zap.Logger) *Server {
	s := &Server{svc: svc, logger: logging.OrNop(logger)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/packages", s.listPackages)
	r.Delete("/packages/{name}", s.uninstall)
	r.Get("/registry", s.getRegistry)
	r.Post("/plan", s.plan)
	r.Post("/install", s.install)
	if m := svc.Metrics(); m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled. ready, when
// non-nil, receives the bound address once listening.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
