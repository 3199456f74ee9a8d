// Package http exposes the row mapping engine over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mappa/internal/middleware/ratelimit"
	"mappa/internal/middleware/security"
	"mappa/internal/middleware/trace"
	"mappa/internal/services"
)

// Options configures the HTTP server.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server serves the mapping API.
type Server struct {
	http.Server

	mapping   *services.MappingService
	automap   *services.AutoMapProcessor
	summaries *services.SummaryService

	ips          *security.IPResolver
	limiter      *ratelimit.Limiter
	trace        *trace.Middleware
	headers      *security.HeadersMiddleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, mapping *services.MappingService, automap *services.AutoMapProcessor, summaries *services.SummaryService) *Server {
	mux := http.NewServeMux()

	ips := security.NewIPResolver()
	s := &Server{
		Server: http.Server{
			Addr:         opts.Addr,
			Handler:      mux,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		mapping:   mapping,
		automap:   automap,
		summaries: summaries,
		ips:       ips,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		trace:     trace.NewMiddleware(ips.ClientIP),
		headers:   security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/upload", s.withMiddleware(s.handleUpload))
	mux.HandleFunc("/progress", s.withMiddleware(s.handleProgress))
	mux.HandleFunc("/map", s.withMiddleware(s.handleMapRow))
	mux.HandleFunc("/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/automap", s.withMiddleware(s.handleAutoMap))
	mux.HandleFunc("/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/files/", s.withMiddleware(s.handleDeleteFile))
	mux.HandleFunc("/reset", s.withMiddleware(s.handleReset))

	return s
}

// withMiddleware wraps a handler with request tracing, security headers, and
// rate limiting for mutating methods.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.limiter.Allow(s.ips.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next(w, r)
	})
	chain := s.trace.Handler(s.headers.Handler(limited))
	return chain.ServeHTTP
}

// Shutdown stops the server and its background routines once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
