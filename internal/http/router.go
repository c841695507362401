package http

import (
	"net/http"

	"shelfscan/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RouterConfig collects the handlers and middleware settings for NewRouter.
type RouterConfig struct {
	Scans          *ScanHandler
	Books          *BookHandler
	Ready          func() bool
	Logger         zerolog.Logger
	CORSOrigins    []string
	MaxUploadBytes int64
	EnableHSTS     bool
	// RateLimit guards POST /v1/scans; nil disables it.
	RateLimit *httpx.RateLimitMiddleware
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(httpx.RequestIDMiddleware)
	r.Use(httpx.AccessLogMiddleware(cfg.Logger))
	r.Use(httpx.RecoveryMiddleware(cfg.Logger))
	r.Use(httpx.SecurityHeadersMiddleware(cfg.EnableHSTS))
	r.Use(httpx.CORSMiddleware(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil && !cfg.Ready() {
			http.Error(w, "no api key configured", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimit != nil {
				r.Use(cfg.RateLimit.Middleware)
			}
			if cfg.MaxUploadBytes > 0 {
				r.Use(httpx.RequestSizeLimitMiddleware(cfg.MaxUploadBytes))
			}
			r.Post("/scans", cfg.Scans.Create)
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", cfg.Books.List)
			r.Get("/{id}", cfg.Books.Get)
			r.Post("/{id}/request", cfg.Books.Request)
			r.Post("/{id}/notify", cfg.Books.Notify)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
