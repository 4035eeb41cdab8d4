package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brandforge/api/internal/platform/httpx"
)

const defaultTimeout = 540 * time.Second

// RouterConfig carries the handlers and middleware wired into the router.
type RouterConfig struct {
	Generate *GenerateHandler
	Health   *HealthHandlers

	// Auth guards the generation endpoint.
	Auth func(http.Handler) http.Handler

	// Middlewares run for every route, before routing-specific ones.
	Middlewares []func(http.Handler) http.Handler

	Timeout time.Duration
}

// NewRouter constructs the chi router with shared middleware and the
// single-endpoint surface plus probes.
func NewRouter(cfg RouterConfig) chi.Router {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)
	for _, mw := range cfg.Middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.Use(middleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	health := cfg.Health
	if health == nil {
		health = NewHealthHandlers(nil)
	}
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	if cfg.Generate != nil {
		r.Group(func(group chi.Router) {
			if cfg.Auth != nil {
				group.Use(cfg.Auth)
			}
			group.Post("/generateContent", cfg.Generate.Generate)
		})
	}

	return r
}
