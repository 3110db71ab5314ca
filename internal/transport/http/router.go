package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"voyageur-express/internal/app"
	"voyageur-express/internal/dataset"
	"voyageur-express/internal/domain"
)

// CompletionReader lists recently published completion events.
type CompletionReader interface {
	Recent(ctx context.Context, n int) ([]domain.Completion, error)
}

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a ping function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type RouterConfig struct {
	Service        *app.GameService
	Completions    CompletionReader
	Checks         map[string]Checker
	AllowedOrigins []string
	Logger         *zap.Logger
}

type api struct {
	service     *app.GameService
	completions CompletionReader
	checks      map[string]Checker
	logger      *zap.Logger
}

// NewRouter wires the websocket endpoint and the read-only REST API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	a := &api{
		service:     cfg.Service,
		completions: cfg.Completions,
		checks:      cfg.Checks,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", a.handleHealth)
	r.Get("/ws", NewWSHandler(cfg.Service, logger, cfg.AllowedOrigins).ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/continents", a.handleContinents)
		r.Get("/countries", a.handleCountries)
		r.Get("/completions", a.handleCompletions)
	})
	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(a.checks))
	status := http.StatusOK
	for name, c := range a.checks {
		if err := c.Check(ctx); err != nil {
			a.logger.Error("health check failed", zap.String("name", name), zap.Error(err))
			results[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
}

func (a *api) handleContinents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataset.Continents)
}

func (a *api) handleCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := a.service.Countries(r.Context(), r.URL.Query().Get("continent"))
	switch {
	case errors.Is(err, domain.ErrUnknownContinent):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.logger.Error("list countries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "dataset unavailable")
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

func (a *api) handleCompletions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	if a.completions == nil {
		writeJSON(w, http.StatusOK, []domain.Completion{})
		return
	}
	recent, err := a.completions.Recent(r.Context(), limit)
	if err != nil {
		a.logger.Error("list completions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "completions unavailable")
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func newStructuredLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Int64("duration_ms", time.Since(start).Milliseconds()),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
