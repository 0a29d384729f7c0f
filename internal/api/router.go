package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/marathon/internal/auth"
	"example.com/marathon/internal/logging"
	"example.com/marathon/internal/observability"
)

// RouterConfig wires the handler into an http.Handler.
type RouterConfig struct {
	Handler        *Handler
	Auth           auth.Middleware
	AllowedOrigins []string
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handler
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", root)
	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/marathon", h.listMarathons)
	r.Get("/marathon/latest", h.latestMarathons)
	r.Get("/marathon/{id}", h.getMarathon)
	r.Post("/applications", h.createApplication)

	r.Patch("/running-data", h.mergeRunningData)
	r.Get("/api/user-stats", h.userStats)

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.Wrap)

		r.Post("/marathon", h.createMarathon)
		r.Patch("/marathon/{id}", h.updateMarathon)
		r.Delete("/marathon/{id}", h.deleteMarathon)

		r.With(auth.RequireEmailMatch).Get("/my-marathon", h.myMarathons)
		r.With(auth.RequireEmailMatch).Get("/applications", h.listApplications)
	})

	return r
}

// requestLogger tags the context with chi's request ID, then logs and
// times every request once it has been served.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		observability.ObserveHTTP(r.Method, route, status, elapsed)

		logging.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}
