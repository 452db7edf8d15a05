package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"smarttrip/internal/metrics"
)

// NewRouter builds the HTTP routing table. The metrics handler is
// passed in so the registry stays owned by main.
func NewRouter(h *Handler, m *metrics.Metrics, metricsHandler http.Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(m, log))
	r.Use(middleware.Recoverer)

	r.Post("/recommend", h.Recommend)
	r.Post("/feedback", h.Feedback)
	r.Post("/chat", h.Chat)
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}

// requestLogger emits one structured line per request and feeds the
// HTTP metrics.
func requestLogger(m *metrics.Metrics, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			m.ObserveHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(status), elapsed.Seconds())
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("elapsed", elapsed).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request served")
		})
	}
}
