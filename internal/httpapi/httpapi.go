// Package httpapi is the thin HTTP surface translating update/unpublish/
// delete triggers into workflow runs, grounded on xg2g's pipeline/api
// handlers (chi routing, encode/json response, request id via r.Context()).
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JungesAngebot/platform-connectors/internal/log"
	"github.com/JungesAngebot/platform-connectors/internal/workflow"
)

// response is the coarse {status} every entry point returns, per spec.md §6.
type response struct {
	Status string `json:"status"`
}

// NewRouter mounts the three trigger endpoints on a chi.Mux. requestsPerMinute
// <= 0 disables rate limiting.
func NewRouter(runner *workflow.Runner, requestsPerMinute int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(otelMiddleware)
	r.Use(requestLogger)
	if requestsPerMinute > 0 {
		r.Use(httprate.Limit(
			requestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(rateLimited),
		))
	}

	r.Post("/registry/{registryID}/update", handle(runner, workflow.EventUpdate))
	r.Post("/registry/{registryID}/unpublish", handle(runner, workflow.EventUnpublish))
	r.Post("/registry/{registryID}/delete", handle(runner, workflow.EventDelete))

	return r
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(response{Status: string(workflow.OutcomeError)})
}

func handle(runner *workflow.Runner, event workflow.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registryID := chi.URLParam(r, "registryID")
		outcome := runner.Run(r.Context(), registryID, event)

		status := http.StatusOK
		body := response{Status: string(workflow.OutcomeSuccess)}
		if outcome != workflow.OutcomeSuccess {
			status = http.StatusInternalServerError
			body.Status = string(workflow.OutcomeError)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func otelMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "httpapi")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponent("httpapi")
		logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Str("request_id", middleware.GetReqID(r.Context())).Msg("request")
		next.ServeHTTP(w, r)
	})
}
