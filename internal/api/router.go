package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)

	// Hub endpoint. Authentication is delegated to the transport.
	r.Get(s.wsCfg.Path, s.handleWebSocket)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	return r
}

// echoRequestID returns the request id, client supplied or generated, in
// the response headers.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(middleware.RequestIDHeader, middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	})
}

// backendCheckTimeout bounds each backend check made by /health.
const backendCheckTimeout = 2 * time.Second

// handleHealth reports the engine state and the backends. Any failing
// backend turns the status to degraded and the code to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	backends := make(map[string]string, len(s.backends))
	for name, b := range s.backends {
		ctx, cancel := context.WithTimeout(r.Context(), backendCheckTimeout)
		err := b.HealthCheck(ctx)
		cancel()
		if err != nil {
			backends[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		backends[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":           status,
		"driver_id":        s.metadata.DriverID,
		"version":          s.driverVersion(),
		"uptime_seconds":   int64(time.Since(s.startTime).Seconds()),
		"device_state":     s.DeviceState(),
		"sessions":         s.sessions.Count(),
		"setup_state":      s.SetupState().String(),
		"pending_requests": s.requests.Pending(),
		"backends":         backends,
	})
}
