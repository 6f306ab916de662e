package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/morezero/plugin-dispatcher/pkg/handler"
)

const routesLogPrefix = "server:routes"

// healthCheck probes one dependency.
type healthCheck func(ctx context.Context) error

// HealthOutput is the body of GET /health.
type HealthOutput struct {
	Status    string            `json:"status"`
	Callsign  string            `json:"callsign"`
	Checks    map[string]string `json:"checks"`
	Uptime    int64             `json:"uptime"`
	Timestamp string            `json:"timestamp"`
}

// SubscriptionsOutput is the body of GET /subscriptions.
type SubscriptionsOutput struct {
	Callsign      string                          `json:"callsign"`
	Subscriptions map[string][]handler.Subscriber `json:"subscriptions"`
	Total         int                             `json:"total"`
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/subscriptions", s.handleSubscriptions)
	r.Get("/subscriptions/{event}", s.handleSubscriptions)
	r.Get("/journal", s.handleJournal)
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug(fmt.Sprintf("%s - %s %s %d %dms request_id=%s", routesLogPrefix,
			r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds(), middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	out := HealthOutput{
		Status:    "healthy",
		Callsign:  s.dispatcher.Callsign(),
		Checks:    make(map[string]string, len(s.checks)),
		Uptime:    int64(time.Since(s.started).Seconds()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			out.Status = "unhealthy"
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}

	code := http.StatusOK
	if out.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, out)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.dispatcher.IsActive() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	all := collectSubscriptions(s.dispatcher.JSONRPC)
	if event := chi.URLParam(r, "event"); event != "" {
		subs, ok := all[event]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no subscriptions for %q", event))
			return
		}
		all = map[string][]handler.Subscriber{event: subs}
	}

	out := SubscriptionsOutput{Callsign: s.dispatcher.Callsign(), Subscriptions: all}
	for _, subs := range all {
		out.Total += len(subs)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "subscription journal is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	entries, err := s.journal.Recent(ctx, s.dispatcher.Callsign(), limit)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - journal query: %v", routesLogPrefix, err))
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - encode response: %v", routesLogPrefix, err))
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
