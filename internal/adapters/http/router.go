package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/advogai/juris-rag/internal/core/domain"
	"github.com/advogai/juris-rag/internal/core/ports"
)

// Options are the traffic-control knobs for the public surface.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	retrieval   ports.RetrievalService
	invalidator ports.CacheInvalidator
	metrics     MetricsRecorder
	opts        Options
}

// MetricsRecorder is the slice of the metrics surface the adapter needs.
type MetricsRecorder interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
}

func NewRouter(
	retrieval ports.RetrievalService,
	invalidator ports.CacheInvalidator,
	metrics MetricsRecorder,
	opts Options,
) *Router {
	return &Router{
		retrieval:   retrieval,
		invalidator: invalidator,
		metrics:     metrics,
		opts:        opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/retrieval/search", rt.search)
	mux.HandleFunc("/v1/retrieval/invalidate", rt.invalidate)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var query domain.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(query.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if strings.TrimSpace(query.TenantID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant_id is required"})
		return
	}

	result, err := rt.retrieval.Search(r.Context(), query)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) invalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.invalidator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "invalidation is not configured"})
		return
	}

	var req struct {
		TenantID string `json:"tenant_id"`
		CaseID   string `json:"case_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tenant_id is required"})
		return
	}

	var err error
	if req.CaseID != "" {
		err = rt.invalidator.InvalidateCase(r.Context(), req.TenantID, req.CaseID)
	} else {
		err = rt.invalidator.InvalidateTenant(r.Context(), req.TenantID)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
