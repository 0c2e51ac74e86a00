package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/akorchagin/policy-rag/internal/core/ports"
	"github.com/akorchagin/policy-rag/internal/observability/metrics"
)

type Options struct {
	ServiceName    string
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	queryUC ports.PolicyQueryService
	metrics *metrics.HTTPServerMetrics
	opts    Options
}

func NewRouter(queryUC ports.PolicyQueryService, m *metrics.HTTPServerMetrics, opts Options) *Router {
	if opts.ServiceName == "" {
		opts.ServiceName = "policy-rag-api"
	}
	return &Router{
		queryUC: queryUC,
		metrics: m,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.query)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.opts.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = rateLimitMiddleware(rt.opts.RateLimitRPS, rt.opts.RateLimitBurst, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
		Domain   string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json", "error_kind": "invalid_input"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required", "error_kind": "invalid_input"})
		return
	}

	start := time.Now()
	result, err := rt.queryUC.Ask(r.Context(), req.Question, req.Domain)
	if err != nil {
		rt.observeQuery(metrics.OutcomeError, 0, 0, time.Since(start))
		slog.Error("query_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error_kind", errorKind(err),
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
			"error":      err.Error(),
			"error_kind": errorKind(err),
		})
		return
	}

	outcome := metrics.OutcomeAnswered
	if len(result.Sources) == 0 {
		outcome = metrics.OutcomeNoContent
	}
	rt.observeQuery(outcome, len(result.Sources), result.Confidence, time.Since(start))

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) observeQuery(outcome string, chunks int, confidence float64, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.ObserveQuery(rt.opts.ServiceName, outcome, chunks, confidence, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
