package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ministryofjustice/rd-search-backend/internal/core/domain"
	"github.com/ministryofjustice/rd-search-backend/internal/core/ports"
	"github.com/ministryofjustice/rd-search-backend/internal/observability/metrics"
)

// generationFallbackAnswer is served when retrieval succeeded but the
// generative model failed. It matches the model's own refusal phrasing
// so clients see one "no answer text" shape, while the sources that
// were found are still returned.
const generationFallbackAnswer = "Apologies, that query cannot be answered using the supplied documents."

// Pinger reports reachability of one dependency for the full health
// check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	service  string
	searcher ports.Searcher
	answerer ports.QuestionAnswerer
	queue    ports.MessageQueue
	registry ports.CorpusRegistry
	metrics  *metrics.HTTPServerMetrics

	corpusPrefix string
	// Dependency pingers for /health-check?full=true, keyed by the name
	// reported in the response.
	dependencies map[string]Pinger
}

func NewRouter(
	service string,
	searcher ports.Searcher,
	answerer ports.QuestionAnswerer,
	queue ports.MessageQueue,
	registry ports.CorpusRegistry,
	m *metrics.HTTPServerMetrics,
	corpusPrefix string,
	dependencies map[string]Pinger,
) *Router {
	return &Router{
		service:      service,
		searcher:     searcher,
		answerer:     answerer,
		queue:        queue,
		registry:     registry,
		metrics:      m,
		corpusPrefix: corpusPrefix,
		dependencies: dependencies,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", rt.query)
	mux.HandleFunc("/health-check", rt.healthCheck)
	mux.HandleFunc("/v1/search/bm25", rt.searchBM25)
	mux.HandleFunc("/v1/search/semantic", rt.searchSemantic)
	mux.HandleFunc("/v1/search/hybrid", rt.searchHybrid)
	mux.HandleFunc("/v1/index/rebuild", rt.rebuildIndex)
	mux.HandleFunc("/v1/corpus", rt.listCorpus)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

// query answers a policy question. 200 with the answer, 404 with a null
// body when no document matched, 500 with an error object on retrieval
// failure. A generation failure still returns 200: the fallback text
// plus the sources that were retrieved.
func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	question := r.URL.Query().Get("question")
	if question == "" {
		rt.recordRejectedQuery()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'question' is required"})
		return
	}

	start := time.Now()
	answer, err := rt.answerer.Ask(r.Context(), question)
	switch {
	case err == nil:
		rt.recordAnswer("answered", answer, start)
		writeJSON(w, http.StatusOK, answer)
	case domain.IsKind(err, domain.ErrNoAnswer):
		rt.recordAnswer("no_answer", nil, start)
		writeJSON(w, http.StatusNotFound, nil)
	case domain.IsKind(err, domain.ErrGeneration) && answer != nil:
		slog.Warn("generation_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		answer.Text = generationFallbackAnswer
		rt.recordAnswer("generation_failed", answer, start)
		writeJSON(w, http.StatusOK, answer)
	default:
		slog.Error("query_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
	}
}

func (rt *Router) recordRejectedQuery() {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRejectedQuery(rt.service)
}

func (rt *Router) recordAnswer(outcome string, answer *domain.Answer, start time.Time) {
	if rt.metrics == nil {
		return
	}
	sources := 0
	if answer != nil {
		sources = len(answer.Sources)
	}
	rt.metrics.RecordAnswer(rt.service, outcome, sources)
	rt.metrics.RecordSearch(rt.service, "hybrid", sources, time.Since(start))
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if r.URL.Query().Get("full") != "true" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := http.StatusOK
	deps := make(map[string]string, len(rt.dependencies))
	for name, pinger := range rt.dependencies {
		if err := pinger.Ping(r.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "dependencies": deps})
}

func (rt *Router) searchBM25(w http.ResponseWriter, r *http.Request) {
	params, ok := rt.searchParams(w, r)
	if !ok {
		return
	}

	start := time.Now()
	docs, err := rt.searcher.BM25Search(r.Context(), params.query, params.filter, params.topK)
	rt.writeSearchResponse(w, r, "bm25", docs, err, start)
}

func (rt *Router) searchSemantic(w http.ResponseWriter, r *http.Request) {
	params, ok := rt.searchParams(w, r)
	if !ok {
		return
	}

	start := time.Now()
	docs, err := rt.searcher.SemanticSearch(r.Context(), params.query, params.filter, params.topK, params.threshold)
	rt.writeSearchResponse(w, r, "semantic", docs, err, start)
}

func (rt *Router) searchHybrid(w http.ResponseWriter, r *http.Request) {
	params, ok := rt.searchParams(w, r)
	if !ok {
		return
	}

	start := time.Now()
	docs, err := rt.searcher.HybridSearch(r.Context(), params.query, params.filter, domain.HybridOpts{
		TopK:         params.topK,
		BM25TopK:     params.bm25TopK,
		SemanticTopK: params.semanticTopK,
		Threshold:    params.threshold,
	})
	rt.writeSearchResponse(w, r, "hybrid", docs, err, start)
}

type searchParams struct {
	query        string
	filter       domain.Filter
	topK         int
	bm25TopK     int
	semanticTopK int
	threshold    float64
}

func (rt *Router) searchParams(w http.ResponseWriter, r *http.Request) (searchParams, bool) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return searchParams{}, false
	}

	q := r.URL.Query()
	params := searchParams{
		query:        q.Get("query"),
		topK:         intParam(q.Get("top_k"), 10),
		bm25TopK:     intParam(q.Get("bm25_top_k"), 0),
		semanticTopK: intParam(q.Get("semantic_top_k"), 10),
		threshold:    floatParam(q.Get("threshold"), 0.5),
	}
	if params.query == "" {
		rt.recordRejectedQuery()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'query' is required"})
		return searchParams{}, false
	}

	if raw := q.Get("filter"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.filter); err != nil {
			rt.recordRejectedQuery()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'filter' is not valid json"})
			return searchParams{}, false
		}
	}
	return params, true
}

func (rt *Router) writeSearchResponse(w http.ResponseWriter, r *http.Request, topology string, docs []domain.Document, err error, start time.Time) {
	if err != nil {
		slog.Error("search_failed",
			"request_id", requestIDFromContext(r.Context()),
			"topology", topology,
			"error", err,
		)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSearch(rt.service, topology, len(docs), time.Since(start))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": docs})
}

// rebuildIndex queues a corpus rebuild for the worker.
func (rt *Router) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = rt.corpusPrefix
	}

	if err := rt.queue.PublishRebuildRequested(r.Context(), prefix); err != nil {
		slog.Error("rebuild_publish_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "prefix": prefix})
}

func (rt *Router) listCorpus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	records, err := rt.registry.List(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if records == nil {
		records = []domain.CorpusRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": records})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func floatParam(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}
