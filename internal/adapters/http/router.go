package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
	"github.com/dmitrovk/portal-reconciler/internal/infrastructure/report/excel"
	"github.com/dmitrovk/portal-reconciler/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	suggester ports.MatchSuggester
	binder    ports.MatchBinder
	resolver  ports.DuplicateResolver
	scanner   ports.RecordScanner
	metrics   *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int

	maxInFlight      int
	backpressureWait time.Duration
}

type RouterOption func(*Router)

func WithServerMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

func WithRateLimit(rps float64, burst int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
	}
}

func WithBackpressure(maxInFlight int, wait time.Duration) RouterOption {
	return func(rt *Router) {
		rt.maxInFlight = maxInFlight
		rt.backpressureWait = wait
	}
}

func NewRouter(
	suggester ports.MatchSuggester,
	binder ports.MatchBinder,
	resolver ports.DuplicateResolver,
	scanner ports.RecordScanner,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		suggester: suggester,
		binder:    binder,
		resolver:  resolver,
		scanner:   scanner,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/suggestions", rt.suggestions)
	mux.HandleFunc("/v1/matches/bind", rt.bindMatch)
	mux.HandleFunc("/v1/duplicates/", rt.duplicateGroup)
	mux.HandleFunc("/v1/duplicates/resolve", rt.resolveDuplicates)
	mux.HandleFunc("/v1/duplicates/confirm", rt.confirmDuplicates)
	mux.HandleFunc("/v1/reports/suggestions", rt.suggestionReport)

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		RecordID string `json:"record_id"`
		Limit    int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.RecordID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record_id is required"})
		return
	}

	matches, err := rt.suggester.Suggest(r.Context(), req.RecordID, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		topScore := 0
		if len(matches) > 0 {
			topScore = matches[0].Score
		}
		rt.metrics.ObserveSuggestions(serviceName, len(matches), topScore)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id": req.RecordID,
		"matches":   matches,
	})
}

func (rt *Router) bindMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		RecordID  string `json:"record_id"`
		InvoiceID string `json:"invoice_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.RecordID) == "" || strings.TrimSpace(req.InvoiceID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record_id and invoice_id are required"})
		return
	}

	record, err := rt.binder.Bind(r.Context(), req.RecordID, req.InvoiceID)
	if rt.metrics != nil {
		rt.metrics.ObserveBind(serviceName, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) duplicateGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	number := strings.TrimPrefix(r.URL.Path, "/v1/duplicates/")
	if number == "" || strings.Contains(number, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invoice number is required"})
		return
	}

	group, err := rt.resolver.Group(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (rt *Router) resolveDuplicates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	number, invoiceID, ok := decodeGroupRequest(w, r)
	if !ok {
		return
	}

	resolution, err := rt.resolver.Resolve(r.Context(), number, invoiceID)
	if rt.metrics != nil {
		excluded := 0
		if resolution != nil {
			excluded = len(resolution.Excluded)
		}
		rt.metrics.ObserveResolution(serviceName, excluded, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

func (rt *Router) confirmDuplicates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	number, invoiceID, ok := decodeGroupRequest(w, r)
	if !ok {
		return
	}

	receipt, err := rt.resolver.Confirm(r.Context(), number, invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (rt *Router) suggestionReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	results, err := rt.scanner.ScanAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := excel.BuildSuggestionReport(results)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = report.Close() }()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+excel.ReportFilename(time.Now())+`"`)
	if err := report.Write(w); err != nil {
		// headers already sent, nothing left to report to the client
		return
	}
}

func decodeGroupRequest(w http.ResponseWriter, r *http.Request) (number, invoiceID string, ok bool) {
	var req struct {
		Number    string `json:"number"`
		InvoiceID string `json:"invoice_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return "", "", false
	}
	if strings.TrimSpace(req.Number) == "" || strings.TrimSpace(req.InvoiceID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number and invoice_id are required"})
		return "", "", false
	}
	return req.Number, req.InvoiceID, true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
