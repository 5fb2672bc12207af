// Package server exposes record evaluation and screen extraction over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/sepcheck/internal/eligibility"
	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/pipeline"
)

// Pipeline is the subset of *pipeline.Pipeline the handlers use.
type Pipeline interface {
	EvaluatePayload(ctx context.Context, data []byte, asOf time.Time) (*model.Report, error)
	ScanText(ctx context.Context, text string, asOf time.Time) (*model.Report, error)
	Engine() *eligibility.Engine
}

// Handler serves the HTTP API.
type Handler struct {
	pipeline     Pipeline
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
	maxBodyBytes int64
	timeout      time.Duration
}

// New creates a Handler. gatherer backs /metrics and may be nil.
func New(p Pipeline, gatherer prometheus.Gatherer, logger *slog.Logger, maxBodyBytes int64, timeout time.Duration) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Handler{pipeline: p, gatherer: gatherer, logger: logger, maxBodyBytes: maxBodyBytes, timeout: timeout}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))
		r.Post("/evaluate", h.handleEvaluate)
		r.Post("/extract", h.handleExtract)
	})
	return r
}

type extractRequest struct {
	Text string `json:"text"`
	AsOf string `json:"as_of,omitempty"`
}

type errorResponse struct {
	Error  string        `json:"error"`
	Code   string        `json:"code"`
	Report *model.Report `json:"report,omitempty"`
}

// handleEvaluate evaluates a record posted in the extraction payload shape.
// The evaluation date comes from the as_of query parameter (YYYY-MM-DD).
func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseAsOf(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_as_of", err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "bad_json", "request body is not valid JSON")
		return
	}

	// Extraction signals come back as reports; an error here means the
	// pipeline could not read the record at all.
	report, err := h.pipeline.EvaluatePayload(r.Context(), body, asOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_record", err.Error())
		return
	}
	h.writeReport(w, r, report)
}

// handleExtract runs the LLM on screen text and evaluates the result.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid request body")
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_as_of", err.Error())
		return
	}

	report, err := h.pipeline.ScanText(r.Context(), req.Text, asOf)
	switch {
	case errors.Is(err, pipeline.ErrEmptyText):
		writeError(w, http.StatusBadRequest, "empty_text", err.Error())
		return
	case errors.Is(err, pipeline.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, "no_provider", err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "extraction failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error(),
		)
		writeError(w, http.StatusBadGateway, "extraction_unavailable", "extraction provider failed")
		return
	}
	h.writeReport(w, r, report)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.pipeline.Engine().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"declarations": snapshot.Len(),
		"dataset":      snapshot.Source(),
	})
}

// writeReport sends 422 with the verbatim message when extraction failed.
func (h *Handler) writeReport(w http.ResponseWriter, r *http.Request, report *model.Report) {
	if report.ExtractionError != "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  report.ExtractionError,
			Code:   "extraction_failed",
			Report: report,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func parseAsOf(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(model.DatasetDateLayout, s)
	if err != nil {
		return time.Time{}, errors.New("as_of must be YYYY-MM-DD")
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
