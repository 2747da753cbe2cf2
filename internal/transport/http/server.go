// Package http exposes the analysis pipeline over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/agent"
	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	logpkg "github.com/cvk03/-Market-intelligence-agent/internal/logger"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Analyzer is the query pipeline the server consumes.
type Analyzer interface {
	Analyze(ctx context.Context, query, insuranceType, region string) (agent.Analysis, error)
}

// Retriever is the raw retrieval contract the server consumes.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
	Size() int
}

// Server handles the API routes.
type Server struct {
	analyzer      Analyzer
	retriever     Retriever
	searchK       int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(analyzer Analyzer, retriever Retriever, searchK int, logger *zap.Logger) *Server {
	if searchK <= 0 {
		searchK = agent.DefaultSearchK
	}
	s := &Server{
		analyzer:  analyzer,
		retriever: retriever,
		searchK:   searchK,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		generationHandler,
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrEmptyCorpus, http.StatusServiceUnavailable, "index_not_ready"),
		sentinelHandler(domain.ErrNotFound, http.StatusServiceUnavailable, "index_not_ready"),
	}
	return s
}

// Router assembles the route tree with the standard middleware chain.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/query", s.HandleQuery)
	r.Post("/v1/search", s.HandleSearch)
	r.Get("/healthz", s.HandleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

type queryRequest struct {
	Query         string `json:"query"`
	InsuranceType string `json:"insurance_type"`
	State         string `json:"state"`
}

type queryResponse struct {
	Skill   string `json:"skill"`
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Sources int    `json:"sources"`
}

// HandleQuery handles POST /v1/query.
func (s *Server) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), req.Query,
		orAll(req.InsuranceType), orAll(req.State))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Skill:   analysis.Skill.String(),
		Query:   analysis.Query,
		Answer:  analysis.Answer,
		Sources: analysis.Sources,
	})
}

type searchRequest struct {
	Query         string `json:"query"`
	K             int    `json:"k"`
	InsuranceType string `json:"insurance_type"`
	State         string `json:"state"`
}

type searchResponse struct {
	Items []domain.SearchResult `json:"items"`
	Total int                   `json:"total"`
}

// HandleSearch handles POST /v1/search. Results are narrowed by the
// selectors when given, with the same fallback the analysis pipeline uses.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}
	if req.K <= 0 {
		req.K = s.searchK
	}

	results, err := s.retriever.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results = agent.Narrow(results, orAll(req.InsuranceType), orAll(req.State))
	if results == nil {
		results = []domain.SearchResult{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Items: results,
		Total: len(results),
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// HandleHealth handles GET /healthz. The service is degraded until the
// index holds documents.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	size := s.retriever.Size()

	status := "ok"
	httpStatus := http.StatusOK
	if size == 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:    status,
		Documents: size,
	})
}

// orAll treats an omitted selector as the unfiltered sentinel.
func orAll(selector string) string {
	if selector == "" {
		return domain.FilterAll
	}
	return selector
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyCorpus,
		domain.ErrNotFound,
		domain.ErrEmbeddingProvider,
		domain.ErrGeneration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// generationHandler maps generation failures by kind: rejections are the
// caller's prompt problem, transient faults are an upstream problem.
func generationHandler(w http.ResponseWriter, err error, msg string) bool {
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		return false
	}
	if genErr.Kind == domain.GenerationRejected {
		writeError(w, http.StatusUnprocessableEntity, "generation_rejected", msg)
		return true
	}
	writeError(w, http.StatusBadGateway, "generation_unavailable", msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogMiddleware emits a canonical log line per request and propagates
// X-Request-ID.
func requestLogMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
