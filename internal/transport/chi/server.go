package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/domain"
	"github.com/kailas-cloud/reag/internal/domain/document"
	"github.com/kailas-cloud/reag/internal/domain/query/result"
	domusage "github.com/kailas-cloud/reag/internal/domain/usage"
	"github.com/kailas-cloud/reag/internal/logger"
	healthuc "github.com/kailas-cloud/reag/internal/usecase/health"
	queryuc "github.com/kailas-cloud/reag/internal/usecase/query"
)

const (
	// MaxDocuments caps the documents accepted in one query.
	MaxDocuments = 1000
	maxBodyBytes = 16 << 20
)

// Querier runs a reasoning query.
type Querier interface {
	Query(ctx context.Context, question string, docs []document.Document, opts queryuc.Options) ([]result.Result, error)
}

// UsageReporter builds token usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the reag HTTP API.
type Server struct {
	query         Querier
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(query Querier, usage UsageReporter, health HealthChecker, log *zap.Logger) *Server {
	s := &Server{
		query:  query,
		usage:  usage,
		health: health,
		logger: logger.OrNop(log),
	}
	// Order matters: ErrNoMatchingDocuments wraps ErrValidation and
	// ErrRateLimited is always wrapped together with ErrTransport.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNoMatchingDocuments, http.StatusUnprocessableEntity, ErrorCodeNoMatchingDocuments),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusPaymentRequired, ErrorCodeBudgetExceeded),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, ErrorCodeEngineUnavailable),
		sentinelHandler(domain.ErrResponseShape, http.StatusBadGateway, ErrorCodeEngineResponse),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", s.Query)
		r.Get("/usage", s.GetUsage)
	})
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) > MaxDocuments {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("at most %d documents per query", MaxDocuments))
		return
	}

	docs, err := documentsFromDTO(req.Documents)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	opts, err := optionsFromDTO(req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.query.Query(ctx, req.Question, docs, opts)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ResultDTO, len(results))
	for i, res := range results {
		items[i] = resultToDTO(res)
	}
	writeJSON(w, http.StatusOK, QueryResponse{Results: items, Count: len(items)})
}

// setUsageHeaders reports engine tokens spent on the request, including
// failed requests that reached the engine.
func setUsageHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	if usage == nil || !usage.Used {
		return
	}
	w.Header().Set("X-Engine-Tokens", strconv.Itoa(usage.TotalTokens))
	w.Header().Set("X-Engine-Prompt-Tokens", strconv.Itoa(usage.PromptTokens))
	w.Header().Set("X-Engine-Completion-Tokens", strconv.Itoa(usage.CompletionTokens))
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing
// provider internals. Validation details are the caller's own input and
// are returned verbatim.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrNoMatchingDocuments,
		domain.ErrValidation,
		domain.ErrBudgetExceeded,
		domain.ErrRateLimited,
		domain.ErrTransport,
		domain.ErrResponseShape,
		context.DeadlineExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := ErrorResponse{Code: code, Message: msg}
		var qe *domain.QueryError
		if errors.As(err, &qe) {
			resp.Stage = string(qe.Stage)
		}
		writeJSON(w, status, resp)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nobody reads the body.
		w.WriteHeader(499)
		return
	}
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
