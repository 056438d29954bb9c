package chi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	logpkg "github.com/kailas-cloud/cohortlens/internal/logger"
	analysisuc "github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/cohortlens/internal/usecase/health"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
	"github.com/kailas-cloud/cohortlens/internal/version"
)

const defaultMaxBatchRows = 100000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the dashboard API.
type Server struct {
	analysis      *analysisuc.Service
	training      *traininguc.Service
	models        *models.Registry
	health        *healthuc.Service
	logger        *zap.Logger
	maxBatchRows  int
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	analysis *analysisuc.Service,
	training *traininguc.Service,
	registry *models.Registry,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		analysis:     analysis,
		training:     training,
		models:       registry,
		health:       health,
		logger:       logger,
		maxBatchRows: defaultMaxBatchRows,
	}
	s.errorHandlers = []errorHandler{
		bodyTooLargeHandler,
		sentinelHandler(domain.ErrInvalidK, http.StatusBadRequest, ErrorCodeInvalidK),
		sentinelHandler(domain.ErrInvalidRecord, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrMissingDimension, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmptyInput, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(errUnsupportedMedia, http.StatusUnsupportedMediaType, ErrorCodeUnsupportedMedia),
		sentinelHandler(domain.ErrStaleModel, http.StatusConflict, ErrorCodeStaleModel),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeModelsNotFound),
		sentinelHandler(domain.ErrModelNotLoaded, http.StatusServiceUnavailable, ErrorCodeModelNotLoaded),
	}
	return s
}

// WithLimits caps request bodies and batch tables. Zero keeps the current value.
func (s *Server) WithLimits(maxBodyBytes int64, maxBatchRows int) *Server {
	if maxBodyBytes > 0 {
		s.maxBodyBytes = maxBodyBytes
	}
	if maxBatchRows > 0 {
		s.maxBatchRows = maxBatchRows
	}
	return s
}

// Register mounts the routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.AnalyzeRecord)
		r.Post("/analyze/batch", s.AnalyzeBatch)
		r.Get("/models", s.GetModels)
		r.Post("/models/train", s.TrainModels)
		r.Post("/models/reload", s.ReloadModels)
	})
}

// AnalyzeRecord handles POST /v1/analyze.
func (s *Server) AnalyzeRecord(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	raw, err := decodeRecord(r.Body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.analysis.AnalyzeOne(r.Context(), raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, singleReport(res))
}

// AnalyzeBatch handles POST /v1/analyze/batch.
func (s *Server) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	rows, err := decodeTable(r, s.maxBatchRows)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	r = r.WithContext(logpkg.With(r.Context(), zap.Int("rows", len(rows))))
	res, err := s.analysis.AnalyzeBatch(r.Context(), rows)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, batchReport(res))
}

// GetModels handles GET /v1/models.
func (s *Server) GetModels(w http.ResponseWriter, r *http.Request) {
	snap, err := s.models.Get(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := modelsToResponse(snap)
	runs, err := s.models.Runs(r.Context())
	if err != nil {
		logpkg.FromContext(r.Context()).Warn("Listing training runs failed", zap.Error(err))
	} else {
		resp.Runs = runs
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReloadModels handles POST /v1/models/reload.
func (s *Server) ReloadModels(w http.ResponseWriter, r *http.Request) {
	s.models.Invalidate()
	snap, err := s.models.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modelsToResponse(snap))
}

// TrainModels handles POST /v1/models/train.
// Query parameters: academic_k, persona_k, max_iter, precision, seed, regression, dry_run.
func (s *Server) TrainModels(w http.ResponseWriter, r *http.Request) {
	req, err := trainRequestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	s.limitBody(w, r)
	rows, err := decodeTable(r, 0)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	r = r.WithContext(logpkg.With(r.Context(),
		zap.Int("rows", len(rows)),
		zap.Bool("dry_run", req.DryRun),
	))
	sum, err := s.training.Train(r.Context(), rows, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Info("Training run finished",
		zap.String("run_id", sum.RunID),
		zap.Bool("published", sum.Published),
	)

	status := http.StatusCreated
	if req.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, trainToResponse(sum))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:      string(report.Status),
		Checks:      checks,
		ModelSource: report.ModelSource,
		Version:     version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	if s.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
}

func trainRequestFromQuery(r *http.Request) (traininguc.Request, error) {
	q := r.URL.Query()
	var req traininguc.Request
	var err error

	if req.AcademicK, err = intParam(q.Get("academic_k")); err != nil {
		return req, errors.New("academic_k must be an integer")
	}
	if req.PersonaK, err = intParam(q.Get("persona_k")); err != nil {
		return req, errors.New("persona_k must be an integer")
	}
	if req.MaxIterations, err = intParam(q.Get("max_iter")); err != nil {
		return req, errors.New("max_iter must be an integer")
	}
	if v := q.Get("precision"); v != "" {
		if req.Precision, err = strconv.ParseFloat(v, 64); err != nil || req.Precision <= 0 || math.IsNaN(req.Precision) || math.IsInf(req.Precision, 0) {
			return req, errors.New("precision must be a positive number")
		}
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, errors.New("seed must be an unsigned integer")
		}
		req.Seed = &seed
	}
	if req.FitRegression, err = boolParam(q.Get("regression")); err != nil {
		return req, errors.New("regression must be a boolean")
	}
	if req.DryRun, err = boolParam(q.Get("dry_run")); err != nil {
		return req, errors.New("dry_run must be a boolean")
	}
	if req.AcademicK < 0 || req.PersonaK < 0 || req.MaxIterations < 0 {
		return req, errors.New("academic_k, persona_k and max_iter must not be negative")
	}
	return req, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
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

// clientErrors carry messages that only describe the caller's input.
var clientErrors = []error{
	domain.ErrInvalidRecord,
	domain.ErrMissingDimension,
	domain.ErrDimensionMismatch,
	domain.ErrEmptyInput,
	domain.ErrInvalidK,
	errUnsupportedMedia,
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Input errors keep their detail (row and attribute); others collapse to the sentinel text.
func safeDomainMessage(err error) string {
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrStaleModel,
		domain.ErrModelNotLoaded,
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
		writeError(w, status, code, msg)
		return true
	}
}

func bodyTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var mbe *http.MaxBytesError
	if !errors.As(err, &mbe) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
		"request body exceeds "+strconv.FormatInt(mbe.Limit, 10)+" bytes")
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
