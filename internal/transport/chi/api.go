package chi

import "time"

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeInvalidK         ErrorCode = "invalid_k"
	ErrorCodeModelsNotFound   ErrorCode = "models_not_found"
	ErrorCodeStaleModel       ErrorCode = "stale_model"
	ErrorCodeModelNotLoaded   ErrorCode = "model_not_loaded"
	ErrorCodePayloadTooLarge  ErrorCode = "payload_too_large"
	ErrorCodeUnsupportedMedia ErrorCode = "unsupported_media_type"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// BatchRequest is the JSON form of a batch upload.
type BatchRequest struct {
	Records []map[string]any `json:"records"`
}

// SpiderPoint is one axis of the persona spider chart.
type SpiderPoint struct {
	Subject string  `json:"subject"`
	Value   float64 `json:"value"`
}

// SpiderChart plots the theme scores of one record.
type SpiderChart struct {
	Data []SpiderPoint `json:"data"`
}

// SingleCharts holds the charts of a single report.
type SingleCharts struct {
	SpiderChart SpiderChart `json:"spider_chart"`
}

// SingleReport is the dashboard payload for one record.
type SingleReport struct {
	Type            string       `json:"type"`
	IsPredicted     bool         `json:"is_predicted"`
	ScoreValue      float64      `json:"score_value"`
	AcademicCluster string       `json:"academic_cluster"`
	PersonaCluster  string       `json:"persona_cluster"`
	Charts          SingleCharts `json:"charts"`
	OutOfDomain     []string     `json:"out_of_domain,omitempty"`
	MissingFeatures []string     `json:"missing_features,omitempty"`
}

// DistributionEntry is one cluster's share of the batch.
type DistributionEntry struct {
	Name       string  `json:"name"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

// PersonaShare is one persona's share of an academic cluster.
type PersonaShare struct {
	Persona    string  `json:"persona"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BatchCharts holds the charts of a batch report.
type BatchCharts struct {
	AcademicDistribution       []DistributionEntry       `json:"academic_distribution"`
	OverallPersonaDistribution []DistributionEntry       `json:"overall_persona_distribution"`
	PersonaPerAcademicCluster  map[string][]PersonaShare `json:"persona_per_academic_cluster"`
}

// BatchReport is the dashboard payload for a table.
type BatchReport struct {
	Type           string      `json:"type"`
	IsPredicted    bool        `json:"is_predicted"`
	PredictedCount int         `json:"predicted_count"`
	Total          int         `json:"total"`
	Charts         BatchCharts `json:"charts"`
}

// CentroidResponse is one labeled centroid.
type CentroidResponse struct {
	Label string    `json:"label"`
	Point []float64 `json:"point"`
}

// CentroidSetResponse describes one published centroid set.
type CentroidSetResponse struct {
	Space          string             `json:"space"`
	Dimensions     []string           `json:"dimensions"`
	Centroids      []CentroidResponse `json:"centroids"`
	FeatureVersion string             `json:"feature_version,omitempty"`
	RunID          string             `json:"run_id,omitempty"`
	TrainedAt      *time.Time         `json:"trained_at,omitempty"`
}

// RegressionResponse describes the published score model.
type RegressionResponse struct {
	Features  []string   `json:"features"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Source     string              `json:"source"`
	LoadedAt   time.Time           `json:"loaded_at"`
	Academic   CentroidSetResponse `json:"academic"`
	Persona    CentroidSetResponse `json:"persona"`
	Regression *RegressionResponse `json:"regression"`
	// Runs lists persisted training run ids. Omitted when the store cannot list them.
	Runs []string `json:"runs,omitempty"`
}

// TrainSpaceResponse summarizes training in one feature space.
type TrainSpaceResponse struct {
	K          int                `json:"k"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
	MaxShift   float64            `json:"max_shift"`
	Sizes      map[string]int     `json:"sizes"`
	DurationMs int64              `json:"duration_ms"`
	Centroids  []CentroidResponse `json:"centroids"`
}

// TrainResponse is the body of POST /v1/models/train.
type TrainResponse struct {
	RunID          string             `json:"run_id"`
	FeatureVersion string             `json:"feature_version"`
	Rows           int                `json:"rows"`
	Persisted      bool               `json:"persisted"`
	Published      bool               `json:"published"`
	Regression     bool               `json:"regression"`
	Academic       TrainSpaceResponse `json:"academic"`
	Persona        TrainSpaceResponse `json:"persona"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	ModelSource string            `json:"model_source,omitempty"`
	Version     string            `json:"version"`
}
