package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric exported by the service.
const Namespace = "cohortlens"

// Analysis and training Prometheus metrics.
var (
	AnalysisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analysis_requests_total",
			Help:      "Total number of analysis requests",
		},
		[]string{"mode", "status"}, // mode: "single" / "batch"
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	AnalysisRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "analysis_records_total",
			Help:      "Total records classified",
		},
		[]string{"mode"},
	)

	ClusterAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cluster_assignments_total",
			Help:      "Records assigned per feature space and cluster label",
		},
		[]string{"space", "label"},
	)

	OutOfDomainLabelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "out_of_domain_labels_total",
			Help:      "Categorical values that normalized to the sentinel",
		},
		[]string{"feature"},
	)

	ImputedScoresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "imputed_scores_total",
			Help:      "Exam scores filled in by the regression model",
		},
	)

	TrainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "training_runs_total",
			Help:      "Clustering runs per feature space",
		},
		[]string{"space", "converged"},
	)

	TrainingIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "training_iterations",
			Help:      "Lloyd iterations per clustering run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		},
		[]string{"space"},
	)

	TrainingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "training_duration_seconds",
			Help:      "Clustering run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"space"},
	)

	ModelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "model_clusters",
			Help:      "Cluster count of the published model per feature space and source",
		},
		[]string{"space", "source"},
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers analysis and training metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(AnalysisRequestsTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(AnalysisRecordsTotal)
	prometheus.MustRegister(ClusterAssignmentsTotal)
	prometheus.MustRegister(OutOfDomainLabelsTotal)
	prometheus.MustRegister(ImputedScoresTotal)
	prometheus.MustRegister(TrainingRunsTotal)
	prometheus.MustRegister(TrainingIterations)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(ModelInfo)
	modelMetricsRegistered = true
}
