package chi

import (
	"strings"
	"time"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	"github.com/kailas-cloud/cohortlens/internal/usecase/training"
)

// Report types.
const (
	reportSingle = "single"
	reportBatch  = "batch"
)

func singleReport(r analysis.SingleResult) SingleReport {
	data := make([]SpiderPoint, len(r.Themes))
	for i, t := range r.Themes {
		data[i] = SpiderPoint{
			Subject: strings.ReplaceAll(t.Name, "_", " "),
			Value:   analysis.Round2(t.Value * 100),
		}
	}
	return SingleReport{
		Type:            reportSingle,
		IsPredicted:     r.Predicted,
		ScoreValue:      analysis.Round2(r.Score),
		AcademicCluster: r.Academic,
		PersonaCluster:  r.Persona,
		Charts:          SingleCharts{SpiderChart: SpiderChart{Data: data}},
		OutOfDomain:     r.OutOfDomain,
		MissingFeatures: r.Missing,
	}
}

func batchReport(r analysis.BatchResult) BatchReport {
	perAcademic := make(map[string][]PersonaShare, len(r.CrossTab.Academic))
	for _, a := range r.CrossTab.Academic {
		cells := r.CrossTab.Cells[a]
		shares := make([]PersonaShare, len(cells))
		for i, c := range cells {
			shares[i] = PersonaShare{Persona: c.Label, Count: c.Count, Percentage: analysis.Round2(c.Percentage)}
		}
		perAcademic[a] = shares
	}
	return BatchReport{
		Type:           reportBatch,
		IsPredicted:    r.Predicted > 0,
		PredictedCount: r.Predicted,
		Total:          r.Total,
		Charts: BatchCharts{
			AcademicDistribution:       distribution(analysis.Distribution(r.Academic)),
			OverallPersonaDistribution: distribution(analysis.Distribution(r.Persona)),
			PersonaPerAcademicCluster:  perAcademic,
		},
	}
}

func distribution(shares []analysis.Share) []DistributionEntry {
	out := make([]DistributionEntry, len(shares))
	for i, s := range shares {
		out[i] = DistributionEntry{Name: s.Label, Value: s.Count, Percentage: analysis.Round2(s.Percentage)}
	}
	return out
}

func centroidsToResponse(s centroid.Set) []CentroidResponse {
	out := make([]CentroidResponse, s.K())
	for i := range out {
		out[i] = CentroidResponse{Label: s.Label(i), Point: s.Point(i)}
	}
	return out
}

func setToResponse(s centroid.Set) CentroidSetResponse {
	return CentroidSetResponse{
		Space:          s.Schema().Name(),
		Dimensions:     s.Schema().Dims(),
		Centroids:      centroidsToResponse(s),
		FeatureVersion: s.FeatureVersion(),
		RunID:          s.RunID(),
		TrainedAt:      millis(s.TrainedAt()),
	}
}

func modelsToResponse(snap *models.Snapshot) ModelsResponse {
	resp := ModelsResponse{
		Source:   string(snap.Source),
		LoadedAt: snap.LoadedAt.UTC(),
		Academic: setToResponse(snap.Academic),
		Persona:  setToResponse(snap.Persona),
	}
	if snap.Regression != nil {
		resp.Regression = &RegressionResponse{
			Features:  snap.Regression.Features(),
			TrainedAt: millis(snap.Regression.TrainedAt()),
		}
	}
	return resp
}

func trainToResponse(s training.Summary) TrainResponse {
	return TrainResponse{
		RunID:          s.RunID,
		FeatureVersion: s.FeatureVersion,
		Rows:           s.Rows,
		Persisted:      s.Persisted,
		Published:      s.Published,
		Regression:     s.Regression != nil,
		Academic:       trainSpaceToResponse(s.Academic),
		Persona:        trainSpaceToResponse(s.Persona),
	}
}

func trainSpaceToResponse(s training.SpaceSummary) TrainSpaceResponse {
	sizes := make(map[string]int, s.Set.K())
	for i, n := range s.Sizes {
		sizes[s.Set.Label(i)] = n
	}
	return TrainSpaceResponse{
		K:          s.Set.K(),
		Iterations: s.Iterations,
		Converged:  s.Converged,
		MaxShift:   s.MaxShift,
		Sizes:      sizes,
		DurationMs: s.Duration.Milliseconds(),
		Centroids:  centroidsToResponse(s.Set),
	}
}

// millis converts a unix-millis stamp; fixtures carry no meaningful time.
func millis(ms int64) *time.Time {
	if ms <= 1 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
