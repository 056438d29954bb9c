package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

// centroidSetRow is the JSON document stored per feature space.
type centroidSetRow struct {
	Space          string      `json:"space"`
	Dims           []string    `json:"dims"`
	Labels         []string    `json:"labels"`
	Points         [][]float64 `json:"points"`
	FeatureVersion string      `json:"feature_version"`
	RunID          string      `json:"run_id,omitempty"`
	TrainedAt      int64       `json:"trained_at"`
}

// regressionRow is the JSON document of the score model.
type regressionRow struct {
	Features       []string  `json:"features"`
	Min            []float64 `json:"min"`
	Max            []float64 `json:"max"`
	Coef           []float64 `json:"coef"`
	Intercept      float64   `json:"intercept"`
	FeatureVersion string    `json:"feature_version"`
	TrainedAt      int64     `json:"trained_at"`
}

func encodeSet(s centroid.Set) ([]byte, error) {
	pts := s.Points()
	row := centroidSetRow{
		Space:          s.Schema().Name(),
		Dims:           s.Schema().Dims(),
		Labels:         s.Labels(),
		Points:         make([][]float64, len(pts)),
		FeatureVersion: s.FeatureVersion(),
		RunID:          s.RunID(),
		TrainedAt:      s.TrainedAt(),
	}
	for i, p := range pts {
		row.Points[i] = p
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal centroid set %s: %w", s.Schema().Name(), err)
	}
	return data, nil
}

func decodeSet(data []byte) (centroid.Set, error) {
	var row centroidSetRow
	if err := json.Unmarshal(data, &row); err != nil {
		return centroid.Set{}, fmt.Errorf("unmarshal centroid set: %w: %w", domain.ErrInvalidModel, err)
	}
	schema, err := space.NewSchema(row.Space, row.Dims...)
	if err != nil {
		return centroid.Set{}, fmt.Errorf("centroid set schema: %w: %w", domain.ErrInvalidModel, err)
	}
	pts := make([]space.Point, len(row.Points))
	for i, p := range row.Points {
		pts[i] = p
	}
	set, err := centroid.New(schema, row.Labels, pts, centroid.Meta{
		FeatureVersion: row.FeatureVersion,
		RunID:          row.RunID,
		TrainedAt:      row.TrainedAt,
	})
	if err != nil {
		return centroid.Set{}, fmt.Errorf("validate: %w: %w", domain.ErrInvalidModel, err)
	}
	return set, nil
}

func encodeRegression(m regression.Model) ([]byte, error) {
	data, err := json.Marshal(regressionRow{
		Features:       m.Features(),
		Min:            m.Min(),
		Max:            m.Max(),
		Coef:           m.Coef(),
		Intercept:      m.Intercept(),
		FeatureVersion: m.FeatureVersion(),
		TrainedAt:      m.TrainedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal regression: %w", err)
	}
	return data, nil
}

func decodeRegression(data []byte) (regression.Model, error) {
	var row regressionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return regression.Model{}, fmt.Errorf("unmarshal regression: %w: %w", domain.ErrInvalidModel, err)
	}
	p := len(row.Features)
	if len(row.Min) != p || len(row.Max) != p || len(row.Coef) != p {
		return regression.Model{}, fmt.Errorf("regression artifact: ragged arrays: %w", domain.ErrInvalidModel)
	}
	return regression.Reconstruct(
		row.Features, row.Min, row.Max, row.Coef, row.Intercept,
		row.FeatureVersion, row.TrainedAt,
	), nil
}
