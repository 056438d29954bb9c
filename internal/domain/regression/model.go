// Package regression imputes a missing exam score with a min-max scaled
// ordinary least squares model.
package regression

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/kailas-cloud/cohortlens/internal/domain"
)

// rcond is the relative singular value cutoff used to decide the effective rank.
const rcond = 1e-12

// Model is an immutable fitted scaler plus linear model.
type Model struct {
	features       []string
	min            []float64
	max            []float64
	coef           []float64
	intercept      float64
	featureVersion string
	trainedAt      int64
}

// Fit fits the scaler on X, then least squares with intercept on the scaled X.
// Rows of X follow the order of features.
func Fit(features []string, x [][]float64, y []float64, featureVersion string) (Model, error) {
	n := len(x)
	p := len(features)
	if n == 0 {
		return Model{}, fmt.Errorf("regression fit: %w", domain.ErrEmptyInput)
	}
	if len(y) != n {
		return Model{}, fmt.Errorf("regression fit: %d rows, %d targets: %w", n, len(y), domain.ErrInvalidRecord)
	}
	for i, row := range x {
		if len(row) != p {
			return Model{}, fmt.Errorf("regression fit: row %d: %w", i, domain.NewDimensionMismatch(p, len(row)))
		}
	}

	lo, hi := fitScaler(x, p)
	m := Model{
		features:       append([]string(nil), features...),
		min:            lo,
		max:            hi,
		featureVersion: featureVersion,
		trainedAt:      time.Now().UnixMilli(),
	}

	xs := mat.NewDense(n, p, nil)
	for i, row := range x {
		xs.SetRow(i, m.scale(row))
	}

	// Center both sides so the intercept drops out of the solve.
	xMean := make([]float64, p)
	for j := 0; j < p; j++ {
		xMean[j] = stat.Mean(mat.Col(nil, j, xs), nil)
	}
	yMean := stat.Mean(y, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			xs.Set(i, j, xs.At(i, j)-xMean[j])
		}
	}
	yc := make([]float64, n)
	for i := range y {
		yc[i] = y[i] - yMean
	}

	var svd mat.SVD
	if ok := svd.Factorize(xs, mat.SVDThin); !ok {
		return Model{}, fmt.Errorf("regression fit: svd did not converge: %w", domain.ErrInvalidModel)
	}
	m.coef = make([]float64, p)
	// Rank 0 means every scaled column is constant: the model is the mean.
	if rank := svd.Rank(rcond); rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, mat.NewVecDense(n, yc), rank)
		for j := range m.coef {
			m.coef[j] = beta.AtVec(j)
		}
	}
	m.intercept = yMean - floats.Dot(xMean, m.coef)
	return m, nil
}

// Reconstruct creates a Model without validation (storage hydration).
func Reconstruct(
	features []string, lo, hi, coef []float64, intercept float64,
	featureVersion string, trainedAt int64,
) Model {
	return Model{
		features:       features,
		min:            lo,
		max:            hi,
		coef:           coef,
		intercept:      intercept,
		featureVersion: featureVersion,
		trainedAt:      trainedAt,
	}
}

func fitScaler(x [][]float64, p int) (lo, hi []float64) {
	lo = make([]float64, p)
	hi = make([]float64, p)
	for j := 0; j < p; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, row := range x {
		for j, v := range row {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}
	return lo, hi
}

// scale applies the fitted min-max transform. Constant columns map to 0.
func (m Model) scale(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if w := m.max[j] - m.min[j]; w != 0 {
			out[j] = (v - m.min[j]) / w
		}
	}
	return out
}

// Predict returns the raw predicted score for one encoded row.
func (m Model) Predict(row []float64) (float64, error) {
	if m.IsZero() {
		return 0, fmt.Errorf("regression predict: %w", domain.ErrModelNotLoaded)
	}
	if len(row) != len(m.features) {
		return 0, fmt.Errorf("regression predict: %w", domain.NewDimensionMismatch(len(m.features), len(row)))
	}
	return m.intercept + floats.Dot(m.scale(row), m.coef), nil
}

// PredictAll predicts every row.
func (m Model) PredictAll(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v, err := m.Predict(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Features returns the predictor names in order.
func (m Model) Features() []string { return append([]string(nil), m.features...) }

// Min returns the fitted per-feature minimums.
func (m Model) Min() []float64 { return append([]float64(nil), m.min...) }

// Max returns the fitted per-feature maximums.
func (m Model) Max() []float64 { return append([]float64(nil), m.max...) }

// Coef returns the coefficients over scaled features.
func (m Model) Coef() []float64 { return append([]float64(nil), m.coef...) }

// Intercept returns the intercept.
func (m Model) Intercept() float64 { return m.intercept }

// FeatureVersion returns the reference table fingerprint the model was fitted against.
func (m Model) FeatureVersion() string { return m.featureVersion }

// TrainedAt returns the fit timestamp (unix millis).
func (m Model) TrainedAt() int64 { return m.trainedAt }

// IsZero reports whether the model was never fitted.
func (m Model) IsZero() bool { return len(m.features) == 0 }
