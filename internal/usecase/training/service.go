// Package training fits centroid sets (and optionally the score model) from a
// table of raw records, persists them and publishes them for inference.
package training

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/cluster"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/metrics"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// Request configures one training run. Zero values fall back to the service defaults.
type Request struct {
	AcademicK      int
	PersonaK       int
	Precision      float64
	MaxIterations  int
	Seed           *uint64
	AcademicLabels []string
	PersonaLabels  []string
	// FitRegression refits the score model from rows that carry an exam score.
	FitRegression bool
	// DryRun trains without persisting or publishing.
	DryRun bool
}

// SpaceSummary describes the outcome for one feature space.
type SpaceSummary struct {
	Set        centroid.Set
	Iterations int
	Converged  bool
	MaxShift   float64
	Sizes      []int
	Duration   time.Duration
}

// Summary is the outcome of a training run.
type Summary struct {
	RunID          string
	FeatureVersion string
	Rows           int
	Academic       SpaceSummary
	Persona        SpaceSummary
	Regression     *regression.Model
	Persisted      bool
	Published      bool
}

// Defaults holds the configured fallbacks for Request fields.
type Defaults struct {
	AcademicK      int
	PersonaK       int
	Precision      float64
	MaxIterations  int
	Seed           *uint64
	AcademicLabels []string
}

// Service orchestrates training.
type Service struct {
	table     *feature.Table
	groups    theme.Groups
	saver     Saver
	publisher Publisher
	defaults  Defaults
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a training service.
func New(table *feature.Table, groups theme.Groups, saver Saver, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		table:     table,
		groups:    groups,
		saver:     saver,
		publisher: publisher,
		defaults: Defaults{
			AcademicK:     3,
			PersonaK:      5,
			Precision:     cluster.DefaultPrecision,
			MaxIterations: cluster.DefaultMaxIterations,
		},
		logger: logger,
		now:    time.Now,
	}
}

// WithDefaults overrides the fallbacks for unset Request fields.
func (s *Service) WithDefaults(d Defaults) *Service {
	if d.AcademicK > 0 {
		s.defaults.AcademicK = d.AcademicK
	}
	if d.PersonaK > 0 {
		s.defaults.PersonaK = d.PersonaK
	}
	if d.Precision > 0 {
		s.defaults.Precision = d.Precision
	}
	if d.MaxIterations > 0 {
		s.defaults.MaxIterations = d.MaxIterations
	}
	if d.Seed != nil {
		s.defaults.Seed = d.Seed
	}
	if len(d.AcademicLabels) > 0 {
		s.defaults.AcademicLabels = d.AcademicLabels
	}
	return s
}

func (s *Service) resolve(req Request) Request {
	if req.AcademicK == 0 {
		req.AcademicK = s.defaults.AcademicK
	}
	if req.PersonaK == 0 {
		req.PersonaK = s.defaults.PersonaK
	}
	if req.Precision == 0 {
		req.Precision = s.defaults.Precision
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = s.defaults.MaxIterations
	}
	if req.Seed == nil {
		req.Seed = s.defaults.Seed
	}
	if len(req.AcademicLabels) == 0 && len(s.defaults.AcademicLabels) == req.AcademicK {
		req.AcademicLabels = s.defaults.AcademicLabels
	}
	if len(req.AcademicLabels) == 0 {
		req.AcademicLabels = centroid.DefaultLabels(req.AcademicK)
	}
	if len(req.PersonaLabels) == 0 {
		req.PersonaLabels = centroid.DefaultLabels(req.PersonaK)
	}
	return req
}

// Train fits both centroid sets concurrently from rows, then persists and
// publishes them together. Rows go through the same normalization and
// reduction as inference; every row must carry both academic dimensions.
func (s *Service) Train(ctx context.Context, rows []feature.Raw, req Request) (Summary, error) {
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("train: %w", domain.ErrEmptyInput)
	}
	req = s.resolve(req)
	if len(req.AcademicLabels) != req.AcademicK || len(req.PersonaLabels) != req.PersonaK {
		return Summary{}, fmt.Errorf("train: label count does not match k: %w", domain.ErrInvalidK)
	}

	vectors, err := s.table.NormalizeBatch(rows)
	if err != nil {
		return Summary{}, fmt.Errorf("train: normalize: %w", err)
	}
	themes := s.groups.ReduceBatch(vectors)

	academicRows := make([]map[string]float64, len(vectors))
	personaRows := make([]map[string]float64, len(themes))
	for i := range vectors {
		academicRows[i] = vectors[i]
		personaRows[i] = themes[i].Scores
	}
	academicPts, err := space.AcademicSchema().ProjectAll(academicRows)
	if err != nil {
		return Summary{}, fmt.Errorf("train: %w", err)
	}
	personaPts, err := space.PersonaSchema().ProjectAll(personaRows)
	if err != nil {
		return Summary{}, fmt.Errorf("train: %w", err)
	}

	sum := Summary{
		RunID:          uuid.NewString(),
		FeatureVersion: s.table.Version(),
		Rows:           len(rows),
	}
	meta := centroid.Meta{FeatureVersion: sum.FeatureVersion, RunID: sum.RunID, TrainedAt: s.now().UnixMilli()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.Academic, err = s.fit(gctx, space.AcademicSchema(), academicPts, req.AcademicK, req.AcademicLabels, req, 1, meta)
		return err
	})
	g.Go(func() error {
		var err error
		sum.Persona, err = s.fit(gctx, space.PersonaSchema(), personaPts, req.PersonaK, req.PersonaLabels, req, 2, meta)
		return err
	})
	if req.FitRegression {
		g.Go(func() error {
			m, err := s.fitRegression(gctx, rows)
			if err != nil {
				return err
			}
			sum.Regression = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	s.logger.Info("Training finished",
		zap.String("run_id", sum.RunID),
		zap.Int("rows", sum.Rows),
		zap.Int("academic_iterations", sum.Academic.Iterations),
		zap.Int("persona_iterations", sum.Persona.Iterations),
		zap.Bool("regression", sum.Regression != nil),
	)

	if req.DryRun {
		return sum, nil
	}

	if err := s.saver.SaveAll(ctx, []centroid.Set{sum.Academic.Set, sum.Persona.Set}, sum.Regression); err != nil {
		return Summary{}, fmt.Errorf("train: persist: %w", err)
	}
	sum.Persisted = true

	if s.publisher != nil {
		snap := &models.Snapshot{
			Academic:   sum.Academic.Set,
			Persona:    sum.Persona.Set,
			Regression: sum.Regression,
			Source:     models.SourceTrained,
		}
		if sum.Regression == nil {
			snap.Regression = s.currentRegression()
		}
		if err := s.publisher.Publish(snap); err != nil {
			return Summary{}, fmt.Errorf("train: publish: %w", err)
		}
		sum.Published = true
	}
	return sum, nil
}

// currentRegression keeps the live score model when the run did not refit one.
func (s *Service) currentRegression() *regression.Model {
	snap, err := s.publisher.Current()
	if err != nil {
		return nil
	}
	return snap.Regression
}

func (s *Service) fit(
	ctx context.Context, schema space.Schema, pts []space.Point, k int, labels []string,
	req Request, stream uint64, meta centroid.Meta,
) (SpaceSummary, error) {
	if err := ctx.Err(); err != nil {
		return SpaceSummary{}, err
	}
	start := time.Now()
	res, err := cluster.Train(pts, cluster.Options{
		K:             k,
		Precision:     req.Precision,
		MaxIterations: req.MaxIterations,
		Rand:          newRand(req.Seed, stream),
	})
	if err != nil {
		return SpaceSummary{}, fmt.Errorf("train %s: %w", schema.Name(), err)
	}
	elapsed := time.Since(start)

	metrics.TrainingRunsTotal.WithLabelValues(schema.Name(), strconv.FormatBool(res.Converged)).Inc()
	metrics.TrainingIterations.WithLabelValues(schema.Name()).Observe(float64(res.Iterations))
	metrics.TrainingDuration.WithLabelValues(schema.Name()).Observe(elapsed.Seconds())

	if !res.Converged {
		s.logger.Warn("Clustering did not converge",
			zap.String("space", schema.Name()),
			zap.Int("iterations", res.Iterations),
			zap.Float64("max_shift", res.MaxShift),
			zap.Float64("precision", req.Precision),
		)
	}

	set, err := res.Set(schema, labels, meta)
	if err != nil {
		return SpaceSummary{}, fmt.Errorf("train %s: %w", schema.Name(), err)
	}
	return SpaceSummary{
		Set:        set,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		MaxShift:   res.MaxShift,
		Sizes:      res.Sizes(),
		Duration:   elapsed,
	}, nil
}

func (s *Service) fitRegression(ctx context.Context, rows []feature.Raw) (*regression.Model, error) {
	enc, err := regression.NewEncoder(s.table, regression.Predictors())
	if err != nil {
		return nil, err
	}
	spec, _ := s.table.Lookup(feature.ExamScore)

	var x [][]float64
	var y []float64
	for i, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cell, ok := r[feature.ExamScore]
		if !ok {
			continue
		}
		score, status, err := spec.Encode(cell)
		if err != nil {
			return nil, fmt.Errorf("regression row %d: %w", i, err)
		}
		if status != feature.Known {
			continue
		}
		row, err := enc.Encode(r)
		if err != nil {
			return nil, fmt.Errorf("regression row %d: %w", i, err)
		}
		x = append(x, row)
		y = append(y, score)
	}

	m, err := regression.Fit(enc.Names(), x, y, s.table.Version())
	if err != nil {
		return nil, fmt.Errorf("train regression: %w", err)
	}
	return &m, nil
}

// newRand gives each feature space its own stream so concurrent fits stay reproducible.
func newRand(seed *uint64, stream uint64) *rand.Rand {
	if seed == nil {
		return nil
	}
	return rand.New(rand.NewPCG(*seed, stream))
}
