// Package analysis composes normalization, reduction, score imputation and
// classification for single records and batches.
package analysis

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/cluster"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/metrics"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// ThemeScore is one theme's value for a record.
type ThemeScore struct {
	Name  string
	Value float64
}

// RowResult is the per-record outcome shared by both paths.
type RowResult struct {
	// Score is the raw exam score, given or imputed.
	Score     float64
	Predicted bool
	Themes    []ThemeScore
	Academic  string
	Persona   string
	// OutOfDomain names categorical attributes that normalized to the sentinel.
	OutOfDomain []string
	// Missing names theme constituents the record lacked; each counted as zero.
	Missing []string
}

// SingleResult is the outcome for one interactive record.
type SingleResult struct {
	RowResult
}

// BatchResult is the outcome for a table.
type BatchResult struct {
	Total     int
	Predicted int
	Rows      []RowResult
	Academic  cluster.Assignment
	Persona   cluster.Assignment
	CrossTab  CrossTab
}

// Service runs the analysis pipeline against the current model snapshot.
type Service struct {
	table   *feature.Table
	groups  theme.Groups
	encoder *regression.Encoder
	models  ModelSource
	logger  *zap.Logger
}

// New creates an analysis service over the given reference table and themes.
func New(table *feature.Table, groups theme.Groups, src ModelSource, logger *zap.Logger) (*Service, error) {
	if err := groups.Validate(); err != nil {
		return nil, fmt.Errorf("themes: %w", err)
	}
	if !slices.Equal(groups.Names(), space.PersonaSchema().Dims()) {
		return nil, fmt.Errorf("themes %v do not match the persona space %s", groups.Names(), space.PersonaSchema())
	}
	if _, ok := table.Lookup(feature.ExamScore); !ok {
		return nil, fmt.Errorf("feature table must declare %s", feature.ExamScore)
	}
	enc, err := regression.NewEncoder(table, regression.Predictors())
	if err != nil {
		return nil, err
	}
	return &Service{table: table, groups: groups, encoder: enc, models: src, logger: logger}, nil
}

// Analyze dispatches on the input tag.
func (s *Service) Analyze(ctx context.Context, in Input) (Result, error) {
	switch in.kind {
	case KindSingle:
		r, err := s.AnalyzeOne(ctx, in.record)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindSingle, Single: &r}, nil
	case KindBatch:
		r, err := s.AnalyzeBatch(ctx, in.rows)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindBatch, Batch: &r}, nil
	default:
		return Result{}, fmt.Errorf("analysis input has no kind: %w", domain.ErrInvalidRecord)
	}
}

// AnalyzeOne classifies one record. An imputed score is rounded to two decimals
// before it is normalized.
func (s *Service) AnalyzeOne(ctx context.Context, raw feature.Raw) (res SingleResult, err error) {
	start := time.Now()
	defer func() { observe(KindSingle, start, 1, err) }()

	snap, err := s.models.Get(ctx)
	if err != nil {
		return SingleResult{}, fmt.Errorf("models: %w", err)
	}
	p, err := s.prepare(snap, raw, true)
	if err != nil {
		return SingleResult{}, err
	}

	academic, err := cluster.AssignOne(snap.Academic, p.academic)
	if err != nil {
		return SingleResult{}, err
	}
	persona, err := cluster.AssignOne(snap.Persona, p.persona)
	if err != nil {
		return SingleResult{}, err
	}
	metrics.ClusterAssignmentsTotal.WithLabelValues(space.Academic, academic).Inc()
	metrics.ClusterAssignmentsTotal.WithLabelValues(space.Persona, persona).Inc()

	p.row.Academic = academic
	p.row.Persona = persona
	return SingleResult{RowResult: p.row}, nil
}

// AnalyzeBatch classifies every row and cross-tabulates the two assignments.
// Only rows without an exam score are imputed.
func (s *Service) AnalyzeBatch(ctx context.Context, rows []feature.Raw) (res BatchResult, err error) {
	start := time.Now()
	defer func() { observe(KindBatch, start, len(rows), err) }()

	if len(rows) == 0 {
		return BatchResult{}, fmt.Errorf("batch: %w", domain.ErrEmptyInput)
	}
	snap, err := s.models.Get(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("models: %w", err)
	}

	out := BatchResult{Total: len(rows), Rows: make([]RowResult, len(rows))}
	academicPts := make([]space.Point, len(rows))
	personaPts := make([]space.Point, len(rows))
	for i, raw := range rows {
		p, err := s.prepare(snap, raw, false)
		if err != nil {
			return BatchResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		out.Rows[i] = p.row
		academicPts[i] = p.academic
		personaPts[i] = p.persona
		if p.row.Predicted {
			out.Predicted++
		}
	}

	if out.Academic, err = cluster.Assign(snap.Academic, academicPts); err != nil {
		return BatchResult{}, err
	}
	if out.Persona, err = cluster.Assign(snap.Persona, personaPts); err != nil {
		return BatchResult{}, err
	}
	for i := range out.Rows {
		out.Rows[i].Academic = out.Academic.Rows[i]
		out.Rows[i].Persona = out.Persona.Rows[i]
	}
	countAssignments(space.Academic, out.Academic)
	countAssignments(space.Persona, out.Persona)

	out.CrossTab = CrossTabulate(out.Academic, out.Persona)
	return out, nil
}

type prepared struct {
	row      RowResult
	academic space.Point
	persona  space.Point
}

// prepare is the per-row transform shared by both paths:
// normalize, impute the score if absent, reduce, project.
func (s *Service) prepare(snap *models.Snapshot, raw feature.Raw, round bool) (prepared, error) {
	ood := s.table.OutOfDomain(raw)
	for _, f := range ood {
		metrics.OutOfDomainLabelsTotal.WithLabelValues(f).Inc()
		s.logger.Debug("Unknown categorical label", zap.String("feature", f), zap.String("value", raw[f]))
	}

	vec, err := s.table.Normalize(raw)
	if err != nil {
		return prepared{}, err
	}

	score, predicted, err := s.score(snap, raw, vec, round)
	if err != nil {
		return prepared{}, err
	}

	missing := s.groups.Missing(vec)
	if len(missing) > 0 {
		s.logger.Debug("Theme constituents missing, counted as zero", zap.Strings("features", missing))
	}
	tv := s.groups.Reduce(vec)
	academic, err := space.AcademicSchema().Project(vec)
	if err != nil {
		return prepared{}, err
	}
	persona, err := space.PersonaSchema().Project(tv.Scores)
	if err != nil {
		return prepared{}, err
	}

	themes := make([]ThemeScore, len(s.groups))
	for i, g := range s.groups {
		themes[i] = ThemeScore{Name: g.Name, Value: tv.Scores[g.Name]}
	}
	return prepared{
		row: RowResult{
			Score:       score,
			Predicted:   predicted,
			Themes:      themes,
			OutOfDomain: ood,
			Missing:     missing,
		},
		academic: academic,
		persona:  persona,
	}, nil
}

// score returns the raw exam score. When the record has none it is predicted
// and its normalized value is written into vec.
func (s *Service) score(snap *models.Snapshot, raw feature.Raw, vec feature.Vector, round bool) (float64, bool, error) {
	spec, _ := s.table.Lookup(feature.ExamScore)
	if _, ok := vec[feature.ExamScore]; ok {
		x, _, err := spec.Encode(raw[feature.ExamScore])
		return x, false, err
	}

	if snap.Regression == nil {
		return 0, false, fmt.Errorf("%s missing and no score model: %w", feature.ExamScore, domain.ErrModelNotLoaded)
	}
	x, err := s.encoder.Encode(raw)
	if err != nil {
		return 0, false, err
	}
	pred, err := snap.Regression.Predict(x)
	if err != nil {
		return 0, false, err
	}
	if round {
		pred = Round2(pred)
	}
	scaled, err := spec.Scale(pred)
	if err != nil {
		return 0, false, err
	}
	vec[feature.ExamScore] = scaled
	metrics.ImputedScoresTotal.Inc()
	s.logger.Debug("Imputed exam score", zap.Float64("score", pred))
	return pred, true, nil
}

// Round2 rounds half away from zero to two decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func countAssignments(spaceName string, a cluster.Assignment) {
	for _, l := range a.Labels {
		if n := len(a.Members[l]); n > 0 {
			metrics.ClusterAssignmentsTotal.WithLabelValues(spaceName, l).Add(float64(n))
		}
	}
}

func observe(kind Kind, start time.Time, records int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	mode := kind.String()
	metrics.AnalysisRequestsTotal.WithLabelValues(mode, status).Inc()
	metrics.AnalysisDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.AnalysisRecordsTotal.WithLabelValues(mode).Add(float64(records))
	}
}
