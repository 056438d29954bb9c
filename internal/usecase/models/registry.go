// Package models holds the process-wide model context: the centroid sets and
// score model used by inference, swapped atomically on publish.
package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
	"github.com/kailas-cloud/cohortlens/internal/metrics"
)

// Source tells where a snapshot came from.
type Source string

// Snapshot sources.
const (
	SourceStore   Source = "store"
	SourceFixture Source = "fixture"
	SourceTrained Source = "trained"
)

// Snapshot is an immutable set of models. Readers hold it for a whole request.
type Snapshot struct {
	Academic centroid.Set
	Persona  centroid.Set
	// Regression is nil when no score model is available.
	Regression *regression.Model
	Source     Source
	LoadedAt   time.Time
}

// Validate checks that both sets live in the expected feature spaces.
func (s *Snapshot) Validate() error {
	if !s.Academic.Schema().Equal(space.AcademicSchema()) {
		return fmt.Errorf("academic set has schema %s: %w", s.Academic.Schema(), domain.ErrInvalidModel)
	}
	if !s.Persona.Schema().Equal(space.PersonaSchema()) {
		return fmt.Errorf("persona set has schema %s: %w", s.Persona.Schema(), domain.ErrInvalidModel)
	}
	return nil
}

// Registry is the model context. It replaces lazily initialized globals:
// callers construct it once and pass it to the analysis and training services.
type Registry struct {
	loader         Loader
	featureVersion string
	bootstrap      bool
	logger         *zap.Logger

	current atomic.Pointer[Snapshot]
	loadMu  sync.Mutex
}

// New creates a Registry. Nothing is loaded until Get or Reload is called.
func New(loader Loader, featureVersion string, logger *zap.Logger) *Registry {
	return &Registry{loader: loader, featureVersion: featureVersion, logger: logger}
}

// WithFixtureBootstrap makes Reload fall back to the shipped fixtures when the
// store holds no usable centroid sets.
func (r *Registry) WithFixtureBootstrap(enabled bool) *Registry {
	r.bootstrap = enabled
	return r
}

// FeatureVersion returns the reference table fingerprint models must match.
func (r *Registry) FeatureVersion() string { return r.featureVersion }

// Runs lists the ids of every persisted training run, oldest id first.
func (r *Registry) Runs(ctx context.Context) ([]string, error) {
	runs, err := r.loader.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Current returns the published snapshot without loading.
func (r *Registry) Current() (*Snapshot, error) {
	if s := r.current.Load(); s != nil {
		return s, nil
	}
	return nil, domain.ErrModelNotLoaded
}

// Get returns the published snapshot, loading it on first use.
func (r *Registry) Get(ctx context.Context) (*Snapshot, error) {
	if s := r.current.Load(); s != nil {
		return s, nil
	}
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if s := r.current.Load(); s != nil {
		return s, nil
	}
	return r.reloadLocked(ctx)
}

// Invalidate drops the published snapshot. The next Get reloads from the store.
func (r *Registry) Invalidate() {
	r.current.Store(nil)
	r.logger.Info("Model context invalidated")
}

// Reload reads the artifacts from the store and publishes them.
func (r *Registry) Reload(ctx context.Context) (*Snapshot, error) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return r.reloadLocked(ctx)
}

// Publish swaps in a new snapshot. Readers see either the old or the new one, never a mix.
func (r *Registry) Publish(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("publish: %w", domain.ErrInvalidModel)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if s.LoadedAt.IsZero() {
		s.LoadedAt = time.Now()
	}
	r.current.Store(s)

	metrics.ModelInfo.Reset()
	metrics.ModelInfo.WithLabelValues(space.Academic, string(s.Source)).Set(float64(s.Academic.K()))
	metrics.ModelInfo.WithLabelValues(space.Persona, string(s.Source)).Set(float64(s.Persona.K()))

	r.logger.Info("Models published",
		zap.String("source", string(s.Source)),
		zap.String("academic_run", s.Academic.RunID()),
		zap.String("persona_run", s.Persona.RunID()),
		zap.Bool("regression", s.Regression != nil),
	)
	return nil
}

func (r *Registry) reloadLocked(ctx context.Context) (*Snapshot, error) {
	snap, err := r.loadFromStore(ctx)
	if err != nil {
		if !r.bootstrap || !isMissing(err) {
			return nil, err
		}
		r.logger.Warn("No usable centroid sets in store, using shipped fixtures", zap.Error(err))
		snap = &Snapshot{
			Academic: centroid.AcademicFixture(),
			Persona:  centroid.PersonaFixture(),
			Source:   SourceFixture,
		}
		snap.Regression = r.loadRegression(ctx)
	}
	if err := r.Publish(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Registry) loadFromStore(ctx context.Context) (*Snapshot, error) {
	academic, err := r.loader.LoadCentroids(ctx, space.Academic, r.featureVersion)
	if err != nil {
		return nil, fmt.Errorf("load academic centroids: %w", err)
	}
	persona, err := r.loader.LoadCentroids(ctx, space.Persona, r.featureVersion)
	if err != nil {
		return nil, fmt.Errorf("load persona centroids: %w", err)
	}
	return &Snapshot{
		Academic:   academic,
		Persona:    persona,
		Regression: r.loadRegression(ctx),
		Source:     SourceStore,
	}, nil
}

// loadRegression treats a missing or unreadable score model as absent.
func (r *Registry) loadRegression(ctx context.Context) *regression.Model {
	m, err := r.loader.LoadRegression(ctx, r.featureVersion)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("Score model unavailable, imputation disabled", zap.Error(err))
		}
		return nil
	}
	return &m
}

func isMissing(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStaleModel)
}
