package cohortlens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/db"
	dbFile "github.com/kailas-cloud/cohortlens/internal/db/file"
	dbRedis "github.com/kailas-cloud/cohortlens/internal/db/redis"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/repository/artifact"
	analysisuc "github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/cohortlens/internal/usecase/health"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
)

const (
	driverRedis = "redis"
	driverFile  = "file"

	defaultReadinessTimeout = 10 * time.Second
)

type analysisUseCase interface {
	AnalyzeOne(ctx context.Context, raw feature.Raw) (analysisuc.SingleResult, error)
	AnalyzeBatch(ctx context.Context, rows []feature.Raw) (analysisuc.BatchResult, error)
}

type trainingUseCase interface {
	Train(ctx context.Context, rows []feature.Raw, req traininguc.Request) (traininguc.Summary, error)
}

type modelRegistry interface {
	Get(ctx context.Context) (*models.Snapshot, error)
	Reload(ctx context.Context) (*models.Snapshot, error)
}

// Client runs analysis and training in-process.
type Client struct {
	store       db.Store
	analysisSvc analysisUseCase
	trainingSvc trainingUseCase
	registry    modelRegistry
	healthSvc   healthUseCase
	obs         *observer
}

// New creates a Client and connects to the artifact store.
// The provided context is used for the readiness check and the initial model load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("cohortlens: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverRedis:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("cohortlens: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("cohortlens: create redis store: %w", err)
		}
		return s, nil
	case driverFile:
		s, err := dbFile.NewStore(dbFile.Config{Dir: cfg.dir})
		if err != nil {
			return nil, fmt.Errorf("cohortlens: create file store: %w", err)
		}
		return s, nil
	case "":
		return nil, errors.New("cohortlens: store required (use WithRedis or WithFileStore)")
	default:
		return nil, fmt.Errorf("cohortlens: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table := feature.DefaultTable()
	groups := theme.DefaultGroups()

	repo := artifact.New(store, cfg.keyPrefix)
	registry := models.New(repo, table.Version(), logger).
		WithFixtureBootstrap(cfg.bootstrap)
	if _, err := registry.Reload(ctx); err != nil {
		// Requests retry the load lazily.
		logger.Warn("Models not loaded", zap.Error(err))
	}

	analysisSvc, err := analysisuc.New(table, groups, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("cohortlens: %w", err)
	}
	trainingSvc := traininguc.New(table, groups, repo, registry, logger).
		WithDefaults(traininguc.Defaults{
			AcademicK: cfg.academicK,
			PersonaK:  cfg.personaK,
			Seed:      cfg.seed,
		})

	return &Client{
		store:       store,
		analysisSvc: analysisSvc,
		trainingSvc: trainingSvc,
		registry:    registry,
		healthSvc:   healthuc.New(store, registry),
		obs:         obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Analyze classifies one record. A missing Exam_Score is imputed and rounded
// to two decimals.
func (c *Client) Analyze(ctx context.Context, r Record) (rep Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze", start, err) }()

	res, err := c.analysisSvc.AnalyzeOne(ctx, toRaw(r))
	if err != nil {
		return Report{}, fmt.Errorf("analyze: %w", err)
	}
	return fromRow(res.RowResult), nil
}

// AnalyzeBatch classifies a table and breaks academic clusters down by persona.
func (c *Client) AnalyzeBatch(ctx context.Context, rows []Record) (rep BatchReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_batch", start, err) }()

	res, err := c.analysisSvc.AnalyzeBatch(ctx, toRawRows(rows))
	if err != nil {
		return BatchReport{}, fmt.Errorf("analyze batch: %w", err)
	}
	return fromBatch(res), nil
}

// Train fits new centroids (and optionally the score model), persists them and
// publishes them to this client. Other processes pick them up on Reload.
func (c *Client) Train(ctx context.Context, rows []Record, opts TrainOptions) (sum TrainSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("train", start, err) }()

	res, err := c.trainingSvc.Train(ctx, toRawRows(rows), traininguc.Request{
		AcademicK:      opts.AcademicK,
		PersonaK:       opts.PersonaK,
		Precision:      opts.Precision,
		MaxIterations:  opts.MaxIterations,
		AcademicLabels: opts.AcademicLabels,
		PersonaLabels:  opts.PersonaLabels,
		FitRegression:  opts.FitRegression,
		DryRun:         opts.DryRun,
	})
	if err != nil {
		return TrainSummary{}, fmt.Errorf("train: %w", err)
	}
	return fromSummary(res), nil
}

// Models returns the model context in use, loading it first if needed.
func (c *Client) Models(ctx context.Context) (m Models, err error) {
	start := time.Now()
	defer func() { c.obs.observe("models", start, err) }()

	snap, err := c.registry.Get(ctx)
	if err != nil {
		return Models{}, fmt.Errorf("models: %w", err)
	}
	return fromSnapshot(snap), nil
}

// Reload replaces the model context with the artifacts in the store.
func (c *Client) Reload(ctx context.Context) (m Models, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reload", start, err) }()

	snap, err := c.registry.Reload(ctx)
	if err != nil {
		return Models{}, fmt.Errorf("reload: %w", err)
	}
	return fromSnapshot(snap), nil
}
