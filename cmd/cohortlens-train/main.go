// Command cohortlens-train fits the centroid sets (and optionally the score
// model) from a student table and publishes them to the artifact store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/config"
	"github.com/kailas-cloud/cohortlens/internal/db"
	dbFile "github.com/kailas-cloud/cohortlens/internal/db/file"
	dbRedis "github.com/kailas-cloud/cohortlens/internal/db/redis"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	logpkg "github.com/kailas-cloud/cohortlens/internal/logger"
	"github.com/kailas-cloud/cohortlens/internal/repository/artifact"
	"github.com/kailas-cloud/cohortlens/internal/tabular"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
	"github.com/kailas-cloud/cohortlens/internal/version"
)

type cliOptions struct {
	dataPath      string
	academicK     int
	personaK      int
	precision     float64
	maxIterations int
	seed          *uint64
	regression    bool
	dryRun        bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cohortlens-train: %v\n", err)
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cohortlens-train: load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cohortlens-train: create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		logger.Error("Training failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("cohortlens-train", flag.ContinueOnError)
	fs.StringVar(&opts.dataPath, "data", "", "CSV/TSV student table to train on")
	fs.IntVar(&opts.academicK, "academic-k", 0, "Academic clusters (default from config)")
	fs.IntVar(&opts.personaK, "persona-k", 0, "Persona clusters (default from config)")
	fs.Float64Var(&opts.precision, "precision", 0, "Convergence threshold on the largest centroid shift (default from config)")
	fs.IntVar(&opts.maxIterations, "max-iter", 0, "Lloyd iteration cap (default from config)")
	fs.Func("seed", "Random seed for reproducible seeding (default from config, else time)", func(v string) error {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.New("seed must be an unsigned integer")
		}
		opts.seed = &seed
		return nil
	})
	fs.BoolVar(&opts.regression, "regression", false, "Also refit the exam score model")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Train and print without persisting")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s -data FILE [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.dataPath = strings.TrimSpace(opts.dataPath)
	if opts.dataPath == "" {
		fs.Usage()
		return opts, errors.New("missing required -data file")
	}
	if opts.academicK < 0 || opts.personaK < 0 || opts.maxIterations < 0 || opts.precision < 0 {
		return opts, errors.New("k, precision and max-iter must not be negative")
	}
	return opts, nil
}

func run(ctx context.Context, cfg config.Config, opts cliOptions, logger *zap.Logger, out io.Writer) error {
	rows, err := tabular.ReadFile(opts.dataPath, tabular.Options{})
	if err != nil {
		return err
	}
	logger.Info("Training table loaded", zap.String("path", opts.dataPath), zap.Int("rows", len(rows)))

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	table := feature.DefaultTable()
	repo := artifact.New(store, cfg.Storage.KeyPrefix)
	svc := traininguc.New(table, theme.DefaultGroups(), repo, nil, logger).
		WithDefaults(traininguc.Defaults{
			AcademicK:      cfg.Model.AcademicK,
			PersonaK:       cfg.Model.PersonaK,
			Precision:      cfg.Model.Precision,
			MaxIterations:  cfg.Model.MaxIterations,
			Seed:           cfg.Model.Seed,
			AcademicLabels: cfg.Model.AcademicLabels,
		})

	sum, err := svc.Train(ctx, rows, traininguc.Request{
		AcademicK:     opts.academicK,
		PersonaK:      opts.personaK,
		Precision:     opts.precision,
		MaxIterations: opts.maxIterations,
		Seed:          opts.seed,
		FitRegression: opts.regression,
		DryRun:        opts.dryRun,
	})
	if err != nil {
		return err
	}
	return printSummary(out, sum)
}

func printSummary(out io.Writer, sum traininguc.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", sum.RunID)
	fmt.Fprintf(tw, "feature version\t%s\n", sum.FeatureVersion)
	fmt.Fprintf(tw, "rows\t%d\n", sum.Rows)
	fmt.Fprintf(tw, "persisted\t%t\n", sum.Persisted)
	fmt.Fprintf(tw, "regression\t%t\n", sum.Regression != nil)
	fmt.Fprintf(tw, "version\t%s\n", version.String())

	for _, sp := range []traininguc.SpaceSummary{sum.Academic, sum.Persona} {
		set := sp.Set
		fmt.Fprintf(tw, "\n%s space\t%d iterations\tconverged=%t\tmax shift %.3g\n",
			set.Schema().Name(), sp.Iterations, sp.Converged, sp.MaxShift)
		fmt.Fprintf(tw, "label\tsize\t%s\n", strings.Join(set.Schema().Dims(), "\t"))
		for i := 0; i < set.K(); i++ {
			coords := make([]string, 0, set.Schema().Len())
			for _, v := range set.Point(i) {
				coords = append(coords, strconv.FormatFloat(v, 'f', 6, 64))
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", set.Label(i), sp.Sizes[i], strings.Join(coords, "\t"))
		}
	}
	return tw.Flush()
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Addrs,
			Password:   cfg.Password,
			Standalone: cfg.Standalone,
		})
	case config.DriverFile:
		return dbFile.NewStore(dbFile.Config{Dir: cfg.Dir})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
