package models

import (
	"context"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
)

// Loader reads persisted artifacts.
type Loader interface {
	LoadCentroids(ctx context.Context, spaceName, featureVersion string) (centroid.Set, error)
	LoadRegression(ctx context.Context, featureVersion string) (regression.Model, error)
	ListRuns(ctx context.Context) ([]string, error)
}
