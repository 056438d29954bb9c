// Package artifact persists trained centroid sets and the score model.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/cohortlens/internal/db"
	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
)

// DefaultKeyPrefix namespaces every key written by the repository.
const DefaultKeyPrefix = "cohortlens:"

// hashTag keeps every model key in one Redis Cluster slot so MSET stays legal.
const hashTag = "{models}"

// store is the consumer interface for artifacts (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetMulti(ctx context.Context, items []db.KVItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the model loader and saver contracts.
type Repo struct {
	store  store
	prefix string
}

// New creates an artifact repository. An empty prefix selects DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

func (r *Repo) centroidKey(spaceName string) string {
	return r.prefix + hashTag + ":centroids:" + spaceName
}

func (r *Repo) regressionKey() string {
	return r.prefix + hashTag + ":regression"
}

func (r *Repo) historyKey(runID, name string) string {
	return r.prefix + hashTag + ":history:" + runID + ":" + name
}

// SaveAll writes the centroid sets and the optional score model in one atomic
// write, plus an immutable copy under the run id of the first set.
func (r *Repo) SaveAll(ctx context.Context, sets []centroid.Set, reg *regression.Model) error {
	if len(sets) == 0 {
		return fmt.Errorf("save artifacts: %w", domain.ErrEmptyInput)
	}
	runID := sets[0].RunID()

	items := make([]db.KVItem, 0, 2*len(sets)+2)
	for _, s := range sets {
		data, err := encodeSet(s)
		if err != nil {
			return err
		}
		name := s.Schema().Name()
		items = append(items, db.KVItem{Key: r.centroidKey(name), Value: data})
		if runID != "" {
			items = append(items, db.KVItem{Key: r.historyKey(runID, name), Value: data})
		}
	}
	if reg != nil {
		data, err := encodeRegression(*reg)
		if err != nil {
			return err
		}
		items = append(items, db.KVItem{Key: r.regressionKey(), Value: data})
		if runID != "" {
			items = append(items, db.KVItem{Key: r.historyKey(runID, "regression"), Value: data})
		}
	}

	if err := r.store.SetMulti(ctx, items); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	return nil
}

// LoadCentroids reads the current set for a feature space.
// A set trained against another feature table version is ErrStaleModel.
func (r *Repo) LoadCentroids(ctx context.Context, spaceName, featureVersion string) (centroid.Set, error) {
	data, err := r.store.Get(ctx, r.centroidKey(spaceName))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return centroid.Set{}, fmt.Errorf("centroid set %s: %w", spaceName, domain.ErrNotFound)
		}
		return centroid.Set{}, fmt.Errorf("get centroid set %s: %w", spaceName, err)
	}
	set, err := decodeSet(data)
	if err != nil {
		return centroid.Set{}, fmt.Errorf("centroid set %s: %w", spaceName, err)
	}
	if !set.Compatible(featureVersion) {
		return centroid.Set{}, fmt.Errorf("centroid set %s trained with %s, table is %s: %w",
			spaceName, set.FeatureVersion(), featureVersion, domain.ErrStaleModel)
	}
	return set, nil
}

// LoadRegression reads the current score model.
func (r *Repo) LoadRegression(ctx context.Context, featureVersion string) (regression.Model, error) {
	data, err := r.store.Get(ctx, r.regressionKey())
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return regression.Model{}, fmt.Errorf("regression model: %w", domain.ErrNotFound)
		}
		return regression.Model{}, fmt.Errorf("get regression model: %w", err)
	}
	m, err := decodeRegression(data)
	if err != nil {
		return regression.Model{}, err
	}
	if m.FeatureVersion() != "" && m.FeatureVersion() != featureVersion {
		return regression.Model{}, fmt.Errorf("regression model trained with %s, table is %s: %w",
			m.FeatureVersion(), featureVersion, domain.ErrStaleModel)
	}
	return m, nil
}

// ListRuns returns the ids of every persisted training run, sorted.
func (r *Repo) ListRuns(ctx context.Context) ([]string, error) {
	base := r.prefix + hashTag + ":history:"
	keys, err := r.store.Scan(ctx, base+"*")
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		rest := strings.TrimPrefix(k, base)
		if i := strings.IndexByte(rest, ':'); i > 0 {
			seen[rest[:i]] = true
		}
	}
	runs := make([]string, 0, len(seen))
	for id := range seen {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
