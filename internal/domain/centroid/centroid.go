// Package centroid holds immutable labeled centroid sets.
package centroid

import (
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

// Set is a trained (or shipped) centroid set: ordered labels, one point per label.
// Label order is the tie-break order used by classification.
type Set struct {
	schema         space.Schema
	labels         []string
	points         []space.Point
	featureVersion string
	runID          string
	trainedAt      int64
}

// Meta is provenance stamped on a set at training time.
type Meta struct {
	FeatureVersion string
	RunID          string
	TrainedAt      int64
}

// New validates and creates a Set. Points are copied.
func New(schema space.Schema, labels []string, points []space.Point, meta Meta) (Set, error) {
	if len(labels) == 0 {
		return Set{}, fmt.Errorf("centroid set %s: %w", schema.Name(), domain.ErrInvalidK)
	}
	if len(labels) != len(points) {
		return Set{}, fmt.Errorf("centroid set %s: %d labels for %d points: %w",
			schema.Name(), len(labels), len(points), domain.ErrInvalidModel)
	}
	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if l == "" {
			return Set{}, fmt.Errorf("centroid set %s: label %d is empty: %w", schema.Name(), i, domain.ErrInvalidModel)
		}
		if seen[l] {
			return Set{}, fmt.Errorf("centroid set %s: duplicate label %q: %w", schema.Name(), l, domain.ErrInvalidModel)
		}
		seen[l] = true
	}
	cp := make([]space.Point, len(points))
	for i, p := range points {
		if err := schema.Check(p); err != nil {
			return Set{}, fmt.Errorf("centroid %q: %w", labels[i], err)
		}
		for _, x := range p {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return Set{}, fmt.Errorf("centroid %q has non-finite coordinate: %w", labels[i], domain.ErrInvalidModel)
			}
		}
		cp[i] = p.Clone()
	}
	if meta.TrainedAt == 0 {
		meta.TrainedAt = time.Now().UnixMilli()
	}
	return Set{
		schema:         schema,
		labels:         append([]string(nil), labels...),
		points:         cp,
		featureVersion: meta.FeatureVersion,
		runID:          meta.RunID,
		trainedAt:      meta.TrainedAt,
	}, nil
}

// Schema returns the feature space the set lives in.
func (s Set) Schema() space.Schema { return s.schema }

// K returns the number of clusters.
func (s Set) K() int { return len(s.labels) }

// Labels returns a copy of the ordered labels.
func (s Set) Labels() []string { return append([]string(nil), s.labels...) }

// Label returns the i-th label.
func (s Set) Label(i int) string { return s.labels[i] }

// Point returns a copy of the i-th centroid.
func (s Set) Point(i int) space.Point { return s.points[i].Clone() }

// Points returns copies of all centroids in label order.
func (s Set) Points() []space.Point {
	out := make([]space.Point, len(s.points))
	for i, p := range s.points {
		out[i] = p.Clone()
	}
	return out
}

// Lookup finds a centroid by label.
func (s Set) Lookup(label string) (space.Point, bool) {
	for i, l := range s.labels {
		if l == label {
			return s.points[i].Clone(), true
		}
	}
	return nil, false
}

// FeatureVersion returns the reference table fingerprint the set was trained against.
// Empty for shipped fixtures.
func (s Set) FeatureVersion() string { return s.featureVersion }

// RunID returns the training run id.
func (s Set) RunID() string { return s.runID }

// TrainedAt returns the training timestamp (unix millis).
func (s Set) TrainedAt() int64 { return s.trainedAt }

// IsZero reports whether the set was never initialized.
func (s Set) IsZero() bool { return len(s.labels) == 0 }

// Compatible reports whether s can classify points produced under featureVersion.
// Sets without a recorded version (fixtures) are always compatible.
func (s Set) Compatible(featureVersion string) bool {
	return s.featureVersion == "" || s.featureVersion == featureVersion
}

// DefaultLabels returns cluster1..clusterK.
func DefaultLabels(k int) []string {
	out := make([]string, k)
	for i := range out {
		out[i] = fmt.Sprintf("cluster%d", i+1)
	}
	return out
}
