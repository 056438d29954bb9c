package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

// Nearest returns the index of the centroid closest to p in Euclidean distance.
// Ties go to the earliest centroid. Lengths are not checked: Assign and AssignOne
// check p against the set schema, and centroid.New checks every centroid,
// including sets loaded from storage.
func Nearest(p space.Point, centroids []space.Point) int {
	best := 0
	bestDist := floats.Distance(p, centroids[0], 2)
	for c := 1; c < len(centroids); c++ {
		if d := floats.Distance(p, centroids[c], 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Assignment maps each cluster label to the ordered row indices assigned to it.
type Assignment struct {
	// Labels are the set's labels in declaration order.
	Labels []string
	// Members holds row indices in original row order. Empty clusters have no entry.
	Members map[string][]int
	// Rows[i] is the label of row i.
	Rows []string
}

// Size returns the number of rows assigned to label.
func (a Assignment) Size(label string) int { return len(a.Members[label]) }

// AssignOne classifies a single point.
func AssignOne(set centroid.Set, p space.Point) (string, error) {
	if err := set.Schema().Check(p); err != nil {
		return "", fmt.Errorf("assign %s: %w", set.Schema().Name(), err)
	}
	return set.Label(Nearest(p, set.Points())), nil
}

// Assign classifies every point against the same centroid set.
func Assign(set centroid.Set, points []space.Point) (Assignment, error) {
	schema := set.Schema()
	for i, p := range points {
		if err := schema.Check(p); err != nil {
			return Assignment{}, fmt.Errorf("assign %s: row %d: %w", schema.Name(), i, err)
		}
	}

	centroids := set.Points()
	out := Assignment{
		Labels:  set.Labels(),
		Members: make(map[string][]int, set.K()),
		Rows:    make([]string, len(points)),
	}
	for i, p := range points {
		label := set.Label(Nearest(p, centroids))
		out.Members[label] = append(out.Members[label], i)
		out.Rows[i] = label
	}
	return out, nil
}
