// Package cluster trains centroid sets with K-means++ seeding and Lloyd refinement,
// and assigns points to their nearest centroid.
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

// Defaults applied when Options leave a field zero.
const (
	DefaultPrecision     = 1e-10
	DefaultMaxIterations = 1000
)

// Options configures a training run.
type Options struct {
	K             int
	Precision     float64
	MaxIterations int
	// Rand drives seeding. Runs are reproducible only with a seeded source.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.Precision == 0 {
		o.Precision = DefaultPrecision
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Rand == nil {
		now := uint64(time.Now().UnixNano())
		o.Rand = rand.New(rand.NewPCG(now, now>>1))
	}
	return o
}

// Result is the outcome of a training run.
// Converged is false when MaxIterations was hit first; Centroids then hold the partial result.
type Result struct {
	Centroids   []space.Point
	SeedIndices []int
	Iterations  int
	Converged   bool
	MaxShift    float64
	// Assignments[i] is the cluster index point i was assigned to in the last iteration.
	Assignments []int
}

// Set wraps the trained centroids into a labeled set.
func (r Result) Set(schema space.Schema, labels []string, meta centroid.Meta) (centroid.Set, error) {
	return centroid.New(schema, labels, r.Centroids, meta)
}

// Sizes returns the number of points per cluster index.
func (r Result) Sizes() []int {
	out := make([]int, len(r.Centroids))
	for _, c := range r.Assignments {
		out[c]++
	}
	return out
}

// Train clusters points into opts.K groups.
func Train(points []space.Point, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if err := validate(points, opts); err != nil {
		return Result{}, err
	}

	seeds := Seed(points, opts.K, opts.Rand)
	init := make([]space.Point, len(seeds))
	for i, idx := range seeds {
		init[i] = points[idx].Clone()
	}

	res := refine(points, init, opts.Precision, opts.MaxIterations)
	res.SeedIndices = seeds
	return res, nil
}

func validate(points []space.Point, opts Options) error {
	if len(points) == 0 {
		return fmt.Errorf("train: %w", domain.ErrEmptyInput)
	}
	if opts.K < 1 || opts.K > len(points) {
		return fmt.Errorf("train: k=%d with %d points: %w", opts.K, len(points), domain.ErrInvalidK)
	}
	if opts.Precision < 0 || math.IsNaN(opts.Precision) {
		return fmt.Errorf("train: precision must be positive, got %v", opts.Precision)
	}
	if opts.MaxIterations < 0 {
		return fmt.Errorf("train: max iterations must be positive, got %d", opts.MaxIterations)
	}
	dim := len(points[0])
	if dim == 0 {
		return fmt.Errorf("train: point 0: %w", domain.NewDimensionMismatch(1, 0))
	}
	for i, p := range points {
		if len(p) != dim {
			return fmt.Errorf("train: point %d: %w", i, domain.NewDimensionMismatch(dim, len(p)))
		}
		for _, x := range p {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("train: point %d has non-finite coordinate: %w", i, domain.ErrInvalidRecord)
			}
		}
	}
	return nil
}

// Seed picks k initial centroid indices with K-means++: the first uniformly,
// each next one with probability proportional to the squared distance to the
// nearest centroid chosen so far. When every point already coincides with a
// chosen centroid the draw falls back to uniform.
func Seed(points []space.Point, k int, rng *rand.Rand) []int {
	n := len(points)
	seeds := make([]int, 0, k)
	seeds = append(seeds, rng.IntN(n))

	nearest := make([]float64, n)
	for i, p := range points {
		nearest[i] = sqDist(p, points[seeds[0]])
	}
	cum := make([]float64, n)

	for len(seeds) < k {
		floats.CumSum(cum, nearest)
		total := cum[n-1]

		var next int
		if total <= 0 {
			next = rng.IntN(n)
		} else {
			next = sample(cum, nearest, rng.Float64()*total)
		}
		seeds = append(seeds, next)

		c := points[next]
		for i, p := range points {
			if d := sqDist(p, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return seeds
}

// sample returns the first index whose cumulative weight exceeds r.
func sample(cum, weights []float64, r float64) int {
	i := sort.Search(len(cum), func(i int) bool { return cum[i] > r })
	if i == len(cum) {
		i--
	}
	for i > 0 && weights[i] == 0 {
		i--
	}
	return i
}

// refine runs Lloyd iterations from init until the largest centroid shift drops
// below precision or maxIter iterations have run.
// A cluster that receives no points keeps its centroid and shifts by 0.
func refine(points []space.Point, init []space.Point, precision float64, maxIter int) Result {
	k := len(init)
	dim := len(init[0])
	centroids := init
	assign := make([]int, len(points))
	sums := make([][]float64, k)
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	counts := make([]int, k)

	res := Result{}
	for res.Iterations < maxIter {
		res.Iterations++

		for c := range sums {
			for d := range sums[c] {
				sums[c][d] = 0
			}
			counts[c] = 0
		}
		for i, p := range points {
			c := Nearest(p, centroids)
			assign[i] = c
			floats.Add(sums[c], p)
			counts[c]++
		}

		next := make([]space.Point, k)
		maxShift := 0.0
		for c := range centroids {
			if counts[c] == 0 {
				next[c] = centroids[c]
				continue
			}
			m := space.Point(append([]float64(nil), sums[c]...))
			floats.Scale(1/float64(counts[c]), m)
			if shift := floats.Distance(centroids[c], m, 2); shift > maxShift {
				maxShift = shift
			}
			next[c] = m
		}
		centroids = next
		res.MaxShift = maxShift

		if maxShift < precision {
			res.Converged = true
			break
		}
	}

	res.Centroids = centroids
	res.Assignments = assign
	return res
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
