package cluster

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// separated returns three tight blobs of n points each around (0,0), (10,10), (20,0).
func separated(n int) []space.Point {
	centers := []space.Point{{0, 0}, {10, 10}, {20, 0}}
	rng := seeded(7)
	var pts []space.Point
	for _, c := range centers {
		for i := 0; i < n; i++ {
			pts = append(pts, space.Point{c[0] + rng.Float64()*0.1, c[1] + rng.Float64()*0.1})
		}
	}
	return pts
}

func blobOf(idx, n int) int { return idx / n }

func nan() float64 { return math.NaN() }

func TestSeed_Deterministic(t *testing.T) {
	pts := separated(20)

	first := Seed(pts, 3, seeded(42))
	for run := 0; run < 5; run++ {
		require.Equal(t, first, Seed(pts, 3, seeded(42)))
	}

	blobs := map[int]bool{}
	for _, idx := range first {
		blobs[blobOf(idx, 20)] = true
	}
	require.Len(t, blobs, 3, "seeds should land in distinct blobs: %v", first)
}

func TestSeed_AllCoincidentFallsBackToUniform(t *testing.T) {
	pts := []space.Point{{1, 1}, {1, 1}, {1, 1}}
	seeds := Seed(pts, 3, seeded(1))
	require.Len(t, seeds, 3)
	for _, s := range seeds {
		require.GreaterOrEqual(t, s, 0)
		require.Less(t, s, 3)
	}
}

func TestTrain_DuplicatesConvergeInOneIteration(t *testing.T) {
	var pts []space.Point
	for _, c := range []space.Point{{0.1, 0.1}, {0.5, 0.9}, {0.9, 0.2}} {
		for i := 0; i < 4; i++ {
			pts = append(pts, c.Clone())
		}
	}

	res, err := Train(pts, Options{K: 3, Rand: seeded(3)})
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
	require.Zero(t, res.MaxShift)
	require.ElementsMatch(t, []int{4, 4, 4}, res.Sizes())
}

func TestTrain_RecoversSeparatedBlobs(t *testing.T) {
	pts := separated(30)
	res, err := Train(pts, Options{K: 3, Precision: 1e-10, Rand: seeded(11)})
	require.NoError(t, err)
	require.True(t, res.Converged)

	for i := range pts {
		for j := range pts {
			same := blobOf(i, 30) == blobOf(j, 30)
			require.Equal(t, same, res.Assignments[i] == res.Assignments[j])
		}
	}
}

func TestTrain_IterationCapReportsNonConvergence(t *testing.T) {
	pts := separated(30)
	// Both seeds inside one blob force several Lloyd steps.
	init := []space.Point{pts[0].Clone(), pts[1].Clone()}

	res := refine(pts, init, 1e-12, 1)
	require.False(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
	require.Greater(t, res.MaxShift, 1e-12)
	require.Len(t, res.Centroids, 2)
}

func TestRefine_EmptyClusterKeepsCentroid(t *testing.T) {
	pts := []space.Point{{0, 0}, {0.2, 0}, {1, 0}}
	far := space.Point{100, 100}
	init := []space.Point{{0, 0}, {1, 0}, far}

	res := refine(pts, init, 1e-10, 100)
	require.True(t, res.Converged)
	require.Equal(t, far, res.Centroids[2])
	require.Equal(t, []int{2, 1, 0}, res.Sizes())
	require.InDelta(t, 0.1, res.Centroids[0][0], 1e-15)
}

func TestTrain_Validation(t *testing.T) {
	pts := []space.Point{{0, 0}, {1, 1}}
	tests := []struct {
		name   string
		points []space.Point
		opts   Options
		want   error
	}{
		{"empty", nil, Options{K: 1}, domain.ErrEmptyInput},
		{"k zero", pts, Options{K: 0}, domain.ErrInvalidK},
		{"k above n", pts, Options{K: 3}, domain.ErrInvalidK},
		{"ragged", []space.Point{{0, 0}, {1}}, Options{K: 1}, domain.ErrDimensionMismatch},
		{"nan", []space.Point{{0, 0}, {1, nan()}}, Options{K: 1}, domain.ErrInvalidRecord},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Rand = seeded(1)
			_, err := Train(tc.points, tc.opts)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNearest_TieGoesToEarliest(t *testing.T) {
	centroids := []space.Point{{0, 0}, {2, 0}, {1, 5}}
	for i := 0; i < 10; i++ {
		require.Equal(t, 0, Nearest(space.Point{1, 0}, centroids))
	}
	require.Equal(t, 1, Nearest(space.Point{1, 0}, []space.Point{{9, 9}, {0, 0}, {2, 0}}))
}

func TestAssignOne_Fixture(t *testing.T) {
	set := centroid.AcademicFixture()

	label, err := AssignOne(set, space.Point{0.3260869565, 0.5})
	require.NoError(t, err)
	require.Equal(t, centroid.SteadyProgress, label)

	label, err = AssignOne(set, space.Point{0.28, 0.9})
	require.NoError(t, err)
	require.Equal(t, centroid.HighlyImproved, label)
}

func TestAssignOne_DimensionMismatch(t *testing.T) {
	_, err := AssignOne(centroid.AcademicFixture(), space.Point{0.1, 0.2, 0.3})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestAssign_OrderedMembers(t *testing.T) {
	set, err := centroid.New(space.AcademicSchema(), []string{"low", "high"},
		[]space.Point{{0, 0}, {1, 1}}, centroid.Meta{})
	require.NoError(t, err)

	pts := []space.Point{{0.9, 0.9}, {0.1, 0}, {0.5, 0.5}, {1, 0.8}}
	a, err := Assign(set, pts)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, a.Members["low"])
	require.Equal(t, []int{0, 3}, a.Members["high"])
	require.Equal(t, []string{"high", "low", "low", "high"}, a.Rows)
	require.Equal(t, 2, a.Size("low"))

	for i, p := range pts {
		one, err := AssignOne(set, p)
		require.NoError(t, err)
		require.Equal(t, a.Rows[i], one)
	}
}

func TestAssign_RejectsWrongDimension(t *testing.T) {
	_, err := Assign(centroid.PersonaFixture(), []space.Point{{0, 0, 0, 0, 0}, {0, 0}})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestResult_Set(t *testing.T) {
	res, err := Train(separated(5), Options{K: 3, Rand: seeded(5)})
	require.NoError(t, err)
	set, err := res.Set(space.AcademicSchema(), centroid.DefaultLabels(3), centroid.Meta{RunID: "r"})
	require.NoError(t, err)
	require.Equal(t, 3, set.K())
	require.Equal(t, "r", set.RunID())
}
