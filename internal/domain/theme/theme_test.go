package theme

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
)

func TestReduce_AllConstituentsEqual(t *testing.T) {
	g := DefaultGroups()
	v := feature.Vector{}
	for _, grp := range g {
		for _, f := range grp.Features {
			v[f] = 0.375
		}
	}

	got := g.Reduce(v)
	for _, name := range g.Names() {
		require.Equal(t, 0.375, got.Scores[name], name)
	}
	require.Nil(t, got.Target)
}

func TestReduce_MissingConstituentCountsAsZero(t *testing.T) {
	g := Groups{{Name: "T", Features: []string{"a", "b", "c"}}}
	got := g.Reduce(feature.Vector{"a": 0.3, "b": 0.6})
	require.InDelta(t, (0.3+0.6+0)/3, got.Scores["T"], 1e-15)
}

func TestReduce_EnvironmentalStability(t *testing.T) {
	g := DefaultGroups()
	v := feature.Vector{
		feature.PeerInfluence:        1.0,
		feature.DistanceFromHome:     0.5,
		feature.LearningDisabilities: 1.0,
	}
	got := g.Reduce(v)
	require.InDelta(t, 2.5/3, got.Scores[EnvironmentalStability], 1e-15)
	require.Equal(t, 0.0, got.Scores[FamilyCapital])
}

func TestReduce_PassesTargetThrough(t *testing.T) {
	got := DefaultGroups().Reduce(feature.Vector{feature.ExamScore: 0.25})
	require.NotNil(t, got.Target)
	require.Equal(t, 0.25, *got.Target)
}

func TestReduceBatch_MatchesPerRow(t *testing.T) {
	g := DefaultGroups()
	rows := []feature.Vector{
		{feature.HoursStudied: 0.1, feature.SleepHours: 0.9},
		{feature.Attendance: 0.4, feature.PeerInfluence: -0.5},
	}
	batch := g.ReduceBatch(rows)
	require.Len(t, batch, 2)
	for i, r := range rows {
		require.Equal(t, g.Reduce(r), batch[i])
	}
}

func TestMissing(t *testing.T) {
	g := Groups{
		{Name: "A", Features: []string{"x", "y"}},
		{Name: "B", Features: []string{"z"}},
	}
	require.Equal(t, []string{"y"}, g.Missing(feature.Vector{"x": 1, "z": 0}))
	require.Equal(t, []string{"x", "y", "z"}, g.Missing(feature.Vector{}))
	require.Empty(t, g.Missing(feature.Vector{"x": 1, "y": 1, "z": 1}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultGroups().Validate())
	require.Error(t, Groups{}.Validate())
	require.Error(t, Groups{{Name: "A", Features: []string{"x"}}, {Name: "A", Features: []string{"y"}}}.Validate())
	require.Error(t, Groups{{Name: "A"}}.Validate())
}
