package training

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

func newTestService(saver Saver, pub Publisher) *Service {
	return New(feature.DefaultTable(), theme.DefaultGroups(), saver, pub, zap.NewNop())
}

func TestTrain_PersistsAndPublishes(t *testing.T) {
	saver := &mockSaver{}
	pub := &mockPublisher{}
	svc := newTestService(saver, pub)

	sum, err := svc.Train(context.Background(), records(120, 1), Request{
		Seed:           seed(42),
		AcademicLabels: []string{centroid.SteadyProgress, centroid.HighlyImproved, centroid.DecliningScores},
	})
	require.NoError(t, err)
	require.True(t, sum.Persisted)
	require.True(t, sum.Published)
	require.NotEmpty(t, sum.RunID)
	require.Equal(t, feature.DefaultTable().Version(), sum.FeatureVersion)
	require.Equal(t, 120, sum.Rows)

	require.Equal(t, 3, sum.Academic.Set.K())
	require.Equal(t, 5, sum.Persona.Set.K())
	require.True(t, sum.Academic.Set.Schema().Equal(space.AcademicSchema()))
	require.True(t, sum.Persona.Set.Schema().Equal(space.PersonaSchema()))
	require.Equal(t, centroid.HighlyImproved, sum.Academic.Set.Label(1))
	require.Equal(t, sum.RunID, sum.Persona.Set.RunID())

	total := 0
	for _, n := range sum.Academic.Sizes {
		total += n
	}
	require.Equal(t, 120, total)

	require.Equal(t, 1, saver.calls)
	require.Len(t, saver.sets, 2)
	require.Nil(t, saver.reg)

	require.Len(t, pub.published, 1)
	require.Equal(t, models.SourceTrained, pub.published[0].Source)
}

func TestTrain_SeedIsReproducible(t *testing.T) {
	rows := records(80, 2)
	req := Request{Seed: seed(7), DryRun: true}

	a, err := newTestService(&mockSaver{}, nil).Train(context.Background(), rows, req)
	require.NoError(t, err)
	b, err := newTestService(&mockSaver{}, nil).Train(context.Background(), rows, req)
	require.NoError(t, err)

	require.Equal(t, a.Academic.Set.Points(), b.Academic.Set.Points())
	require.Equal(t, a.Persona.Set.Points(), b.Persona.Set.Points())
	require.NotEqual(t, a.RunID, b.RunID)
}

func TestTrain_DryRunSkipsPersistence(t *testing.T) {
	saver := &mockSaver{}
	pub := &mockPublisher{}
	sum, err := newTestService(saver, pub).Train(context.Background(), records(30, 3), Request{
		AcademicK: 2, PersonaK: 2, Seed: seed(1), DryRun: true,
	})
	require.NoError(t, err)
	require.False(t, sum.Persisted)
	require.False(t, sum.Published)
	require.Zero(t, saver.calls)
	require.Empty(t, pub.published)
}

func TestTrain_FitsRegression(t *testing.T) {
	saver := &mockSaver{}
	rows := records(200, 4)
	sum, err := newTestService(saver, &mockPublisher{}).Train(context.Background(), rows, Request{
		Seed: seed(9), FitRegression: true,
	})
	require.NoError(t, err)
	require.NotNil(t, sum.Regression)
	require.Equal(t, regression.Predictors(), sum.Regression.Features())
	require.NotNil(t, saver.reg)

	enc, err := regression.NewEncoder(feature.DefaultTable(), regression.Predictors())
	require.NoError(t, err)
	x, err := enc.Encode(rows[0])
	require.NoError(t, err)
	got, err := sum.Regression.Predict(x)
	require.NoError(t, err)
	spec, ok := feature.DefaultTable().Lookup(feature.ExamScore)
	require.True(t, ok)
	want, _, err := spec.Encode(rows[0][feature.ExamScore])
	require.NoError(t, err)
	require.InDelta(t, want, got, 1.0)
}

func TestTrain_KeepsLiveRegressionWhenNotRefit(t *testing.T) {
	live := regression.Reconstruct([]string{"a"}, []float64{0}, []float64{1}, []float64{1}, 60, "", 1)
	pub := &mockPublisher{current: &models.Snapshot{
		Academic:   centroid.AcademicFixture(),
		Persona:    centroid.PersonaFixture(),
		Regression: &live,
	}}
	_, err := newTestService(&mockSaver{}, pub).Train(context.Background(), records(40, 5), Request{Seed: seed(2)})
	require.NoError(t, err)
	require.Same(t, &live, pub.published[0].Regression)
}

func TestTrain_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockSaver{}, &mockPublisher{})

	_, err := svc.Train(ctx, nil, Request{})
	require.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = svc.Train(ctx, records(2, 1), Request{})
	require.ErrorIs(t, err, domain.ErrInvalidK, "k=3 on two rows")

	_, err = svc.Train(ctx, records(10, 1), Request{AcademicLabels: []string{"a", "b"}})
	require.ErrorIs(t, err, domain.ErrInvalidK)

	rows := records(10, 1)
	delete(rows[4], feature.PreviousScores)
	_, err = svc.Train(ctx, rows, Request{})
	require.ErrorIs(t, err, domain.ErrMissingDimension)
	require.ErrorContains(t, err, "row 4")

	rows = records(10, 1)
	rows[2][feature.Attendance] = "lots"
	_, err = svc.Train(ctx, rows, Request{})
	require.ErrorIs(t, err, domain.ErrInvalidRecord)
}

func TestTrain_SaveFailureDoesNotPublish(t *testing.T) {
	boom := errors.New("boom")
	pub := &mockPublisher{}
	_, err := newTestService(&mockSaver{err: boom}, pub).Train(context.Background(), records(30, 6), Request{Seed: seed(3)})
	require.ErrorIs(t, err, boom)
	require.Empty(t, pub.published)
}

func TestWithDefaults(t *testing.T) {
	svc := newTestService(&mockSaver{}, nil).WithDefaults(Defaults{
		AcademicK:      2,
		PersonaK:       4,
		AcademicLabels: []string{"low", "high"},
		Seed:           seed(5),
	})
	sum, err := svc.Train(context.Background(), records(40, 7), Request{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, []string{"low", "high"}, sum.Academic.Set.Labels())
	require.Equal(t, 4, sum.Persona.Set.K())
}
