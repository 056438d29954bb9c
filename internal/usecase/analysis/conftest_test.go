package analysis

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// staticModels implements ModelSource for tests.
type staticModels struct {
	snap *models.Snapshot
	err  error
}

func (m *staticModels) Get(_ context.Context) (*models.Snapshot, error) {
	return m.snap, m.err
}

// constantModel predicts the same score for every row.
func constantModel(score float64) *regression.Model {
	p := len(regression.Predictors())
	m := regression.Reconstruct(regression.Predictors(),
		make([]float64, p), ones(p), make([]float64, p), score, "", 1)
	return &m
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func fixtureSnapshot(reg *regression.Model) *models.Snapshot {
	return &models.Snapshot{
		Academic:   centroid.AcademicFixture(),
		Persona:    centroid.PersonaFixture(),
		Regression: reg,
		Source:     models.SourceFixture,
	}
}

func newTestService(t *testing.T, snap *models.Snapshot) *Service {
	t.Helper()
	svc, err := New(feature.DefaultTable(), theme.DefaultGroups(), &staticModels{snap: snap}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func studentRecord() feature.Raw {
	return feature.Raw{
		feature.HoursStudied:              "23",
		feature.Attendance:                "84",
		feature.ParentalInvolvement:       "Low",
		feature.AccessToResources:         "High",
		feature.ExtracurricularActivities: "No",
		feature.SleepHours:                "7",
		feature.PreviousScores:            "75",
		feature.MotivationLevel:           "High",
		feature.InternetAccess:            "Yes",
		feature.TutoringSessions:          "0",
		feature.FamilyIncome:              "Low",
		feature.TeacherQuality:            "Medium",
		feature.SchoolType:                "Public",
		feature.PeerInfluence:             "Positive",
		feature.PhysicalActivity:          "3",
		feature.LearningDisabilities:      "No",
		feature.ParentalEducationLevel:    "High School",
		feature.DistanceFromHome:          "Near",
		feature.Gender:                    "Male",
		feature.ExamScore:                 "70",
	}
}
