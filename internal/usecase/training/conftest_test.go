package training

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// mockSaver implements Saver for tests.
type mockSaver struct {
	mu    sync.Mutex
	sets  []centroid.Set
	reg   *regression.Model
	calls int
	err   error
}

func (m *mockSaver) SaveAll(_ context.Context, sets []centroid.Set, reg *regression.Model) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sets = sets
	m.reg = reg
	return nil
}

// mockPublisher implements Publisher for tests.
type mockPublisher struct {
	current   *models.Snapshot
	published []*models.Snapshot
	err       error
}

func (m *mockPublisher) Current() (*models.Snapshot, error) {
	if m.current == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return m.current, nil
}

func (m *mockPublisher) Publish(s *models.Snapshot) error {
	if m.err != nil {
		return m.err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.published = append(m.published, s)
	m.current = s
	return nil
}

var (
	levels    = []string{"Low", "Medium", "High"}
	noYes     = []string{"No", "Yes"}
	peers     = []string{"Negative", "Neutral", "Positive"}
	education = []string{"High School", "College", "Postgraduate"}
	distances = []string{"Near", "Moderate", "Far"}
)

// records generates n complete student records. The exam score follows the
// previous score and study hours so the score model has signal to fit.
func records(n int, seed uint64) []feature.Raw {
	rng := rand.New(rand.NewPCG(seed, seed))
	pick := func(xs []string) string { return xs[rng.IntN(len(xs))] }
	out := make([]feature.Raw, n)
	for i := range out {
		hours := 1 + rng.IntN(44)
		prev := 50 + rng.IntN(51)
		exam := 55 + float64(prev-50)*0.5 + float64(hours)*0.3
		out[i] = feature.Raw{
			feature.HoursStudied:              fmt.Sprint(hours),
			feature.Attendance:                fmt.Sprint(60 + rng.IntN(41)),
			feature.ParentalInvolvement:       pick(levels),
			feature.AccessToResources:         pick(levels),
			feature.ExtracurricularActivities: pick(noYes),
			feature.SleepHours:                fmt.Sprint(4 + rng.IntN(7)),
			feature.PreviousScores:            fmt.Sprint(prev),
			feature.MotivationLevel:           pick(levels),
			feature.InternetAccess:            pick(noYes),
			feature.TutoringSessions:          fmt.Sprint(rng.IntN(9)),
			feature.FamilyIncome:              pick(levels),
			feature.TeacherQuality:            pick(levels),
			feature.SchoolType:                pick([]string{"Public", "Private"}),
			feature.PeerInfluence:             pick(peers),
			feature.PhysicalActivity:          fmt.Sprint(rng.IntN(7)),
			feature.LearningDisabilities:      pick(noYes),
			feature.ParentalEducationLevel:    pick(education),
			feature.DistanceFromHome:          pick(distances),
			feature.Gender:                    pick([]string{"Female", "Male"}),
			feature.ExamScore:                 fmt.Sprintf("%.0f", exam),
		}
	}
	return out
}

func seed(v uint64) *uint64 { return &v }
