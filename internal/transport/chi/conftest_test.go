package chi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/db/file"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	"github.com/kailas-cloud/cohortlens/internal/repository/artifact"
	analysisuc "github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/cohortlens/internal/usecase/health"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
)

// testAPI is a full server over a file store in a temp dir.
type testAPI struct {
	handler  http.Handler
	registry *models.Registry
	repo     *artifact.Repo
}

func newTestAPI(t *testing.T, apiKeys ...string) *testAPI {
	t.Helper()
	logger := zap.NewNop()
	table := feature.DefaultTable()
	groups := theme.DefaultGroups()

	store, err := file.NewStore(file.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	repo := artifact.New(store, artifact.DefaultKeyPrefix)
	registry := models.New(repo, table.Version(), logger).WithFixtureBootstrap(true)

	analysis, err := analysisuc.New(table, groups, registry, logger)
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	training := traininguc.New(table, groups, repo, registry, logger)
	health := healthuc.New(store, registry)

	srv := NewServer(analysis, training, registry, health, logger).WithLimits(1<<20, 500)
	return &testAPI{
		handler:  NewRouter(srv, apiKeys, logger),
		registry: registry,
		repo:     repo,
	}
}

func (a *testAPI) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func studentJSON(t *testing.T, drop ...string) []byte {
	t.Helper()
	rec := map[string]any{
		feature.HoursStudied:              23,
		feature.Attendance:                84,
		feature.ParentalInvolvement:       "Low",
		feature.AccessToResources:         "High",
		feature.ExtracurricularActivities: "No",
		feature.SleepHours:                7,
		feature.PreviousScores:            75,
		feature.MotivationLevel:           "High",
		feature.InternetAccess:            "Yes",
		feature.TutoringSessions:          0,
		feature.FamilyIncome:              "Low",
		feature.TeacherQuality:            "Medium",
		feature.SchoolType:                "Public",
		feature.PeerInfluence:             "Positive",
		feature.PhysicalActivity:          3,
		feature.LearningDisabilities:      "No",
		feature.ParentalEducationLevel:    "High School",
		feature.DistanceFromHome:          "Near",
		feature.Gender:                    "Male",
		feature.ExamScore:                 70,
	}
	for _, k := range drop {
		delete(rec, k)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// studentCSV renders n generated records as a CSV table.
func studentCSV(t *testing.T, n int, seed uint64) []byte {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	pick := func(xs ...string) string { return xs[rng.IntN(len(xs))] }

	rows := make([]feature.Raw, n)
	for i := range rows {
		prev := 50 + rng.IntN(51)
		hours := 1 + rng.IntN(44)
		rows[i] = feature.Raw{
			feature.HoursStudied:              fmt.Sprint(hours),
			feature.Attendance:                fmt.Sprint(60 + rng.IntN(41)),
			feature.ParentalInvolvement:       pick("Low", "Medium", "High"),
			feature.AccessToResources:         pick("Low", "Medium", "High"),
			feature.ExtracurricularActivities: pick("No", "Yes"),
			feature.SleepHours:                fmt.Sprint(4 + rng.IntN(7)),
			feature.PreviousScores:            fmt.Sprint(prev),
			feature.MotivationLevel:           pick("Low", "Medium", "High"),
			feature.InternetAccess:            pick("No", "Yes"),
			feature.TutoringSessions:          fmt.Sprint(rng.IntN(9)),
			feature.FamilyIncome:              pick("Low", "Medium", "High"),
			feature.TeacherQuality:            pick("Low", "Medium", "High"),
			feature.SchoolType:                pick("Public", "Private"),
			feature.PeerInfluence:             pick("Negative", "Neutral", "Positive"),
			feature.PhysicalActivity:          fmt.Sprint(rng.IntN(7)),
			feature.LearningDisabilities:      pick("No", "Yes"),
			feature.ParentalEducationLevel:    pick("High School", "College", "Postgraduate"),
			feature.DistanceFromHome:          pick("Near", "Moderate", "Far"),
			feature.Gender:                    pick("Female", "Male"),
			feature.ExamScore:                 fmt.Sprint(55 + (prev-50)/2 + hours/4),
		}
	}

	specs := feature.DefaultTable().Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name()
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(names); err != nil {
		t.Fatal(err)
	}
	rec := make([]string, len(names))
	for _, row := range rows {
		for i, c := range names {
			rec[i] = row[c]
		}
		if err := cw.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
