package artifact

import (
	"context"
	"path"
	"testing"

	"github.com/kailas-cloud/cohortlens/internal/db"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	data       map[string][]byte
	getFn      func(ctx context.Context, key string) ([]byte, error)
	setMultiFn func(ctx context.Context, items []db.KVItem) error
	calls      int
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetMulti(ctx context.Context, items []db.KVItem) error {
	m.calls++
	if m.setMultiFn != nil {
		return m.setMultiFn(ctx, items)
	}
	for _, it := range items {
		m.data[it.Key] = it.Value
	}
	return nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{data: make(map[string][]byte)}
	return New(ms, ""), ms
}

func trainedAcademic(t *testing.T, version, runID string) centroid.Set {
	t.Helper()
	s, err := centroid.New(space.AcademicSchema(),
		[]string{"cluster1", "cluster2", "cluster3"},
		[]space.Point{{0.1, 0.2}, {0.30000000000000004, 0.7}, {1e-17, 0.9999999999999999}},
		centroid.Meta{FeatureVersion: version, RunID: runID, TrainedAt: 1700000000000},
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func trainedPersona(t *testing.T, version, runID string) centroid.Set {
	t.Helper()
	fx := centroid.PersonaFixture()
	s, err := centroid.New(fx.Schema(), fx.Labels(), fx.Points(),
		centroid.Meta{FeatureVersion: version, RunID: runID, TrainedAt: 1700000000000})
	if err != nil {
		t.Fatal(err)
	}
	return s
}
