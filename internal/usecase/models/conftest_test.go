package models

import (
	"context"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
)

// mockLoader implements Loader for tests.
type mockLoader struct {
	sets       map[string]centroid.Set
	setErr     error
	regression *regression.Model
	regErr     error
	runs       []string
	runsErr    error
	calls      int
}

func (m *mockLoader) LoadCentroids(_ context.Context, spaceName, _ string) (centroid.Set, error) {
	m.calls++
	if m.setErr != nil {
		return centroid.Set{}, m.setErr
	}
	s, ok := m.sets[spaceName]
	if !ok {
		return centroid.Set{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *mockLoader) LoadRegression(_ context.Context, _ string) (regression.Model, error) {
	if m.regErr != nil {
		return regression.Model{}, m.regErr
	}
	if m.regression == nil {
		return regression.Model{}, domain.ErrNotFound
	}
	return *m.regression, nil
}

func (m *mockLoader) ListRuns(_ context.Context) ([]string, error) {
	return m.runs, m.runsErr
}
