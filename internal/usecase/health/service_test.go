package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockModelChecker struct {
	snap *models.Snapshot
}

func (m *mockModelChecker) Current() (*models.Snapshot, error) {
	if m.snap == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return m.snap, nil
}

func loaded() *mockModelChecker {
	return &mockModelChecker{snap: &models.Snapshot{Source: models.SourceFixture}}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, loaded())
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["models"] != CheckOK {
		t.Errorf("expected models %q, got %q", CheckOK, r.Checks["models"])
	}
	if r.ModelSource != "fixture" {
		t.Errorf("expected model source fixture, got %q", r.ModelSource)
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, loaded())
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["models"] != CheckOK {
		t.Errorf("expected models %q, got %q", CheckOK, r.Checks["models"])
	}
}

func TestCheck_ModelsNotLoaded(t *testing.T) {
	svc := New(&mockDBPinger{}, &mockModelChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["models"] != CheckError {
		t.Errorf("expected models %q, got %q", CheckError, r.Checks["models"])
	}
	if r.ModelSource != "" {
		t.Errorf("expected empty model source, got %q", r.ModelSource)
	}
}

func TestCheck_BothFail(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("db down")}, &mockModelChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}

func TestCheck_NoModelChecker(t *testing.T) {
	svc := New(&mockDBPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["models"]; ok {
		t.Error("models check should be absent when checker is nil")
	}
}

func TestCheck_NoModelChecker_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("fail")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
}
