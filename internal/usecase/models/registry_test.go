package models

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/domain"
	"github.com/kailas-cloud/cohortlens/internal/domain/centroid"
	"github.com/kailas-cloud/cohortlens/internal/domain/regression"
	"github.com/kailas-cloud/cohortlens/internal/domain/space"
)

func storedSets() map[string]centroid.Set {
	return map[string]centroid.Set{
		space.Academic: centroid.AcademicFixture(),
		space.Persona:  centroid.PersonaFixture(),
	}
}

func TestCurrent_NotLoaded(t *testing.T) {
	r := New(&mockLoader{}, "v1", zap.NewNop())
	if _, err := r.Current(); !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestGet_LoadsOnceFromStore(t *testing.T) {
	ml := &mockLoader{sets: storedSets()}
	r := New(ml, "v1", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Get(context.Background()); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	snap, err := r.Current()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Source != SourceStore {
		t.Errorf("source = %s, want %s", snap.Source, SourceStore)
	}
	if ml.calls != 2 {
		t.Errorf("expected one load of two sets, got %d calls", ml.calls)
	}
	if snap.Regression != nil {
		t.Error("regression should be nil when not stored")
	}
}

func TestGet_FixtureBootstrap(t *testing.T) {
	r := New(&mockLoader{}, "v1", zap.NewNop()).WithFixtureBootstrap(true)
	snap, err := r.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Source != SourceFixture || snap.Academic.K() != 3 || snap.Persona.K() != 5 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestGet_StaleFallsBackToFixtures(t *testing.T) {
	ml := &mockLoader{setErr: domain.ErrStaleModel}
	r := New(ml, "v2", zap.NewNop()).WithFixtureBootstrap(true)
	snap, err := r.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Source != SourceFixture {
		t.Errorf("source = %s", snap.Source)
	}
}

func TestGet_NoBootstrapReturnsError(t *testing.T) {
	r := New(&mockLoader{}, "v1", zap.NewNop())
	if _, err := r.Get(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_StoreErrorIsNotMaskedByFixtures(t *testing.T) {
	ml := &mockLoader{setErr: errors.New("connection refused")}
	r := New(ml, "v1", zap.NewNop()).WithFixtureBootstrap(true)
	if _, err := r.Get(context.Background()); err == nil {
		t.Fatal("expected store error")
	}
}

func TestInvalidate_ReloadsOnNextGet(t *testing.T) {
	ml := &mockLoader{sets: storedSets()}
	r := New(ml, "v1", zap.NewNop())
	if _, err := r.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()
	if _, err := r.Current(); !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("expected ErrModelNotLoaded after Invalidate, got %v", err)
	}
	if _, err := r.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ml.calls != 4 {
		t.Errorf("expected reload, got %d calls", ml.calls)
	}
}

func TestReload_PicksUpRegression(t *testing.T) {
	m := regression.Reconstruct([]string{"a"}, []float64{0}, []float64{1}, []float64{2}, 1, "v1", 1)
	ml := &mockLoader{sets: storedSets(), regression: &m}
	r := New(ml, "v1", zap.NewNop())
	snap, err := r.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Regression == nil {
		t.Fatal("expected regression model")
	}
}

func TestPublish_RejectsSwappedSpaces(t *testing.T) {
	r := New(&mockLoader{}, "v1", zap.NewNop())
	err := r.Publish(&Snapshot{
		Academic: centroid.PersonaFixture(),
		Persona:  centroid.AcademicFixture(),
	})
	if !errors.Is(err, domain.ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
	if _, err := r.Current(); err == nil {
		t.Error("rejected snapshot must not be published")
	}
}

func TestPublish_Swap(t *testing.T) {
	r := New(&mockLoader{}, "v1", zap.NewNop())
	first := &Snapshot{Academic: centroid.AcademicFixture(), Persona: centroid.PersonaFixture(), Source: SourceFixture}
	second := &Snapshot{Academic: centroid.AcademicFixture(), Persona: centroid.PersonaFixture(), Source: SourceTrained}

	if err := r.Publish(first); err != nil {
		t.Fatal(err)
	}
	held, _ := r.Current()
	if err := r.Publish(second); err != nil {
		t.Fatal(err)
	}
	now, _ := r.Current()
	if held.Source != SourceFixture || now.Source != SourceTrained {
		t.Errorf("held=%s now=%s", held.Source, now.Source)
	}
	if now.LoadedAt.IsZero() {
		t.Error("LoadedAt should be stamped")
	}
}

func TestRuns(t *testing.T) {
	ml := &mockLoader{runs: []string{"run-a", "run-b"}}
	r := New(ml, "v1", zap.NewNop())

	runs, err := r.Runs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" {
		t.Errorf("runs = %v", runs)
	}

	ml.runsErr = errors.New("scan failed")
	if _, err := r.Runs(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
