package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/storage"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := setupStore(t)

	if _, err := s.GetSnapshot("p1", storage.KindCrew); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.SaveSnapshot("p1", storage.KindCrew, []byte(`{"doctors":["A"]}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot("p1", storage.KindCrew, []byte(`{"doctors":["B"]}`)); err != nil {
		t.Fatal(err)
	}
	snap, err := s.GetSnapshot("p1", storage.KindCrew)
	if err != nil {
		t.Fatal(err)
	}
	if string(snap.Payload) != `{"doctors":["B"]}` {
		t.Errorf("payload = %s", snap.Payload)
	}
	if snap.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestPublishedPlans(t *testing.T) {
	s := setupStore(t)

	older := models.PublishedPlan{PlanID: "a", RecordID: "rec-a", PatientID: "p1", Timestamp: "2026-10-16T08:00:00Z"}
	newer := models.PublishedPlan{PlanID: "b", PatientID: "p1", Timestamp: "2026-10-17T08:00:00Z",
		Tasks: []models.TaskBundle{{Scope: models.ScopePreOp, OwnerRole: models.RoleNurse, OwnerName: "Susan"}}}
	other := models.PublishedPlan{PlanID: "c", RecordID: "rec-c", PatientID: "p2", Timestamp: "2026-10-17T09:00:00Z"}
	for _, p := range []models.PublishedPlan{older, newer, other} {
		if err := s.SavePublishedPlan(p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.GetPublishedPlan("b")
	if err != nil {
		t.Fatalf("plan without record id should be keyed by plan id: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].OwnerName != "Susan" {
		t.Errorf("plan = %+v", got)
	}

	list, err := s.ListPublishedPlans("p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].PlanID != "b" || list[1].PlanID != "a" {
		t.Errorf("list = %+v", list)
	}

	if _, err := s.GetPublishedPlan("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRequiresInit(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err := s.Load(); err == nil {
		t.Error("expected error loading a missing cache")
	}
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s := NewStore(path)
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened := NewStore(path)
	defer reopened.Close()
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if reopened.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %s", reopened.GetConfigPath())
	}
}
