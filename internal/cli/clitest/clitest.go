// Package clitest builds command contexts backed by a fake backend and a
// throwaway SQLite cache.
package clitest

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/julianstephens/surgisync/internal/api/apitest"
	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/config"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/storage/sqlite"
)

// New returns a context for patient p1 and doctor doc1 whose output is
// captured in the returned buffer.
func New(t *testing.T, fake *apitest.Fake) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.PatientID = "p1"
	cfg.DoctorID = "doc1"

	store := sqlite.NewStore(filepath.Join(dir, "cache.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init cache: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close cache: %v", err)
		}
	})

	out := &bytes.Buffer{}
	return &cli.Context{
		Config:   cfg,
		Client:   fake,
		Cache:    store,
		Notifier: notifier.Discard{},
		Out:      out,
	}, out
}

func pending(label string) models.TaskRecord {
	return models.TaskRecord{Label: label, Status: models.StatusPending, Priority: models.PriorityRoutine}
}

// Seeded returns a backend with a small crew, tasks in two phases and one
// scheduled surgery.
func Seeded() *apitest.Fake {
	f := apitest.New()
	f.Crew = &models.Crew{PatientID: "p1", Doctors: []string{"Dr. Wong"}, Nurses: []string{"Susan", "Maria"}}
	f.Tasks = []models.TaskUpdate{
		{PatientID: "p1", Scope: models.ScopePreOp, StaffRole: models.RoleNurse, StaffName: "Susan",
			Tasks: []models.TaskRecord{pending("Check allergies"), pending("Prep IV")}},
		{PatientID: "p1", Scope: models.ScopeSurgery, StaffRole: models.RoleDoctor, StaffName: "Dr. Wong",
			Tasks: []models.TaskRecord{pending("Incision")}},
	}
	f.Timeline = &models.Timeline{Steps: []models.TimelineStep{
		{ID: "s1", Title: "Anesthesia check", Time: "07:30", Owner: "Dr. Wong", Status: models.StepActive},
		{ID: "s2", Title: "Transfer to recovery", Time: "11:00", Owner: "Maria", Status: models.StepUpcoming},
	}}
	f.Vitals = &models.Vitals{HeartRate: "72", BloodPressure: "120/80", SpO2: "98%"}
	f.Surgeries = []models.Surgery{
		{ID: "sg1", PatientName: "Ada Lovelace", Procedure: "Appendectomy", Date: "2026-10-20", Status: "Scheduled", DoctorID: "doc1"},
	}
	return f
}

// Labels returns the task labels the backend holds for one staff member.
func Labels(f *apitest.Fake, scope models.Scope, role models.Role, staff string) []string {
	var out []string
	for _, u := range f.Tasks {
		if u.Scope == scope && u.StaffRole == role && u.StaffName == staff {
			for _, t := range u.Tasks {
				out = append(out, t.Label)
			}
		}
	}
	return out
}
