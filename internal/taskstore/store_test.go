package taskstore

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/julianstephens/surgisync/internal/models"
)

func task(label string) models.TaskRecord {
	return models.TaskRecord{Label: label, Status: models.StatusPending, Priority: models.PriorityRoutine}
}

func labels(tasks []models.TaskRecord) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Label
	}
	return out
}

func TestMutateFollowsOperationOrder(t *testing.T) {
	s := New()
	ops := []struct {
		update Updater
		want   []string
	}{
		{Append(task("a")), []string{"a"}},
		{Append(task("b")), []string{"a", "b"}},
		{Append(task("c")), []string{"a", "b", "c"}},
		{Replace(1, task("B")), []string{"a", "B", "c"}},
		{Delete(0), []string{"B", "c"}},
		{Append(task("d")), []string{"B", "c", "d"}},
		{Delete(5), []string{"B", "c", "d"}},
	}

	for i, op := range ops {
		var got []models.TaskRecord
		s, got = s.Mutate(models.ScopePreOp, models.RoleNurse, "Susan", op.update)
		if !reflect.DeepEqual(labels(got), op.want) {
			t.Fatalf("step %d: got %v, want %v", i, labels(got), op.want)
		}
		if !reflect.DeepEqual(labels(s.Tasks(models.ScopePreOp, models.RoleNurse, "Susan")), op.want) {
			t.Fatalf("step %d: stored list diverged from returned list", i)
		}
	}
}

func TestMutateEmptyResultRemovesStaff(t *testing.T) {
	s := New()
	s, _ = s.Mutate(models.ScopePostOp, models.RoleNurse, "Elizabeth", Append(task("Pain assessment")))
	if !s.Has(models.ScopePostOp, models.RoleNurse, "Elizabeth") {
		t.Fatal("expected Elizabeth after append")
	}

	s, got := s.Mutate(models.ScopePostOp, models.RoleNurse, "Elizabeth", Delete(0))
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if s.Has(models.ScopePostOp, models.RoleNurse, "Elizabeth") {
		t.Error("staff entry should be removed once the list is empty")
	}
	if len(s.Staff(models.ScopePostOp, models.RoleNurse)) != 0 {
		t.Error("bucket should have no staff")
	}
}

func TestMutateDoesNotTouchReceiver(t *testing.T) {
	base, _ := New().Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong", Append(task("Perform procedure")))
	next, _ := base.Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong", SetStatus(0, models.StatusCompleted))

	if base.Tasks(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong")[0].Status != models.StatusPending {
		t.Error("original store was mutated")
	}
	if next.Tasks(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong")[0].Status != models.StatusCompleted {
		t.Error("new store missing status change")
	}

	// mutating the returned copy must not leak back
	got := next.Tasks(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong")
	got[0].Label = "changed"
	if next.Tasks(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong")[0].Label == "changed" {
		t.Error("Tasks() returned shared backing array")
	}
}

func TestAppendDefaultsPriority(t *testing.T) {
	s, got := New().Mutate(models.ScopePreOp, models.RoleDoctor, "Dr. Wong", Append(models.TaskRecord{
		Label:  "Review MRI",
		Status: models.StatusPending,
	}))
	want := []models.TaskRecord{{Label: "Review MRI", Status: models.StatusPending, Priority: models.PriorityRoutine}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(s.Entries()) != 1 {
		t.Errorf("Entries() = %d, want 1", len(s.Entries()))
	}
}

func TestRetainStaffDropsRemovedNames(t *testing.T) {
	s := New()
	for i := 0; i < 3; i++ {
		s, _ = s.Mutate(models.ScopePreOp, models.RoleNurse, "Susan", Append(task(fmt.Sprintf("t%d", i))))
	}
	s, _ = s.Mutate(models.ScopeSurgery, models.RoleNurse, "Susan", Append(task("Monitor vitals")))
	s, _ = s.Mutate(models.ScopePreOp, models.RoleNurse, "Elizabeth", Append(task("Patient education")))
	s, _ = s.Mutate(models.ScopePreOp, models.RoleDoctor, "Susan", Append(task("doctor list")))

	s = s.RetainStaff(models.RoleNurse, []string{"Elizabeth", "Maria"})

	if s.Has(models.ScopePreOp, models.RoleNurse, "Susan") || s.Has(models.ScopeSurgery, models.RoleNurse, "Susan") {
		t.Error("Susan should be gone from every nurse bucket")
	}
	if got := s.Tasks(models.ScopePreOp, models.RoleNurse, "Elizabeth"); len(got) != 1 {
		t.Errorf("Elizabeth's list changed: %v", got)
	}
	if s.Has(models.ScopePreOp, models.RoleNurse, "Maria") {
		t.Error("new names should not get an entry until they have tasks")
	}
	if !s.Has(models.ScopePreOp, models.RoleDoctor, "Susan") {
		t.Error("doctor buckets must not be touched by a nurse rebuild")
	}
}

func TestFromServerAndSnapshot(t *testing.T) {
	in := []models.TaskUpdate{
		{Scope: models.ScopeSurgery, StaffName: "Susan", StaffRole: models.RoleNurse, Tasks: []models.TaskRecord{task("Manage IV fluids")}},
		{Scope: models.ScopePreOp, StaffName: "Dr. Martinez", StaffRole: models.RoleDoctor, Tasks: []models.TaskRecord{task("Review lab results")}},
		{Scope: "intraop", StaffName: "X", StaffRole: models.RoleNurse, Tasks: []models.TaskRecord{task("skip")}},
		{Scope: models.ScopePostOp, StaffName: "Empty", StaffRole: models.RoleNurse},
	}
	s := FromServer(in)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	snap := s.Snapshot("p1")
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d", len(snap))
	}
	if snap[0].Scope != models.ScopePreOp || snap[0].StaffName != "Dr. Martinez" {
		t.Errorf("first entry = %+v, want preop doctor first", snap[0])
	}
	if snap[1].PatientID != "p1" {
		t.Errorf("patient id not set: %+v", snap[1])
	}
}

func TestChainAndClear(t *testing.T) {
	s, got := New().Mutate(models.ScopePreOp, models.RoleNurse, "Susan", Chain(Append(task("a")), Append(task("b")), Delete(0)))
	if !reflect.DeepEqual(labels(got), []string{"b"}) {
		t.Errorf("Chain result = %v", labels(got))
	}
	s, _ = s.Mutate(models.ScopePreOp, models.RoleNurse, "Susan", Clear())
	if s.Has(models.ScopePreOp, models.RoleNurse, "Susan") {
		t.Error("Clear should remove the entry")
	}
}

func TestRemoveFirstMatchesByValue(t *testing.T) {
	s, _ := New().Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong", Chain(Append(task("a")), Append(task("b")), Append(task("a"))))
	_, got := s.Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong", RemoveFirst(task("a")))
	if !reflect.DeepEqual(labels(got), []string{"b", "a"}) {
		t.Errorf("RemoveFirst result = %v", labels(got))
	}
	_, got = s.Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Wong", RemoveFirst(task("zzz")))
	if len(got) != 3 {
		t.Errorf("missing task should leave the list alone, got %v", labels(got))
	}
}
