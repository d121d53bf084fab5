package tasks

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/julianstephens/surgisync/internal/cli/clitest"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

func strPtr(s string) *string { return &s }

func TestTaskList(t *testing.T) {
	ctx, out := clitest.New(t, clitest.Seeded())

	if err := (&TaskListCmd{}).Run(ctx); err != nil {
		t.Fatalf("task list failed: %v", err)
	}
	for _, want := range []string{"Susan (nurse)", "1. [ ] Check allergies", "2. [ ] Prep IV", "Dr. Wong (doctor)", "Incision"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestTaskListFilters(t *testing.T) {
	ctx, out := clitest.New(t, clitest.Seeded())

	if err := (&TaskListCmd{Scope: "surgery"}).Run(ctx); err != nil {
		t.Fatalf("task list failed: %v", err)
	}
	if strings.Contains(out.String(), "Susan") {
		t.Errorf("scope filter leaked preop tasks:\n%s", out.String())
	}

	if err := (&TaskListCmd{Scope: "later"}).Run(ctx); err == nil {
		t.Error("expected an invalid scope error")
	}
}

func TestTaskAddInfersRole(t *testing.T) {
	fake := clitest.Seeded()
	ctx, out := clitest.New(t, fake)

	cmd := &TaskAddCmd{Staff: "Maria", Label: "Count sponges", Scope: "surgery", Status: "pending", Priority: "High"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task add failed: %v", err)
	}
	got := clitest.Labels(fake, models.ScopeSurgery, models.RoleNurse, "Maria")
	if !reflect.DeepEqual(got, []string{"Count sponges"}) {
		t.Errorf("server tasks = %v", got)
	}
	if !strings.Contains(out.String(), "Added task #1 for Maria (nurse") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestTaskAddRejectsBadTime(t *testing.T) {
	fake := clitest.Seeded()
	ctx, _ := clitest.New(t, fake)

	cmd := &TaskAddCmd{Staff: "Maria", Label: "Count sponges", Scope: "surgery", Status: "pending", Priority: "Routine", Time: "25:99"}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected a time validation error")
	}
	if len(fake.Writes()) != 0 {
		t.Error("an invalid task must not be written")
	}
}

func TestTaskEdit(t *testing.T) {
	fake := clitest.Seeded()
	ctx, _ := clitest.New(t, fake)

	cmd := &TaskEditCmd{
		Ref:   Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 2},
		Label: strPtr("Prep IV line"),
		Time:  strPtr("07:15"),
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task edit failed: %v", err)
	}
	got := clitest.Labels(fake, models.ScopePreOp, models.RoleNurse, "Susan")
	if !reflect.DeepEqual(got, []string{"Check allergies", "Prep IV line"}) {
		t.Errorf("server tasks = %v", got)
	}
}

func TestTaskEditOutOfRange(t *testing.T) {
	ctx, _ := clitest.New(t, clitest.Seeded())

	cmd := &TaskEditCmd{Ref: Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 9}, Label: strPtr("x")}
	if err := cmd.Run(ctx); !errors.Is(err, synchronizer.ErrTaskIndex) {
		t.Errorf("expected ErrTaskIndex, got %v", err)
	}
}

func TestTaskRemoveAndStatus(t *testing.T) {
	fake := clitest.Seeded()
	ctx, _ := clitest.New(t, fake)

	status := &TaskStatusCmd{Ref: Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 2}, Status: "completed"}
	if err := status.Run(ctx); err != nil {
		t.Fatalf("task status failed: %v", err)
	}
	remove := &TaskRemoveCmd{Ref: Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 1}}
	if err := remove.Run(ctx); err != nil {
		t.Fatalf("task remove failed: %v", err)
	}

	var tasks []models.TaskRecord
	for _, u := range fake.Tasks {
		if u.Scope == models.ScopePreOp && u.StaffName == "Susan" {
			tasks = u.Tasks
		}
	}
	if len(tasks) != 1 || tasks[0].Label != "Prep IV" || tasks[0].Status != models.StatusCompleted {
		t.Errorf("server tasks = %+v", tasks)
	}
}

func TestTaskMove(t *testing.T) {
	fake := clitest.Seeded()
	ctx, out := clitest.New(t, fake)

	cmd := &TaskMoveCmd{
		Ref:     Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 1},
		ToScope: "postop",
		ToStaff: "Maria",
	}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("task move failed: %v", err)
	}
	if got := clitest.Labels(fake, models.ScopePreOp, models.RoleNurse, "Susan"); !reflect.DeepEqual(got, []string{"Prep IV"}) {
		t.Errorf("source tasks = %v", got)
	}
	if got := clitest.Labels(fake, models.ScopePostOp, models.RoleNurse, "Maria"); !reflect.DeepEqual(got, []string{"Check allergies"}) {
		t.Errorf("destination tasks = %v", got)
	}
	if !strings.Contains(out.String(), "Moved task 1 from Susan to Maria") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRefValidation(t *testing.T) {
	if _, err := (Ref{Scope: "preop", Role: "nurse", Staff: "Susan", Index: 0}).ref(); err == nil {
		t.Error("index 0 should be rejected")
	}
	if _, err := (Ref{Scope: "preop", Role: "surgeon", Staff: "Susan", Index: 1}).ref(); err == nil {
		t.Error("unknown role should be rejected")
	}
	if _, err := (Ref{Scope: "preop", Role: "nurse", Staff: "  ", Index: 1}).ref(); err == nil {
		t.Error("blank staff should be rejected")
	}
}
