package validation

import (
	"strings"
	"testing"

	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/taskstore"
)

func TestValidateSubmissionDrWongExample(t *testing.T) {
	crew := roster.New([]string{"Dr. Wong"}, []string{"Susan"})
	got, res := ValidateSubmission(Submission{
		Scope:     "preop",
		StaffName: "Dr. Wong",
		Label:     "Coordinate with anesthesia team",
	}, crew, taskstore.New(), models.RoleNurse)

	if res.HasIssues() {
		t.Fatalf("unexpected issues: %s", res.FormatReport())
	}
	if got.Role != models.RoleDoctor {
		t.Errorf("Role = %s, want doctor (inferred from roster)", got.Role)
	}
	want := models.TaskRecord{Label: "Coordinate with anesthesia team", Status: models.StatusPending, Priority: models.PriorityRoutine}
	if got.Task != want {
		t.Errorf("Task = %+v, want %+v", got.Task, want)
	}
}

func TestValidateSubmissionIssues(t *testing.T) {
	crew := roster.New(nil, []string{"Susan"})
	tests := []struct {
		name string
		sub  Submission
		want IssueType
	}{
		{"missing staff", Submission{Scope: "preop", Label: "x"}, IssueMissingStaff},
		{"blank custom staff", Submission{Scope: "preop", CustomStaff: "   ", Label: "x"}, IssueMissingStaff},
		{"missing label", Submission{Scope: "preop", StaffName: "Susan", Label: "  "}, IssueMissingLabel},
		{"bad status", Submission{Scope: "preop", StaffName: "Susan", Label: "x", Status: "done"}, IssueInvalidStatus},
		{"bad scope", Submission{Scope: "intraop", StaffName: "Susan", Label: "x"}, IssueInvalidScope},
		{"bad role", Submission{Scope: "preop", StaffName: "Susan", Label: "x", Role: "surgeon"}, IssueInvalidRole},
		{"bad time", Submission{Scope: "preop", StaffName: "Susan", Label: "x", Time: "25:00"}, IssueInvalidTime},
		{"bad priority", Submission{Scope: "preop", StaffName: "Susan", Label: "x", Priority: "urgent"}, IssueInvalidPriority},
		{"no role resolvable", Submission{Scope: "preop", StaffName: "Stranger", Label: "x"}, IssueInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res := ValidateSubmission(tt.sub, crew, taskstore.New(), "")
			if !res.HasIssues() {
				t.Fatal("expected an issue")
			}
			found := false
			for _, is := range res.Issues {
				if is.Type == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("issues %+v missing %s", res.Issues, tt.want)
			}
			if res.Err() == nil {
				t.Error("Err() should be non-nil")
			}
		})
	}
}

func TestCustomStaffWinsAndIsTrimmed(t *testing.T) {
	got, res := ValidateSubmission(Submission{
		Scope:       "postop",
		StaffName:   "Susan",
		CustomStaff: "  Maria  ",
		Role:        "nurse",
		Label:       "Discharge instructions",
		Status:      "in_progress",
		Time:        "14:30",
		Priority:    "high",
	}, roster.New(nil, nil), taskstore.New(), "")
	if res.HasIssues() {
		t.Fatalf("unexpected issues: %s", res.FormatReport())
	}
	if got.Staff != "Maria" || got.Role != models.RoleNurse {
		t.Errorf("got %+v", got)
	}
	if got.Task.Priority != models.PriorityHigh || got.Task.Time != "14:30" {
		t.Errorf("task = %+v", got.Task)
	}
}

func TestRoleInferredFromBuckets(t *testing.T) {
	store, _ := taskstore.New().Mutate(models.ScopeSurgery, models.RoleDoctor, "Dr. Patel", taskstore.Append(models.TaskRecord{Label: "x", Status: models.StatusPending}))
	got, res := ValidateSubmission(Submission{Scope: "preop", StaffName: "Dr. Patel", Label: "y"}, roster.New(nil, nil), store, models.RoleNurse)
	if res.HasIssues() {
		t.Fatal(res.FormatReport())
	}
	if got.Role != models.RoleDoctor {
		t.Errorf("Role = %s, want doctor", got.Role)
	}
}

func TestValidateCriteria(t *testing.T) {
	ok := models.AvailabilityRequest{RequestedDate: "2026-10-17", RequestedStart: "08:00", RequestedEnd: "10:00", RequiredNurses: 2}
	if res := ValidateCriteria(ok); res.HasIssues() {
		t.Errorf("valid criteria rejected: %s", res.FormatReport())
	}

	bad := models.AvailabilityRequest{RequestedDate: "17/10/2026", RequestedStart: "10:00", RequestedEnd: "09:00", RequiredNurses: -1, TimeConstraintType: "fuzzy"}
	res := ValidateCriteria(bad)
	if len(res.Issues) != 4 {
		t.Errorf("expected 4 issues, got %d: %s", len(res.Issues), res.FormatReport())
	}
}

func TestValidateTimeline(t *testing.T) {
	steps := []models.TimelineStep{
		{ID: "s1", Title: "Admission", Status: models.StepDone},
		{ID: "s1", Title: "Anesthesia", Status: models.StepActive},
		{ID: "s3", Title: "", Status: "later"},
	}
	res := ValidateTimeline(steps)
	if len(res.Issues) != 3 {
		t.Errorf("expected 3 issues, got %s", res.FormatReport())
	}
}

func TestCheckConsistency(t *testing.T) {
	store, _ := taskstore.New().Mutate(models.ScopePreOp, models.RoleNurse, "Ghost", taskstore.Append(models.TaskRecord{Label: "x", Status: models.StatusPending}))
	res := CheckConsistency(roster.New(nil, []string{"Susan"}), store)
	if !res.HasIssues() || !strings.Contains(res.FormatReport(), "Ghost") {
		t.Errorf("expected orphan report, got %q", res.FormatReport())
	}
	if CheckConsistency(roster.New(nil, nil), store).HasIssues() {
		t.Error("empty roster should skip the check")
	}
}
