package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/taskstore"
)

// IssueType represents the kind of problem found
type IssueType string

const (
	IssueMissingStaff     IssueType = "missing_staff"
	IssueMissingLabel     IssueType = "missing_label"
	IssueInvalidStatus    IssueType = "invalid_status"
	IssueInvalidRole      IssueType = "invalid_role"
	IssueInvalidScope     IssueType = "invalid_scope"
	IssueInvalidTime      IssueType = "invalid_time"
	IssueInvalidPriority  IssueType = "invalid_priority"
	IssueInvalidCriteria  IssueType = "invalid_criteria"
	IssueInvalidTimeline  IssueType = "invalid_timeline"
	IssueDuplicateStepID  IssueType = "duplicate_step_id"
	IssueOrphanedTaskList IssueType = "orphaned_task_list"
)

// Issue is one validation finding tied to a form field.
type Issue struct {
	Type    IssueType
	Field   string
	Message string
}

// Result collects every issue found.
type Result struct {
	Issues []Issue
}

func (r *Result) add(t IssueType, field, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Type: t, Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasIssues returns true if anything failed
func (r Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// Err returns the first issue as an error, or nil.
func (r Result) Err() error {
	if !r.HasIssues() {
		return nil
	}
	return fmt.Errorf("%s", r.Issues[0].Message)
}

// FormatReport returns a human-readable report of all issues
func (r Result) FormatReport() string {
	if !r.HasIssues() {
		return "No issues detected."
	}
	var b strings.Builder
	b.WriteString("Issues detected:\n")
	for _, is := range r.Issues {
		fmt.Fprintf(&b, "- %s\n", is.Message)
	}
	return b.String()
}

// Submission is the raw add/edit task form.
type Submission struct {
	Scope       string
	Role        string // explicit role; empty means infer
	StaffName   string
	CustomStaff string // free-text entry, wins over StaffName when set
	Label       string
	Status      string
	Time        string
	Note        string
	Priority    string
}

// Resolved is a submission that passed validation.
type Resolved struct {
	Scope models.Scope
	Role  models.Role
	Staff string
	Task  models.TaskRecord
}

// ValidateSubmission checks a task form before any state changes. The role
// comes from the form, then the roster and task buckets, then defaultRole.
func ValidateSubmission(sub Submission, crew roster.Roster, store taskstore.Store, defaultRole models.Role) (Resolved, Result) {
	var res Result
	var out Resolved

	staff := strings.TrimSpace(sub.CustomStaff)
	if staff == "" {
		staff = strings.TrimSpace(sub.StaffName)
	}
	if staff == "" {
		res.add(IssueMissingStaff, "staff", "staff name is required")
	}
	out.Staff = staff

	label := strings.TrimSpace(sub.Label)
	if label == "" {
		res.add(IssueMissingLabel, "label", "task label is required")
	}
	out.Task.Label = label

	scope, err := models.ParseScope(sub.Scope)
	if err != nil {
		res.add(IssueInvalidScope, "scope", "%v", err)
	}
	out.Scope = scope

	status := models.StatusPending
	if strings.TrimSpace(sub.Status) != "" {
		status, err = models.ParseTaskStatus(sub.Status)
		if err != nil {
			res.add(IssueInvalidStatus, "status", "%v", err)
		}
	}
	out.Task.Status = status

	if t := strings.TrimSpace(sub.Time); t != "" {
		if _, err := time.Parse(constants.TimeFormat, t); err != nil {
			res.add(IssueInvalidTime, "time", "invalid time %q (expected HH:MM)", t)
		}
		out.Task.Time = t
	}

	out.Task.Priority = models.PriorityRoutine
	if strings.TrimSpace(sub.Priority) != "" {
		p, err := models.ParsePriority(sub.Priority)
		if err != nil {
			res.add(IssueInvalidPriority, "priority", "%v", err)
		}
		out.Task.Priority = p
	}
	out.Task.Note = strings.TrimSpace(sub.Note)

	if strings.TrimSpace(sub.Role) != "" {
		role, err := models.ParseRole(sub.Role)
		if err != nil {
			res.add(IssueInvalidRole, "role", "%v", err)
		}
		out.Role = role
	} else if staff != "" {
		holders := map[models.Role][]string{}
		for _, role := range models.Roles {
			for _, s := range models.Scopes {
				holders[role] = append(holders[role], store.Staff(s, role)...)
			}
		}
		out.Role, _ = crew.InferRole(staff, holders, defaultRole)
		if !out.Role.Valid() {
			res.add(IssueInvalidRole, "role", "cannot determine a role for %q; choose doctor or nurse", staff)
		}
	}

	return out, res
}

// ValidateCriteria checks an availability request before it is sent.
func ValidateCriteria(req models.AvailabilityRequest) Result {
	var res Result
	if _, err := time.Parse(constants.DateFormat, req.RequestedDate); err != nil {
		res.add(IssueInvalidCriteria, "requested_date", "invalid date %q (expected YYYY-MM-DD)", req.RequestedDate)
	}
	start, errStart := time.Parse(constants.TimeFormat, req.RequestedStart)
	if errStart != nil {
		res.add(IssueInvalidCriteria, "requested_start", "invalid start %q (expected HH:MM)", req.RequestedStart)
	}
	end, errEnd := time.Parse(constants.TimeFormat, req.RequestedEnd)
	if errEnd != nil {
		res.add(IssueInvalidCriteria, "requested_end", "invalid end %q (expected HH:MM)", req.RequestedEnd)
	}
	if errStart == nil && errEnd == nil && !start.Before(end) {
		res.add(IssueInvalidCriteria, "requested_end", "start must be before end")
	}
	counts := map[string]int{
		"required_radiologists":      req.RequiredRadiologists,
		"required_assistant_doctors": req.RequiredAssistantDoctors,
		"required_nurses":            req.RequiredNurses,
		"required_operation_rooms":   req.RequiredOperationRooms,
	}
	for _, field := range []string{"required_radiologists", "required_assistant_doctors", "required_nurses", "required_operation_rooms"} {
		if counts[field] < 0 {
			res.add(IssueInvalidCriteria, field, "%s must not be negative", field)
		}
	}
	switch req.TimeConstraintType {
	case "", models.ConstraintExact, models.ConstraintOverlap:
	default:
		res.add(IssueInvalidCriteria, "time_constraint_type", "time constraint must be exact or overlap")
	}
	return res
}

// ValidateTimeline checks step ids and statuses. Times are free text.
func ValidateTimeline(steps []models.TimelineStep) Result {
	var res Result
	seen := map[string]bool{}
	for i, s := range steps {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Title) == "" {
			res.add(IssueInvalidTimeline, "steps", "step %d needs an id and a title", i+1)
		}
		if seen[s.ID] && s.ID != "" {
			res.add(IssueDuplicateStepID, "steps", "duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
		if !s.Status.Valid() {
			res.add(IssueInvalidTimeline, "steps", "step %q has invalid status %q", s.ID, s.Status)
		}
	}
	return res
}

// CheckConsistency reports task lists held by names missing from the roster.
// These appear when a crew update landed from another client.
func CheckConsistency(crew roster.Roster, store taskstore.Store) Result {
	var res Result
	if crew.Empty() {
		return res
	}
	for _, e := range store.Entries() {
		if !crew.Has(e.Role, e.Staff) {
			res.add(IssueOrphanedTaskList, "staff", "%s (%s) has %d %s task(s) but is not on the crew", e.Staff, e.Role, len(e.Tasks), e.Scope)
		}
	}
	return res
}
