package models

import (
	"fmt"
	"strings"
)

type Scope string

const (
	ScopePreOp   Scope = "preop"
	ScopeSurgery Scope = "surgery"
	ScopePostOp  Scope = "postop"
)

// Scopes lists every scope in display order.
var Scopes = []Scope{ScopePreOp, ScopeSurgery, ScopePostOp}

func (s Scope) Valid() bool {
	switch s {
	case ScopePreOp, ScopeSurgery, ScopePostOp:
		return true
	}
	return false
}

// Label returns the tab title for the scope.
func (s Scope) Label() string {
	switch s {
	case ScopePreOp:
		return "Pre-Op"
	case ScopeSurgery:
		return "Surgery Day"
	case ScopePostOp:
		return "Post-Op"
	}
	return string(s)
}

func ParseScope(s string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(s)))
	if !scope.Valid() {
		return "", fmt.Errorf("invalid scope %q (expected preop|surgery|postop)", s)
	}
	return scope, nil
}

type Role string

const (
	RoleDoctor Role = "doctor"
	RoleNurse  Role = "nurse"
)

// Roles lists both staff roles, doctors first.
var Roles = []Role{RoleDoctor, RoleNurse}

func (r Role) Valid() bool {
	return r == RoleDoctor || r == RoleNurse
}

func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("invalid role %q (expected doctor|nurse)", s)
	}
	return role, nil
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q (expected pending|in_progress|completed)", s)
	}
	return status, nil
}

type Priority string

const (
	PriorityRoutine  Priority = "Routine"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityRoutine, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority accepts any casing of the three levels.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityRoutine, PriorityHigh, PriorityCritical} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q (expected Routine|High|Critical)", s)
}

// TaskRecord is one assignment in a staff member's ordered list. It has no
// identity beyond its position.
type TaskRecord struct {
	Label    string     `json:"label"`
	Status   TaskStatus `json:"status"`
	Time     string     `json:"time,omitempty"` // HH:MM format
	Note     string     `json:"note,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
}

// BucketKey identifies one of the six task buckets.
type BucketKey struct {
	Scope Scope
	Role  Role
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s/%s", k.Scope, k.Role)
}

// TaskUpdate is the wire shape for both reading and writing one staff member's list.
type TaskUpdate struct {
	PatientID   string       `json:"patient_id"`
	Scope       Scope        `json:"scope"`
	StaffName   string       `json:"staff_name"`
	StaffRole   Role         `json:"staff_role"`
	Tasks       []TaskRecord `json:"tasks"`
	PerformedBy string       `json:"performed_by,omitempty"`
}
