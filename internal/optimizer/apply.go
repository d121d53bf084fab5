package optimizer

import (
	"context"
	"encoding/json"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
)

// Assignment is one task an applied suggestion creates.
type Assignment struct {
	Scope models.Scope
	Role  models.Role
	Staff string
	Task  models.TaskRecord
}

// DefaultLabel is the task label given to staff applied from a suggestion.
func DefaultLabel(scope models.Scope, role models.Role) string {
	switch scope {
	case models.ScopePreOp:
		if role == models.RoleDoctor {
			return "Review pre-op assessment"
		}
		return "Pre-op patient preparation"
	case models.ScopeSurgery:
		if role == models.RoleDoctor {
			return "Assist in procedure"
		}
		return "Monitor vitals"
	case models.ScopePostOp:
		if role == models.RoleDoctor {
			return "Post-op review"
		}
		return "Pain assessment"
	}
	return "Follow up"
}

// Apply turns selected nurses and assistant doctors into task assignments
// for scope. Other categories are informational and produce nothing.
func Apply(selected []Selection, scope models.Scope) []Assignment {
	var out []Assignment
	seen := map[models.BucketKey]map[string]bool{}
	for _, sel := range selected {
		var role models.Role
		switch sel.Category {
		case CategoryNurses:
			role = models.RoleNurse
		case CategoryAssistantDoctors:
			role = models.RoleDoctor
		default:
			continue
		}
		key := models.BucketKey{Scope: scope, Role: role}
		if seen[key] == nil {
			seen[key] = map[string]bool{}
		}
		if seen[key][sel.Resource.Name] {
			continue
		}
		seen[key][sel.Resource.Name] = true
		out = append(out, Assignment{
			Scope: scope,
			Role:  role,
			Staff: sel.Resource.Name,
			Task: models.TaskRecord{
				Label:    DefaultLabel(scope, role),
				Status:   models.StatusPending,
				Priority: models.PriorityRoutine,
			},
		})
	}
	return out
}

// Candidates lists suggested staff names per role for the crew editor.
func Candidates(s State) map[models.Role][]string {
	out := map[models.Role][]string{}
	for _, r := range s.Resources(CategoryNurses) {
		out[models.RoleNurse] = append(out[models.RoleNurse], r.Name)
	}
	for _, r := range s.Resources(CategoryAssistantDoctors) {
		out[models.RoleDoctor] = append(out[models.RoleDoctor], r.Name)
	}
	return out
}

// Adapter requests suggestions and records feedback through the backend.
type Adapter struct {
	client api.Client
}

func NewAdapter(client api.Client) *Adapter {
	return &Adapter{client: client}
}

// Request calls the optimized endpoint, or the legacy one when legacy is
// set, and decodes the body.
func (a *Adapter) Request(ctx context.Context, req models.AvailabilityRequest, legacy bool) (Raw, error) {
	var (
		body json.RawMessage
		err  error
	)
	if legacy {
		body, err = a.client.RequestAvailability(ctx, req)
	} else {
		body, err = a.client.RequestOptimizedAvailability(ctx, req)
	}
	if err != nil {
		return Raw{}, err
	}
	raw, err := Decode(body)
	if err != nil {
		return Raw{}, err
	}
	logger.Debug("availability response decoded", "kind", raw.Kind)
	return raw, nil
}

// Load runs a request and folds the outcome into s. Any failure leaves
// an empty state carrying the error message.
func (a *Adapter) Load(ctx context.Context, s State, req models.AvailabilityRequest, legacy bool) (State, error) {
	raw, err := a.Request(ctx, req, legacy)
	if err != nil {
		logger.Warn("suggestion request failed", "error", err)
		return s.Failed(err), err
	}
	sug, err := Normalize(raw)
	if err != nil {
		return s.Failed(err), err
	}
	return s.Loaded(sug, &req), nil
}

// Feedback sends the accept or override decision for the active scenario.
func (a *Adapter) Feedback(ctx context.Context, s State, accepted bool, notes string) error {
	fb, err := s.Feedback(accepted, notes)
	if err != nil {
		return err
	}
	return a.client.SendScenarioFeedback(ctx, fb)
}
