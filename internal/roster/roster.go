// Package roster keeps the doctor and nurse names assigned to a case.
package roster

import (
	"errors"
	"strings"

	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
)

// ErrEmptyRoster is returned when a save or publish would leave no crew.
var ErrEmptyRoster = errors.New("add at least one doctor or nurse")

// Roster is an immutable crew list. Names are trimmed, non-empty and
// unique per role.
type Roster struct {
	doctors []string
	nurses  []string
}

// Normalize trims names, drops blanks and removes case-sensitive duplicates
// while keeping first-seen order.
func Normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func New(doctors, nurses []string) Roster {
	return Roster{doctors: Normalize(doctors), nurses: Normalize(nurses)}
}

func FromCrew(c models.Crew) Roster {
	return New(c.Doctors, c.Nurses)
}

func (r Roster) Doctors() []string { return append([]string(nil), r.doctors...) }

func (r Roster) Nurses() []string { return append([]string(nil), r.nurses...) }

// Names returns the names for role.
func (r Roster) Names(role models.Role) []string {
	if role == models.RoleDoctor {
		return r.Doctors()
	}
	return r.Nurses()
}

func (r Roster) Empty() bool { return len(r.doctors) == 0 && len(r.nurses) == 0 }

func (r Roster) Size() int { return len(r.doctors) + len(r.nurses) }

// Members lists every crew member with an explicit role, doctors first.
func (r Roster) Members() []models.CrewMember {
	out := make([]models.CrewMember, 0, r.Size())
	for _, n := range r.doctors {
		out = append(out, models.CrewMember{Name: n, Role: models.RoleDoctor})
	}
	for _, n := range r.nurses {
		out = append(out, models.CrewMember{Name: n, Role: models.RoleNurse})
	}
	return out
}

// Has reports whether name is on the roster under role.
func (r Roster) Has(role models.Role, name string) bool {
	for _, n := range r.Names(role) {
		if n == name {
			return true
		}
	}
	return false
}

// Crew converts the roster into the wire shape.
func (r Roster) Crew(patientID string) models.Crew {
	return models.Crew{PatientID: patientID, Doctors: r.Doctors(), Nurses: r.Nurses()}
}

// Equal compares both name lists in order.
func (r Roster) Equal(o Roster) bool {
	return equalNames(r.doctors, o.doctors) && equalNames(r.nurses, o.nurses)
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InferRole guesses a role for name from the roster lists and from names
// already holding tasks under each role. It is only used for data that
// predates explicit roles. A name found under both roles is ambiguous; it
// resolves to fallback and the conflict is logged.
func (r Roster) InferRole(name string, taskHolders map[models.Role][]string, fallback models.Role) (models.Role, bool) {
	doctor := r.Has(models.RoleDoctor, name) || contains(taskHolders[models.RoleDoctor], name)
	nurse := r.Has(models.RoleNurse, name) || contains(taskHolders[models.RoleNurse], name)

	switch {
	case doctor && nurse:
		logger.Warn("staff name appears under both roles", "name", name, "resolved", fallback)
		return fallback, false
	case doctor:
		return models.RoleDoctor, true
	case nurse:
		return models.RoleNurse, true
	}
	return fallback, false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
