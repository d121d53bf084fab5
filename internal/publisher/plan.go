// Package publisher assembles the finalized care plan and submits it.
package publisher

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/taskstore"
)

var (
	ErrEmptyCrew = errors.New("add at least one doctor or nurse before publishing")
	ErrInFlight  = errors.New("a publish is already in progress")
)

// newPlanID is swapped in tests.
var newPlanID = func(now time.Time) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("plan-%d", now.UnixMilli())
	}
	return id.String()
}

// Snapshot is everything a plan is built from, captured at publish time.
type Snapshot struct {
	DoctorID  string
	PatientID string
	Timeline  []models.TimelineStep
	Crew      roster.Roster
	Emails    map[string]string // known addresses by staff name
	Tasks     taskstore.Store
	Vitals    models.Vitals
	Tab       string
	Insights  *models.OptimizationInsights
	Now       time.Time
}

// Assemble builds the payload. It fails only on an empty crew.
func Assemble(snap Snapshot) (models.PublishedPlan, error) {
	if snap.Crew.Empty() {
		return models.PublishedPlan{}, ErrEmptyCrew
	}
	now := snap.Now
	if now.IsZero() {
		now = time.Now()
	}

	plan := models.PublishedPlan{
		PlanID:               newPlanID(now),
		DoctorID:             snap.DoctorID,
		PatientID:            snap.PatientID,
		Timeline:             append([]models.TimelineStep{}, snap.Timeline...),
		Crew:                 contacts(snap.Crew, snap.Emails),
		Tasks:                Bundles(snap.Tasks),
		Vitals:               snap.Vitals,
		Timestamp:            now.UTC().Format(time.RFC3339),
		Tab:                  snap.Tab,
		OptimizationInsights: snap.Insights,
	}
	return plan, nil
}

// Bundles compiles every non-empty staff list. The order follows the store:
// scope, then doctors before nurses, then name.
func Bundles(store taskstore.Store) []models.TaskBundle {
	out := []models.TaskBundle{}
	for _, e := range store.Entries() {
		out = append(out, models.TaskBundle{
			Scope:     e.Scope,
			OwnerRole: e.Role,
			OwnerName: e.Staff,
			Tasks:     e.Tasks,
		})
	}
	return out
}

func contacts(r roster.Roster, emails map[string]string) []models.CrewContact {
	members := r.Members()
	out := make([]models.CrewContact, 0, len(members))
	for _, m := range members {
		email := strings.TrimSpace(emails[m.Name])
		if email == "" {
			email = Slug(m.Name) + "@" + constants.CrewEmailDomain
		}
		out = append(out, models.CrewContact{Role: m.Role, Name: m.Name, Email: email})
	}
	return out
}

// Slug lowercases name and collapses every run of other characters to a
// single dash. "Dr. Wong" becomes "dr-wong".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "staff"
	}
	return s
}
