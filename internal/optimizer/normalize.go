package optimizer

import (
	"fmt"
	"strings"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
)

type Category string

const (
	CategoryNurses           Category = "nurses"
	CategoryAssistantDoctors Category = "assistant_doctors"
	CategoryRadiologists     Category = "radiologists"
	CategoryEquipment        Category = "equipment"
	CategoryTheatres         Category = "operation_theatres"
	CategoryTests            Category = "tests"
)

// Categories lists resource categories in display order.
var Categories = []Category{
	CategoryNurses,
	CategoryAssistantDoctors,
	CategoryRadiologists,
	CategoryEquipment,
	CategoryTheatres,
	CategoryTests,
}

func (c Category) Label() string {
	switch c {
	case CategoryNurses:
		return "Nurses"
	case CategoryAssistantDoctors:
		return "Assistant Doctors"
	case CategoryRadiologists:
		return "Radiologists"
	case CategoryEquipment:
		return "Equipment"
	case CategoryTheatres:
		return "Operation Theatres"
	case CategoryTests:
		return "Tests"
	}
	return string(c)
}

// Resource is a normalized suggestion item. ID and Name are never empty.
type Resource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Resources map[Category][]Resource

// Count returns the number of items in category.
func (r Resources) Count(c Category) int { return len(r[c]) }

func (r Resources) clone() Resources {
	out := make(Resources, len(r))
	for c, items := range r {
		out[c] = append([]Resource(nil), items...)
	}
	return out
}

// Scenario is one normalized optimization alternative.
type Scenario struct {
	ID          string                 `json:"id"`
	Label       string                 `json:"label"`
	GeneratedAt string                 `json:"generated_at,omitempty"`
	Metrics     models.ScenarioMetrics `json:"metrics"`
	Resources   Resources              `json:"resources"`
}

// Suggestion is the single normalized shape behind both response kinds.
type Suggestion struct {
	Kind        Kind       `json:"kind"`
	RequestKey  string     `json:"request_key,omitempty"`
	Cached      bool       `json:"cached,omitempty"`
	Date        string     `json:"date"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	MatchStatus string     `json:"match_status,omitempty"`
	Baseline    Resources  `json:"baseline"`
	Scenarios   []Scenario `json:"scenarios,omitempty"`
}

// Normalize dispatches on the union tag.
func Normalize(raw Raw) (Suggestion, error) {
	switch raw.Kind {
	case KindLegacy:
		if raw.Legacy == nil {
			return Suggestion{}, ErrUnrecognized
		}
		return normalizeLegacy(*raw.Legacy), nil
	case KindOptimized:
		if raw.Optimized == nil {
			return Suggestion{}, ErrUnrecognized
		}
		return normalizeOptimized(*raw.Optimized), nil
	}
	return Suggestion{}, ErrUnrecognized
}

func normalizeLegacy(l models.LegacyAvailability) Suggestion {
	return Suggestion{
		Kind:        KindLegacy,
		Date:        l.Date,
		Start:       l.Start,
		End:         l.End,
		MatchStatus: l.MatchStatus,
		Baseline:    legacyResources(l),
	}
}

func normalizeOptimized(o models.OptimizedAvailability) Suggestion {
	s := Suggestion{
		Kind:        KindOptimized,
		RequestKey:  o.RequestKey,
		Cached:      o.Cached,
		Date:        o.Baseline.Date,
		Start:       o.Baseline.Start,
		End:         o.Baseline.End,
		MatchStatus: o.Baseline.MatchStatus,
		Baseline:    legacyResources(o.Baseline),
	}
	for i, sc := range o.Scenarios {
		id := strings.TrimSpace(sc.ScenarioID)
		if id == "" {
			id = fmt.Sprintf("scenario-%d", i+1)
		}
		label := strings.TrimSpace(sc.Label)
		if label == "" {
			label = fmt.Sprintf("Scenario %d", i+1)
		}
		s.Scenarios = append(s.Scenarios, Scenario{
			ID:          id,
			Label:       label,
			GeneratedAt: sc.GeneratedAt,
			Metrics:     sc.Metrics,
			Resources: Resources{
				CategoryNurses:           normalizeResources(CategoryNurses, sc.Nurses),
				CategoryAssistantDoctors: normalizeResources(CategoryAssistantDoctors, sc.AssistantDoctors),
				CategoryRadiologists:     normalizeResources(CategoryRadiologists, sc.Radiologists),
				CategoryEquipment:        normalizeResources(CategoryEquipment, sc.Equipment),
				CategoryTheatres:         normalizeResources(CategoryTheatres, sc.OperationRooms),
				CategoryTests:            s.Baseline[CategoryTests],
			},
		})
	}
	return s
}

func legacyResources(l models.LegacyAvailability) Resources {
	return Resources{
		CategoryNurses:           normalizeResources(CategoryNurses, l.NursesAvailable),
		CategoryAssistantDoctors: normalizeResources(CategoryAssistantDoctors, l.AssistantDoctorsAvailable),
		CategoryRadiologists:     normalizeResources(CategoryRadiologists, l.RadiologistsAvailable),
		CategoryEquipment:        normalizeResources(CategoryEquipment, l.EquipmentAvailable),
		CategoryTheatres:         normalizeResources(CategoryTheatres, l.OperationTheatresAvailable),
		CategoryTests:            normalizeScores(l.LatestTestScores),
	}
}

func normalizeResources(c Category, items []models.RawResource) []Resource {
	taken := map[string]bool{}
	for _, item := range items {
		if id := strings.TrimSpace(item.ID); id != "" {
			taken[id] = true
		}
	}
	out := make([]Resource, 0, len(items))
	for i, item := range items {
		name := derivedName(c, i, item)
		id := strings.TrimSpace(item.ID)
		if id == "" {
			id = unusedID(fmt.Sprintf("%s-%d-%s", c, i, name), taken)
			taken[id] = true
		}
		out = append(out, Resource{ID: id, Name: name, Email: strings.TrimSpace(item.Email)})
	}
	return out
}

// unusedID suffixes base until it no longer clashes with a server id or an
// earlier synthesized one.
func unusedID(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		if id := fmt.Sprintf("%s.%d", base, n); !taken[id] {
			return id
		}
	}
}

// derivedName picks the first populated name field, falling back to a
// positional label.
func derivedName(c Category, index int, item models.RawResource) string {
	for _, v := range []string{item.Name, item.NurseName, item.Email, item.EquipmentName, item.OTID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s-%d", c, index+1)
}

func normalizeScores(scores []models.TestScore) []Resource {
	items := make([]models.RawResource, len(scores))
	for i, s := range scores {
		if s.PatientID != "" {
			items[i].Name = fmt.Sprintf("%s (%.2f)", s.PatientID, s.Score)
		}
	}
	return normalizeResources(CategoryTests, items)
}

// IsMatchedText reads a server match status. "Requirements matched" is a
// success; "Requirements not met", "not matched" and "unmatched" are not.
func IsMatchedText(status string) bool {
	s := strings.ToLower(status)
	if strings.Contains(s, "not matched") || strings.Contains(s, "unmatched") {
		return false
	}
	return strings.Contains(s, "matched")
}

// ScenarioMatched applies the scenario metrics: full coverage, no
// equipment gap and overtime within the threshold.
func ScenarioMatched(sc Scenario) bool {
	m := sc.Metrics
	if m.PredictedOvertimeMinutes > constants.OvertimeThresholdMin {
		return false
	}
	if m.HasReason(constants.ReasonEquipmentGap) {
		return false
	}
	return m.CoverageScore >= 1.0
}

// RequirementsMet compares resource counts against the requested minimums.
func RequirementsMet(res Resources, req models.AvailabilityRequest) bool {
	if res.Count(CategoryRadiologists) < req.RequiredRadiologists ||
		res.Count(CategoryAssistantDoctors) < req.RequiredAssistantDoctors ||
		res.Count(CategoryNurses) < req.RequiredNurses ||
		res.Count(CategoryTheatres) < req.RequiredOperationRooms {
		return false
	}
	if strings.TrimSpace(req.RequiredEquipment) != "" && res.Count(CategoryEquipment) == 0 {
		return false
	}
	return true
}
