package optimizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/surgisync/internal/models"
)

var (
	// ErrNoSuggestion is returned when an operation needs a loaded suggestion.
	ErrNoSuggestion = errors.New("no suggestions loaded")
	// ErrNoScenario is returned when feedback is sent without an active scenario.
	ErrNoScenario = errors.New("no optimization scenario chosen")
)

// SelectionKey identifies a checked resource. Selection lives apart from the
// suggestion data so edits to one cannot corrupt the other.
type SelectionKey struct {
	Category Category
	ID       string
}

// Selection is a checked resource resolved against the current data.
type Selection struct {
	Category Category
	Resource Resource
}

// State is the suggestion panel. Every transition returns a new State.
type State struct {
	suggestion   *Suggestion
	requirements *models.AvailabilityRequest
	active       int
	selected     map[SelectionKey]bool
	err          string
}

// Empty returns a state with nothing loaded.
func Empty() State {
	return State{active: -1, selected: map[SelectionKey]bool{}}
}

func (s State) clone() State {
	out := s
	out.selected = make(map[SelectionKey]bool, len(s.selected))
	for k, v := range s.selected {
		out.selected[k] = v
	}
	if s.suggestion != nil {
		sug := *s.suggestion
		sug.Baseline = s.suggestion.Baseline.clone()
		sug.Scenarios = make([]Scenario, len(s.suggestion.Scenarios))
		for i, sc := range s.suggestion.Scenarios {
			sc.Resources = sc.Resources.clone()
			sug.Scenarios[i] = sc
		}
		out.suggestion = &sug
	}
	return out
}

// Loaded replaces everything with a fresh suggestion. The first scenario,
// when present, becomes active.
func (s State) Loaded(sug Suggestion, req *models.AvailabilityRequest) State {
	out := Empty()
	out.suggestion = &sug
	if req != nil {
		r := *req
		out.requirements = &r
	}
	if len(sug.Scenarios) > 0 {
		out.active = 0
	}
	return out
}

// Failed clears all suggestion state and records the message.
func (s State) Failed(err error) State {
	out := Empty()
	if err != nil {
		out.err = err.Error()
	}
	return out
}

func (s State) Err() string { return s.err }

func (s State) HasSuggestion() bool { return s.suggestion != nil }

// Suggestion returns the loaded suggestion, or nil.
func (s State) Suggestion() *Suggestion {
	if s.suggestion == nil {
		return nil
	}
	c := s.clone()
	return c.suggestion
}

// Active returns the chosen scenario, or nil for legacy data.
func (s State) Active() *Scenario {
	if s.suggestion == nil || s.active < 0 || s.active >= len(s.suggestion.Scenarios) {
		return nil
	}
	sc := s.suggestion.Scenarios[s.active]
	return &sc
}

func (s State) ActiveIndex() int { return s.active }

// Choose makes scenario i active. Selections survive because they are
// keyed by resource id.
func (s State) Choose(i int) State {
	if s.suggestion == nil || i < 0 || i >= len(s.suggestion.Scenarios) {
		return s
	}
	out := s.clone()
	out.active = i
	return out
}

// Resources returns the items of a category from the active scenario, or
// from the baseline when none is active.
func (s State) Resources(c Category) []Resource {
	if s.suggestion == nil {
		return nil
	}
	if sc := s.Active(); sc != nil {
		return append([]Resource(nil), sc.Resources[c]...)
	}
	return append([]Resource(nil), s.suggestion.Baseline[c]...)
}

func (s State) current() Resources {
	if sc := s.Active(); sc != nil {
		return sc.Resources
	}
	if s.suggestion != nil {
		return s.suggestion.Baseline
	}
	return nil
}

// Toggle flips the selection of one resource.
func (s State) Toggle(c Category, id string) State {
	out := s.clone()
	key := SelectionKey{Category: c, ID: id}
	if out.selected[key] {
		delete(out.selected, key)
	} else {
		out.selected[key] = true
	}
	return out
}

func (s State) IsSelected(c Category, id string) bool {
	return s.selected[SelectionKey{Category: c, ID: id}]
}

// Rename edits a suggested resource name in every place it appears.
func (s State) Rename(c Category, id, name string) State {
	name = strings.TrimSpace(name)
	if s.suggestion == nil || name == "" {
		return s
	}
	out := s.clone()
	rename := func(items []Resource) {
		for i := range items {
			if items[i].ID == id {
				items[i].Name = name
			}
		}
	}
	rename(out.suggestion.Baseline[c])
	for _, sc := range out.suggestion.Scenarios {
		rename(sc.Resources[c])
	}
	return out
}

// Remove deletes a suggested resource and its own selection only.
func (s State) Remove(c Category, id string) State {
	if s.suggestion == nil {
		return s
	}
	out := s.clone()
	drop := func(items []Resource) []Resource {
		kept := items[:0]
		for _, it := range items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		return kept
	}
	out.suggestion.Baseline[c] = drop(out.suggestion.Baseline[c])
	for i := range out.suggestion.Scenarios {
		out.suggestion.Scenarios[i].Resources[c] = drop(out.suggestion.Scenarios[i].Resources[c])
	}
	delete(out.selected, SelectionKey{Category: c, ID: id})
	return out
}

// Selected resolves checked keys against the visible data, in category
// order. Keys with no visible resource are skipped.
func (s State) Selected() []Selection {
	var out []Selection
	res := s.current()
	for _, c := range Categories {
		for _, r := range res[c] {
			if s.selected[SelectionKey{Category: c, ID: r.ID}] {
				out = append(out, Selection{Category: c, Resource: r})
			}
		}
	}
	return out
}

// SelectedKeys returns the keys of Selected, for persisting a selection.
func (s State) SelectedKeys() []SelectionKey {
	sel := s.Selected()
	out := make([]SelectionKey, 0, len(sel))
	for _, it := range sel {
		out = append(out, SelectionKey{Category: it.Category, ID: it.Resource.ID})
	}
	return out
}

// Matched is the verdict shown next to the suggestions. Scenario metrics
// win over the server's status text. Requirement counts only decide when
// the server sent no status.
func (s State) Matched() bool {
	if s.suggestion == nil {
		return false
	}
	if sc := s.Active(); sc != nil {
		return ScenarioMatched(*sc)
	}
	if strings.TrimSpace(s.suggestion.MatchStatus) != "" {
		return IsMatchedText(s.suggestion.MatchStatus)
	}
	if s.requirements != nil {
		return RequirementsMet(s.suggestion.Baseline, *s.requirements)
	}
	return false
}

// Insights describes the active scenario for a published plan. It is nil
// when no scenario was chosen.
func (s State) Insights(decision models.Decision, notes string) *models.OptimizationInsights {
	sc := s.Active()
	if sc == nil {
		return nil
	}
	return &models.OptimizationInsights{
		RequestKey:    s.suggestion.RequestKey,
		ScenarioID:    sc.ID,
		ScenarioLabel: sc.Label,
		CoverageScore: sc.Metrics.CoverageScore,
		Confidence:    sc.Metrics.Confidence,
		Decision:      decision,
		Notes:         strings.TrimSpace(notes),
	}
}

// Feedback builds the accept or override record for the active scenario.
// An override carries a summary of what the user kept.
func (s State) Feedback(accepted bool, notes string) (models.ScenarioFeedback, error) {
	if s.suggestion == nil {
		return models.ScenarioFeedback{}, ErrNoSuggestion
	}
	sc := s.Active()
	if sc == nil || s.suggestion.RequestKey == "" {
		return models.ScenarioFeedback{}, ErrNoScenario
	}
	fb := models.ScenarioFeedback{
		RequestKey:    s.suggestion.RequestKey,
		ScenarioID:    sc.ID,
		Accepted:      accepted,
		FeedbackNotes: strings.TrimSpace(notes),
	}
	if !accepted {
		fb.OverrideSummary = s.overrideSummary()
	}
	return fb, nil
}

func (s State) overrideSummary() string {
	counts := map[Category]int{}
	for _, sel := range s.Selected() {
		counts[sel.Category]++
	}
	var parts []string
	for _, c := range Categories {
		if counts[c] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[c], strings.ToLower(c.Label())))
		}
	}
	if len(parts) == 0 {
		return "no resources kept"
	}
	return "kept " + strings.Join(parts, ", ")
}
