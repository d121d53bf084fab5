package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/validation"
)

type SuggestRequestCmd struct {
	Date             string `arg:"" help:"Requested date (YYYY-MM-DD)."`
	Start            string `arg:"" help:"Start time (HH:MM)."`
	End              string `arg:"" help:"End time (HH:MM)."`
	TestType         string `name:"test-type" help:"Required test type."`
	Radiologists     int    `help:"Required radiologists." default:"0"`
	AssistantDoctors int    `name:"assistant-doctors" help:"Required assistant doctors." default:"0"`
	Nurses           int    `help:"Required nurses." default:"0"`
	Rooms            int    `help:"Required operation rooms." default:"0"`
	Equipment        string `help:"Required equipment."`
	Constraint       string `help:"Time constraint (exact|overlap)." default:"overlap" enum:"exact,overlap"`
	Legacy           bool   `help:"Use the single-result availability endpoint."`
}

func (c *SuggestRequestCmd) request(patientID string) models.AvailabilityRequest {
	return models.AvailabilityRequest{
		PatientID:                patientID,
		RequestedDate:            strings.TrimSpace(c.Date),
		RequestedStart:           strings.TrimSpace(c.Start),
		RequestedEnd:             strings.TrimSpace(c.End),
		RequiredTestType:         c.TestType,
		RequiredRadiologists:     c.Radiologists,
		RequiredAssistantDoctors: c.AssistantDoctors,
		RequiredNurses:           c.Nurses,
		RequiredOperationRooms:   c.Rooms,
		RequiredEquipment:        c.Equipment,
		TimeConstraintType:       models.TimeConstraint(c.Constraint),
	}
}

func (c *SuggestRequestCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequirePatient(); err != nil {
		return err
	}
	req := c.request(ctx.Config.PatientID)
	if err := validation.ValidateCriteria(req).Err(); err != nil {
		return err
	}
	if err := ctx.RequireSession(); err != nil {
		return err
	}

	// A failure replaces the stored suggestion so no earlier verdict
	// outlives it.
	st, loadErr := optimizer.NewAdapter(ctx.Client).Load(context.Background(), optimizer.Empty(), req, c.Legacy)
	rec := cli.SuggestionRecord{Request: req, Legacy: c.Legacy}
	rec.Capture(st)
	if err := ctx.SaveSuggestion(rec); err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	if loadErr != nil {
		return fmt.Errorf("suggestion request failed: %w", loadErr)
	}
	PrintState(ctx, st)
	return nil
}

// PrintState renders the verdict, the scenarios and the visible resources.
func PrintState(ctx *cli.Context, st optimizer.State) {
	sug := st.Suggestion()
	if sug == nil {
		if e := st.Err(); e != "" {
			ctx.Printf("✗ Last request failed: %s\n", e)
			return
		}
		ctx.Println("No suggestions loaded.")
		return
	}
	verdict := "✓ Requirements matched"
	if !st.Matched() {
		verdict = "✗ Requirements not met"
	}
	ctx.Printf("%s  (%s %s-%s", verdict, sug.Date, sug.Start, sug.End)
	if sug.Cached {
		ctx.Printf(", cached")
	}
	ctx.Println(")")

	if len(sug.Scenarios) > 0 {
		ctx.Println()
		ctx.Println("Scenarios:")
		for i, sc := range sug.Scenarios {
			mark := " "
			if i == st.ActiveIndex() {
				mark = "*"
			}
			ctx.Printf(" %s %d. %s  coverage %.0f%%  confidence %.0f%%  overtime %dm\n",
				mark, i+1, sc.Label, sc.Metrics.CoverageScore*100, sc.Metrics.Confidence*100, sc.Metrics.PredictedOvertimeMinutes)
			for _, r := range sc.Metrics.Reasoning {
				ctx.Printf("      %s\n", r)
			}
		}
	}

	for _, cat := range optimizer.Categories {
		items := st.Resources(cat)
		if len(items) == 0 {
			continue
		}
		ctx.Println()
		ctx.Printf("%s:\n", cat.Label())
		for _, r := range items {
			box := "[ ]"
			if st.IsSelected(cat, r.ID) {
				box = "[x]"
			}
			ctx.Printf("  %s %s (%s)\n", box, r.Name, r.ID)
		}
	}
}

type SuggestShowCmd struct{}

func (c *SuggestShowCmd) Run(ctx *cli.Context) error {
	rec, err := ctx.LoadSuggestion()
	if err != nil {
		return err
	}
	PrintState(ctx, rec.State())
	if rec.Decision != "" {
		ctx.Printf("\nScenario %s", rec.Decision)
		if rec.Notes != "" {
			ctx.Printf(": %s", rec.Notes)
		}
		ctx.Println()
	}
	return nil
}

type SuggestApplyCmd struct {
	Scope       string   `short:"s" help:"Scope the tasks go to (preop|surgery|postop)." default:"surgery"`
	Scenario    int      `help:"Scenario number to use. Defaults to the active one."`
	IDs         []string `name:"id" help:"Resource ids to apply (comma-separated or repeated)." sep:","`
	Interactive bool     `short:"i" help:"Review and pick resources interactively."`
}

// reviewSelection lets the user check resources. Swapped in tests.
var reviewSelection = func(st optimizer.State) (optimizer.State, error) {
	var opts []huh.Option[optimizer.SelectionKey]
	var picked []optimizer.SelectionKey
	for _, c := range []optimizer.Category{optimizer.CategoryNurses, optimizer.CategoryAssistantDoctors} {
		for _, r := range st.Resources(c) {
			key := optimizer.SelectionKey{Category: c, ID: r.ID}
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", r.Name, c.Label()), key))
			if st.IsSelected(c, r.ID) {
				picked = append(picked, key)
			}
		}
	}
	if len(opts) == 0 {
		return st, errors.New("no staff in the suggestion to apply")
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[optimizer.SelectionKey]().
				Title("Assign suggested staff").
				Options(opts...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return st, fmt.Errorf("interactive form error: %w", err)
	}
	want := map[optimizer.SelectionKey]bool{}
	for _, k := range picked {
		want[k] = true
	}
	for _, c := range optimizer.Categories {
		for _, r := range st.Resources(c) {
			if st.IsSelected(c, r.ID) != want[optimizer.SelectionKey{Category: c, ID: r.ID}] {
				st = st.Toggle(c, r.ID)
			}
		}
	}
	return st, nil
}

func (c *SuggestApplyCmd) Run(ctx *cli.Context) error {
	scope, err := models.ParseScope(c.Scope)
	if err != nil {
		return err
	}
	rec, err := ctx.LoadSuggestion()
	if err != nil {
		return err
	}
	if c.Scenario > 0 {
		rec.Active = c.Scenario - 1
	}
	st := rec.State()
	if !st.HasSuggestion() {
		if e := st.Err(); e != "" {
			return fmt.Errorf("last suggestion request failed: %s", e)
		}
		return optimizer.ErrNoSuggestion
	}
	if c.Scenario > 0 && st.ActiveIndex() != c.Scenario-1 {
		return fmt.Errorf("scenario %d does not exist", c.Scenario)
	}

	switch {
	case c.Interactive:
		if st, err = reviewSelection(st); err != nil {
			return err
		}
	case len(c.IDs) > 0:
		for _, id := range c.IDs {
			id = strings.TrimSpace(id)
			cat, ok := findResource(st, id)
			if !ok {
				return fmt.Errorf("no suggested resource with id %q", id)
			}
			if !st.IsSelected(cat, id) {
				st = st.Toggle(cat, id)
			}
		}
	}
	selected := st.Selected()
	if len(selected) == 0 {
		return errors.New("nothing selected (use --id or --interactive)")
	}

	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	applied := s.ApplySuggestions(selected, scope)
	rec.Capture(st)
	if err := ctx.SaveSuggestion(*rec); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	if len(applied) == 0 {
		ctx.Println("Selected resources are informational only; no tasks added.")
		return nil
	}
	for _, a := range applied {
		ctx.Printf("✓ %s (%s): %s\n", a.Staff, a.Role, a.Task.Label)
	}
	ctx.Printf("Applied %d assignments to %s\n", len(applied), scope.Label())
	return nil
}

func findResource(st optimizer.State, id string) (optimizer.Category, bool) {
	for _, c := range optimizer.Categories {
		for _, r := range st.Resources(c) {
			if r.ID == id {
				return c, true
			}
		}
	}
	return "", false
}

type SuggestFeedbackCmd struct {
	Accept   bool   `xor:"decision" required:"" help:"Accept the active scenario."`
	Override bool   `xor:"decision" required:"" help:"Record that the scenario was overridden."`
	Notes    string `help:"Free-text notes sent with the decision."`
}

func (c *SuggestFeedbackCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	rec, err := ctx.LoadSuggestion()
	if err != nil {
		return err
	}
	st := rec.State()

	accepted := c.Accept && !c.Override
	if err := optimizer.NewAdapter(ctx.Client).Feedback(context.Background(), st, accepted, c.Notes); err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}

	rec.Decision = models.DecisionOverridden
	if accepted {
		rec.Decision = models.DecisionAccepted
	}
	rec.Notes = strings.TrimSpace(c.Notes)
	if err := ctx.SaveSuggestion(*rec); err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	ctx.Printf("✓ Scenario %s recorded as %s\n", st.Active().Label, rec.Decision)
	return nil
}
