package crew

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/validation"
)

type CrewShowCmd struct{}

func (c *CrewShowCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	crew := s.Crew()
	if crew.Empty() {
		ctx.Println("No crew assigned.")
		return nil
	}

	ctx.Println("Doctors:")
	printNames(ctx, crew.Doctors())
	ctx.Println("Nurses:")
	printNames(ctx, crew.Nurses())

	if res := validation.CheckConsistency(crew, s.Tasks()); res.HasIssues() {
		ctx.Println()
		ctx.Println("⚠ Crew and task lists disagree:")
		ctx.Println(res.FormatReport())
	}
	return nil
}

func printNames(ctx *cli.Context, names []string) {
	if len(names) == 0 {
		ctx.Println("  (none)")
		return
	}
	for _, n := range names {
		ctx.Printf("  - %s\n", n)
	}
}

type CrewSetCmd struct {
	Doctors     []string `name:"doctor" help:"Doctor names (comma-separated or repeated)." sep:","`
	Nurses      []string `name:"nurse" help:"Nurse names (comma-separated or repeated)." sep:","`
	Interactive bool     `short:"i" help:"Pick the crew from current staff and suggestions."`
}

// pickCrew runs the interactive picker. Swapped in tests.
var pickCrew = func(draft *roster.Draft) error {
	doctors := draft.Selected(models.RoleDoctor)
	nurses := draft.Selected(models.RoleNurse)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Doctors").
				Options(huh.NewOptions(draft.Candidates(models.RoleDoctor)...)...).
				Value(&doctors),
			huh.NewMultiSelect[string]().
				Title("Nurses").
				Options(huh.NewOptions(draft.Candidates(models.RoleNurse)...)...).
				Value(&nurses),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive form error: %w", err)
	}

	draft.Select(models.RoleDoctor, doctors)
	draft.Select(models.RoleNurse, nurses)
	return nil
}

func (c *CrewSetCmd) Run(ctx *cli.Context) error {
	if !c.Interactive && len(c.Doctors) == 0 && len(c.Nurses) == 0 {
		return errors.New("give --doctor/--nurse names or use --interactive")
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	var sug *optimizer.State
	if rec, err := ctx.LoadSuggestion(); err == nil {
		st := rec.State()
		sug = &st
	} else {
		logger.Debug("no suggestion for crew candidates", "error", err)
	}
	draft := s.NewCrewDraft(sug)

	if c.Interactive {
		if err := pickCrew(draft); err != nil {
			return err
		}
	} else {
		draft.Select(models.RoleDoctor, c.Doctors)
		draft.Select(models.RoleNurse, c.Nurses)
	}

	if err := s.SaveCrew(context.Background(), draft); err != nil {
		return err
	}
	crew := s.Crew()
	ctx.Printf("✓ Crew saved: %d doctors, %d nurses\n", len(crew.Doctors()), len(crew.Nurses()))
	return nil
}
