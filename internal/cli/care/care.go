package care

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/vitals"
)

type TimelineShowCmd struct{}

func (c *TimelineShowCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	steps := s.Timeline()
	if len(steps) == 0 {
		ctx.Println("No timeline steps.")
		return nil
	}
	for _, st := range steps {
		ctx.Printf("%s %-8s %-10s %-30s %s\n", stepMark(st.Status), st.ID, st.Time, st.Title, st.Owner)
	}
	return nil
}

func stepMark(s models.StepStatus) string {
	switch s {
	case models.StepDone:
		return "✓"
	case models.StepActive:
		return "▶"
	}
	return "·"
}

type TimelineSetCmd struct {
	Step   string `arg:"" help:"Step id."`
	Status string `arg:"" help:"New status (done|active|upcoming)."`
}

func (c *TimelineSetCmd) Run(ctx *cli.Context) error {
	status := models.StepStatus(strings.ToLower(strings.TrimSpace(c.Status)))
	if !status.Valid() {
		return fmt.Errorf("invalid step status %q (expected done|active|upcoming)", c.Status)
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	if err := s.SetStepStatus(context.Background(), c.Step, status); err != nil {
		return err
	}
	ctx.Printf("✓ Step %s is now %s\n", c.Step, status)
	return nil
}

type TimelineAssignCmd struct {
	Step  string `arg:"" help:"Step id."`
	Scope string `short:"s" help:"Scope the task goes to (preop|surgery|postop)." default:"surgery"`
}

func (c *TimelineAssignCmd) Run(ctx *cli.Context) error {
	scope, err := models.ParseScope(c.Scope)
	if err != nil {
		return err
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	resolved, err := s.ApplyPlanStep(c.Step, scope)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Assigned %q to %s (%s, %s)\n", resolved.Task.Label, resolved.Staff, resolved.Role, resolved.Scope.Label())
	return nil
}

type VitalsLatestCmd struct{}

func (c *VitalsLatestCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	printVitals(ctx, s.Vitals())
	return nil
}

func printVitals(ctx *cli.Context, v models.Vitals) {
	if v.Empty() {
		ctx.Println("No vitals recorded.")
		return
	}
	ctx.Printf("HR %s  BP %s  SpO2 %s", v.HeartRate, v.BloodPressure, v.SpO2)
	if v.CapturedAt != "" {
		ctx.Printf("  (%s)", v.CapturedAt)
	}
	ctx.Println()
}

type VitalsWatchCmd struct{}

func (c *VitalsWatchCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := vitals.NewPoller(ctx.Client, ctx.Config.PatientID, ctx.Config.EffectiveVitalsInterval(), s.Vitals(), ctx.Notifier)
	p.OnReading = func(v models.Vitals) {
		s.SetVitals(v)
		printVitals(ctx, v)
	}
	ctx.Printf("Recording vitals every %s for %s. Press Ctrl+C to stop.\n", ctx.Config.EffectiveVitalsInterval(), ctx.Config.PatientID)
	printVitals(ctx, p.Last())
	p.Run(runCtx)
	return nil
}
