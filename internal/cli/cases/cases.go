package cases

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

type CaseListCmd struct{}

func (c *CaseListCmd) Run(ctx *cli.Context) error {
	if ctx.Config.DoctorID == "" {
		return cli.ErrNoDoctor
	}
	s := synchronizer.New(ctx.Client, ctx.Options())
	list, err := s.LoadSurgeries(context.Background())
	if err != nil {
		ctx.Printf("⚠ Could not fetch cases, showing cached list: %v\n", err)
	}
	if len(list) == 0 {
		ctx.Println("No cases found.")
		return nil
	}

	ctx.Printf("Cases for %s:\n\n", ctx.Config.DoctorID)
	for _, sg := range list {
		ctx.Printf("%-26s %-12s %-22s %s\n", sg.ID, sg.Date, sg.PatientName, cli.ColorStatus(sg.Status))
		if sg.Procedure != "" {
			ctx.Printf("  %s\n", sg.Procedure)
		}
	}
	return nil
}

type CaseStatusCmd struct {
	ID     string `arg:"" help:"Surgery id."`
	Status string `arg:"" help:"New status (Scheduled, Pre-Op, In Progress, Post-Op, Completed, Pending, Cancelled)."`
}

// ParseSurgeryStatus matches a status against the offered values in any case.
func ParseSurgeryStatus(s string) (string, error) {
	for _, st := range models.SurgeryStatuses {
		if strings.EqualFold(strings.TrimSpace(s), st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q (expected one of: %s)", s, strings.Join(models.SurgeryStatuses, ", "))
}

func (c *CaseStatusCmd) Run(ctx *cli.Context) error {
	if ctx.Config.DoctorID == "" {
		return cli.ErrNoDoctor
	}
	status, err := ParseSurgeryStatus(c.Status)
	if err != nil {
		return err
	}

	s := synchronizer.New(ctx.Client, ctx.Options())
	bg := context.Background()
	if _, err := s.LoadSurgeries(bg); err != nil {
		return fmt.Errorf("failed to load cases: %w", err)
	}
	updated, err := s.UpdateSurgeryStatus(bg, c.ID, status)
	if err != nil {
		return fmt.Errorf("failed to update case %s: %w", c.ID, err)
	}
	ctx.Printf("✓ %s (%s) is now %s\n", updated.PatientName, updated.ID, cli.ColorStatus(updated.Status))
	return nil
}
