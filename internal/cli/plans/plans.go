package plans

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/publisher"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

type PublishCmd struct {
	Tab string `help:"Tab the plan was published from (preop|surgery|postop)." default:"surgery" enum:"preop,surgery,postop"`
}

func (c *PublishCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if ctx.Config.DoctorID == "" {
		return cli.ErrNoDoctor
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	// Background task writes land before the snapshot is taken.
	s.Wait()

	var insights *models.OptimizationInsights
	var emails map[string]string
	if rec, err := ctx.LoadSuggestion(); err == nil {
		insights = rec.Insights()
		emails = synchronizer.SuggestionEmails(rec.State())
	}

	snap := s.PublishSnapshot(c.Tab, insights)
	snap.Emails = emails

	pub := publisher.New(ctx.Client, ctx.Cache, ctx.Metrics)
	st, err := pub.Publish(context.Background(), snap)
	if err != nil {
		if errors.Is(err, publisher.ErrEmptyCrew) {
			return err
		}
		return fmt.Errorf("publish failed: %w", err)
	}
	ctx.Printf("✓ Plan published (record %s)\n", st.RecordID)
	if st.Plan != nil {
		printSummary(ctx, *st.Plan)
	}
	return nil
}

func printSummary(ctx *cli.Context, p models.PublishedPlan) {
	n := 0
	for _, b := range p.Tasks {
		n += len(b.Tasks)
	}
	ctx.Printf("  Crew: %d  Task lists: %d  Tasks: %d  Steps: %d\n", len(p.Crew), len(p.Tasks), n, len(p.Timeline))
	if in := p.OptimizationInsights; in != nil {
		ctx.Printf("  Scenario: %s (%s)\n", in.ScenarioLabel, in.Decision)
	}
}

type PlanShowCmd struct {
	ID string `arg:"" help:"Plan record id."`
}

func (c *PlanShowCmd) Run(ctx *cli.Context) error {
	plan, err := fetchPlan(ctx, c.ID)
	if err != nil {
		return err
	}

	ctx.Printf("Plan %s", storage.PlanKey(plan))
	if plan.Status != "" {
		ctx.Printf(" [%s]", plan.Status)
	}
	ctx.Println()
	ctx.Printf("Patient: %s  Doctor: %s  Published: %s\n", plan.PatientID, plan.DoctorID, storage.PublishedAt(plan).Local().Format("2006-01-02 15:04"))
	if plan.PublishedBy != "" {
		ctx.Printf("By: %s\n", plan.PublishedBy)
	}

	ctx.Println("\nCrew:")
	for _, m := range plan.Crew {
		ctx.Printf("  %-6s %-20s %s\n", m.Role, m.Name, m.Email)
	}
	if len(plan.Timeline) > 0 {
		ctx.Println("\nTimeline:")
		for _, st := range plan.Timeline {
			ctx.Printf("  %-8s %-10s %-30s %s\n", st.Status, st.Time, st.Title, st.Owner)
		}
	}
	if len(plan.Tasks) > 0 {
		ctx.Println("\nTasks:")
		for _, b := range plan.Tasks {
			ctx.Printf("  %s / %s (%s)\n", b.Scope.Label(), b.OwnerName, b.OwnerRole)
			for i, t := range b.Tasks {
				ctx.Printf("    %s\n", cli.FormatTask(i+1, t))
			}
		}
	}
	if !plan.Vitals.Empty() {
		ctx.Printf("\nVitals: HR %s  BP %s  SpO2 %s\n", plan.Vitals.HeartRate, plan.Vitals.BloodPressure, plan.Vitals.SpO2)
	}
	if in := plan.OptimizationInsights; in != nil {
		ctx.Printf("\nScenario: %s  coverage %.0f%%  confidence %.0f%%  %s\n", in.ScenarioLabel, in.CoverageScore*100, in.Confidence*100, in.Decision)
		if in.Notes != "" {
			ctx.Printf("  %s\n", in.Notes)
		}
	}
	return nil
}

// fetchPlan asks the server first and falls back to the local copy.
func fetchPlan(ctx *cli.Context, id string) (models.PublishedPlan, error) {
	if ctx.Client.HasToken() {
		p, err := ctx.Client.FetchPlan(context.Background(), id)
		if err == nil {
			if err := ctx.Cache.SavePublishedPlan(*p); err != nil {
				logger.Warn("failed to cache plan", "record_id", id, "error", err)
			}
			return *p, nil
		}
		logger.Warn("plan fetch failed, trying cache", "record_id", id, "error", err)
		if cached, cerr := ctx.Cache.GetPublishedPlan(id); cerr == nil {
			ctx.Println("⚠ Showing cached copy")
			return cached, nil
		}
		return models.PublishedPlan{}, err
	}
	p, err := ctx.Cache.GetPublishedPlan(id)
	if errors.Is(err, storage.ErrNotFound) {
		return p, fmt.Errorf("plan %s not found in the local cache", id)
	}
	return p, err
}

type PlanListCmd struct{}

func (c *PlanListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequirePatient(); err != nil {
		return err
	}
	pid := ctx.Config.PatientID

	var plans []models.PublishedPlan
	fetched := false
	if ctx.Client.HasToken() {
		list, err := ctx.Client.FetchPublishedPlans(context.Background(), pid)
		if err != nil {
			ctx.Printf("⚠ Could not fetch plans, showing cached list: %v\n", err)
		} else {
			plans, fetched = list, true
			for _, p := range list {
				if err := ctx.Cache.SavePublishedPlan(p); err != nil {
					logger.Warn("failed to cache plan", "record_id", storage.PlanKey(p), "error", err)
				}
			}
		}
	}
	if !fetched {
		list, err := ctx.Cache.ListPublishedPlans(pid)
		if err != nil {
			return err
		}
		plans = list
	}

	if len(plans) == 0 {
		ctx.Println("No published plans.")
		return nil
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return storage.PublishedAt(plans[i]).After(storage.PublishedAt(plans[j]))
	})
	for _, p := range plans {
		scenario := ""
		if p.OptimizationInsights != nil {
			scenario = p.OptimizationInsights.ScenarioLabel
		}
		ctx.Printf("%-38s %s  crew %d  %s\n", storage.PlanKey(p), storage.PublishedAt(p).Local().Format("2006-01-02 15:04"), len(p.Crew), scenario)
	}
	return nil
}
