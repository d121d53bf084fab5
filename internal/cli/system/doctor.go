package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/keyring"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/taskstore"
	"github.com/julianstephens/surgisync/internal/validation"
)

// errSkipped marks a check that could not run.
var errSkipped = errors.New("skipped")

// keyringAvailable is swapped in tests.
var keyringAvailable = keyring.IsAvailable

type DoctorCmd struct{}

type check struct {
	name    string
	warning bool
	run     func() error
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	cacheReachable := false
	checks := []check{
		{name: "Config", run: ctx.Config.Validate},
		{name: "Cache reachable", run: func() error {
			if err := ctx.Cache.Load(); err != nil {
				return err
			}
			cacheReachable = true
			return nil
		}},
		{name: "Keyring", warning: true, run: func() error {
			if !keyringAvailable() {
				return keyring.ErrKeyringUnavailable
			}
			return nil
		}},
		{name: "Session", warning: true, run: func() error {
			return ctx.RequireSession()
		}},
		{name: "Backend", run: func() error { return checkBackend(ctx) }},
		{name: "Case consistency", run: func() error {
			if !cacheReachable {
				return fmt.Errorf("%w (cache not reachable)", errSkipped)
			}
			return checkConsistency(ctx)
		}},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "Tray notifier", warning: true, run: notifier.TrayStatus},
	}

	hasError := false
	for _, c := range checks {
		err := c.run()
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case errors.Is(err, errSkipped):
			ctx.Printf("⊘ %s: SKIPPED %s\n", c.name, reason(err))
		case c.warning:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		return fmt.Errorf("one or more checks failed")
	}
	ctx.Println("All checks passed.")
	return nil
}

func reason(err error) string {
	msg := err.Error()
	if msg == errSkipped.Error() {
		return ""
	}
	return msg[len(errSkipped.Error())+1:]
}

func checkBackend(ctx *cli.Context) error {
	if !ctx.Client.HasToken() {
		return fmt.Errorf("%w (not logged in)", errSkipped)
	}
	if ctx.Config.DoctorID == "" {
		return fmt.Errorf("%w (no doctor id)", errSkipped)
	}
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := ctx.Client.FetchSurgeries(c, ctx.Config.DoctorID); err != nil {
		if api.IsUnauthorized(err) {
			return fmt.Errorf("session rejected, run 'surgisync login': %w", err)
		}
		return err
	}
	return nil
}

// checkConsistency compares the cached crew and task lists.
func checkConsistency(ctx *cli.Context) error {
	pid := ctx.Config.PatientID
	if pid == "" {
		return fmt.Errorf("%w (no patient selected)", errSkipped)
	}
	crewSnap, err := ctx.Cache.GetSnapshot(pid, storage.KindCrew)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w (no cached crew)", errSkipped)
	}
	if err != nil {
		return err
	}
	var crew models.Crew
	if err := json.Unmarshal(crewSnap.Payload, &crew); err != nil {
		return fmt.Errorf("corrupt cached crew: %w", err)
	}

	store := taskstore.New()
	if taskSnap, err := ctx.Cache.GetSnapshot(pid, storage.KindTasks); err == nil {
		var entries []models.TaskUpdate
		if err := json.Unmarshal(taskSnap.Payload, &entries); err != nil {
			return fmt.Errorf("corrupt cached tasks: %w", err)
		}
		store = taskstore.FromServer(entries)
	}

	res := validation.CheckConsistency(roster.FromCrew(crew), store)
	if res.HasIssues() {
		return fmt.Errorf("%s", res.FormatReport())
	}
	return nil
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2024 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if now.Location() == nil {
		return fmt.Errorf("no local timezone")
	}
	return nil
}
