package system

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/publisher"
	"github.com/julianstephens/surgisync/internal/synchronizer"
	"github.com/julianstephens/surgisync/internal/tui"
	"github.com/julianstephens/surgisync/internal/vitals"
)

type TuiCmd struct {
	NoVitals bool `help:"Do not record simulated vitals while the panel is open."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequirePatient(); err != nil {
		return err
	}

	queue := notifier.NewQueue(constants.ToastDuration)
	opts := ctx.Options()
	// Toasts replace stderr output while the alt screen is up.
	opts.Notifier = notifier.Multi{queue, notifier.Log{}}
	s := synchronizer.New(ctx.Client, opts)
	defer s.Close()

	sug := optimizer.Empty()
	var req *models.AvailabilityRequest
	var legacy bool
	rec, err := ctx.LoadSuggestion()
	if err == nil {
		sug = rec.State()
		r := rec.Request
		req, legacy = &r, rec.Legacy
	}

	model := tui.NewModel(tui.Options{
		Sync:        s,
		Queue:       queue,
		Publisher:   publisher.New(ctx.Client, ctx.Cache, ctx.Metrics),
		Adapter:     optimizer.NewAdapter(ctx.Client),
		Suggestions: sug,
		Request:     req,
		Legacy:      legacy,
		OnSuggestions: func(st optimizer.State, decision models.Decision) {
			if rec == nil {
				return
			}
			rec.Capture(st)
			rec.Decision = decision
			if decision == "" {
				rec.Notes = ""
			}
			if err := ctx.SaveSuggestion(*rec); err != nil {
				logger.Warn("failed to save suggestion state", "error", err)
			}
		},
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !c.NoVitals && ctx.Client.HasToken() {
		poller := vitals.NewPoller(ctx.Client, ctx.Config.PatientID, ctx.Config.EffectiveVitalsInterval(), s.Vitals(), queue)
		poller.OnReading = func(v models.Vitals) {
			p.Send(tui.VitalsMsg(v))
		}
		go poller.Run(runCtx)
	}

	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
	cancel()
	s.Wait()
	queue.Clear()
	return nil
}
