package publisher

import (
	"context"
	"sync"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/metrics"
	"github.com/julianstephens/surgisync/internal/models"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePublishing
	PhasePublished
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePublishing:
		return "publishing"
	case PhasePublished:
		return "published"
	case PhaseFailed:
		return "failed"
	}
	return "idle"
}

// State is one publish attempt.
type State struct {
	Phase    Phase
	RecordID string
	Plan     *models.PublishedPlan
	Err      string
}

// Begin moves to publishing from any settled phase, so a failed attempt
// retries immediately and a published plan can be republished without a
// dismiss. Only an attempt already in flight is refused.
func (s State) Begin() (State, error) {
	if s.Phase == PhasePublishing {
		return s, ErrInFlight
	}
	return State{Phase: PhasePublishing}, nil
}

func (s State) Succeed(plan models.PublishedPlan, recordID string) State {
	return State{Phase: PhasePublished, RecordID: recordID, Plan: &plan}
}

func (s State) Fail(err error) State {
	msg := "publish failed"
	if err != nil {
		msg = err.Error()
	}
	return State{Phase: PhaseFailed, Err: msg}
}

// Dismiss returns to idle.
func (s State) Dismiss() State { return State{Phase: PhaseIdle} }

// PlanCache keeps published plans for offline lookup.
type PlanCache interface {
	SavePublishedPlan(plan models.PublishedPlan) error
}

// Publisher submits plans and tracks the attempt state.
type Publisher struct {
	client  api.Client
	cache   PlanCache
	metrics *metrics.Recorder

	mu    sync.Mutex
	state State
}

// New returns a publisher. cache and rec may be nil.
func New(client api.Client, cache PlanCache, rec *metrics.Recorder) *Publisher {
	return &Publisher{client: client, cache: cache, metrics: rec}
}

func (p *Publisher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Dismiss clears a published or failed result.
func (p *Publisher) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Phase != PhasePublishing {
		p.state = p.state.Dismiss()
	}
}

// Publish assembles and submits the plan in a single call. Nothing is
// rolled back on failure; the caller may retry at once.
func (p *Publisher) Publish(ctx context.Context, snap Snapshot) (State, error) {
	plan, err := Assemble(snap)
	if err != nil {
		return p.State(), err
	}

	p.mu.Lock()
	next, err := p.state.Begin()
	if err != nil {
		p.mu.Unlock()
		return next, err
	}
	p.state = next
	p.mu.Unlock()

	res, err := p.client.PublishPlan(ctx, plan)
	if err != nil {
		logger.Error("plan publish failed", "plan_id", plan.PlanID, "error", err)
		p.metrics.PublishAttempt(ctx, PhaseFailed.String())
		return p.set(p.State().Fail(err)), err
	}

	stored := plan
	recordID := res.RecordID
	if res.Plan.PlanID != "" {
		stored = res.Plan
	}
	if recordID == "" {
		recordID = stored.RecordID
	}
	if stored.RecordID == "" {
		stored.RecordID = recordID
	}
	p.metrics.PublishAttempt(ctx, PhasePublished.String())
	logger.Info("plan published", "plan_id", plan.PlanID, "record_id", recordID)

	if p.cache != nil {
		if err := p.cache.SavePublishedPlan(stored); err != nil {
			logger.Warn("failed to cache published plan", "record_id", recordID, "error", err)
		}
	}
	return p.set(p.State().Succeed(stored, recordID)), nil
}

func (p *Publisher) set(s State) State {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	return s
}
