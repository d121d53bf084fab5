package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/surgisync/internal/api/apitest"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/taskstore"
)

type memCache struct {
	plans []models.PublishedPlan
	err   error
}

func (m *memCache) SavePublishedPlan(p models.PublishedPlan) error {
	m.plans = append(m.plans, p)
	return m.err
}

func withFixedID(t *testing.T, id string) {
	t.Helper()
	orig := newPlanID
	newPlanID = func(time.Time) string { return id }
	t.Cleanup(func() { newPlanID = orig })
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Dr. Wong":       "dr-wong",
		"Susan":          "susan",
		"  Mary-Ann  O'": "mary-ann-o",
		"...":            "staff",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestPublishCrewWithoutTasks(t *testing.T) {
	withFixedID(t, "plan-fixed")
	fake := apitest.New()
	p := New(fake, nil, nil)

	st, err := p.Publish(context.Background(), Snapshot{
		DoctorID:  "doc-1",
		PatientID: "p1",
		Crew:      roster.New([]string{"Dr. Wong"}, []string{"Susan"}),
		Tasks:     taskstore.New(),
		Tab:       "preop",
	})
	require.NoError(t, err)
	assert.Equal(t, PhasePublished, st.Phase)
	assert.Equal(t, "rec-1", st.RecordID)

	require.Len(t, fake.Published, 1)
	data, err := json.Marshal(fake.Published[0])
	require.NoError(t, err)
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.JSONEq(t, `[]`, string(wire["tasks"]))
	assert.Equal(t, []models.CrewContact{
		{Role: models.RoleDoctor, Name: "Dr. Wong", Email: "dr-wong@care-team.local"},
		{Role: models.RoleNurse, Name: "Susan", Email: "susan@care-team.local"},
	}, fake.Published[0].Crew)
}

func TestPublishRejectsEmptyCrew(t *testing.T) {
	fake := apitest.New()
	p := New(fake, nil, nil)
	_, err := p.Publish(context.Background(), Snapshot{Tasks: taskstore.New()})
	assert.ErrorIs(t, err, ErrEmptyCrew)
	assert.Equal(t, 0, fake.TotalCalls())
	assert.Equal(t, PhaseIdle, p.State().Phase)
}

func TestBundlesOrder(t *testing.T) {
	s := taskstore.New()
	add := func(scope models.Scope, role models.Role, name string) {
		s, _ = s.Mutate(scope, role, name, taskstore.Append(models.TaskRecord{Label: "x", Status: models.StatusPending}))
	}
	add(models.ScopePostOp, models.RoleNurse, "Zoe")
	add(models.ScopePreOp, models.RoleNurse, "Susan")
	add(models.ScopePreOp, models.RoleDoctor, "Dr. Wong")
	add(models.ScopePreOp, models.RoleNurse, "Elizabeth")

	var got []string
	for _, b := range Bundles(s) {
		got = append(got, string(b.Scope)+"/"+string(b.OwnerRole)+"/"+b.OwnerName)
	}
	assert.Equal(t, []string{
		"preop/doctor/Dr. Wong",
		"preop/nurse/Elizabeth",
		"preop/nurse/Susan",
		"postop/nurse/Zoe",
	}, got)
}

func TestPublishFailureThenRetry(t *testing.T) {
	fake := apitest.New()
	fake.SetFail("PublishPlan", errors.New("backend down"))
	cache := &memCache{}
	p := New(fake, cache, nil)
	snap := Snapshot{Crew: roster.New(nil, []string{"Susan"}), Tasks: taskstore.New()}

	st, err := p.Publish(context.Background(), snap)
	require.Error(t, err)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "backend down", st.Err)
	assert.Empty(t, cache.plans)

	fake.SetFail("PublishPlan", nil)
	st, err = p.Publish(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, PhasePublished, st.Phase)
	require.Len(t, cache.plans, 1)
	assert.Equal(t, st.RecordID, cache.plans[0].RecordID)

	p.Dismiss()
	assert.Equal(t, PhaseIdle, p.State().Phase)
}

func TestBeginWhilePublishing(t *testing.T) {
	s := State{Phase: PhasePublishing}
	_, err := s.Begin()
	assert.ErrorIs(t, err, ErrInFlight)

	next, err := State{Phase: PhaseFailed, Err: "x"}.Begin()
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhasePublishing}, next)
}

func TestBeginAfterPublished(t *testing.T) {
	done := State{}.Succeed(models.PublishedPlan{PlanID: "p-1"}, "rec-1")
	next, err := done.Begin()
	require.NoError(t, err)
	assert.Equal(t, State{Phase: PhasePublishing}, next)
	assert.Empty(t, next.RecordID)
}

func TestAssembleCarriesInsightsAndEmails(t *testing.T) {
	withFixedID(t, "id-1")
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	ins := &models.OptimizationInsights{ScenarioID: "s-a", Decision: models.DecisionAccepted}
	plan, err := Assemble(Snapshot{
		Crew:     roster.New([]string{"Dr. Wong"}, nil),
		Emails:   map[string]string{"Dr. Wong": "wong@hospital.org"},
		Tasks:    taskstore.New(),
		Insights: ins,
		Now:      now,
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", plan.PlanID)
	assert.Equal(t, "2026-10-17T09:30:00Z", plan.Timestamp)
	assert.Equal(t, "wong@hospital.org", plan.Crew[0].Email)
	assert.Same(t, ins, plan.OptimizationInsights)
}
