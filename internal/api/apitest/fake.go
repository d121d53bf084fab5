// Package apitest provides an in-memory api.Client for tests.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/models"
)

var _ api.Client = (*Fake)(nil)

// Fake records every write and serves reads from its fields. Set an entry
// in Fail to make the named method return that error.
type Fake struct {
	mu sync.Mutex

	Token     string
	Tasks     []models.TaskUpdate
	Crew      *models.Crew
	Timeline  *models.Timeline
	Vitals    *models.Vitals
	Surgeries []models.Surgery
	Plans     map[string]models.PublishedPlan

	AvailabilityBody json.RawMessage
	OptimizedBody    json.RawMessage

	Fail map[string]error
	// FailTaskUpdate fails UpdateTasks only for matching staff names.
	FailTaskUpdate map[string]error

	TaskWrites     []models.TaskUpdate
	CrewWrites     []models.Crew
	TimelineWrites []models.Timeline
	VitalsWrites   []models.Vitals
	SurgeryWrites  map[string]models.SurgeryUpdate
	Feedback       []models.ScenarioFeedback
	Published      []models.PublishedPlan
	Calls          map[string]int

	// Gate, when set, blocks UpdateTasks until it is closed.
	Gate chan struct{}
}

func New() *Fake {
	return &Fake{
		Token:         "test-token",
		Plans:         map[string]models.PublishedPlan{},
		Fail:          map[string]error{},
		SurgeryWrites: map[string]models.SurgeryUpdate{},
		Calls:         map[string]int{},
	}
}

func (f *Fake) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Fail[method]
}

// SetFail sets or clears the error for method.
func (f *Fake) SetFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Fail, method)
		return
	}
	f.Fail[method] = err
}

// CallCount reports how often method ran.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

// TotalCalls counts every call.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		n += c
	}
	return n
}

// Writes returns a copy of the recorded task writes.
func (f *Fake) Writes() []models.TaskUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TaskUpdate(nil), f.TaskWrites...)
}

func (f *Fake) Signup(ctx context.Context, req api.SignupRequest) (*models.User, error) {
	if err := f.enter("Signup"); err != nil {
		return nil, err
	}
	return &models.User{ID: "u1", Email: req.Email, FullName: req.FullName}, nil
}

func (f *Fake) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if err := f.enter("Login"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Token = "test-token"
	return &models.Session{Token: f.Token, Type: "bearer", User: models.User{ID: "u1", Email: email}}, nil
}

func (f *Fake) Logout(ctx context.Context, email string) error {
	if err := f.enter("Logout"); err != nil {
		return err
	}
	f.mu.Lock()
	f.Token = ""
	f.mu.Unlock()
	return nil
}

func (f *Fake) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	return f.enter("ChangePassword")
}

func (f *Fake) FetchTasks(ctx context.Context, patientID string) ([]models.TaskUpdate, error) {
	if err := f.enter("FetchTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TaskUpdate(nil), f.Tasks...), nil
}

// UpdateTasks stores the list as the server would, replacing the entry
// for the same staff member.
func (f *Fake) UpdateTasks(ctx context.Context, update models.TaskUpdate) error {
	if err := f.enter("UpdateTasks"); err != nil {
		return err
	}
	f.mu.Lock()
	gate := f.Gate
	failure := f.FailTaskUpdate[update.StaffName]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.TaskWrites = append(f.TaskWrites, update)
	if failure != nil {
		return failure
	}
	for i, t := range f.Tasks {
		if t.Scope == update.Scope && t.StaffRole == update.StaffRole && t.StaffName == update.StaffName {
			f.Tasks = append(f.Tasks[:i:i], f.Tasks[i+1:]...)
			break
		}
	}
	if len(update.Tasks) > 0 {
		f.Tasks = append(f.Tasks, update)
	}
	return nil
}

func (f *Fake) FetchCrew(ctx context.Context, patientID string) (*models.Crew, error) {
	if err := f.enter("FetchCrew"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Crew == nil {
		return &models.Crew{PatientID: patientID}, nil
	}
	c := *f.Crew
	return &c, nil
}

func (f *Fake) UpdateCrew(ctx context.Context, crew models.Crew) error {
	if err := f.enter("UpdateCrew"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CrewWrites = append(f.CrewWrites, crew)
	c := crew
	f.Crew = &c
	return nil
}

func (f *Fake) FetchTimeline(ctx context.Context, patientID string) (*models.Timeline, error) {
	if err := f.enter("FetchTimeline"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Timeline == nil {
		return &models.Timeline{PatientID: patientID}, nil
	}
	t := *f.Timeline
	return &t, nil
}

func (f *Fake) UpdateTimeline(ctx context.Context, timeline models.Timeline) error {
	if err := f.enter("UpdateTimeline"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TimelineWrites = append(f.TimelineWrites, timeline)
	t := timeline
	f.Timeline = &t
	return nil
}

func (f *Fake) FetchLatestVitals(ctx context.Context, patientID string) (*models.Vitals, error) {
	if err := f.enter("FetchLatestVitals"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Vitals == nil {
		return &models.Vitals{}, nil
	}
	v := *f.Vitals
	return &v, nil
}

func (f *Fake) RecordVitals(ctx context.Context, vitals models.Vitals) error {
	if err := f.enter("RecordVitals"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VitalsWrites = append(f.VitalsWrites, vitals)
	v := vitals
	f.Vitals = &v
	return nil
}

// VitalsCount returns the number of recorded vitals writes.
func (f *Fake) VitalsCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.VitalsWrites)
}

func (f *Fake) FetchSurgeries(ctx context.Context, doctorID string) ([]models.Surgery, error) {
	if err := f.enter("FetchSurgeries"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Surgery(nil), f.Surgeries...), nil
}

func (f *Fake) UpdateSurgery(ctx context.Context, surgeryID string, update models.SurgeryUpdate) (*models.Surgery, error) {
	if err := f.enter("UpdateSurgery"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SurgeryWrites[surgeryID] = update
	for i := range f.Surgeries {
		if f.Surgeries[i].ID == surgeryID {
			f.Surgeries[i] = update.Apply(f.Surgeries[i])
			s := f.Surgeries[i]
			return &s, nil
		}
	}
	return nil, &api.APIError{Status: 404, Message: "Surgery not found"}
}

func (f *Fake) RequestAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error) {
	if err := f.enter("RequestAvailability"); err != nil {
		return nil, err
	}
	return f.AvailabilityBody, nil
}

func (f *Fake) RequestOptimizedAvailability(ctx context.Context, req models.AvailabilityRequest) (json.RawMessage, error) {
	if err := f.enter("RequestOptimizedAvailability"); err != nil {
		return nil, err
	}
	return f.OptimizedBody, nil
}

func (f *Fake) SendScenarioFeedback(ctx context.Context, feedback models.ScenarioFeedback) error {
	if err := f.enter("SendScenarioFeedback"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Feedback = append(f.Feedback, feedback)
	return nil
}

func (f *Fake) PublishPlan(ctx context.Context, plan models.PublishedPlan) (*models.PublishResult, error) {
	if err := f.enter("PublishPlan"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, plan)
	id := fmt.Sprintf("rec-%d", len(f.Published))
	stored := plan
	stored.RecordID = id
	stored.Status = "published"
	f.Plans[id] = stored
	return &models.PublishResult{Message: "Plan published", RecordID: id, Plan: stored}, nil
}

func (f *Fake) FetchPlan(ctx context.Context, recordID string) (*models.PublishedPlan, error) {
	if err := f.enter("FetchPlan"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Plans[recordID]
	if !ok {
		return nil, &api.APIError{Status: 404, Message: "Plan not found"}
	}
	return &p, nil
}

func (f *Fake) FetchPublishedPlans(ctx context.Context, patientID string) ([]models.PublishedPlan, error) {
	if err := f.enter("FetchPublishedPlans"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PublishedPlan
	for _, p := range f.Plans {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *Fake) HasToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Token != ""
}
