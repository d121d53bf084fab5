package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/publisher"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/validation"
)

var ErrUnknownSurgery = errors.New("surgery not found")

// LoadSurgeries fetches the doctor's cases. Without a session, or when the
// fetch fails, the list cached under the doctor id is used instead.
func (s *Synchronizer) LoadSurgeries(ctx context.Context) ([]models.Surgery, error) {
	if s.opts.DoctorID == "" || !s.client.HasToken() {
		s.hydrateSurgeries()
		return s.Surgeries(), nil
	}
	list, err := s.client.FetchSurgeries(ctx, s.opts.DoctorID)
	if err != nil {
		s.hydrateSurgeries()
		return s.Surgeries(), err
	}
	s.mu.Lock()
	s.surgeries = append([]models.Surgery(nil), list...)
	s.mu.Unlock()
	s.cacheSurgeries()
	return list, nil
}

func (s *Synchronizer) cacheSurgeries() {
	if s.opts.Cache == nil || s.opts.DoctorID == "" {
		return
	}
	data, err := json.Marshal(s.Surgeries())
	if err != nil {
		return
	}
	if err := s.opts.Cache.SaveSnapshot(s.opts.DoctorID, storage.KindSurgeries, data); err != nil {
		logger.Warn("failed to write cache snapshot", "kind", storage.KindSurgeries, "error", err)
	}
}

func (s *Synchronizer) hydrateSurgeries() {
	if s.opts.Cache == nil || s.opts.DoctorID == "" {
		return
	}
	snap, err := s.opts.Cache.GetSnapshot(s.opts.DoctorID, storage.KindSurgeries)
	if err != nil {
		return
	}
	var list []models.Surgery
	if err := json.Unmarshal(snap.Payload, &list); err != nil {
		logger.Warn("ignoring corrupt cache snapshot", "kind", storage.KindSurgeries, "error", err)
		return
	}
	s.mu.Lock()
	s.surgeries = list
	s.mu.Unlock()
}

func (s *Synchronizer) Surgeries() []models.Surgery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Surgery(nil), s.surgeries...)
}

// UpdateSurgeryStatus changes a case status optimistically. The previous
// list is restored if the server rejects the change.
func (s *Synchronizer) UpdateSurgeryStatus(ctx context.Context, surgeryID, status string) (models.Surgery, error) {
	update := models.SurgeryUpdate{Status: &status}

	s.mu.Lock()
	before := append([]models.Surgery(nil), s.surgeries...)
	idx := -1
	for i := range s.surgeries {
		if s.surgeries[i].ID == surgeryID {
			idx = i
			s.surgeries[i] = update.Apply(s.surgeries[i])
			break
		}
	}
	s.mu.Unlock()

	if s.opts.DoctorID == "" || !s.client.HasToken() {
		if idx < 0 {
			return models.Surgery{}, fmt.Errorf("%w: %s", ErrUnknownSurgery, surgeryID)
		}
		s.cacheSurgeries()
		return s.Surgeries()[idx], nil
	}

	updated, err := s.client.UpdateSurgery(ctx, surgeryID, update)
	if err != nil {
		s.mu.Lock()
		s.surgeries = before
		s.mu.Unlock()
		logger.Error("failed to update surgery", "surgery_id", surgeryID, "status", status, "error", err)
		s.notify(notifier.LevelError, fmt.Sprintf("Could not update case status: %v", err))
		return models.Surgery{}, err
	}
	if idx >= 0 {
		s.mu.Lock()
		if idx < len(s.surgeries) && s.surgeries[idx].ID == surgeryID {
			s.surgeries[idx] = *updated
		}
		s.mu.Unlock()
	}
	s.cacheSurgeries()
	return *updated, nil
}

// UpdateTimeline replaces the timeline and writes it synchronously. The
// previous steps come back if the write fails.
func (s *Synchronizer) UpdateTimeline(ctx context.Context, steps []models.TimelineStep) error {
	if err := validation.ValidateTimeline(steps).Err(); err != nil {
		return err
	}

	s.mu.Lock()
	before := s.timeline
	s.timeline = append([]models.TimelineStep(nil), steps...)
	s.mu.Unlock()

	tl := models.Timeline{PatientID: s.opts.PatientID, Steps: steps, PerformedBy: s.opts.PerformedBy}
	if !s.Demo() {
		if err := s.client.UpdateTimeline(ctx, tl); err != nil {
			s.mu.Lock()
			s.timeline = before
			s.mu.Unlock()
			logger.Error("failed to update timeline", "patient_id", s.opts.PatientID, "error", err)
			s.notify(notifier.LevelError, fmt.Sprintf("Could not update timeline: %v", err))
			return err
		}
	}
	s.cache(storage.KindTimeline, tl)
	return nil
}

// SetStepStatus changes one timeline step's status.
func (s *Synchronizer) SetStepStatus(ctx context.Context, stepID string, status models.StepStatus) error {
	steps := s.Timeline()
	found := false
	for i := range steps {
		if steps[i].ID == stepID {
			steps[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}
	return s.UpdateTimeline(ctx, steps)
}

// PublishSnapshot captures the state a plan is assembled from.
func (s *Synchronizer) PublishSnapshot(tab string, insights *models.OptimizationInsights) publisher.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return publisher.Snapshot{
		DoctorID:  s.opts.DoctorID,
		PatientID: s.opts.PatientID,
		Timeline:  append([]models.TimelineStep(nil), s.timeline...),
		Crew:      s.crew,
		Tasks:     s.tasks,
		Vitals:    s.vitals,
		Tab:       tab,
		Insights:  insights,
	}
}

// SuggestionEmails maps suggested staff names to their addresses so a
// published plan can use real contacts.
func SuggestionEmails(st optimizer.State) map[string]string {
	out := map[string]string{}
	for _, c := range []optimizer.Category{optimizer.CategoryNurses, optimizer.CategoryAssistantDoctors} {
		for _, r := range st.Resources(c) {
			if r.Email != "" {
				out[r.Name] = r.Email
			}
		}
	}
	return out
}
