// Package synchronizer owns the client-side task, crew and case state and
// keeps it in step with the backend. Mutations apply locally first; writes
// run in the background and failures resync, roll back or notify.
package synchronizer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/metrics"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/taskstore"
)

type Options struct {
	PatientID   string
	DoctorID    string
	PerformedBy string
	MoveMode    constants.MoveMode
	// DefaultRole resolves staff whose role cannot be inferred.
	DefaultRole models.Role
	Cache       storage.Provider
	Notifier    notifier.Notifier
	Metrics     *metrics.Recorder
}

type Synchronizer struct {
	client api.Client
	opts   Options

	mu        sync.Mutex
	tasks     taskstore.Store
	crew      roster.Roster
	timeline  []models.TimelineStep
	vitals    models.Vitals
	surgeries []models.Surgery
	loadErr   error
	closed    bool

	wg sync.WaitGroup
}

func New(client api.Client, opts Options) *Synchronizer {
	if opts.Notifier == nil {
		opts.Notifier = notifier.Log{}
	}
	if opts.MoveMode == "" {
		opts.MoveMode = constants.MoveIndependent
	}
	if opts.DefaultRole == "" {
		opts.DefaultRole = models.RoleNurse
	}
	return &Synchronizer{
		client: client,
		opts:   opts,
		tasks:  taskstore.New(),
	}
}

func (s *Synchronizer) PatientID() string { return s.opts.PatientID }

func (s *Synchronizer) DoctorID() string { return s.opts.DoctorID }

func (s *Synchronizer) MoveMode() constants.MoveMode { return s.opts.MoveMode }

// Demo reports whether writes are skipped because there is no case or no
// session to write with.
func (s *Synchronizer) Demo() bool {
	return s.opts.PatientID == "" || !s.client.HasToken()
}

func (s *Synchronizer) notify(level notifier.Level, text string) {
	if err := s.opts.Notifier.Notify(level, text); err != nil {
		logger.Debug("notification not delivered", "error", err)
	}
}

// Load fetches tasks, crew, timeline and latest vitals. A failed fetch keeps
// the cached copy, or an empty one, and the first error is kept for LoadErr.
// In demo mode nothing is fetched and only the cache is read.
func (s *Synchronizer) Load(ctx context.Context) error {
	if s.Demo() {
		s.hydrateFromCache()
		s.setLoadErr(nil)
		return nil
	}

	pid := s.opts.PatientID
	var errs []error

	if entries, err := s.client.FetchTasks(ctx, pid); err != nil {
		errs = append(errs, err)
		s.hydrateKind(storage.KindTasks)
	} else {
		s.mu.Lock()
		s.tasks = taskstore.FromServer(entries)
		s.mu.Unlock()
		s.cache(storage.KindTasks, entries)
	}

	if crew, err := s.client.FetchCrew(ctx, pid); err != nil {
		errs = append(errs, err)
		s.hydrateKind(storage.KindCrew)
	} else {
		s.mu.Lock()
		s.crew = roster.FromCrew(*crew)
		s.mu.Unlock()
		s.cache(storage.KindCrew, crew)
	}

	if tl, err := s.client.FetchTimeline(ctx, pid); err != nil {
		errs = append(errs, err)
		s.hydrateKind(storage.KindTimeline)
	} else {
		s.mu.Lock()
		s.timeline = append([]models.TimelineStep(nil), tl.Steps...)
		s.mu.Unlock()
		s.cache(storage.KindTimeline, tl)
	}

	if v, err := s.client.FetchLatestVitals(ctx, pid); err != nil {
		errs = append(errs, err)
		s.hydrateKind(storage.KindVitals)
	} else {
		s.mu.Lock()
		s.vitals = *v
		s.mu.Unlock()
		s.cache(storage.KindVitals, v)
	}

	if len(errs) > 0 {
		logger.Warn("case load incomplete", "patient_id", pid, "errors", len(errs), "first", errs[0])
		s.setLoadErr(errs[0])
		return errs[0]
	}
	s.setLoadErr(nil)
	return nil
}

// Reload is the retry affordance after a failed load.
func (s *Synchronizer) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Synchronizer) setLoadErr(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// LoadErr is the error from the last Load, if any.
func (s *Synchronizer) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *Synchronizer) cache(kind storage.SnapshotKind, v any) {
	if s.opts.Cache == nil || s.opts.PatientID == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		logger.Warn("failed to encode cache snapshot", "kind", kind, "error", err)
		return
	}
	if err := s.opts.Cache.SaveSnapshot(s.opts.PatientID, kind, data); err != nil {
		logger.Warn("failed to write cache snapshot", "kind", kind, "error", err)
	}
}

func (s *Synchronizer) cacheTasks() {
	s.mu.Lock()
	entries := s.tasks.Snapshot(s.opts.PatientID)
	s.mu.Unlock()
	s.cache(storage.KindTasks, entries)
}

func (s *Synchronizer) hydrateFromCache() {
	for _, kind := range []storage.SnapshotKind{storage.KindTasks, storage.KindCrew, storage.KindTimeline, storage.KindVitals} {
		s.hydrateKind(kind)
	}
}

func (s *Synchronizer) hydrateKind(kind storage.SnapshotKind) {
	if s.opts.Cache == nil || s.opts.PatientID == "" {
		return
	}
	snap, err := s.opts.Cache.GetSnapshot(s.opts.PatientID, kind)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("failed to read cache snapshot", "kind", kind, "error", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case storage.KindTasks:
		var entries []models.TaskUpdate
		if err = json.Unmarshal(snap.Payload, &entries); err == nil {
			s.tasks = taskstore.FromServer(entries)
		}
	case storage.KindCrew:
		var crew models.Crew
		if err = json.Unmarshal(snap.Payload, &crew); err == nil {
			s.crew = roster.FromCrew(crew)
		}
	case storage.KindTimeline:
		var tl models.Timeline
		if err = json.Unmarshal(snap.Payload, &tl); err == nil {
			s.timeline = tl.Steps
		}
	case storage.KindVitals:
		var v models.Vitals
		if err = json.Unmarshal(snap.Payload, &v); err == nil {
			s.vitals = v
		}
	}
	if err != nil {
		logger.Warn("ignoring corrupt cache snapshot", "kind", kind, "error", err)
		return
	}
	logger.Debug("hydrated from cache", "kind", kind, "updated_at", snap.UpdatedAt)
}

func (s *Synchronizer) Tasks() taskstore.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks
}

func (s *Synchronizer) Crew() roster.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crew
}

func (s *Synchronizer) Timeline() []models.TimelineStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TimelineStep(nil), s.timeline...)
}

func (s *Synchronizer) Vitals() models.Vitals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vitals
}

// SetVitals records a reading taken elsewhere, typically by the poller.
func (s *Synchronizer) SetVitals(v models.Vitals) {
	s.mu.Lock()
	s.vitals = v
	s.mu.Unlock()
	s.cache(storage.KindVitals, v)
}

// Wait blocks until every background write has finished.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Close lets in-flight writes finish and drops their outcomes.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
