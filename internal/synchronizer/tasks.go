package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/taskstore"
	"github.com/julianstephens/surgisync/internal/validation"
)

var (
	ErrTaskIndex   = errors.New("task index out of range")
	ErrUnknownStep = errors.New("timeline step not found")
)

// TaskRef addresses one task by bucket, staff and position.
type TaskRef struct {
	Scope models.Scope
	Role  models.Role
	Staff string
	Index int
}

func (r TaskRef) String() string {
	return fmt.Sprintf("%s/%s/%s#%d", r.Scope, r.Role, r.Staff, r.Index)
}

// MutateTasks applies update to one staff list and, when persist is set,
// writes the resulting list in the background. A failed write resyncs the
// whole store from the server; there is no local rollback. The returned
// list is the one that was applied.
func (s *Synchronizer) MutateTasks(scope models.Scope, role models.Role, staff string, update taskstore.Updater, persist bool) []models.TaskRecord {
	s.mu.Lock()
	next, result := s.tasks.Mutate(scope, role, staff, update)
	s.tasks = next
	s.mu.Unlock()

	s.cacheTasks()
	if persist {
		s.persistAsync(scope, role, staff, result)
	}
	return result
}

func (s *Synchronizer) taskUpdate(scope models.Scope, role models.Role, staff string, tasks []models.TaskRecord) models.TaskUpdate {
	if tasks == nil {
		tasks = []models.TaskRecord{}
	}
	return models.TaskUpdate{
		PatientID:   s.opts.PatientID,
		Scope:       scope,
		StaffName:   staff,
		StaffRole:   role,
		Tasks:       tasks,
		PerformedBy: s.opts.PerformedBy,
	}
}

// persist writes one staff list and records the attempt. It never touches
// local state.
func (s *Synchronizer) persist(ctx context.Context, scope models.Scope, role models.Role, staff string, tasks []models.TaskRecord) error {
	if s.Demo() {
		return nil
	}
	bucket := models.BucketKey{Scope: scope, Role: role}.String()
	s.opts.Metrics.PersistAttempt(ctx, bucket)
	if err := s.client.UpdateTasks(ctx, s.taskUpdate(scope, role, staff, tasks)); err != nil {
		s.opts.Metrics.PersistFailure(ctx, bucket)
		return err
	}
	return nil
}

func (s *Synchronizer) persistAsync(scope models.Scope, role models.Role, staff string, tasks []models.TaskRecord) {
	if s.Demo() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		if err := s.persist(ctx, scope, role, staff, tasks); err != nil {
			s.persistFailed(ctx, scope, role, staff, err)
		}
	}()
}

func (s *Synchronizer) persistFailed(ctx context.Context, scope models.Scope, role models.Role, staff string, err error) {
	if s.isClosed() {
		logger.Debug("dropping write result after close", "staff", staff, "error", err)
		return
	}
	logger.Error("failed to save tasks", "scope", scope, "role", role, "staff", staff, "error", err)
	s.notify(notifier.LevelError, fmt.Sprintf("Could not save tasks for %s: %v", staff, err))
	s.resync(ctx, "persist_failed")
}

// resync replaces the local store with the server's copy.
func (s *Synchronizer) resync(ctx context.Context, reason string) {
	s.opts.Metrics.Resync(ctx, reason)
	entries, err := s.client.FetchTasks(ctx, s.opts.PatientID)
	if err != nil {
		logger.Warn("resync failed", "reason", reason, "error", err)
		return
	}
	if s.isClosed() {
		return
	}
	s.mu.Lock()
	s.tasks = taskstore.FromServer(entries)
	s.mu.Unlock()
	s.cache(storage.KindTasks, entries)
}

// AddTask validates a form submission and appends the task. Nothing
// changes when validation fails.
func (s *Synchronizer) AddTask(sub validation.Submission) (validation.Resolved, error) {
	resolved, err := s.resolve(sub)
	if err != nil {
		return resolved, err
	}
	s.MutateTasks(resolved.Scope, resolved.Role, resolved.Staff, taskstore.Append(resolved.Task), true)
	return resolved, nil
}

func (s *Synchronizer) resolve(sub validation.Submission) (validation.Resolved, error) {
	s.mu.Lock()
	crew, store := s.crew, s.tasks
	s.mu.Unlock()

	resolved, res := validation.ValidateSubmission(sub, crew, store, s.opts.DefaultRole)
	if err := res.Err(); err != nil {
		return resolved, err
	}
	return resolved, nil
}

// EditTask replaces the task at ref. When the submission names a different
// bucket or staff member the task moves there instead.
func (s *Synchronizer) EditTask(ref TaskRef, sub validation.Submission) (validation.Resolved, error) {
	if _, ok := s.taskAt(ref); !ok {
		return validation.Resolved{}, fmt.Errorf("%w: %s", ErrTaskIndex, ref)
	}
	resolved, err := s.resolve(sub)
	if err != nil {
		return resolved, err
	}
	if resolved.Scope == ref.Scope && resolved.Role == ref.Role && resolved.Staff == ref.Staff {
		s.MutateTasks(ref.Scope, ref.Role, ref.Staff, taskstore.Replace(ref.Index, resolved.Task), true)
		return resolved, nil
	}
	dest := TaskRef{Scope: resolved.Scope, Role: resolved.Role, Staff: resolved.Staff}
	return resolved, s.move(ref, dest, resolved.Task)
}

func (s *Synchronizer) RemoveTask(ref TaskRef) error {
	if _, ok := s.taskAt(ref); !ok {
		return fmt.Errorf("%w: %s", ErrTaskIndex, ref)
	}
	s.MutateTasks(ref.Scope, ref.Role, ref.Staff, taskstore.Delete(ref.Index), true)
	return nil
}

func (s *Synchronizer) SetTaskStatus(ref TaskRef, status models.TaskStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	if _, ok := s.taskAt(ref); !ok {
		return fmt.Errorf("%w: %s", ErrTaskIndex, ref)
	}
	s.MutateTasks(ref.Scope, ref.Role, ref.Staff, taskstore.SetStatus(ref.Index, status), true)
	return nil
}

// MoveTask reassigns the task at from to the end of dest's list. dest.Index
// is ignored.
func (s *Synchronizer) MoveTask(from, dest TaskRef) error {
	task, ok := s.taskAt(from)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskIndex, from)
	}
	if !dest.Scope.Valid() || !dest.Role.Valid() || dest.Staff == "" {
		return fmt.Errorf("invalid move destination %s", dest)
	}
	return s.move(from, dest, task)
}

func (s *Synchronizer) taskAt(ref TaskRef) (models.TaskRecord, bool) {
	tasks := s.Tasks().Tasks(ref.Scope, ref.Role, ref.Staff)
	if ref.Index < 0 || ref.Index >= len(tasks) {
		return models.TaskRecord{}, false
	}
	return tasks[ref.Index], true
}

// move runs in one of two modes. Independent applies and persists the
// delete and the insert separately, so a failure between them can lose or
// duplicate the task. Ordered persists the insert first and removes the
// source only once the insert is acknowledged.
func (s *Synchronizer) move(from, dest TaskRef, task models.TaskRecord) error {
	if s.opts.MoveMode != constants.MoveOrdered {
		s.MutateTasks(from.Scope, from.Role, from.Staff, taskstore.Delete(from.Index), true)
		s.MutateTasks(dest.Scope, dest.Role, dest.Staff, taskstore.Append(task), true)
		return nil
	}

	original, _ := s.taskAt(from)
	inserted := s.MutateTasks(dest.Scope, dest.Role, dest.Staff, taskstore.Append(task), false)
	if s.Demo() {
		s.MutateTasks(from.Scope, from.Role, from.Staff, taskstore.RemoveFirst(original), false)
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		if err := s.persist(ctx, dest.Scope, dest.Role, dest.Staff, inserted); err != nil {
			s.persistFailed(ctx, dest.Scope, dest.Role, dest.Staff, err)
			return
		}
		if s.isClosed() {
			return
		}
		remaining := s.MutateTasks(from.Scope, from.Role, from.Staff, taskstore.RemoveFirst(original), false)
		if err := s.persist(ctx, from.Scope, from.Role, from.Staff, remaining); err != nil {
			s.persistFailed(ctx, from.Scope, from.Role, from.Staff, err)
		}
	}()
	return nil
}

// ApplySuggestions turns the selected suggestion resources into tasks for
// scope and returns what was added.
func (s *Synchronizer) ApplySuggestions(selected []optimizer.Selection, scope models.Scope) []optimizer.Assignment {
	assignments := optimizer.Apply(selected, scope)
	for _, a := range assignments {
		s.MutateTasks(a.Scope, a.Role, a.Staff, taskstore.Append(a.Task), true)
	}
	if len(assignments) > 0 {
		s.notify(notifier.LevelSuccess, fmt.Sprintf("Applied %d suggested assignments", len(assignments)))
	}
	return assignments
}

// ApplyPlanStep turns a timeline step into a task for its owner. The
// owner's role is inferred the same way a form submission's is.
func (s *Synchronizer) ApplyPlanStep(stepID string, scope models.Scope) (validation.Resolved, error) {
	var step *models.TimelineStep
	for _, st := range s.Timeline() {
		if st.ID == stepID {
			st := st
			step = &st
			break
		}
	}
	if step == nil {
		return validation.Resolved{}, fmt.Errorf("%w: %s", ErrUnknownStep, stepID)
	}

	status := models.StatusPending
	switch step.Status {
	case models.StepDone:
		status = models.StatusCompleted
	case models.StepActive:
		status = models.StatusInProgress
	}
	sub := validation.Submission{
		Scope:     string(scope),
		StaffName: step.Owner,
		Label:     step.Title,
		Status:    string(status),
	}
	// Timeline times are free text; only HH:MM carries over.
	if _, err := time.Parse(constants.TimeFormat, step.Time); err == nil {
		sub.Time = step.Time
	}
	return s.AddTask(sub)
}
