package synchronizer

import (
	"context"
	"fmt"

	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/storage"
)

// NewCrewDraft opens an editing buffer over the current roster. Candidates
// come from the task buckets and, when given, the suggestion state.
func (s *Synchronizer) NewCrewDraft(sug *optimizer.State) *roster.Draft {
	s.mu.Lock()
	crew, store := s.crew, s.tasks
	s.mu.Unlock()

	candidates := map[models.Role][]string{}
	for _, role := range models.Roles {
		for _, scope := range models.Scopes {
			candidates[role] = append(candidates[role], store.Staff(scope, role)...)
		}
	}
	if sug != nil {
		for role, names := range optimizer.Candidates(*sug) {
			candidates[role] = append(candidates[role], names...)
		}
	}
	return roster.NewDraft(crew, candidates)
}

// SaveCrew commits a draft. An empty draft is rejected before any call.
// The write is synchronous: on failure the roster is unchanged and the
// caller keeps the draft for a retry. On success each role's buckets are
// rebuilt so only retained names keep their lists.
func (s *Synchronizer) SaveCrew(ctx context.Context, draft *roster.Draft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	next := draft.Roster()

	if !s.Demo() {
		crew := next.Crew(s.opts.PatientID)
		crew.PerformedBy = s.opts.PerformedBy
		if err := s.client.UpdateCrew(ctx, crew); err != nil {
			logger.Error("failed to save crew", "patient_id", s.opts.PatientID, "error", err)
			s.notify(notifier.LevelError, fmt.Sprintf("Could not save crew: %v", err))
			return fmt.Errorf("failed to save crew: %w", err)
		}
	}

	s.mu.Lock()
	before := s.tasks
	after := before
	for _, role := range models.Roles {
		after = after.RetainStaff(role, next.Names(role))
	}
	s.crew = next
	s.tasks = after
	s.mu.Unlock()

	s.cache(storage.KindCrew, next.Crew(s.opts.PatientID))
	s.cacheTasks()

	// Dropped staff still have lists on the server; clear them there too.
	for _, e := range before.Entries() {
		if !after.Has(e.Scope, e.Role, e.Staff) {
			s.persistAsync(e.Scope, e.Role, e.Staff, nil)
		}
	}
	s.notify(notifier.LevelSuccess, fmt.Sprintf("Crew saved (%d members)", next.Size()))
	return nil
}
