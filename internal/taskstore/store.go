// Package taskstore holds the per-case task buckets. Every transition is
// pure: methods return a new Store and never touch the receiver.
package taskstore

import (
	"sort"

	"github.com/julianstephens/surgisync/internal/models"
)

// Bucket maps a staff name to that person's ordered task list.
type Bucket map[string][]models.TaskRecord

// Store is the six buckets, one per (scope, role).
type Store struct {
	buckets map[models.BucketKey]Bucket
}

// Updater receives a private copy of a staff list and returns the new list.
type Updater func([]models.TaskRecord) []models.TaskRecord

func New() Store {
	return Store{buckets: map[models.BucketKey]Bucket{}}
}

// FromServer builds a store from a task snapshot. Entries with an invalid
// scope or role are skipped, empty lists are dropped.
func FromServer(entries []models.TaskUpdate) Store {
	s := New()
	for _, e := range entries {
		if !e.Scope.Valid() || !e.StaffRole.Valid() || e.StaffName == "" || len(e.Tasks) == 0 {
			continue
		}
		key := models.BucketKey{Scope: e.Scope, Role: e.StaffRole}
		b := s.buckets[key]
		if b == nil {
			b = Bucket{}
			s.buckets[key] = b
		}
		b[e.StaffName] = cloneTasks(e.Tasks)
	}
	return s
}

func cloneTasks(tasks []models.TaskRecord) []models.TaskRecord {
	if tasks == nil {
		return nil
	}
	out := make([]models.TaskRecord, len(tasks))
	copy(out, tasks)
	return out
}

func (s Store) clone() Store {
	out := New()
	for k, b := range s.buckets {
		nb := make(Bucket, len(b))
		for name, tasks := range b {
			nb[name] = tasks
		}
		out.buckets[k] = nb
	}
	return out
}

// Tasks returns a copy of one staff member's list.
func (s Store) Tasks(scope models.Scope, role models.Role, staff string) []models.TaskRecord {
	return cloneTasks(s.buckets[models.BucketKey{Scope: scope, Role: role}][staff])
}

// Has reports whether staff has an entry in the bucket.
func (s Store) Has(scope models.Scope, role models.Role, staff string) bool {
	_, ok := s.buckets[models.BucketKey{Scope: scope, Role: role}][staff]
	return ok
}

// Staff returns the sorted staff names present in a bucket.
func (s Store) Staff(scope models.Scope, role models.Role) []string {
	b := s.buckets[models.BucketKey{Scope: scope, Role: role}]
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mutate applies update to a copy of the staff list. A non-empty result
// replaces the entry; an empty result removes the staff name.
func (s Store) Mutate(scope models.Scope, role models.Role, staff string, update Updater) (Store, []models.TaskRecord) {
	key := models.BucketKey{Scope: scope, Role: role}
	next := s.clone()
	result := update(cloneTasks(next.buckets[key][staff]))

	b := next.buckets[key]
	if len(result) == 0 {
		if b != nil {
			delete(b, staff)
			if len(b) == 0 {
				delete(next.buckets, key)
			}
		}
		return next, []models.TaskRecord{}
	}
	if b == nil {
		b = Bucket{}
		next.buckets[key] = b
	}
	stored := cloneTasks(result)
	b[staff] = stored
	return next, cloneTasks(stored)
}

// RetainStaff rebuilds the buckets of role across every scope so that
// only names in keep remain. Lists of retained names are untouched.
func (s Store) RetainStaff(role models.Role, keep []string) Store {
	allowed := make(map[string]struct{}, len(keep))
	for _, n := range keep {
		allowed[n] = struct{}{}
	}
	next := s.clone()
	for _, scope := range models.Scopes {
		key := models.BucketKey{Scope: scope, Role: role}
		b := next.buckets[key]
		for name := range b {
			if _, ok := allowed[name]; !ok {
				delete(b, name)
			}
		}
		if b != nil && len(b) == 0 {
			delete(next.buckets, key)
		}
	}
	return next
}

// Entry is one non-empty staff list with its bucket coordinates.
type Entry struct {
	Scope models.Scope
	Role  models.Role
	Staff string
	Tasks []models.TaskRecord
}

// Entries lists every non-empty staff list ordered by scope, then role
// (doctors first), then staff name.
func (s Store) Entries() []Entry {
	var out []Entry
	for _, scope := range models.Scopes {
		for _, role := range models.Roles {
			for _, name := range s.Staff(scope, role) {
				out = append(out, Entry{Scope: scope, Role: role, Staff: name, Tasks: s.Tasks(scope, role, name)})
			}
		}
	}
	return out
}

// Len counts tasks across every bucket.
func (s Store) Len() int {
	n := 0
	for _, b := range s.buckets {
		for _, tasks := range b {
			n += len(tasks)
		}
	}
	return n
}

// Snapshot converts the store into the server's wire shape.
func (s Store) Snapshot(patientID string) []models.TaskUpdate {
	entries := s.Entries()
	out := make([]models.TaskUpdate, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.TaskUpdate{
			PatientID: patientID,
			Scope:     e.Scope,
			StaffName: e.Staff,
			StaffRole: e.Role,
			Tasks:     e.Tasks,
		})
	}
	return out
}
