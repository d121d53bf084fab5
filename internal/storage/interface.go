// Package storage defines the local cache of server snapshots and
// published plans. Implementations live in the sqlite and postgres
// subpackages.
package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/julianstephens/surgisync/internal/models"
)

type SnapshotKind string

const (
	KindTasks      SnapshotKind = "tasks"
	KindCrew       SnapshotKind = "crew"
	KindTimeline   SnapshotKind = "timeline"
	KindVitals     SnapshotKind = "vitals"
	KindSurgeries  SnapshotKind = "surgeries"
	// KindSuggestion holds the last suggestion request and raw response so
	// separate CLI invocations can review and apply it.
	KindSuggestion SnapshotKind = "suggestion"
)

// ErrNotFound is returned when the cache has no row for the key.
var ErrNotFound = errors.New("not found in cache")

// Snapshot is the last payload fetched from the server for one resource.
type Snapshot struct {
	PatientID string
	Kind      SnapshotKind
	Payload   []byte
	UpdatedAt time.Time
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Snapshots
	SaveSnapshot(patientID string, kind SnapshotKind, payload []byte) error
	GetSnapshot(patientID string, kind SnapshotKind) (Snapshot, error)

	// Published plans
	SavePublishedPlan(plan models.PublishedPlan) error
	GetPublishedPlan(recordID string) (models.PublishedPlan, error)
	ListPublishedPlans(patientID string) ([]models.PublishedPlan, error)

	// Utils
	GetConfigPath() string
}

// IsPostgres reports whether a cache setting names a PostgreSQL database
// rather than a SQLite file.
func IsPostgres(cache string) bool {
	return strings.HasPrefix(cache, "postgres://") || strings.HasPrefix(cache, "postgresql://")
}

// PlanKey returns the cache key of a plan: the server record id, or the
// client plan id before the server has assigned one.
func PlanKey(plan models.PublishedPlan) string {
	if plan.RecordID != "" {
		return plan.RecordID
	}
	return plan.PlanID
}

// PublishedAt reads the plan timestamp, falling back to now.
func PublishedAt(plan models.PublishedPlan) time.Time {
	for _, ts := range []string{plan.CreatedAt, plan.Timestamp} {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
