package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/migration"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/migrations"
)

var _ storage.Provider = (*Store)(nil)

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init creates the cache file if needed and applies pending migrations.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	s.db = db

	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.Apply(func(msg string) { logger.Debug(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Load opens an existing cache and checks its schema version.
func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("cache not initialized, run 'surgisync init' first")
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	s.db = db

	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.Validate()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) runner() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.SQLite), nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

func (s *Store) SaveSnapshot(patientID string, kind storage.SnapshotKind, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (patient_id, kind, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (patient_id, kind) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, patientID, string(kind), string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *Store) GetSnapshot(patientID string, kind storage.SnapshotKind) (storage.Snapshot, error) {
	var payload, updated string
	err := s.db.QueryRow(
		"SELECT payload, updated_at FROM snapshots WHERE patient_id = ? AND kind = ?",
		patientID, string(kind),
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, err
	}
	ts, _ := time.Parse(time.RFC3339Nano, updated)
	return storage.Snapshot{PatientID: patientID, Kind: kind, Payload: []byte(payload), UpdatedAt: ts}, nil
}

func (s *Store) SavePublishedPlan(plan models.PublishedPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO published_plans (record_id, plan_id, patient_id, doctor_id, payload, published_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_id) DO UPDATE SET payload = excluded.payload, published_at = excluded.published_at
	`, storage.PlanKey(plan), plan.PlanID, plan.PatientID, plan.DoctorID, string(data),
		storage.PublishedAt(plan).Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetPublishedPlan(recordID string) (models.PublishedPlan, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM published_plans WHERE record_id = ?", recordID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PublishedPlan{}, storage.ErrNotFound
	}
	if err != nil {
		return models.PublishedPlan{}, err
	}
	var plan models.PublishedPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return models.PublishedPlan{}, fmt.Errorf("corrupt cached plan %s: %w", recordID, err)
	}
	return plan, nil
}

// ListPublishedPlans returns the plans for a patient, newest first.
func (s *Store) ListPublishedPlans(patientID string) ([]models.PublishedPlan, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM published_plans WHERE patient_id = ? ORDER BY published_at DESC",
		patientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.PublishedPlan
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var plan models.PublishedPlan
		if err := json.Unmarshal([]byte(payload), &plan); err != nil {
			logger.Warn("skipping corrupt cached plan", "error", err)
			continue
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
