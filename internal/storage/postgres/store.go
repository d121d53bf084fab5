package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/migration"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/migrations"
)

var _ storage.Provider = (*Store)(nil)

type Store struct {
	connStr string
	db      *sql.DB
}

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

func New(connStr string) *Store {
	s := &Store{connStr: connStr}
	s.ensureSearchPath()
	return s
}

// ensureSearchPath points unqualified table names at the surgisync schema.
func (s *Store) ensureSearchPath() {
	if storage.IsPostgres(s.connStr) {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "search_path") {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasParam reports whether a DSN-style string has key (case-insensitive).
func hasParam(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		k, _, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasParam(connStr, "sslmode")
}

// ValidateConnString accepts a URI or DSN that lib/pq can parse and that
// carries no password. Credentials come from PGPASSWORD or .pgpass.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if storage.IsPostgres(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, set := u.User.Password(); set {
			return ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return nil
	}
	if hasParam(connStr, "password") {
		return ErrEmbeddedCredentials
	}
	return nil
}

func (s *Store) open() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	s.db = db

	if err := s.db.Ping(); err != nil {
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to cache: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to cache: %w", err)
	}
	return nil
}

func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
	if _, err := s.db.Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	runner, err := s.runner()
	if err != nil {
		return err
	}
	if _, err := runner.Apply(func(msg string) { logger.Debug(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
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
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.Postgres), nil
}

// GetConfigPath hides the connection string.
func (s *Store) GetConfigPath() string {
	return "postgresql"
}

func (s *Store) SaveSnapshot(patientID string, kind storage.SnapshotKind, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (patient_id, kind, payload, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (patient_id, kind) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, patientID, string(kind), string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", kind, err)
	}
	return nil
}

func (s *Store) GetSnapshot(patientID string, kind storage.SnapshotKind) (storage.Snapshot, error) {
	var (
		payload []byte
		updated time.Time
	)
	err := s.db.QueryRow(
		"SELECT payload, updated_at FROM snapshots WHERE patient_id = $1 AND kind = $2",
		patientID, string(kind),
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, err
	}
	return storage.Snapshot{PatientID: patientID, Kind: kind, Payload: payload, UpdatedAt: updated}, nil
}

func (s *Store) SavePublishedPlan(plan models.PublishedPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO published_plans (record_id, plan_id, patient_id, doctor_id, payload, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (record_id) DO UPDATE SET payload = EXCLUDED.payload, published_at = EXCLUDED.published_at
	`, storage.PlanKey(plan), plan.PlanID, plan.PatientID, plan.DoctorID, string(data), storage.PublishedAt(plan))
	return err
}

func (s *Store) GetPublishedPlan(recordID string) (models.PublishedPlan, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM published_plans WHERE record_id = $1", recordID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PublishedPlan{}, storage.ErrNotFound
	}
	if err != nil {
		return models.PublishedPlan{}, err
	}
	var plan models.PublishedPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return models.PublishedPlan{}, fmt.Errorf("corrupt cached plan %s: %w", recordID, err)
	}
	return plan, nil
}

func (s *Store) ListPublishedPlans(patientID string) ([]models.PublishedPlan, error) {
	rows, err := s.db.Query(
		"SELECT payload FROM published_plans WHERE patient_id = $1 ORDER BY published_at DESC",
		patientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []models.PublishedPlan
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var plan models.PublishedPlan
		if err := json.Unmarshal(payload, &plan); err != nil {
			logger.Warn("skipping corrupt cached plan", "error", err)
			continue
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
