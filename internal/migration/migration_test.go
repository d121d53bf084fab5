package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyMigrations(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id TEXT PRIMARY KEY);")},
		"README.md":      {Data: []byte("ignored")},
	}
	r := NewRunner(db, fsys, SQLite)

	var logs []string
	n, err := r.Apply(func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if n != 2 {
		t.Errorf("applied %d, want 2", n)
	}
	if v, _ := r.CurrentVersion(); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}

	n, err = r.Apply(nil)
	if err != nil || n != 0 {
		t.Errorf("second Apply() = %d, %v; want 0, nil", n, err)
	}
	if _, err := db.Exec("INSERT INTO b (id) VALUES ('x')"); err != nil {
		t.Errorf("table b missing: %v", err)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db, fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE a (id TEXT);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE nope (")},
	}, SQLite)

	n, err := r.Apply(nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 1 {
		t.Errorf("applied %d, want 1", n)
	}
	if v, _ := r.CurrentVersion(); v != 1 {
		t.Errorf("version = %d, want 1", v)
	}
}

func TestReadMigrationsErrors(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
		want string
	}{
		{"no underscore", fstest.MapFS{"001.sql": {Data: []byte("")}}, "invalid migration filename"},
		{"not a number", fstest.MapFS{"abc_init.sql": {Data: []byte("")}}, "invalid version number"},
		{"zero", fstest.MapFS{"000_init.sql": {Data: []byte("")}}, "at least 1"},
		{"duplicate", fstest.MapFS{"001_a.sql": {Data: []byte("")}, "1_b.sql": {Data: []byte("")}}, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, tt.fs, SQLite).ReadMigrations()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestValidateRejectsNewerSchema(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db, fstest.MapFS{"001_init.sql": {Data: []byte("SELECT 1;")}}, SQLite)
	if err := r.ensureVersionTable(); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (7)"); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("Validate() = %v, want newer-schema error", err)
	}
}

func TestDialectBind(t *testing.T) {
	if SQLite.bind() != "?" || Postgres.bind() != "$1" {
		t.Error("unexpected placeholders")
	}
}
