package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/surgisync/internal/constants"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func TestTrayConfigDir(t *testing.T) {
	tempDir := t.TempDir()
	old := userConfigDirFunc
	defer func() { userConfigDirFunc = old }()
	userConfigDirFunc = func() (string, error) { return tempDir, nil }

	expected := filepath.Join(tempDir, constants.TrayAppIdentifier)
	dir, err := TrayConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != expected {
		t.Errorf("expected %s, got %s", expected, dir)
	}

	if err := os.MkdirAll(expected, 0755); err != nil {
		t.Fatal(err)
	}
	customDir := "/custom/surgisync/dir"
	settings := fmt.Sprintf(`{"settings": {"lockfile_dir": "%s"}}`, customDir)
	if err := os.WriteFile(filepath.Join(expected, "settings.json"), []byte(settings), 0644); err != nil {
		t.Fatal(err)
	}
	dir, err = TrayConfigDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != customDir {
		t.Errorf("expected %s, got %s", customDir, dir)
	}
}

func TestFindTrayProcess(t *testing.T) {
	old := findProcessFunc
	defer func() { findProcessFunc = old }()

	lockfile := filepath.Join(t.TempDir(), constants.NotifierLockfileName)
	if _, _, err := findTrayProcess(lockfile); err == nil {
		t.Error("expected error for missing lockfile")
	}

	bad := []struct {
		name    string
		content string
	}{
		{"two parts", "8080|12345"},
		{"garbage", "invalid"},
		{"empty secret", "8080|12345|"},
		{"empty port", "|12345|secret"},
		{"port out of range", "99999|12345|secret"},
		{"bad pid", "8080|abc|secret"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(lockfile, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, _, err := findTrayProcess(lockfile); err == nil {
				t.Errorf("expected error for %q", tt.content)
			}
		})
	}

	if err := os.WriteFile(lockfile, []byte("8080|12345|testsecret123"), 0644); err != nil {
		t.Fatal(err)
	}

	findProcessFunc = func(pid int) (ps.Process, error) { return nil, nil }
	if _, _, err := findTrayProcess(lockfile); err == nil {
		t.Error("expected error for missing process")
	}

	findProcessFunc = func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "other-app"}, nil
	}
	if _, _, err := findTrayProcess(lockfile); err == nil {
		t.Error("expected error for wrong executable")
	}

	findProcessFunc = func(pid int) (ps.Process, error) {
		return &mockProcess{pid: pid, executable: "surgisync-tray"}, nil
	}
	port, secret, err := findTrayProcess(lockfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != "8080" || secret != "testsecret123" {
		t.Errorf("got port %s secret %s", port, secret)
	}
}

func TestSendNotification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Surgisync-Secret") != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("Unauthorized"))
			return
		}
		var payload WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if payload.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	parts := strings.Split(server.URL, ":")
	port := parts[len(parts)-1]

	if err := sendNotification(port, "test-secret", WebhookPayload{Text: "hello"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := sendNotification(port, "wrong", WebhookPayload{Text: "hello"}); err == nil {
		t.Error("expected error for wrong secret")
	}
	if err := sendNotification(port, "test-secret", WebhookPayload{Text: "fail"}); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestTrayBelowMinLevelIsSkipped(t *testing.T) {
	old := userConfigDirFunc
	defer func() { userConfigDirFunc = old }()
	userConfigDirFunc = func() (string, error) { return "", errors.New("should not be called") }

	if err := NewTray(LevelError).Notify(LevelInfo, "quiet"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestQueueExpiry(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	q := NewQueue(4 * time.Second)
	q.now = func() time.Time { return now }

	_ = q.Notify(LevelError, "Failed to save tasks")
	now = now.Add(2 * time.Second)
	_ = q.Notify(LevelSuccess, "Crew saved")

	if got := q.Active(); len(got) != 2 {
		t.Fatalf("expected 2 toasts, got %d", len(got))
	}

	now = now.Add(3 * time.Second)
	got := q.Active()
	if len(got) != 1 || got[0].Text != "Crew saved" {
		t.Errorf("expected only the newer toast, got %+v", got)
	}

	q.Dismiss(got[0].ID)
	if len(q.Active()) != 0 {
		t.Error("dismissed toast still active")
	}

	_ = q.Notify(LevelInfo, "x")
	q.Clear()
	if len(q.Active()) != 0 {
		t.Error("Clear left toasts behind")
	}
}

func TestMultiFansOut(t *testing.T) {
	var got []string
	rec := Func(func(level Level, text string) error {
		got = append(got, level.String()+":"+text)
		return nil
	})
	failing := Func(func(Level, string) error { return errors.New("tray offline") })

	err := Multi{rec, nil, failing, rec}.Notify(LevelWarn, "retrying")
	if err == nil || !strings.Contains(err.Error(), "tray offline") {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(got) != 2 || got[0] != "warn:retrying" {
		t.Errorf("got %v", got)
	}
	if err := (Log{}).Notify(LevelError, "logged"); err != nil {
		t.Error(err)
	}
}
