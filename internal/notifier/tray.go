package notifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/logger"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// Tray forwards notifications to a running surgisync-tray process.
type Tray struct {
	// MinLevel filters out quieter notifications.
	MinLevel Level
}

type WebhookPayload struct {
	Text       string `json:"text"`
	Level      string `json:"level"`
	DurationMs uint32 `json:"duration_ms"`
}

func NewTray(minLevel Level) *Tray {
	return &Tray{MinLevel: minLevel}
}

func (t *Tray) Notify(level Level, text string) error {
	if level < t.MinLevel {
		return nil
	}
	dir, err := TrayConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := findTrayProcess(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	payload := WebhookPayload{
		Text:       text,
		Level:      level.String(),
		DurationMs: constants.NotificationDurationMs,
	}
	return sendNotification(port, secret, payload)
}

// TrayStatus reports whether a tray process is reachable, with the reason
// when it is not.
func TrayStatus() error {
	dir, err := TrayConfigDir()
	if err != nil {
		return err
	}
	_, _, err = findTrayProcess(filepath.Join(dir, constants.NotifierLockfileName))
	return err
}

// TrayConfigDir returns where the tray app keeps its lockfile. A
// lockfile_dir in the tray's settings.json overrides the default.
func TrayConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	trayDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(trayDir, "settings.json"))
	if err != nil {
		return trayDir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir *string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err != nil {
		logger.Debug("ignoring unreadable tray settings", "error", err)
		return trayDir, nil
	}
	if store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
		return *store.Settings.LockfileDir, nil
	}
	return trayDir, nil
}

// findTrayProcess reads "port|pid|secret" from the lockfile and checks the
// pid belongs to the tray executable.
func findTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", errors.New("surgisync-tray is not running")
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := parts[2]
	if strings.TrimSpace(secret) == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", errors.New("surgisync-tray process not running")
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayExecutablePrefix) {
		return "", "", fmt.Errorf("process with PID %d is not surgisync-tray (is %s)", pid, process.Executable())
	}
	return port, secret, nil
}

func sendNotification(port, secret string, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, "http://127.0.0.1:"+port, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Surgisync-Secret", secret)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}
