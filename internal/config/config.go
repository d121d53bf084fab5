// Package config loads the YAML settings file that sits next to the log
// directory and the local cache.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/surgisync/internal/constants"
)

type Config struct {
	BaseURL           string             `yaml:"base_url"`
	PatientID         string             `yaml:"patient_id,omitempty"`
	DoctorID          string             `yaml:"doctor_id,omitempty"`
	Email             string             `yaml:"email,omitempty"`
	Cache             string             `yaml:"cache,omitempty"`
	MoveMode          constants.MoveMode `yaml:"move_mode,omitempty"`
	VitalsInterval    time.Duration      `yaml:"vitals_interval,omitempty"`
	TrayNotifications bool               `yaml:"tray_notifications,omitempty"`

	path string
}

// Default returns the configuration written by `surgisync init`.
func Default(dir string) *Config {
	return &Config{
		BaseURL:        constants.DefaultBaseURL,
		Cache:          filepath.Join(dir, constants.DefaultCacheFile),
		MoveMode:       constants.MoveIndependent,
		VitalsInterval: constants.DefaultVitalsPeriod,
		path:           filepath.Join(dir, constants.DefaultConfigFile),
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load reads the config file at path. A missing file yields defaults
// rooted at the file's directory.
func Load(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	cfg := Default(filepath.Dir(path))
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

func (c *Config) Path() string { return c.path }

func (c *Config) Dir() string { return filepath.Dir(c.path) }

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://")
	}
	switch c.MoveMode {
	case "", constants.MoveIndependent, constants.MoveOrdered:
	default:
		return fmt.Errorf("move_mode must be %q or %q", constants.MoveIndependent, constants.MoveOrdered)
	}
	if c.VitalsInterval < 0 {
		return fmt.Errorf("vitals_interval must not be negative")
	}
	return nil
}

// Overrides are command-line values that win over the file.
type Overrides struct {
	BaseURL   string
	PatientID string
	DoctorID  string
}

func (c *Config) Apply(o Overrides) {
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.PatientID != "" {
		c.PatientID = o.PatientID
	}
	if o.DoctorID != "" {
		c.DoctorID = o.DoctorID
	}
}

// EffectiveMoveMode defaults an unset mode to independent moves.
func (c *Config) EffectiveMoveMode() constants.MoveMode {
	if c.MoveMode == "" {
		return constants.MoveIndependent
	}
	return c.MoveMode
}

func (c *Config) EffectiveVitalsInterval() time.Duration {
	if c.VitalsInterval <= 0 {
		return constants.DefaultVitalsPeriod
	}
	return c.VitalsInterval
}
