package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

// MoveMode selects how a task reassignment is persisted
type MoveMode string

const (
	AppName            = "surgisync"
	DefaultKeyringUser = "session-token"
	DefaultConfigDir   = "~/.config/surgisync"
	DefaultConfigFile  = "config.yaml"
	DefaultCacheFile   = "cache.db"
	DefaultBaseURL     = "http://localhost:8000"
	Version            = "v0.3.0"

	// TokenEnvVar overrides the keyring token when set
	TokenEnvVar = "SURGISYNC_TOKEN"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the task time format (HH:MM)
	TimeFormat = "15:04"

	// OvertimeThresholdMin is the predicted overtime above which a scenario never counts as matched
	OvertimeThresholdMin = 30

	// Suggestion reason codes
	ReasonCoverageOK    = "COVERAGE_OK"
	ReasonCoverageLow   = "COVERAGE_LOW"
	ReasonOvertimeOK    = "OVERTIME_OK"
	ReasonOvertimeHigh  = "OVERTIME_HIGH"
	ReasonEquipmentOK   = "EQUIPMENT_OK"
	ReasonEquipmentGap  = "EQUIPMENT_GAP"
	MatchStatusMatched  = "Requirements matched"
	MatchStatusNotMet   = "Requirements not met"
	CrewEmailDomain     = "care-team.local"
	DefaultVitalsPeriod = 5 * time.Second
	ToastDuration       = 4 * time.Second

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "surgisync-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.surgisync"
	TrayExecutablePrefix   = "surgisync-tray"

	// Move modes
	MoveIndependent MoveMode = "independent"
	MoveOrdered     MoveMode = "ordered"
)

// Session States
const (
	StatePreOp SessionState = iota
	StateSurgery
	StatePostOp
	StateSuggestions
	StateAddTask
	StateEditCrew
	StatePublish
	StateRenameResource
)
