package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/config"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/metrics"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

var (
	ErrNoPatient = errors.New("no patient selected (use --patient-id or set patient_id in the config)")
	ErrNoDoctor  = errors.New("no doctor selected (use --doctor-id or set doctor_id in the config)")
	ErrNoSession = errors.New("not logged in (run 'surgisync login')")
)

type Context struct {
	Config   *config.Config
	Client   api.Client
	Cache    storage.Provider
	Notifier notifier.Notifier
	Metrics  *metrics.Recorder
	Out      io.Writer
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) RequirePatient() error {
	if c.Config.PatientID == "" {
		return ErrNoPatient
	}
	return nil
}

func (c *Context) RequireSession() error {
	if !c.Client.HasToken() {
		return ErrNoSession
	}
	return nil
}

// Options builds synchronizer options from the config.
func (c *Context) Options() synchronizer.Options {
	return synchronizer.Options{
		PatientID:   c.Config.PatientID,
		DoctorID:    c.Config.DoctorID,
		PerformedBy: c.Config.Email,
		MoveMode:    c.Config.EffectiveMoveMode(),
		Cache:       c.Cache,
		Notifier:    c.Notifier,
		Metrics:     c.Metrics,
	}
}

// Sync returns a loaded synchronizer for the selected patient. Without a
// session it runs from the cache and says so. A partial load is reported
// but not fatal, as cached data fills the gaps.
func (c *Context) Sync(ctx context.Context) (*synchronizer.Synchronizer, error) {
	if err := c.RequirePatient(); err != nil {
		return nil, err
	}
	s := synchronizer.New(c.Client, c.Options())
	if s.Demo() {
		c.Println("⚠ Offline: reading from the local cache, changes are not sent to the server")
	}
	if err := s.Load(ctx); err != nil {
		logger.Warn("partial case load", "patient_id", c.Config.PatientID, "error", err)
		c.Printf("⚠ Some case data could not be fetched: %v\n", err)
	}
	return s, nil
}

// ParseRef turns CLI arguments into a task reference. Index is 1-based.
func ParseRef(scope, role, staff string, index int) (synchronizer.TaskRef, error) {
	sc, err := models.ParseScope(scope)
	if err != nil {
		return synchronizer.TaskRef{}, err
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return synchronizer.TaskRef{}, err
	}
	staff = strings.TrimSpace(staff)
	if staff == "" {
		return synchronizer.TaskRef{}, fmt.Errorf("staff name is required")
	}
	if index < 1 {
		return synchronizer.TaskRef{}, fmt.Errorf("task number must be 1 or greater")
	}
	return synchronizer.TaskRef{Scope: sc, Role: r, Staff: staff, Index: index - 1}, nil
}

var (
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	blueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// ColorStatus renders a surgery status in its display color.
func ColorStatus(status string) string {
	switch models.DetermineStatusColor(status) {
	case models.ColorGreen:
		return greenStyle.Render(status)
	case models.ColorYellow:
		return yellowStyle.Render(status)
	}
	return blueStyle.Render(status)
}

func statusMark(s models.TaskStatus) string {
	switch s {
	case models.StatusCompleted:
		return "[x]"
	case models.StatusInProgress:
		return "[~]"
	}
	return "[ ]"
}

// FormatTask renders one task line with its 1-based number.
func FormatTask(n int, t models.TaskRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s %s", n, statusMark(t.Status), t.Label)
	if t.Time != "" {
		fmt.Fprintf(&b, " @ %s", t.Time)
	}
	if t.Priority != "" && t.Priority != models.PriorityRoutine {
		fmt.Fprintf(&b, " (%s)", t.Priority)
	}
	if t.Note != "" {
		b.WriteString(dimStyle.Render(" - " + t.Note))
	}
	return b.String()
}

// SuggestionRecord is the suggestion panel kept in the cache: the last
// request, its normalized result with any local edits, and the review.
type SuggestionRecord struct {
	Request    models.AvailabilityRequest `json:"request"`
	Legacy     bool                       `json:"legacy"`
	Suggestion *optimizer.Suggestion      `json:"suggestion,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Active     int                        `json:"active"`
	Selected   []optimizer.SelectionKey   `json:"selected,omitempty"`
	Decision   models.Decision            `json:"decision,omitempty"`
	Notes      string                     `json:"notes,omitempty"`
}

// Capture copies st into the record. A state without a suggestion also
// drops the previous review, so a failed request leaves no stale verdict.
func (r *SuggestionRecord) Capture(st optimizer.State) {
	r.Suggestion = st.Suggestion()
	r.Error = st.Err()
	r.Active = st.ActiveIndex()
	r.Selected = st.SelectedKeys()
	if r.Suggestion == nil {
		r.Decision, r.Notes = "", ""
	}
}

// State rebuilds the suggestion state the record describes.
func (r SuggestionRecord) State() optimizer.State {
	if r.Suggestion == nil {
		if r.Error != "" {
			return optimizer.Empty().Failed(errors.New(r.Error))
		}
		return optimizer.Empty()
	}
	req := r.Request
	st := optimizer.Empty().Loaded(*r.Suggestion, &req)
	if r.Active >= 0 {
		st = st.Choose(r.Active)
	}
	for _, key := range r.Selected {
		if !st.IsSelected(key.Category, key.ID) {
			st = st.Toggle(key.Category, key.ID)
		}
	}
	return st
}

// Insights returns the plan insights for a reviewed scenario, or nil.
func (r SuggestionRecord) Insights() *models.OptimizationInsights {
	if r.Decision == "" {
		return nil
	}
	return r.State().Insights(r.Decision, r.Notes)
}

func (c *Context) LoadSuggestion() (*SuggestionRecord, error) {
	if err := c.RequirePatient(); err != nil {
		return nil, err
	}
	snap, err := c.Cache.GetSnapshot(c.Config.PatientID, storage.KindSuggestion)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no suggestion on record (run 'surgisync suggest request' first)")
		}
		return nil, err
	}
	var rec SuggestionRecord
	if err := json.Unmarshal(snap.Payload, &rec); err != nil {
		return nil, fmt.Errorf("corrupt suggestion record: %w", err)
	}
	return &rec, nil
}

func (c *Context) SaveSuggestion(rec SuggestionRecord) error {
	if err := c.RequirePatient(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.Cache.SaveSnapshot(c.Config.PatientID, storage.KindSuggestion, data)
}

// Stderr prints error-level notifications so background write failures
// reach the terminal in one-shot commands.
type Stderr struct {
	W io.Writer
}

func (s Stderr) Notify(level notifier.Level, text string) error {
	if level < notifier.LevelWarn {
		return nil
	}
	w := s.W
	if w == nil {
		w = os.Stderr
	}
	_, err := fmt.Fprintf(w, "%s %s\n", strings.ToUpper(level.String()), text)
	return err
}
