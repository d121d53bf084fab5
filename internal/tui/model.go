package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/publisher"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

// Options wires the panel to its collaborators. Adapter may be nil, in
// which case scenario feedback is unavailable. Request is the last
// availability request; without it suggestions cannot be refreshed.
type Options struct {
	Sync        *synchronizer.Synchronizer
	Queue       *notifier.Queue
	Publisher   *publisher.Publisher
	Adapter     *optimizer.Adapter
	Suggestions optimizer.State
	Request     *models.AvailabilityRequest
	Legacy      bool
	// OnSuggestions is called whenever the suggestion state changes.
	OnSuggestions func(optimizer.State, models.Decision)
}

type TaskFormModel struct {
	Staff    string
	Role     string
	Label    string
	Status   string
	Time     string
	Note     string
	Priority string
}

type RenameFormModel struct {
	Key  optimizer.SelectionKey
	Name string
}

type CrewFormModel struct {
	Doctors []string
	Nurses  []string
}

// row is one task line on a phase tab.
type row struct {
	role  models.Role
	staff string
	index int
	task  models.TaskRecord
}

type Model struct {
	sync    *synchronizer.Synchronizer
	queue   *notifier.Queue
	pub     *publisher.Publisher
	adapter *optimizer.Adapter
	onSug   func(optimizer.State, models.Decision)

	state   constants.SessionState
	tab     constants.SessionState
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	cursor    int
	sugCursor int
	sug       optimizer.State
	decision  models.Decision
	request   *models.AvailabilityRequest
	legacy    bool

	form      *huh.Form
	taskForm  *TaskFormModel
	editing   *synchronizer.TaskRef
	crewForm  *CrewFormModel
	crewDraft *roster.Draft
	rename    *RenameFormModel
	formError string

	toasts     []notifier.Toast
	publish    publisher.State
	loading    bool
	savingCrew bool
	requesting bool
	quitting   bool
	width      int
	height     int
}

type loadedMsg struct{ err error }

// VitalsMsg carries a reading recorded by the poller.
type VitalsMsg models.Vitals

type tickMsg time.Time

type publishedMsg struct {
	state publisher.State
	err   error
}

type crewSavedMsg struct{ err error }

type suggestionsMsg struct {
	state optimizer.State
	err   error
}

type feedbackMsg struct {
	decision models.Decision
	err      error
}

func NewModel(opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	queue := opts.Queue
	if queue == nil {
		queue = notifier.NewQueue(constants.ToastDuration)
	}
	sug := opts.Suggestions
	if !sug.HasSuggestion() && sug.Err() == "" {
		sug = optimizer.Empty()
	}
	return Model{
		sync:    opts.Sync,
		queue:   queue,
		pub:     opts.Publisher,
		adapter: opts.Adapter,
		onSug:   opts.OnSuggestions,
		state:   constants.StatePreOp,
		tab:     constants.StatePreOp,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		sug:     sug,
		request: opts.Request,
		legacy:  opts.Legacy,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadCmd(m.sync), tick())
}

func loadCmd(s *synchronizer.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: s.Load(context.Background())}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func scopeFor(state constants.SessionState) models.Scope {
	switch state {
	case constants.StateSurgery:
		return models.ScopeSurgery
	case constants.StatePostOp:
		return models.ScopePostOp
	}
	return models.ScopePreOp
}

// rows lists the current tab's tasks, doctors before nurses.
func (m Model) rows() []row {
	scope := scopeFor(m.tab)
	store := m.sync.Tasks()
	var out []row
	for _, role := range models.Roles {
		for _, staff := range store.Staff(scope, role) {
			for i, t := range store.Tasks(scope, role, staff) {
				out = append(out, row{role: role, staff: staff, index: i, task: t})
			}
		}
	}
	return out
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// resources flattens the visible suggestion items for the cursor.
func (m Model) resources() []optimizer.Selection {
	var out []optimizer.Selection
	for _, c := range optimizer.Categories {
		for _, r := range m.sug.Resources(c) {
			out = append(out, optimizer.Selection{Category: c, Resource: r})
		}
	}
	return out
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StatePreOp, constants.StateSurgery, constants.StatePostOp:
		keys = append(keys, m.keys.Add, m.keys.Toggle, m.keys.Suggest, m.keys.Publish)
	case constants.StateSuggestions:
		keys = []key.Binding{m.keys.Toggle, m.keys.Enter, m.keys.Refresh, m.keys.Back}
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Reload, m.keys.Dismiss, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right}

	var actions []key.Binding
	switch m.state {
	case constants.StatePreOp, constants.StateSurgery, constants.StatePostOp:
		actions = []key.Binding{m.keys.Add, m.keys.Edit, m.keys.Delete, m.keys.Toggle, m.keys.Crew, m.keys.Suggest, m.keys.Publish}
	case constants.StateSuggestions:
		actions = []key.Binding{m.keys.Toggle, m.keys.Enter, m.keys.Rename, m.keys.Remove, m.keys.Refresh, m.keys.Accept, m.keys.Override, m.keys.Back}
	}
	return [][]key.Binding{global, navigation, actions}
}
