package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/publisher"
	"github.com/julianstephens/surgisync/internal/synchronizer"
)

var tabOrder = []constants.SessionState{constants.StatePreOp, constants.StateSurgery, constants.StatePostOp}

func nextStatus(s models.TaskStatus) models.TaskStatus {
	switch s {
	case models.StatusPending:
		return models.StatusInProgress
	case models.StatusInProgress:
		return models.StatusCompleted
	}
	return models.StatusPending
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case loadedMsg:
		m.loading = false
		m.clampCursor()
		if msg.err != nil {
			_ = m.queue.Notify(notifier.LevelError, "Could not load case data: "+msg.err.Error())
			m.toasts = m.queue.Active()
		}
		return m, nil
	case VitalsMsg:
		m.sync.SetVitals(models.Vitals(msg))
		return m, nil
	case tickMsg:
		m.toasts = m.queue.Active()
		return m, tick()
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case publishedMsg:
		m.publish = msg.state
		if msg.err == nil {
			_ = m.queue.Notify(notifier.LevelSuccess, "Plan published ("+msg.state.RecordID+")")
		} else {
			_ = m.queue.Notify(notifier.LevelError, "Publish failed: "+msg.err.Error())
		}
		m.toasts = m.queue.Active()
		return m, nil
	case crewSavedMsg:
		m.savingCrew = false
		if msg.err != nil {
			// The draft is kept; reopen it for another try.
			m.formError = msg.err.Error()
			return m, m.openCrewForm(m.crewDraft)
		}
		m.crewDraft = nil
		m.formError = ""
		m.clampCursor()
		m.toasts = m.queue.Active()
		return m, nil
	case suggestionsMsg:
		m.requesting = false
		m.sug = msg.state
		m.decision = ""
		m.sugCursor = 0
		m.suggestionsChanged()
		if msg.err != nil {
			_ = m.queue.Notify(notifier.LevelError, "Suggestion request failed: "+msg.err.Error())
		} else {
			_ = m.queue.Notify(notifier.LevelSuccess, "Suggestions updated")
		}
		m.toasts = m.queue.Active()
		return m, nil
	case feedbackMsg:
		if msg.err != nil {
			_ = m.queue.Notify(notifier.LevelError, "Feedback not sent: "+msg.err.Error())
		} else {
			m.decision = msg.decision
			m.suggestionsChanged()
			_ = m.queue.Notify(notifier.LevelSuccess, "Scenario "+string(msg.decision))
		}
		m.toasts = m.queue.Active()
		return m, nil
	}

	switch m.state {
	case constants.StateAddTask:
		return m.updateTaskForm(msg)
	case constants.StateEditCrew:
		return m.updateCrewForm(msg)
	case constants.StateRenameResource:
		return m.updateRenameForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		m.queue.Clear()
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, m.keys.Dismiss):
		m.queue.Clear()
		m.toasts = nil
		if m.pub != nil {
			m.pub.Dismiss()
			m.publish = m.pub.State()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Reload):
		m.loading = true
		return m, tea.Batch(loadCmd(m.sync), m.spinner.Tick)
	}

	switch m.state {
	case constants.StateSuggestions:
		return m.updateSuggestions(keyMsg)
	case constants.StatePublish:
		return m.updatePublish(keyMsg)
	}
	return m.updateTab(keyMsg)
}

func (m Model) busy() bool {
	return m.loading || m.savingCrew || m.requesting || m.publish.Phase == publisher.PhasePublishing
}

func (m Model) updateTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	var current *row
	if m.cursor >= 0 && m.cursor < len(rows) {
		current = &rows[m.cursor]
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		m.switchTab(1)
	case key.Matches(msg, m.keys.ShiftTab):
		m.switchTab(-1)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if current != nil {
			status := nextStatus(current.task.Status)
			m.withRow(*current, func(ref synchronizer.TaskRef) error {
				return m.sync.SetTaskStatus(ref, status)
			})
		}
	case key.Matches(msg, m.keys.Delete):
		if current != nil {
			m.withRow(*current, m.sync.RemoveTask)
			m.clampCursor()
		}
	case key.Matches(msg, m.keys.Add):
		return m, m.openTaskForm(nil)
	case key.Matches(msg, m.keys.Edit):
		if current != nil {
			return m, m.openTaskForm(current)
		}
	case key.Matches(msg, m.keys.Crew):
		m.formError = ""
		return m, m.openCrewForm(nil)
	case key.Matches(msg, m.keys.Suggest):
		m.sugCursor = 0
		m.state = constants.StateSuggestions
	case key.Matches(msg, m.keys.Publish):
		if m.pub != nil && m.publish.Phase != publisher.PhasePublishing {
			m.state = constants.StatePublish
		}
	}
	return m, nil
}

// withRow runs fn on the task r points at. A reload finishing in the
// background can leave r stale, so failures become toasts.
func (m *Model) withRow(r row, fn func(synchronizer.TaskRef) error) {
	ref := synchronizer.TaskRef{Scope: scopeFor(m.tab), Role: r.role, Staff: r.staff, Index: r.index}
	if err := fn(ref); err != nil {
		_ = m.queue.Notify(notifier.LevelError, "Task not updated: "+err.Error())
		m.toasts = m.queue.Active()
	}
}

func (m *Model) switchTab(step int) {
	idx := 0
	for i, s := range tabOrder {
		if s == m.tab {
			idx = i
		}
	}
	idx = (idx + step + len(tabOrder)) % len(tabOrder)
	m.tab = tabOrder[idx]
	m.state = m.tab
	m.cursor = 0
}

func (m *Model) suggestionsChanged() {
	if m.onSug != nil {
		m.onSug(m.sug, m.decision)
	}
}

func (m Model) updateSuggestions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.resources()
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Suggest):
		m.state = m.tab
	case key.Matches(msg, m.keys.Up):
		if m.sugCursor > 0 {
			m.sugCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.sugCursor < len(items)-1 {
			m.sugCursor++
		}
	case key.Matches(msg, m.keys.Left):
		m.sug = m.sug.Choose(m.sug.ActiveIndex() - 1)
		m.sugCursor = 0
		m.suggestionsChanged()
	case key.Matches(msg, m.keys.Right):
		m.sug = m.sug.Choose(m.sug.ActiveIndex() + 1)
		m.sugCursor = 0
		m.suggestionsChanged()
	case key.Matches(msg, m.keys.Toggle):
		if m.sugCursor < len(items) {
			it := items[m.sugCursor]
			m.sug = m.sug.Toggle(it.Category, it.Resource.ID)
			m.suggestionsChanged()
		}
	case key.Matches(msg, m.keys.Enter):
		applied := m.sync.ApplySuggestions(m.sug.Selected(), scopeFor(m.tab))
		if len(applied) == 0 {
			_ = m.queue.Notify(notifier.LevelWarn, "Select suggested nurses or assistant doctors to assign")
		}
		m.toasts = m.queue.Active()
		m.state = m.tab
		m.clampCursor()
	case key.Matches(msg, m.keys.Rename):
		if m.sugCursor < len(items) {
			return m, m.openRenameForm(items[m.sugCursor])
		}
	case key.Matches(msg, m.keys.Remove):
		if m.sugCursor < len(items) {
			it := items[m.sugCursor]
			m.sug = m.sug.Remove(it.Category, it.Resource.ID)
			if m.sugCursor >= len(items)-1 && m.sugCursor > 0 {
				m.sugCursor--
			}
			m.suggestionsChanged()
		}
	case key.Matches(msg, m.keys.Refresh):
		if m.adapter == nil || m.request == nil {
			_ = m.queue.Notify(notifier.LevelWarn, "Run 'surgisync suggest request' first")
			m.toasts = m.queue.Active()
			return m, nil
		}
		m.requesting = true
		return m, tea.Batch(requestCmd(m.adapter, m.sug, *m.request, m.legacy), m.spinner.Tick)
	case key.Matches(msg, m.keys.Accept):
		return m, m.feedbackCmd(true)
	case key.Matches(msg, m.keys.Override):
		return m, m.feedbackCmd(false)
	}
	return m, nil
}

func requestCmd(adapter *optimizer.Adapter, st optimizer.State, req models.AvailabilityRequest, legacy bool) tea.Cmd {
	return func() tea.Msg {
		next, err := adapter.Load(context.Background(), st, req, legacy)
		return suggestionsMsg{state: next, err: err}
	}
}

func (m Model) feedbackCmd(accepted bool) tea.Cmd {
	if m.adapter == nil {
		return nil
	}
	adapter, st := m.adapter, m.sug
	decision := models.DecisionOverridden
	if accepted {
		decision = models.DecisionAccepted
	}
	return func() tea.Msg {
		err := adapter.Feedback(context.Background(), st, accepted, "")
		return feedbackMsg{decision: decision, err: err}
	}
}

func (m Model) updatePublish(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		var insights *models.OptimizationInsights
		if m.decision != "" {
			insights = m.sug.Insights(m.decision, "")
		}
		snap := m.sync.PublishSnapshot(string(scopeFor(m.tab)), insights)
		snap.Emails = synchronizer.SuggestionEmails(m.sug)
		m.publish = publisher.State{Phase: publisher.PhasePublishing}
		m.state = m.tab
		return m, tea.Batch(publishCmd(m.pub, snap), m.spinner.Tick)
	case "n", "esc":
		m.state = m.tab
	}
	return m, nil
}

func publishCmd(pub *publisher.Publisher, snap publisher.Snapshot) tea.Cmd {
	return func() tea.Msg {
		st, err := pub.Publish(context.Background(), snap)
		if err != nil && st.Phase != publisher.PhaseFailed {
			// Rejected before the call, e.g. an empty crew.
			st = publisher.State{Phase: publisher.PhaseFailed, Err: err.Error()}
		}
		return publishedMsg{state: st, err: err}
	}
}

// suggestionLine is the verdict shown above the suggestion list.
func suggestionLine(st optimizer.State) string {
	sug := st.Suggestion()
	if sug == nil {
		if e := st.Err(); e != "" {
			return dangerStyle.Render("✗ Last request failed: " + e)
		}
		return ""
	}
	verdict := successStyle.Render("✓ Requirements matched")
	if !st.Matched() {
		verdict = dangerStyle.Render("✗ Requirements not met")
	}
	return fmt.Sprintf("%s  %s %s-%s", verdict, sug.Date, sug.Start, sug.End)
}
