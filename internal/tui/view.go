package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/publisher"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateAddTask, constants.StateEditCrew, constants.StateRenameResource:
		content = m.viewForm()
	case constants.StateSuggestions:
		content = docStyle.Render(m.viewSuggestions())
	case constants.StatePublish:
		content = m.viewConfirmPublish()
	default:
		content = docStyle.Render(m.viewPhase())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewBanner(),
		content,
		m.viewToasts(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for _, s := range tabOrder {
		title := scopeFor(s).Label()
		if m.tab == s && m.state != constants.StateSuggestions {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	if m.state == constants.StateSuggestions {
		tabs = append(tabs, activeTabStyle.Render("Suggestions"))
	} else {
		tabs = append(tabs, inactiveTabStyle.Render("Suggestions"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewBanner() string {
	var parts []string
	if m.busy() {
		label := "Loading case"
		switch {
		case m.savingCrew:
			label = "Saving crew"
		case m.requesting:
			label = "Requesting suggestions"
		case m.publish.Phase == publisher.PhasePublishing:
			label = "Publishing plan"
		}
		parts = append(parts, m.spinner.View()+" "+label+"...")
	}
	if m.sync.Demo() {
		parts = append(parts, warningStyle.Render("Offline: showing cached data, changes stay local"))
	}
	if err := m.sync.LoadErr(); err != nil && !m.loading {
		parts = append(parts, dangerStyle.Render("⚠ Could not load everything: "+err.Error()+" (r to retry)"))
	}
	switch m.publish.Phase {
	case publisher.PhasePublished:
		parts = append(parts, successStyle.Render("✓ Plan published: "+m.publish.RecordID+" (x to dismiss)"))
	case publisher.PhaseFailed:
		parts = append(parts, dangerStyle.Render("Publish failed: "+m.publish.Err+" (p to retry)"))
	}
	return strings.Join(parts, "\n")
}

func (m Model) viewPhase() string {
	var b strings.Builder

	v := m.sync.Vitals()
	if v.Empty() {
		b.WriteString(dimStyle.Render("No vitals recorded"))
	} else {
		fmt.Fprintf(&b, "HR %s  BP %s  SpO2 %s", v.HeartRate, v.BloodPressure, v.SpO2)
	}
	b.WriteString("\n")

	crew := m.sync.Crew()
	fmt.Fprintf(&b, "Crew: %s | %s\n", joinOrNone(crew.Doctors()), joinOrNone(crew.Nurses()))

	if steps := m.sync.Timeline(); len(steps) > 0 {
		for _, st := range steps {
			if st.Status == models.StepActive {
				fmt.Fprintf(&b, "Now: %s (%s, %s)\n", st.Title, st.Owner, st.Time)
			}
		}
	}
	b.WriteString("\n")

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("No tasks in this phase. Press a to add one."))
		return b.String()
	}

	lastHeader := ""
	for i, r := range rows {
		header := fmt.Sprintf("%s (%s)", r.staff, r.role)
		if header != lastHeader {
			if lastHeader != "" {
				b.WriteString("\n")
			}
			b.WriteString(headerStyle.Render(header))
			b.WriteString("\n")
			lastHeader = header
		}
		line := formatRow(r)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return dimStyle.Render("none")
	}
	return strings.Join(names, ", ")
}

func formatRow(r row) string {
	mark := "[ ]"
	switch r.task.Status {
	case models.StatusInProgress:
		mark = "[~]"
	case models.StatusCompleted:
		mark = "[x]"
	}
	s := fmt.Sprintf("%s %s", mark, r.task.Label)
	if r.task.Time != "" {
		s += " @ " + r.task.Time
	}
	switch r.task.Priority {
	case models.PriorityCritical:
		s += " " + dangerStyle.Render("!!")
	case models.PriorityHigh:
		s += " " + warningStyle.Render("!")
	}
	if r.task.Note != "" {
		s += dimStyle.Render(" - " + r.task.Note)
	}
	return s
}

func (m Model) viewSuggestions() string {
	if !m.sug.HasSuggestion() {
		msg := "No suggestions loaded. Run 'surgisync suggest request' to check availability."
		if m.sug.Err() != "" {
			msg = suggestionLine(m.sug)
		}
		if m.request != nil {
			msg += "\n\n" + dimStyle.Render("f requests again")
		}
		return msg
	}

	var b strings.Builder
	b.WriteString(suggestionLine(m.sug))
	b.WriteString("\n")

	sug := m.sug.Suggestion()
	if sc := m.sug.Active(); sc != nil {
		fmt.Fprintf(&b, "Scenario %d/%d: %s  coverage %.0f%%  confidence %.0f%%  overtime %dm\n",
			m.sug.ActiveIndex()+1, len(sug.Scenarios), sc.Label,
			sc.Metrics.CoverageScore*100, sc.Metrics.Confidence*100, sc.Metrics.PredictedOvertimeMinutes)
		if m.decision != "" {
			b.WriteString(dimStyle.Render("Decision: " + string(m.decision)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	var last optimizer.Category
	for i, it := range m.resources() {
		if it.Category != last {
			b.WriteString(headerStyle.Render(it.Category.Label()))
			b.WriteString("\n")
			last = it.Category
		}
		box := "[ ]"
		if m.sug.IsSelected(it.Category, it.Resource.ID) {
			box = "[x]"
		}
		line := box + " " + it.Resource.Name
		if i == m.sugCursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%s", dimStyle.Render("enter assigns selected staff to "+scopeFor(m.tab).Label()))
	return b.String()
}

func (m Model) viewForm() string {
	var b strings.Builder
	if m.formError != "" {
		b.WriteString(dangerStyle.Render(m.formError))
		b.WriteString("\n\n")
	}
	if m.form != nil {
		b.WriteString(m.form.View())
	}
	return docStyle.Render(b.String())
}

func (m Model) viewConfirmPublish() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			fmt.Sprintf("Publish the care plan from %s?", scopeFor(m.tab).Label()),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func (m Model) viewToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	var out []string
	for _, t := range m.toasts {
		style := toastStyle
		switch t.Level {
		case notifier.LevelError:
			style = style.BorderForeground(lipgloss.Color("196"))
		case notifier.LevelWarn:
			style = style.BorderForeground(lipgloss.Color("214"))
		case notifier.LevelSuccess:
			style = style.BorderForeground(lipgloss.Color("42"))
		}
		out = append(out, style.Render(t.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
