package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/optimizer"
	"github.com/julianstephens/surgisync/internal/roster"
	"github.com/julianstephens/surgisync/internal/synchronizer"
	"github.com/julianstephens/surgisync/internal/validation"
)

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

func newTaskForm(f *TaskFormModel, staff []string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Staff").
				Suggestions(staff).
				Value(&f.Staff).
				Validate(required("staff")),
			huh.NewSelect[string]().
				Title("Role").
				Options(
					huh.NewOption("From crew", ""),
					huh.NewOption("Doctor", string(models.RoleDoctor)),
					huh.NewOption("Nurse", string(models.RoleNurse)),
				).
				Value(&f.Role),
			huh.NewInput().
				Title("Task").
				Value(&f.Label).
				Validate(required("task")),
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("Pending", string(models.StatusPending)),
					huh.NewOption("In progress", string(models.StatusInProgress)),
					huh.NewOption("Completed", string(models.StatusCompleted)),
				).
				Value(&f.Status),
			huh.NewInput().
				Title("Time (HH:MM)").
				Value(&f.Time),
			huh.NewSelect[string]().
				Title("Priority").
				Options(huh.NewOptions(
					string(models.PriorityRoutine),
					string(models.PriorityHigh),
					string(models.PriorityCritical),
				)...).
				Value(&f.Priority),
			huh.NewInput().
				Title("Note").
				Value(&f.Note),
		),
	)
}

func (f TaskFormModel) submission(scope models.Scope) validation.Submission {
	return validation.Submission{
		Scope:       string(scope),
		Role:        f.Role,
		CustomStaff: f.Staff,
		Label:       f.Label,
		Status:      f.Status,
		Time:        f.Time,
		Note:        f.Note,
		Priority:    f.Priority,
	}
}

// staffNames offers every crew and bucket name as a completion.
func (m Model) staffNames() []string {
	names := append(m.sync.Crew().Doctors(), m.sync.Crew().Nurses()...)
	store := m.sync.Tasks()
	for _, scope := range models.Scopes {
		for _, role := range models.Roles {
			names = append(names, store.Staff(scope, role)...)
		}
	}
	return roster.Normalize(names)
}

func (m *Model) openTaskForm(r *row) tea.Cmd {
	f := &TaskFormModel{
		Status:   string(models.StatusPending),
		Priority: string(models.PriorityRoutine),
	}
	m.editing = nil
	if r != nil {
		f.Staff = r.staff
		f.Role = string(r.role)
		f.Label = r.task.Label
		f.Status = string(r.task.Status)
		f.Time = r.task.Time
		f.Note = r.task.Note
		if r.task.Priority != "" {
			f.Priority = string(r.task.Priority)
		}
		ref := synchronizer.TaskRef{Scope: scopeFor(m.tab), Role: r.role, Staff: r.staff, Index: r.index}
		m.editing = &ref
	}
	m.taskForm = f
	m.formError = ""
	m.form = newTaskForm(f, m.staffNames())
	m.state = constants.StateAddTask
	return m.form.Init()
}

func (m Model) updateTaskForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.tab
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		sub := m.taskForm.submission(scopeFor(m.tab))
		var err error
		if m.editing != nil {
			_, err = m.sync.EditTask(*m.editing, sub)
		} else {
			_, err = m.sync.AddTask(sub)
		}
		if err != nil {
			// Stay in the form so the entry can be corrected.
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return m, tea.Batch(cmds...)
		}
		m.formError = ""
		m.editing = nil
		m.state = m.tab
		m.clampCursor()
	case huh.StateAborted:
		m.state = m.tab
	}
	return m, tea.Batch(cmds...)
}

func newCrewForm(f *CrewFormModel, draft *roster.Draft) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Doctors").
				Options(huh.NewOptions(draft.Candidates(models.RoleDoctor)...)...).
				Value(&f.Doctors),
			huh.NewMultiSelect[string]().
				Title("Nurses").
				Options(huh.NewOptions(draft.Candidates(models.RoleNurse)...)...).
				Value(&f.Nurses),
		),
	)
}

// openCrewForm edits the given draft, or a fresh one. A failed save
// reopens the same draft.
func (m *Model) openCrewForm(draft *roster.Draft) tea.Cmd {
	if draft == nil {
		sug := m.sug
		draft = m.sync.NewCrewDraft(&sug)
	}
	m.crewDraft = draft
	m.crewForm = &CrewFormModel{
		Doctors: draft.Selected(models.RoleDoctor),
		Nurses:  draft.Selected(models.RoleNurse),
	}
	m.form = newCrewForm(m.crewForm, draft)
	m.state = constants.StateEditCrew
	return m.form.Init()
}

func saveCrewCmd(s *synchronizer.Synchronizer, draft *roster.Draft) tea.Cmd {
	return func() tea.Msg {
		return crewSavedMsg{err: s.SaveCrew(context.Background(), draft)}
	}
}

func (m Model) updateCrewForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.crewDraft = nil
		m.formError = ""
		m.state = m.tab
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.crewDraft.Select(models.RoleDoctor, m.crewForm.Doctors)
		m.crewDraft.Select(models.RoleNurse, m.crewForm.Nurses)
		if err := m.crewDraft.Validate(); err != nil {
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return m, tea.Batch(cmds...)
		}
		m.savingCrew = true
		m.state = m.tab
		cmds = append(cmds, saveCrewCmd(m.sync, m.crewDraft), m.spinner.Tick)
	case huh.StateAborted:
		m.crewDraft = nil
		m.state = m.tab
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) openRenameForm(it optimizer.Selection) tea.Cmd {
	m.rename = &RenameFormModel{
		Key:  optimizer.SelectionKey{Category: it.Category, ID: it.Resource.ID},
		Name: it.Resource.Name,
	}
	m.formError = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Rename " + it.Resource.Name).
				Value(&m.rename.Name).
				Validate(required("name")),
		),
	)
	m.state = constants.StateRenameResource
	return m.form.Init()
}

// commitRename applies the edited name to every scenario listing the
// resource and returns to the suggestion list.
func (m *Model) commitRename() {
	if m.rename != nil {
		m.sug = m.sug.Rename(m.rename.Key.Category, m.rename.Key.ID, m.rename.Name)
		m.suggestionsChanged()
	}
	m.rename = nil
	m.state = constants.StateSuggestions
}

func (m Model) updateRenameForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.rename = nil
		m.state = constants.StateSuggestions
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.commitRename()
	case huh.StateAborted:
		m.rename = nil
		m.state = constants.StateSuggestions
	}
	return m, cmd
}
