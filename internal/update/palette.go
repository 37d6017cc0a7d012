package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/commands"
	"github.com/sandeepkv93/tasksync/internal/model"
)

func (m *Model) openPalette(value string) {
	m.Palette.Active = true
	m.Palette.Input = value
	m.commandInput.SetValue(value)
	m.commandInput.CursorEnd()
	m.commandInput.Focus()
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.closePalette()
		return m.handleKey(msg)
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		raw := strings.TrimSpace(m.commandInput.Value())
		m.closePalette()
		cmd := m.executePaletteCommand(raw)
		return m, cmd
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

// executePaletteCommand parses and dispatches raw. Task mutations come back
// as commands; label changes are applied before it returns.
func (m *Model) executePaletteCommand(raw string) tea.Cmd {
	if raw == "" {
		return nil
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	if m.rec == nil {
		m.Status = StatusBar{Text: "not signed in", IsError: true}
		return nil
	}
	cmd, err := commands.Parse(raw, m.now())
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return nil
	}

	out, err := commands.Execute(cmd, commands.Handlers[tea.Cmd]{
		Add: func(a commands.AddArgs) (tea.Cmd, error) {
			m.draft = raw
			m.Status = StatusBar{Text: "creating task"}
			return m.start(m.rec.Create(a.Input, a.TagIDs), raw), nil
		},
		Done: func(a commands.TaskArgs) (tea.Cmd, error) {
			if t, ok := m.rec.Store().Get(a.TaskID); ok && t.Completed {
				m.Status = StatusBar{Text: fmt.Sprintf("task #%d is already completed", a.TaskID)}
				return nil, nil
			}
			return m.start(m.rec.Toggle(a.TaskID), ""), nil
		},
		Edit: func(a commands.EditArgs) (tea.Cmd, error) {
			return m.start(m.rec.Update(a.TaskID, a.Patch), ""), nil
		},
		Remove: func(a commands.TaskArgs) (tea.Cmd, error) {
			return m.start(m.rec.Delete(a.TaskID), ""), nil
		},
		Tag: func(a commands.TagArgs) (tea.Cmd, error) {
			return m.start(m.rec.AddTags(a.TaskID, a.TagIDs), ""), nil
		},
		Untag: func(a commands.TagArgs) (tea.Cmd, error) {
			return m.start(m.rec.RemoveTags(a.TaskID, a.TagIDs), ""), nil
		},
		Filter: func(a commands.FilterArgs) (tea.Cmd, error) {
			a.Filter.Query = m.Filter.Query
			m.Filter = a.Filter
			m.TaskCursor = 0
			m.CurrentView = ViewTasks
			return m.filterChanged(), nil
		},
		Search: func(a commands.SearchArgs) (tea.Cmd, error) {
			m.Filter.Query = a.Query
			m.TaskCursor = 0
			m.CurrentView = ViewTasks
			return m.filterChanged(), nil
		},
		Category: func(a commands.LabelArgs) (tea.Cmd, error) {
			return nil, m.applyLabel(SectionCategories, a)
		},
		Label: func(a commands.LabelArgs) (tea.Cmd, error) {
			return nil, m.applyLabel(SectionTags, a)
		},
		Recur: func(a commands.RecurArgs) (tea.Cmd, error) {
			if m.backend == nil {
				return nil, unavailable("recurring tasks")
			}
			switch a.Action {
			case commands.RecurList:
				m.CurrentView = ViewLabels
				return m.listRecurringCmd(), nil
			case commands.RecurRemove:
				return m.deleteRecurringCmd(a.RuleID), nil
			case commands.RecurGenerate:
				m.Status = StatusBar{Text: fmt.Sprintf("generating %d tasks from rule #%d", a.Count, a.RuleID)}
				return m.start(m.rec.Generate(a.RuleID, a.Count), ""), nil
			}
			t, err := m.loadedTask(a.TaskID)
			if err != nil {
				return nil, err
			}
			anchor := m.now()
			if t.DueDate != nil {
				anchor = *t.DueDate
			}
			rule := model.RecurringTask{OriginalTaskID: t.ID, Pattern: a.Pattern, Interval: a.Interval, Anchor: anchor}
			m.Recurrence = previewRecurrence(rule, m.now())
			return m.createRecurringCmd(rule), nil
		},
		Remind: func(a commands.RemindArgs) (tea.Cmd, error) {
			if _, err := m.loadedTask(a.TaskID); err != nil {
				return nil, err
			}
			if m.backend == nil {
				return nil, unavailable("reminders")
			}
			if !a.At.After(m.now()) {
				return nil, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "reminder time must be in the future"}
			}
			return m.createReminderCmd(a.TaskID, a.At), nil
		},
		Suggest: func() (tea.Cmd, error) {
			m.CurrentView = ViewInsights
			return m.loadInsightsCmd(), nil
		},
		Reload: func() (tea.Cmd, error) {
			return m.reload(), nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
		return nil
	}
	return out
}

func (m *Model) applyLabel(section LabelSection, a commands.LabelArgs) error {
	if a.Action == commands.LabelRemove {
		return m.deleteLabel(section, a.ID)
	}
	return m.saveLabel(section, a.Name, a.Color)
}

func (m Model) loadedTask(id int64) (model.Task, error) {
	t, ok := m.rec.Store().Get(id)
	if !ok {
		return model.Task{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("task %d is not loaded", id)}
	}
	return t, nil
}

func unavailable(feature string) error {
	return &commands.CommandError{Code: commands.ErrCodeHandlerMissing, Message: feature + " are not available"}
}
