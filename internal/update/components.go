package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "", Width: 3},
		{Title: "Title", Width: 26},
		{Title: "Pri", Width: 6},
		{Title: "Due", Width: 10},
		{Title: "Tags", Width: 10},
	}
	m.taskTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(14))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "> "
	m.commandInput.Placeholder = "/add pay rent !high"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 44

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.insightsViewport = viewport.New(46, 14)
	m.insightsViewport.SetContent(analysisMarkdown(nil))
}

// syncBubbleData copies model state into the bubble components after every
// update.
func (m *Model) syncBubbleData() {
	tasks := m.visibleTasks()
	rows := make([]table.Row, 0, len(tasks))
	for _, t := range tasks {
		row := taskRow(t)
		done := "[ ]"
		if row.Completed {
			done = "[x]"
		}
		rows = append(rows, table.Row{fmt.Sprint(row.ID), done, row.Title, row.Priority, row.Due, strings.Join(row.Tags, ",")})
	}
	m.taskTable.SetRows(rows)
	m.TaskCursor = clamp(m.TaskCursor, len(rows))
	if len(rows) > 0 {
		m.taskTable.SetCursor(m.TaskCursor)
	}
	if m.Palette.Active {
		m.commandInput.Focus()
	}
}
