package update

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
	"github.com/sandeepkv93/tasksync/internal/views"
)

// loadTasks fetches with the current filter; a query switches to search.
func (m Model) loadTasks() reconcile.Pending {
	if strings.TrimSpace(m.Filter.Query) != "" {
		return m.rec.Search(m.Filter)
	}
	return m.rec.Load(m.Filter)
}

// visibleTasks is the store narrowed by the filter. The query is left to
// the backend, which may match on more than title and description.
func (m Model) visibleTasks() []model.Task {
	if m.rec == nil {
		return nil
	}
	local := m.Filter
	local.Query = ""
	return m.rec.Store().Visible(local)
}

func (m Model) selectedTask() (model.Task, bool) {
	tasks := m.visibleTasks()
	if m.TaskCursor < 0 || m.TaskCursor >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.TaskCursor], true
}

func (m Model) handleTasksKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.rec == nil {
		return m, nil
	}
	switch msg.String() {
	case "j", "down":
		if m.TaskCursor < len(m.visibleTasks())-1 {
			m.TaskCursor++
		}
	case "k", "up":
		if m.TaskCursor > 0 {
			m.TaskCursor--
		}
	case " ":
		if t, ok := m.selectedTask(); ok {
			cmd := m.start(m.rec.Toggle(t.ID), "")
			return m, cmd
		}
	case "x":
		if t, ok := m.selectedTask(); ok {
			cmd := m.start(m.rec.Delete(t.ID), "")
			return m, cmd
		}
	case "s":
		m.Filter.Status = nextStatus(m.Filter.Status)
		m.TaskCursor = 0
		cmd := m.filterChanged()
		return m, cmd
	case "p":
		m.Filter.Priority = nextPriority(m.Filter.Priority)
		m.TaskCursor = 0
		cmd := m.filterChanged()
		return m, cmd
	}
	return m, nil
}

func (m *Model) filterChanged() tea.Cmd {
	if err := m.persistUIState(); err != nil {
		m.logger.Warn("saving ui state failed", "path", m.statePath, "err", err)
	}
	m.Status = StatusBar{Text: "filter: " + describeFilter(m.Filter, m.rec)}
	return m.start(m.loadTasks(), "")
}

func nextStatus(s model.Status) model.Status {
	switch s {
	case "":
		return model.StatusPending
	case model.StatusPending:
		return model.StatusCompleted
	default:
		return ""
	}
}

func nextPriority(p model.Priority) model.Priority {
	switch p {
	case "":
		return model.PriorityHigh
	case model.PriorityHigh:
		return model.PriorityMedium
	case model.PriorityMedium:
		return model.PriorityLow
	default:
		return ""
	}
}

// handleCompletion applies a finished Pending and reports the outcome. A
// failed create reopens the palette with what the user typed.
func (m *Model) handleCompletion(msg completionMsg) {
	if m.rec == nil {
		return
	}
	c := msg.completion
	m.rec.Apply(c)
	if m.rec.Closed() {
		return
	}
	if c.Err != nil {
		banner := m.rec.ErrorMessage()
		m.Status = StatusBar{Text: banner, IsError: true}
		m.notify("Error", banner, "error")
		if c.Op == reconcile.OpCreate && msg.draft != "" {
			m.openPalette(msg.draft)
		}
		return
	}
	if c.Op == reconcile.OpCreate {
		m.draft = ""
	}
	m.announce(c)
	text := completionText(c)
	if c.Op == reconcile.OpUpdate {
		if dropped := m.rec.LastDropped(); len(dropped) > 0 {
			text += " (not supported by backend: " + strings.Join(dropped, ", ") + ")"
		}
	}
	m.Status = StatusBar{Text: text}
	m.clampCursors()
}

func completionText(c reconcile.Completion) string {
	switch c.Op {
	case reconcile.OpLoad, reconcile.OpSearch:
		return fmt.Sprintf("loaded %d tasks", len(c.Tasks))
	case reconcile.OpCreate:
		return fmt.Sprintf("created task #%d: %s", c.Task.ID, c.Task.Title)
	case reconcile.OpUpdate:
		text := fmt.Sprintf("updated task #%d", c.TaskID)
		if !c.Applied {
			text = fmt.Sprintf("task #%d unchanged", c.TaskID)
		}
		return text
	case reconcile.OpToggle:
		if !c.Applied {
			return fmt.Sprintf("task #%d not found on server, nothing changed", c.TaskID)
		}
		if c.Task.Completed {
			return fmt.Sprintf("task #%d completed", c.TaskID)
		}
		return fmt.Sprintf("task #%d reopened", c.TaskID)
	case reconcile.OpDelete:
		if !c.Applied {
			return fmt.Sprintf("task #%d was already gone", c.TaskID)
		}
		return fmt.Sprintf("deleted task #%d", c.TaskID)
	case reconcile.OpAddTags, reconcile.OpRemoveTags:
		return fmt.Sprintf("updated tags on task #%d", c.TaskID)
	case reconcile.OpGenerate:
		return fmt.Sprintf("generated %d tasks", len(c.Tasks))
	}
	return string(c.Op)
}

func (m *Model) clampCursors() {
	m.TaskCursor = clamp(m.TaskCursor, len(m.visibleTasks()))
	m.LabelCursor = clamp(m.LabelCursor, len(m.labelItems()))
	m.ReminderCursor = clamp(m.ReminderCursor, len(m.Reminders))
	m.SuggestionCursor = clamp(m.SuggestionCursor, len(m.Suggestions))
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}

func describeFilter(f model.TaskFilter, rec *reconcile.Reconciler) string {
	var parts []string
	if f.Status != "" {
		parts = append(parts, "status:"+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority:"+string(f.Priority))
	}
	if f.CategoryID != nil {
		name := fmt.Sprint(*f.CategoryID)
		if rec != nil {
			if c, ok := rec.Store().Category(*f.CategoryID); ok {
				name = c.Name
			}
		}
		parts = append(parts, "category:"+name)
	}
	for _, id := range f.TagIDs {
		name := fmt.Sprint(id)
		if rec != nil {
			if t, ok := rec.Store().Tag(id); ok {
				name = t.Name
			}
		}
		parts = append(parts, "tag:"+name)
	}
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("search:%q", f.Query))
	}
	if f.SortBy != "" {
		order := f.SortOrder
		if order == "" {
			order = model.SortAsc
		}
		parts = append(parts, fmt.Sprintf("sort:%s %s", f.SortBy, order))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}

func taskRow(t model.Task) views.TaskRowData {
	row := views.TaskRowData{
		ID:        t.ID,
		Title:     t.Title,
		Priority:  string(t.Priority),
		Completed: t.Completed,
	}
	if t.DueDate != nil {
		row.Due = t.DueDate.Local().Format("2006-01-02")
	}
	if t.Category != nil {
		row.Category = t.Category.Name
	}
	for _, tag := range t.Tags {
		row.Tags = append(row.Tags, tag.Name)
	}
	sort.Strings(row.Tags)
	return row
}

func (m Model) renderTasksView() string {
	loading := ""
	if m.inflight > 0 {
		loading = m.syncSpinner.View() + " syncing"
	}
	return views.RenderTasksPanel(views.TasksPanelData{
		FilterLine: describeFilter(m.Filter, m.rec),
		TableView:  m.taskTable.View(),
		Count:      len(m.visibleTasks()),
		Loading:    loading,
	})
}

func (m Model) renderTaskDetail() string {
	t, ok := m.selectedTask()
	if !ok {
		return views.RenderTaskDetail(views.TaskDetailData{})
	}
	row := taskRow(t)
	data := views.TaskDetailData{Task: &row, Description: views.RenderMarkdown(t.Description)}
	if m.Recurrence.TaskID == t.ID {
		data.Recurrence = m.Recurrence.Lines
	}
	return views.RenderTaskDetail(data)
}
