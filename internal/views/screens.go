package views

import (
	"fmt"
	"strings"
)

type TaskRowData struct {
	ID        int64
	Title     string
	Priority  string
	Due       string
	Category  string
	Tags      []string
	Completed bool
}

type TasksPanelData struct {
	FilterLine string
	TableView  string
	Count      int
	Loading    string
}

type TaskDetailData struct {
	Task        *TaskRowData
	Description string
	Recurrence  []string
}

type LabelData struct {
	ID    int64
	Name  string
	Color string
	Uses  int
}

type LabelsPanelData struct {
	Section    string
	Categories []LabelData
	Tags       []LabelData
	Cursor     int
}

type ReminderData struct {
	ID        int64
	TaskID    int64
	TaskTitle string
	When      string
	Sent      bool
}

type RemindersPanelData struct {
	Items   []ReminderData
	Cursor  int
	Loaded  bool
	Pending int
	Dropped uint64
}

type SuggestionData struct {
	Title       string
	Priority    string
	Description string
}

type InsightsPanelData struct {
	Suggestions  []SuggestionData
	Cursor       int
	Loaded       bool
	AnalysisView string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderTasksPanel(data TasksPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("tasks (%d)", data.Count))
	if data.Loading != "" {
		b.WriteString(" " + data.Loading)
	}
	b.WriteString("\n")
	if data.FilterLine != "" {
		b.WriteString("filter: " + data.FilterLine + "\n")
	}
	b.WriteString("actions: [space]toggle [x]delete [s]status [r]reload\n")
	if data.Count == 0 {
		b.WriteString("(no tasks)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderTaskDetail(data TaskDetailData) string {
	if data.Task == nil {
		return "details:\n(no selection)"
	}
	t := data.Task
	title := t.Title
	status := "pending"
	if t.Completed {
		title = doneStyle.Render(title)
		status = "completed"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(fmt.Sprintf("#%d %s\n", t.ID, title))
	b.WriteString(fmt.Sprintf("status: %s\npriority: %s\n", status, t.Priority))
	if t.Due != "" {
		b.WriteString("due: " + t.Due + "\n")
	}
	if t.Category != "" {
		b.WriteString("category: " + t.Category + "\n")
	}
	if len(t.Tags) > 0 {
		b.WriteString("tags: " + strings.Join(t.Tags, ", ") + "\n")
	}
	if data.Description != "" {
		b.WriteString("\n" + data.Description + "\n")
	}
	if len(data.Recurrence) > 0 {
		b.WriteString("\nnext occurrences:\n")
		for _, at := range data.Recurrence {
			b.WriteString("- " + at + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderLabelsPanel(data LabelsPanelData) string {
	var b strings.Builder
	b.WriteString("labels:\n")
	b.WriteString("actions: [tab]section [x]delete, /category add, /label add\n")
	renderLabelSection(&b, "categories", data.Categories, data.Section == "categories", data.Cursor)
	renderLabelSection(&b, "tags", data.Tags, data.Section == "tags", data.Cursor)
	return strings.TrimSpace(b.String())
}

func renderLabelSection(b *strings.Builder, title string, items []LabelData, active bool, cursor int) {
	marker := " "
	if active {
		marker = "*"
	}
	b.WriteString(fmt.Sprintf("\n%s %s:\n", marker, title))
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for i, item := range items {
		c := " "
		if active && i == cursor {
			c = ">"
		}
		line := fmt.Sprintf("%s %d %s", c, item.ID, item.Name)
		if item.Color != "" {
			line += " [" + item.Color + "]"
		}
		b.WriteString(fmt.Sprintf("%s (%d tasks)\n", line, item.Uses))
	}
}

func RenderRemindersPanel(data RemindersPanelData) string {
	var b strings.Builder
	b.WriteString("reminders:\n")
	b.WriteString("actions: [x]delete [r]reload, /remind <id> <when>\n")
	b.WriteString(fmt.Sprintf("scheduled: %d dropped: %d\n", data.Pending, data.Dropped))
	if !data.Loaded {
		b.WriteString("(loading)")
		return b.String()
	}
	if len(data.Items) == 0 {
		b.WriteString("(none)")
		return b.String()
	}
	for i, r := range data.Items {
		c := " "
		if i == data.Cursor {
			c = ">"
		}
		state := "upcoming"
		if r.Sent {
			state = "sent"
		}
		title := r.TaskTitle
		if title == "" {
			title = fmt.Sprintf("task #%d", r.TaskID)
		}
		b.WriteString(fmt.Sprintf("%s %d %s %s (%s)\n", c, r.ID, r.When, title, state))
	}
	return strings.TrimSpace(b.String())
}

func RenderInsightsPanel(data InsightsPanelData) string {
	var b strings.Builder
	b.WriteString("suggestions:\n")
	b.WriteString("actions: [enter]add as task [r]refresh\n")
	switch {
	case !data.Loaded:
		b.WriteString("(loading)")
	case len(data.Suggestions) == 0:
		b.WriteString("(nothing to suggest yet)")
	default:
		for i, sg := range data.Suggestions {
			c := " "
			if i == data.Cursor {
				c = ">"
			}
			b.WriteString(fmt.Sprintf("%s [%s] %s\n", c, sg.Priority, sg.Title))
			if sg.Description != "" {
				b.WriteString("    " + sg.Description + "\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command: " + inputView
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
