package update

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/scheduler"
	"github.com/sandeepkv93/tasksync/internal/views"
)

const reminderLogSize = 20

func (m Model) handleRemindersKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.ReminderCursor < len(m.Reminders)-1 {
			m.ReminderCursor++
		}
	case "k", "up":
		if m.ReminderCursor > 0 {
			m.ReminderCursor--
		}
	case "x":
		if m.backend == nil || m.rec == nil || m.ReminderCursor >= len(m.Reminders) {
			return m, nil
		}
		return m, m.deleteReminderCmd(m.Reminders[m.ReminderCursor].ID)
	}
	return m, nil
}

// handleReminderDue surfaces a fired reminder and tells the backend it was
// delivered. The engine channel is re-armed either way.
func (m Model) handleReminderDue(msg ReminderDueMsg) (Model, tea.Cmd) {
	ev := msg.Event
	m.ReminderLog = append(m.ReminderLog, ev)
	if len(m.ReminderLog) > reminderLogSize {
		m.ReminderLog = m.ReminderLog[len(m.ReminderLog)-reminderLogSize:]
	}
	body := m.reminderTitle(ev.TaskID)
	m.Status = StatusBar{Text: "reminder: " + body}
	m.notify("Reminder", body, "info")

	cmds := []tea.Cmd{m.markSentCmd(ev.ReminderID)}
	if m.engine != nil {
		cmds = append(cmds, waitForReminderCmd(m.engine.C()))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) reminderTitle(taskID int64) string {
	if m.rec != nil {
		if t, ok := m.rec.Store().Get(taskID); ok {
			return t.Title
		}
	}
	return fmt.Sprintf("task #%d", taskID)
}

func (m *Model) handleRemindersLoaded(msg remindersLoadedMsg) {
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("load reminders", msg.err), IsError: true}
		return
	}
	m.Reminders = msg.items
	sortReminders(m.Reminders)
	m.RemindersLoaded = true
	m.ReminderCursor = clamp(m.ReminderCursor, len(m.Reminders))
}

func (m *Model) handleReminderCreated(msg reminderCreatedMsg) {
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("create reminder", msg.err), IsError: true}
		return
	}
	r := msg.reminder
	m.Reminders = append(m.Reminders, r)
	sortReminders(m.Reminders)
	if m.engine != nil && !r.Sent {
		err := m.engine.Schedule(scheduler.ReminderEvent{ReminderID: r.ID, TaskID: r.TaskID, TriggerAt: r.ReminderTime})
		if err != nil {
			m.logger.Warn("reminder not scheduled", "reminder_id", r.ID, "err", err)
		}
	}
	m.Status = StatusBar{Text: fmt.Sprintf("reminder #%d set for %s", r.ID, r.ReminderTime.Local().Format("2006-01-02 15:04"))}
}

func (m *Model) handleReminderDeleted(msg reminderDeletedMsg) {
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("delete reminder", msg.err), IsError: true}
		return
	}
	out := m.Reminders[:0:0]
	for _, r := range m.Reminders {
		if r.ID != msg.id {
			out = append(out, r)
		}
	}
	m.Reminders = out
	switch {
	case m.poller != nil:
		m.poller.Forget(msg.id)
	case m.engine != nil:
		m.engine.Cancel(msg.id)
	}
	m.ReminderCursor = clamp(m.ReminderCursor, len(m.Reminders))
	m.Status = StatusBar{Text: fmt.Sprintf("deleted reminder #%d", msg.id)}
}

func (m *Model) handleReminderSent(msg reminderSentMsg) {
	if msg.err != nil {
		m.logger.Warn("marking reminder sent failed", "reminder_id", msg.id, "err", msg.err)
		return
	}
	for i := range m.Reminders {
		if m.Reminders[i].ID == msg.id {
			m.Reminders[i].Sent = true
		}
	}
}

func sortReminders(rs []model.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].ReminderTime.Equal(rs[j].ReminderTime) {
			return rs[i].ReminderTime.Before(rs[j].ReminderTime)
		}
		return rs[i].ID < rs[j].ID
	})
}

func (m Model) renderRemindersView() string {
	data := views.RemindersPanelData{Cursor: m.ReminderCursor, Loaded: m.RemindersLoaded}
	if m.engine != nil {
		data.Pending = m.engine.Pending()
		data.Dropped = m.engine.Dropped()
	}
	for _, r := range m.Reminders {
		item := views.ReminderData{
			ID:     r.ID,
			TaskID: r.TaskID,
			When:   r.ReminderTime.Local().Format("2006-01-02 15:04"),
			Sent:   r.Sent,
		}
		if m.rec != nil {
			if t, ok := m.rec.Store().Get(r.TaskID); ok {
				item.TaskTitle = t.Title
			}
		}
		data.Items = append(data.Items, item)
	}
	return views.RenderRemindersPanel(data)
}

func (m Model) renderReminderLog() string {
	if len(m.ReminderLog) == 0 {
		return "fired:\n(none yet)"
	}
	lines := []string{"fired:"}
	for i := len(m.ReminderLog) - 1; i >= 0; i-- {
		ev := m.ReminderLog[i]
		lines = append(lines, fmt.Sprintf("- %s %s", ev.TriggerAt.Local().Format("15:04"), m.reminderTitle(ev.TaskID)))
	}
	return strings.Join(lines, "\n")
}
