package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.wait(), m.connectRealtimeCmd(), m.loadRemindersCmd()}
	if m.engine != nil {
		cmds = append(cmds, waitForReminderCmd(m.engine.C()))
	}
	if m.rec != nil {
		// NewModel already counted this load as in flight.
		cmds = append(cmds, m.pending(m.loadTasks(), ""), m.syncSpinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	if out := next.flushOutbox(); out != nil {
		cmd = tea.Batch(cmd, out)
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		if m.inflight > 0 {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
		return m, nil
	case completionMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		m.handleCompletion(typed)
		return m, nil
	case realtimeEventMsg:
		if m.rec != nil && m.rec.ApplyEvent(typed.Event) {
			m.clampCursors()
		}
		return m, m.bridge.wait()
	case realtimeStatusMsg:
		m.setConn(typed)
		return m, m.bridge.wait()
	case realtimeConnectedMsg:
		m.setConn(realtimeStatusMsg(typed))
		return m, nil
	case ReminderDueMsg:
		return m.handleReminderDue(typed)
	case remindersLoadedMsg:
		m.handleRemindersLoaded(typed)
		return m, nil
	case reminderCreatedMsg:
		m.handleReminderCreated(typed)
		return m, nil
	case reminderDeletedMsg:
		m.handleReminderDeleted(typed)
		return m, nil
	case reminderSentMsg:
		m.handleReminderSent(typed)
		return m, nil
	case insightsMsg:
		m.handleInsights(typed)
		return m, nil
	case recurringMsg:
		m.handleRecurring(typed)
		return m, nil
	case recurringListMsg:
		m.handleRecurringList(typed)
		return m, nil
	case recurringDeletedMsg:
		m.handleRecurringDeleted(typed)
		return m, nil
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			return m.switchView(typed.View)
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.Palette.Active {
		return m.handlePaletteKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		if err := m.persistUIState(); err != nil {
			m.logger.Warn("saving ui state failed", "path", m.statePath, "err", err)
		}
		m.Close()
		return m, tea.Quit
	case m.Keys.Palette:
		m.openPalette("")
		return m, nil
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
		return m, nil
	case "esc":
		if m.rec != nil && m.rec.ErrorMessage() != "" {
			m.rec.DismissError()
			return m, nil
		}
		m.HelpVisible = false
		return m, nil
	case m.Keys.Reload:
		cmd := m.reload()
		return m, cmd
	case m.Keys.Tasks:
		return m.switchView(ViewTasks)
	case m.Keys.Labels:
		return m.switchView(ViewLabels)
	case m.Keys.Reminders:
		return m.switchView(ViewReminders)
	case m.Keys.Insights:
		return m.switchView(ViewInsights)
	}

	switch m.CurrentView {
	case ViewTasks:
		return m.handleTasksKey(msg)
	case ViewLabels:
		return m.handleLabelsKey(msg)
	case ViewReminders:
		return m.handleRemindersKey(msg)
	case ViewInsights:
		return m.handleInsightsKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (Model, tea.Cmd) {
	m.CurrentView = v
	switch v {
	case ViewReminders:
		if !m.RemindersLoaded {
			return m, m.loadRemindersCmd()
		}
	case ViewInsights:
		if !m.InsightsLoaded {
			return m, m.loadInsightsCmd()
		}
	}
	return m, nil
}

// reload refetches everything the current user sees.
func (m *Model) reload() tea.Cmd {
	if m.rec == nil {
		return nil
	}
	ctx, cancel := m.labelContext()
	m.rec.LoadLabels(ctx)
	cancel()
	cmds := []tea.Cmd{m.start(m.loadTasks(), ""), m.loadRemindersCmd()}
	if m.CurrentView == ViewInsights {
		cmds = append(cmds, m.loadInsightsCmd())
	}
	m.Status = StatusBar{Text: "reloading"}
	return tea.Batch(cmds...)
}

func (m *Model) setConn(msg realtimeStatusMsg) {
	m.Conn = msg.Status
	if msg.Err != nil {
		m.logger.Warn("realtime connect failed", "err", msg.Err)
		m.Status = StatusBar{Text: "realtime unavailable: " + msg.Err.Error(), IsError: true}
	}
}

func (m Model) View() string {
	var left, right string
	switch m.CurrentView {
	case ViewTasks:
		left = m.renderTasksView()
		right = m.renderTaskDetail()
	case ViewLabels:
		left = m.renderLabelsView()
		right = m.renderRecurrencePreview()
	case ViewReminders:
		left = m.renderRemindersView()
		right = m.renderReminderLog()
	case ViewInsights:
		left = m.renderInsightsView()
		right = m.insightsViewport.View()
	}
	extra := []string{strings.TrimSpace(right)}
	if p := views.RenderCommandPalette(m.Palette.Active, m.commandInput.View()); p != "" {
		extra = append(extra, p)
	}
	if m.HelpVisible {
		extra = append(extra, m.renderHelpView())
	}

	tabs := make([]string, 0, len(viewOrder))
	active := 0
	for i, v := range viewOrder {
		tabs = append(tabs, fmt.Sprintf("%d %s", i+1, v))
		if v == m.CurrentView {
			active = i
		}
	}

	banner := ""
	userID := int64(0)
	if m.rec != nil {
		banner = m.rec.ErrorMessage()
		userID = m.rec.UserID()
	}
	notification := ""
	if n := len(m.Notifications); n > 0 {
		last := m.Notifications[n-1]
		notification = views.RenderNotification(last.Level, last.Title+": "+last.Body)
	}

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("tasksync | user #%d | realtime: %s", userID, m.Conn),
		Tabs:         tabs,
		ActiveTab:    active,
		Banner:       banner,
		LeftPane:     m.paneOrEmpty(left),
		RightPane:    strings.Join(extra, "\n\n"),
		StatusLine:   m.Status.Text,
		StatusError:  m.Status.IsError,
		Notification: notification,
		Footer: fmt.Sprintf("keys: %s-%s views | %s cmd | %s reload | esc dismiss | %s help | %s quit",
			m.Keys.Tasks, m.Keys.Insights, m.Keys.Palette, m.Keys.Reload, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) paneOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}

func isKnownView(v View) bool {
	for _, known := range viewOrder {
		if v == known {
			return true
		}
	}
	return false
}

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}
