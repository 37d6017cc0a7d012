package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/tasksync/internal/commands"
	"github.com/sandeepkv93/tasksync/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	plain = append(plain, "", "commands:")
	for _, line := range commands.Help {
		plain = append(plain, "  "+line)
	}
	bindings := m.helpBindings()
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Tasks, Action: "tasks"},
		{Key: m.Keys.Labels, Action: "labels"},
		{Key: m.Keys.Reminders, Action: "reminders"},
		{Key: m.Keys.Insights, Action: "insights"},
		{Key: m.Keys.Palette, Action: "command"},
		{Key: m.Keys.Reload, Action: "reload"},
		{Key: m.Keys.Help, Action: "help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewTasks:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "space", Action: "toggle completion"},
			{Key: "x", Action: "delete task"},
			{Key: "s", Action: "cycle status filter"},
			{Key: "p", Action: "cycle priority filter"},
		}
	case ViewLabels:
		return []KeyBinding{
			{Key: "tab", Action: "switch categories/tags"},
			{Key: "j/k", Action: "move selection"},
			{Key: "enter", Action: "filter tasks by label"},
			{Key: "x", Action: "delete label"},
		}
	case ViewReminders:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "x", Action: "delete reminder"},
		}
	case ViewInsights:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "enter", Action: "add suggestion as task"},
			{Key: "pgup/pgdown", Action: "scroll analysis"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	global := m.globalBindings()
	out := make([]key.Binding, 0, len(global))
	for _, kb := range global {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
