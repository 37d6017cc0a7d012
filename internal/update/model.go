package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/logging"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
	"github.com/sandeepkv93/tasksync/internal/scheduler"
)

type View string

const (
	ViewTasks     View = "Tasks"
	ViewLabels    View = "Labels"
	ViewReminders View = "Reminders"
	ViewInsights  View = "Insights"
)

var viewOrder = []View{ViewTasks, ViewLabels, ViewReminders, ViewInsights}

type LabelSection string

const (
	SectionCategories LabelSection = "categories"
	SectionTags       LabelSection = "tags"
)

// Backend is the part of the API client the TUI calls directly. Task
// mutations go through the reconciler instead.
type Backend interface {
	ListReminders(ctx context.Context, userID int64) ([]model.Reminder, error)
	CreateReminder(ctx context.Context, userID, taskID int64, at time.Time) (model.Reminder, error)
	DeleteReminder(ctx context.Context, userID, reminderID int64) error
	MarkReminderSent(ctx context.Context, userID, reminderID int64) error
	ListRecurring(ctx context.Context, userID int64) ([]model.RecurringTask, error)
	CreateRecurring(ctx context.Context, userID int64, in model.RecurringTask) (model.RecurringTask, error)
	DeleteRecurring(ctx context.Context, userID, recurringID int64) error
	Suggestions(ctx context.Context, userID int64, limit int) ([]model.Suggestion, error)
	Analysis(ctx context.Context, userID int64) (model.Analysis, error)
}

type Deps struct {
	Reconciler *reconcile.Reconciler
	Backend    Backend
	Realtime   realtime.Transport
	Reminders  *scheduler.Engine
	Poller     *scheduler.Poller
	Notifier   DesktopNotifier
	Desktop    bool
	StatePath  string
	Timeout    time.Duration
	Logger     *log.Logger
	Now        func() time.Time
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Tasks     string
	Labels    string
	Reminders string
	Insights  string
	Palette   string
	Help      string
	Reload    string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Model struct {
	CurrentView      View
	Filter           model.TaskFilter
	TaskCursor       int
	LabelSection     LabelSection
	LabelCursor      int
	Reminders        []model.Reminder
	RemindersLoaded  bool
	ReminderCursor   int
	ReminderLog      []scheduler.ReminderEvent
	Suggestions      []model.Suggestion
	Analysis         *model.Analysis
	InsightsLoaded   bool
	SuggestionCursor int
	Recurrence       RecurrencePreview
	RecurringRules   []model.RecurringTask
	Palette          CommandPaletteState
	HelpVisible      bool
	Notifications    []Notification
	Status           StatusBar
	Conn             realtime.Status
	Keys             GlobalKeyMap
	Quitting         bool

	rec       *reconcile.Reconciler
	backend   Backend
	transport realtime.Transport
	engine    *scheduler.Engine
	poller    *scheduler.Poller
	notifier  DesktopNotifier
	desktop   bool
	statePath string
	timeout   time.Duration
	logger    *log.Logger
	now       func() time.Time
	bridge    *bridge

	// inflight counts Pendings not yet applied; the spinner runs while it
	// is positive.
	inflight int
	// draft is the palette input of a create that has not been confirmed.
	draft string
	// outbox holds collaboration events not yet handed to the transport.
	outbox []realtime.Event

	taskTable        table.Model
	commandInput     textinput.Model
	syncSpinner      spinner.Model
	helpModel        help.Model
	insightsViewport viewport.Model
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type ReminderDueMsg struct {
	Event scheduler.ReminderEvent
}

type completionMsg struct {
	completion reconcile.Completion
	draft      string
}

type realtimeEventMsg struct {
	Event realtime.Event
}

type realtimeStatusMsg struct {
	Status realtime.Status
	Err    error
}

// realtimeConnectedMsg answers the connect command; unlike realtimeStatusMsg
// it does not come from the bridge.
type realtimeConnectedMsg struct {
	Status realtime.Status
	Err    error
}

type remindersLoadedMsg struct {
	items []model.Reminder
	err   error
}

type reminderCreatedMsg struct {
	reminder model.Reminder
	err      error
}

type reminderDeletedMsg struct {
	id  int64
	err error
}

type reminderSentMsg struct {
	id  int64
	err error
}

type insightsMsg struct {
	suggestions []model.Suggestion
	analysis    *model.Analysis
	err         error
}

type recurringMsg struct {
	recurring model.RecurringTask
	err       error
}

type recurringListMsg struct {
	items []model.RecurringTask
	err   error
}

type recurringDeletedMsg struct {
	id  int64
	err error
}

// NewModel loads labels synchronously, since they live in the local store,
// and subscribes to the realtime transport. Tasks are loaded by Init.
func NewModel(d Deps) Model {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Notifier == nil {
		d.Notifier = NoopDesktopNotifier{}
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	m := Model{
		CurrentView:  ViewTasks,
		LabelSection: SectionCategories,
		Conn:         realtime.StatusDisconnected,
		Keys: GlobalKeyMap{
			Tasks:     "1",
			Labels:    "2",
			Reminders: "3",
			Insights:  "4",
			Palette:   "/",
			Help:      "?",
			Reload:    "r",
			Quit:      "q",
		},
		rec:       d.Reconciler,
		backend:   d.Backend,
		transport: d.Realtime,
		engine:    d.Reminders,
		poller:    d.Poller,
		notifier:  d.Notifier,
		desktop:   d.Desktop,
		statePath: strings.TrimSpace(d.StatePath),
		timeout:   d.Timeout,
		logger:    d.Logger,
		now:       d.Now,
	}
	if m.statePath != "" {
		if st, err := loadUIState(m.statePath); err != nil {
			m.logger.Warn("ignoring unreadable ui state", "path", m.statePath, "err", err)
		} else {
			st.apply(&m)
		}
	}
	if m.transport != nil {
		m.bridge = newBridge(m.transport, 64)
	}
	m.initBubbleComponents()
	if m.rec != nil {
		ctx, cancel := m.labelContext()
		m.rec.LoadLabels(ctx)
		cancel()
		m.inflight = 1
	}
	m.syncBubbleData()
	return m
}

// Close stops listening for push events and discards completions that
// arrive afterwards.
func (m Model) Close() {
	if m.bridge != nil {
		m.bridge.close()
	}
	if m.rec != nil {
		m.rec.Close()
	}
}
