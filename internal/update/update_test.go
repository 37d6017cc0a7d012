package update

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/api/apitest"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
	"github.com/sandeepkv93/tasksync/internal/scheduler"
	"github.com/sandeepkv93/tasksync/internal/storage"
)

var testNow = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type fixture struct {
	backend *apitest.Backend
	user    apitest.User
	client  *api.Client
	labels  *storage.Collections
	rec     *reconcile.Reconciler
}

func setup(t *testing.T) fixture {
	t.Helper()
	backend := apitest.NewBackend()
	t.Cleanup(backend.Close)
	user, token := backend.AddUser("ada@example.com", "secret1")

	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	client := api.New(backend.URL(), api.WithTokenSource(staticToken(token)))
	labels := storage.NewCollections(repo)
	rec := reconcile.New(reconcile.Options{
		Remote: client,
		Labels: labels,
		UserID: user.ID,
	})
	return fixture{backend: backend, user: user, client: client, labels: labels, rec: rec}
}

func (f fixture) model(t *testing.T, mutate ...func(*Deps)) Model {
	t.Helper()
	d := Deps{
		Reconciler: f.rec,
		Backend:    f.client,
		Timeout:    5 * time.Second,
		Now:        func() time.Time { return testNow },
	}
	for _, fn := range mutate {
		fn(&d)
	}
	return NewModel(d)
}

func (f fixture) seed(title string, completed bool) apitest.Task {
	return f.backend.SeedTask(apitest.Task{UserID: f.user.ID, Title: title, Completed: completed})
}

// drive runs cmd and every command it leads to, feeding each message back
// through Update. Spinner ticks are skipped so the loop terminates.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("command chain did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		}
	}
	return m
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return drive(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
)

// command submits line through the palette and settles the result.
func command(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.openPalette(line)
	return press(t, m, enter)
}

// load runs the initial fetch without the blocking parts of Init.
func load(t *testing.T, m Model) Model {
	t.Helper()
	return drive(t, m, m.pending(m.loadTasks(), ""))
}

func TestInitLoadsTasksLabelsAndReminders(t *testing.T) {
	f := setup(t)
	a := f.seed("Water plants", false)
	f.seed("File taxes", true)
	f.backend.SeedReminder(apitest.Reminder{TaskID: a.ID, UserID: f.user.ID, ReminderTime: testNow.Add(time.Hour)})
	if _, err := f.labels.SaveCategory(context.Background(), f.user.ID, model.Category{Name: "home"}); err != nil {
		t.Fatalf("save category: %v", err)
	}

	m := f.model(t)
	if len(f.rec.Store().Categories()) != 1 {
		t.Fatalf("labels not loaded by NewModel: %+v", f.rec.Store().Categories())
	}
	if m.inflight != 1 {
		t.Fatalf("initial load should be counted in flight, got %d", m.inflight)
	}
	m = drive(t, m, m.Init())

	if got := len(m.visibleTasks()); got != 2 {
		t.Fatalf("visible tasks = %d, want 2", got)
	}
	if m.inflight != 0 {
		t.Fatalf("inflight = %d after settle", m.inflight)
	}
	if !m.RemindersLoaded || len(m.Reminders) != 1 || m.Reminders[0].TaskID != a.ID {
		t.Fatalf("unexpected reminders: loaded=%v %+v", m.RemindersLoaded, m.Reminders)
	}
	if m.Status.Text != "loaded 2 tasks" {
		t.Fatalf("unexpected status %+v", m.Status)
	}
}

func TestCreateAppearsOnlyAfterConfirmation(t *testing.T) {
	f := setup(t)
	m := f.model(t)

	m.openPalette("/add Buy milk !high")
	next, cmd := m.Update(enter)
	m = next.(Model)
	if f.rec.Store().Len() != 0 {
		t.Fatal("task stored before the backend confirmed it")
	}
	if m.Palette.Active {
		t.Fatal("palette should close on submit")
	}
	m = drive(t, m, cmd)

	tasks := m.visibleTasks()
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" || tasks[0].Priority != model.PriorityHigh {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if _, ok := f.backend.Task(tasks[0].ID); !ok {
		t.Fatal("task missing on backend")
	}
	if !strings.HasPrefix(m.Status.Text, "created task") {
		t.Fatalf("unexpected status %+v", m.Status)
	}
}

func TestFailedCreateKeepsInputAndShowsBanner(t *testing.T) {
	f := setup(t)
	m := f.model(t)

	f.backend.FailNextWith(http.StatusInternalServerError)
	m = command(t, m, "/add Pay rent")

	if f.rec.Store().Len() != 0 {
		t.Fatalf("failed create reached the store: %+v", f.rec.Store().Tasks())
	}
	if !strings.HasPrefix(f.rec.ErrorMessage(), "Failed to create task") {
		t.Fatalf("unexpected banner %q", f.rec.ErrorMessage())
	}
	if !m.Palette.Active || m.Palette.Input != "/add Pay rent" {
		t.Fatalf("draft not restored: %+v", m.Palette)
	}
	if !strings.Contains(m.View(), "Failed to create task") {
		t.Fatal("banner not rendered")
	}

	m = press(t, m, esc)
	if m.Palette.Active {
		t.Fatal("esc should close the palette first")
	}
	m = press(t, m, esc)
	if f.rec.ErrorMessage() != "" {
		t.Fatalf("banner not dismissed: %q", f.rec.ErrorMessage())
	}
}

func TestBlankTitleIsRejectedLocally(t *testing.T) {
	f := setup(t)
	m := f.model(t)
	before := len(f.backend.Requests())

	m = command(t, m, "/add")

	if f.rec.ErrorMessage() != "Task title is required" {
		t.Fatalf("unexpected banner %q", f.rec.ErrorMessage())
	}
	if got := len(f.backend.Requests()); got != before {
		t.Fatalf("blank create sent %d requests", got-before)
	}
	if !m.Palette.Active || m.Palette.Input != "/add" {
		t.Fatalf("draft not restored: %+v", m.Palette)
	}
}

func TestToggleAndDeleteFromTaskList(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Call mom", false)
	m := f.model(t)
	m = drive(t, m, m.Init())

	m = press(t, m, space)
	got, _ := f.rec.Store().Get(seeded.ID)
	if !got.Completed {
		t.Fatalf("toggle not applied: %+v", got)
	}
	if m.Status.Text != "task #"+itoa(seeded.ID)+" completed" {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}

	m = press(t, m, runes("x"))
	if _, ok := f.rec.Store().Get(seeded.ID); ok {
		t.Fatal("task still stored after delete")
	}
	if _, ok := f.backend.Task(seeded.ID); ok {
		t.Fatal("task still on backend after delete")
	}
	if m.TaskCursor != 0 {
		t.Fatalf("cursor not clamped: %d", m.TaskCursor)
	}
}

func TestDeleteOfAbsentTaskIsNoop(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Ghost", false)
	m := f.model(t)
	m = drive(t, m, m.Init())

	if _, err := f.client.DeleteTask(context.Background(), f.user.ID, seeded.ID); err != nil {
		t.Fatalf("delete behind the model's back: %v", err)
	}
	m = press(t, m, runes("x"))

	if f.rec.ErrorMessage() != "" {
		t.Fatalf("no-op delete raised %q", f.rec.ErrorMessage())
	}
	if _, ok := f.rec.Store().Get(seeded.ID); !ok {
		t.Fatal("no-op delete changed the store")
	}
	if !strings.Contains(m.Status.Text, "already gone") {
		t.Fatalf("unexpected status %q", m.Status.Text)
	}
}

func TestCompletionAfterCloseIsDiscarded(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Late reply", false)
	m := f.model(t)
	m = drive(t, m, m.Init())

	next, cmd := m.Update(space)
	m = next.(Model)
	m.Close()
	m = drive(t, m, cmd)

	got, _ := f.rec.Store().Get(seeded.ID)
	if got.Completed {
		t.Fatal("completion applied after close")
	}
	if remote, _ := f.backend.Task(seeded.ID); !remote.Completed {
		t.Fatal("request should still have reached the backend")
	}
}

func TestStatusFilterReloadsAndPersists(t *testing.T) {
	f := setup(t)
	f.seed("Open", false)
	f.seed("Closed", true)
	statePath := filepath.Join(t.TempDir(), "ui", "state.json")
	withState := func(d *Deps) { d.StatePath = statePath }

	m := f.model(t, withState)
	m = drive(t, m, m.Init())
	m = press(t, m, runes("s"))

	if m.Filter.Status != model.StatusPending {
		t.Fatalf("status filter = %q", m.Filter.Status)
	}
	tasks := m.visibleTasks()
	if len(tasks) != 1 || tasks[0].Title != "Open" {
		t.Fatalf("unexpected visible tasks %+v", tasks)
	}
	last := f.backend.Requests()[len(f.backend.Requests())-1]
	if !strings.Contains(last, "status=pending") {
		t.Fatalf("filter not sent to backend: %s", last)
	}

	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("state not written: %v", err)
	}
	restored := f.model(t, withState)
	if restored.Filter.Status != model.StatusPending {
		t.Fatalf("filter not restored: %+v", restored.Filter)
	}
}

func TestFilterAndSearchCommands(t *testing.T) {
	f := setup(t)
	f.seed("Buy oat milk", false)
	f.seed("Pay rent", false)
	m := f.model(t)
	m = drive(t, m, m.Init())

	m = command(t, m, "/search milk")
	if tasks := m.visibleTasks(); len(tasks) != 1 || tasks[0].Title != "Buy oat milk" {
		t.Fatalf("unexpected search result %+v", tasks)
	}
	if got := describeFilter(m.Filter, f.rec); got != `search:"milk"` {
		t.Fatalf("unexpected filter line %q", got)
	}

	m = command(t, m, "/filter sort:title order:desc")
	if m.Filter.Query != "milk" || m.Filter.SortOrder != model.SortDesc {
		t.Fatalf("filter should keep the query: %+v", m.Filter)
	}

	m = command(t, m, "/filter status:bogus")
	if !m.Status.IsError {
		t.Fatalf("invalid filter should fail: %+v", m.Status)
	}
}

func TestEditAndRetagThroughPalette(t *testing.T) {
	f := setup(t)
	errand, err := f.labels.SaveTag(context.Background(), f.user.ID, model.Tag{Name: "errand"})
	if err != nil {
		t.Fatalf("save tag: %v", err)
	}
	f.backend.AddTag(apitest.Tag{ID: errand.ID, Name: errand.Name})
	seeded := f.seed("Groceries", false)
	m := f.model(t)
	m = drive(t, m, m.Init())

	id := itoa(seeded.ID)
	m = command(t, m, "/edit "+id+` title="Weekly groceries" priority=high`)
	got, _ := f.rec.Store().Get(seeded.ID)
	if got.Title != "Weekly groceries" || got.Priority != model.PriorityMedium {
		t.Fatalf("edit not narrowed to the allowlist: %+v", got)
	}
	if !strings.Contains(m.Status.Text, "not supported by backend: priority") {
		t.Fatalf("dropped field not reported: %q", m.Status.Text)
	}

	m = command(t, m, "/tag "+id+" "+itoa(errand.ID))
	got, _ = f.rec.Store().Get(seeded.ID)
	if !got.HasTag(errand.ID) || got.Tags[0].Name != "errand" {
		t.Fatalf("tag not applied: %+v", got.Tags)
	}
	m = command(t, m, "/untag "+id+" "+itoa(errand.ID))
	got, _ = f.rec.Store().Get(seeded.ID)
	if got.HasTag(errand.ID) {
		t.Fatalf("tag not removed: %+v", got.Tags)
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error status %+v", m.Status)
	}
}

func TestLabelCommandsAndLabelsView(t *testing.T) {
	f := setup(t)
	m := f.model(t)

	m = command(t, m, "/category add Home #00aa00")
	m = command(t, m, "/label add errand")
	if len(f.rec.Store().Categories()) != 1 || len(f.rec.Store().TagsList()) != 1 {
		t.Fatalf("labels not saved: %+v %+v", f.rec.Store().Categories(), f.rec.Store().TagsList())
	}
	stored, err := f.labels.Categories(context.Background(), f.user.ID)
	if err != nil || len(stored) != 1 || stored[0].Color != "#00aa00" {
		t.Fatalf("keyed store not updated: %+v %v", stored, err)
	}

	m = press(t, m, runes("2"))
	if m.CurrentView != ViewLabels {
		t.Fatalf("view = %s", m.CurrentView)
	}
	if !strings.Contains(m.View(), "Home") {
		t.Fatal("category not rendered")
	}
	m = press(t, m, tab)
	m = press(t, m, runes("x"))
	if len(f.rec.Store().TagsList()) != 0 {
		t.Fatalf("tag not deleted: %+v", f.rec.Store().TagsList())
	}
	if len(f.rec.Store().Categories()) != 1 {
		t.Fatal("category deleted from the wrong section")
	}

	m = command(t, m, "/category add")
	if !m.Status.IsError {
		t.Fatalf("blank category should fail: %+v", m.Status)
	}
}

func TestRemindCommandSchedulesAndDeleteCancels(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Dentist", false)
	engine := scheduler.NewEngine(4)
	t.Cleanup(engine.Stop)
	m := f.model(t, func(d *Deps) { d.Reminders = engine })
	m = load(t, m)

	m = command(t, m, "/remind "+itoa(seeded.ID)+" +30m")
	if len(m.Reminders) != 1 || !m.Reminders[0].ReminderTime.Equal(testNow.Add(30*time.Minute)) {
		t.Fatalf("unexpected reminders %+v", m.Reminders)
	}
	if engine.Pending() != 1 {
		t.Fatalf("engine pending = %d, want 1", engine.Pending())
	}

	m = press(t, m, runes("3"))
	m = press(t, m, runes("x"))
	if len(m.Reminders) != 0 {
		t.Fatalf("reminder not removed: %+v", m.Reminders)
	}
	if engine.Pending() != 0 {
		t.Fatalf("engine pending = %d after delete", engine.Pending())
	}

	m = command(t, m, "/remind 9999 +30m")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "not loaded") {
		t.Fatalf("unexpected status %+v", m.Status)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func TestReminderDueNotifiesAndMarksSent(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Stand-up", false)
	r := f.backend.SeedReminder(apitest.Reminder{TaskID: seeded.ID, UserID: f.user.ID, ReminderTime: testNow})
	notifier := &recordingNotifier{}
	m := f.model(t, func(d *Deps) {
		d.Notifier = notifier
		d.Desktop = true
	})
	m = drive(t, m, m.Init())

	next, cmd := m.Update(ReminderDueMsg{Event: scheduler.ReminderEvent{ReminderID: r.ID, TaskID: seeded.ID, TriggerAt: testNow}})
	m = drive(t, next.(Model), cmd)

	if len(m.ReminderLog) != 1 {
		t.Fatalf("reminder log = %d", len(m.ReminderLog))
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "Reminder" || notifier.sent[0].Body != "Stand-up" {
		t.Fatalf("unexpected desktop notifications %+v", notifier.sent)
	}
	if remote, _ := f.backend.Reminder(r.ID); !remote.Sent {
		t.Fatal("reminder not marked sent on backend")
	}
	if !m.Reminders[0].Sent {
		t.Fatal("reminder not marked sent locally")
	}
}

func TestInsightsLoadAndAcceptSuggestion(t *testing.T) {
	f := setup(t)
	f.seed("Water plants", true)
	f.seed("Water plants", true)
	m := f.model(t)

	m = press(t, m, runes("4"))
	if !m.InsightsLoaded || len(m.Suggestions) != 1 {
		t.Fatalf("unexpected suggestions %+v", m.Suggestions)
	}
	if m.Analysis == nil || m.Analysis.TotalTasks != 2 || m.Analysis.CompletedTasks != 2 {
		t.Fatalf("unexpected analysis %+v", m.Analysis)
	}

	m = press(t, m, enter)
	tasks := f.rec.Store().Tasks()
	if len(tasks) != 1 || tasks[0].Title != "water plants" || tasks[0].Completed {
		t.Fatalf("suggestion not created: %+v", tasks)
	}
}

func TestRecurCommandPreviewsAndSaves(t *testing.T) {
	f := setup(t)
	due := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	seeded := f.backend.SeedTask(apitest.Task{UserID: f.user.ID, Title: "Review budget", DueDate: &due})
	m := f.model(t)
	m = load(t, m)

	m = command(t, m, "/recur "+itoa(seeded.ID)+" weekly 2")
	p := m.Recurrence
	if p.TaskID != seeded.ID || len(p.Lines) != previewCount {
		t.Fatalf("unexpected preview %+v", p)
	}
	loaded, _ := f.rec.Store().Get(seeded.ID)
	first := loaded.DueDate.Local().Format("2006-01-02")
	second := loaded.DueDate.AddDate(0, 0, 14).Local().Format("2006-01-02")
	if !strings.Contains(p.Lines[0], first) || !strings.Contains(p.Lines[1], second) {
		t.Fatalf("unexpected occurrences %v, want %s then %s", p.Lines, first, second)
	}
	if !p.Saved || !strings.Contains(m.Status.Text, "every 2 weeks") {
		t.Fatalf("recurrence not saved: %+v status=%q", p, m.Status.Text)
	}
}

func TestRecurListGenerateAndRemove(t *testing.T) {
	f := setup(t)
	seeded := f.seed("Stretch", false)
	m := f.model(t)
	m = load(t, m)

	m = command(t, m, "/recur "+itoa(seeded.ID)+" daily")
	rule := m.Recurrence.RuleID
	if rule == 0 {
		t.Fatalf("rule id not recorded: %+v", m.Recurrence)
	}
	m.RecurringRules = nil
	m = command(t, m, "/recur list")
	if len(m.RecurringRules) != 1 || m.RecurringRules[0].ID != rule || m.CurrentView != ViewLabels {
		t.Fatalf("unexpected rules %+v view=%s", m.RecurringRules, m.CurrentView)
	}
	if !strings.Contains(m.View(), "#"+itoa(rule)+" task #"+itoa(seeded.ID)+" daily") {
		t.Fatal("rule not rendered")
	}

	m = command(t, m, "/recur gen "+itoa(rule)+" 2")
	if f.rec.Store().Len() != 3 || m.Status.Text != "generated 2 tasks" {
		t.Fatalf("generate: %d tasks, status %+v", f.rec.Store().Len(), m.Status)
	}
	for _, task := range f.rec.Store().Tasks() {
		if task.Title != "Stretch" {
			t.Fatalf("unexpected task %+v", task)
		}
	}

	m = command(t, m, "/recur rm "+itoa(rule))
	if len(m.RecurringRules) != 0 || m.Recurrence.TaskID != 0 {
		t.Fatalf("rule not removed locally: %+v %+v", m.RecurringRules, m.Recurrence)
	}
	if _, ok := f.backend.Recurring(rule); ok {
		t.Fatal("rule still on backend")
	}
	m = command(t, m, "/recur gen "+itoa(rule))
	if !m.Status.IsError || f.rec.Store().Len() != 3 {
		t.Fatalf("generate from removed rule: status %+v, %d tasks", m.Status, f.rec.Store().Len())
	}
}

type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[realtime.Resource][]realtime.Handler
	statuses  []realtime.StatusHandler
	status    realtime.Status
	connected int64
	sent      []realtime.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[realtime.Resource][]realtime.Handler), status: realtime.StatusDisconnected}
}

func (f *fakeTransport) Connect(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = userID
	f.status = realtime.StatusConnected
	return nil
}

func (f *fakeTransport) Disconnect() {}

func (f *fakeTransport) Status() realtime.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) subscribe(r realtime.Resource, h realtime.Handler) realtime.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[r] = append(f.handlers[r], h)
	idx := len(f.handlers[r]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[r][idx] = nil
	}
}

func (f *fakeTransport) SubscribeTasks(h realtime.Handler) realtime.Unsubscribe {
	return f.subscribe(realtime.ResourceTask, h)
}

func (f *fakeTransport) SubscribeCategories(h realtime.Handler) realtime.Unsubscribe {
	return f.subscribe(realtime.ResourceCategory, h)
}

func (f *fakeTransport) SubscribeTags(h realtime.Handler) realtime.Unsubscribe {
	return f.subscribe(realtime.ResourceTag, h)
}

func (f *fakeTransport) SubscribeStatus(h realtime.StatusHandler) realtime.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, h)
	return func() {}
}

func (f *fakeTransport) Send(_ context.Context, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != realtime.StatusConnected {
		return realtime.ErrNotConnected
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeTransport) sentEvents() []realtime.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]realtime.Event(nil), f.sent...)
}

func (f *fakeTransport) emit(ev realtime.Event) {
	f.mu.Lock()
	hs := append([]realtime.Handler(nil), f.handlers[ev.Resource()]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(ev)
		}
	}
}

func (f *fakeTransport) emitStatus(s realtime.Status) {
	f.mu.Lock()
	hs := append([]realtime.StatusHandler(nil), f.statuses...)
	f.mu.Unlock()
	for _, h := range hs {
		h(s)
	}
}

func TestRealtimeEventsReachTheStore(t *testing.T) {
	f := setup(t)
	transport := newFakeTransport()
	m := f.model(t, func(d *Deps) { d.Realtime = transport })

	m = drive(t, m, m.connectRealtimeCmd())
	if m.Conn != realtime.StatusConnected || transport.connected != f.user.ID {
		t.Fatalf("not connected: conn=%s user=%d", m.Conn, transport.connected)
	}

	transport.emit(realtime.Event{
		Type:   realtime.TaskCreate,
		UserID: f.user.ID,
		Data:   json.RawMessage(`{"id":500,"user_id":1,"title":"Pushed","completed":false,"priority":"high","created_at":"2026-02-09T10:00:00","updated_at":"2026-02-09T10:00:00","tags":[]}`),
	})
	next, _ := m.Update(m.bridge.wait()())
	m = next.(Model)
	if _, ok := f.rec.Store().Get(500); !ok {
		t.Fatal("pushed task not applied")
	}

	transport.emitStatus(realtime.StatusReconnecting)
	next, _ = m.Update(m.bridge.wait()())
	m = next.(Model)
	if m.Conn != realtime.StatusReconnecting {
		t.Fatalf("conn = %s", m.Conn)
	}

	m.Close()
	transport.emit(realtime.Event{Type: realtime.TaskDelete, Data: json.RawMessage(`{"id":500}`)})
	if msg := m.bridge.wait()(); msg != nil {
		t.Fatalf("bridge delivered after close: %#v", msg)
	}
}

func TestConfirmedMutationsAreBroadcast(t *testing.T) {
	f := setup(t)
	transport := newFakeTransport()
	m := f.model(t, func(d *Deps) { d.Realtime = transport })

	// nothing reaches the wire while disconnected
	m = command(t, m, "/add Offline task")
	if len(transport.sentEvents()) != 0 {
		t.Fatalf("sent while disconnected: %+v", transport.sentEvents())
	}
	m = drive(t, m, m.connectRealtimeCmd())

	m = command(t, m, "/add Buy milk")
	m = press(t, m, space)
	m = command(t, m, "/label add errand")
	offline := m.visibleTasks()[0]
	m = press(t, m, runes("x"))
	m = press(t, m, runes("2"))
	m = press(t, m, tab)
	m = press(t, m, runes("x"))

	f.backend.FailNextWith(http.StatusInternalServerError)
	m = command(t, m, "/add Never confirmed")

	sent := transport.sentEvents()
	want := []realtime.EventType{realtime.TaskCreate, realtime.TaskComplete, realtime.TagCreate, realtime.TaskDelete, realtime.TagDelete}
	if len(sent) != len(want) {
		t.Fatalf("sent %d events, want %d: %+v", len(sent), len(want), sent)
	}
	for i, ev := range sent {
		if ev.Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, ev.Type, want[i])
		}
		if ev.UserID != f.user.ID {
			t.Fatalf("event %d user = %d", i, ev.UserID)
		}
	}

	created, err := api.DecodeTask(sent[0].Data)
	if err != nil || created.Title != "Buy milk" {
		t.Fatalf("create payload %s: %v", sent[0].Data, err)
	}
	var done realtime.Completion
	if err := json.Unmarshal(sent[1].Data, &done); err != nil || done.ID != offline.ID || !done.Completed {
		t.Fatalf("complete payload %s: %v", sent[1].Data, err)
	}
	if id, err := sent[3].DeletedID(); err != nil || id != offline.ID {
		t.Fatalf("delete payload %s: %v", sent[3].Data, err)
	}
}

func TestUnknownCommandAndQuit(t *testing.T) {
	f := setup(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	m := f.model(t, func(d *Deps) { d.StatePath = statePath })

	m = command(t, m, "/bogus now")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unknown") {
		t.Fatalf("unexpected status %+v", m.Status)
	}

	m = press(t, m, runes("3"))
	next, cmd := m.Update(runes("q"))
	m = next.(Model)
	if !m.Quitting {
		t.Fatal("quit not recorded")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
	if !f.rec.Closed() {
		t.Fatal("reconciler not closed on quit")
	}
	st, err := loadUIState(statePath)
	if err != nil || st.View != ViewReminders {
		t.Fatalf("state not saved on quit: %+v %v", st, err)
	}
}

func TestPaletteTypingAndHelp(t *testing.T) {
	f := setup(t)
	m := f.model(t)

	next, _ := m.Update(runes("/"))
	m = next.(Model)
	for _, r := range "ad" {
		next, _ = m.Update(runes(string(r)))
		m = next.(Model)
	}
	if m.Palette.Input != "ad" {
		t.Fatalf("palette input = %q", m.Palette.Input)
	}
	if m.CurrentView != ViewTasks {
		t.Fatal("keys typed into the palette must not switch views")
	}
	m = press(t, m, esc)

	m = press(t, m, runes("?"))
	view := m.View()
	if !m.HelpVisible || !strings.Contains(view, "/remind") || !strings.Contains(view, "toggle completion") {
		t.Fatal("help panel missing command and key listing")
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
