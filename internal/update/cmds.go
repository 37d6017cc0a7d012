package update

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
	"github.com/sandeepkv93/tasksync/internal/scheduler"
)

// bridge moves transport callbacks onto the event loop. Handlers run on the
// transport's goroutine and must not block, so a full buffer drops the
// message.
type bridge struct {
	ch     chan tea.Msg
	done   chan struct{}
	once   sync.Once
	unsubs []realtime.Unsubscribe
}

func newBridge(t realtime.Transport, size int) *bridge {
	b := &bridge{ch: make(chan tea.Msg, size), done: make(chan struct{})}
	onEvent := func(ev realtime.Event) { b.push(realtimeEventMsg{Event: ev}) }
	b.unsubs = []realtime.Unsubscribe{
		t.SubscribeTasks(onEvent),
		t.SubscribeCategories(onEvent),
		t.SubscribeTags(onEvent),
		t.SubscribeStatus(func(s realtime.Status) { b.push(realtimeStatusMsg{Status: s}) }),
	}
	return b
}

func (b *bridge) push(msg tea.Msg) {
	select {
	case <-b.done:
	case b.ch <- msg:
	default:
	}
}

func (b *bridge) close() {
	b.once.Do(func() {
		for _, u := range b.unsubs {
			u()
		}
		close(b.done)
	})
}

func (b *bridge) wait() tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

func waitForReminderCmd(ch <-chan scheduler.ReminderEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Event: ev}
	}
}

// pending turns p into a command. The completion comes back to Update as a
// completionMsg and is applied there.
func (m Model) pending(p reconcile.Pending, draft string) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return completionMsg{completion: p(ctx), draft: draft}
	}
}

// start is pending plus in-flight accounting. The spinner is restarted when
// the loop was idle.
func (m *Model) start(p reconcile.Pending, draft string) tea.Cmd {
	m.inflight++
	cmd := m.pending(p, draft)
	if m.inflight == 1 {
		return tea.Batch(cmd, m.syncSpinner.Tick)
	}
	return cmd
}

func (m Model) labelContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

// call runs fn off the loop with the model's timeout.
func (m Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m Model) connectRealtimeCmd() tea.Cmd {
	if m.transport == nil || m.rec == nil {
		return nil
	}
	t, userID := m.transport, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		if err := t.Connect(ctx, userID); err != nil {
			return realtimeConnectedMsg{Status: realtime.StatusDisconnected, Err: err}
		}
		return realtimeConnectedMsg{Status: t.Status()}
	})
}

func (m Model) loadRemindersCmd() tea.Cmd {
	if m.backend == nil || m.rec == nil {
		return nil
	}
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		items, err := b.ListReminders(ctx, userID)
		return remindersLoadedMsg{items: items, err: err}
	})
}

func (m Model) createReminderCmd(taskID int64, at time.Time) tea.Cmd {
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		r, err := b.CreateReminder(ctx, userID, taskID, at)
		return reminderCreatedMsg{reminder: r, err: err}
	})
}

func (m Model) deleteReminderCmd(id int64) tea.Cmd {
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		return reminderDeletedMsg{id: id, err: b.DeleteReminder(ctx, userID, id)}
	})
}

func (m Model) markSentCmd(id int64) tea.Cmd {
	if m.backend == nil || m.rec == nil {
		return nil
	}
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		return reminderSentMsg{id: id, err: b.MarkReminderSent(ctx, userID, id)}
	})
}

func (m Model) loadInsightsCmd() tea.Cmd {
	if m.backend == nil || m.rec == nil {
		return nil
	}
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		suggestions, err := b.Suggestions(ctx, userID, 5)
		if err != nil {
			return insightsMsg{err: err}
		}
		analysis, err := b.Analysis(ctx, userID)
		if err != nil {
			return insightsMsg{suggestions: suggestions, err: err}
		}
		return insightsMsg{suggestions: suggestions, analysis: &analysis}
	})
}

func (m Model) createRecurringCmd(in model.RecurringTask) tea.Cmd {
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		r, err := b.CreateRecurring(ctx, userID, in)
		return recurringMsg{recurring: r, err: err}
	})
}

func (m Model) listRecurringCmd() tea.Cmd {
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		items, err := b.ListRecurring(ctx, userID)
		return recurringListMsg{items: items, err: err}
	})
}

func (m Model) deleteRecurringCmd(id int64) tea.Cmd {
	b, userID := m.backend, m.rec.UserID()
	return m.call(func(ctx context.Context) tea.Msg {
		return recurringDeletedMsg{id: id, err: b.DeleteRecurring(ctx, userID, id)}
	})
}

// failure renders a backend error for the status bar.
func failure(action string, err error) string {
	var rf *api.RequestFailed
	var vf *api.ValidationFailed
	switch {
	case errors.Is(err, api.ErrUnauthenticated):
		return "Your session has expired. Please log in again."
	case errors.As(err, &rf):
		return "Failed to " + action + ": " + rf.Message
	case errors.As(err, &vf):
		if vf.Reason == "" {
			return "Invalid " + vf.Field
		}
		return "Invalid " + vf.Field + ": " + vf.Reason
	default:
		return "Failed to " + action + ": " + err.Error()
	}
}
