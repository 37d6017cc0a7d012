package update

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
)

// outgoing queues a collaboration event for other sessions of the same
// user. Update flushes the queue after every message.
func (m *Model) outgoing(t realtime.EventType, data any) {
	if m.transport == nil || m.rec == nil {
		return
	}
	ev, err := realtime.NewEvent(t, m.rec.UserID(), data)
	if err != nil {
		m.logger.Warn("encoding collaboration event failed", "type", t, "err", err)
		return
	}
	m.outbox = append(m.outbox, ev)
}

// announce queues the event matching a confirmed task mutation.
func (m *Model) announce(c reconcile.Completion) {
	if c.Err != nil || !c.Applied {
		return
	}
	switch c.Op {
	case reconcile.OpCreate:
		m.outgoing(realtime.TaskCreate, c.Task)
	case reconcile.OpUpdate, reconcile.OpAddTags, reconcile.OpRemoveTags:
		m.outgoing(realtime.TaskUpdate, c.Task)
	case reconcile.OpToggle:
		m.outgoing(realtime.TaskComplete, realtime.Completion{ID: c.Task.ID, Completed: c.Task.Completed})
	case reconcile.OpDelete:
		m.outgoing(realtime.TaskDelete, realtime.Ref{ID: c.TaskID})
	case reconcile.OpGenerate:
		for _, t := range c.Tasks {
			m.outgoing(realtime.TaskCreate, t)
		}
	}
}

func (m *Model) flushOutbox() tea.Cmd {
	if len(m.outbox) == 0 {
		return nil
	}
	events := m.outbox
	m.outbox = nil
	t, logger := m.transport, m.logger
	return m.call(func(ctx context.Context) tea.Msg {
		for _, ev := range events {
			err := t.Send(ctx, ev)
			switch {
			case err == nil:
			case errors.Is(err, realtime.ErrNotConnected):
				logger.Debug("collaboration event not sent", "type", ev.Type, "err", err)
			default:
				logger.Warn("sending collaboration event failed", "type", ev.Type, "err", err)
			}
		}
		return nil
	})
}
