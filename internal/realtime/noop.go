package realtime

import (
	"context"

	"github.com/charmbracelet/log"
)

// Noop is the transport for backends without push support. It stays
// disconnected, never delivers events, and still hands out working
// unsubscribe functions.
type Noop struct {
	logger *log.Logger
}

func NewNoop(logger *log.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Connect(_ context.Context, userID int64) error {
	n.logger.Debug("realtime disabled; staying disconnected", "user_id", userID)
	return nil
}

func (n *Noop) Disconnect() {}

func (n *Noop) Status() Status { return StatusDisconnected }

func (n *Noop) SubscribeTasks(Handler) Unsubscribe      { return func() {} }
func (n *Noop) SubscribeCategories(Handler) Unsubscribe { return func() {} }
func (n *Noop) SubscribeTags(Handler) Unsubscribe       { return func() {} }

func (n *Noop) SubscribeStatus(StatusHandler) Unsubscribe { return func() {} }

func (n *Noop) Send(_ context.Context, ev Event) error {
	n.logger.Debug("realtime disabled; dropping outgoing event", "type", ev.Type)
	return nil
}
