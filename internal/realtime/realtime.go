// Package realtime is the push channel for server-originated changes. A
// Transport multiplexes typed events to subscribers; which implementation
// runs is decided once, from configuration, by New.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/config"
	"github.com/sandeepkv93/tasksync/internal/logging"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrInvalidEvent = errors.New("realtime: invalid event")
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
)

type EventType string

const (
	TaskCreate     EventType = "task_create"
	TaskUpdate     EventType = "task_update"
	TaskDelete     EventType = "task_delete"
	TaskComplete   EventType = "task_complete"
	CategoryCreate EventType = "category_create"
	CategoryUpdate EventType = "category_update"
	CategoryDelete EventType = "category_delete"
	TagCreate      EventType = "tag_create"
	TagUpdate      EventType = "tag_update"
	TagDelete      EventType = "tag_delete"

	// CollaborationTaskUpdate is what other clients send; it is delivered as
	// TaskUpdate.
	CollaborationTaskUpdate EventType = "collaboration_task_update"
)

// Resource is the entity family an event belongs to.
type Resource string

const (
	ResourceTask      Resource = "task"
	ResourceCategory  Resource = "category"
	ResourceTag       Resource = "tag"
	ResourceReminder  Resource = "reminder"
	ResourceRecurring Resource = "recurring_task"
)

// Event is the envelope exchanged on the wire. Data holds the entity as the
// backend serializes it, or {"id": n} for deletes.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	UserID    int64           `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e Event) Resource() Resource {
	t := string(e.Type)
	if t == string(CollaborationTaskUpdate) {
		return ResourceTask
	}
	// recurring_task_* has an underscore in the resource itself
	if strings.HasPrefix(t, string(ResourceRecurring)+"_") {
		return ResourceRecurring
	}
	if i := strings.IndexByte(t, '_'); i > 0 {
		return Resource(t[:i])
	}
	return ""
}

// Action is the suffix of the event type: create, update, delete or
// complete.
func (e Event) Action() string {
	if e.Type == CollaborationTaskUpdate {
		return "update"
	}
	t := strings.TrimPrefix(string(e.Type), string(e.Resource())+"_")
	return t
}

// DeletedID extracts the id from a delete payload.
func (e Event) DeletedID() (int64, error) {
	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(e.Data, &body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if body.ID == 0 {
		return 0, fmt.Errorf("%w: delete without id", ErrInvalidEvent)
	}
	return body.ID, nil
}

// NewEvent builds an outgoing event for userID with data encoded as the
// payload. The transport fills in the id and timestamp when sending.
func NewEvent(t EventType, userID int64, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("realtime: encode %s: %w", t, err)
	}
	return Event{Type: t, UserID: userID, Data: raw}, nil
}

// Completion is the payload of a task_complete event.
type Completion struct {
	ID        int64 `json:"id"`
	Completed bool  `json:"completed"`
}

// Ref is the payload of a delete event.
type Ref struct {
	ID int64 `json:"id"`
}

type Handler func(Event)

type StatusHandler func(Status)

// Unsubscribe removes a handler. Calling it more than once is harmless.
type Unsubscribe func()

// Transport delivers push events. Handlers run on the transport's goroutine
// and must not block.
type Transport interface {
	Connect(ctx context.Context, userID int64) error
	Disconnect()
	Status() Status
	SubscribeTasks(h Handler) Unsubscribe
	SubscribeCategories(h Handler) Unsubscribe
	SubscribeTags(h Handler) Unsubscribe
	SubscribeStatus(h StatusHandler) Unsubscribe
	Send(ctx context.Context, ev Event) error
}

// TokenSource supplies the bearer token presented when dialing.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// New returns the transport selected by cfg.Mode.
func New(cfg config.RealtimeConfig, tokens TokenSource, logger *log.Logger) (Transport, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	switch cfg.Mode {
	case "", config.RealtimeNoop:
		return NewNoop(logger), nil
	case config.RealtimeWebSocket:
		return NewWebSocket(WebSocketOptions{
			URL:                  cfg.URL,
			Tokens:               tokens,
			MaxReconnectAttempts: cfg.MaxReconnectAttempts,
			ReconnectInterval:    cfg.ReconnectInterval.Duration,
			Logger:               logger,
		})
	default:
		return nil, fmt.Errorf("%w realtime.mode: %q", config.ErrInvalid, cfg.Mode)
	}
}
