package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sandeepkv93/tasksync/internal/logging"
)

type WebSocketOptions struct {
	// URL is the endpoint base; the user id is appended as a path segment.
	URL                  string
	Tokens               TokenSource
	MaxReconnectAttempts int
	ReconnectInterval    time.Duration
	Dialer               *websocket.Dialer
	Logger               *log.Logger
}

// WebSocket keeps one persistent connection per session. When the
// connection drops it retries up to MaxReconnectAttempts times, one
// ReconnectInterval apart, before settling in StatusDisconnected.
type WebSocket struct {
	opts WebSocketOptions
	hub  *hub

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	status  Status
	userID  int64
	stop    chan struct{}
	done    chan struct{}
}

func NewWebSocket(opts WebSocketOptions) (*WebSocket, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New("realtime: websocket url is required")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("realtime: websocket url: %w", err)
	}
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 5 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &WebSocket{opts: opts, hub: newHub(), status: StatusDisconnected}, nil
}

// Connect dials synchronously. An existing connection is closed first.
func (w *WebSocket) Connect(ctx context.Context, userID int64) error {
	w.Disconnect()

	conn, err := w.dial(ctx, userID)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.conn = conn
	w.userID = userID
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stop, w.done
	w.mu.Unlock()

	w.setStatus(StatusConnected)
	w.opts.Logger.Info("realtime connected", "user_id", userID)
	go w.run(conn, userID, stop, done)
	return nil
}

func (w *WebSocket) dial(ctx context.Context, userID int64) (*websocket.Conn, error) {
	header := http.Header{}
	if w.opts.Tokens != nil {
		token, err := w.opts.Tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	endpoint := strings.TrimRight(w.opts.URL, "/") + "/" + strconv.FormatInt(userID, 10)
	conn, resp, err := w.opts.Dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("realtime: dial %s: %w", endpoint, err)
	}
	return conn, nil
}

func (w *WebSocket) run(conn *websocket.Conn, userID int64, stop, done chan struct{}) {
	defer close(done)
	for {
		w.read(conn)
		select {
		case <-stop:
			return
		default:
		}

		w.setStatus(StatusReconnecting)
		next, ok := w.reconnect(userID, stop)
		if !ok {
			w.mu.Lock()
			if w.conn == conn {
				w.conn = nil
			}
			w.mu.Unlock()
			w.setStatus(StatusDisconnected)
			return
		}
		w.mu.Lock()
		if w.stop != stop {
			// Disconnect ran while we were dialing.
			w.mu.Unlock()
			next.Close()
			return
		}
		w.conn = next
		w.mu.Unlock()
		conn = next
		w.setStatus(StatusConnected)
	}
}

func (w *WebSocket) read(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			w.opts.Logger.Debug("realtime read ended", "err", err)
			return
		}
		ev, err := DecodeEvent(raw)
		if err != nil {
			w.opts.Logger.Warn("realtime event rejected", "err", err)
			continue
		}
		if n := w.hub.publish(ev); n == 0 {
			w.opts.Logger.Debug("realtime event without subscribers", "type", ev.Type)
		}
	}
}

func (w *WebSocket) reconnect(userID int64, stop chan struct{}) (*websocket.Conn, bool) {
	for attempt := 1; attempt <= w.opts.MaxReconnectAttempts; attempt++ {
		select {
		case <-stop:
			return nil, false
		case <-time.After(w.opts.ReconnectInterval):
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.ReconnectInterval)
		conn, err := w.dial(ctx, userID)
		cancel()
		if err == nil {
			w.opts.Logger.Info("realtime reconnected", "attempt", attempt)
			return conn, true
		}
		w.opts.Logger.Warn("realtime reconnect failed", "attempt", attempt, "max", w.opts.MaxReconnectAttempts, "err", err)
	}
	return nil, false
}

// Disconnect closes the connection and stops reconnecting. It blocks until
// the reader goroutine has exited.
func (w *WebSocket) Disconnect() {
	w.mu.Lock()
	conn, stop, done := w.conn, w.stop, w.done
	w.conn, w.stop, w.done = nil, nil, nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	if conn != nil {
		w.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		w.writeMu.Unlock()
		conn.Close()
	}
	<-done
	w.setStatus(StatusDisconnected)
}

func (w *WebSocket) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *WebSocket) setStatus(s Status) {
	w.mu.Lock()
	changed := w.status != s
	w.status = s
	w.mu.Unlock()
	if changed {
		w.hub.publishStatus(s)
	}
}

func (w *WebSocket) SubscribeTasks(h Handler) Unsubscribe { return w.hub.subscribe(ResourceTask, h) }

func (w *WebSocket) SubscribeCategories(h Handler) Unsubscribe {
	return w.hub.subscribe(ResourceCategory, h)
}

func (w *WebSocket) SubscribeTags(h Handler) Unsubscribe { return w.hub.subscribe(ResourceTag, h) }

func (w *WebSocket) SubscribeStatus(h StatusHandler) Unsubscribe { return w.hub.subscribeStatus(h) }

// Send publishes a collaboration event to other sessions. Missing ids,
// timestamps and user ids are filled in.
func (w *WebSocket) Send(ctx context.Context, ev Event) error {
	w.mu.Lock()
	conn, userID, status := w.conn, w.userID, w.status
	w.mu.Unlock()
	if conn == nil || status != StatusConnected {
		return ErrNotConnected
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.UserID == 0 {
		ev.UserID = userID
	}
	if len(ev.Data) == 0 {
		ev.Data = json.RawMessage(`{}`)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	if err := conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("realtime: send %s: %w", ev.Type, err)
	}
	return nil
}
