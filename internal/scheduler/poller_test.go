package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

type fakeSource struct {
	mu        sync.Mutex
	reminders []model.Reminder
	err       error
	calls     int
	polled    chan struct{}
}

func (f *fakeSource) UpcomingReminders(_ context.Context, userID int64, limit int) ([]model.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.polled != nil {
		select {
		case f.polled <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Reminder(nil), f.reminders...), nil
}

func TestPollSchedulesUnsentRemindersOnce(t *testing.T) {
	far := time.Now().Add(time.Hour)
	src := &fakeSource{reminders: []model.Reminder{
		{ID: 1, TaskID: 10, ReminderTime: far},
		{ID: 2, TaskID: 11, ReminderTime: far, Sent: true},
		{ID: 3, TaskID: 12},
		{ID: 4, TaskID: 13, ReminderTime: far.Add(time.Minute)},
	}}
	engine := NewEngine(4)
	poller, err := NewPoller(PollerOptions{Source: src, Engine: engine, UserID: 7, Interval: time.Minute})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}

	added, err := poller.Poll(context.Background())
	if err != nil || added != 2 {
		t.Fatalf("first poll: added=%d err=%v", added, err)
	}
	added, err = poller.Poll(context.Background())
	if err != nil || added != 0 {
		t.Fatalf("second poll should add nothing: added=%d err=%v", added, err)
	}
	if engine.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", engine.Pending())
	}

	poller.Forget(1)
	if engine.Pending() != 1 {
		t.Fatalf("forget should cancel the pending reminder, pending=%d", engine.Pending())
	}
	if added, _ := poller.Poll(context.Background()); added != 1 {
		t.Fatalf("forgotten reminder should be scheduled again, added=%d", added)
	}
}

func TestPollFiresThroughEngine(t *testing.T) {
	src := &fakeSource{reminders: []model.Reminder{{ID: 9, TaskID: 90, ReminderTime: time.Now().Add(20 * time.Millisecond)}}}
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()
	poller, err := NewPoller(PollerOptions{Source: src, Engine: engine, Interval: time.Minute})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if _, err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if ev := waitEvent(t, engine.C(), time.Second); ev.ReminderID != 9 || ev.TaskID != 90 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestPollPropagatesSourceError(t *testing.T) {
	boom := errors.New("backend down")
	poller, err := NewPoller(PollerOptions{Source: &fakeSource{err: boom}, Engine: NewEngine(1), Interval: time.Minute})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if _, err := poller.Poll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestNewPollerValidates(t *testing.T) {
	if _, err := NewPoller(PollerOptions{Engine: NewEngine(1), Interval: time.Minute}); err == nil {
		t.Fatal("expected error without source")
	}
	if _, err := NewPoller(PollerOptions{Source: &fakeSource{}, Engine: NewEngine(1), Interval: 10 * time.Millisecond}); err == nil {
		t.Fatal("expected error for sub-second interval")
	}
}

func TestStartPollsImmediately(t *testing.T) {
	src := &fakeSource{polled: make(chan struct{}, 1)}
	poller, err := NewPoller(PollerOptions{Source: src, Engine: NewEngine(1), Interval: time.Hour})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	poller.Start()
	defer poller.Stop()
	select {
	case <-src.polled:
	case <-time.After(time.Second):
		t.Fatal("start did not poll")
	}
}
