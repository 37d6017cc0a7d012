package scheduler

import (
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	if err := engine.Schedule(ReminderEvent{ReminderID: 2, TaskID: 20, TriggerAt: now.Add(80 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.Schedule(ReminderEvent{ReminderID: 1, TaskID: 10, TriggerAt: now.Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitEvent(t, engine.C(), time.Second)
	second := waitEvent(t, engine.C(), time.Second)
	if first.ReminderID != 1 || second.ReminderID != 2 {
		t.Fatalf("unexpected order: first=%d second=%d", first.ReminderID, second.ReminderID)
	}
	if first.TaskID != 10 {
		t.Fatalf("task id not carried: %+v", first)
	}
}

func TestEnginePastTriggerFiresImmediately(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	if err := engine.Schedule(ReminderEvent{ReminderID: 5, TriggerAt: time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if ev := waitEvent(t, engine.C(), time.Second); ev.ReminderID != 5 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestEngineRescheduleMovesPendingReminder(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	_ = engine.Schedule(ReminderEvent{ReminderID: 1, TriggerAt: now.Add(time.Hour)})
	_ = engine.Schedule(ReminderEvent{ReminderID: 1, TriggerAt: now.Add(10 * time.Millisecond)})
	if engine.Pending() != 1 {
		t.Fatalf("expected one pending reminder, got %d", engine.Pending())
	}
	if ev := waitEvent(t, engine.C(), time.Second); ev.ReminderID != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if engine.Pending() != 0 {
		t.Fatalf("fired reminder still pending")
	}
}

func TestEngineCancel(t *testing.T) {
	engine := NewEngine(4)
	engine.Start()
	defer engine.Stop()

	now := time.Now()
	_ = engine.Schedule(ReminderEvent{ReminderID: 1, TriggerAt: now.Add(30 * time.Millisecond)})
	_ = engine.Schedule(ReminderEvent{ReminderID: 2, TriggerAt: now.Add(40 * time.Millisecond)})
	if !engine.Cancel(1) {
		t.Fatal("cancel of pending reminder reported false")
	}
	if engine.Cancel(1) {
		t.Fatal("second cancel reported true")
	}
	if ev := waitEvent(t, engine.C(), time.Second); ev.ReminderID != 2 {
		t.Fatalf("cancelled reminder fired: %+v", ev)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().Add(20 * time.Millisecond)
	for i := int64(1); i <= 25; i++ {
		if err := engine.Schedule(ReminderEvent{ReminderID: i, TriggerAt: at}); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() != 24 {
		t.Fatalf("expected 24 dropped events, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	if err := engine.Schedule(ReminderEvent{ReminderID: 1}); err != ErrInvalidTriggerTime {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}

func TestStopClosesChannelAndRejectsSchedule(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	engine.Stop()
	if _, ok := <-engine.C(); ok {
		t.Fatal("channel should be closed after Stop")
	}
	if err := engine.Schedule(ReminderEvent{ReminderID: 1, TriggerAt: time.Now()}); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}

	idle := NewEngine(1)
	idle.Stop()
	if _, ok := <-idle.C(); ok {
		t.Fatal("unstarted engine should close its channel on Stop")
	}
}

func waitEvent(t *testing.T, ch <-chan ReminderEvent, timeout time.Duration) ReminderEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
		return ReminderEvent{}
	}
}
