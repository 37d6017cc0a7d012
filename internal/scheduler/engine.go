package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrStopped            = errors.New("scheduler: engine stopped")
)

// ReminderEvent is emitted on C() once TriggerAt has passed.
type ReminderEvent struct {
	ReminderID int64
	TaskID     int64
	TriggerAt  time.Time
}

type entry struct {
	event ReminderEvent
	index int
}

// timeline is a min-heap on TriggerAt; ties keep reminder id order.
type timeline []*entry

func (q timeline) Len() int { return len(q) }

func (q timeline) Less(i, j int) bool {
	a, b := q[i].event, q[j].event
	if a.TriggerAt.Equal(b.TriggerAt) {
		return a.ReminderID < b.ReminderID
	}
	return a.TriggerAt.Before(b.TriggerAt)
}

func (q timeline) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timeline) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *timeline) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Engine fires reminders at their trigger time. Delivery never blocks: when
// the consumer lags and the buffer is full the event is counted as dropped.
type Engine struct {
	mu      sync.Mutex
	queue   timeline
	byID    map[int64]*entry
	out     chan ReminderEvent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
	now     func() time.Time
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		byID:   make(map[int64]*entry),
		out:    make(chan ReminderEvent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (e *Engine) C() <-chan ReminderEvent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	go e.loop()
}

// Stop halts the loop and closes C. Pending reminders are discarded.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started := e.started
	close(e.stopCh)
	e.mu.Unlock()
	if started {
		<-e.doneCh
		return
	}
	close(e.out)
}

// Schedule queues ev. Scheduling an id that is already pending moves it to
// the new trigger time.
func (e *Engine) Schedule(ev ReminderEvent) error {
	if ev.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}

	if existing, ok := e.byID[ev.ReminderID]; ok {
		existing.event = ev
		heap.Fix(&e.queue, existing.index)
	} else {
		item := &entry{event: ev}
		heap.Push(&e.queue, item)
		e.byID[ev.ReminderID] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel removes a pending reminder. It reports whether one was removed.
func (e *Engine) Cancel(reminderID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byID[reminderID]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byID, reminderID)
	e.signalWakeup()
	return true
}

func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, ok := e.peek()
		if !ok {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		timer = resetTimer(timer, max(next.TriggerAt.Sub(e.now()), 0))
		select {
		case <-timer.C:
			for _, ev := range e.popDue(e.now()) {
				select {
				case e.out <- ev:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (ReminderEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return ReminderEvent{}, false
	}
	return e.queue[0].event, true
}

func (e *Engine) popDue(now time.Time) []ReminderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var due []ReminderEvent
	for len(e.queue) > 0 && !e.queue[0].event.TriggerAt.After(now) {
		item := heap.Pop(&e.queue).(*entry)
		delete(e.byID, item.event.ReminderID)
		due = append(due, item.event)
	}
	return due
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
