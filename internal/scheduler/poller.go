package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"github.com/sandeepkv93/tasksync/internal/logging"
	"github.com/sandeepkv93/tasksync/internal/model"
)

// ReminderSource is satisfied by *api.Client.
type ReminderSource interface {
	UpcomingReminders(ctx context.Context, userID int64, limit int) ([]model.Reminder, error)
}

type PollerOptions struct {
	Source    ReminderSource
	Engine    *Engine
	UserID    int64
	Interval  time.Duration
	Lookahead int
	Timeout   time.Duration
	Logger    *log.Logger
}

// Poller periodically fetches upcoming reminders and hands each unsent one
// to the engine exactly once.
type Poller struct {
	source    ReminderSource
	engine    *Engine
	userID    int64
	lookahead int
	timeout   time.Duration
	logger    *log.Logger
	cron      *cron.Cron

	mu        sync.Mutex
	scheduled map[int64]struct{}
}

func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Source == nil || opts.Engine == nil {
		return nil, errors.New("scheduler: poller needs a source and an engine")
	}
	if opts.Interval < time.Second {
		return nil, fmt.Errorf("scheduler: poll interval %s is below one second", opts.Interval)
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	p := &Poller{
		source:    opts.Source,
		engine:    opts.Engine,
		userID:    opts.UserID,
		lookahead: opts.Lookahead,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		cron:      cron.New(cron.WithSeconds()),
		scheduled: make(map[int64]struct{}),
	}
	spec := fmt.Sprintf("@every %ds", int(opts.Interval.Seconds()))
	if _, err := p.cron.AddFunc(spec, p.tick); err != nil {
		return nil, fmt.Errorf("scheduler: register poll job: %w", err)
	}
	return p, nil
}

// Start polls once immediately, then on every interval.
func (p *Poller) Start() {
	go p.tick()
	p.cron.Start()
}

func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if _, err := p.Poll(ctx); err != nil {
		p.logger.Warn("reminder poll failed", "user_id", p.userID, "err", err)
	}
}

// Poll fetches once and returns how many reminders were newly scheduled.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	reminders, err := p.source.UpcomingReminders(ctx, p.userID, p.lookahead)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, r := range reminders {
		if r.Sent || r.ReminderTime.IsZero() {
			continue
		}
		if _, ok := p.scheduled[r.ID]; ok {
			continue
		}
		err := p.engine.Schedule(ReminderEvent{ReminderID: r.ID, TaskID: r.TaskID, TriggerAt: r.ReminderTime})
		if err != nil {
			return added, err
		}
		p.scheduled[r.ID] = struct{}{}
		added++
	}
	if added > 0 {
		p.logger.Debug("reminders scheduled", "count", added, "pending", p.engine.Pending())
	}
	return added, nil
}

// Forget lets a reminder be scheduled again, e.g. after it was deleted and
// recreated, or cancels it if it is still pending.
func (p *Poller) Forget(reminderID int64) {
	p.mu.Lock()
	delete(p.scheduled, reminderID)
	p.mu.Unlock()
	p.engine.Cancel(reminderID)
}
