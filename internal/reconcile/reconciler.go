// Package reconcile sequences task mutations: one backend call per user
// action, and a store mutation only once the backend has confirmed it.
//
// Each operation is built on the event loop, where it may read the store,
// and returns a Pending. The Pending does the network work and may run on
// any goroutine. Its Completion is handed back to Apply on the loop, which
// is the only place the store changes. Completions are applied in arrival
// order; two overlapping edits of the same task resolve to whichever
// response is applied last.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/logging"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/store"
)

// Remote is the subset of the backend client the reconciler drives.
type Remote interface {
	ListTasks(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error)
	SearchTasks(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error)
	CreateTask(ctx context.Context, userID int64, in model.TaskInput, tagIDs []int64) (model.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, fields map[string]any, tagIDs *[]int64) (model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) (bool, error)
	ToggleCompletion(ctx context.Context, userID, taskID int64) (model.Task, bool, error)
}

// Generator is implemented by remotes that can materialize the instances
// of a recurring rule. Instances come back as ids and are fetched one by
// one.
type Generator interface {
	GenerateInstances(ctx context.Context, userID, recurringID int64, count int) ([]int64, error)
	GetTask(ctx context.Context, userID, taskID int64) (model.Task, error)
}

type Op string

const (
	OpLoad       Op = "load"
	OpSearch     Op = "search"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpToggle     Op = "toggle"
	OpDelete     Op = "delete"
	OpAddTags    Op = "add_tags"
	OpRemoveTags Op = "remove_tags"
	OpGenerate   Op = "generate"
)

// Completion is the outcome of a Pending. Applied is false when the backend
// answered with a compatibility no-op; Dropped names the update fields the
// contract did not allow.
type Completion struct {
	Op      Op
	TaskID  int64
	Task    model.Task
	Tasks   []model.Task
	Dropped []string
	Applied bool
	Err     error
}

type Pending func(ctx context.Context) Completion

type Options struct {
	Remote   Remote
	Store    *store.Store
	Labels   Labels
	UserID   int64
	Contract UpdateContract
	Logger   *log.Logger
}

type Reconciler struct {
	remote   Remote
	store    *store.Store
	labels   Labels
	userID   int64
	contract UpdateContract
	logger   *log.Logger

	errMsg      string
	lastErr     error
	lastDropped []string
	closed      atomic.Bool
}

func New(opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Contract.Version == "" {
		opts.Contract = Contracts["v1"]
	}
	return &Reconciler{
		remote:   opts.Remote,
		store:    opts.Store,
		labels:   opts.Labels,
		userID:   opts.UserID,
		contract: opts.Contract,
		logger:   opts.Logger,
	}
}

func (r *Reconciler) Store() *store.Store { return r.store }

func (r *Reconciler) UserID() int64 { return r.userID }

func (r *Reconciler) Contract() UpdateContract { return r.contract }

func (r *Reconciler) Load(filter model.TaskFilter) Pending {
	return func(ctx context.Context) Completion {
		tasks, err := r.remote.ListTasks(ctx, r.userID, filter)
		return Completion{Op: OpLoad, Tasks: tasks, Applied: err == nil, Err: err}
	}
}

func (r *Reconciler) Search(filter model.TaskFilter) Pending {
	return func(ctx context.Context) Completion {
		tasks, err := r.remote.SearchTasks(ctx, r.userID, filter)
		return Completion{Op: OpSearch, Tasks: tasks, Applied: err == nil, Err: err}
	}
}

// Create rejects a blank title without calling the backend.
func (r *Reconciler) Create(in model.TaskInput, tagIDs []int64) Pending {
	tagIDs = append([]int64(nil), tagIDs...)
	return func(ctx context.Context) Completion {
		if strings.TrimSpace(in.Title) == "" {
			return Completion{Op: OpCreate, Err: &api.ValidationFailed{Field: model.FieldTitle, Reason: "must not be empty"}}
		}
		task, err := r.remote.CreateTask(ctx, r.userID, in, tagIDs)
		return Completion{Op: OpCreate, TaskID: task.ID, Task: task, Applied: err == nil, Err: err}
	}
}

// Update sends the fields of patch the contract allows. When every field is
// dropped no request is made and the completion carries only Dropped.
func (r *Reconciler) Update(taskID int64, patch model.TaskPatch) Pending {
	return func(ctx context.Context) Completion {
		if err := patch.Validate(); err != nil {
			field := model.FieldPriority
			if errors.Is(err, model.ErrEmptyTitle) {
				field = model.FieldTitle
			}
			return Completion{Op: OpUpdate, TaskID: taskID, Err: &api.ValidationFailed{Field: field, Reason: err.Error()}}
		}
		sent, dropped := r.contract.Narrow(patch.Values())
		if len(dropped) > 0 {
			r.logger.Warn("update fields not supported by backend contract were dropped", "task_id", taskID, "contract", r.contract.Version, "fields", dropped)
		}
		if len(sent) == 0 {
			return Completion{Op: OpUpdate, TaskID: taskID, Dropped: dropped}
		}
		task, err := r.remote.UpdateTask(ctx, r.userID, taskID, sent, nil)
		return Completion{Op: OpUpdate, TaskID: taskID, Task: task, Dropped: dropped, Applied: err == nil, Err: err}
	}
}

func (r *Reconciler) Toggle(taskID int64) Pending {
	return func(ctx context.Context) Completion {
		task, applied, err := r.remote.ToggleCompletion(ctx, r.userID, taskID)
		return Completion{Op: OpToggle, TaskID: taskID, Task: task, Applied: applied, Err: err}
	}
}

func (r *Reconciler) Delete(taskID int64) Pending {
	return func(ctx context.Context) Completion {
		applied, err := r.remote.DeleteTask(ctx, r.userID, taskID)
		return Completion{Op: OpDelete, TaskID: taskID, Applied: applied, Err: err}
	}
}

// AddTags reads the task's current tags from the store, so it must be
// called on the loop. The returned Pending replaces the tag set with the
// union.
func (r *Reconciler) AddTags(taskID int64, tagIDs []int64) Pending {
	return r.retag(OpAddTags, taskID, func(current map[int64]bool) {
		for _, id := range tagIDs {
			current[id] = true
		}
	})
}

func (r *Reconciler) RemoveTags(taskID int64, tagIDs []int64) Pending {
	return r.retag(OpRemoveTags, taskID, func(current map[int64]bool) {
		for _, id := range tagIDs {
			delete(current, id)
		}
	})
}

func (r *Reconciler) retag(op Op, taskID int64, edit func(map[int64]bool)) Pending {
	task, ok := r.store.Get(taskID)
	if !ok {
		return func(context.Context) Completion {
			return Completion{Op: op, TaskID: taskID, Err: &api.ValidationFailed{Field: "task_id", Reason: fmt.Sprintf("task %d is not loaded", taskID)}}
		}
	}
	set := make(map[int64]bool, len(task.Tags))
	for _, id := range task.TagIDs() {
		set[id] = true
	}
	edit(set)
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return func(ctx context.Context) Completion {
		updated, err := r.remote.UpdateTask(ctx, r.userID, taskID, nil, &ids)
		return Completion{Op: op, TaskID: taskID, Task: updated, Applied: err == nil, Err: err}
	}
}

// Generate materializes count instances of a recurring rule. The new tasks
// reach the store through Apply like any other confirmed change.
func (r *Reconciler) Generate(recurringID int64, count int) Pending {
	gen, ok := r.remote.(Generator)
	if !ok {
		return func(context.Context) Completion {
			return Completion{Op: OpGenerate, Err: &api.ValidationFailed{Field: "recurrence", Reason: "instance generation is not supported"}}
		}
	}
	return func(ctx context.Context) Completion {
		ids, err := gen.GenerateInstances(ctx, r.userID, recurringID, count)
		if err != nil {
			return Completion{Op: OpGenerate, Err: err}
		}
		tasks := make([]model.Task, 0, len(ids))
		for _, id := range ids {
			t, err := gen.GetTask(ctx, r.userID, id)
			if err != nil {
				return Completion{Op: OpGenerate, TaskID: id, Err: err}
			}
			tasks = append(tasks, t)
		}
		return Completion{Op: OpGenerate, Tasks: tasks, Applied: true}
	}
}

// Apply folds c into the store, or records its error. It reports whether
// the store changed. After Close it discards everything.
func (r *Reconciler) Apply(c Completion) bool {
	if r.closed.Load() {
		r.logger.Debug("discarding completion after close", "op", c.Op, "task_id", c.TaskID)
		return false
	}
	if c.Err != nil {
		r.fail(c.Op, c.TaskID, c.Err)
		return false
	}
	r.errMsg = ""
	r.lastErr = nil
	if c.Op == OpUpdate {
		r.lastDropped = c.Dropped
	}
	if !c.Applied {
		if c.Op == OpDelete || c.Op == OpToggle {
			r.logger.Info("backend treated operation as no-op", "op", c.Op, "task_id", c.TaskID)
		}
		return false
	}
	switch c.Op {
	case OpLoad, OpSearch:
		r.store.ReplaceAll(c.Tasks)
	case OpCreate, OpUpdate, OpToggle, OpAddTags, OpRemoveTags:
		r.store.Upsert(c.Task)
	case OpGenerate:
		for _, t := range c.Tasks {
			r.store.Upsert(t)
		}
	case OpDelete:
		return r.store.Remove(c.TaskID)
	default:
		return false
	}
	return true
}

// Run executes p and applies its completion. It is for callers that own
// the loop themselves, such as the CLI.
func (r *Reconciler) Run(ctx context.Context, p Pending) (Completion, bool) {
	c := p(ctx)
	return c, r.Apply(c)
}

func (r *Reconciler) fail(op Op, taskID int64, err error) {
	r.lastErr = err
	r.errMsg = userMessage(op, err)
	r.logger.Error("task operation failed", "op", op, "task_id", taskID, "err", err)
}

// ErrorMessage is the banner text for the last failure, or "".
func (r *Reconciler) ErrorMessage() string { return r.errMsg }

// Err is the last failure, for callers that need to react to its kind.
func (r *Reconciler) Err() error { return r.lastErr }

func (r *Reconciler) DismissError() {
	r.errMsg = ""
	r.lastErr = nil
}

// LastDropped names the fields the last applied update could not send.
func (r *Reconciler) LastDropped() []string {
	return append([]string(nil), r.lastDropped...)
}

// Close marks the consumer as gone. Requests already in flight are not
// cancelled; their completions are dropped by Apply.
func (r *Reconciler) Close() { r.closed.Store(true) }

func (r *Reconciler) Closed() bool { return r.closed.Load() }

var opVerbs = map[Op]string{
	OpLoad:       "load tasks",
	OpSearch:     "search tasks",
	OpCreate:     "create task",
	OpUpdate:     "update task",
	OpToggle:     "update task status",
	OpDelete:     "delete task",
	OpAddTags:    "add tags",
	OpRemoveTags: "remove tags",
	OpGenerate:   "generate tasks",
}

func userMessage(op Op, err error) string {
	verb, ok := opVerbs[op]
	if !ok {
		verb = string(op)
	}
	var vf *api.ValidationFailed
	var rf *api.RequestFailed
	switch {
	case errors.As(err, &vf):
		if vf.Field == model.FieldTitle {
			return "Task title is required"
		}
		if vf.Reason == "" {
			return fmt.Sprintf("Invalid %s", vf.Field)
		}
		return fmt.Sprintf("Invalid %s: %s", vf.Field, vf.Reason)
	case errors.Is(err, api.ErrUnauthenticated):
		return "Your session has expired. Please log in again."
	case errors.As(err, &rf):
		return fmt.Sprintf("Failed to %s: %s", verb, rf.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Failed to %s: request timed out", verb)
	default:
		return fmt.Sprintf("Failed to %s", verb)
	}
}
