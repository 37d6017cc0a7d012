package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/storage"
)

// Labels is the keyed per-user store for categories and tags. The backend
// has no endpoints for them, so unlike tasks these calls are local and run
// on the loop.
type Labels interface {
	Categories(ctx context.Context, userID int64) ([]model.Category, error)
	SaveCategory(ctx context.Context, userID int64, in model.Category) (model.Category, error)
	DeleteCategory(ctx context.Context, userID, id int64) error
	Tags(ctx context.Context, userID int64) ([]model.Tag, error)
	SaveTag(ctx context.Context, userID int64, in model.Tag) (model.Tag, error)
	DeleteTag(ctx context.Context, userID, id int64) error
}

var errNoLabels = errors.New("reconcile: no label store for this session")

// LoadLabels reads the user's categories and tags into the store.
func (r *Reconciler) LoadLabels(ctx context.Context) bool {
	if r.labels == nil {
		return r.labelFail("load labels", errNoLabels)
	}
	cats, err := r.labels.Categories(ctx, r.userID)
	if err != nil {
		return r.labelFail("load categories", err)
	}
	tags, err := r.labels.Tags(ctx, r.userID)
	if err != nil {
		return r.labelFail("load tags", err)
	}
	r.store.ReplaceCategories(cats)
	r.store.ReplaceTags(tags)
	return true
}

func (r *Reconciler) SaveCategory(ctx context.Context, c model.Category) (model.Category, bool) {
	if strings.TrimSpace(c.Name) == "" {
		r.labelFail("save category", &api.ValidationFailed{Field: "name", Reason: "must not be empty"})
		return model.Category{}, false
	}
	if r.labels == nil {
		r.labelFail("save category", errNoLabels)
		return model.Category{}, false
	}
	saved, err := r.labels.SaveCategory(ctx, r.userID, c)
	if err != nil {
		r.labelFail("save category", err)
		return model.Category{}, false
	}
	r.store.UpsertCategory(saved)
	r.errMsg = ""
	return saved, true
}

// DeleteCategory removes the category and detaches it from cached tasks in
// the same step.
func (r *Reconciler) DeleteCategory(ctx context.Context, id int64) bool {
	if r.labels == nil {
		return r.labelFail("delete category", errNoLabels)
	}
	if err := r.labels.DeleteCategory(ctx, r.userID, id); err != nil {
		return r.labelFail("delete category", err)
	}
	detached := r.store.RemoveCategory(id)
	r.logger.Debug("category deleted", "category_id", id, "detached_tasks", len(detached))
	r.errMsg = ""
	return true
}

func (r *Reconciler) SaveTag(ctx context.Context, t model.Tag) (model.Tag, bool) {
	if strings.TrimSpace(t.Name) == "" {
		r.labelFail("save tag", &api.ValidationFailed{Field: "name", Reason: "must not be empty"})
		return model.Tag{}, false
	}
	if r.labels == nil {
		r.labelFail("save tag", errNoLabels)
		return model.Tag{}, false
	}
	saved, err := r.labels.SaveTag(ctx, r.userID, t)
	if err != nil {
		r.labelFail("save tag", err)
		return model.Tag{}, false
	}
	r.store.UpsertTag(saved)
	r.errMsg = ""
	return saved, true
}

func (r *Reconciler) DeleteTag(ctx context.Context, id int64) bool {
	if r.labels == nil {
		return r.labelFail("delete tag", errNoLabels)
	}
	if err := r.labels.DeleteTag(ctx, r.userID, id); err != nil {
		return r.labelFail("delete tag", err)
	}
	detached := r.store.RemoveTag(id)
	r.logger.Debug("tag deleted", "tag_id", id, "detached_tasks", len(detached))
	r.errMsg = ""
	return true
}

func (r *Reconciler) labelFail(action string, err error) bool {
	r.lastErr = err
	var vf *api.ValidationFailed
	switch {
	case errors.As(err, &vf):
		r.errMsg = fmt.Sprintf("Invalid %s: %s", vf.Field, vf.Reason)
	case errors.Is(err, storage.ErrNotFound):
		r.errMsg = fmt.Sprintf("Failed to %s: not found", action)
	default:
		r.errMsg = fmt.Sprintf("Failed to %s", action)
	}
	r.logger.Error("label operation failed", "action", action, "err", err)
	return false
}

// ApplyEvent folds a pushed change into the store. Category and tag events
// only touch the in-memory view; the keyed store stays this client's own.
// Events for other resources are ignored.
func (r *Reconciler) ApplyEvent(ev realtime.Event) bool {
	if r.closed.Load() {
		return false
	}
	if ev.UserID != 0 && ev.UserID != r.userID {
		r.logger.Debug("ignoring event for another user", "type", ev.Type, "user_id", ev.UserID)
		return false
	}
	var err error
	changed := false
	switch ev.Resource() {
	case realtime.ResourceTask:
		changed, err = r.applyTaskEvent(ev)
	case realtime.ResourceCategory:
		changed, err = r.applyCategoryEvent(ev)
	case realtime.ResourceTag:
		changed, err = r.applyTagEvent(ev)
	default:
		return false
	}
	if err != nil {
		r.logger.Warn("push event not applied", "type", ev.Type, "err", err)
		return false
	}
	return changed
}

func (r *Reconciler) applyTaskEvent(ev realtime.Event) (bool, error) {
	switch ev.Action() {
	case "delete":
		id, err := ev.DeletedID()
		if err != nil {
			return false, err
		}
		return r.store.Remove(id), nil
	case "complete":
		// carries only the id and the new flag
		var body realtime.Completion
		if err := json.Unmarshal(ev.Data, &body); err != nil {
			return false, fmt.Errorf("%w: %v", realtime.ErrInvalidEvent, err)
		}
		if body.ID == 0 {
			return false, fmt.Errorf("%w: completion without id", realtime.ErrInvalidEvent)
		}
		return r.store.PatchCompletion(body.ID, body.Completed), nil
	}
	task, err := api.DecodeTask(ev.Data)
	if err != nil {
		return false, err
	}
	if task.ID == 0 {
		return false, fmt.Errorf("%w: task without id", realtime.ErrInvalidEvent)
	}
	r.store.Upsert(task)
	return true, nil
}

func (r *Reconciler) applyCategoryEvent(ev realtime.Event) (bool, error) {
	if ev.Action() == "delete" {
		id, err := ev.DeletedID()
		if err != nil {
			return false, err
		}
		r.store.RemoveCategory(id)
		return true, nil
	}
	c, err := api.DecodeCategory(ev.Data)
	if err != nil {
		return false, err
	}
	r.store.UpsertCategory(c)
	return true, nil
}

func (r *Reconciler) applyTagEvent(ev realtime.Event) (bool, error) {
	if ev.Action() == "delete" {
		id, err := ev.DeletedID()
		if err != nil {
			return false, err
		}
		r.store.RemoveTag(id)
		return true, nil
	}
	t, err := api.DecodeTag(ev.Data)
	if err != nil {
		return false, err
	}
	r.store.UpsertTag(t)
	return true, nil
}
