package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

func (c *Client) ListTasks(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	return c.listTasks(ctx, userPath(userID, "tasks"), filter, false)
}

// SearchTasks runs a free-text query plus the usual filters and sort.
func (c *Client) SearchTasks(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	return c.listTasks(ctx, userPath(userID, "tasks", "search"), filter, true)
}

func (c *Client) listTasks(ctx context.Context, path string, filter model.TaskFilter, search bool) ([]model.Task, error) {
	if err := filter.Validate(); err != nil {
		return nil, &ValidationFailed{Field: "filter", Reason: err.Error()}
	}
	var wire []wireTask
	if err := c.do(ctx, request{method: http.MethodGet, path: path, query: filterQuery(filter, search)}, &wire); err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, userID, taskID int64) (model.Task, error) {
	var wire wireTask
	err := c.do(ctx, request{method: http.MethodGet, path: userPath(userID, "tasks", strconv.FormatInt(taskID, 10))}, &wire)
	if err != nil {
		return model.Task{}, err
	}
	return wire.model(), nil
}

func (c *Client) CreateTask(ctx context.Context, userID int64, in model.TaskInput, tagIDs []int64) (model.Task, error) {
	if err := in.Validate(); err != nil {
		if errors.Is(err, model.ErrEmptyTitle) {
			return model.Task{}, &ValidationFailed{Field: model.FieldTitle, Reason: "must not be empty"}
		}
		return model.Task{}, &ValidationFailed{Field: model.FieldPriority, Reason: err.Error()}
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	var query url.Values
	if len(tagIDs) > 0 {
		query = url.Values{"tag_ids": {joinIDs(tagIDs)}}
	}
	req, err := c.jsonRequest(http.MethodPost, userPath(userID, "tasks"), query, in)
	if err != nil {
		return model.Task{}, err
	}
	var wire wireTask
	if err := c.do(ctx, req, &wire); err != nil {
		return model.Task{}, err
	}
	return wire.model(), nil
}

// UpdateTask sends fields verbatim. Narrowing to what the backend accepts is
// the caller's job. A non-nil tagIDs replaces the task's tag set.
func (c *Client) UpdateTask(ctx context.Context, userID, taskID int64, fields map[string]any, tagIDs *[]int64) (model.Task, error) {
	var query url.Values
	if tagIDs != nil {
		query = url.Values{"tag_ids": {joinIDs(*tagIDs)}}
	}
	if fields == nil {
		fields = map[string]any{}
	}
	req, err := c.jsonRequest(http.MethodPut, userPath(userID, "tasks", strconv.FormatInt(taskID, 10)), query, fields)
	if err != nil {
		return model.Task{}, err
	}
	var wire wireTask
	if err := c.do(ctx, req, &wire); err != nil {
		return model.Task{}, err
	}
	return wire.model(), nil
}

// DeleteTask reports applied=false when the backend answers 404 or 422. That
// outcome is a success: older revisions reject deletes they cannot serve.
func (c *Client) DeleteTask(ctx context.Context, userID, taskID int64) (bool, error) {
	err := c.do(ctx, request{method: http.MethodDelete, path: userPath(userID, "tasks", strconv.FormatInt(taskID, 10))}, nil)
	if err == nil {
		return true, nil
	}
	if status := StatusOf(err); isUnsupported(status) {
		c.logger.Warn("delete treated as no-op", "task_id", taskID, "status", status)
		return false, nil
	}
	return false, err
}

// ToggleCompletion flips the completion flag server-side. It shares the
// 404/422 no-op shim with DeleteTask; applied=false carries no task.
func (c *Client) ToggleCompletion(ctx context.Context, userID, taskID int64) (model.Task, bool, error) {
	var wire wireTask
	err := c.do(ctx, request{method: http.MethodPatch, path: userPath(userID, "tasks", strconv.FormatInt(taskID, 10), "complete")}, &wire)
	if err == nil {
		return wire.model(), true, nil
	}
	if status := StatusOf(err); isUnsupported(status) {
		c.logger.Warn("toggle treated as no-op", "task_id", taskID, "status", status)
		return model.Task{}, false, nil
	}
	return model.Task{}, false, err
}

func filterQuery(f model.TaskFilter, search bool) url.Values {
	q := url.Values{}
	if search && strings.TrimSpace(f.Query) != "" {
		q.Set("query", strings.TrimSpace(f.Query))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.CategoryID != nil {
		q.Set("category_id", strconv.FormatInt(*f.CategoryID, 10))
	}
	for _, id := range f.TagIDs {
		q.Add("tag_ids", strconv.FormatInt(id, 10))
	}
	if f.DueDateStart != nil {
		q.Set("due_date_start", f.DueDateStart.UTC().Format(time.RFC3339))
	}
	if f.DueDateEnd != nil {
		q.Set("due_date_end", f.DueDateEnd.UTC().Format(time.RFC3339))
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	if f.SortBy != "" {
		q.Set("sort_by", string(f.SortBy))
	}
	if f.SortOrder != "" {
		q.Set("sort_order", string(f.SortOrder))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
