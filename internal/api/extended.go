package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

// Endpoints below exist only on the phase3 backend. On phase2 they return
// empty results without a request.

func (c *Client) extended(feature string) bool {
	if c.revision == RevisionPhase2 {
		c.logger.Warn("endpoint not supported by backend revision", "feature", feature, "revision", c.revision)
		return false
	}
	return true
}

func (c *Client) ListReminders(ctx context.Context, userID int64) ([]model.Reminder, error) {
	if !c.extended("reminders") {
		return []model.Reminder{}, nil
	}
	return c.reminders(ctx, request{method: http.MethodGet, path: userPath(userID, "reminders")})
}

func (c *Client) UpcomingReminders(ctx context.Context, userID int64, limit int) ([]model.Reminder, error) {
	if !c.extended("reminders") {
		return []model.Reminder{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return c.reminders(ctx, request{
		method: http.MethodGet,
		path:   userPath(userID, "reminders", "upcoming"),
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
	})
}

func (c *Client) reminders(ctx context.Context, r request) ([]model.Reminder, error) {
	var wire []wireReminder
	if err := c.do(ctx, r, &wire); err != nil {
		return nil, err
	}
	out := make([]model.Reminder, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) CreateReminder(ctx context.Context, userID, taskID int64, at time.Time) (model.Reminder, error) {
	r := model.Reminder{TaskID: taskID, ReminderTime: at}
	if err := r.Validate(); err != nil {
		return model.Reminder{}, &ValidationFailed{Field: "reminder", Reason: err.Error()}
	}
	if !c.extended("reminders") {
		return model.Reminder{}, &ValidationFailed{Field: "reminder", Reason: "not supported by backend revision"}
	}
	req, err := c.jsonRequest(http.MethodPost, userPath(userID, "reminders"), nil, map[string]any{
		"task_id":       taskID,
		"reminder_time": at.UTC().Format(time.RFC3339),
		"sent":          false,
	})
	if err != nil {
		return model.Reminder{}, err
	}
	var wire wireReminder
	if err := c.do(ctx, req, &wire); err != nil {
		return model.Reminder{}, err
	}
	return wire.model(), nil
}

func (c *Client) DeleteReminder(ctx context.Context, userID, reminderID int64) error {
	if !c.extended("reminders") {
		return nil
	}
	return c.do(ctx, request{method: http.MethodDelete, path: userPath(userID, "reminders", strconv.FormatInt(reminderID, 10))}, nil)
}

func (c *Client) MarkReminderSent(ctx context.Context, userID, reminderID int64) error {
	if !c.extended("reminders") {
		return nil
	}
	return c.do(ctx, request{method: http.MethodPost, path: userPath(userID, "reminders", strconv.FormatInt(reminderID, 10), "mark-sent")}, nil)
}

func (c *Client) ListRecurring(ctx context.Context, userID int64) ([]model.RecurringTask, error) {
	if !c.extended("recurring") {
		return []model.RecurringTask{}, nil
	}
	var wire []wireRecurring
	if err := c.do(ctx, request{method: http.MethodGet, path: userPath(userID, "recurring")}, &wire); err != nil {
		return nil, err
	}
	out := make([]model.RecurringTask, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.model())
	}
	return out, nil
}

func (c *Client) CreateRecurring(ctx context.Context, userID int64, in model.RecurringTask) (model.RecurringTask, error) {
	if err := in.Validate(); err != nil {
		return model.RecurringTask{}, &ValidationFailed{Field: "recurrence", Reason: err.Error()}
	}
	if in.OriginalTaskID <= 0 {
		return model.RecurringTask{}, &ValidationFailed{Field: "original_task_id", Reason: "required"}
	}
	if !c.extended("recurring") {
		return model.RecurringTask{}, &ValidationFailed{Field: "recurrence", Reason: "not supported by backend revision"}
	}
	body := map[string]any{
		"original_task_id":   in.OriginalTaskID,
		"recurrence_pattern": in.Pattern,
		"interval":           in.Interval,
	}
	if in.EndDate != nil {
		body["end_date"] = in.EndDate.UTC().Format(time.RFC3339)
	}
	req, err := c.jsonRequest(http.MethodPost, userPath(userID, "recurring"), nil, body)
	if err != nil {
		return model.RecurringTask{}, err
	}
	var wire wireRecurring
	if err := c.do(ctx, req, &wire); err != nil {
		return model.RecurringTask{}, err
	}
	return wire.model(), nil
}

func (c *Client) DeleteRecurring(ctx context.Context, userID, recurringID int64) error {
	if !c.extended("recurring") {
		return nil
	}
	return c.do(ctx, request{method: http.MethodDelete, path: userPath(userID, "recurring", strconv.FormatInt(recurringID, 10))}, nil)
}

// GenerateInstances asks the backend to materialize the next count tasks of
// a recurring pattern and returns their ids. The backend answers with
// {"instances": [...]} or a bare list, holding ids or full tasks.
func (c *Client) GenerateInstances(ctx context.Context, userID, recurringID int64, count int) ([]int64, error) {
	if !c.extended("recurring") {
		return []int64{}, nil
	}
	if count <= 0 {
		count = 10
	}
	raw := json.RawMessage{}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   userPath(userID, "recurring", strconv.FormatInt(recurringID, 10), "generate-instances"),
		query:  url.Values{"count": {strconv.Itoa(count)}},
	}, &raw)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		var body struct {
			Instances []json.RawMessage `json:"instances"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, fmt.Errorf("api: decode generated instances: %w", err)
		}
		items = body.Instances
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		var id int64
		if json.Unmarshal(item, &id) != nil {
			var w wireTask
			if err := json.Unmarshal(item, &w); err != nil {
				return nil, fmt.Errorf("api: decode generated instance: %w", err)
			}
			id = w.ID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) Suggestions(ctx context.Context, userID int64, limit int) ([]model.Suggestion, error) {
	if !c.extended("suggestions") {
		return []model.Suggestion{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var wire []wireTask
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   userPath(userID, "tasks", "suggest"),
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}, &wire)
	if err != nil {
		return nil, err
	}
	out := make([]model.Suggestion, 0, len(wire))
	for _, w := range wire {
		t := w.model()
		out = append(out, model.Suggestion{Title: t.Title, Description: t.Description, Priority: t.Priority, CategoryID: t.CategoryID})
	}
	return out, nil
}

func (c *Client) Analysis(ctx context.Context, userID int64) (model.Analysis, error) {
	if !c.extended("analysis") {
		return model.Analysis{}, nil
	}
	var out model.Analysis
	if err := c.do(ctx, request{method: http.MethodGet, path: userPath(userID, "analysis")}, &out); err != nil {
		return model.Analysis{}, err
	}
	return out, nil
}
