package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByDueDate   SortField = "due_date"
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "created_at"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TaskFilter narrows list and search requests. Zero values are not sent.
type TaskFilter struct {
	Query        string
	Status       Status
	CategoryID   *int64
	TagIDs       []int64
	DueDateStart *time.Time
	DueDateEnd   *time.Time
	Priority     Priority
	SortBy       SortField
	SortOrder    SortOrder
	Limit        int
	Offset       int
}

func (f TaskFilter) Validate() error {
	switch f.Status {
	case "", StatusPending, StatusCompleted:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}
	if f.Priority != "" && !f.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, f.Priority)
	}
	switch f.SortBy {
	case "", SortByTitle, SortByDueDate, SortByPriority, SortByCreatedAt:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSort, f.SortBy)
	}
	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSort, f.SortOrder)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return fmt.Errorf("model: negative pagination: limit=%d offset=%d", f.Limit, f.Offset)
	}
	return nil
}

// Matches applies the filter to a single task, ignoring Query, sort and
// pagination.
func (f TaskFilter) Matches(t Task) bool {
	switch f.Status {
	case StatusPending:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	for _, id := range f.TagIDs {
		if !t.HasTag(id) {
			return false
		}
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.DueDateStart != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueDateStart)) {
		return false
	}
	if f.DueDateEnd != nil && (t.DueDate == nil || t.DueDate.After(*f.DueDateEnd)) {
		return false
	}
	return true
}

func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority"`
	CategoryID  *int64   `json:"category_id,omitempty"`
}

type Analysis struct {
	TotalTasks              int     `json:"total_tasks"`
	CompletedTasks          int     `json:"completed_tasks"`
	PendingTasks            int     `json:"pending_tasks"`
	AvgCompletionTimeHours  float64 `json:"avg_completion_time_hours,omitempty"`
	AvgCompletionTimeSecond float64 `json:"avg_completion_time_seconds,omitempty"`
}
