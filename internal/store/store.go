// Package store holds the in-memory state the UI renders: tasks in arrival
// order plus the category and tag collections they join against.
//
// A Store is not safe for concurrent use. It is owned by the event loop and
// mutated only after the backend has confirmed a change.
package store

import (
	"sort"
	"strings"

	"github.com/sandeepkv93/tasksync/internal/model"
)

type Store struct {
	tasks      []model.Task
	index      map[int64]int
	categories []model.Category
	tags       []model.Tag

	// set once the label collections have been loaded; until then task
	// references are kept as the server sent them
	categoriesLoaded bool
	tagsLoaded       bool
}

func New() *Store {
	return &Store{index: make(map[int64]int)}
}

// ReplaceAll swaps the task list for tasks. Later duplicates of an id
// overwrite earlier ones in place.
func (s *Store) ReplaceAll(tasks []model.Task) {
	s.tasks = make([]model.Task, 0, len(tasks))
	s.index = make(map[int64]int, len(tasks))
	for _, t := range tasks {
		s.Upsert(t)
	}
}

// Upsert stores the full record, replacing any existing task with the same
// id in its current position or appending it. Once labels are loaded,
// references to categories or tags the store does not hold are dropped.
func (s *Store) Upsert(t model.Task) {
	t = t.Clone()
	s.resolveLabels(&t)
	if i, ok := s.index[t.ID]; ok {
		s.tasks[i] = t
		return
	}
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
}

func (s *Store) resolveLabels(t *model.Task) {
	if s.categoriesLoaded && t.CategoryID != nil {
		if c, ok := s.Category(*t.CategoryID); ok {
			t.Category = &c
		} else {
			t.CategoryID = nil
			t.Category = nil
		}
	}
	if s.tagsLoaded && len(t.Tags) > 0 {
		kept := make([]model.Tag, 0, len(t.Tags))
		for _, tag := range t.Tags {
			if fresh, ok := s.Tag(tag.ID); ok {
				kept = append(kept, fresh)
			}
		}
		t.Tags = kept
	}
}

// Remove reports whether a task was removed.
func (s *Store) Remove(id int64) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].ID] = j
	}
	return true
}

func (s *Store) PatchCompletion(id int64, completed bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.tasks[i].Completed = completed
	return true
}

func (s *Store) Get(id int64) (model.Task, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

func (s *Store) Len() int { return len(s.tasks) }

// Tasks returns a copy in store order.
func (s *Store) Tasks() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

func (s *Store) Categories() []model.Category {
	return append([]model.Category(nil), s.categories...)
}

func (s *Store) TagsList() []model.Tag {
	return append([]model.Tag(nil), s.tags...)
}

func (s *Store) Category(id int64) (model.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

func (s *Store) Tag(id int64) (model.Tag, bool) {
	for _, t := range s.tags {
		if t.ID == id {
			return t, true
		}
	}
	return model.Tag{}, false
}

// ReplaceCategories loads a user's categories. Tasks pointing at an id that
// is not in the new set are detached.
func (s *Store) ReplaceCategories(cats []model.Category) {
	s.categories = append([]model.Category(nil), cats...)
	s.categoriesLoaded = true
	known := make(map[int64]model.Category, len(cats))
	for _, c := range cats {
		known[c.ID] = c
	}
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.CategoryID == nil {
			continue
		}
		if c, ok := known[*t.CategoryID]; ok {
			cp := c
			t.Category = &cp
			continue
		}
		t.CategoryID = nil
		t.Category = nil
	}
}

func (s *Store) UpsertCategory(c model.Category) {
	replaced := false
	for i := range s.categories {
		if s.categories[i].ID == c.ID {
			s.categories[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.categories = append(s.categories, c)
	}
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.CategoryID != nil && *t.CategoryID == c.ID {
			cp := c
			t.Category = &cp
		}
	}
}

// RemoveCategory drops the category and clears it from every task that
// referenced it. It returns the ids of the detached tasks.
func (s *Store) RemoveCategory(id int64) []int64 {
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			break
		}
	}
	var detached []int64
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			t.Category = nil
			detached = append(detached, t.ID)
		}
	}
	return detached
}

// ReplaceTags loads a user's tags and drops task references to ids outside
// the new set.
func (s *Store) ReplaceTags(tags []model.Tag) {
	s.tags = append([]model.Tag(nil), tags...)
	s.tagsLoaded = true
	known := make(map[int64]model.Tag, len(tags))
	for _, t := range tags {
		known[t.ID] = t
	}
	for i := range s.tasks {
		t := &s.tasks[i]
		kept := t.Tags[:0:0]
		for _, tag := range t.Tags {
			if fresh, ok := known[tag.ID]; ok {
				kept = append(kept, fresh)
			}
		}
		t.Tags = kept
	}
}

func (s *Store) UpsertTag(tag model.Tag) {
	replaced := false
	for i := range s.tags {
		if s.tags[i].ID == tag.ID {
			s.tags[i] = tag
			replaced = true
			break
		}
	}
	if !replaced {
		s.tags = append(s.tags, tag)
	}
	for i := range s.tasks {
		for j := range s.tasks[i].Tags {
			if s.tasks[i].Tags[j].ID == tag.ID {
				s.tasks[i].Tags[j] = tag
			}
		}
	}
}

// RemoveTag drops the tag and strips it from every task. It returns the ids
// of the tasks that lost it.
func (s *Store) RemoveTag(id int64) []int64 {
	for i := range s.tags {
		if s.tags[i].ID == id {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			break
		}
	}
	var detached []int64
	for i := range s.tasks {
		t := &s.tasks[i]
		if !t.HasTag(id) {
			continue
		}
		kept := make([]model.Tag, 0, len(t.Tags)-1)
		for _, tag := range t.Tags {
			if tag.ID != id {
				kept = append(kept, tag)
			}
		}
		t.Tags = kept
		detached = append(detached, t.ID)
	}
	return detached
}

// Visible applies filter locally: matching, free-text query, sort and
// pagination. Without a sort field the store order is kept.
func (s *Store) Visible(filter model.TaskFilter) []model.Task {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !filter.Matches(t) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), query) {
			continue
		}
		out = append(out, t.Clone())
	}
	if filter.SortBy != "" {
		less := lessFunc(filter.SortBy)
		sort.SliceStable(out, func(i, j int) bool {
			if filter.SortOrder == model.SortDesc {
				return less(out[j], out[i])
			}
			return less(out[i], out[j])
		})
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []model.Task{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func lessFunc(field model.SortField) func(a, b model.Task) bool {
	switch field {
	case model.SortByTitle:
		return func(a, b model.Task) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case model.SortByPriority:
		return func(a, b model.Task) bool { return model.PriorityRank(a.Priority) < model.PriorityRank(b.Priority) }
	case model.SortByDueDate:
		// tasks without a due date sort last
		return func(a, b model.Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		}
	default:
		return func(a, b model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}
