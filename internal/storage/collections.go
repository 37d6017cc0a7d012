package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

func CategoriesKey(userID int64) string { return fmt.Sprintf("categories_%d", userID) }

func TagsKey(userID int64) string { return fmt.Sprintf("tags_%d", userID) }

// Collections persists the per-user category and tag lists. The backend has
// no endpoints for them, so this store is their source of truth.
type Collections struct {
	repo Repository
	now  func() time.Time
}

func NewCollections(repo Repository) *Collections {
	return &Collections{repo: repo, now: time.Now}
}

func (c *Collections) Categories(ctx context.Context, userID int64) ([]model.Category, error) {
	var out []model.Category
	if err := c.load(ctx, CategoriesKey(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveCategory creates the category when its ID is zero and replaces it
// otherwise.
func (c *Collections) SaveCategory(ctx context.Context, userID int64, in model.Category) (model.Category, error) {
	if err := in.Validate(); err != nil {
		return model.Category{}, err
	}
	items, err := c.Categories(ctx, userID)
	if err != nil {
		return model.Category{}, err
	}
	now := c.now().UTC()
	in.UserID = userID
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == 0 {
		in.ID = c.nextID(now, func(id int64) bool {
			for _, item := range items {
				if item.ID == id {
					return true
				}
			}
			return false
		})
		in.CreatedAt = now
		in.UpdatedAt = now
		items = append(items, in)
	} else {
		idx := -1
		for i := range items {
			if items[i].ID == in.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.Category{}, fmt.Errorf("%w: category %d", ErrNotFound, in.ID)
		}
		in.CreatedAt = items[idx].CreatedAt
		in.UpdatedAt = now
		items[idx] = in
	}
	if err := c.store(ctx, CategoriesKey(userID), items); err != nil {
		return model.Category{}, err
	}
	return in, nil
}

func (c *Collections) DeleteCategory(ctx context.Context, userID, id int64) error {
	items, err := c.Categories(ctx, userID)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("%w: category %d", ErrNotFound, id)
	}
	return c.store(ctx, CategoriesKey(userID), kept)
}

func (c *Collections) Tags(ctx context.Context, userID int64) ([]model.Tag, error) {
	var out []model.Tag
	if err := c.load(ctx, TagsKey(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collections) SaveTag(ctx context.Context, userID int64, in model.Tag) (model.Tag, error) {
	if err := in.Validate(); err != nil {
		return model.Tag{}, err
	}
	items, err := c.Tags(ctx, userID)
	if err != nil {
		return model.Tag{}, err
	}
	now := c.now().UTC()
	in.UserID = userID
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == 0 {
		in.ID = c.nextID(now, func(id int64) bool {
			for _, item := range items {
				if item.ID == id {
					return true
				}
			}
			return false
		})
		in.CreatedAt = now
		in.UpdatedAt = now
		items = append(items, in)
	} else {
		idx := -1
		for i := range items {
			if items[i].ID == in.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.Tag{}, fmt.Errorf("%w: tag %d", ErrNotFound, in.ID)
		}
		in.CreatedAt = items[idx].CreatedAt
		in.UpdatedAt = now
		items[idx] = in
	}
	if err := c.store(ctx, TagsKey(userID), items); err != nil {
		return model.Tag{}, err
	}
	return in, nil
}

func (c *Collections) DeleteTag(ctx context.Context, userID, id int64) error {
	items, err := c.Tags(ctx, userID)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return fmt.Errorf("%w: tag %d", ErrNotFound, id)
	}
	return c.store(ctx, TagsKey(userID), kept)
}

// Purge drops both collections for a user.
func (c *Collections) Purge(ctx context.Context, userID int64) error {
	for _, key := range []string{CategoriesKey(userID), TagsKey(userID)} {
		if err := c.repo.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func (c *Collections) nextID(now time.Time, taken func(int64) bool) int64 {
	id := now.UnixMilli()
	for taken(id) {
		id++
	}
	return id
}

func (c *Collections) load(ctx context.Context, key string, dst any) error {
	entry, err := c.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if len(entry.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Collections) store(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.repo.Put(ctx, key, payload)
}
