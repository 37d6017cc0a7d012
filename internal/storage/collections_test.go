package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/tasksync/internal/model"
)

func setupCollections(t *testing.T) (*Collections, *time.Time) {
	t.Helper()
	clock := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	c := NewCollections(setupRepo(t))
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCollectionKeys(t *testing.T) {
	if CategoriesKey(42) != "categories_42" || TagsKey(42) != "tags_42" {
		t.Fatalf("unexpected keys: %s %s", CategoriesKey(42), TagsKey(42))
	}
}

func TestCategoryLifecycle(t *testing.T) {
	c, clock := setupCollections(t)
	ctx := context.Background()

	empty, err := c.Categories(ctx, 1)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty collection, got %v err=%v", empty, err)
	}

	work, err := c.SaveCategory(ctx, 1, model.Category{Name: " work ", Color: "#3366ff"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	home, err := c.SaveCategory(ctx, 1, model.Category{Name: "home"})
	if err != nil {
		t.Fatalf("create second category: %v", err)
	}
	if work.ID == 0 || work.ID == home.ID {
		t.Fatalf("expected distinct ids, got %d and %d", work.ID, home.ID)
	}
	if work.Name != "work" || work.UserID != 1 {
		t.Fatalf("unexpected stored category: %+v", work)
	}

	*clock = clock.Add(time.Hour)
	work.Name = "office"
	updated, err := c.SaveCategory(ctx, 1, work)
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("expected updated_at to advance: %+v", updated)
	}

	other, err := c.Categories(ctx, 2)
	if err != nil || len(other) != 0 {
		t.Fatalf("collections must be scoped per user, got %v", other)
	}

	if err := c.DeleteCategory(ctx, 1, home.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	rest, err := c.Categories(ctx, 1)
	if err != nil || len(rest) != 1 || rest[0].Name != "office" {
		t.Fatalf("unexpected categories after delete: %+v err=%v", rest, err)
	}
	if err := c.DeleteCategory(ctx, 1, home.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSaveMissingTagFails(t *testing.T) {
	c, _ := setupCollections(t)
	_, err := c.SaveTag(context.Background(), 1, model.Tag{ID: 99, Name: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTagLifecycleAndPurge(t *testing.T) {
	c, _ := setupCollections(t)
	ctx := context.Background()

	if _, err := c.SaveTag(ctx, 3, model.Tag{Name: ""}); !errors.Is(err, model.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	a, err := c.SaveTag(ctx, 3, model.Tag{Name: "urgent"})
	if err != nil {
		t.Fatalf("save tag: %v", err)
	}
	b, err := c.SaveTag(ctx, 3, model.Tag{Name: "errand"})
	if err != nil {
		t.Fatalf("save tag: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("tags created in the same millisecond must not collide: %d", a.ID)
	}

	if err := c.Purge(ctx, 3); err != nil {
		t.Fatalf("purge: %v", err)
	}
	tags, err := c.Tags(ctx, 3)
	if err != nil || len(tags) != 0 {
		t.Fatalf("expected no tags after purge, got %v err=%v", tags, err)
	}
	if err := c.Purge(ctx, 3); err != nil {
		t.Fatalf("purge of empty user should succeed: %v", err)
	}
}

func TestTokenStore(t *testing.T) {
	s := NewTokenStore(setupRepo(t))
	ctx := context.Background()

	tok, err := s.Token(ctx)
	if err != nil || tok != "" {
		t.Fatalf("expected empty token, got %q err=%v", tok, err)
	}
	if err := s.Save(ctx, "jwt-123"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	tok, err = s.Token(ctx)
	if err != nil || tok != "jwt-123" {
		t.Fatalf("unexpected token %q err=%v", tok, err)
	}
	if err := s.Evict(ctx); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if err := s.Evict(ctx); err != nil {
		t.Fatalf("second evict should be a no-op: %v", err)
	}
	if tok, _ := s.Token(ctx); tok != "" {
		t.Fatalf("expected token evicted, got %q", tok)
	}
}
