package storage

import (
	"context"
	"errors"
	"strings"
)

const TokenKey = "authToken"

// TokenStore keeps the bearer token between runs.
type TokenStore struct {
	repo Repository
}

func NewTokenStore(repo Repository) *TokenStore {
	return &TokenStore{repo: repo}
}

// Token returns the stored token, or an empty string when none is stored.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	entry, err := s.repo.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(entry.Value)), nil
}

func (s *TokenStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("storage: empty token")
	}
	return s.repo.Put(ctx, TokenKey, []byte(token))
}

func (s *TokenStore) Evict(ctx context.Context) error {
	if err := s.repo.Delete(ctx, TokenKey); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
