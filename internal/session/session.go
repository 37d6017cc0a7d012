// Package session ties authentication to the per-user keyed store. A
// Session exists between a successful login (or resume) and logout; the
// category and tag collections it hands out stop working when it ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/logging"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
)

var (
	ErrEnded       = errors.New("session: ended")
	ErrForeignUser = errors.New("session: labels belong to another user")
)

type Auth interface {
	Login(ctx context.Context, creds model.Credentials) (model.Token, error)
	Register(ctx context.Context, reg model.Registration) (model.User, error)
	Me(ctx context.Context) (model.User, error)
}

type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Evict(ctx context.Context) error
}

type Manager struct {
	auth   Auth
	tokens TokenStore
	labels reconcile.Labels
	logger *log.Logger
}

func NewManager(auth Auth, tokens TokenStore, labels reconcile.Labels, logger *log.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{auth: auth, tokens: tokens, labels: labels, logger: logger}
}

// Login stores the issued token and resolves the user it belongs to.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (*Session, error) {
	tok, err := m.auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := m.tokens.Save(ctx, tok.AccessToken); err != nil {
		return nil, fmt.Errorf("session: store token: %w", err)
	}
	return m.Resume(ctx)
}

// Register creates the account and logs straight in with it.
func (m *Manager) Register(ctx context.Context, reg model.Registration) (*Session, error) {
	if _, err := m.auth.Register(ctx, reg); err != nil {
		return nil, err
	}
	return m.Login(ctx, model.Credentials{Email: reg.Email, Password: reg.Password})
}

// Resume starts a session from the stored token. A missing or rejected
// token fails with api.ErrUnauthenticated, and a rejected one is evicted.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, api.ErrUnauthenticated
	}
	user, err := m.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			m.logger.Warn("stored token rejected; evicting")
			if evictErr := m.tokens.Evict(ctx); evictErr != nil {
				m.logger.Error("evict token", "err", evictErr)
			}
		}
		return nil, err
	}
	m.logger.Info("session started", "user_id", user.ID)
	return &Session{User: user, labels: m.labels}, nil
}

// Logout evicts the token and ends s. The keyed collections are left on
// disk for the next session of the same user.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s != nil {
		s.End()
	}
	return m.tokens.Evict(ctx)
}

// Purger is implemented by label stores that can drop a user's collections.
type Purger interface {
	Purge(ctx context.Context, userID int64) error
}

// Forget is Logout plus removal of the user's keyed collections.
func (m *Manager) Forget(ctx context.Context, s *Session) error {
	if s == nil {
		return errors.New("session: forget needs a session")
	}
	if err := m.Logout(ctx, s); err != nil {
		return err
	}
	p, ok := m.labels.(Purger)
	if !ok {
		return nil
	}
	if err := p.Purge(ctx, s.User.ID); err != nil {
		return fmt.Errorf("session: purge labels: %w", err)
	}
	m.logger.Info("local labels purged", "user_id", s.User.ID)
	return nil
}

type Session struct {
	User model.User

	labels reconcile.Labels

	mu          sync.Mutex
	ended       bool
	reconcilers []*reconcile.Reconciler
}

// Labels returns the user's keyed collections, valid until End.
func (s *Session) Labels() reconcile.Labels {
	return &scopedLabels{session: s}
}

// Reconciler builds a reconciler bound to this session's user and labels.
// Ending the session closes it.
func (s *Session) Reconciler(opts reconcile.Options) *reconcile.Reconciler {
	opts.UserID = s.User.ID
	if s.labels != nil {
		opts.Labels = s.Labels()
	}
	r := reconcile.New(opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		r.Close()
		return r
	}
	s.reconcilers = append(s.reconcilers, r)
	return r
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	for _, r := range s.reconcilers {
		r.Close()
	}
	s.reconcilers = nil
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) check(userID int64) error {
	if s.Ended() {
		return ErrEnded
	}
	if s.labels == nil {
		return errors.New("session: no label store configured")
	}
	if userID != s.User.ID {
		return fmt.Errorf("%w: %d", ErrForeignUser, userID)
	}
	return nil
}

type scopedLabels struct {
	session *Session
}

func (l *scopedLabels) Categories(ctx context.Context, userID int64) ([]model.Category, error) {
	if err := l.session.check(userID); err != nil {
		return nil, err
	}
	return l.session.labels.Categories(ctx, userID)
}

func (l *scopedLabels) SaveCategory(ctx context.Context, userID int64, in model.Category) (model.Category, error) {
	if err := l.session.check(userID); err != nil {
		return model.Category{}, err
	}
	return l.session.labels.SaveCategory(ctx, userID, in)
}

func (l *scopedLabels) DeleteCategory(ctx context.Context, userID, id int64) error {
	if err := l.session.check(userID); err != nil {
		return err
	}
	return l.session.labels.DeleteCategory(ctx, userID, id)
}

func (l *scopedLabels) Tags(ctx context.Context, userID int64) ([]model.Tag, error) {
	if err := l.session.check(userID); err != nil {
		return nil, err
	}
	return l.session.labels.Tags(ctx, userID)
}

func (l *scopedLabels) SaveTag(ctx context.Context, userID int64, in model.Tag) (model.Tag, error) {
	if err := l.session.check(userID); err != nil {
		return model.Tag{}, err
	}
	return l.session.labels.SaveTag(ctx, userID, in)
}

func (l *scopedLabels) DeleteTag(ctx context.Context, userID, id int64) error {
	if err := l.session.check(userID); err != nil {
		return err
	}
	return l.session.labels.DeleteTag(ctx, userID, id)
}
