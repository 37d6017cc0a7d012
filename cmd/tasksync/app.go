package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sandeepkv93/tasksync/internal/api"
	"github.com/sandeepkv93/tasksync/internal/config"
	"github.com/sandeepkv93/tasksync/internal/logging"
	"github.com/sandeepkv93/tasksync/internal/reconcile"
	"github.com/sandeepkv93/tasksync/internal/session"
	"github.com/sandeepkv93/tasksync/internal/storage"
)

// app holds what every subcommand shares: config, logger, the keyed store
// and an API client that reads its token from that store.
type app struct {
	cfg     config.Config
	logger  *log.Logger
	logFile io.Closer
	repo    *storage.SQLiteRepository
	tokens  *storage.TokenStore
	labels  *storage.Collections
	client  *api.Client
	manager *session.Manager
}

// openApp loads configuration and opens the store. toFile sends logs to the
// configured file instead of stderr, which the TUI needs.
func openApp(flags globalFlags, toFile bool) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{Path: flags.configPath, EnvFile: flags.envFile})
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.apiURL != "" {
		cfg.API.BaseURL = flags.apiURL
	}

	a := &app{cfg: cfg}
	var out io.Writer = os.Stderr
	if toFile && cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}
	opts := logging.DefaultOptions()
	opts.Level = logging.ParseLevel(cfg.Log.Level)
	opts.Formatter = logging.ParseFormatter(cfg.Log.Format)
	a.logger = logging.New(out, opts)

	repo, err := storage.OpenSQLite(cfg.Store.Path)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	a.repo = repo
	a.tokens = storage.NewTokenStore(repo)
	a.labels = storage.NewCollections(repo)
	a.client = api.New(cfg.API.BaseURL,
		api.WithTokenSource(a.tokens),
		api.WithTimeout(cfg.API.Timeout.Duration),
		api.WithRevision(api.Revision(cfg.API.BackendRevision)),
		api.WithLogger(a.logger.WithPrefix("api")),
	)
	a.manager = session.NewManager(a.client, a.tokens, a.labels, a.logger.WithPrefix("session"))
	return a, nil
}

func (a *app) close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("closing store", "err", err)
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// resume starts a session from the stored token with a friendlier error
// when there is none.
func (a *app) resume(ctx context.Context) (*session.Session, error) {
	s, err := a.manager.Resume(ctx)
	if errors.Is(err, api.ErrUnauthenticated) {
		return nil, errors.New("not logged in; run `tasksync login --email <address>` first")
	}
	return s, err
}

func (a *app) reconciler(s *session.Session) (*reconcile.Reconciler, error) {
	contract, err := reconcile.ContractFor(a.cfg.Update.Contract)
	if err != nil {
		return nil, err
	}
	return s.Reconciler(reconcile.Options{
		Remote:   a.client,
		Contract: contract,
		Logger:   a.logger.WithPrefix("reconcile"),
	}), nil
}

func (a *app) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.cfg.API.Timeout.Duration)
}

func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("TASKSYNC_PASSWORD"); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
