package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/scheduler"
	"github.com/sandeepkv93/tasksync/internal/update"
)

func runTUI(ctx context.Context, flags globalFlags) error {
	a, err := openApp(flags, true)
	if err != nil {
		return err
	}
	defer a.close()

	resumeCtx, cancel := a.context(ctx)
	s, err := a.resume(resumeCtx)
	cancel()
	if err != nil {
		return err
	}
	defer s.End()

	rec, err := a.reconciler(s)
	if err != nil {
		return err
	}

	transport, err := realtime.New(a.cfg.Realtime, a.tokens, a.logger.WithPrefix("realtime"))
	if err != nil {
		return err
	}
	defer transport.Disconnect()

	engine := scheduler.NewEngine(a.cfg.Reminders.Buffer)
	poller, err := scheduler.NewPoller(scheduler.PollerOptions{
		Source:    a.client,
		Engine:    engine,
		UserID:    s.User.ID,
		Interval:  a.cfg.Reminders.PollInterval.Duration,
		Lookahead: a.cfg.Reminders.Lookahead,
		Timeout:   a.cfg.API.Timeout.Duration,
		Logger:    a.logger.WithPrefix("reminders"),
	})
	if err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()
	poller.Start()
	defer poller.Stop()

	m := update.NewModel(update.Deps{
		Reconciler: rec,
		Backend:    a.client,
		Realtime:   transport,
		Reminders:  engine,
		Poller:     poller,
		Notifier:   update.ExecDesktopNotifier{},
		Desktop:    a.cfg.Reminders.Desktop,
		StatePath:  a.cfg.UI.StatePath,
		Timeout:    a.cfg.API.Timeout.Duration,
		Logger:     a.logger.WithPrefix("ui"),
	})
	defer m.Close()

	a.logger.Info("starting ui", "user_id", s.User.ID, "api", a.cfg.API.BaseURL, "realtime", a.cfg.Realtime.Mode)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
