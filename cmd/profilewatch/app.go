package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/profilewatch/broker"
	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/internal/browser"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/results"
	"github.com/hazyhaar/profilewatch/shield"
	"github.com/hazyhaar/profilewatch/statestore"
)

// app holds the wired scraper: browser, per-tab opener, broker and the
// optional result history.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *browser.Manager
	opener  *browser.Opener
	broker  *broker.Broker
	results *results.Store

	closers []func() error
}

// openStateStore returns the PhaseState backend named by the config. A nil
// store keeps state in each tab's sessionStorage.
func openStateStore(cfg config.StateConfig) (statestore.Store, func() error, error) {
	switch cfg.Backend {
	case "session":
		return nil, nil, nil
	case "memory":
		return statestore.NewMemory(), nil, nil
	case "sqlite":
		s, err := statestore.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		r := statestore.DialRedis(cfg.RedisAddr, cfg.TTL)
		return r, r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
}

// openResults opens the history database when a path is configured. The
// shield schema is applied alongside so the server can share the database.
func openResults(cfg config.ResultsConfig) (*results.Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	return results.Open(cfg.Path, shield.Schema)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, closeStore, err := openStateStore(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	if a.results, err = openResults(cfg.Results); err != nil {
		a.Close()
		return nil, fmt.Errorf("results: %w", err)
	}
	if a.results != nil {
		a.closers = append(a.closers, a.results.Close)
	}

	a.manager = browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Bin:              cfg.Browser.Bin,
		UserDataDir:      cfg.Browser.UserDataDir,
		Headless:         cfg.Browser.IsHeadless(),
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	})
	if _, err := a.manager.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.manager.Close)

	a.opener = browser.NewOpener(browser.OpenerConfig{
		Manager: a.manager,
		Config:  cfg,
		Store:   store,
		Logger:  logger,
	})

	opts := []broker.Option{
		broker.WithTimeout(cfg.Broker.Timeout),
		broker.WithRules(profile.Rules{Host: cfg.Broker.Host, Prefix: cfg.Broker.ProfilePrefix}),
		broker.WithLogger(logger),
	}
	if a.results != nil {
		opts = append(opts, broker.WithResultSink(a.results))
	}
	a.broker = broker.New(a.opener, opts...)
	a.opener.Bind(a.broker)
	return a, nil
}

// Close releases everything newApp opened, newest first.
func (a *app) Close() {
	if a.opener != nil {
		a.opener.CloseAll(context.Background())
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("profilewatch: close", "error", err)
		}
	}
}
