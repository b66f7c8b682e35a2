// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Shared wiring for every ecosort command.
//
// App builds the collaborators in dependency order: storage, gateway,
// backend client, session store (which restores the saved session and
// installs its token on the gateway), transcript, reveal engine and
// orchestrator.

package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/config"
	"github.com/ecosort/ecosort-tui/internal/gateway"
	"github.com/ecosort/ecosort-tui/internal/logging"
	"github.com/ecosort/ecosort-tui/internal/orchestrator"
	"github.com/ecosort/ecosort-tui/internal/reveal"
	"github.com/ecosort/ecosort-tui/internal/session"
	"github.com/ecosort/ecosort-tui/internal/storage"
	"github.com/ecosort/ecosort-tui/internal/transcript"
)

// AppOptions adjusts how an App is built.
type AppOptions struct {
	// Instant disables the typing effect.
	Instant bool

	// Gateway overrides the gateway built from config. Tests use it.
	Gateway *gateway.Client
}

// App holds the wired collaborators for one command invocation.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	KV           storage.KV
	Gateway      *gateway.Client
	API          *backend.Client
	Session      *session.Store
	Transcript   *transcript.Transcript
	Engine       *reveal.Engine
	Orchestrator *orchestrator.Orchestrator

	watcher *session.Watcher
}

// NewApp opens the store and restores the saved session.
func NewApp(cfg *config.Config, logger *zap.Logger, opts AppOptions) (*App, error) {
	if cfg == nil {
		return nil, errors.New("no configuration loaded")
	}
	logger = logging.OrNop(logger)

	kv, err := storage.Open(cfg)
	if err != nil {
		return nil, &configError{err: fmt.Errorf("failed to open session store: %w", err)}
	}

	gw := opts.Gateway
	if gw == nil {
		gw = gateway.NewClient(&gateway.Config{
			BaseURL:   cfg.API.BaseURL,
			RateLimit: cfg.API.RateLimitPerSec,
			RateBurst: cfg.API.RateBurst,
			Logger:    logger,
		})
	}

	api := backend.New(gw, backend.Options{
		RequestTimeout: cfg.RequestTimeout(),
		UploadTimeout:  cfg.UploadTimeout(),
		Logger:         logger,
	})

	store := session.NewStore(kv, gw, logger)
	if s, ok := store.Restore(); ok {
		logger.Debug("session restored", zap.String("user_id", s.UserID()))
	}

	tr := transcript.New()
	engOpts := reveal.Options{Tick: cfg.TickInterval(), Logger: logger}
	if opts.Instant {
		engOpts.NewTicker = reveal.Instant
	}
	eng := reveal.New(tr, engOpts)

	return &App{
		Config:       cfg,
		Log:          logger,
		KV:           kv,
		Gateway:      gw,
		API:          api,
		Session:      store,
		Transcript:   tr,
		Engine:       eng,
		Orchestrator: orchestrator.New(api, tr, eng, logger),
	}, nil
}

// RequireSession returns ErrNotLoggedIn unless a session is active.
func (a *App) RequireSession() (session.Session, error) {
	s, ok := a.Session.Current()
	if !ok {
		return session.Session{}, ErrNotLoggedIn
	}
	return s, nil
}

// WatchSession reloads the session when another process logs in or out.
// It is a no-op when watching is disabled or the store has no file.
func (a *App) WatchSession(ctx context.Context) error {
	if !a.Config.Storage.Watch || a.watcher != nil {
		return nil
	}
	p, ok := a.KV.(storage.Pather)
	if !ok {
		return nil
	}
	w, err := session.NewWatcher(a.Session, p.Path(), 0)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Close()
		return err
	}
	a.watcher = w
	return nil
}

// Close stops the watcher and closes the store.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Close()
		a.watcher = nil
	}
	if a.KV != nil {
		return a.KV.Close()
	}
	return nil
}
