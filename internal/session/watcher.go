// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events an atomic write produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its backing file changes on disk.
//
// The parent directory is watched rather than the file itself: atomic
// writes replace the file by rename, which would orphan a file watch.
type Watcher struct {
	store    *Store
	dir      string
	base     string
	debounce time.Duration
	fs       *fsnotify.Watcher
	log      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWatcher prepares a watcher for path, the store's backing file.
func NewWatcher(store *Store, path string, debounce time.Duration) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("session: watcher needs a file-backed store")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:    store,
		dir:      filepath.Dir(path),
		base:     filepath.Base(path),
		debounce: debounce,
		fs:       fs,
		log:      store.log.Named("watcher"),
	}, nil
}

// Start begins watching. The watcher stops when ctx is done or Close is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fs.Add(w.dir); err != nil {
		return err
	}
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

// relevant matches the store file and SQLite's -wal/-journal siblings.
func (w *Watcher) relevant(name string) bool {
	return strings.HasPrefix(filepath.Base(name), w.base)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			s, ok := w.store.Restore()
			w.log.Debug("reloaded after external change",
				zap.Bool("active", ok), zap.String("user_id", s.User.ID))

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}
