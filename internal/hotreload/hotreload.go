// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package hotreload triggers a configuration reload when the configuration or credential file
// changes, or when the process receives a reload signal.
package hotreload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"go.voipnowmcp.dev/internal/plog"
)

const (
	DefaultDebounce    = time.Second
	DefaultSettleDelay = 100 * time.Millisecond

	relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename
)

// Reloader is satisfied by *lifecycle.Manager.
type Reloader interface {
	Reload(ctx context.Context) error
	WatchedPaths() []string
}

type fileWatcher interface {
	Add(path string) error
	Close() error
	Events() chan fsnotify.Event
	Errors() chan error
}

type fsNotifyWatcher struct {
	*fsnotify.Watcher
}

func (w *fsNotifyWatcher) Add(path string) error       { return w.Watcher.Add(path) }
func (w *fsNotifyWatcher) Close() error                { return w.Watcher.Close() }
func (w *fsNotifyWatcher) Events() chan fsnotify.Event { return w.Watcher.Events }
func (w *fsNotifyWatcher) Errors() chan error          { return w.Watcher.Errors }

func newFsnotifyWatcher() (fileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsNotifyWatcher{Watcher: w}, nil
}

type Watcher struct {
	reloader Reloader
	clock    clock.WithDelayedExecution
	logger   plog.Logger
	debounce time.Duration
	settle   time.Duration

	newFileWatcher func() (fileWatcher, error)
	notifySignals  func() (<-chan os.Signal, func())
	eventHandled   func()

	// the fields below are only used by the goroutine running Start
	requests    chan struct{}
	watchedDirs sets.Set[string]
	lastEvent   map[string]time.Time
	settleTimer clock.Timer
}

type Opt func(*Watcher)

func WithClock(c clock.WithDelayedExecution) Opt {
	return func(w *Watcher) { w.clock = c }
}

func WithLogger(l plog.Logger) Opt {
	return func(w *Watcher) { w.logger = l }
}

func WithDebounce(d time.Duration) Opt {
	return func(w *Watcher) { w.debounce = d }
}

func WithSettleDelay(d time.Duration) Opt {
	return func(w *Watcher) { w.settle = d }
}

func New(reloader Reloader, opts ...Opt) *Watcher {
	w := &Watcher{
		reloader:       reloader,
		clock:          clock.RealClock{},
		logger:         plog.New(),
		debounce:       DefaultDebounce,
		settle:         DefaultSettleDelay,
		newFileWatcher: newFsnotifyWatcher,
		notifySignals:  reloadSignals,
		eventHandled:   func() {},
		requests:       make(chan struct{}, 1),
		watchedDirs:    sets.New[string](),
		lastEvent:      map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start watches until ctx is cancelled.  It only returns an error when watching could not begin.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := w.newFileWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// Watch the parent directories because the files are replaced by rename.
	if err := w.watchDirs(fw); err != nil {
		return err
	}

	signals, stopSignals := w.notifySignals()
	defer stopSignals()

	w.logger.Debug("watching for configuration changes", "dirs", sets.List(w.watchedDirs))

	for {
		select {
		case <-ctx.Done():
			if w.settleTimer != nil {
				w.settleTimer.Stop()
			}
			w.logger.Info("configuration watcher was cancelled and is stopping")
			return nil

		case e, ok := <-fw.Events():
			if !ok {
				return nil
			}
			w.handleEvent(e)
			w.eventHandled()

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}
			w.logger.WarningErr("error event while watching configuration files", err)

		case sig := <-signals:
			w.logger.Info("received reload signal", "signal", sig.String())
			w.request()

		case <-w.requests:
			if err := w.reloader.Reload(ctx); err != nil {
				// the reloader already reported the failure and kept its previous state
				w.logger.DebugErr("reload did not complete", err)
			}
			if err := w.watchDirs(fw); err != nil {
				w.logger.WarningErr("could not watch new configuration directory", err)
			}
		}
	}
}

func (w *Watcher) watchDirs(fw fileWatcher) error {
	for _, path := range w.reloader.WatchedPaths() {
		dir := filepath.Dir(filepath.Clean(path))
		if w.watchedDirs.Has(dir) {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
		w.watchedDirs.Insert(dir)
	}
	return nil
}

func (w *Watcher) handleEvent(e fsnotify.Event) {
	if e.Op&relevantOps == 0 {
		return
	}

	path := filepath.Clean(e.Name)
	if !sets.New(cleanAll(w.reloader.WatchedPaths())...).Has(path) {
		return
	}

	now := w.clock.Now()
	if last, ok := w.lastEvent[path]; ok && now.Sub(last) < w.debounce {
		// A repeat moves the pending reload to the end of the window, so a create that follows a
		// rename is still read.
		w.logger.Trace("deferring repeated change event", "path", path, "op", e.Op.String())
		w.arm(max(last.Add(w.debounce).Sub(now), w.settle))
		return
	}
	w.lastEvent[path] = now

	w.logger.Debug("configuration file changed", "path", path, "op", e.Op.String())
	w.arm(w.settle)
}

// arm replaces any pending reload so only the latest one proceeds.
func (w *Watcher) arm(delay time.Duration) {
	if w.settleTimer != nil {
		w.settleTimer.Stop()
	}
	w.settleTimer = w.clock.AfterFunc(delay, w.request)
}

// request enqueues a reload.  Requests made while one is already queued collapse into it.
func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Clean(p))
	}
	return out
}
