package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the options file and notifies a handler with freshly loaded
// options when it changes. The file is re-read on every change so the handler
// never sees stale data.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func(Options)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the options file at path. onReload is
// invoked with validated options after each change settles.
func NewWatcher(path string, logger *slog.Logger, onReload func(Options)) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		debounce: 1500 * time.Millisecond,
		onReload: onReload,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDebounce overrides the default 1500ms debounce. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching the options file for changes.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	w.logger.Info("config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and releases the underlying notify handle.
func (w *Watcher) Stop() {
	w.cancel()
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) watch() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Editors often replace the file; re-add so we keep receiving
			// events for the new inode.
			if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Create) {
				_ = w.watcher.Add(w.path)
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.reload)
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	select {
	case <-w.ctx.Done():
		return
	default:
	}

	opts, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous options", "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path)
	w.onReload(opts)
}
