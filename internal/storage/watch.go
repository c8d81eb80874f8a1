package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

type watchConfig struct {
	dir   string
	poll  time.Duration
	match func(name string) bool
	// fire receives the changed path, or "" on a poll tick.
	fire func(name string)
	log  *slog.Logger
}

// runWatcher reports filesystem activity under cfg.dir until ctx is done. When
// the directory cannot be watched it keeps going on the poll ticker alone.
func runWatcher(ctx context.Context, cfg watchConfig) {
	var events <-chan fsnotify.Event
	var errs <-chan error

	if cfg.dir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			cfg.log.Warn("creating watcher failed, falling back to polling", "dir", cfg.dir, "error", err)
		} else {
			defer watcher.Close()
			if err := watcher.Add(cfg.dir); err != nil {
				cfg.log.Warn("watching directory failed, falling back to polling", "dir", cfg.dir, "error", err)
			} else {
				events = watcher.Events
				errs = watcher.Errors
			}
		}
	}

	var tick <-chan time.Time
	if cfg.poll > 0 {
		ticker := time.NewTicker(cfg.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if cfg.match != nil && !cfg.match(event.Name) {
				continue
			}
			cfg.fire(event.Name)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			cfg.log.Warn("watcher error", "dir", cfg.dir, "error", err)
		case <-tick:
			cfg.fire("")
		}
	}
}
