package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"memoria/internal/repositories"
)

// SQLiteOptions configures a SQLiteBackend.
type SQLiteOptions struct {
	// Path of the database file. Other instances' writes are noticed by
	// watching its directory; leave empty to rely on polling only.
	Path string
	// PollInterval re-checks for foreign changes periodically. Zero disables it.
	PollInterval time.Duration
	// Origin identifies this instance's writes. A random id is used when empty.
	Origin string
	Logger *slog.Logger
}

// SQLiteBackend keeps values in the key_values table. Each row remembers which
// instance wrote it so changes from other instances sharing the database file
// can be reported.
type SQLiteBackend struct {
	repo   repositories.KeyValueRepository
	origin string
	log    *slog.Logger

	syncMu    sync.Mutex
	watermark int64

	mu        sync.Mutex
	listeners listeners

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSQLiteBackend(repo repositories.KeyValueRepository, opts SQLiteOptions) (*SQLiteBackend, error) {
	if repo == nil {
		return nil, fmt.Errorf("key value repository is required")
	}
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rev, err := repo.LatestRevision(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read latest revision: %w", err)
	}

	b := &SQLiteBackend{
		repo:      repo,
		origin:    opts.Origin,
		log:       opts.Logger.With("backend", "sqlite"),
		watermark: rev,
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	var dir, base string
	if opts.Path != "" {
		dir = filepath.Dir(opts.Path)
		base = filepath.Base(opts.Path)
	}
	if dir != "" || opts.PollInterval > 0 {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			runWatcher(ctx, watchConfig{
				dir:  dir,
				poll: opts.PollInterval,
				// the main file plus its -wal and -shm companions
				match: func(name string) bool {
					return strings.HasPrefix(filepath.Base(name), base)
				},
				fire: func(string) { b.Sync(ctx) },
				log:  b.log,
			})
		}()
	}
	return b, nil
}

// Origin returns the id stamped on rows written by this backend.
func (b *SQLiteBackend) Origin() string {
	return b.origin
}

func (b *SQLiteBackend) GetItem(ctx context.Context, key string) (string, bool, error) {
	kv, err := b.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if kv == nil || kv.Deleted {
		return "", false, nil
	}
	return kv.Value, true, nil
}

func (b *SQLiteBackend) SetItem(ctx context.Context, key, value string) error {
	_, err := b.repo.Put(ctx, key, value, b.origin)
	return err
}

func (b *SQLiteBackend) RemoveItem(ctx context.Context, key string) error {
	return b.repo.Remove(ctx, key, b.origin)
}

func (b *SQLiteBackend) Notify(fn func(Change)) func() {
	b.mu.Lock()
	id := b.listeners.add(fn)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.listeners.remove(id)
		b.mu.Unlock()
	}
}

// Sync reports rows other instances wrote since the last call. The watcher
// calls it on file activity; it is exported so callers can force a check.
func (b *SQLiteBackend) Sync(ctx context.Context) {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	rows, err := b.repo.ChangedSince(ctx, b.watermark, b.origin)
	if err != nil {
		if ctx.Err() == nil {
			b.log.Warn("checking for external changes failed", "error", err)
		}
		return
	}
	if len(rows) == 0 {
		return
	}

	b.mu.Lock()
	fns := b.listeners.snapshot()
	b.mu.Unlock()

	for _, row := range rows {
		if row.Revision > b.watermark {
			b.watermark = row.Revision
		}
		c := Change{Key: row.Key, Value: row.Value, Removed: row.Deleted}
		for _, fn := range fns {
			fn(c)
		}
	}
}

// Close stops the watcher. The database itself is owned by the caller.
func (b *SQLiteBackend) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}
