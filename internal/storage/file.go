package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileExt = ".json"

// FileOptions configures a FileBackend.
type FileOptions struct {
	Dir          string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// FileBackend stores each key as <escaped key>.json inside one directory.
// Changes made by other processes are picked up through filesystem events.
//
// Writes, removals and the reads done for change detection all run under mu,
// so known always matches what this backend last put on disk or saw there.
// Content equal to known is never reported; own writes therefore never come
// back as changes, however late their filesystem events arrive.
type FileBackend struct {
	dir string
	log *slog.Logger

	mu        sync.Mutex
	known     map[string]string
	listeners listeners

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewFileBackend(opts FileOptions) (*FileBackend, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	b := &FileBackend{
		dir: opts.Dir,
		log: opts.Logger.With("backend", "file"),
	}
	known, err := b.scan()
	if err != nil {
		return nil, err
	}
	b.known = known

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		runWatcher(ctx, watchConfig{
			dir:  b.dir,
			poll: opts.PollInterval,
			match: func(name string) bool {
				_, ok := keyFromFile(name)
				return ok
			},
			fire: b.refresh,
			log:  b.log,
		})
	}()
	return b, nil
}

func (b *FileBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (b *FileBackend) SetItem(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Rename(tmp.Name(), b.path(key)); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	b.known[key] = value
	return nil
}

func (b *FileBackend) RemoveItem(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := os.Remove(b.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	delete(b.known, key)
	return nil
}

func (b *FileBackend) Notify(fn func(Change)) func() {
	b.mu.Lock()
	id := b.listeners.add(fn)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.listeners.remove(id)
		b.mu.Unlock()
	}
}

func (b *FileBackend) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+fileExt)
}

// refresh compares the directory with known and reports the difference. An
// empty name rescans the whole directory. Listeners run before mu is released
// so a report can never overtake a later write from this backend.
func (b *FileBackend) refresh(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var changes []Change
	if name == "" {
		current, err := b.scan()
		if err != nil {
			b.log.Warn("scanning storage dir failed", "error", err)
			return
		}
		for key, value := range current {
			if c, ok := b.observe(key, value); ok {
				changes = append(changes, c)
			}
		}
		for key := range b.known {
			if _, ok := current[key]; !ok {
				delete(b.known, key)
				changes = append(changes, Change{Key: key, Removed: true})
			}
		}
	} else {
		key, ok := keyFromFile(name)
		if !ok {
			return
		}
		data, err := os.ReadFile(b.path(key))
		switch {
		case errors.Is(err, os.ErrNotExist):
			if _, had := b.known[key]; had {
				delete(b.known, key)
				changes = append(changes, Change{Key: key, Removed: true})
			}
		case err != nil:
			b.log.Warn("reading changed file failed", "file", name, "error", err)
		default:
			if c, ok := b.observe(key, string(data)); ok {
				changes = append(changes, c)
			}
		}
	}

	if len(changes) == 0 {
		return
	}
	fns := b.listeners.snapshot()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// observe records value as the content of key and reports whether it differs
// from what was known. Must be called with mu held.
func (b *FileBackend) observe(key, value string) (Change, bool) {
	if prev, ok := b.known[key]; ok && prev == value {
		return Change{}, false
	}
	b.known[key] = value
	return Change{Key: key, Value: value}, true
}

func (b *FileBackend) scan() (map[string]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key, ok := keyFromFile(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.dir, e.Name()))
		if err != nil {
			continue
		}
		out[key] = string(data)
	}
	return out, nil
}

func keyFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, fileExt))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
