package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 2 * time.Second
)

// Option configures a Store created with NewStore.
type Option func(*Store)

// WithLogger sets the logger used for persistence warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

type entry struct {
	raw     string
	present bool
}

type writeOp struct {
	key     string
	value   string
	remove  bool
	flushed chan struct{}
}

// Store is a write-through cache in front of a Backend.
type Store struct {
	backend Backend
	log     *slog.Logger

	mu     sync.RWMutex
	mirror map[string]entry
	// unsaved counts queued durable writes per key. External changes to such
	// a key are dropped: the queued local write lands after them.
	unsaved map[string]int
	subs    map[string]map[uint64]func(string)
	nextID  uint64
	closed  bool

	// The queue is unbounded so enqueueing never blocks while mu is held.
	qmu     sync.Mutex
	qcond   *sync.Cond
	queue   []writeOp
	qclosed bool

	done       chan struct{}
	stopNotify func()
	failures   atomic.Int64
}

// NewStore starts a Store over backend. A nil backend yields a store that only
// keeps values in memory, as when no persistent storage is available.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     slog.Default(),
		mirror:  make(map[string]entry),
		unsaved: make(map[string]int),
		subs:    make(map[string]map[uint64]func(string)),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "storage")
	s.qcond = sync.NewCond(&s.qmu)

	if n, ok := backend.(Notifier); ok {
		s.stopNotify = n.Notify(s.dispatch)
	}

	go s.writer()
	return s
}

// Read returns the value stored under key, or def when the key is absent, the
// store has no backend, or the stored content cannot be decoded into T.
func Read[T any](s *Store, key string, def T) T {
	raw, ok := s.raw(key)
	if !ok {
		return def
	}
	v, err := decode[T](raw)
	if err != nil {
		if !errors.Is(err, errEmptyValue) {
			s.log.Warn("discarding malformed stored value", "key", key, "error", err)
		}
		return def
	}
	return v
}

// Write stores value under key. The new value is visible to Read as soon as
// Write returns; the durable write happens later on the writer goroutine and
// its failure is only logged. The returned error reports encoding problems.
func Write[T any](s *Store, key string, value T) error {
	if key == "" {
		return ErrKeyRequired
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	s.put(writeOp{key: key, value: raw})
	return nil
}

// Subscribe calls fn with the decoded value whenever another context changes
// key. Removals and undecodable values are not delivered. The returned func
// releases the subscription and must be called before the subscriber goes away.
func Subscribe[T any](s *Store, key string, fn func(T)) (unsubscribe func()) {
	id := s.subscribe(key, func(raw string) {
		v, err := decode[T](raw)
		if err != nil {
			s.log.Warn("ignoring undecodable external change", "key", key, "error", err)
			return
		}
		fn(v)
	})
	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(key, id) })
	}
}

// Remove deletes key locally and queues its removal from the backend.
func (s *Store) Remove(key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	s.put(writeOp{key: key, remove: true})
	return nil
}

// Flush waits until every durable write queued before the call has been
// attempted.
func (s *Store) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	s.mu.RLock()
	closed := s.closed
	if !closed {
		s.enqueue(writeOp{flushed: flushed})
	}
	s.mu.RUnlock()
	if closed {
		return nil
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PersistFailures reports how many durable writes have failed so far.
func (s *Store) PersistFailures() int64 {
	return s.failures.Load()
}

// Close drains queued writes, stops change notifications and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.qmu.Lock()
	s.qclosed = true
	s.qcond.Signal()
	s.qmu.Unlock()

	<-s.done
	if s.stopNotify != nil {
		s.stopNotify()
	}
	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}

func (s *Store) raw(key string) (string, bool) {
	if key == "" {
		return "", false
	}
	s.mu.RLock()
	e, seen := s.mirror[key]
	s.mu.RUnlock()
	if seen {
		return e.raw, e.present
	}
	if s.backend == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()
	raw, ok, err := s.backend.GetItem(ctx, key)
	if err != nil {
		s.log.Warn("reading stored value failed", "key", key, "error", err)
		return "", false
	}

	s.mu.Lock()
	// A concurrent Write or external change wins over what we just loaded.
	if e, seen := s.mirror[key]; seen {
		s.mu.Unlock()
		return e.raw, e.present
	}
	s.mirror[key] = entry{raw: raw, present: ok}
	s.mu.Unlock()
	return raw, ok
}

// put updates the mirror and queues the durable write under the same lock, so
// durable order always matches the order writes became visible.
func (s *Store) put(op writeOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror[op.key] = entry{raw: op.value, present: !op.remove}
	if s.closed {
		s.log.Warn("store closed, change kept in memory only", "key", op.key)
		return
	}
	if s.backend != nil {
		s.unsaved[op.key]++
	}
	s.enqueue(op)
}

func (s *Store) enqueue(op writeOp) {
	s.qmu.Lock()
	s.queue = append(s.queue, op)
	s.qcond.Signal()
	s.qmu.Unlock()
}

func (s *Store) writer() {
	defer close(s.done)
	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.qclosed {
			s.qcond.Wait()
		}
		batch := s.queue
		s.queue = nil
		stop := s.qclosed && len(batch) == 0
		s.qmu.Unlock()
		if stop {
			return
		}
		for _, op := range batch {
			s.apply(op)
		}
	}
}

func (s *Store) apply(op writeOp) {
	if op.flushed != nil {
		close(op.flushed)
		return
	}
	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	var err error
	if op.remove {
		err = s.backend.RemoveItem(ctx, op.key)
	} else {
		err = s.backend.SetItem(ctx, op.key, op.value)
	}
	cancel()

	s.mu.Lock()
	if s.unsaved[op.key] <= 1 {
		delete(s.unsaved, op.key)
	} else {
		s.unsaved[op.key]--
	}
	s.mu.Unlock()

	if err != nil {
		s.failures.Add(1)
		s.log.Warn("persisting value failed, keeping it in memory", "key", op.key, "error", err)
	}
}

func (s *Store) subscribe(key string, fn func(string)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]func(string))
	}
	s.subs[key][s.nextID] = fn
	return s.nextID
}

func (s *Store) unsubscribe(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs[key], id)
	if len(s.subs[key]) == 0 {
		delete(s.subs, key)
	}
}

// dispatch folds an external change into the mirror and notifies subscribers.
func (s *Store) dispatch(c Change) {
	s.mu.Lock()
	if s.unsaved[c.Key] > 0 {
		s.mu.Unlock()
		return
	}
	s.mirror[c.Key] = entry{raw: c.Value, present: !c.Removed}
	var fns []func(string)
	if !c.Removed {
		fns = make([]func(string), 0, len(s.subs[c.Key]))
		for _, fn := range s.subs[c.Key] {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c.Value)
	}
}
