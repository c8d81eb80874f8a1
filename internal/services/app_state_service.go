package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"memoria/internal/events"
	"memoria/internal/models"
	"memoria/internal/storage"
)

// Persisted keys. Everything else in AppState resets on every start.
const (
	KeyUser     = "user"
	KeyAPIKey   = "apiKey"
	KeyAPIModel = "apiModel"
	KeyDarkMode = "darkMode"
)

const (
	defaultModel                = "openai/gpt-4"
	defaultNotificationDuration = 6000 * time.Millisecond

	apiSettingsSavedMessage = "API settings updated successfully"
	fallbackErrorMessage    = "An error occurred"
)

// APIKeySink receives the API key whenever it is loaded or changed.
type APIKeySink interface {
	SetAPIKey(key string)
}

type AppStateOptions struct {
	DefaultModel         string
	NotificationDuration time.Duration
	Clock                clock.Clock
	Logger               *slog.Logger
	APIKeySink           APIKeySink
}

// AppStateService owns the application state shown by the UI: the user
// profile, API settings, theme, sidebar, the shared request slot and the
// single notification slot.
type AppStateService struct {
	store        *storage.Store
	clock        clock.Clock
	log          *slog.Logger
	sink         APIKeySink
	defaultModel string
	duration     time.Duration

	mu      sync.RWMutex
	context context.Context
	state   models.AppState
	timer   *clock.Timer

	// request slot bookkeeping
	inFlight  int
	latestReq uint64

	unsubscribe []func()
}

func NewAppStateService(store *storage.Store, opts AppStateOptions) *AppStateService {
	if opts.DefaultModel == "" {
		opts.DefaultModel = defaultModel
	}
	if opts.NotificationDuration <= 0 {
		opts.NotificationDuration = defaultNotificationDuration
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &AppStateService{
		store:        store,
		clock:        opts.Clock,
		log:          opts.Logger.With("service", "app_state"),
		sink:         opts.APIKeySink,
		defaultModel: opts.DefaultModel,
		duration:     opts.NotificationDuration,
		state:        models.AppState{SidebarOpen: true},
	}
	s.load()
	return s
}

// Startup reloads persisted values, starts following changes made by other
// instances and pushes the initial theme to the window.
func (s *AppStateService) Startup(ctx context.Context) {
	s.mu.Lock()
	s.context = ctx
	s.mu.Unlock()

	s.load()
	s.follow()

	snap := s.Snapshot()
	if s.sink != nil && snap.API.Key != "" {
		s.sink.SetAPIKey(snap.API.Key)
	}
	s.emit(events.StateTheme, events.NewThemeEvent(snap.DarkMode))
	s.emit(events.StateChanged, snap.Public())
}

// Shutdown releases the change subscriptions and the notification timer.
func (s *AppStateService) Shutdown() {
	s.mu.Lock()
	unsubs := s.unsubscribe
	s.unsubscribe = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
}

func (s *AppStateService) Snapshot() models.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *AppStateService) ToggleDarkMode() bool {
	s.mu.Lock()
	s.state.DarkMode = !s.state.DarkMode
	dark := s.state.DarkMode
	s.persist(KeyDarkMode, dark)
	s.mu.Unlock()

	s.emit(events.StateTheme, events.NewThemeEvent(dark))
	s.publish()
	return dark
}

func (s *AppStateService) SetUser(user models.UserProfile) {
	s.mu.Lock()
	s.state.User = user
	s.persist(KeyUser, user)
	s.mu.Unlock()

	s.publish()
}

// UpdateUser merges the non-nil fields of patch into the current profile.
func (s *AppStateService) UpdateUser(patch models.UserPatch) models.UserProfile {
	s.mu.Lock()
	user := patch.Apply(s.state.User)
	s.state.User = user
	s.persist(KeyUser, user)
	s.mu.Unlock()

	s.publish()
	return user
}

// UpdateAPISettings changes the key and the model when they are non-empty and
// differ from the current values. A success notification is raised either way.
func (s *AppStateService) UpdateAPISettings(key, model string) models.APISettings {
	s.mu.Lock()
	keyChanged := key != "" && key != s.state.API.Key
	modelChanged := model != "" && model != s.state.API.Model
	if keyChanged {
		s.state.API.Key = key
		s.persist(KeyAPIKey, key)
		if s.sink != nil {
			s.sink.SetAPIKey(key)
		}
	}
	if modelChanged {
		s.state.API.Model = model
		s.persist(KeyAPIModel, model)
	}
	settings := s.state.API
	s.mu.Unlock()

	if keyChanged || modelChanged {
		s.log.Info("api settings updated", "keyChanged", keyChanged, "model", settings.Model)
	}

	s.ShowNotification(apiSettingsSavedMessage, models.SeveritySuccess, 0)
	return settings
}

func (s *AppStateService) SetSidebarOpen(open bool) {
	s.mu.Lock()
	changed := s.state.SidebarOpen != open
	s.state.SidebarOpen = open
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

// ShowNotification replaces the current notification. An empty severity means
// info and a zero duration means the configured default.
func (s *AppStateService) ShowNotification(message string, severity models.Severity, duration time.Duration) *models.Notification {
	if severity == "" {
		severity = models.SeverityInfo
	}
	if duration <= 0 {
		duration = s.duration
	}

	n := &models.Notification{
		ID:         uuid.NewString(),
		Message:    message,
		Severity:   severity,
		Duration:   duration,
		DurationMs: duration.Milliseconds(),
		CreatedAt:  s.clock.Now(),
	}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state.Notification = n
	id := n.ID
	s.timer = s.clock.AfterFunc(duration, func() { s.expire(id) })
	s.mu.Unlock()

	s.publishNotification(n)
	cp := *n
	return &cp
}

func (s *AppStateService) ClearNotification() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	had := s.state.Notification != nil
	s.state.Notification = nil
	s.mu.Unlock()

	if had {
		s.publishNotification(nil)
	}
}

// expire clears the slot only if it still holds the notification the timer
// was started for.
func (s *AppStateService) expire(id string) {
	s.mu.Lock()
	if s.state.Notification == nil || s.state.Notification.ID != id {
		s.mu.Unlock()
		return
	}
	s.state.Notification = nil
	s.timer = nil
	s.mu.Unlock()

	s.publishNotification(nil)
}

// MakeAPIRequest runs fn while the request slot reports loading. Loading stays
// set while any request is in flight. A failure records its message in the
// slot unless a newer request has started since, raises an error notification
// and is returned unchanged.
func MakeAPIRequest[T any](ctx context.Context, s *AppStateService, fn func(ctx context.Context) (T, error)) (T, error) {
	id := s.beginRequest()
	s.publish()

	result, err := fn(ctx)

	msg := ""
	if err != nil {
		msg = err.Error()
		if msg == "" {
			msg = fallbackErrorMessage
		}
	}
	s.endRequest(id, err != nil, msg)
	s.publish()

	if err != nil {
		s.log.Warn("api request failed", "error", err)
		s.ShowNotification(msg, models.SeverityError, 0)
		var zero T
		return zero, err
	}
	return result, nil
}

func (s *AppStateService) beginRequest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestReq++
	s.inFlight++
	s.state.Request.Loading = true
	s.state.Request.ErrorMessage = nil
	return s.latestReq
}

func (s *AppStateService) endRequest(id uint64, failed bool, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.state.Request.Loading = s.inFlight > 0
	if failed && id == s.latestReq {
		s.state.Request.ErrorMessage = &msg
	}
}

func (s *AppStateService) load() {
	user := storage.Read(s.store, KeyUser, models.DefaultUserProfile())
	key := storage.Read(s.store, KeyAPIKey, "")
	model := storage.Read(s.store, KeyAPIModel, s.defaultModel)
	dark := storage.Read(s.store, KeyDarkMode, false)

	s.mu.Lock()
	s.state.User = user
	s.state.API = models.APISettings{Key: key, Model: model}
	s.state.DarkMode = dark
	s.mu.Unlock()
}

// follow subscribes to changes of the persisted keys made by other instances.
func (s *AppStateService) follow() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	unsubs := []func(){
		storage.Subscribe(s.store, KeyUser, func(models.UserProfile) { s.refresh(KeyUser) }),
		storage.Subscribe(s.store, KeyAPIKey, func(string) { s.refresh(KeyAPIKey) }),
		storage.Subscribe(s.store, KeyAPIModel, func(string) { s.refresh(KeyAPIModel) }),
		storage.Subscribe(s.store, KeyDarkMode, func(bool) { s.refresh(KeyDarkMode) }),
	}

	s.mu.Lock()
	s.unsubscribe = unsubs
	s.mu.Unlock()
}

// refresh takes the current value of key from the store rather than the one
// delivered with the change, so a change arriving after a newer local update
// cannot roll it back.
func (s *AppStateService) refresh(key string) {
	s.mu.Lock()
	switch key {
	case KeyUser:
		s.state.User = storage.Read(s.store, KeyUser, models.DefaultUserProfile())
	case KeyAPIKey:
		s.state.API.Key = storage.Read(s.store, KeyAPIKey, "")
		if s.sink != nil {
			s.sink.SetAPIKey(s.state.API.Key)
		}
	case KeyAPIModel:
		s.state.API.Model = storage.Read(s.store, KeyAPIModel, s.defaultModel)
	case KeyDarkMode:
		s.state.DarkMode = storage.Read(s.store, KeyDarkMode, false)
	}
	dark := s.state.DarkMode
	s.mu.Unlock()

	if key == KeyDarkMode {
		s.emit(events.StateTheme, events.NewThemeEvent(dark))
	}
	s.publish()
}

// persist queues the durable write. Callers hold mu so durable order matches
// the order of in-memory changes.
func (s *AppStateService) persist(key string, value any) {
	if err := storage.Write(s.store, key, value); err != nil {
		s.log.Warn("persisting state failed", "key", key, "error", err)
	}
}

func (s *AppStateService) snapshotLocked() models.AppState {
	snap := s.state
	if s.state.Notification != nil {
		n := *s.state.Notification
		snap.Notification = &n
	}
	if s.state.Request.ErrorMessage != nil {
		msg := *s.state.Request.ErrorMessage
		snap.Request.ErrorMessage = &msg
	}
	return snap
}

func (s *AppStateService) publish() {
	s.emit(events.StateChanged, s.Snapshot().Public())
}

func (s *AppStateService) publishNotification(n *models.Notification) {
	var cp *models.Notification
	if n != nil {
		v := *n
		cp = &v
	}
	s.emit(events.StateNotification, events.NewNotificationEvent(cp))
	s.publish()
}

func (s *AppStateService) emit(name string, payload any) {
	s.mu.RLock()
	ctx := s.context
	s.mu.RUnlock()
	events.Emit(ctx, name, payload)
}
