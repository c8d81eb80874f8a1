package unit_tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memoria/internal/events"
	"memoria/internal/models"
	"memoria/internal/services"
	"memoria/internal/storage"
	"memoria/internal/tests/mocks"
)

// countingBackend records every durable write made through it.
type countingBackend struct {
	*storage.MemoryBackend
	mu     sync.Mutex
	writes map[string][]string
}

func newCountingBackend(hub *storage.MemoryHub) *countingBackend {
	return &countingBackend{MemoryBackend: hub.Backend(), writes: make(map[string][]string)}
}

func (c *countingBackend) SetItem(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.writes[key] = append(c.writes[key], value)
	c.mu.Unlock()
	return c.MemoryBackend.SetItem(ctx, key, value)
}

func (c *countingBackend) Writes(key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes[key]...)
}

type stateFixture struct {
	hub     *storage.MemoryHub
	backend *countingBackend
	store   *storage.Store
	clock   *clock.Mock
	sink    *mocks.APIKeySinkMock
	events  *mocks.EventRecorder
	service *services.AppStateService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStateFixture(t *testing.T, hub *storage.MemoryHub) *stateFixture {
	t.Helper()
	if hub == nil {
		hub = storage.NewMemoryHub()
	}
	rec := &mocks.EventRecorder{}
	events.SetCustomEmitter(rec.Emit)
	t.Cleanup(func() { events.SetCustomEmitter(nil) })

	backend := newCountingBackend(hub)
	store := storage.NewStore(backend, storage.WithLogger(discardLogger()))
	t.Cleanup(func() { _ = store.Close() })

	f := &stateFixture{
		hub:     hub,
		backend: backend,
		store:   store,
		clock:   clock.NewMock(),
		sink:    &mocks.APIKeySinkMock{},
		events:  rec,
	}
	f.service = services.NewAppStateService(store, services.AppStateOptions{
		Clock:      f.clock,
		Logger:     discardLogger(),
		APIKeySink: f.sink,
	})
	f.service.Startup(context.Background())
	t.Cleanup(f.service.Shutdown)
	return f
}

func (f *stateFixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Flush(ctx))
}

func notificationsWithSeverity(rec *mocks.EventRecorder, severity models.Severity) []*models.Notification {
	var out []*models.Notification
	for _, p := range rec.Named(events.StateNotification) {
		ev := p.(events.NotificationEvent)
		if ev.Notification != nil && ev.Notification.Severity == severity {
			out = append(out, ev.Notification)
		}
	}
	return out
}

func TestAppStateService_Defaults(t *testing.T) {
	f := newStateFixture(t, nil)

	snap := f.service.Snapshot()
	assert.Equal(t, models.UserProfile{Name: "User", Email: ""}, snap.User)
	assert.Equal(t, models.APISettings{Key: "", Model: "openai/gpt-4"}, snap.API)
	assert.False(t, snap.DarkMode)
	assert.True(t, snap.SidebarOpen)
	assert.False(t, snap.Request.Loading)
	assert.Nil(t, snap.Request.ErrorMessage)
	assert.Nil(t, snap.Notification)
	assert.Empty(t, f.sink.Received(), "no key configured")

	themes := f.events.Named(events.StateTheme)
	require.Len(t, themes, 1)
	assert.False(t, themes[0].(events.ThemeEvent).DarkMode)
}

func TestAppStateService_ToggleDarkModeTwiceRestoresValue(t *testing.T) {
	f := newStateFixture(t, nil)

	assert.True(t, f.service.ToggleDarkMode())
	assert.False(t, f.service.ToggleDarkMode())
	f.flush(t)

	assert.False(t, f.service.Snapshot().DarkMode)
	assert.Equal(t, []string{"true", "false"}, f.backend.Writes(services.KeyDarkMode))

	// initial theme plus one per toggle
	assert.Len(t, f.events.Named(events.StateTheme), 3)
}

func TestAppStateService_ToggleDarkModeSurvivesReload(t *testing.T) {
	hub := storage.NewMemoryHub()
	f := newStateFixture(t, hub)

	f.service.ToggleDarkMode()
	assert.True(t, f.service.Snapshot().DarkMode)
	f.flush(t)

	raw, ok := hub.Raw(services.KeyDarkMode)
	require.True(t, ok)
	assert.Equal(t, "true", raw)

	reloaded := newStateFixture(t, hub)
	assert.True(t, reloaded.service.Snapshot().DarkMode)
}

func TestAppStateService_ConcurrentTogglesPersistFinalValue(t *testing.T) {
	f := newStateFixture(t, nil)

	const workers, toggles = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < toggles; i++ {
				f.service.ToggleDarkMode()
			}
		}()
	}
	wg.Wait()
	f.flush(t)

	want := strconv.FormatBool(f.service.Snapshot().DarkMode)
	raw, ok := f.hub.Raw(services.KeyDarkMode)
	require.True(t, ok)
	assert.Equal(t, want, raw)

	writes := f.backend.Writes(services.KeyDarkMode)
	require.Len(t, writes, workers*toggles)
	assert.Equal(t, want, writes[len(writes)-1])
	for i := 1; i < len(writes); i++ {
		assert.NotEqual(t, writes[i-1], writes[i], "write %d repeats the previous value", i)
	}
}

func TestAppStateService_ConcurrentUserUpdatesPersistFinalValue(t *testing.T) {
	f := newStateFixture(t, nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				name := fmt.Sprintf("user-%d-%d", w, i)
				f.service.UpdateUser(models.UserPatch{Name: &name})
			}
		}(w)
	}
	wg.Wait()
	f.flush(t)

	raw, ok := f.hub.Raw(services.KeyUser)
	require.True(t, ok)
	want, err := json.Marshal(f.service.Snapshot().User)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), raw)
}

func TestAppStateService_UpdateAPISettingsChangesBothFields(t *testing.T) {
	hub := storage.NewMemoryHub()
	hub.Seed(services.KeyAPIModel, `"gpt-3.5"`)
	f := newStateFixture(t, hub)
	require.Equal(t, models.APISettings{Key: "", Model: "gpt-3.5"}, f.service.Snapshot().API)

	got := f.service.UpdateAPISettings("sk-123", "gpt-4")
	f.flush(t)

	assert.Equal(t, models.APISettings{Key: "sk-123", Model: "gpt-4"}, got)
	assert.Equal(t, got, f.service.Snapshot().API)
	assert.Equal(t, []string{`"sk-123"`}, f.backend.Writes(services.KeyAPIKey))
	assert.Equal(t, []string{`"gpt-4"`}, f.backend.Writes(services.KeyAPIModel))
	assert.Equal(t, []string{"sk-123"}, f.sink.Received())

	success := notificationsWithSeverity(f.events, models.SeveritySuccess)
	require.Len(t, success, 1)
	assert.Equal(t, "API settings updated successfully", success[0].Message)
}

func TestAppStateService_UpdateAPISettingsWithoutChangesStillNotifies(t *testing.T) {
	f := newStateFixture(t, nil)

	f.service.UpdateAPISettings("", "openai/gpt-4")
	f.flush(t)

	assert.Empty(t, f.backend.Writes(services.KeyAPIKey))
	assert.Empty(t, f.backend.Writes(services.KeyAPIModel))
	assert.Len(t, notificationsWithSeverity(f.events, models.SeveritySuccess), 1)
}

func TestAppStateService_StateEventsMaskAPIKey(t *testing.T) {
	f := newStateFixture(t, nil)
	f.service.UpdateAPISettings("sk-secret", "")

	changes := f.events.Named(events.StateChanged)
	require.NotEmpty(t, changes)
	last := changes[len(changes)-1].(models.AppState)
	assert.Equal(t, "*****", last.API.Key)
	assert.Equal(t, "sk-secret", f.service.Snapshot().API.Key)
}

func TestAppStateService_UpdateUserMergesFields(t *testing.T) {
	f := newStateFixture(t, nil)

	email := "ada@example.com"
	user := f.service.UpdateUser(models.UserPatch{Email: &email})
	assert.Equal(t, models.UserProfile{Name: "User", Email: "ada@example.com"}, user)

	name := "Ada"
	user = f.service.UpdateUser(models.UserPatch{Name: &name})
	assert.Equal(t, models.UserProfile{Name: "Ada", Email: "ada@example.com"}, user)

	f.flush(t)
	raw, _ := f.hub.Raw(services.KeyUser)
	assert.JSONEq(t, `{"name":"Ada","email":"ada@example.com"}`, raw)
}

func TestAppStateService_SecondNotificationReplacesFirst(t *testing.T) {
	f := newStateFixture(t, nil)

	first := f.service.ShowNotification("first", models.SeverityInfo, time.Second)
	second := f.service.ShowNotification("second", models.SeverityWarning, 5*time.Second)
	require.NotEqual(t, first.ID, second.ID)

	// the first notification's timer must not clear its successor
	f.clock.Add(2 * time.Second)
	current := f.service.Snapshot().Notification
	require.NotNil(t, current)
	assert.Equal(t, "second", current.Message)

	f.clock.Add(4 * time.Second)
	assert.Eventually(t, func() bool {
		return f.service.Snapshot().Notification == nil
	}, time.Second, 5*time.Millisecond)

	for _, p := range f.events.Named(events.StateNotification) {
		ev := p.(events.NotificationEvent)
		if ev.Notification != nil && ev.Notification.Message == "first" {
			assert.Equal(t, first.ID, ev.Notification.ID)
		}
	}
	assert.Len(t, notificationsWithSeverity(f.events, models.SeverityInfo), 1, "first shown exactly once")
}

func TestAppStateService_ShowNotificationDefaults(t *testing.T) {
	f := newStateFixture(t, nil)

	n := f.service.ShowNotification("saved", "", 0)
	assert.Equal(t, models.SeverityInfo, n.Severity)
	assert.Equal(t, 6000*time.Millisecond, n.Duration)
	assert.Equal(t, int64(6000), n.DurationMs)

	f.clock.Add(5999 * time.Millisecond)
	assert.NotNil(t, f.service.Snapshot().Notification)

	f.clock.Add(time.Millisecond)
	assert.Eventually(t, func() bool {
		return f.service.Snapshot().Notification == nil
	}, time.Second, 5*time.Millisecond)
}

func TestAppStateService_ClearNotificationIsIdempotent(t *testing.T) {
	f := newStateFixture(t, nil)
	f.service.ShowNotification("hello", models.SeverityInfo, time.Minute)

	f.service.ClearNotification()
	f.service.ClearNotification()
	assert.Nil(t, f.service.Snapshot().Notification)

	cleared := 0
	for _, p := range f.events.Named(events.StateNotification) {
		if p.(events.NotificationEvent).Notification == nil {
			cleared++
		}
	}
	assert.Equal(t, 1, cleared)

	f.clock.Add(2 * time.Minute)
	assert.Nil(t, f.service.Snapshot().Notification)
}

func TestMakeAPIRequest_FailureSetsErrorAndNotifies(t *testing.T) {
	f := newStateFixture(t, nil)
	f.events.Reset()
	require.False(t, f.service.Snapshot().Request.Loading)

	timeout := errors.New("timeout")
	var loadingDuringCall bool
	_, err := services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (string, error) {
		loadingDuringCall = f.service.Snapshot().Request.Loading
		return "", timeout
	})

	assert.ErrorIs(t, err, timeout)
	assert.True(t, loadingDuringCall)

	snap := f.service.Snapshot()
	assert.False(t, snap.Request.Loading)
	require.NotNil(t, snap.Request.ErrorMessage)
	assert.Equal(t, "timeout", *snap.Request.ErrorMessage)

	var loading []bool
	for _, p := range f.events.Named(events.StateChanged) {
		loading = append(loading, p.(models.AppState).Request.Loading)
	}
	require.GreaterOrEqual(t, len(loading), 2)
	assert.Equal(t, []bool{true, false}, loading[:2])

	errs := notificationsWithSeverity(f.events, models.SeverityError)
	require.Len(t, errs, 1)
	assert.Equal(t, "timeout", errs[0].Message)
}

func TestMakeAPIRequest_SuccessClearsPreviousError(t *testing.T) {
	f := newStateFixture(t, nil)

	_, _ = services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	require.NotNil(t, f.service.Snapshot().Request.ErrorMessage)

	got, err := services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Nil(t, f.service.Snapshot().Request.ErrorMessage)
	assert.False(t, f.service.Snapshot().Request.Loading)
}

func TestMakeAPIRequest_EmptyErrorMessageFallsBack(t *testing.T) {
	f := newStateFixture(t, nil)

	_, err := services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("")
	})
	require.Error(t, err)
	assert.Equal(t, "An error occurred", *f.service.Snapshot().Request.ErrorMessage)
}

func TestMakeAPIRequest_StaleFailureDoesNotOverwriteNewerRequest(t *testing.T) {
	f := newStateFixture(t, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (int, error) {
			close(started)
			<-release
			return 0, errors.New("slow failure")
		})
		done <- err
	}()
	<-started

	_, err := services.MakeAPIRequest(context.Background(), f.service, func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.True(t, f.service.Snapshot().Request.Loading, "older request still in flight")

	close(release)
	require.EqualError(t, <-done, "slow failure")

	snap := f.service.Snapshot()
	assert.False(t, snap.Request.Loading)
	assert.Nil(t, snap.Request.ErrorMessage)
	assert.Len(t, notificationsWithSeverity(f.events, models.SeverityError), 1)
}

func TestAppStateService_FollowsOtherInstances(t *testing.T) {
	hub := storage.NewMemoryHub()
	a := newStateFixture(t, hub)
	b := newStateFixture(t, hub)

	a.service.ToggleDarkMode()
	a.service.UpdateAPISettings("sk-other", "gpt-4o")
	a.flush(t)

	snap := b.service.Snapshot()
	assert.True(t, snap.DarkMode)
	assert.Equal(t, models.APISettings{Key: "sk-other", Model: "gpt-4o"}, snap.API)
	assert.Equal(t, []string{"sk-other"}, b.sink.Received())
	assert.Empty(t, b.backend.Writes(services.KeyDarkMode), "received changes are not written back")
}

func TestAppStateService_StartupPushesPersistedKey(t *testing.T) {
	hub := storage.NewMemoryHub()
	hub.Seed(services.KeyAPIKey, `"sk-saved"`)
	f := newStateFixture(t, hub)

	assert.Equal(t, []string{"sk-saved"}, f.sink.Received())
}

func TestAppStateService_SidebarIsNotPersisted(t *testing.T) {
	hub := storage.NewMemoryHub()
	f := newStateFixture(t, hub)

	f.service.SetSidebarOpen(false)
	f.flush(t)
	assert.False(t, f.service.Snapshot().SidebarOpen)

	reloaded := newStateFixture(t, hub)
	assert.True(t, reloaded.service.Snapshot().SidebarOpen)
}
