package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"memoria/internal/api"
	"memoria/internal/config"
)

// Services aggregates the long-lived services the App delegates to.
type Services struct {
	Storage  *StorageService
	API      *api.Client
	AppState *AppStateService
}

// NewServices opens storage and builds the API client and state container.
func NewServices(cfg *config.Config, log *slog.Logger) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}

	st, err := NewStorageService(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		_ = st.Shutdown(context.Background())
		return nil, fmt.Errorf("create api client: %w", err)
	}

	state := NewAppStateService(st.Store, AppStateOptions{
		DefaultModel:         cfg.API.DefaultModel,
		NotificationDuration: cfg.UI.NotificationDuration,
		Logger:               log,
		APIKeySink:           client,
	})

	return &Services{Storage: st, API: client, AppState: state}, nil
}

func (s *Services) Startup(ctx context.Context) {
	s.AppState.Startup(ctx)
}

func (s *Services) Shutdown(ctx context.Context) error {
	s.AppState.Shutdown()
	return s.Storage.Shutdown(ctx)
}
