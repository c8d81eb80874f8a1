package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"memoria/internal/models"
	"memoria/internal/services"
)

const shutdownTimeout = 5 * time.Second

// App struct
type App struct {
	ctx context.Context
	svc *services.Services
	log *slog.Logger
}

// NewApp creates a new App application struct
func NewApp(svc *services.Services, log *slog.Logger) *App {
	return &App{svc: svc, log: log}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.svc.Startup(ctx)
}

// shutdown is called when the app is closing. Pending writes are flushed
// before storage is closed.
func (a *App) shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := a.svc.Shutdown(ctx); err != nil {
		a.log.Error("shutdown failed", "error", err)
		return
	}
	a.log.Info("storage closed")
}

func (a *App) state() *services.AppStateService {
	return a.svc.AppState
}

// GetState returns the current application state with the API key masked.
func (a *App) GetState() models.AppState {
	return a.state().Snapshot().Public()
}

func (a *App) ToggleDarkMode() bool {
	return a.state().ToggleDarkMode()
}

func (a *App) UpdateUser(patch models.UserPatch) models.UserProfile {
	return a.state().UpdateUser(patch)
}

func (a *App) UpdateAPISettings(key, model string) models.APISettings {
	return a.state().UpdateAPISettings(key, model).Masked()
}

func (a *App) SetSidebarOpen(open bool) {
	a.state().SetSidebarOpen(open)
}

// ShowNotification takes the duration in milliseconds; zero uses the default.
func (a *App) ShowNotification(message, severity string, durationMs int) (*models.Notification, error) {
	sev := models.Severity(severity)
	if severity != "" && !sev.Valid() {
		return nil, fmt.Errorf("unknown severity %q", severity)
	}
	return a.state().ShowNotification(message, sev, time.Duration(durationMs)*time.Millisecond), nil
}

func (a *App) ClearNotification() {
	a.state().ClearNotification()
}

// SendMessage asks the assistant and returns its reply text.
func (a *App) SendMessage(message string) (string, error) {
	reply, err := services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.ChatReply, error) {
		return a.svc.API.SendMessage(ctx, message)
	})
	if err != nil {
		return "", err
	}
	return reply.Response, nil
}

// SelectAndUploadDocument opens a native file picker and uploads the chosen
// file. It returns nil when the dialog is cancelled.
func (a *App) SelectAndUploadDocument() (*models.Document, error) {
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Document",
		Filters: []runtime.FileFilter{
			{DisplayName: "Documents", Pattern: "*.pdf;*.txt;*.md;*.docx"},
		},
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	return a.UploadDocument(path)
}

func (a *App) UploadDocument(path string) (*models.Document, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.Document, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		return a.svc.API.UploadDocument(ctx, filepath.Base(path), f)
	})
}

func (a *App) ListDocuments() ([]models.Document, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), a.svc.API.ListDocuments)
}

func (a *App) GetDocument(id string) (*models.Document, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.Document, error) {
		return a.svc.API.GetDocument(ctx, id)
	})
}

func (a *App) DeleteDocument(id string) (*models.StatusMessage, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.StatusMessage, error) {
		return a.svc.API.DeleteDocument(ctx, id)
	})
}

func (a *App) ListMemories(tag string) ([]models.Memory, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) ([]models.Memory, error) {
		return a.svc.API.ListMemories(ctx, tag)
	})
}

func (a *App) AddMemory(in models.MemoryInput) (*models.StatusMessage, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.StatusMessage, error) {
		return a.svc.API.AddMemory(ctx, in)
	})
}

func (a *App) UpdateMemory(id string, in models.MemoryInput) (*models.StatusMessage, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.StatusMessage, error) {
		return a.svc.API.UpdateMemory(ctx, id, in)
	})
}

func (a *App) DeleteMemory(id string) (*models.StatusMessage, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.StatusMessage, error) {
		return a.svc.API.DeleteMemory(ctx, id)
	})
}

func (a *App) SearchMemories(query string) ([]models.Memory, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) ([]models.Memory, error) {
		return a.svc.API.SearchMemories(ctx, query)
	})
}

func (a *App) GetRemoteSettings() (*models.RemoteSettings, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), a.svc.API.GetSettings)
}

func (a *App) UpdateRemoteSettings(settings models.RemoteSettings) (*models.StatusMessage, error) {
	return services.MakeAPIRequest(a.ctx, a.state(), func(ctx context.Context) (*models.StatusMessage, error) {
		return a.svc.API.UpdateSettings(ctx, settings)
	})
}
