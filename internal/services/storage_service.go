package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/99designs/keyring"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"memoria/internal/config"
	"memoria/internal/database"
	"memoria/internal/repositories"
	"memoria/internal/storage"
)

const keyringService = "memoria"

// StorageService opens the configured persistence backend and owns the Store
// built on top of it.
type StorageService struct {
	Store *storage.Store

	log     *slog.Logger
	backend storage.Backend
	db      *gorm.DB
}

func NewStorageService(cfg config.StorageConfig, log *slog.Logger) (*StorageService, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &StorageService{log: log.With("service", "storage")}

	backend, err := s.openPrimary(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.SecretsInKeyring {
		ring, err := storage.OpenKeyring(keyringConfig(cfg))
		if err != nil {
			s.log.Warn("keyring unavailable, keeping the api key in regular storage", "error", err)
		} else {
			backend = storage.NewRoutedBackend(backend, ring, KeyAPIKey)
		}
	}

	s.backend = backend
	s.Store = storage.NewStore(backend, storage.WithLogger(log))
	s.log.Info("storage ready", "backend", cfg.Backend, "secretsInKeyring", cfg.SecretsInKeyring)
	return s, nil
}

func (s *StorageService) openPrimary(cfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Init(database.Config{
			Path:     cfg.DBPath,
			LogLevel: logger.Warn,
			Logger:   log,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		backend, err := storage.NewSQLiteBackend(repositories.NewKeyValueRepository(db), storage.SQLiteOptions{
			Path:         cfg.DBPath,
			PollInterval: cfg.PollInterval,
			Logger:       log,
		})
		if err != nil {
			closeDB(db)
			return nil, err
		}
		s.db = db
		return backend, nil
	case config.BackendFile:
		return storage.NewFileBackend(storage.FileOptions{
			Dir:          cfg.Dir,
			PollInterval: cfg.PollInterval,
			Logger:       log,
		})
	case config.BackendMemory:
		return storage.NewMemoryHub().Backend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Shutdown waits for pending writes, then closes the store and the database.
func (s *StorageService) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.Store.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush store: %w", err))
	}
	if n := s.Store.PersistFailures(); n > 0 {
		s.log.Warn("some changes were never persisted", "failures", n)
	}
	if err := s.Store.Close(); err != nil && !errors.Is(err, storage.ErrClosed) {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
		s.db = nil
	}
	return errors.Join(errs...)
}

func keyringConfig(cfg config.StorageConfig) keyring.Config {
	kc := keyring.Config{
		ServiceName:              keyringService,
		KeychainTrustApplication: true,
		KeychainSynchronizable:   false,
		LibSecretCollectionName:  keyringService,
		KWalletAppID:             keyringService,
		KWalletFolder:            keyringService,
		WinCredPrefix:            keyringService,
		FileDir:                  cfg.KeyringDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(cfg.KeyringPassword),
	}
	if cfg.KeyringBackend != "" {
		kc.AllowedBackends = []keyring.BackendType{keyring.BackendType(cfg.KeyringBackend)}
	}
	return kc
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
