package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"memoria/internal/models"
)

// nextRevision is evaluated inside the upsert so sqlite's writer lock keeps
// revisions strictly increasing across every process sharing the file.
const nextRevision = "(SELECT COALESCE(MAX(revision), 0) + 1 FROM key_values)"

type KeyValueRepository interface {
	// Get returns nil, nil when the key was never written.
	Get(ctx context.Context, key string) (*models.KeyValue, error)
	Put(ctx context.Context, key, value, origin string) (*models.KeyValue, error)
	Remove(ctx context.Context, key, origin string) error
	ChangedSince(ctx context.Context, revision int64, excludeOrigin string) ([]models.KeyValue, error)
	LatestRevision(ctx context.Context) (int64, error)
}

type keyValueRepository struct {
	db *gorm.DB
}

func NewKeyValueRepository(db *gorm.DB) KeyValueRepository {
	return &keyValueRepository{db: db}
}

func (r *keyValueRepository) Get(ctx context.Context, key string) (*models.KeyValue, error) {
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	var kv models.KeyValue
	if err := r.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Take(&kv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &kv, nil
}

func (r *keyValueRepository) Put(ctx context.Context, key, value, origin string) (*models.KeyValue, error) {
	if err := r.upsert(ctx, key, value, origin, false); err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

func (r *keyValueRepository) Remove(ctx context.Context, key, origin string) error {
	return r.upsert(ctx, key, "", origin, true)
}

func (r *keyValueRepository) upsert(ctx context.Context, key, value, origin string, deleted bool) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if origin == "" {
		return fmt.Errorf("origin is required")
	}
	return r.db.WithContext(ctx).
		Model(&models.KeyValue{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "origin", "revision", "deleted", "updated_at"}),
		}).
		Create(map[string]interface{}{
			"key":        key,
			"value":      value,
			"origin":     origin,
			"revision":   gorm.Expr(nextRevision),
			"deleted":    deleted,
			"updated_at": time.Now(),
		}).Error
}

func (r *keyValueRepository) ChangedSince(ctx context.Context, revision int64, excludeOrigin string) ([]models.KeyValue, error) {
	var rows []models.KeyValue
	q := r.db.WithContext(ctx).Where("revision > ?", revision)
	if excludeOrigin != "" {
		q = q.Where("origin <> ?", excludeOrigin)
	}
	if err := q.Order("revision ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *keyValueRepository) LatestRevision(ctx context.Context) (int64, error) {
	var rev int64
	if err := r.db.WithContext(ctx).
		Model(&models.KeyValue{}).
		Select("COALESCE(MAX(revision), 0)").
		Scan(&rev).Error; err != nil {
		return 0, err
	}
	return rev, nil
}
