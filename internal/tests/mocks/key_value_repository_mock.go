package mocks

import (
	"context"

	"memoria/internal/models"
)

type KeyValueRepositoryMock struct {
	GetFunc            func(ctx context.Context, key string) (*models.KeyValue, error)
	PutFunc            func(ctx context.Context, key, value, origin string) (*models.KeyValue, error)
	RemoveFunc         func(ctx context.Context, key, origin string) error
	ChangedSinceFunc   func(ctx context.Context, revision int64, excludeOrigin string) ([]models.KeyValue, error)
	LatestRevisionFunc func(ctx context.Context) (int64, error)
}

func (m *KeyValueRepositoryMock) Get(ctx context.Context, key string) (*models.KeyValue, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, nil
}

func (m *KeyValueRepositoryMock) Put(ctx context.Context, key, value, origin string) (*models.KeyValue, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, value, origin)
	}
	return &models.KeyValue{Key: key, Value: value, Origin: origin}, nil
}

func (m *KeyValueRepositoryMock) Remove(ctx context.Context, key, origin string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, key, origin)
	}
	return nil
}

func (m *KeyValueRepositoryMock) ChangedSince(ctx context.Context, revision int64, excludeOrigin string) ([]models.KeyValue, error) {
	if m.ChangedSinceFunc != nil {
		return m.ChangedSinceFunc(ctx, revision, excludeOrigin)
	}
	return []models.KeyValue{}, nil
}

func (m *KeyValueRepositoryMock) LatestRevision(ctx context.Context) (int64, error) {
	if m.LatestRevisionFunc != nil {
		return m.LatestRevisionFunc(ctx)
	}
	return 0, nil
}
