package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AutoOptimiser/internal/domain/models"
	drepo "AutoOptimiser/internal/domain/repository"
	"AutoOptimiser/pkg/cache"
)

const sessionKeyPrefix = "session"

// CacheSessionStore keeps session snapshots in a cache with a TTL.
type CacheSessionStore struct {
	cache cache.Store
	ttl   time.Duration
}

var _ drepo.SessionStore = (*CacheSessionStore)(nil)

func NewCacheSessionStore(c cache.Store, ttl time.Duration) *CacheSessionStore {
	return &CacheSessionStore{cache: c, ttl: ttl}
}

func (s *CacheSessionStore) Save(ctx context.Context, snap *models.SessionSnapshot) error {
	if err := cache.SetJSON(ctx, s.cache, cache.Key(sessionKeyPrefix, snap.ID), snap, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

func (s *CacheSessionStore) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	snap, err := cache.GetJSON[models.SessionSnapshot](ctx, s.cache, cache.Key(sessionKeyPrefix, id))
	if errors.Is(err, cache.ErrMiss) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &snap, nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, cache.Key(sessionKeyPrefix, id))
}
