// Package cache provides an optional read-through cache in front of the
// prediction client. It sits outside the client: the client itself never caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/models"
)

const (
	predictionsKey = "predictions"
	dashboardKey   = "dashboard"
)

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Source is the subset of the prediction client that can be cached.
type Source interface {
	FetchPredictions(ctx context.Context) ([]models.PredictionRecord, error)
	FetchDashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// Store is a key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedSource serves predictions and dashboard stats from the store while
// they are fresh and falls back to the source otherwise. Store failures are
// logged and never surface to the caller.
type CachedSource struct {
	source Source
	store  Store
	ttl    time.Duration
}

// New wraps source with a cache entry lifetime of ttl.
func New(source Source, store Store, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, store: store, ttl: ttl}
}

// FetchPredictions returns the cached collection or fetches and caches it.
func (c *CachedSource) FetchPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	var records []models.PredictionRecord
	if c.load(ctx, predictionsKey, &records) {
		if records == nil {
			records = []models.PredictionRecord{}
		}
		return records, nil
	}

	records, err := c.source.FetchPredictions(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, predictionsKey, records)
	return records, nil
}

// FetchDashboardStats returns the cached stats or fetches and caches them.
func (c *CachedSource) FetchDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if c.load(ctx, dashboardKey, &stats) {
		return &stats, nil
	}

	fresh, err := c.source.FetchDashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, dashboardKey, fresh)
	return fresh, nil
}

func (c *CachedSource) load(ctx context.Context, key string, out interface{}) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("Cache read for %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		logger.Warn("Discarding corrupt cache entry %s: %v", key, err)
		return false
	}
	logger.Debug("Cache hit for %s", key)
	return true
}

func (c *CachedSource) save(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Failed to encode cache entry %s: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		logger.Warn("Cache write for %s failed: %v", key, err)
	}
}
