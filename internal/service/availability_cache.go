package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, group, key string, value interface{}, ttl time.Duration) error
	DeleteGroup(ctx context.Context, group string) (int64, error)
}

// CachedAvailability serves trainer availability through a read-through cache.
// Cache failures are logged and fall back to the source.
type CachedAvailability struct {
	source  AvailabilitySource
	cache   cacheStore
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCachedAvailability wraps source. A non-positive ttl defaults to five minutes.
func NewCachedAvailability(source AvailabilitySource, cache cacheStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *CachedAvailability {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedAvailability{source: source, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

func availabilityKey(trainerID string, from, to time.Time) string {
	return fmt.Sprintf("availability:%s:%d:%d", trainerID, from.Unix(), to.Unix())
}

// ListByTrainer returns the trainer's windows overlapping [from, to).
func (c *CachedAvailability) ListByTrainer(ctx context.Context, trainerID string, from, to time.Time) ([]models.AvailabilityWindow, error) {
	key := availabilityKey(trainerID, from, to)

	var cached []models.AvailabilityWindow
	err := c.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		c.metrics.ObserveAvailabilityCache(true)
		return cached, nil
	case !errors.Is(err, appErrors.ErrCacheMiss):
		c.logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.metrics.ObserveAvailabilityCache(false)

	windows, err := c.source.ListByTrainer(ctx, trainerID, from, to)
	if err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []models.AvailabilityWindow{}
	}
	if err := c.cache.Set(ctx, trainerID, key, windows, c.ttl); err != nil {
		c.logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
	}
	return windows, nil
}

// InvalidateTrainer drops every cached lookup for a trainer.
func (c *CachedAvailability) InvalidateTrainer(ctx context.Context, trainerID string) (int64, error) {
	if trainerID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "trainer id is required")
	}
	n, err := c.cache.DeleteGroup(ctx, trainerID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate availability cache")
	}
	c.logger.Info("availability cache invalidated", zap.String("trainer_id", trainerID), zap.Int64("entries", n))
	return n, nil
}
