package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/dto"
)

// RecordsCache caches the full-roster aggregate scoring view per module.
// Judge-scoped views are never cached because they depend on the viewer.
// A nil redis client disables the cache entirely; every method degrades to
// a miss.
type RecordsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRecordsCache constructs the cache wrapper.
func NewRecordsCache(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) *RecordsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &RecordsCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger.With().Str("component", "records_cache").Logger(),
	}
}

func recordsCacheKey(moduleID uint) string {
	return fmt.Sprintf("arena:scoring-records:%d", moduleID)
}

// Get returns the cached view and whether it was present.
func (c *RecordsCache) Get(ctx context.Context, moduleID uint) ([]dto.ScoringRecordView, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	payload, err := c.redis.Get(ctx, recordsCacheKey(moduleID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("records cache read failed")
		}
		return nil, false
	}

	var views []dto.ScoringRecordView
	if err := json.Unmarshal(payload, &views); err != nil {
		c.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("records cache payload corrupt")
		return nil, false
	}

	return views, true
}

// Set stores the view for the configured TTL.
func (c *RecordsCache) Set(ctx context.Context, moduleID uint, views []dto.ScoringRecordView) {
	if c == nil || c.redis == nil {
		return
	}

	payload, err := json.Marshal(views)
	if err != nil {
		c.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("records cache marshal failed")
		return
	}

	if err := c.redis.Set(ctx, recordsCacheKey(moduleID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("records cache write failed")
	}
}

// Invalidate drops the cached view after any score write.
func (c *RecordsCache) Invalidate(ctx context.Context, moduleID uint) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Del(ctx, recordsCacheKey(moduleID)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("module_id", moduleID).Msg("records cache invalidation failed")
	}
}
