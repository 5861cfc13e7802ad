// Package cache keeps short-lived copies of orders looked up by tracking code.
package cache

import (
	"context"
	"dinedash-backend/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type TrackingCache interface {
	Get(ctx context.Context, trackingCode string) (*model.Order, bool)
	Set(ctx context.Context, order *model.Order)
	Invalidate(ctx context.Context, trackingCode string)
}

func trackingKey(code string) string {
	return fmt.Sprintf("order:tracking:%s", code)
}

func fenceKey(code string) string {
	return fmt.Sprintf("order:tracking:%s:fence", code)
}

// fenceTTL outlives any read that started before an invalidation, so that
// read cannot put the old order back.
const fenceTTL = 5 * time.Second

// setUnlessFenced writes KEYS[1] only while no fence exists at KEYS[2].
var setUnlessFenced = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

type redisTrackingCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewTrackingCache falls back to a no-op cache when rdb is nil. Cache errors
// are logged and treated as misses.
func NewTrackingCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) TrackingCache {
	if rdb == nil {
		return Noop{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisTrackingCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "tracking_cache").Logger(),
	}
}

func (c *redisTrackingCache) Get(ctx context.Context, trackingCode string) (*model.Order, bool) {
	val, err := c.rdb.Get(ctx, trackingKey(trackingCode)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("tracking_code", trackingCode).Msg("cache get")
		}
		return nil, false
	}

	var order model.Order
	if err := json.Unmarshal(val, &order); err != nil {
		c.log.Warn().Err(err).Str("tracking_code", trackingCode).Msg("cache decode")
		return nil, false
	}
	return &order, true
}

func (c *redisTrackingCache) Set(ctx context.Context, order *model.Order) {
	val, err := json.Marshal(order)
	if err != nil {
		c.log.Warn().Err(err).Uint("order_id", order.ID).Msg("cache encode")
		return
	}
	keys := []string{trackingKey(order.TrackingCode), fenceKey(order.TrackingCode)}
	if err := setUnlessFenced.Run(ctx, c.rdb, keys, val, c.ttl.Milliseconds()).Err(); err != nil {
		c.log.Warn().Err(err).Uint("order_id", order.ID).Msg("cache set")
	}
}

// Invalidate drops the cached order and fences the key for a few seconds so a
// lookup that read the database before the change cannot re-cache it.
func (c *redisTrackingCache) Invalidate(ctx context.Context, trackingCode string) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fenceKey(trackingCode), 1, fenceTTL)
		pipe.Del(ctx, trackingKey(trackingCode))
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("tracking_code", trackingCode).Msg("cache invalidate")
	}
}

type Noop struct{}

func (Noop) Get(context.Context, string) (*model.Order, bool) { return nil, false }
func (Noop) Set(context.Context, *model.Order)                {}
func (Noop) Invalidate(context.Context, string)               {}
