package price

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisCache is a PriceCache backed by Redis, for sharing resolved prices
// across processes. Backend failures degrade to cache misses so price
// resolution keeps working without Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, token common.Address) (float64, bool) {
	p, err := c.rdb.Get(ctx, priceKey(token)).Float64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("token", token.Hex()).Msg("redis price lookup failed")
		}
		return 0, false
	}
	return p, true
}

func (c *RedisCache) Set(ctx context.Context, token common.Address, price float64) {
	if err := c.rdb.Set(ctx, priceKey(token), price, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("token", token.Hex()).Msg("redis price store failed")
	}
}

func priceKey(token common.Address) string {
	return "price:" + strings.ToLower(token.Hex())
}
