package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

const viewsKey = "assemblies:views"

// adjustViewsScript never lets a counter go below zero; members that reach
// zero are removed so they drop out of the popularity ranking.
var adjustViewsScript = redis.NewScript(`
local key = KEYS[1]
local member = ARGV[2]
local delta = tonumber(ARGV[1])

local current = tonumber(redis.call('ZSCORE', key, member) or '0')
local updated = current + delta
if updated <= 0 then
	redis.call('ZREM', key, member)
	return 0
end

redis.call('ZADD', key, updated, member)
return updated
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) IncrementViews(ctx context.Context, assemblyID string, delta int64) error {
	return adjustViewsScript.Run(ctx, r.client, []string{viewsKey}, delta, assemblyID).Err()
}

func (r *RedisAdapter) TopViewed(ctx context.Context, n int) ([]domain.ViewCount, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := r.client.ZRevRangeWithScores(ctx, viewsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.ViewCount, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, domain.ViewCount{AssemblyID: id, Views: int64(z.Score)})
	}
	return out, nil
}

// Views returns the current counter of one assembly.
func (r *RedisAdapter) Views(ctx context.Context, assemblyID string) (int64, error) {
	score, err := r.client.ZScore(ctx, viewsKey, assemblyID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(score), nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
