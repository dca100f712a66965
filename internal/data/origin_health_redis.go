package data

import (
	"context"
	"encoding/json"
	"fmt"

	"ScoutBot/internal/conf"
	"ScoutBot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "scoutbot:origin:"

// RedisHealthRepo persists one JSON document per origin plus an index set of
// tracked origins.
//
// Redis key structure:
//   - {prefix}{origin}: JSON-encoded model.OriginHealth
//   - {prefix}index: SET of origin keys
type RedisHealthRepo struct {
	rdb    *redis.Client
	prefix string
	logger *log.Helper
}

// NewRedisHealthRepo creates the Redis repo. It returns nil when rdb is nil.
func NewRedisHealthRepo(rdb *redis.Client, c *conf.Data, logger log.Logger) *RedisHealthRepo {
	if rdb == nil {
		return nil
	}
	prefix := defaultRedisKeyPrefix
	if c != nil && c.Redis != nil && c.Redis.KeyPrefix != "" {
		prefix = c.Redis.KeyPrefix
	}
	return &RedisHealthRepo{
		rdb:    rdb,
		prefix: prefix,
		logger: log.NewHelper(logger),
	}
}

func (r *RedisHealthRepo) recordKey(origin string) string {
	return r.prefix + origin
}

func (r *RedisHealthRepo) indexKey() string {
	return r.prefix + "index"
}

// LoadAll reads every indexed record. Index entries whose document is gone are pruned.
func (r *RedisHealthRepo) LoadAll(ctx context.Context) ([]*model.OriginHealth, error) {
	origins, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read origin index: %w", err)
	}
	if len(origins) == 0 {
		return nil, nil
	}

	keys := make([]string, len(origins))
	for i, origin := range origins {
		keys[i] = r.recordKey(origin)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read origin records: %w", err)
	}

	records := make([]*model.OriginHealth, 0, len(values))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, origins[i])
			continue
		}

		var h model.OriginHealth
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			r.logger.Warnw("msg", "skipping corrupt origin record", "origin", origins[i], "error", err)
			stale = append(stale, origins[i])
			continue
		}
		records = append(records, &h)
	}

	if len(stale) > 0 {
		if err := r.rdb.SRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			r.logger.Warnw("msg", "failed to prune origin index", "count", len(stale), "error", err)
		}
	}

	return records, nil
}

// Save writes the record and indexes its origin.
func (r *RedisHealthRepo) Save(ctx context.Context, h *model.OriginHealth) error {
	payload, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode origin record: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.recordKey(h.Origin), payload, 0)
	pipe.SAdd(ctx, r.indexKey(), h.Origin)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save origin record: %w", err)
	}
	return nil
}

// Delete removes the record and its index entry. Deleting a missing origin is not an error.
func (r *RedisHealthRepo) Delete(ctx context.Context, origin string) error {
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.recordKey(origin))
	pipe.SRem(ctx, r.indexKey(), origin)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete origin record: %w", err)
	}
	return nil
}
