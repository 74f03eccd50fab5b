package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

const (
	outputIndexKey  = "outputs:by_expiry"
	outputKeyPrefix = "output:"
)

// RedisRegistry shares records between server instances: a hash per output
// plus a sorted set scored by expiry time.
type RedisRegistry struct {
	client    *redis.Client
	outputDir string
}

func NewRedisRegistry(client *redis.Client, outputDir string) *RedisRegistry {
	return &RedisRegistry{client: client, outputDir: outputDir}
}

func (r *RedisRegistry) Register(ctx context.Context, rec models.OutputRecord) error {
	key := outputKeyPrefix + rec.Filename
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"title":      rec.Title,
		"created_at": rec.CreatedAt.Unix(),
		"expires_at": rec.ExpiresAt.Unix(),
	})
	pipe.ExpireAt(ctx, key, rec.ExpiresAt)
	pipe.ZAdd(ctx, outputIndexKey, redis.Z{Score: float64(rec.ExpiresAt.Unix()), Member: rec.Filename})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to register output: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, filename string) (*models.OutputRecord, error) {
	fields, err := r.client.HGetAll(ctx, outputKeyPrefix+filename).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	created, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	expires, _ := strconv.ParseInt(fields["expires_at"], 10, 64)
	return &models.OutputRecord{
		Filename:  filename,
		Title:     fields["title"],
		CreatedAt: time.Unix(created, 0),
		ExpiresAt: time.Unix(expires, 0),
	}, nil
}

func (r *RedisRegistry) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	max := strconv.FormatInt(now.Unix(), 10)
	names, err := r.client.ZRangeByScore(ctx, outputIndexKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list expired outputs: %w", err)
	}

	purged := 0
	for _, name := range names {
		// Only the instance that wins the ZREM deletes the file.
		removed, err := r.client.ZRem(ctx, outputIndexKey, name).Result()
		if err != nil || removed == 0 {
			continue
		}
		r.client.Del(ctx, outputKeyPrefix+name)
		removeOutput(r.outputDir, name)
		purged++
	}
	return purged, nil
}
