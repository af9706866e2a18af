package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crptapi/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps the journal in Redis. Each submission is stored as a JSON
// string under <prefix>:<id> and indexed in the sorted set <prefix>:index,
// scored by creation time in microseconds. The index is trimmed to MaxEntries
// on every write.
type RedisStorage struct {
	rdb        *redis.Client
	prefix     string
	maxEntries int64
}

// NewRedisStorage connects to the configured Redis server.
func NewRedisStorage(config Config) (*RedisStorage, error) {
	if config.Redis.Addr == "" {
		return nil, fmt.Errorf("address is required for Redis storage")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisStorageFromClient(rdb, config.Redis.KeyPrefix, config.Redis.MaxEntries), nil
}

// NewRedisStorageFromClient wraps an existing client. An empty prefix defaults
// to "crptapi:submissions"; maxEntries <= 0 disables trimming.
func NewRedisStorageFromClient(rdb *redis.Client, prefix string, maxEntries int64) *RedisStorage {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "crptapi:submissions"
	}
	return &RedisStorage{
		rdb:        rdb,
		prefix:     prefix,
		maxEntries: maxEntries,
	}
}

func (rs *RedisStorage) key(id string) string {
	return rs.prefix + ":" + id
}

func (rs *RedisStorage) indexKey() string {
	return rs.prefix + ":index"
}

// RecordSubmission stores sub and adds it to the index.
func (rs *RedisStorage) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	score := float64(sub.CreatedAt.UnixMicro())
	pipe := rs.rdb.TxPipeline()
	stored := pipe.SetNX(ctx, rs.key(sub.ID), data, 0)
	pipe.ZAddNX(ctx, rs.indexKey(), redis.Z{Score: score, Member: sub.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		if stored.Val() {
			// Stored but not indexed.
			if delErr := rs.rdb.Del(ctx, rs.key(sub.ID)).Err(); delErr != nil {
				err = errors.Join(err, delErr)
			}
		}
		return fmt.Errorf("failed to store submission: %w", err)
	}
	if !stored.Val() {
		return ErrAlreadyExists
	}

	return rs.trim(ctx)
}

// trim drops the oldest entries beyond maxEntries.
func (rs *RedisStorage) trim(ctx context.Context) error {
	if rs.maxEntries <= 0 {
		return nil
	}

	total, err := rs.rdb.ZCard(ctx, rs.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to count submissions: %w", err)
	}
	excess := total - rs.maxEntries
	if excess <= 0 {
		return nil
	}

	ids, err := rs.rdb.ZRange(ctx, rs.indexKey(), 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("failed to read oldest submissions: %w", err)
	}

	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = rs.key(id)
		members[i] = id
	}

	pipe := rs.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, rs.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to trim journal: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by its ID.
func (rs *RedisStorage) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	data, err := rs.rdb.Get(ctx, rs.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return decodeSubmission(data)
}

// Submissions returns up to limit submissions, newest first.
func (rs *RedisStorage) Submissions(ctx context.Context, limit int) ([]*models.Submission, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := rs.rdb.ZRevRange(ctx, rs.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	subs := make([]*models.Submission, 0, len(ids))
	if len(ids) == 0 {
		return subs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rs.key(id)
	}
	values, err := rs.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Entry expired or was removed between the index read and MGET.
			continue
		}
		sub, err := decodeSubmission([]byte(s))
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Count returns the number of indexed submissions.
func (rs *RedisStorage) Count(ctx context.Context) (int, error) {
	n, err := rs.rdb.ZCard(ctx, rs.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return int(n), nil
}

// Ping verifies the Redis server is reachable.
func (rs *RedisStorage) Ping(ctx context.Context) error {
	return rs.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (rs *RedisStorage) Close() error {
	return rs.rdb.Close()
}

func decodeSubmission(data []byte) (*models.Submission, error) {
	var sub models.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	return &sub, nil
}
