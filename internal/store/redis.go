package store

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a model.Store on top of redis sorted sets, lists and hashes.
// It uses the key layout of the desktop lab, except that the outgoing TLS table
// is named TLS:ServerName instead of TLS:CommonName.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) IncrementScore(ctx context.Context, key model.TableKey, value string, by float64) (float64, error) {
	score, err := s.client.ZIncrBy(ctx, key.String(), by, value).Result()
	if err != nil {
		return 0, fmt.Errorf("zincrby %s: %w", key, err)
	}
	return score, nil
}

func (s *RedisStore) Score(ctx context.Context, key model.TableKey, value string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, key.String(), value).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zscore %s: %w", key, err)
	}
	return score, true, nil
}

func (s *RedisStore) Count(ctx context.Context, key model.TableKey) (int, error) {
	n, err := s.client.ZCard(ctx, key.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", key, err)
	}
	return int(n), nil
}

func (s *RedisStore) Best(ctx context.Context, key model.TableKey) (model.Entry, bool, error) {
	entries, err := s.Scan(ctx, key)
	if err != nil || len(entries) == 0 {
		return model.Entry{}, false, err
	}
	return entries[0], true, nil
}

// Scan reads the whole sorted set and reorders it by value; redis orders by score.
func (s *RedisStore) Scan(ctx context.Context, key model.TableKey) ([]model.Entry, error) {
	members, err := s.client.ZRangeWithScores(ctx, key.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", key, err)
	}
	entries := make([]model.Entry, 0, len(members))
	for _, z := range members {
		entries = append(entries, model.Entry{Value: fmt.Sprint(z.Member), Score: z.Score})
	}
	SortEntries(key.Feature, entries)
	return entries, nil
}

func (s *RedisStore) QueueLen(ctx context.Context, key string) (int, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return int(n), nil
}

func (s *RedisStore) PopFront(ctx context.Context, key string) (string, bool, error) {
	id, err := s.client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lpop %s: %w", key, err)
	}
	return id, true, nil
}

func (s *RedisStore) QueueAt(ctx context.Context, key string, index int) (string, bool, error) {
	id, err := s.client.LIndex(ctx, key, int64(index)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lindex %s: %w", key, err)
	}
	return id, true, nil
}

func (s *RedisStore) PushBack(ctx context.Context, key string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	if err := s.client.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetField(ctx context.Context, key, field string) ([]byte, bool, error) {
	value, err := s.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("hget %s %s: %w", key, field, err)
	}
	return value, true, nil
}

func (s *RedisStore) SetField(ctx context.Context, key, field string, value []byte) error {
	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s %s: %w", key, field, err)
	}
	return nil
}

func (s *RedisStore) IncrField(ctx context.Context, key, field string, by float64) (float64, error) {
	value, err := s.client.HIncrByFloat(ctx, key, field, by).Result()
	if err != nil {
		return 0, fmt.Errorf("hincrbyfloat %s %s: %w", key, field, err)
	}
	return value, nil
}

func (s *RedisStore) Fields(ctx context.Context, key string) (map[string][]byte, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	out := make(map[string][]byte, len(values))
	for field, value := range values {
		out[field] = []byte(value)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Reset flushes the selected redis database.
func (s *RedisStore) Reset(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
