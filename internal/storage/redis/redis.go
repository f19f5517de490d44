package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"board_service/internal/models"

	"github.com/redis/go-redis/v9"
)

// identityTTL bounds how long a resolved token may be served from the
// cache. Every revocation path also deletes the entry explicitly, so
// the TTL only covers entries the process failed to invalidate.
const identityTTL = 5 * time.Minute

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * Identity возвращает закешированную личность по ключу токена.
func (r *RedisRepo) Identity(ctx context.Context, key string) (models.Identity, bool, error) {
	const op = "storage.redis.Identity"

	data, err := r.client.Get(ctx, tokenKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Identity{}, false, nil
		}

		return models.Identity{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return models.Identity{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return identity, true, nil
}

// * SaveIdentity кеширует разрешённый токен.
func (r *RedisRepo) SaveIdentity(ctx context.Context, identity models.Identity) error {
	const op = "storage.redis.SaveIdentity"

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.client.Set(ctx, tokenKey(identity.Token.Key), data, identityTTL).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Invalidate удаляет записи кеша по ключам токенов.
func (r *RedisRepo) Invalidate(ctx context.Context, keys ...string) error {
	const op = "storage.redis.Invalidate"

	if len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, tokenKey(key))
	}

	if err := r.client.Del(ctx, cacheKeys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func tokenKey(key string) string {
	return fmt.Sprintf("token:%s", key)
}
