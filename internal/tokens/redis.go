package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultRedisPrefix — префикс ключей, если не задан в конфигурации.
const defaultRedisPrefix = "expense:tokens:"

// setAccessScript обновляет access только при наличии refresh,
// иначе пара могла бы «воскреснуть» после Clear из другого процесса.
// Новый access живёт ровно столько, сколько осталось refresh: ключи
// истекают вместе. KEYS[1] — access, KEYS[2] — refresh, ARGV[1] — токен.
var setAccessScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[2])
if ttl == -2 then
	return 0
end
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisStore — хранилище токенов в Redis: два строковых ключа
// <prefix>access_token и <prefix>refresh_token. Позволяет нескольким
// процессам одного пользователя делить сессию.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore оборачивает готовый клиент. ttl <= 0 — ключи без срока жизни.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	if ttl < 0 {
		ttl = 0
	}

	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// OpenRedis создаёт клиент из URL (redis://:pass@host:6379/0) и проверяет доступность.
func OpenRedis(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	const op = "tokens.OpenRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewRedisStore(rdb, prefix, ttl), nil
}

func (s *RedisStore) key(slot string) string { return s.prefix + slot }

func (s *RedisStore) Set(ctx context.Context, access, refresh string) error {
	const op = "tokens.RedisStore.Set"

	if err := checkPair(access, refresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(KeyAccess), access, s.ttl)
	pipe.Set(ctx, s.key(KeyRefresh), refresh, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *RedisStore) SetAccess(ctx context.Context, access string) error {
	const op = "tokens.RedisStore.SetAccess"

	if access == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	keys := []string{s.key(KeyAccess), s.key(KeyRefresh)}
	ok, err := setAccessScript.Run(ctx, s.rdb, keys, access).Int()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if ok == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoRefresh)
	}

	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	const op = "tokens.RedisStore.Clear"

	if err := s.rdb.Del(ctx, s.key(KeyAccess), s.key(KeyRefresh)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *RedisStore) Access(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccess)
}

func (s *RedisStore) Refresh(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefresh)
}

func (s *RedisStore) get(ctx context.Context, slot string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("tokens.RedisStore.get %s: %w", slot, err)
	}

	return v, nil
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ Store = (*RedisStore)(nil)
