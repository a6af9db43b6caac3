package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend 以字符串保存快照。是否新鲜由快照里的写入时间判断，
// redis 的 TTL 只决定过期快照作为回退数据保留多久
type RedisBackend struct {
	client *redis.Client
	prefix string
	retain time.Duration
}

func NewRedisBackend(client *redis.Client, prefix string, retain time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, retain: retain}
}

func (r *RedisBackend) key(namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, namespace, key)
}

func (r *RedisBackend) indexKey(namespace string) string {
	return fmt.Sprintf("%s:%s:index", r.prefix, namespace)
}

func (r *RedisBackend) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.key(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, namespace, key string, payload []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(namespace, key), payload, r.retain)
	pipe.SAdd(ctx, r.indexKey(namespace), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisBackend) Delete(ctx context.Context, namespace, key string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(namespace, key))
	pipe.SRem(ctx, r.indexKey(namespace), key)
	_, err := pipe.Exec(ctx)
	return err
}

// Keys 列出 namespace 下写过的 key（已被 TTL 淘汰的可能仍在索引里）
func (r *RedisBackend) Keys(ctx context.Context, namespace string) ([]string, error) {
	return r.client.SMembers(ctx, r.indexKey(namespace)).Result()
}
