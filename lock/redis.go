package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock Redis 分布式锁实现
type RedisLock struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string // 持有的锁 key -> token
}

// NewRedisLock 创建 Redis 分布式锁
func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// newToken 为每把锁生成唯一 token, 防止误释放他人的锁
func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Lock 获取锁, 阻塞直到成功或 ctx 取消
func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) error {
	lockKey := r.prefix + key
	token := newToken()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			r.remember(key, token)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryLock 尝试获取锁, 立即返回
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := r.prefix + key
	token := newToken()

	ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		r.remember(key, token)
	}
	return ok, nil
}

// 只有持有者才能操作锁, Lua 保证 get+del/expire 原子
const (
	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	extendScript  = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("expire", KEYS[1], ARGV[2]) else return 0 end`
)

// evalOwned 以持有者身份执行脚本, 锁丢失或过期时报错
func (r *RedisLock) evalOwned(ctx context.Context, script, key string, extra ...interface{}) error {
	token, held := r.token(key)
	if !held {
		return fmt.Errorf("lock not held: %s", key)
	}
	args := append([]interface{}{token}, extra...)
	result, err := r.client.Eval(ctx, script, []string{r.prefix + key}, args...).Result()
	if err != nil {
		return fmt.Errorf("redis eval failed: %w", err)
	}
	if n, _ := result.(int64); n == 0 {
		return fmt.Errorf("lock not held or expired: %s", key)
	}
	return nil
}

// Unlock 释放锁
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	if err := r.evalOwned(ctx, releaseScript, key); err != nil {
		return err
	}
	r.forget(key)
	return nil
}

// Extend 延长锁的过期时间
func (r *RedisLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	return r.evalOwned(ctx, extendScript, key, int(ttl.Seconds()))
}

// Close 关闭连接
func (r *RedisLock) Close() error {
	return r.client.Close()
}

func (r *RedisLock) remember(key, token string) {
	r.mu.Lock()
	r.tokens[key] = token
	r.mu.Unlock()
}

func (r *RedisLock) token(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[key]
	return t, ok
}

func (r *RedisLock) forget(key string) {
	r.mu.Lock()
	delete(r.tokens, key)
	r.mu.Unlock()
}
