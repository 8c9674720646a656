package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"ssquant/config"
)

// DistributedLock 账户单实例锁接口
//
// 实盘/模拟盘部署时, 同一账户只允许一个交易进程接管, 否则资金与持仓
// 会被并发修改。回测或单机部署使用 NopLock 即可。
type DistributedLock interface {
	// Lock 获取锁, 阻塞直到成功或 ctx 取消
	Lock(ctx context.Context, key string, ttl time.Duration) error

	// TryLock 尝试获取锁, 立即返回
	// 返回 true 表示成功获取锁, false 表示锁已被其他进程持有
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error

	// Extend 延长锁的过期时间(守护协程定期续期)
	Extend(ctx context.Context, key string, ttl time.Duration) error

	// Close 关闭连接
	Close() error
}

// AccountKey 账户锁的键名
func AccountKey(accountID string) string {
	return "account:" + accountID
}

// New 根据配置创建锁实例, 未启用时返回 NopLock(单实例模式)
func New(cfg *config.Config) (DistributedLock, error) {
	if !cfg.Lock.Enabled {
		return NewNopLock(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Lock.Redis.Addr,
		Password: cfg.Lock.Redis.Password,
		DB:       cfg.Lock.Redis.DB,
		PoolSize: cfg.Lock.Redis.PoolSize,
	})

	return NewRedisLock(client, cfg.Lock.Prefix), nil
}

// NopLock 空实现(单实例模式)
type NopLock struct{}

func NewNopLock() *NopLock {
	return &NopLock{}
}

func (n *NopLock) Lock(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (n *NopLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (n *NopLock) Unlock(ctx context.Context, key string) error {
	return nil
}

func (n *NopLock) Extend(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (n *NopLock) Close() error {
	return nil
}
