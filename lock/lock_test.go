package lock

import (
	"context"
	"testing"
	"time"

	"ssquant/config"
)

func TestAccountKey(t *testing.T) {
	if key := AccountKey("test_acct"); key != "account:test_acct" {
		t.Errorf("账户锁键名不对: %s", key)
	}
	t.Log("✅ 账户锁键名正确")
}

func TestNewDisabledReturnsNop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Lock.Enabled = false

	l, err := New(cfg)
	if err != nil {
		t.Fatalf("创建锁失败: %v", err)
	}
	if _, ok := l.(*NopLock); !ok {
		t.Fatalf("未启用时应为空锁: %T", l)
	}
	t.Log("✅ 未启用分布式锁时走单实例模式")
}

func TestNopLockAlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	l := NewNopLock()

	if err := l.Lock(ctx, "account:a", time.Second); err != nil {
		t.Fatalf("空锁Lock失败: %v", err)
	}
	ok, err := l.TryLock(ctx, "account:a", time.Second)
	if err != nil || !ok {
		t.Fatalf("空锁TryLock应始终成功: ok=%v, err=%v", ok, err)
	}
	if err := l.Extend(ctx, "account:a", time.Second); err != nil {
		t.Fatalf("空锁Extend失败: %v", err)
	}
	if err := l.Unlock(ctx, "account:a"); err != nil {
		t.Fatalf("空锁Unlock失败: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("空锁Close失败: %v", err)
	}
	t.Log("✅ 空锁全部操作直通")
}
