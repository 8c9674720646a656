package tradedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewGormStore(&DBConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "trade.db"),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAccountUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &AccountRecord{
		AccountID: "acct1", Category: "stock", Type: "simulate",
		CashInit: 100000, CashAvailable: 100000, TotalNetValue: 100000,
		UpdateTime: time.Now(),
	}
	if err := store.SaveAccount(ctx, rec); err != nil {
		t.Fatalf("保存账户失败: %v", err)
	}

	// 同一自然键重复保存覆盖旧值
	updated := &AccountRecord{
		AccountID: "acct1", Category: "stock", Type: "simulate",
		CashInit: 100000, CashAvailable: 80000, CashFrozen: 20000,
		TotalNetValue: 100000, UpdateTime: time.Now(),
	}
	if err := store.SaveAccount(ctx, updated); err != nil {
		t.Fatalf("重复保存账户失败: %v", err)
	}

	accounts, err := store.LoadAccounts(ctx, AccountFilter{AccountID: "acct1"})
	if err != nil {
		t.Fatalf("查询账户失败: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("幂等保存后应只有1条记录, 实际 %d", len(accounts))
	}
	if accounts[0].CashAvailable != 80000 || accounts[0].CashFrozen != 20000 {
		t.Errorf("覆盖后的资金不正确: %+v", accounts[0])
	}

	// 过滤条件
	status := 1
	accounts, err = store.LoadAccounts(ctx, AccountFilter{AccountID: "acct1", Status: &status})
	if err != nil {
		t.Fatalf("查询账户失败: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("状态过滤应为空, 实际 %d 条", len(accounts))
	}
	t.Log("✅ 账户按自然键幂等覆盖")
}

func TestEntrustDealRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entrust := &EntrustRecord{
		AccountID: "acct1", EntrustID: "e1", Code: "sh600000",
		Type: "buy", Status: "init", Price: 10, Volume: 200, Time: &now,
	}
	if err := store.SaveEntrust(ctx, entrust); err != nil {
		t.Fatalf("保存委托失败: %v", err)
	}

	// 状态流转后重复保存
	entrust = &EntrustRecord{
		AccountID: "acct1", EntrustID: "e1", Code: "sh600000",
		Type: "buy", Status: "deal", Price: 10, Volume: 200, VolumeDeal: 200, Time: &now,
	}
	if err := store.SaveEntrust(ctx, entrust); err != nil {
		t.Fatalf("更新委托失败: %v", err)
	}

	entrusts, err := store.LoadEntrusts(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询委托失败: %v", err)
	}
	if len(entrusts) != 1 || entrusts[0].Status != "deal" || entrusts[0].VolumeDeal != 200 {
		t.Errorf("委托状态流转不正确: %+v", entrusts)
	}

	deal := &DealRecord{
		AccountID: "acct1", DealID: "d1", EntrustID: "e1",
		Code: "sh600000", Type: "buy", Price: 10, Volume: 200, Fee: 5.04, Time: &now,
	}
	if err := store.SaveDeal(ctx, deal); err != nil {
		t.Fatalf("保存成交失败: %v", err)
	}
	deals, err := store.LoadDeals(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询成交失败: %v", err)
	}
	if len(deals) != 1 || deals[0].Fee != 5.04 {
		t.Errorf("成交记录不正确: %+v", deals)
	}
}

func TestPositionDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pos := &PositionRecord{
		AccountID: "acct1", PositionID: "p1", Code: "sh600000",
		Volume: 200, VolumeFrozen: 200, Price: 10.0252,
	}
	if err := store.SavePosition(ctx, pos); err != nil {
		t.Fatalf("保存持仓失败: %v", err)
	}

	positions, err := store.LoadPositions(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询持仓失败: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("应有1条持仓, 实际 %d", len(positions))
	}

	if err := store.DeletePosition(ctx, "p1"); err != nil {
		t.Fatalf("删除持仓失败: %v", err)
	}
	positions, err = store.LoadPositions(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询持仓失败: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("清仓后持仓应删除, 实际 %d 条", len(positions))
	}
}

func TestStrategyInfoMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.LoadStrategyInfo(ctx, "no_such_acct")
	if err != nil {
		t.Fatalf("缺失策略信息不应报错: %v", err)
	}
	if info != nil {
		t.Errorf("缺失策略信息应返回 nil, 实际 %+v", info)
	}

	rec := &StrategyInfoRecord{
		AccountID: "acct1", StrategyID: "builtin:DipBuyer",
		BrokerID: "builtin:BrokerSimulate", RiskID: "builtin:SimpleStop",
	}
	if err := store.SaveStrategyInfo(ctx, rec); err != nil {
		t.Fatalf("保存策略信息失败: %v", err)
	}
	info, err = store.LoadStrategyInfo(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询策略信息失败: %v", err)
	}
	if info == nil || info.StrategyID != "builtin:DipBuyer" {
		t.Errorf("策略信息不正确: %+v", info)
	}
}

func TestAccountHistoryOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, day := range []int{6, 4, 5} {
		end := time.Date(2024, 3, day, 15, 0, 0, 0, time.Local)
		rec := &AccountHistoryRecord{
			AccountID: "acct1", TotalNetValue: float64(100000 + day), EndTime: &end,
		}
		if err := store.SaveAccountHistory(ctx, rec); err != nil {
			t.Fatalf("保存日结失败: %v", err)
		}
	}

	history, err := store.LoadAccountHistory(ctx, "acct1")
	if err != nil {
		t.Fatalf("查询日结失败: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("应有3条日结, 实际 %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].EndTime.Before(*history[i-1].EndTime) {
			t.Errorf("日结应按结束时间升序: %v", history)
		}
	}
}
