package tradedb

import (
	"context"
)

// AccountFilter 账户查询条件，零值字段不参与过滤
type AccountFilter struct {
	AccountID string
	Type      string
	Status    *int
}

// Store 交易数据持久层。所有 Save 按实体自然键幂等，重复保存覆盖旧值。
type Store interface {
	SaveAccount(ctx context.Context, rec *AccountRecord) error
	LoadAccounts(ctx context.Context, filter AccountFilter) ([]*AccountRecord, error)

	SaveAccountHistory(ctx context.Context, rec *AccountHistoryRecord) error
	LoadAccountHistory(ctx context.Context, accountID string) ([]*AccountHistoryRecord, error)

	SaveSignal(ctx context.Context, rec *SignalRecord) error
	LoadSignals(ctx context.Context, accountID string) ([]*SignalRecord, error)

	SaveEntrust(ctx context.Context, rec *EntrustRecord) error
	LoadEntrusts(ctx context.Context, accountID string) ([]*EntrustRecord, error)

	SaveDeal(ctx context.Context, rec *DealRecord) error
	LoadDeals(ctx context.Context, accountID string) ([]*DealRecord, error)

	SavePosition(ctx context.Context, rec *PositionRecord) error
	LoadPositions(ctx context.Context, accountID string) ([]*PositionRecord, error)
	DeletePosition(ctx context.Context, positionID string) error

	SaveStrategyInfo(ctx context.Context, rec *StrategyInfoRecord) error
	LoadStrategyInfo(ctx context.Context, accountID string) (*StrategyInfoRecord, error)

	Close() error
}

// NopStore 丢弃所有写入，回测模式使用，避免回测数据污染数据库
type NopStore struct{}

// NewNopStore 创建空持久层
func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) SaveAccount(ctx context.Context, rec *AccountRecord) error { return nil }

func (s *NopStore) LoadAccounts(ctx context.Context, filter AccountFilter) ([]*AccountRecord, error) {
	return nil, nil
}

func (s *NopStore) SaveAccountHistory(ctx context.Context, rec *AccountHistoryRecord) error {
	return nil
}

func (s *NopStore) LoadAccountHistory(ctx context.Context, accountID string) ([]*AccountHistoryRecord, error) {
	return nil, nil
}

func (s *NopStore) SaveSignal(ctx context.Context, rec *SignalRecord) error { return nil }

func (s *NopStore) LoadSignals(ctx context.Context, accountID string) ([]*SignalRecord, error) {
	return nil, nil
}

func (s *NopStore) SaveEntrust(ctx context.Context, rec *EntrustRecord) error { return nil }

func (s *NopStore) LoadEntrusts(ctx context.Context, accountID string) ([]*EntrustRecord, error) {
	return nil, nil
}

func (s *NopStore) SaveDeal(ctx context.Context, rec *DealRecord) error { return nil }

func (s *NopStore) LoadDeals(ctx context.Context, accountID string) ([]*DealRecord, error) {
	return nil, nil
}

func (s *NopStore) SavePosition(ctx context.Context, rec *PositionRecord) error { return nil }

func (s *NopStore) LoadPositions(ctx context.Context, accountID string) ([]*PositionRecord, error) {
	return nil, nil
}

func (s *NopStore) DeletePosition(ctx context.Context, positionID string) error { return nil }

func (s *NopStore) SaveStrategyInfo(ctx context.Context, rec *StrategyInfoRecord) error { return nil }

func (s *NopStore) LoadStrategyInfo(ctx context.Context, accountID string) (*StrategyInfoRecord, error) {
	return nil, nil
}

func (s *NopStore) Close() error { return nil }
