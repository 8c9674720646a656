package tradedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore GORM 交易数据库实现
type GormStore struct {
	db *gorm.DB
}

// DBConfig 数据库配置
type DBConfig struct {
	Type            string        // sqlite, postgres, mysql
	DSN             string        // 数据源名称
	MaxOpenConns    int           // 最大打开连接数
	MaxIdleConns    int           // 最大空闲连接数
	ConnMaxLifetime time.Duration // 连接最大生命周期
	LogLevel        string        // 日志级别: silent, error, warn, info
}

// NewGormStore 创建 GORM 交易数据库实例
func NewGormStore(config *DBConfig) (*GormStore, error) {
	var dialector gorm.Dialector

	switch config.Type {
	case "sqlite":
		dialector = sqlite.Open(config.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(config.DSN)
	case "mysql":
		dialector = mysql.Open(config.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	// 日志级别
	logLevel := logger.Silent
	switch config.LogLevel {
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	}

	// 打开数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 获取底层 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	// 自动迁移
	if err := db.AutoMigrate(
		&AccountRecord{},
		&AccountHistoryRecord{},
		&SignalRecord{},
		&EntrustRecord{},
		&DealRecord{},
		&PositionRecord{},
		&StrategyInfoRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

// upsert 按自然键列冲突时整行覆盖
func (g *GormStore) upsert(ctx context.Context, rec interface{}, keys ...string) error {
	columns := make([]clause.Column, 0, len(keys))
	for _, k := range keys {
		columns = append(columns, clause.Column{Name: k})
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   columns,
		UpdateAll: true,
	}).Create(rec).Error
}

// SaveAccount 保存账户，按 account_id 幂等覆盖
func (g *GormStore) SaveAccount(ctx context.Context, rec *AccountRecord) error {
	return g.upsert(ctx, rec, "account_id")
}

// LoadAccounts 查询账户
func (g *GormStore) LoadAccounts(ctx context.Context, filter AccountFilter) ([]*AccountRecord, error) {
	query := g.db.WithContext(ctx).Model(&AccountRecord{})

	if filter.AccountID != "" {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var recs []*AccountRecord
	if err := query.Order("update_time DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return recs, nil
}

// SaveAccountHistory 保存账户日结，按 (account_id, end_time) 幂等覆盖
func (g *GormStore) SaveAccountHistory(ctx context.Context, rec *AccountHistoryRecord) error {
	return g.upsert(ctx, rec, "account_id", "end_time")
}

// LoadAccountHistory 按结束时间升序查询账户日结
func (g *GormStore) LoadAccountHistory(ctx context.Context, accountID string) ([]*AccountHistoryRecord, error) {
	var recs []*AccountHistoryRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("end_time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load account history: %w", err)
	}
	return recs, nil
}

// SaveSignal 保存信号，按 signal_id 幂等覆盖
func (g *GormStore) SaveSignal(ctx context.Context, rec *SignalRecord) error {
	return g.upsert(ctx, rec, "signal_id")
}

// LoadSignals 查询信号
func (g *GormStore) LoadSignals(ctx context.Context, accountID string) ([]*SignalRecord, error) {
	var recs []*SignalRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}
	return recs, nil
}

// SaveEntrust 保存委托，按 entrust_id 幂等覆盖
func (g *GormStore) SaveEntrust(ctx context.Context, rec *EntrustRecord) error {
	return g.upsert(ctx, rec, "entrust_id")
}

// LoadEntrusts 查询委托
func (g *GormStore) LoadEntrusts(ctx context.Context, accountID string) ([]*EntrustRecord, error) {
	var recs []*EntrustRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load entrusts: %w", err)
	}
	return recs, nil
}

// SaveDeal 保存成交，按 deal_id 幂等覆盖
func (g *GormStore) SaveDeal(ctx context.Context, rec *DealRecord) error {
	return g.upsert(ctx, rec, "deal_id")
}

// LoadDeals 查询成交
func (g *GormStore) LoadDeals(ctx context.Context, accountID string) ([]*DealRecord, error) {
	var recs []*DealRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	return recs, nil
}

// SavePosition 保存持仓，按 position_id 幂等覆盖
func (g *GormStore) SavePosition(ctx context.Context, rec *PositionRecord) error {
	return g.upsert(ctx, rec, "position_id")
}

// LoadPositions 查询持仓
func (g *GormStore) LoadPositions(ctx context.Context, accountID string) ([]*PositionRecord, error) {
	var recs []*PositionRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	return recs, nil
}

// DeletePosition 删除持仓，清仓时调用
func (g *GormStore) DeletePosition(ctx context.Context, positionID string) error {
	err := g.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Delete(&PositionRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// SaveStrategyInfo 保存账户策略绑定，按 account_id 幂等覆盖
func (g *GormStore) SaveStrategyInfo(ctx context.Context, rec *StrategyInfoRecord) error {
	return g.upsert(ctx, rec, "account_id")
}

// LoadStrategyInfo 查询账户策略绑定，无记录返回 nil
func (g *GormStore) LoadStrategyInfo(ctx context.Context, accountID string) (*StrategyInfoRecord, error) {
	var rec StrategyInfoRecord
	err := g.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy info: %w", err)
	}
	return &rec, nil
}

// Close 关闭数据库连接
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
