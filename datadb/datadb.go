package datadb

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

// DataDB 行情与基础数据访问接口
type DataDB interface {
	// GetName 查证券名称，查不到返回空串不报错
	GetName(ctx context.Context, code string) (string, error)
	// LoadKlines 按日期升序加载 [start, end] 区间日线
	LoadKlines(ctx context.Context, code string, start, end time.Time) ([]*KlineRecord, error)
	// TradeDates 区间内有行情的交易日，升序去重
	TradeDates(ctx context.Context, codes []string, start, end time.Time) ([]time.Time, error)
	Close() error
}

// GormDataDB GORM 行情数据库实现
type GormDataDB struct {
	db *gorm.DB
}

// NewGormDataDB 创建行情数据库实例
func NewGormDataDB(dbType, dsn string) (*GormDataDB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open data database: %w", err)
	}

	if err := db.AutoMigrate(&InstrumentRecord{}, &KlineRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormDataDB{db: db}, nil
}

// GetName 查证券名称
func (g *GormDataDB) GetName(ctx context.Context, code string) (string, error) {
	var rec InstrumentRecord
	err := g.db.WithContext(ctx).Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get instrument name: %w", err)
	}
	return rec.Name, nil
}

// LoadKlines 加载日线
func (g *GormDataDB) LoadKlines(ctx context.Context, code string, start, end time.Time) ([]*KlineRecord, error) {
	var recs []*KlineRecord
	err := g.db.WithContext(ctx).
		Where("code = ? AND trade_date >= ? AND trade_date <= ?", code, start, end).
		Order("trade_date ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load klines: %w", err)
	}
	return recs, nil
}

// TradeDates 区间交易日
func (g *GormDataDB) TradeDates(ctx context.Context, codes []string, start, end time.Time) ([]time.Time, error) {
	var dates []time.Time
	query := g.db.WithContext(ctx).Model(&KlineRecord{}).
		Where("trade_date >= ? AND trade_date <= ?", start, end)
	if len(codes) > 0 {
		query = query.Where("code IN ?", codes)
	}
	err := query.Distinct("trade_date").Order("trade_date ASC").Pluck("trade_date", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trade dates: %w", err)
	}
	return dates, nil
}

// SaveInstrument 写入证券基础信息，按 code 幂等覆盖，数据导入工具使用
func (g *GormDataDB) SaveInstrument(ctx context.Context, rec *InstrumentRecord) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// SaveKline 写入日线，按 (code, trade_date) 幂等覆盖
func (g *GormDataDB) SaveKline(ctx context.Context, rec *KlineRecord) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}, {Name: "trade_date"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// Close 关闭数据库连接
func (g *GormDataDB) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
