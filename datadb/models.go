package datadb

import (
	"time"
)

// InstrumentRecord 证券基础信息
type InstrumentRecord struct {
	ID       int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	Code     string     `gorm:"uniqueIndex;size:16" json:"code"` // sh600063 / sz000001 等
	Name     string     `gorm:"size:32" json:"name"`
	Category string     `gorm:"index;size:16" json:"category"`   // stock / fund
	ListDate *time.Time `json:"list_date"`
}

// KlineRecord 日线行情
type KlineRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	Code      string    `gorm:"uniqueIndex:idx_code_date,priority:1;size:16" json:"code"`
	TradeDate time.Time `gorm:"uniqueIndex:idx_code_date,priority:2;index" json:"trade_date"`

	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`

	Volume    int64   `json:"volume"`
	Amount    float64 `json:"amount"`
	Turnover  float64 `json:"turnover"`
	LastClose float64 `json:"last_close"`
}
