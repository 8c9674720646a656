package tradedb

import (
	"time"
)

// AccountRecord 账户信息
type AccountRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID string `gorm:"uniqueIndex;size:64" json:"account_id"`
	Status    int    `gorm:"index" json:"status"` // 0正常 其他停止
	Category  string `gorm:"size:16" json:"category"`
	Type      string `gorm:"index;size:16" json:"type"` // backtest / simulate / realtime

	CashInit      float64 `json:"cash_init"`
	CashAvailable float64 `json:"cash_available"`
	CashFrozen    float64 `json:"cash_frozen"`

	TotalNetValue  float64 `json:"total_net_value"`
	TotalHoldValue float64 `json:"total_hold_value"`
	Cost           float64 `json:"cost"`

	BrokerFee   float64 `json:"broker_fee"`
	TransferFee float64 `json:"transfer_fee"`
	TaxFee      float64 `json:"tax_fee"`

	Profit          float64 `json:"profit"`
	ProfitRate      float64 `json:"profit_rate"`
	CloseProfit     float64 `json:"close_profit"`
	TotalProfit     float64 `json:"total_profit"`
	TotalProfitRate float64 `json:"total_profit_rate"`

	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	UpdateTime time.Time  `json:"update_time"`
}

// AccountHistoryRecord 账户日结信息，按 (account_id, end_time) 幂等
type AccountHistoryRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID string `gorm:"uniqueIndex:idx_acct_his,priority:1;size:64" json:"account_id"`
	Status    int    `json:"status"`
	Category  string `gorm:"size:16" json:"category"`
	Type      string `gorm:"size:16" json:"type"`

	CashInit      float64 `json:"cash_init"`
	CashAvailable float64 `json:"cash_available"`
	CashFrozen    float64 `json:"cash_frozen"`

	TotalNetValue  float64 `json:"total_net_value"`
	TotalHoldValue float64 `json:"total_hold_value"`
	Cost           float64 `json:"cost"`

	Profit          float64 `json:"profit"`
	ProfitRate      float64 `json:"profit_rate"`
	CloseProfit     float64 `json:"close_profit"`
	TotalProfit     float64 `json:"total_profit"`
	TotalProfitRate float64 `json:"total_profit_rate"`

	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `gorm:"uniqueIndex:idx_acct_his,priority:2" json:"end_time"`
}

// SignalRecord 策略信号
type SignalRecord struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID  string     `gorm:"index;size:64" json:"account_id"`
	SignalID   string     `gorm:"uniqueIndex;size:64" json:"signal_id"`
	Source     string     `gorm:"size:64" json:"source"`     // risk:builtin:SimpleStop 等
	SourceName string     `gorm:"size:64" json:"source_name"`
	Signal     string     `gorm:"size:16" json:"signal"`     // buy / sell / cancel
	Name       string     `gorm:"size:32" json:"name"`
	Code       string     `gorm:"index;size:16" json:"code"`
	Price      float64    `json:"price"`
	Volume     int        `json:"volume"`
	Desc       string     `gorm:"size:128" json:"desc"`
	EntrustID  string     `gorm:"size:64" json:"entrust_id"` // sell / cancel 有效
	Time       *time.Time `json:"time"`
}

// EntrustRecord 委托信息
type EntrustRecord struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID       string     `gorm:"index;size:64" json:"account_id"`
	EntrustID       string     `gorm:"uniqueIndex;size:64" json:"entrust_id"`
	BrokerEntrustID string     `gorm:"size:64" json:"broker_entrust_id"`
	Name            string     `gorm:"size:32" json:"name"`
	Code            string     `gorm:"index;size:16" json:"code"`
	Type            string     `gorm:"size:16" json:"type"`         // buy / sell / cancel
	Status          string     `gorm:"index;size:16" json:"status"` // reserved/init/commit/deal/part_deal/cancel
	Price           float64    `json:"price"`
	Volume          int        `json:"volume"`
	VolumeDeal      int        `json:"volume_deal"`
	VolumeCancel    int        `json:"volume_cancel"`
	Desc            string     `gorm:"size:128" json:"desc"`
	Time            *time.Time `json:"time"`
}

// DealRecord 成交历史
type DealRecord struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID string     `gorm:"index;size:64" json:"account_id"`
	DealID    string     `gorm:"uniqueIndex;size:64" json:"deal_id"`
	EntrustID string     `gorm:"index;size:64" json:"entrust_id"`
	Name      string     `gorm:"size:32" json:"name"`
	Code      string     `gorm:"index;size:16" json:"code"`
	Type      string     `gorm:"size:16" json:"type"`
	Price     float64    `json:"price"`
	Volume    int        `json:"volume"`
	Fee       float64    `json:"fee"`
	Profit    float64    `json:"profit"` // 卖出成交有效
	Time      *time.Time `json:"time"`
}

// PositionRecord 持仓信息
type PositionRecord struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID  string `gorm:"index;size:64" json:"account_id"`
	PositionID string `gorm:"uniqueIndex;size:64" json:"position_id"`
	Name       string `gorm:"size:32" json:"name"`
	Code       string `gorm:"index;size:16" json:"code"`

	Volume          int `json:"volume"`
	VolumeAvailable int `json:"volume_available"`
	VolumeFrozen    int `json:"volume_frozen"`

	Fee   float64 `json:"fee"`
	Price float64 `json:"price"` // 含费均价

	NowPrice float64 `json:"now_price"`
	MaxPrice float64 `json:"max_price"`
	MinPrice float64 `json:"min_price"`

	Profit        float64 `json:"profit"`
	ProfitRate    float64 `json:"profit_rate"`
	MaxProfit     float64 `json:"max_profit"`
	MinProfit     float64 `json:"min_profit"`
	MaxProfitRate float64 `json:"max_profit_rate"`
	MinProfitRate float64 `json:"min_profit_rate"`

	MaxProfitTime *time.Time `json:"max_profit_time"`
	MinProfitTime *time.Time `json:"min_profit_time"`
	Time          *time.Time `json:"time"` // 首次建仓时间
}

// StrategyInfoRecord 账户绑定的策略/券商/风控/行情配置，按 account_id 幂等
type StrategyInfoRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID   string `gorm:"uniqueIndex;size:64" json:"account_id"`
	StrategyID  string `gorm:"size:64" json:"strategy_id"`
	StrategyOpt string `gorm:"type:text" json:"strategy_opt"` // json
	BrokerID    string `gorm:"size:64" json:"broker_id"`
	BrokerOpt   string `gorm:"type:text" json:"broker_opt"`
	RiskID      string `gorm:"size:64" json:"risk_id"`
	RiskOpt     string `gorm:"type:text" json:"risk_opt"`
	QuotOpt     string `gorm:"type:text" json:"quot_opt"`
}
