package trade

import (
	"time"

	"ssquant/tradedb"
)

// Deal 成交记录，每个券商成交回报恰好生成一条，只追加不修改
type Deal struct {
	DealID    string    `json:"deal_id"`
	EntrustID string    `json:"entrust_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Type      string    `json:"type"`   // buy / sell
	Price     float64   `json:"price"`
	Volume    int       `json:"volume"`
	Fee       float64   `json:"fee"`
	Profit    float64   `json:"profit"` // 平仓盈亏，卖出成交有效
	Time      time.Time `json:"time"`
}

func (d *Deal) record(accountID string) *tradedb.DealRecord {
	t := d.Time
	return &tradedb.DealRecord{
		AccountID: accountID,
		DealID:    d.DealID,
		EntrustID: d.EntrustID,
		Name:      d.Name,
		Code:      d.Code,
		Type:      d.Type,
		Price:     d.Price,
		Volume:    d.Volume,
		Fee:       d.Fee,
		Profit:    d.Profit,
		Time:      &t,
	}
}
