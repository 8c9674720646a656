package trade

import (
	"time"

	"ssquant/tradedb"
)

// Signal 交易信号，由策略/风控/人工产生，一个信号至多产生一笔委托
type Signal struct {
	SignalID   string    `json:"signal_id"`
	Source     string    `json:"source"`     // risk:builtin:SimpleStop 等
	SourceName string    `json:"source_name"`
	Signal     string    `json:"signal"`     // buy / sell / cancel
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Price      float64   `json:"price"`
	Volume     int       `json:"volume"`
	Desc       string    `json:"desc"`
	EntrustID  string    `json:"entrust_id"` // sell / cancel 有效
	Time       time.Time `json:"time"`
}

func (s *Signal) record(accountID string) *tradedb.SignalRecord {
	t := s.Time
	return &tradedb.SignalRecord{
		AccountID:  accountID,
		SignalID:   s.SignalID,
		Source:     s.Source,
		SourceName: s.SourceName,
		Signal:     s.Signal,
		Name:       s.Name,
		Code:       s.Code,
		Price:      s.Price,
		Volume:     s.Volume,
		Desc:       s.Desc,
		EntrustID:  s.EntrustID,
		Time:       &t,
	}
}
