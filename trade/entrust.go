package trade

import (
	"time"

	"ssquant/tradedb"
)

// Entrust 委托单。状态机:
// reserved -> init -> commit -> deal / part_deal / cancel
// 终态时 Volume == VolumeDeal + VolumeCancel
type Entrust struct {
	EntrustID       string    `json:"entrust_id"`
	BrokerEntrustID string    `json:"broker_entrust_id"` // 券商侧委托号，commit 后有效
	Name            string    `json:"name"`
	Code            string    `json:"code"`
	Type            string    `json:"type"`              // buy / sell / cancel
	Status          string    `json:"status"`
	Price           float64   `json:"price"`
	Volume          int       `json:"volume"`
	VolumeDeal      int       `json:"volume_deal"`
	VolumeCancel    int       `json:"volume_cancel"`
	Desc            string    `json:"desc"`
	Time            time.Time `json:"time"`
}

// IsTerminal 委托是否终态
func (e *Entrust) IsTerminal() bool {
	return e.Status == StatusDeal || e.Status == StatusCancel
}

// IsActive 委托是否仍可撤单
func (e *Entrust) IsActive() bool {
	switch e.Status {
	case StatusReserved, StatusInit, StatusCommit, StatusPartDeal:
		return true
	}
	return false
}

// Clone 浅拷贝，跨队列传递时避免共享可变状态
func (e *Entrust) Clone() *Entrust {
	c := *e
	return &c
}

func (e *Entrust) record(accountID string) *tradedb.EntrustRecord {
	t := e.Time
	return &tradedb.EntrustRecord{
		AccountID:       accountID,
		EntrustID:       e.EntrustID,
		BrokerEntrustID: e.BrokerEntrustID,
		Name:            e.Name,
		Code:            e.Code,
		Type:            e.Type,
		Status:          e.Status,
		Price:           e.Price,
		Volume:          e.Volume,
		VolumeDeal:      e.VolumeDeal,
		VolumeCancel:    e.VolumeCancel,
		Desc:            e.Desc,
		Time:            &t,
	}
}

func entrustFromRecord(rec *tradedb.EntrustRecord) *Entrust {
	e := &Entrust{
		EntrustID:       rec.EntrustID,
		BrokerEntrustID: rec.BrokerEntrustID,
		Name:            rec.Name,
		Code:            rec.Code,
		Type:            rec.Type,
		Status:          rec.Status,
		Price:           rec.Price,
		Volume:          rec.Volume,
		VolumeDeal:      rec.VolumeDeal,
		VolumeCancel:    rec.VolumeCancel,
		Desc:            rec.Desc,
	}
	if rec.Time != nil {
		e.Time = *rec.Time
	}
	return e
}
