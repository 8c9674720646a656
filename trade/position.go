package trade

import (
	"math"
	"time"

	"ssquant/event"
	"ssquant/tradedb"
	"ssquant/utils"
)

// Position 持仓。Price 为含费均价，Profit 基于含费均价计算。
// 不变式: Volume == VolumeAvailable + VolumeFrozen
type Position struct {
	PositionID string `json:"position_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`

	Volume          int `json:"volume"`
	VolumeAvailable int `json:"volume_available"` // 可卖量
	VolumeFrozen    int `json:"volume_frozen"`    // 挂单冻结量

	Fee   float64 `json:"fee"`   // 累计费用
	Price float64 `json:"price"` // 含费均价

	NowPrice float64 `json:"now_price"`
	MaxPrice float64 `json:"max_price"`
	MinPrice float64 `json:"min_price"`

	Profit        float64 `json:"profit"`
	ProfitRate    float64 `json:"profit_rate"` // 百分比
	MaxProfit     float64 `json:"max_profit"`
	MinProfit     float64 `json:"min_profit"`
	MaxProfitRate float64 `json:"max_profit_rate"`
	MinProfitRate float64 `json:"min_profit_rate"`

	MaxProfitTime time.Time `json:"max_profit_time"`
	MinProfitTime time.Time `json:"min_profit_time"`
	Time          time.Time `json:"time"` // 首次建仓时间
}

func newPosition(positionID string) *Position {
	return &Position{
		PositionID:    positionID,
		MaxProfit:     math.Inf(-1),
		MinProfit:     math.Inf(1),
		MaxProfitRate: math.Inf(-1),
		MinProfitRate: math.Inf(1),
	}
}

// OnQuot 按最新行情重估持仓
func (p *Position) OnQuot(bar *event.Bar, dayTime time.Time) {
	p.NowPrice = bar.Close
	p.update(dayTime)
}

// update 重算盈亏及历史极值
func (p *Position) update(at time.Time) {
	if p.NowPrice > p.MaxPrice {
		p.MaxPrice = p.NowPrice
	}
	if p.MinPrice == 0 || p.NowPrice < p.MinPrice {
		p.MinPrice = p.NowPrice
	}

	p.Profit = utils.Round4((p.NowPrice - p.Price) * float64(p.Volume))
	if p.Price > 0 && p.Volume > 0 {
		p.ProfitRate = utils.Round4(p.Profit / (p.Price * float64(p.Volume)) * 100)
	}

	if p.Profit > p.MaxProfit {
		p.MaxProfit = p.Profit
		p.MaxProfitTime = at
	}
	if p.Profit < p.MinProfit {
		p.MinProfit = p.Profit
		p.MinProfitTime = at
	}
	if p.ProfitRate > p.MaxProfitRate {
		p.MaxProfitRate = p.ProfitRate
	}
	if p.ProfitRate < p.MinProfitRate {
		p.MinProfitRate = p.ProfitRate
	}
}

func (p *Position) record(accountID string) *tradedb.PositionRecord {
	t := p.Time
	rec := &tradedb.PositionRecord{
		AccountID:       accountID,
		PositionID:      p.PositionID,
		Name:            p.Name,
		Code:            p.Code,
		Volume:          p.Volume,
		VolumeAvailable: p.VolumeAvailable,
		VolumeFrozen:    p.VolumeFrozen,
		Fee:             p.Fee,
		Price:           p.Price,
		NowPrice:        p.NowPrice,
		MaxPrice:        p.MaxPrice,
		MinPrice:        p.MinPrice,
		Profit:          p.Profit,
		ProfitRate:      p.ProfitRate,
		Time:            &t,
	}
	// 极值未触发时不落库 Inf
	if !math.IsInf(p.MaxProfit, 0) {
		rec.MaxProfit = p.MaxProfit
		mt := p.MaxProfitTime
		rec.MaxProfitTime = &mt
	}
	if !math.IsInf(p.MinProfit, 0) {
		rec.MinProfit = p.MinProfit
		mt := p.MinProfitTime
		rec.MinProfitTime = &mt
	}
	if !math.IsInf(p.MaxProfitRate, 0) {
		rec.MaxProfitRate = p.MaxProfitRate
	}
	if !math.IsInf(p.MinProfitRate, 0) {
		rec.MinProfitRate = p.MinProfitRate
	}
	return rec
}

func positionFromRecord(rec *tradedb.PositionRecord) *Position {
	p := newPosition(rec.PositionID)
	p.Name = rec.Name
	p.Code = rec.Code
	p.Volume = rec.Volume
	p.VolumeAvailable = rec.VolumeAvailable
	p.VolumeFrozen = rec.VolumeFrozen
	p.Fee = rec.Fee
	p.Price = rec.Price
	p.NowPrice = rec.NowPrice
	p.MaxPrice = rec.MaxPrice
	p.MinPrice = rec.MinPrice
	p.Profit = rec.Profit
	p.ProfitRate = rec.ProfitRate
	if rec.MaxProfitTime != nil {
		p.MaxProfit = rec.MaxProfit
		p.MaxProfitRate = rec.MaxProfitRate
		p.MaxProfitTime = *rec.MaxProfitTime
	}
	if rec.MinProfitTime != nil {
		p.MinProfit = rec.MinProfit
		p.MinProfitRate = rec.MinProfitRate
		p.MinProfitTime = *rec.MinProfitTime
	}
	if rec.Time != nil {
		p.Time = *rec.Time
	}
	return p
}
