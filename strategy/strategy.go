// Package strategy 交易策略实现
package strategy

import (
	"context"
	"math"

	"ssquant/event"
	"ssquant/logger"
	"ssquant/trade"
	"ssquant/utils"
)

// 内置策略标识
const (
	DummyID    = "builtin:Dummy"
	DipBuyerID = "builtin:DipBuyer"
)

// Dummy 测试策略: 每个行情事件无脑买 200 股，有持仓再卖一半，
// 用于验证整条事件链路
type Dummy struct {
	trade.BaseStage
}

// NewDummy 创建测试策略
func NewDummy(id string, account *trade.Account) trade.Strategy {
	return &Dummy{BaseStage: trade.BaseStage{
		StageID:   id,
		StageName: "神算子Dummy策略",
		Account:   account,
	}}
}

// OnQuot 处理行情
func (d *Dummy) OnQuot(ctx context.Context, evt event.Event) error {
	if evt.Kind != event.KindQuotation {
		return nil
	}
	payload, ok := evt.Payload.(*event.QuotPayload)
	if !ok {
		return nil
	}
	logger.Debug("dummy strategy on_quot: day_time=%s, quots=%d",
		payload.DayTime.Format("2006-01-02 15:04:05"), len(payload.Quots))

	for _, quot := range payload.Quots {
		if d.Account.CanBuy(quot.Code, quot.Close, 200) {
			sig := &trade.Signal{
				SignalID:   utils.NewID(),
				Source:     trade.ObjID(trade.SourceStrategy, "Dummy"),
				SourceName: d.Name(),
				Signal:     trade.ActBuy,
				Name:       quot.Name,
				Code:       quot.Code,
				Price:      quot.Close,
				Volume:     200,
				Time:       quot.DayTime,
			}
			if err := d.Buy(ctx, sig); err != nil {
				return err
			}
		}

		_, vol := d.Account.PositionVolume(quot.Code)
		if vol > 0 {
			sellVol := vol / 2
			if vol <= 100 {
				sellVol = 100
			}
			sig := &trade.Signal{
				SignalID:   utils.NewID(),
				Source:     trade.ObjID(trade.SourceStrategy, "Dummy"),
				SourceName: d.Name(),
				Signal:     trade.ActSell,
				Name:       quot.Name,
				Code:       quot.Code,
				Price:      quot.Close,
				Volume:     sellVol,
				Time:       quot.DayTime,
			}
			if err := d.Sell(ctx, sig); err != nil {
				return err
			}
		}
	}
	return nil
}

// DipBuyer 低吸策略: 日内跌幅越过阈值分批买入，反弹到目标涨幅清仓。
// 仓位按可用资金比例控制，按手(100股)取整。
type DipBuyer struct {
	trade.BaseStage

	buyDropRate  float64 // 日内跌幅买入阈值(百分比)
	sellRiseRate float64 // 盈利卖出阈值(百分比)
	positionRate float64 // 单次买入占可用资金比例
}

// NewDipBuyer 创建低吸策略
func NewDipBuyer(id string, account *trade.Account) trade.Strategy {
	return &DipBuyer{BaseStage: trade.BaseStage{
		StageID:   id,
		StageName: "神算子低吸策略",
		Account:   account,
	}}
}

// Init 读取阈值配置，未配置走缺省值
func (s *DipBuyer) Init(ctx context.Context, opt map[string]interface{}) error {
	s.buyDropRate = optFloat(opt, "buy_drop_rate", 3.0)
	s.sellRiseRate = optFloat(opt, "sell_rise_rate", 5.0)
	s.positionRate = optFloat(opt, "position_rate", 0.3)
	logger.Info("dip buyer inited: buy_drop_rate=%.2f, sell_rise_rate=%.2f, position_rate=%.2f",
		s.buyDropRate, s.sellRiseRate, s.positionRate)
	return nil
}

// OnQuot 处理行情
func (s *DipBuyer) OnQuot(ctx context.Context, evt event.Event) error {
	if evt.Kind != event.KindQuotation {
		return nil
	}
	payload, ok := evt.Payload.(*event.QuotPayload)
	if !ok {
		return nil
	}

	for _, quot := range payload.Quots {
		if quot.DayOpen <= 0 || quot.Close <= 0 {
			continue
		}

		volume, available := s.Account.PositionVolume(quot.Code)

		// 低吸: 空仓且日内跌幅达标
		dropRate := (quot.DayOpen - quot.Close) / quot.DayOpen * 100
		if volume == 0 && dropRate >= s.buyDropRate {
			buyVolume := s.lotVolume(quot.Close)
			if buyVolume > 0 && s.Account.CanBuy(quot.Code, quot.Close, buyVolume) {
				logger.Info("📉 低吸买入: code=%s, drop_rate=%.2f%%, price=%.4f, volume=%d",
					quot.Code, dropRate, quot.Close, buyVolume)
				sig := &trade.Signal{
					SignalID:   utils.NewID(),
					Source:     trade.ObjID(trade.SourceStrategy, "DipBuyer"),
					SourceName: s.Name(),
					Signal:     trade.ActBuy,
					Name:       quot.Name,
					Code:       quot.Code,
					Price:      quot.Close,
					Volume:     buyVolume,
					Desc:       "低吸",
					Time:       quot.DayTime,
				}
				if err := s.Buy(ctx, sig); err != nil {
					return err
				}
			}
			continue
		}

		// 止盈清仓
		if available > 0 {
			for _, position := range s.Account.Positions() {
				if position.Code != quot.Code {
					continue
				}
				if position.ProfitRate >= s.sellRiseRate {
					logger.Info("📈 反弹清仓: code=%s, profit_rate=%.2f%%, price=%.4f, volume=%d",
						quot.Code, position.ProfitRate, quot.Close, available)
					sig := &trade.Signal{
						SignalID:   utils.NewID(),
						Source:     trade.ObjID(trade.SourceStrategy, "DipBuyer"),
						SourceName: s.Name(),
						Signal:     trade.ActSell,
						Name:       quot.Name,
						Code:       quot.Code,
						Price:      quot.Close,
						Volume:     available,
						Desc:       "反弹清仓",
						Time:       quot.DayTime,
					}
					if err := s.Sell(ctx, sig); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// lotVolume 按仓位比例计算买入量，按手取整
func (s *DipBuyer) lotVolume(price float64) int {
	snapshot := s.Account.Snapshot()
	budget := snapshot.CashAvailable * s.positionRate
	if price <= 0 || budget <= 0 {
		return 0
	}
	lots := math.Floor(budget / (price * 100))
	return int(lots) * 100
}

// Register 注册内置策略
func Register() {
	trade.RegisterStrategy(DummyID, NewDummy)
	trade.RegisterStrategy(DipBuyerID, NewDipBuyer)
}

func optFloat(opt map[string]interface{}, key string, def float64) float64 {
	if opt == nil {
		return def
	}
	switch v := opt[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
