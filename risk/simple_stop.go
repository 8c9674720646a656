// Package risk 风控策略实现
package risk

import (
	"context"
	"math"

	"ssquant/event"
	"ssquant/logger"
	"ssquant/trade"
	"ssquant/utils"
)

// 内置风控标识
const (
	SimpleStopID = "builtin:SimpleStop"
	DummyID      = "builtin:Dummy"
)

// SimpleStop 止损止盈风控: 每个行情事件巡检持仓，
// 盈亏越过绝对值或百分比阈值时发出卖出信号。冻结中的持仓跳过。
type SimpleStop struct {
	trade.BaseStage

	stopProfit     float64 // 止盈额，0 不启用
	stopProfitRate float64 // 止盈比例(百分比)，0 不启用
	stopLost       float64 // 止损额，0 不启用
	stopLostRate   float64 // 止损比例(百分比)，0 不启用
}

// NewSimpleStop 创建止损止盈风控
func NewSimpleStop(id string, account *trade.Account) trade.Risk {
	return &SimpleStop{BaseStage: trade.BaseStage{
		StageID:   id,
		StageName: "神算子止损止盈风控",
		Account:   account,
	}}
}

// Init 读取阈值配置
func (s *SimpleStop) Init(ctx context.Context, opt map[string]interface{}) error {
	s.stopProfit = optFloat(opt, "stop_profit")
	s.stopProfitRate = optFloat(opt, "stop_profit_rate")
	s.stopLost = optFloat(opt, "stop_lost")
	s.stopLostRate = optFloat(opt, "stop_lost_rate")
	logger.Info("simple stop inited: stop_profit=%.4f, stop_profit_rate=%.4f, stop_lost=%.4f, stop_lost_rate=%.4f",
		s.stopProfit, s.stopProfitRate, s.stopLost, s.stopLostRate)
	return nil
}

// OnQuot 巡检持仓，触发止损止盈
func (s *SimpleStop) OnQuot(ctx context.Context, evt event.Event) error {
	if evt.Kind != event.KindQuotation {
		return nil
	}

	for _, position := range s.Account.Positions() {
		if position.VolumeAvailable <= 0 {
			continue
		}

		isLost := position.Profit <= 0
		profit := math.Abs(position.Profit)
		profitRate := math.Abs(position.ProfitRate)

		atRisk := false
		if isLost {
			if s.stopLostRate > 0 && profitRate >= s.stopLostRate {
				logger.Info("⚠️ 持仓(%s)触发止损(stop_lost_rate=-%.4f, profit_rate=-%.4f)",
					position.Code, s.stopLostRate, profitRate)
				atRisk = true
			}
			if !atRisk && s.stopLost > 0 && profit >= s.stopLost {
				logger.Info("⚠️ 持仓(%s)触发止损(stop_lost=-%.4f, profit=-%.4f)",
					position.Code, s.stopLost, profit)
				atRisk = true
			}
		}

		atProfit := false
		if !isLost {
			if s.stopProfitRate > 0 && profitRate >= s.stopProfitRate {
				logger.Info("📈 持仓(%s)触发止盈(stop_profit_rate=%.4f, profit_rate=%.4f)",
					position.Code, s.stopProfitRate, profitRate)
				atProfit = true
			}
			if !atProfit && s.stopProfit > 0 && profit >= s.stopProfit {
				logger.Info("📈 持仓(%s)触发止盈(stop_profit=%.4f, profit=%.4f)",
					position.Code, s.stopProfit, profit)
				atProfit = true
			}
		}

		if !atRisk && !atProfit {
			continue
		}

		desc := "止损"
		if atProfit {
			desc = "止盈"
		}
		sig := &trade.Signal{
			SignalID:   utils.NewID(),
			Source:     trade.ObjID(trade.SourceRisk, "SimpleStop"),
			SourceName: s.Name(),
			Signal:     trade.ActSell,
			Name:       position.Name,
			Code:       position.Code,
			Price:      position.NowPrice,
			Volume:     position.VolumeAvailable,
			Desc:       desc,
			Time:       position.Time,
		}
		if err := s.Sell(ctx, sig); err != nil {
			return err
		}
	}
	return nil
}

// Dummy 空风控，不做任何巡检
type Dummy struct {
	trade.BaseStage
}

// NewDummy 创建空风控
func NewDummy(id string, account *trade.Account) trade.Risk {
	return &Dummy{BaseStage: trade.BaseStage{
		StageID:   id,
		StageName: "神算子空风控",
		Account:   account,
	}}
}

func (d *Dummy) OnQuot(ctx context.Context, evt event.Event) error { return nil }

// Register 注册内置风控
func Register() {
	trade.RegisterRisk(SimpleStopID, NewSimpleStop)
	trade.RegisterRisk(DummyID, NewDummy)
}

func optFloat(opt map[string]interface{}, key string) float64 {
	if opt == nil {
		return 0
	}
	switch v := opt[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
