// Package broker 券商通道实现
package broker

import (
	"context"

	"ssquant/event"
	"ssquant/logger"
	"ssquant/trade"
	"ssquant/utils"
)

// SimulateID 内置模拟券商标识，回测/模拟盘缺省通道
const SimulateID = "builtin:BrokerSimulate"

// Simulate 模拟券商: 按委托价立即全额成交，无部分成交无滑点
type Simulate struct {
	trade.BaseStage
}

// NewSimulate 创建模拟券商
func NewSimulate(id string, account *trade.Account) trade.Broker {
	return &Simulate{BaseStage: trade.BaseStage{
		StageID:   id,
		StageName: "神算子模拟券商",
		Account:   account,
	}}
}

// OnEntrust 处理委托事件并立即回报
func (s *Simulate) OnEntrust(ctx context.Context, evt event.Event) error {
	entrust, ok := evt.Payload.(*trade.Entrust)
	if !ok {
		// 会话边界等非委托事件直接忽略
		return nil
	}
	logger.Info("on entrust: evt=%s, entrust_id=%s, code=%s", evt.Kind, entrust.EntrustID, entrust.Code)

	feedback := entrust.Clone()
	feedback.BrokerEntrustID = utils.NewID()

	switch evt.Kind {
	case event.KindEntrustBuy, event.KindEntrustSell:
		feedback.Status = trade.StatusDeal
		feedback.VolumeDeal = feedback.Volume
		return s.Account.Emit(ctx, trade.QueueBrokerEvent,
			event.Event{Kind: event.KindBrokerDeal, Payload: feedback})

	case event.KindEntrustCancel:
		feedback.Status = trade.StatusCancel
		feedback.VolumeCancel = feedback.Volume - feedback.VolumeDeal
		return s.Account.Emit(ctx, trade.QueueBrokerEvent,
			event.Event{Kind: event.KindBrokerCancelled, Payload: feedback})
	}
	return nil
}

// Register 注册内置券商
func Register() {
	trade.RegisterBroker(SimulateID, NewSimulate)
}
