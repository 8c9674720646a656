package trade

import (
	"context"

	"ssquant/event"
)

// Emitter 向指定队列投递事件，Trader 实现
type Emitter interface {
	Emit(ctx context.Context, queue string, evt event.Event) error
	IsBacktest() bool
	IsTrading() bool
}

// Stage 可插拔阶段的公共生命周期。Init 返回错误视为致命，启动中止。
type Stage interface {
	ID() string
	Name() string
	Init(ctx context.Context, opt map[string]interface{}) error
	OnOpen(ctx context.Context, evt event.Event) error
	OnClose(ctx context.Context, evt event.Event) error
	Destroy(ctx context.Context) error
}

// Strategy 交易策略，消费行情产生买卖信号
type Strategy interface {
	Stage
	OnQuot(ctx context.Context, evt event.Event) error
}

// Risk 风控策略，检查持仓触发止损止盈
type Risk interface {
	Stage
	OnQuot(ctx context.Context, evt event.Event) error
}

// Broker 券商通道，把委托事件转换为成交/撤单/受理回报
type Broker interface {
	Stage
	OnEntrust(ctx context.Context, evt event.Event) error
}

// Robot 运维机器人，会话边界做巡检上报
type Robot interface {
	Stage
	OnRobot(ctx context.Context, evt event.Event) error
}

// BaseStage 阶段公共实现，内嵌后只需覆盖需要的方法
type BaseStage struct {
	StageID   string
	StageName string
	Account   *Account
}

func (b *BaseStage) ID() string   { return b.StageID }
func (b *BaseStage) Name() string { return b.StageName }

func (b *BaseStage) Init(ctx context.Context, opt map[string]interface{}) error { return nil }

func (b *BaseStage) OnOpen(ctx context.Context, evt event.Event) error { return nil }

func (b *BaseStage) OnClose(ctx context.Context, evt event.Event) error { return nil }

func (b *BaseStage) Destroy(ctx context.Context) error { return nil }

// Buy 发出买入信号
func (b *BaseStage) Buy(ctx context.Context, sig *Signal) error {
	return b.Account.Emit(ctx, QueueSignal, event.Event{Kind: event.KindSignalBuy, Payload: sig})
}

// Sell 发出卖出信号
func (b *BaseStage) Sell(ctx context.Context, sig *Signal) error {
	return b.Account.Emit(ctx, QueueSignal, event.Event{Kind: event.KindSignalSell, Payload: sig})
}

// Cancel 发出撤单信号
func (b *BaseStage) Cancel(ctx context.Context, sig *Signal) error {
	return b.Account.Emit(ctx, QueueSignal, event.Event{Kind: event.KindSignalCancel, Payload: sig})
}

// SubscribeCodes 运行中追加订阅行情代码
func (b *BaseStage) SubscribeCodes(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	return b.Account.Emit(ctx, QueueQuotation, event.Event{Kind: event.KindQuotCodes, Payload: codes})
}
