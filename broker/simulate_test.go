package broker

import (
	"context"
	"sync"
	"testing"

	"ssquant/event"
	"ssquant/trade"
	"ssquant/tradedb"
)

// stubRuntime 记录账户发出的事件
type stubRuntime struct {
	mu      sync.Mutex
	emitted []emittedEvent
}

type emittedEvent struct {
	queue string
	evt   event.Event
}

func (r *stubRuntime) Emit(ctx context.Context, queue string, evt event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted = append(r.emitted, emittedEvent{queue: queue, evt: evt})
	return nil
}

func (r *stubRuntime) IsBacktest() bool               { return true }
func (r *stubRuntime) IsTrading() bool                { return true }
func (r *stubRuntime) DailyReport(ctx context.Context) {}
func (r *stubRuntime) TradeReport(ctx context.Context) {}

func newSimulate(rt *stubRuntime) trade.Broker {
	account := trade.NewAccount("test_acct", "stock", "backtest", tradedb.NewNopStore(), rt)
	return NewSimulate(SimulateID, account)
}

func TestSimulateDealFeedback(t *testing.T) {
	rt := &stubRuntime{}
	s := newSimulate(rt)

	entrust := &trade.Entrust{
		EntrustID: "e1", Code: "sh600000", Name: "浦发银行",
		Type: trade.ActBuy, Status: trade.StatusInit,
		Price: 10.00, Volume: 200,
	}
	err := s.OnEntrust(context.Background(), event.Event{Kind: event.KindEntrustBuy, Payload: entrust})
	if err != nil {
		t.Fatalf("委托处理失败: %v", err)
	}

	if len(rt.emitted) != 1 {
		t.Fatalf("回报事件数不对: 期望1, 实际%d", len(rt.emitted))
	}
	rec := rt.emitted[0]
	if rec.queue != trade.QueueBrokerEvent {
		t.Errorf("回报队列不对: %s", rec.queue)
	}
	if rec.evt.Kind != event.KindBrokerDeal {
		t.Errorf("回报事件类型不对: %s", rec.evt.Kind)
	}
	feedback := rec.evt.Payload.(*trade.Entrust)
	if feedback.Status != trade.StatusDeal {
		t.Errorf("回报状态不对: %s", feedback.Status)
	}
	if feedback.VolumeDeal != 200 {
		t.Errorf("成交量不对: %d", feedback.VolumeDeal)
	}
	if feedback.BrokerEntrustID == "" {
		t.Error("券商委托号为空")
	}
	if feedback == entrust {
		t.Error("回报不应复用原委托对象")
	}
	t.Log("✅ 模拟券商即时全额成交回报正确")
}

func TestSimulateCancelFeedback(t *testing.T) {
	rt := &stubRuntime{}
	s := newSimulate(rt)

	entrust := &trade.Entrust{
		EntrustID: "e2", Code: "sz000001", Type: trade.ActBuy,
		Status: trade.StatusInit, Price: 9.50, Volume: 300, VolumeDeal: 100,
	}
	err := s.OnEntrust(context.Background(), event.Event{Kind: event.KindEntrustCancel, Payload: entrust})
	if err != nil {
		t.Fatalf("撤单处理失败: %v", err)
	}

	if len(rt.emitted) != 1 {
		t.Fatalf("回报事件数不对: %d", len(rt.emitted))
	}
	rec := rt.emitted[0]
	if rec.evt.Kind != event.KindBrokerCancelled {
		t.Errorf("回报事件类型不对: %s", rec.evt.Kind)
	}
	feedback := rec.evt.Payload.(*trade.Entrust)
	if feedback.Status != trade.StatusCancel {
		t.Errorf("回报状态不对: %s", feedback.Status)
	}
	if feedback.VolumeCancel != 200 {
		t.Errorf("撤单量应为未成交部分: 期望200, 实际%d", feedback.VolumeCancel)
	}
	t.Log("✅ 模拟券商撤单回报正确")
}

func TestSimulateIgnoresSessionEvents(t *testing.T) {
	rt := &stubRuntime{}
	s := newSimulate(rt)

	err := s.OnEntrust(context.Background(), event.Event{Kind: event.KindNoonEnd, Payload: &event.SessionPayload{}})
	if err != nil {
		t.Fatalf("会话事件处理失败: %v", err)
	}
	if len(rt.emitted) != 0 {
		t.Errorf("会话事件不应产生回报: %d", len(rt.emitted))
	}
	t.Log("✅ 非委托事件被忽略")
}
