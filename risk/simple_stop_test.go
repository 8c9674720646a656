package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"ssquant/event"
	"ssquant/trade"
	"ssquant/tradedb"
	"ssquant/utils"
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

func (r *stubRuntime) IsBacktest() bool                { return true }
func (r *stubRuntime) IsTrading() bool                 { return true }
func (r *stubRuntime) DailyReport(ctx context.Context)  {}
func (r *stubRuntime) TradeReport(ctx context.Context)  {}

// sellSignals 取记录中的卖出信号
func (r *stubRuntime) sellSignals() []*trade.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sigs []*trade.Signal
	for _, rec := range r.emitted {
		if rec.evt.Kind == event.KindSignalSell {
			sigs = append(sigs, rec.evt.Payload.(*trade.Signal))
		}
	}
	return sigs
}

// lastEntrust 取最近一次发往券商的委托
func (r *stubRuntime) lastEntrust() *trade.Entrust {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.emitted) - 1; i >= 0; i-- {
		if r.emitted[i].queue == trade.QueueBroker {
			return r.emitted[i].evt.Payload.(*trade.Entrust)
		}
	}
	return nil
}

// newHoldingAccount 构造一个已买入 200 股 sh600000@10.00 并经过收市清算的账户，
// 持仓次日可卖
func newHoldingAccount(t *testing.T, rt *stubRuntime) *trade.Account {
	t.Helper()
	ctx := context.Background()

	a := trade.NewAccount("test_acct", "stock", "backtest", tradedb.NewNopStore(), rt)
	a.CashInit = 100000
	a.CashAvailable = 100000
	a.TotalNetValue = 100000

	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, utils.GlobalLocation)
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindMorningStart,
		Payload: &event.SessionPayload{DayTime: day1}}); err != nil {
		t.Fatalf("开市失败: %v", err)
	}

	sig := &trade.Signal{
		SignalID: utils.NewID(), Signal: trade.ActBuy,
		Code: "sh600000", Name: "浦发银行", Price: 10.00, Volume: 200, Time: day1,
	}
	if err := a.OnSignal(ctx, event.Event{Kind: event.KindSignalBuy, Payload: sig}); err != nil {
		t.Fatalf("买入信号失败: %v", err)
	}

	entrust := rt.lastEntrust()
	if entrust == nil {
		t.Fatal("委托未发往券商")
	}
	feedback := entrust.Clone()
	feedback.Status = trade.StatusDeal
	feedback.VolumeDeal = feedback.Volume
	if err := a.OnBroker(ctx, event.Event{Kind: event.KindBrokerDeal, Payload: feedback}); err != nil {
		t.Fatalf("成交回报失败: %v", err)
	}

	// 收市清算后次日转可卖
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindNoonEnd,
		Payload: &event.SessionPayload{DayTime: day1.Add(5 * time.Hour)}}); err != nil {
		t.Fatalf("收市清算失败: %v", err)
	}
	day2 := day1.AddDate(0, 0, 1)
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindMorningStart,
		Payload: &event.SessionPayload{DayTime: day2}}); err != nil {
		t.Fatalf("次日开市失败: %v", err)
	}
	return a
}

// revalue 下发一笔行情，刷新持仓盈亏
func revalue(t *testing.T, a *trade.Account, price float64) *event.Event {
	t.Helper()
	day := time.Date(2024, 3, 5, 10, 30, 0, 0, utils.GlobalLocation)
	evt := event.Event{Kind: event.KindQuotation, Payload: &event.QuotPayload{
		Frequency: "1day",
		DayTime:   day,
		Quots: map[string]*event.Bar{
			"sh600000": {Code: "sh600000", Name: "浦发银行", Close: price, DayOpen: 10.00, DayTime: day},
		},
	}}
	if err := a.OnQuot(context.Background(), evt); err != nil {
		t.Fatalf("行情刷新失败: %v", err)
	}
	return &evt
}

func TestSimpleStopLossTriggered(t *testing.T) {
	rt := &stubRuntime{}
	a := newHoldingAccount(t, rt)

	s := NewSimpleStop(SimpleStopID, a)
	if err := s.Init(context.Background(), map[string]interface{}{"stop_lost_rate": 5.0}); err != nil {
		t.Fatalf("风控初始化失败: %v", err)
	}

	// 跌到 9.00, 亏损约 10.2%, 越过 5% 止损线
	evt := revalue(t, a, 9.00)
	if err := s.OnQuot(context.Background(), *evt); err != nil {
		t.Fatalf("风控巡检失败: %v", err)
	}

	sigs := rt.sellSignals()
	if len(sigs) != 1 {
		t.Fatalf("止损信号数不对: 期望1, 实际%d", len(sigs))
	}
	sig := sigs[0]
	if sig.Signal != trade.ActSell || sig.Code != "sh600000" {
		t.Errorf("止损信号内容不对: %+v", sig)
	}
	if sig.Volume != 200 {
		t.Errorf("止损应清可卖量: 期望200, 实际%d", sig.Volume)
	}
	if sig.Desc != "止损" {
		t.Errorf("信号描述不对: %s", sig.Desc)
	}
	t.Log("✅ 亏损越线触发止损卖出")
}

func TestSimpleStopProfitTriggered(t *testing.T) {
	rt := &stubRuntime{}
	a := newHoldingAccount(t, rt)

	s := NewSimpleStop(SimpleStopID, a)
	if err := s.Init(context.Background(), map[string]interface{}{"stop_profit_rate": 5.0}); err != nil {
		t.Fatalf("风控初始化失败: %v", err)
	}

	// 涨到 10.60, 盈利约 5.7%, 越过 5% 止盈线
	evt := revalue(t, a, 10.60)
	if err := s.OnQuot(context.Background(), *evt); err != nil {
		t.Fatalf("风控巡检失败: %v", err)
	}

	sigs := rt.sellSignals()
	if len(sigs) != 1 {
		t.Fatalf("止盈信号数不对: %d", len(sigs))
	}
	if sigs[0].Desc != "止盈" {
		t.Errorf("信号描述不对: %s", sigs[0].Desc)
	}
	t.Log("✅ 盈利越线触发止盈卖出")
}

func TestSimpleStopDisabledByDefault(t *testing.T) {
	rt := &stubRuntime{}
	a := newHoldingAccount(t, rt)

	s := NewSimpleStop(SimpleStopID, a)
	if err := s.Init(context.Background(), nil); err != nil {
		t.Fatalf("风控初始化失败: %v", err)
	}

	evt := revalue(t, a, 5.00)
	if err := s.OnQuot(context.Background(), *evt); err != nil {
		t.Fatalf("风控巡检失败: %v", err)
	}
	if len(rt.sellSignals()) != 0 {
		t.Error("未配置阈值不应触发任何信号")
	}
	t.Log("✅ 阈值未配置时风控静默")
}

func TestDummyRiskNoop(t *testing.T) {
	rt := &stubRuntime{}
	a := newHoldingAccount(t, rt)

	d := NewDummy(DummyID, a)
	evt := revalue(t, a, 5.00)
	if err := d.OnQuot(context.Background(), *evt); err != nil {
		t.Fatalf("空风控巡检失败: %v", err)
	}
	if len(rt.sellSignals()) != 0 {
		t.Error("空风控不应发信号")
	}
	t.Log("✅ 空风控不做任何巡检")
}
