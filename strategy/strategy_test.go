package strategy

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

// signals 取记录中指定方向的交易信号
func (r *stubRuntime) signals(kind event.Kind) []*trade.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sigs []*trade.Signal
	for _, rec := range r.emitted {
		if rec.evt.Kind == kind {
			sigs = append(sigs, rec.evt.Payload.(*trade.Signal))
		}
	}
	return sigs
}

func newEmptyAccount(rt *stubRuntime) *trade.Account {
	a := trade.NewAccount("test_acct", "stock", "backtest", tradedb.NewNopStore(), rt)
	a.CashInit = 100000
	a.CashAvailable = 100000
	a.TotalNetValue = 100000
	return a
}

func quotEvt(code string, dayOpen, close float64) event.Event {
	day := time.Date(2024, 3, 4, 10, 30, 0, 0, utils.GlobalLocation)
	return event.Event{Kind: event.KindQuotation, Payload: &event.QuotPayload{
		Frequency: "1day",
		DayTime:   day,
		Quots: map[string]*event.Bar{
			code: {Code: code, Name: "测试证券", Close: close, DayOpen: dayOpen, DayTime: day},
		},
	}}
}

func TestDipBuyerBuysOnDrop(t *testing.T) {
	rt := &stubRuntime{}
	a := newEmptyAccount(rt)

	s := NewDipBuyer(DipBuyerID, a)
	if err := s.Init(context.Background(), nil); err != nil {
		t.Fatalf("策略初始化失败: %v", err)
	}

	// 日内跌 4%, 越过缺省 3% 低吸线; 30% 仓位按手取整 = 3100 股
	if err := s.OnQuot(context.Background(), quotEvt("sz000001", 10.00, 9.60)); err != nil {
		t.Fatalf("策略处理行情失败: %v", err)
	}

	buys := rt.signals(event.KindSignalBuy)
	if len(buys) != 1 {
		t.Fatalf("买入信号数不对: 期望1, 实际%d", len(buys))
	}
	sig := buys[0]
	if sig.Code != "sz000001" || sig.Price != 9.60 {
		t.Errorf("买入信号内容不对: %+v", sig)
	}
	if sig.Volume != 3100 {
		t.Errorf("买入量不对: 期望3100, 实际%d", sig.Volume)
	}
	t.Log("✅ 日内跌幅越线触发低吸买入")
}

func TestDipBuyerHoldsOnSmallDrop(t *testing.T) {
	rt := &stubRuntime{}
	a := newEmptyAccount(rt)

	s := NewDipBuyer(DipBuyerID, a)
	if err := s.Init(context.Background(), nil); err != nil {
		t.Fatalf("策略初始化失败: %v", err)
	}

	// 只跌 2%, 不到 3% 低吸线
	if err := s.OnQuot(context.Background(), quotEvt("sz000001", 10.00, 9.80)); err != nil {
		t.Fatalf("策略处理行情失败: %v", err)
	}
	if n := len(rt.signals(event.KindSignalBuy)); n != 0 {
		t.Errorf("跌幅不足不应买入: %d", n)
	}
	t.Log("✅ 跌幅不足时策略观望")
}

func TestDipBuyerSellsOnRebound(t *testing.T) {
	rt := &stubRuntime{}
	a := newEmptyAccount(rt)
	ctx := context.Background()

	// 建仓: 买 200 股 sh600000@10.00, 收市清算转可卖
	day1 := time.Date(2024, 3, 4, 10, 0, 0, 0, utils.GlobalLocation)
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindMorningStart,
		Payload: &event.SessionPayload{DayTime: day1}}); err != nil {
		t.Fatalf("开市失败: %v", err)
	}
	buy := &trade.Signal{SignalID: utils.NewID(), Signal: trade.ActBuy,
		Code: "sh600000", Name: "浦发银行", Price: 10.00, Volume: 200, Time: day1}
	if err := a.OnSignal(ctx, event.Event{Kind: event.KindSignalBuy, Payload: buy}); err != nil {
		t.Fatalf("买入信号失败: %v", err)
	}
	var entrust *trade.Entrust
	for i := len(rt.emitted) - 1; i >= 0; i-- {
		if rt.emitted[i].queue == trade.QueueBroker {
			entrust = rt.emitted[i].evt.Payload.(*trade.Entrust)
			break
		}
	}
	if entrust == nil {
		t.Fatal("委托未发往券商")
	}
	feedback := entrust.Clone()
	feedback.Status = trade.StatusDeal
	feedback.VolumeDeal = feedback.Volume
	if err := a.OnBroker(ctx, event.Event{Kind: event.KindBrokerDeal, Payload: feedback}); err != nil {
		t.Fatalf("成交回报失败: %v", err)
	}
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindNoonEnd,
		Payload: &event.SessionPayload{DayTime: day1.Add(5 * time.Hour)}}); err != nil {
		t.Fatalf("收市清算失败: %v", err)
	}
	if err := a.OnQuot(ctx, event.Event{Kind: event.KindMorningStart,
		Payload: &event.SessionPayload{DayTime: day1.AddDate(0, 0, 1)}}); err != nil {
		t.Fatalf("次日开市失败: %v", err)
	}

	s := NewDipBuyer(DipBuyerID, a)
	if err := s.Init(ctx, nil); err != nil {
		t.Fatalf("策略初始化失败: %v", err)
	}

	// 涨到 10.60, 含费盈利约 5.7%, 越过缺省 5% 止盈线
	evt := quotEvt("sh600000", 10.00, 10.60)
	if err := a.OnQuot(ctx, evt); err != nil {
		t.Fatalf("行情刷新失败: %v", err)
	}
	if err := s.OnQuot(ctx, evt); err != nil {
		t.Fatalf("策略处理行情失败: %v", err)
	}

	sells := rt.signals(event.KindSignalSell)
	if len(sells) != 1 {
		t.Fatalf("清仓信号数不对: 期望1, 实际%d", len(sells))
	}
	if sells[0].Volume != 200 {
		t.Errorf("清仓量不对: 期望200, 实际%d", sells[0].Volume)
	}
	if sells[0].Desc != "反弹清仓" {
		t.Errorf("信号描述不对: %s", sells[0].Desc)
	}
	t.Log("✅ 反弹越线触发清仓卖出")
}

func TestDummyStrategyBuys(t *testing.T) {
	rt := &stubRuntime{}
	a := newEmptyAccount(rt)

	d := NewDummy(DummyID, a)
	if err := d.OnQuot(context.Background(), quotEvt("sz000001", 10.00, 10.00)); err != nil {
		t.Fatalf("策略处理行情失败: %v", err)
	}

	buys := rt.signals(event.KindSignalBuy)
	if len(buys) != 1 {
		t.Fatalf("买入信号数不对: %d", len(buys))
	}
	if buys[0].Volume != 200 {
		t.Errorf("买入量不对: %d", buys[0].Volume)
	}
	if n := len(rt.signals(event.KindSignalSell)); n != 0 {
		t.Errorf("空仓不应卖出: %d", n)
	}
	t.Log("✅ Dummy策略空仓时买入200股")
}
