package trade

import (
	"context"
	"sync"
	"testing"
	"time"

	"ssquant/config"
	"ssquant/event"
	"ssquant/tradedb"
)

// scriptQuot 按脚本回放事件的行情源。
// 每发一个事件先等上一个事件在全链路处理完, 保证断言顺序确定。
type scriptQuot struct {
	trader *Trader
	events []event.Event
	idx    int
}

func (s *scriptQuot) Init(ctx context.Context, opt *config.QuotationConfig) error { return nil }

func (s *scriptQuot) GetQuot(ctx context.Context) (*event.Event, error) {
	if s.trader != nil && s.idx > 0 {
		// 按依赖顺序排空: 账户 → 策略/风控 → 信号 → 券商 → 券商反馈
		for _, q := range []string{
			QueueAccount, QueueStrategy, QueueRisk,
			QueueSignal, QueueBroker, QueueBrokerEvent,
		} {
			s.trader.queues[q].Join()
		}
	}
	if s.idx >= len(s.events) {
		return nil, nil
	}
	evt := s.events[s.idx]
	s.idx++
	return &evt, nil
}

func (s *scriptQuot) AddCodes(ctx context.Context, codes []string) (bool, error) { return false, nil }
func (s *scriptQuot) IsIndex(code string) bool                                   { return false }

// fillBroker 测试券商, 全部委托立即全量成交
type fillBroker struct {
	BaseStage
}

func (b *fillBroker) OnEntrust(ctx context.Context, evt event.Event) error {
	entrust, ok := evt.Payload.(*Entrust)
	if !ok {
		return nil
	}
	switch evt.Kind {
	case event.KindEntrustBuy, event.KindEntrustSell:
		filled := entrust.Clone()
		filled.Status = StatusDeal
		filled.VolumeDeal = filled.Volume
		return b.Account.Emit(ctx, QueueBrokerEvent,
			event.Event{Kind: event.KindBrokerDeal, Payload: filled})
	case event.KindEntrustCancel:
		cancelled := entrust.Clone()
		cancelled.Status = StatusCancel
		cancelled.VolumeCancel = cancelled.Volume - cancelled.VolumeDeal
		return b.Account.Emit(ctx, QueueBrokerEvent,
			event.Event{Kind: event.KindBrokerCancelled, Payload: cancelled})
	}
	return nil
}

// onceBuyStrategy 测试策略, 首个行情买入一手并记录收到的事件顺序
type onceBuyStrategy struct {
	BaseStage
	mu     sync.Mutex
	seen   []event.Kind
	bought bool
}

func (s *onceBuyStrategy) record(kind event.Kind) {
	s.mu.Lock()
	s.seen = append(s.seen, kind)
	s.mu.Unlock()
}

func (s *onceBuyStrategy) kinds() []event.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Kind(nil), s.seen...)
}

func (s *onceBuyStrategy) OnOpen(ctx context.Context, evt event.Event) error {
	s.record(evt.Kind)
	return nil
}

func (s *onceBuyStrategy) OnClose(ctx context.Context, evt event.Event) error {
	s.record(evt.Kind)
	return nil
}

func (s *onceBuyStrategy) OnQuot(ctx context.Context, evt event.Event) error {
	s.record(evt.Kind)
	payload, ok := evt.Payload.(*event.QuotPayload)
	if !ok {
		return nil
	}
	bar, ok := payload.Quots["sh600000"]
	if !ok || s.bought {
		return nil
	}
	s.bought = true
	return s.Buy(ctx, &Signal{
		Signal: ActBuy, Code: bar.Code, Name: bar.Name,
		Price: bar.Close, Volume: 100, Time: payload.DayTime,
	})
}

// nopRisk 测试风控, 不产生信号
type nopRisk struct {
	BaseStage
}

func (r *nopRisk) OnQuot(ctx context.Context, evt event.Event) error { return nil }

func backtestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trade.Category = config.CategoryStock
	cfg.Trade.Type = config.TypeBacktest
	cfg.Trade.AccountID = "ut_trader"
	cfg.Trade.InitCash = 100000
	cfg.Trade.BrokerFee = 0.00025
	cfg.Trade.TransferFee = 0.00002
	cfg.Trade.TaxFee = 0.001
	cfg.Trade.Strategy = &config.StageConfig{ID: "test:OnceBuy"}
	cfg.Trade.Broker = &config.StageConfig{ID: "test:Fill"}
	cfg.Trade.Risk = &config.StageConfig{ID: "test:NopRisk"}
	cfg.Trade.Quotation = config.QuotationConfig{
		Frequency: "1day",
		Codes:     []string{"sh600000"},
		StartDate: "2024-03-04",
		EndDate:   "2024-03-04",
	}
	return cfg
}

func sessionEvt(kind event.Kind, dayTime time.Time) event.Event {
	return event.Event{Kind: kind, Payload: &event.SessionPayload{
		TradeDate: dayTime.Truncate(24 * time.Hour), DayTime: dayTime,
	}}
}

func quotEvt(dayTime time.Time, price float64) event.Event {
	return event.Event{Kind: event.KindQuotation, Payload: &event.QuotPayload{
		DayTime: dayTime,
		Quots: map[string]*event.Bar{
			"sh600000": {Code: "sh600000", Name: "浦发银行", Close: price},
		},
	}}
}

func TestTraderBacktestRun(t *testing.T) {
	strategy := &onceBuyStrategy{}
	RegisterStrategy("test:OnceBuy", func(id string, account *Account) Strategy {
		strategy.BaseStage = BaseStage{StageID: id, StageName: "测试策略", Account: account}
		return strategy
	})
	RegisterBroker("test:Fill", func(id string, account *Account) Broker {
		return &fillBroker{BaseStage{StageID: id, StageName: "测试券商", Account: account}}
	})
	RegisterRisk("test:NopRisk", func(id string, account *Account) Risk {
		return &nopRisk{BaseStage{StageID: id, StageName: "测试风控", Account: account}}
	})

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	quot := &scriptQuot{events: []event.Event{
		{Kind: event.KindStart, Payload: &event.StartPayload{Frequency: "1day", Start: day}},
		sessionEvt(event.KindMorningStart, day.Add(9*time.Hour+30*time.Minute)),
		quotEvt(day.Add(10*time.Hour), 10.00),
		sessionEvt(event.KindMorningEnd, day.Add(11*time.Hour+30*time.Minute)),
		sessionEvt(event.KindNoonStart, day.Add(13*time.Hour)),
		quotEvt(day.Add(15*time.Hour), 10.50),
		sessionEvt(event.KindNoonEnd, day.Add(15*time.Hour)),
		{Kind: event.KindEnd, Payload: &event.StartPayload{Frequency: "1day", End: day}},
	}}

	trader := NewTrader(backtestConfig(), tradedb.NewNopStore(), quot)
	quot.trader = trader

	done := make(chan error, 1)
	go func() { done <- trader.Start(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("回测运行失败: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("回测未在限时内排空退出")
	}

	account := trader.Account()
	total, available := account.PositionVolume("sh600000")
	if total != 100 {
		t.Fatalf("回放结束应持仓100股, 实际 %d", total)
	}
	if available != 100 {
		t.Errorf("收市清算后应全部可卖, 实际 %d", available)
	}

	if len(account.Deals()) != 1 {
		t.Errorf("应有1笔成交, 实际 %d", len(account.Deals()))
	}
	if len(account.History()) != 1 {
		t.Errorf("应有1条日结快照, 实际 %d", len(account.History()))
	}

	// 策略收到的事件顺序与回放脚本一致
	want := []event.Kind{
		event.KindStart, event.KindMorningStart, event.KindQuotation,
		event.KindMorningEnd, event.KindNoonStart, event.KindQuotation,
		event.KindNoonEnd, event.KindEnd,
	}
	got := strategy.kinds()
	if len(got) != len(want) {
		t.Fatalf("策略收到事件数不正确: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("策略事件顺序不正确: 第%d个期望 %s, 实际 %s", i, want[i], got[i])
		}
	}

	// 排空退出后所有队列消费者不再存活
	for _, queue := range []string{QueueAccount, QueueSignal, QueueBroker, QueueBrokerEvent, QueueRisk, QueueStrategy} {
		if trader.IsRunning(queue) {
			t.Errorf("退出后队列 %s 不应存活", queue)
		}
	}
	t.Log("✅ 回测回放: 事件顺序、成交、日结与排空退出")
}

func TestTraderEmitAfterStop(t *testing.T) {
	RegisterStrategy("test:Idle", func(id string, account *Account) Strategy {
		s := &onceBuyStrategy{}
		s.BaseStage = BaseStage{StageID: id, StageName: "空策略", Account: account}
		s.bought = true
		return s
	})
	RegisterBroker("test:Fill2", func(id string, account *Account) Broker {
		return &fillBroker{BaseStage{StageID: id, StageName: "测试券商", Account: account}}
	})
	RegisterRisk("test:NopRisk2", func(id string, account *Account) Risk {
		return &nopRisk{BaseStage{StageID: id, StageName: "测试风控", Account: account}}
	})

	cfg := backtestConfig()
	cfg.Trade.Strategy.ID = "test:Idle"
	cfg.Trade.Broker.ID = "test:Fill2"
	cfg.Trade.Risk.ID = "test:NopRisk2"

	quot := &scriptQuot{}
	trader := NewTrader(cfg, tradedb.NewNopStore(), quot)

	done := make(chan error, 1)
	go func() { done <- trader.Start(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("回测运行失败: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("空脚本回测未退出")
	}

	// 停止后投递被丢弃, 不阻塞不报错
	err := trader.Emit(context.Background(), QueueSignal,
		event.Event{Kind: event.KindSignalBuy, Payload: &Signal{Signal: ActBuy}})
	if err != nil {
		t.Errorf("停止后 Emit 应静默丢弃, 实际 %v", err)
	}
	if err := trader.Emit(context.Background(), "no_such_queue", event.Event{}); err == nil {
		t.Error("未知队列应报错")
	}
}

// newIdleTrader 构造未启动的 Trader 并挂上就绪账户, 直接驱动内部路由
func newIdleTrader(t *testing.T, typ string) *Trader {
	t.Helper()
	cfg := backtestConfig()
	cfg.Trade.Type = typ

	trader := NewTrader(cfg, tradedb.NewNopStore(), nil)
	account := NewAccount(cfg.Trade.AccountID, cfg.Trade.Category, typ, tradedb.NewNopStore(), trader)
	account.CashInit = 100000
	account.CashAvailable = 100000
	account.TotalNetValue = 100000
	trader.account = account
	return trader
}

// TestAccountTaskCoalesce 实盘账户队列积压追赶:
// 行情事件合并只保留最新且最后下发, 非行情事件仍逐个按序转发
func TestAccountTaskCoalesce(t *testing.T) {
	trader := newIdleTrader(t, config.TypeSimulate)
	day := time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)

	queue := trader.queues[QueueAccount]
	queue.Put(quotEvt(day, 10.00))
	queue.Put(sessionEvt(event.KindNoonStart, day.Add(time.Hour)))
	queue.Put(quotEvt(day.Add(2*time.Minute), 10.20))
	queue.Put(quotEvt(day.Add(3*time.Minute), 10.50))

	evt, ok := queue.Get(context.Background())
	if !ok {
		t.Fatal("取积压首事件失败")
	}
	trader.drainBacklog(context.Background(), queue, evt)

	if queue.Len() != 0 {
		t.Errorf("追赶后账户队列应排空: %d", queue.Len())
	}
	joined := make(chan struct{})
	go func() { queue.Join(); close(joined) }()
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("追赶后仍有事件未记账完成")
	}

	// 扇出顺序: 会话事件先行, 最新行情最后且只有一条
	risk := trader.queues[QueueRisk]
	first, err := risk.TryGet()
	if err != nil || first.Kind != event.KindNoonStart {
		t.Fatalf("非行情事件应先按序转发: kind=%s, err=%v", first.Kind, err)
	}
	second, err := risk.TryGet()
	if err != nil || second.Kind != event.KindQuotation {
		t.Fatalf("最新行情应最后下发: kind=%s, err=%v", second.Kind, err)
	}
	payload := second.Payload.(*event.QuotPayload)
	if payload.Quots["sh600000"].Close != 10.50 {
		t.Errorf("合并应只保留最新行情: close=%.2f", payload.Quots["sh600000"].Close)
	}
	if _, err := risk.TryGet(); err == nil {
		t.Error("被合并的中间行情不应下发")
	}

	// 行情事件不转发券商
	broker := trader.queues[QueueBroker]
	b, err := broker.TryGet()
	if err != nil || b.Kind != event.KindNoonStart {
		t.Fatalf("会话事件应转发券商: kind=%s, err=%v", b.Kind, err)
	}
	if _, err := broker.TryGet(); err == nil {
		t.Error("行情事件不应转发券商")
	}

	// 账户状态由最新行情刷新
	if !trader.account.IsTrading() {
		t.Error("会话事件应已应用到账户")
	}
	t.Log("✅ 积压追赶合并行情且保序转发非行情事件")
}

// TestAccountRoutePanicRecovered 账户路由处理异常只记日志, 消费循环存活
func TestAccountRoutePanicRecovered(t *testing.T) {
	cfg := backtestConfig()
	trader := NewTrader(cfg, tradedb.NewNopStore(), nil)
	// 账户未就绪, 任何事件都会在处理器内引发panic
	day := time.Date(2024, 3, 4, 10, 0, 0, 0, time.Local)

	trader.routeAccountEvent(context.Background(), quotEvt(day, 10.00))
	trader.routeAccountEvent(context.Background(), quotEvt(day, 10.10))

	// panic被兜住后事件处理中止, 不产生扇出, 也不再崩进程
	if n := trader.queues[QueueRisk].Len(); n != 0 {
		t.Errorf("处理失败的事件不应扇出: %d", n)
	}
	t.Log("✅ 账户路由异常被兜住, 循环可继续消费")
}
