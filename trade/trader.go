package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ssquant/config"
	"ssquant/event"
	"ssquant/logger"
	"ssquant/metrics"
	"ssquant/tradedb"
	"ssquant/utils"
)

// QuotSource 行情源，回测和实盘实现同一协议
type QuotSource interface {
	Init(ctx context.Context, opt *config.QuotationConfig) error
	// GetQuot 返回下一个事件，暂无数据返回 nil。回测数据耗尽后持续返回 nil。
	GetQuot(ctx context.Context) (*event.Event, error)
	// AddCodes 运行中追加订阅，已订阅代码幂等，无新增返回 false
	AddCodes(ctx context.Context, codes []string) (bool, error)
	IsIndex(code string) bool
}

// ReportHook 日报/终报渲染钩子，渲染实现在 report 包
type ReportHook interface {
	Daily(ctx context.Context, account *Account)
	Final(ctx context.Context, account *Account)
}

const drainIdle = 100 * time.Millisecond

// Trader 事件路由器: 持有全部命名队列，每个阶段一个消费协程，
// 负责启动、优雅停止和依赖感知的排空顺序。
type Trader struct {
	cfg   *config.Config
	store tradedb.Store
	quot  QuotSource

	account  *Account
	broker   Broker
	risk     Risk
	strategy Strategy
	robot    Robot

	queues map[string]*event.Queue

	running  atomic.Bool
	stopOnce sync.Once

	dependMu sync.Mutex
	depend   map[string]int

	report ReportHook

	wg sync.WaitGroup
}

// NewTrader 创建路由器
func NewTrader(cfg *config.Config, store tradedb.Store, quot QuotSource) *Trader {
	queues := make(map[string]*event.Queue)
	for _, name := range []string{
		QueueAccount, QueueRisk, QueueSignal, QueueStrategy,
		QueueBroker, QueueBrokerEvent, QueueQuotation, QueueRobot,
	} {
		queues[name] = event.NewQueue(0)
	}
	return &Trader{
		cfg:    cfg,
		store:  store,
		quot:   quot,
		queues: queues,
		depend: make(map[string]int),
	}
}

// SetReportHook 挂载报告渲染钩子，必须在 Start 前调用
func (t *Trader) SetReportHook(hook ReportHook) { t.report = hook }

// Account 当前账户
func (t *Trader) Account() *Account { return t.account }

// IsBacktest 是否回测模式
func (t *Trader) IsBacktest() bool { return t.cfg.IsBacktest() }

// IsTrading 当前是否开市
func (t *Trader) IsTrading() bool {
	if t.account == nil {
		return false
	}
	return t.account.IsTrading()
}

// IsRunning 队列消费者是否存活: 运行中，或有依赖方未退出，或队列未排空
func (t *Trader) IsRunning(queue string) bool {
	if t.running.Load() {
		return true
	}
	if t.dependCount(queue) > 0 {
		return true
	}
	if q, ok := t.queues[queue]; ok {
		return q.Len() > 0
	}
	return false
}

// Emit 向指定队列投递事件。停止后由依赖计数保活的队列仍可投递。
func (t *Trader) Emit(ctx context.Context, queue string, evt event.Event) error {
	q, ok := t.queues[queue]
	if !ok {
		return fmt.Errorf("unknown queue: %s", queue)
	}
	if !t.IsRunning(queue) {
		logger.Error("trader 已停止，丢弃事件: queue=%s, evt=%s", queue, evt.Kind)
		return nil
	}
	q.Put(evt)
	metrics.IncEvent(queue, string(evt.Kind))
	return nil
}

// DailyReport 收市日报钩子
func (t *Trader) DailyReport(ctx context.Context) {
	if t.report != nil {
		t.report.Daily(ctx, t.account)
	}
}

// TradeReport 终盘报告钩子
func (t *Trader) TradeReport(ctx context.Context) {
	if t.report != nil {
		t.report.Final(ctx, t.account)
	}
}

func (t *Trader) incrDepend(queue string) {
	t.dependMu.Lock()
	defer t.dependMu.Unlock()
	t.depend[queue]++
}

func (t *Trader) decrDepend(queue string) {
	t.dependMu.Lock()
	defer t.dependMu.Unlock()
	t.depend[queue]--
}

func (t *Trader) dependCount(queue string) int {
	t.dependMu.Lock()
	defer t.dependMu.Unlock()
	return t.depend[queue]
}

// Start 初始化账户、阶段和行情源并启动全部消费任务，阻塞到全部排空退出
func (t *Trader) Start(ctx context.Context) error {
	if err := t.initAccount(ctx); err != nil {
		return fmt.Errorf("初始化账户异常: %w", err)
	}
	logger.Info("✅ account inited: %s", t.account.AccountID)

	if err := t.quot.Init(ctx, &t.cfg.Trade.Quotation); err != nil {
		return fmt.Errorf("初始化行情异常: %w", err)
	}
	logger.Info("✅ quotation inited: frequency=%s, codes=%v",
		t.cfg.Trade.Quotation.Frequency, t.cfg.Trade.Quotation.Codes)

	t.running.Store(true)

	t.wg.Add(1)
	go t.quotTask(ctx)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueQuotation, "quot_sub_task(行情订阅)", t.onQuotSub, nil, nil)

	t.wg.Add(1)
	go t.accountTask(ctx)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueSignal, "signal_task(交易信号)", t.account.OnSignal, nil, nil)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueRisk, "risk_task(风控策略)",
		t.risk.OnQuot, t.risk.OnOpen, t.risk.OnClose)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueStrategy, "strategy_task(交易策略)",
		t.strategy.OnQuot, t.strategy.OnOpen, t.strategy.OnClose)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueBroker, "broker_task(券商委托)",
		t.broker.OnEntrust, t.broker.OnOpen, t.broker.OnClose)

	t.wg.Add(1)
	go t.generalTask(ctx, QueueBrokerEvent, "broker_event_task(券商反馈事件)",
		t.account.OnBroker, nil, nil)

	if t.robot != nil {
		t.wg.Add(1)
		go t.generalTask(ctx, QueueRobot, "robot_task(机器运维)",
			t.robot.OnRobot, t.robot.OnOpen, t.robot.OnClose)
	}

	t.wg.Wait()

	t.destroy(ctx)

	logger.Info("🛑 trader done, exit!")
	return nil
}

// Stop 协作式停止: 翻停止标志并向每个队列广播终止标记，
// 在途事件由依赖计数保证排空后任务才退出
func (t *Trader) Stop() {
	t.stopOnce.Do(func() {
		logger.Info("🛑 stop trade...")
		t.running.Store(false)
		for _, q := range t.queues {
			q.Put(event.Event{Kind: event.KindTerm})
		}
	})
}

func (t *Trader) destroy(ctx context.Context) {
	for _, stage := range []Stage{t.broker, t.risk, t.strategy} {
		if stage == nil {
			continue
		}
		if err := stage.Destroy(ctx); err != nil {
			logger.Error("❌ 销毁阶段失败: id=%s, err=%v", stage.ID(), err)
		}
	}
	if t.robot != nil {
		if err := t.robot.Destroy(ctx); err != nil {
			logger.Error("❌ 销毁机器人失败: %v", err)
		}
	}
}

// initAccount 恢复或新建账户并装配阶段实现
func (t *Trader) initAccount(ctx context.Context) error {
	trade := t.cfg.Trade

	accountID := trade.AccountID
	if accountID == "" {
		accountID = utils.NewID()
	}

	account := NewAccount(accountID, trade.Category, trade.Type, t.store, t)

	resumed := false
	if !t.IsBacktest() && trade.AccountID != "" {
		status := 0
		existing, err := t.store.LoadAccounts(ctx, tradedb.AccountFilter{
			AccountID: accountID, Type: trade.Type, Status: &status,
		})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			if err := account.Restore(ctx); err != nil {
				return err
			}
			resumed = true
		}
	}

	if !resumed {
		account.CashInit = trade.InitCash
		account.CashAvailable = trade.InitCash
		account.BrokerFee = trade.BrokerFee
		account.TransferFee = trade.TransferFee
		account.TaxFee = trade.TaxFee
		account.StartTime = utils.Now()
		if t.IsBacktest() && trade.Quotation.StartDate != "" {
			if start, err := time.ParseInLocation("2006-01-02", trade.Quotation.StartDate, utils.GlobalLocation); err == nil {
				account.StartTime = start
			}
		}
	}

	t.account = account

	strategyID, strategyOpt := stageSelector(trade.Strategy)
	brokerID, brokerOpt := stageSelector(trade.Broker)
	riskID, riskOpt := stageSelector(trade.Risk)
	robotID, robotOpt := stageSelector(trade.Robot)

	if brokerID == "" && (trade.Type == config.TypeBacktest || trade.Type == config.TypeSimulate) {
		brokerID = "builtin:BrokerSimulate"
	}
	if riskID == "" {
		riskID = "builtin:Dummy"
	}

	if resumed {
		info, err := t.store.LoadStrategyInfo(ctx, accountID)
		if err != nil {
			return err
		}
		if info != nil {
			strategyID, strategyOpt = info.StrategyID, unmarshalOpt(info.StrategyOpt)
			brokerID, brokerOpt = info.BrokerID, unmarshalOpt(info.BrokerOpt)
			riskID, riskOpt = info.RiskID, unmarshalOpt(info.RiskOpt)
			if info.QuotOpt != "" {
				var quotOpt config.QuotationConfig
				if err := json.Unmarshal([]byte(info.QuotOpt), &quotOpt); err == nil {
					t.cfg.Trade.Quotation = quotOpt
				}
			}
		}
	}

	broker, err := NewBroker(brokerID, account)
	if err != nil {
		return err
	}
	if err := broker.Init(ctx, brokerOpt); err != nil {
		return fmt.Errorf("init broker failed: %w", err)
	}
	t.broker = broker

	risk, err := NewRisk(riskID, account)
	if err != nil {
		return err
	}
	if err := risk.Init(ctx, riskOpt); err != nil {
		return fmt.Errorf("init risk failed: %w", err)
	}
	t.risk = risk

	strategy, err := NewStrategy(strategyID, account)
	if err != nil {
		return err
	}
	if err := strategy.Init(ctx, strategyOpt); err != nil {
		return fmt.Errorf("init strategy failed: %w", err)
	}
	t.strategy = strategy

	if robotID != "" {
		robot, err := NewRobot(robotID, account)
		if err != nil {
			return err
		}
		if err := robot.Init(ctx, robotOpt); err != nil {
			return fmt.Errorf("init robot failed: %w", err)
		}
		t.robot = robot
	}

	if !resumed {
		if err := account.SyncToDB(ctx); err != nil {
			return err
		}
		quotOpt, _ := json.Marshal(t.cfg.Trade.Quotation)
		info := &tradedb.StrategyInfoRecord{
			AccountID:   accountID,
			StrategyID:  strategyID,
			StrategyOpt: marshalOpt(strategyOpt),
			BrokerID:    brokerID,
			BrokerOpt:   marshalOpt(brokerOpt),
			RiskID:      riskID,
			RiskOpt:     marshalOpt(riskOpt),
			QuotOpt:     string(quotOpt),
		}
		if err := t.store.SaveStrategyInfo(ctx, info); err != nil {
			return err
		}
	}

	return nil
}

func stageSelector(sc *config.StageConfig) (string, map[string]interface{}) {
	if sc == nil {
		return "", nil
	}
	return sc.ID, sc.Option
}

func marshalOpt(opt map[string]interface{}) string {
	if opt == nil {
		return ""
	}
	data, err := json.Marshal(opt)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalOpt(data string) map[string]interface{} {
	if data == "" {
		return nil
	}
	var opt map[string]interface{}
	if err := json.Unmarshal([]byte(data), &opt); err != nil {
		return nil
	}
	return opt
}

// quotTask 行情泵: 轮询行情源并转发到账户队列。
// 回测模式数据耗尽后等全部队列排空再停止；实盘按限速轮询永不自停。
func (t *Trader) quotTask(ctx context.Context) {
	defer t.wg.Done()
	logger.Info("🚀 开始运行quot_task(行情下发)任务")

	isBacktest := t.IsBacktest()
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	for t.running.Load() {
		evt, err := t.quot.GetQuot(ctx)
		if err != nil {
			logger.Error("❌ 获取行情失败: %v", err)
		}
		if evt != nil {
			t.queues[QueueAccount].Put(*evt)
			metrics.IncEvent(QueueAccount, string(evt.Kind))
		}

		if isBacktest {
			if evt == nil && err == nil {
				for _, q := range t.queues {
					q.Join()
				}
				t.Stop()
				break
			}
			// 让出执行权
			time.Sleep(time.Millisecond)
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			t.Stop()
			break
		}
	}
	logger.Info("✅ quot_task(行情下发)任务运行完毕")
}

// onQuotSub 处理运行中追加的行情订阅
func (t *Trader) onQuotSub(ctx context.Context, evt event.Event) error {
	if evt.Kind != event.KindQuotCodes || !t.running.Load() {
		return nil
	}
	codes, ok := evt.Payload.([]string)
	if !ok || len(codes) == 0 {
		return nil
	}
	added, err := t.quot.AddCodes(ctx, codes)
	if err != nil {
		return err
	}
	if added {
		logger.Info("📈 追加订阅行情: codes=%v", codes)
	}
	return nil
}

// accountTask 账户队列的唯一消费者: 先应用到账户，再扇出到依赖阶段。
// 行情事件不转发 broker/robot。实盘积压时行情事件合并只保留最新，
// 非行情事件仍逐个按序处理。
func (t *Trader) accountTask(ctx context.Context) {
	t.incrDepend(QueueBrokerEvent)
	t.incrDepend(QueueBroker)
	defer func() {
		t.decrDepend(QueueBrokerEvent)
		t.decrDepend(QueueBroker)
		t.wg.Done()
		logger.Info("✅ account_task(账户行情转发)任务运行完毕")
	}()

	logger.Info("🚀 开始运行account_task(账户行情转发)任务")
	queue := t.queues[QueueAccount]

	for t.IsRunning(QueueAccount) {
		evt, ok := t.nextEvent(ctx, queue)
		if !ok {
			continue
		}
		if evt.Kind == event.KindTerm {
			queue.Done()
			continue
		}

		if !t.IsBacktest() && queue.Len() > 0 {
			t.drainBacklog(ctx, queue, evt)
			continue
		}

		t.routeAccountEvent(ctx, evt)
		queue.Done()
	}
}

// drainBacklog 积压追赶: 合并行情事件保留最新，非行情事件按序处理
func (t *Trader) drainBacklog(ctx context.Context, queue *event.Queue, evt event.Event) {
	var latestQuot *event.Event
	for {
		logger.Warn("⚠️ 账户队列积压，处理过慢...")
		switch evt.Kind {
		case event.KindQuotation:
			e := evt
			latestQuot = &e
		case event.KindTerm:
			// 终止标记，忽略
		default:
			t.routeAccountEvent(ctx, evt)
		}
		queue.Done()

		next, err := queue.TryGet()
		if err != nil {
			break
		}
		evt = next
	}
	if latestQuot != nil {
		t.routeAccountEvent(ctx, *latestQuot)
	}
}

// routeAccountEvent 应用事件到账户并扇出。处理异常只记日志，消费循环继续。
func (t *Trader) routeAccountEvent(ctx context.Context, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ account task panic: evt=%s, panic=%v", evt.Kind, r)
		}
	}()

	if err := t.account.OnQuot(ctx, evt); err != nil {
		logger.Error("❌ account task exception: evt=%s, err=%v", evt.Kind, err)
	}

	if evt.Kind != event.KindQuotation {
		t.put(QueueBroker, evt)
		if t.robot != nil {
			t.put(QueueRobot, evt)
		}
	}
	t.put(QueueRisk, evt)
	t.put(QueueStrategy, evt)
}

func (t *Trader) put(queue string, evt event.Event) {
	t.queues[queue].Put(evt)
	metrics.IncEvent(queue, string(evt.Kind))
}

// nextEvent 运行中阻塞取，停止后非阻塞排空
func (t *Trader) nextEvent(ctx context.Context, queue *event.Queue) (event.Event, bool) {
	if t.running.Load() {
		return queue.Get(ctx)
	}
	evt, err := queue.TryGet()
	if err != nil {
		time.Sleep(drainIdle)
		return event.Event{}, false
	}
	return evt, true
}

type eventHandler func(ctx context.Context, evt event.Event) error

// generalTask 通用阶段消费任务: 会话开市事件走 open，收市事件走 close，
// 其余走主处理函数。处理函数异常只记日志，不中断队列消费。
func (t *Trader) generalTask(ctx context.Context, queueName, label string,
	handler, openFn, closeFn eventHandler) {

	dependsAccount := false
	switch queueName {
	case QueueSignal, QueueRisk, QueueStrategy, QueueRobot:
		dependsAccount = true
		t.incrDepend(QueueAccount)
	}
	if queueName == QueueBroker {
		// 券商回报仍要回流 broker_event
		t.incrDepend(QueueBrokerEvent)
	}

	defer func() {
		if dependsAccount {
			t.decrDepend(QueueAccount)
		}
		if queueName == QueueBroker {
			t.decrDepend(QueueBrokerEvent)
		}
		t.wg.Done()
		logger.Info("✅ %s任务运行完毕", label)
	}()

	logger.Info("🚀 开始运行%s任务", label)
	queue := t.queues[queueName]

	for t.IsRunning(queueName) {
		evt, ok := t.nextEvent(ctx, queue)
		if !ok {
			continue
		}
		if evt.Kind == event.KindTerm {
			queue.Done()
			continue
		}

		t.dispatch(ctx, queueName, evt, handler, openFn, closeFn)
		queue.Done()
	}
}

func (t *Trader) dispatch(ctx context.Context, queueName string, evt event.Event,
	handler, openFn, closeFn eventHandler) {

	defer func() {
		if r := recover(); r != nil {
			logger.Error("❌ %s task panic: evt=%s, panic=%v", queueName, evt.Kind, r)
		}
	}()

	handled := false
	var err error
	if openFn != nil && evt.Kind.IsOpen() {
		err = openFn(ctx, evt)
		handled = true
	}
	if closeFn != nil && evt.Kind.IsClose() {
		err = closeFn(ctx, evt)
		handled = true
	}
	if !handled && handler != nil {
		err = handler(ctx, evt)
	}
	if err != nil {
		logger.Error("❌ %s task exception: evt=%s, err=%v", queueName, evt.Kind, err)
	}
}
