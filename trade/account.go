package trade

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ssquant/event"
	"ssquant/logger"
	"ssquant/metrics"
	"ssquant/tradedb"
	"ssquant/utils"
)

// Runtime Account 依赖的运行时能力，Trader 实现
type Runtime interface {
	Emitter
	DailyReport(ctx context.Context)
	TradeReport(ctx context.Context)
}

// Account 资金账户，现金/持仓/委托的唯一持有者，交易状态机的核心。
// 事件处理跨多个消费协程，统一由 mu 串行化。
// 不变式: CashAvailable + CashFrozen + TotalHoldValue == TotalNetValue
type Account struct {
	mu sync.Mutex

	AccountID string
	Status    int
	Category  string // stock / fund
	Type      string // backtest / simulate / realtime

	CashInit      float64
	CashAvailable float64
	CashFrozen    float64

	TotalNetValue  float64
	TotalHoldValue float64
	Cost           float64

	Profit          float64
	ProfitRate      float64
	CloseProfit     float64
	TotalProfit     float64
	TotalProfitRate float64

	BrokerFee   float64
	TransferFee float64
	TaxFee      float64

	StartTime time.Time
	EndTime   time.Time

	trading bool

	positions map[string]*Position // code -> position
	entrusts  map[string]*Entrust  // entrust_id -> entrust

	// 回测模式内存留存，供回测报告使用
	deals   []*Deal
	signals []*Signal
	history []*tradedb.AccountHistoryRecord

	store   tradedb.Store
	runtime Runtime
}

// NewAccount 创建账户对象，资金字段由调用方初始化
func NewAccount(accountID, category, typ string, store tradedb.Store, runtime Runtime) *Account {
	return &Account{
		AccountID: accountID,
		Category:  category,
		Type:      typ,
		BrokerFee: 0.00025,
		TransferFee: 0.00002,
		TaxFee:    0.001,
		positions: make(map[string]*Position),
		entrusts:  make(map[string]*Entrust),
		store:     store,
		runtime:   runtime,
	}
}

// Emit 投递事件，阶段实现通过账户发信号
func (a *Account) Emit(ctx context.Context, queue string, evt event.Event) error {
	return a.runtime.Emit(ctx, queue, evt)
}

// IsTrading 当前是否开市
func (a *Account) IsTrading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.trading
}

// Fee 手续费: max(成交额×佣金率, 5) + 沪市主板买入过户费 + 卖出印花税，四位小数
func (a *Account) Fee(act, code string, price float64, volume int) float64 {
	total := price * float64(volume)
	brokerFee := total * a.BrokerFee
	if brokerFee < 5 {
		brokerFee = 5
	}
	var taxFee float64
	switch act {
	case ActBuy:
		if strings.HasPrefix(code, "sh6") {
			taxFee = total * a.TransferFee
		}
	case ActSell:
		if strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz") {
			taxFee = total * a.TaxFee
		}
	}
	return utils.Round4(brokerFee + taxFee)
}

// TotalCost 成交额加手续费
func (a *Account) TotalCost(act, code string, price float64, volume int) float64 {
	fee := a.Fee(act, code, price, volume)
	return utils.Round4(fee + price*float64(volume))
}

// CanBuy 可用资金是否足够按价量买入
func (a *Account) CanBuy(code string, price float64, volume int) bool {
	if volume <= 0 {
		return false
	}
	cost := a.TotalCost(ActBuy, code, price, volume)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.CashAvailable >= cost
}

// PositionVolume 返回代码的总持仓量和可卖量
func (a *Account) PositionVolume(code string) (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	position, ok := a.positions[code]
	if !ok {
		return 0, 0
	}
	return position.Volume, position.VolumeAvailable
}

// Positions 持仓快照，返回副本
func (a *Account) Positions() []*Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Position, 0, len(a.positions))
	for _, p := range a.positions {
		c := *p
		out = append(out, &c)
	}
	return out
}

// Entrusts 在途委托快照，返回副本
func (a *Account) Entrusts() []*Entrust {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Entrust, 0, len(a.entrusts))
	for _, e := range a.entrusts {
		out = append(out, e.Clone())
	}
	return out
}

// ActiveEntrusts 代码对应的可撤委托
func (a *Account) ActiveEntrusts(code string) []*Entrust {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*Entrust
	for _, e := range a.entrusts {
		if e.Code == code && e.IsActive() {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Deals 回测累积的成交
func (a *Account) Deals() []*Deal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Deal(nil), a.deals...)
}

// Signals 回测累积的信号
func (a *Account) Signals() []*Signal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*Signal(nil), a.signals...)
}

// History 回测累积的每日快照
func (a *Account) History() []*tradedb.AccountHistoryRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*tradedb.AccountHistoryRecord(nil), a.history...)
}

// OnQuot 处理会话边界与行情事件。报告钩子读账户状态，放在锁外调用。
func (a *Account) OnQuot(ctx context.Context, evt event.Event) error {
	logger.Debug("account on_quot: evt=%s", evt.Kind)

	var err error
	daily, final := false, false

	a.mu.Lock()
	switch evt.Kind {
	case event.KindMorningStart, event.KindNoonStart:
		a.trading = true

	case event.KindMorningEnd:
		a.trading = false

	case event.KindNoonEnd:
		a.trading = false
		if payload, ok := evt.Payload.(*event.SessionPayload); ok {
			a.EndTime = payload.DayTime
		}
		err = a.settleSession(ctx)
		daily = err == nil

	case event.KindEnd:
		final = true

	case event.KindQuotation:
		if payload, ok := evt.Payload.(*event.QuotPayload); ok {
			err = a.revalue(ctx, payload)
		} else {
			err = fmt.Errorf("quotation payload type unexpected: %T", evt.Payload)
		}
	}
	a.mu.Unlock()

	if daily {
		a.runtime.DailyReport(ctx)
	}
	if final {
		a.runtime.TradeReport(ctx)
	}
	return err
}

// settleSession 收市清算: 解冻持仓和资金，撤掉所有未终结委托。
// 持仓 T+1, 当日买入在此转为可卖。调用方持锁。
func (a *Account) settleSession(ctx context.Context) error {
	for _, position := range a.positions {
		if position.Volume != position.VolumeAvailable {
			position.VolumeFrozen = 0
			position.VolumeAvailable = position.Volume
			if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
				logger.Error("❌ 收市保存持仓失败: %v", err)
			}
		}
	}

	for _, entrust := range a.entrusts {
		if entrust.IsActive() {
			entrust.VolumeCancel = entrust.Volume - entrust.VolumeDeal
			if entrust.VolumeDeal > 0 {
				entrust.Status = StatusPartDeal
			} else {
				entrust.Status = StatusCancel
			}
			if err := a.store.SaveEntrust(ctx, entrust.record(a.AccountID)); err != nil {
				logger.Error("❌ 收市保存委托失败: %v", err)
			}
		}
	}

	a.CashAvailable = utils.Round2(a.CashAvailable + a.CashFrozen)
	a.CashFrozen = 0
	a.TotalNetValue = a.CashAvailable + a.TotalHoldValue

	if err := a.syncToDB(ctx); err != nil {
		logger.Error("❌ 收市保存账户失败: %v", err)
	}

	if a.runtime.IsBacktest() {
		a.history = append(a.history, a.historyRecord())
	} else {
		a.entrusts = make(map[string]*Entrust)
		endTime := a.EndTime
		rec := a.historyRecord()
		rec.EndTime = &endTime
		if err := a.store.SaveAccountHistory(ctx, rec); err != nil {
			logger.Error("❌ 保存账户日结失败: %v", err)
		}
	}

	logger.Info("🛑 收市清算完毕: account=%s, net_value=%.4f, close_profit=%.4f",
		a.AccountID, a.TotalNetValue, a.CloseProfit)
	return nil
}

// revalue 按行情重估持仓并重算账户聚合字段。调用方持锁。
func (a *Account) revalue(ctx context.Context, payload *event.QuotPayload) error {
	a.Profit = 0
	a.Cost = 0
	a.TotalHoldValue = 0
	for _, position := range a.positions {
		if payload != nil && payload.Quots != nil {
			if bar, ok := payload.Quots[position.Code]; ok {
				position.OnQuot(bar, payload.DayTime)
				if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
					logger.Error("❌ 保存持仓失败: %v", err)
				}
			}
		}
		a.Profit += position.Profit
		a.TotalHoldValue = utils.Round4(a.TotalHoldValue + position.NowPrice*float64(position.Volume))
		a.Cost = utils.Round4(a.Cost + position.Price*float64(position.Volume))
	}
	a.Profit = utils.Round4(a.Profit)

	if a.Cost > 0 {
		a.ProfitRate = utils.Round4(a.Profit / a.Cost * 100)
	}
	a.TotalNetValue = a.CashAvailable + a.CashFrozen + a.TotalHoldValue
	a.TotalProfit = utils.Round4(a.CloseProfit + a.Profit)
	if a.CashInit > 0 {
		a.TotalProfitRate = utils.Round4(a.TotalProfit / a.CashInit * 100)
	}

	metrics.ObserveAccount(a.AccountID, a.CashAvailable, a.CashFrozen, a.TotalHoldValue, a.TotalNetValue, a.TotalProfit)

	return a.syncToDB(ctx)
}

// OnSignal 买卖/撤单信号的决策闸口。
// 受理后立即乐观冻结资金或持仓，再向券商队列发委托。
func (a *Account) OnSignal(ctx context.Context, evt event.Event) error {
	sig, ok := evt.Payload.(*Signal)
	if !ok {
		return fmt.Errorf("signal payload type unexpected: %T", evt.Payload)
	}
	logger.Info("account on_signal: evt=%s, code=%s, price=%.4f, volume=%d, source=%s",
		evt.Kind, sig.Code, sig.Price, sig.Volume, sig.Source)

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.trading {
		logger.Info("非交易时段，忽略信号: code=%s", sig.Code)
		return nil
	}

	if err := a.store.SaveSignal(ctx, sig.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存信号失败: %v", err)
	}
	if a.runtime.IsBacktest() {
		a.signals = append(a.signals, sig)
	}
	metrics.IncSignal(a.AccountID, sig.Signal)

	switch evt.Kind {
	case event.KindSignalBuy, event.KindSignalSell:
		return a.acceptSignal(ctx, evt.Kind, sig)
	case event.KindSignalCancel:
		entrust, ok := a.entrusts[sig.EntrustID]
		if !ok || !entrust.IsActive() {
			logger.Warn("⚠️ 撤单信号无对应在途委托: entrust_id=%s", sig.EntrustID)
			return nil
		}
		return a.runtime.Emit(ctx, QueueBroker,
			event.Event{Kind: event.KindEntrustCancel, Payload: entrust.Clone()})
	}
	return nil
}

// acceptSignal 校验并受理买卖信号。调用方持锁。
func (a *Account) acceptSignal(ctx context.Context, kind event.Kind, sig *Signal) error {
	if sig.Volume <= 0 {
		logger.Warn("⚠️ 信号量非法，丢弃: volume=%d", sig.Volume)
		return nil
	}

	var cost float64
	if kind == event.KindSignalBuy {
		if sig.Signal != ActBuy {
			logger.Error("信号类型不一致，丢弃: evt=%s, signal=%s", kind, sig.Signal)
			return nil
		}
		cost = a.TotalCost(ActBuy, sig.Code, sig.Price, sig.Volume)
		if cost > a.CashAvailable {
			logger.Warn("⚠️ 资金不足，丢弃买入信号: cost=%.4f, available=%.4f", cost, a.CashAvailable)
			return nil
		}
	} else {
		if sig.Signal != ActSell {
			logger.Error("信号类型不一致，丢弃: evt=%s, signal=%s", kind, sig.Signal)
			return nil
		}
		position, ok := a.positions[sig.Code]
		if !ok || position.VolumeAvailable < sig.Volume {
			available := 0
			if ok {
				available = position.VolumeAvailable
			}
			logger.Warn("⚠️ 可卖持仓不足，丢弃卖出信号: entrust=%d, available=%d", sig.Volume, available)
			return nil
		}
	}

	entrust := &Entrust{
		EntrustID: utils.NewID(),
		Name:      sig.Name,
		Code:      sig.Code,
		Type:      sig.Signal,
		Status:    StatusReserved,
		Price:     sig.Price,
		Volume:    sig.Volume,
		Desc:      sig.Desc,
		Time:      sig.Time,
	}
	a.entrusts[entrust.EntrustID] = entrust

	// 乐观冻结，成交或撤单时解除
	var brokerKind event.Kind
	if kind == event.KindSignalBuy {
		brokerKind = event.KindEntrustBuy
		a.CashFrozen = utils.Round2(a.CashFrozen + cost)
		a.CashAvailable = utils.Round2(a.CashAvailable - cost)
		if err := a.syncToDB(ctx); err != nil {
			logger.Error("❌ 保存账户失败: %v", err)
		}
	} else {
		brokerKind = event.KindEntrustSell
		position := a.positions[sig.Code]
		position.VolumeAvailable -= sig.Volume
		position.VolumeFrozen += sig.Volume
		if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
			logger.Error("❌ 保存持仓失败: %v", err)
		}
	}

	entrust.Status = StatusInit
	if err := a.store.SaveEntrust(ctx, entrust.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存委托失败: %v", err)
	}

	metrics.IncEntrust(a.AccountID, entrust.Type)
	logger.Info("📨 委托已受理: entrust_id=%s, type=%s, code=%s, price=%.4f, volume=%d",
		entrust.EntrustID, entrust.Type, entrust.Code, entrust.Price, entrust.Volume)

	return a.runtime.Emit(ctx, QueueBroker, event.Event{Kind: brokerKind, Payload: entrust.Clone()})
}

// OnBroker 处理券商回报事件
func (a *Account) OnBroker(ctx context.Context, evt event.Event) error {
	payload, ok := evt.Payload.(*Entrust)
	if !ok {
		return fmt.Errorf("broker payload type unexpected: %T", evt.Payload)
	}
	logger.Info("account on_broker: evt=%s, entrust_id=%s, status=%s", evt.Kind, payload.EntrustID, payload.Status)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch evt.Kind {
	case event.KindBrokerDeal:
		return a.applyDeal(ctx, payload)
	case event.KindBrokerCancelled:
		return a.applyCancel(ctx, payload)
	case event.KindBrokerCommitted:
		entrust, ok := a.entrusts[payload.EntrustID]
		if !ok {
			logger.Error("受理回报无对应委托: entrust_id=%s", payload.EntrustID)
			return nil
		}
		entrust.Status = payload.Status
		entrust.BrokerEntrustID = payload.BrokerEntrustID
		return a.store.SaveEntrust(ctx, entrust.record(a.AccountID))
	}
	return nil
}

// applyDeal 成交回报: 生成 Deal 并更新持仓与资金。调用方持锁。
func (a *Account) applyDeal(ctx context.Context, payload *Entrust) error {
	entrust := payload.Clone()
	a.entrusts[entrust.EntrustID] = entrust
	if err := a.store.SaveEntrust(ctx, entrust.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存委托失败: %v", err)
	}

	deal := &Deal{
		DealID:    utils.NewID(),
		EntrustID: entrust.EntrustID,
		Name:      entrust.Name,
		Code:      entrust.Code,
		Type:      entrust.Type,
		Price:     entrust.Price,
		Volume:    entrust.VolumeDeal,
		Time:      entrust.Time,
	}
	deal.Fee = a.Fee(entrust.Type, deal.Code, deal.Price, deal.Volume)

	switch entrust.Type {
	case ActBuy:
		a.addPosition(ctx, deal)
	case ActSell:
		if err := a.deductPosition(ctx, deal); err != nil {
			return err
		}
	}

	if a.runtime.IsBacktest() {
		a.deals = append(a.deals, deal)
	}
	if err := a.store.SaveDeal(ctx, deal.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存成交失败: %v", err)
	}
	metrics.IncDeal(a.AccountID, deal.Type)
	logger.Info("✅ 成交: type=%s, code=%s, price=%.4f, volume=%d, fee=%.4f, profit=%.4f",
		deal.Type, deal.Code, deal.Price, deal.Volume, deal.Fee, deal.Profit)

	if entrust.Volume == entrust.VolumeDeal+entrust.VolumeCancel && !a.runtime.IsBacktest() {
		delete(a.entrusts, entrust.EntrustID)
	}
	return nil
}

// applyCancel 撤单回报: 标记委托并解除剩余冻结。调用方持锁。
func (a *Account) applyCancel(ctx context.Context, payload *Entrust) error {
	entrust, ok := a.entrusts[payload.EntrustID]
	if !ok {
		logger.Error("撤单回报无对应委托: entrust_id=%s", payload.EntrustID)
		return nil
	}
	entrust.VolumeCancel = payload.VolumeCancel
	if entrust.VolumeCancel == 0 {
		entrust.VolumeCancel = entrust.Volume - entrust.VolumeDeal
	}
	if entrust.VolumeDeal != 0 {
		entrust.Status = StatusPartDeal
	} else {
		entrust.Status = StatusCancel
	}

	// 解除未成交部分的乐观冻结
	switch entrust.Type {
	case ActBuy:
		released := a.TotalCost(ActBuy, entrust.Code, entrust.Price, entrust.VolumeCancel)
		if released > a.CashFrozen {
			released = a.CashFrozen
		}
		a.CashFrozen = utils.Round2(a.CashFrozen - released)
		a.CashAvailable = utils.Round2(a.CashAvailable + released)
		if err := a.syncToDB(ctx); err != nil {
			logger.Error("❌ 保存账户失败: %v", err)
		}
	case ActSell:
		if position, ok := a.positions[entrust.Code]; ok {
			released := entrust.VolumeCancel
			if released > position.VolumeFrozen {
				released = position.VolumeFrozen
			}
			position.VolumeFrozen -= released
			position.VolumeAvailable += released
			if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
				logger.Error("❌ 保存持仓失败: %v", err)
			}
		}
	}

	if err := a.store.SaveEntrust(ctx, entrust.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存委托失败: %v", err)
	}
	if !a.runtime.IsBacktest() {
		delete(a.entrusts, entrust.EntrustID)
	}
	return nil
}

// addPosition 买入成交入仓: 新仓或按量加权摊入均价(含费)，并释放对应冻结资金。
// T+1, 当日买入量收市前不可卖。调用方持锁。
func (a *Account) addPosition(ctx context.Context, deal *Deal) {
	position, ok := a.positions[deal.Code]
	if !ok {
		position = newPosition(utils.NewID())
		position.Name = deal.Name
		position.Code = deal.Code
		position.Time = deal.Time

		position.Volume = deal.Volume
		position.VolumeAvailable = 0
		position.VolumeFrozen = deal.Volume

		position.Fee = deal.Fee
		position.Price = utils.Round4((deal.Price*float64(deal.Volume) + deal.Fee) / float64(deal.Volume))
		position.NowPrice = deal.Price
		position.update(deal.Time)

		a.positions[position.Code] = position
	} else {
		position.Time = deal.Time
		position.Fee = utils.Round4(position.Fee + deal.Fee)
		position.Price = utils.Round4(
			(position.Price*float64(position.Volume) + deal.Price*float64(deal.Volume) + deal.Fee) /
				float64(position.Volume+deal.Volume))
		position.Volume += deal.Volume
		position.VolumeFrozen += deal.Volume
		position.update(deal.Time)
	}

	if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
		logger.Error("❌ 保存持仓失败: %v", err)
	}

	a.CashFrozen = utils.Round2(a.CashFrozen - a.TotalCost(ActBuy, position.Code, deal.Price, deal.Volume))
	if err := a.revalue(ctx, nil); err != nil {
		logger.Error("❌ 更新账户失败: %v", err)
	}
}

// deductPosition 卖出成交减仓: 计算平仓盈亏，量归零时删除持仓，回笼资金。调用方持锁。
func (a *Account) deductPosition(ctx context.Context, deal *Deal) error {
	position, ok := a.positions[deal.Code]
	if !ok {
		logger.Error("deduct_position 无对应持仓: code=%s", deal.Code)
		return nil
	}

	deal.Profit = utils.Round4((deal.Price-position.Price)*float64(deal.Volume) - deal.Fee)
	a.CloseProfit = utils.Round4(a.CloseProfit + deal.Profit)
	a.TotalProfit = utils.Round4(a.TotalProfit + deal.Profit)

	position.Time = deal.Time
	position.Fee = utils.Round4(position.Fee + deal.Fee)
	position.Volume -= deal.Volume
	if deal.Volume <= position.VolumeFrozen {
		position.VolumeFrozen -= deal.Volume
	} else {
		position.VolumeFrozen = 0
		position.VolumeAvailable = position.Volume
	}

	if position.Volume > 0 {
		position.update(deal.Time)
		if err := a.store.SavePosition(ctx, position.record(a.AccountID)); err != nil {
			logger.Error("❌ 保存持仓失败: %v", err)
		}
	} else {
		delete(a.positions, position.Code)
		if err := a.store.DeletePosition(ctx, position.PositionID); err != nil {
			logger.Error("❌ 删除持仓失败: %v", err)
		}
		logger.Info("📉 清仓: code=%s, position_id=%s", position.Code, position.PositionID)
	}

	a.CashAvailable = utils.Round2(a.CashAvailable + float64(deal.Volume)*deal.Price - deal.Fee)
	return a.revalue(ctx, nil)
}

// record 生成账户落库记录。调用方持锁。
func (a *Account) record() *tradedb.AccountRecord {
	rec := &tradedb.AccountRecord{
		AccountID:       a.AccountID,
		Status:          a.Status,
		Category:        a.Category,
		Type:            a.Type,
		CashInit:        a.CashInit,
		CashAvailable:   a.CashAvailable,
		CashFrozen:      a.CashFrozen,
		TotalNetValue:   a.TotalNetValue,
		TotalHoldValue:  a.TotalHoldValue,
		Cost:            a.Cost,
		BrokerFee:       a.BrokerFee,
		TransferFee:     a.TransferFee,
		TaxFee:          a.TaxFee,
		Profit:          a.Profit,
		ProfitRate:      a.ProfitRate,
		CloseProfit:     a.CloseProfit,
		TotalProfit:     a.TotalProfit,
		TotalProfitRate: a.TotalProfitRate,
		UpdateTime:      utils.Now(),
	}
	if !a.StartTime.IsZero() {
		t := a.StartTime
		rec.StartTime = &t
	}
	if !a.EndTime.IsZero() {
		t := a.EndTime
		rec.EndTime = &t
	}
	return rec
}

// historyRecord 生成日结记录。调用方持锁。
func (a *Account) historyRecord() *tradedb.AccountHistoryRecord {
	rec := &tradedb.AccountHistoryRecord{
		AccountID:       a.AccountID,
		Status:          a.Status,
		Category:        a.Category,
		Type:            a.Type,
		CashInit:        a.CashInit,
		CashAvailable:   a.CashAvailable,
		CashFrozen:      a.CashFrozen,
		TotalNetValue:   a.TotalNetValue,
		TotalHoldValue:  a.TotalHoldValue,
		Cost:            a.Cost,
		Profit:          a.Profit,
		ProfitRate:      a.ProfitRate,
		CloseProfit:     a.CloseProfit,
		TotalProfit:     a.TotalProfit,
		TotalProfitRate: a.TotalProfitRate,
	}
	if !a.StartTime.IsZero() {
		t := a.StartTime
		rec.StartTime = &t
	}
	if !a.EndTime.IsZero() {
		t := a.EndTime
		rec.EndTime = &t
	}
	return rec
}

// Snapshot 账户快照，状态接口用
func (a *Account) Snapshot() *tradedb.AccountRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record()
}

// syncToDB 保存账户。调用方持锁。
func (a *Account) syncToDB(ctx context.Context) error {
	return a.store.SaveAccount(ctx, a.record())
}

// SyncToDB 保存账户
func (a *Account) SyncToDB(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.syncToDB(ctx)
}

// Restore 从数据库恢复账户、持仓和委托。
// 当日未终结委托保留在途, 历史遗留未终结委托直接置撤销。
func (a *Account) Restore(ctx context.Context) error {
	status := 0
	accounts, err := a.store.LoadAccounts(ctx, tradedb.AccountFilter{
		AccountID: a.AccountID, Type: a.Type, Status: &status,
	})
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("account not found: %s", a.AccountID)
	}
	rec := accounts[0]

	a.mu.Lock()
	defer a.mu.Unlock()

	a.Category = rec.Category
	a.CashInit = rec.CashInit
	a.CashAvailable = rec.CashAvailable
	a.CashFrozen = rec.CashFrozen
	a.TotalHoldValue = rec.TotalHoldValue
	a.TotalNetValue = rec.TotalNetValue
	a.Cost = rec.Cost
	a.BrokerFee = rec.BrokerFee
	a.TransferFee = rec.TransferFee
	a.TaxFee = rec.TaxFee
	a.Profit = rec.Profit
	a.ProfitRate = rec.ProfitRate
	a.CloseProfit = rec.CloseProfit
	a.TotalProfit = rec.TotalProfit
	a.TotalProfitRate = rec.TotalProfitRate
	if rec.StartTime != nil {
		a.StartTime = *rec.StartTime
	}
	if rec.EndTime != nil {
		a.EndTime = *rec.EndTime
	}

	positions, err := a.store.LoadPositions(ctx, a.AccountID)
	if err != nil {
		return err
	}
	for _, p := range positions {
		position := positionFromRecord(p)
		a.positions[position.Code] = position
	}

	entrusts, err := a.store.LoadEntrusts(ctx, a.AccountID)
	if err != nil {
		return err
	}
	today := utils.DateOf(utils.Now())
	for _, e := range entrusts {
		entrust := entrustFromRecord(e)
		if !entrust.IsActive() {
			continue
		}
		if utils.DateOf(entrust.Time).Equal(today) {
			a.entrusts[entrust.EntrustID] = entrust
			continue
		}
		entrust.VolumeCancel = entrust.Volume - entrust.VolumeDeal
		if entrust.VolumeDeal > 0 {
			entrust.Status = StatusPartDeal
		} else {
			entrust.Status = StatusCancel
		}
		if err := a.store.SaveEntrust(ctx, entrust.record(a.AccountID)); err != nil {
			logger.Error("❌ 撤销历史委托失败: %v", err)
		}
	}

	logger.Info("🔄 账户已从数据库恢复: account=%s, positions=%d, entrusts=%d",
		a.AccountID, len(a.positions), len(a.entrusts))
	return nil
}
