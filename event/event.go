package event

import (
	"time"
)

// Kind 事件类型
type Kind string

const (
	// 行情事件：程序开始 / 早市开市 / 午市开市
	KindStart        Kind = "evt_start"
	KindMorningStart Kind = "evt_morning_start"
	KindNoonStart    Kind = "evt_noon_start"

	// 行情下发
	KindQuotation Kind = "evt_quotation"

	// 程序结束 / 早市结束 / 午市结束
	KindEnd        Kind = "evt_end"
	KindMorningEnd Kind = "evt_morning_end"
	KindNoonEnd    Kind = "evt_noon_end"

	// 委托事件（payload = *trade.Entrust）：买 / 卖 / 撤销
	KindEntrustBuy    Kind = "evt_entrust_buy"
	KindEntrustSell   Kind = "evt_entrust_sell"
	KindEntrustCancel Kind = "evt_entrust_cancel"

	// broker反馈事件：已提交 / 成交 / 已撤销
	KindBrokerCommitted Kind = "evt_broker_committed"
	KindBrokerDeal      Kind = "evt_broker_deal"
	KindBrokerCancelled Kind = "evt_broker_cancelled"

	// 交易信号事件：委托买 / 委托卖 / 取消委托
	KindSignalBuy    Kind = "evt_sig_buy"
	KindSignalSell   Kind = "evt_sig_sell"
	KindSignalCancel Kind = "evt_sig_cancel"

	// 订阅行情事件
	KindQuotCodes Kind = "evt_quot_codes"

	// 内部终止标记，用于唤醒阻塞中的队列消费者，各消费循环直接丢弃
	KindTerm Kind = "__evt_term"
)

// IsOpen 是否为开市类边界事件
func (k Kind) IsOpen() bool {
	return k == KindStart || k == KindMorningStart || k == KindNoonStart
}

// IsClose 是否为收市类边界事件
func (k Kind) IsClose() bool {
	return k == KindEnd || k == KindMorningEnd || k == KindNoonEnd
}

// Event 队列中流转的事件单元
type Event struct {
	Kind    Kind
	Payload interface{}
}

// Bar 单只标的的一根行情K线快照
type Bar struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount"`
	Turnover  float64   `json:"turnover"`
	LastClose float64   `json:"last_close"`
	DayOpen   float64   `json:"day_open"`
	DayHigh   float64   `json:"day_high"`
	DayLow    float64   `json:"day_low"`
	DayTime   time.Time `json:"day_time"`
}

// StartPayload 开始/结束事件负载
type StartPayload struct {
	Frequency string
	Start     time.Time
	End       time.Time // 仅 evt_end 有效
}

// SessionPayload 交易时段边界事件负载
type SessionPayload struct {
	Frequency string
	TradeDate time.Time
	DayTime   time.Time
}

// QuotPayload 行情下发事件负载
type QuotPayload struct {
	Frequency string
	TradeDate time.Time
	DayTime   time.Time
	Quots     map[string]*Bar
}
