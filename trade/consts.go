package trade

// 交易方向
const (
	ActBuy    = "buy"
	ActSell   = "sell"
	ActCancel = "cancel"
)

// 信号来源
const (
	SourceRisk     = "risk"
	SourceStrategy = "strategy"
	SourceBroker   = "broker"
	SourceRobot    = "robot"
	SourceManual   = "manual"
)

// 委托状态
const (
	StatusReserved = "reserved"  // 资金/持仓已冻结，尚未发往券商
	StatusInit     = "init"      // 已发往券商
	StatusCommit   = "commit"    // 券商已受理
	StatusDeal     = "deal"      // 全部成交
	StatusPartDeal = "part_deal" // 部分成交
	StatusCancel   = "cancel"    // 已撤销
)

// 队列名称
const (
	QueueAccount     = "account"
	QueueRisk        = "risk"
	QueueSignal      = "signal"
	QueueStrategy    = "strategy"
	QueueBroker      = "broker"
	QueueBrokerEvent = "broker_event"
	QueueQuotation   = "quotation"
	QueueRobot       = "robot"
)

// ObjID 生成阶段标识，如 risk:builtin:SimpleStop
func ObjID(typ, name string) string {
	return typ + ":builtin:" + name
}

// ExternalObjID 外部插件阶段标识
func ExternalObjID(typ, name string) string {
	return typ + ":external:" + name
}
