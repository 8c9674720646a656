package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 事件路由指标
	eventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssquant_event_total",
			Help: "Total number of events routed per queue",
		},
		[]string{"queue", "kind"},
	)

	// 交易指标
	signalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssquant_signal_total",
			Help: "Total number of trade signals accepted by the account",
		},
		[]string{"account", "signal"},
	)

	entrustTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssquant_entrust_total",
			Help: "Total number of entrusts emitted to the broker stage",
		},
		[]string{"account", "type"},
	)

	dealTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssquant_deal_total",
			Help: "Total number of deals confirmed by the broker stage",
		},
		[]string{"account", "type"},
	)

	// 账户指标
	cashAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ssquant_account_cash_available",
			Help: "Available cash of the account",
		},
		[]string{"account"},
	)

	cashFrozen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ssquant_account_cash_frozen",
			Help: "Frozen cash of the account",
		},
		[]string{"account"},
	)

	holdValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ssquant_account_hold_value",
			Help: "Total market value of open positions",
		},
		[]string{"account"},
	)

	netValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ssquant_account_net_value",
			Help: "Total net value of the account",
		},
		[]string{"account"},
	)

	totalProfit = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ssquant_account_total_profit",
			Help: "Total profit of the account, realized plus floating",
		},
		[]string{"account"},
	)

	// 系统指标，robot 巡检上报
	systemCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ssquant_system_cpu_percent",
			Help: "Host CPU usage percent",
		},
	)

	systemMemPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ssquant_system_mem_percent",
			Help: "Host memory usage percent",
		},
	)
)

// IncEvent 记录一次队列事件投递
func IncEvent(queue, kind string) {
	eventTotal.WithLabelValues(queue, kind).Inc()
}

// IncSignal 记录一次信号受理
func IncSignal(account, signal string) {
	signalTotal.WithLabelValues(account, signal).Inc()
}

// IncEntrust 记录一次委托发出
func IncEntrust(account, typ string) {
	entrustTotal.WithLabelValues(account, typ).Inc()
}

// IncDeal 记录一次成交回报
func IncDeal(account, typ string) {
	dealTotal.WithLabelValues(account, typ).Inc()
}

// ObserveAccount 更新账户估值指标
func ObserveAccount(account string, available, frozen, hold, net, profit float64) {
	cashAvailable.WithLabelValues(account).Set(available)
	cashFrozen.WithLabelValues(account).Set(frozen)
	holdValue.WithLabelValues(account).Set(hold)
	netValue.WithLabelValues(account).Set(net)
	totalProfit.WithLabelValues(account).Set(profit)
}

// ObserveSystem 更新主机资源指标
func ObserveSystem(cpuPercent, memPercent float64) {
	systemCPUPercent.Set(cpuPercent)
	systemMemPercent.Set(memPercent)
}
