// Package report 日报与终盘报告
package report

import (
	"context"

	"ssquant/logger"
	"ssquant/trade"
	"ssquant/tradedb"
	"ssquant/utils"
)

// Report 报告渲染: 收市打日报，终盘汇总整段运行的交易统计
type Report struct {
	store tradedb.Store
}

// NewReport 创建报告钩子
func NewReport(store tradedb.Store) *Report {
	return &Report{store: store}
}

// Daily 收市日报
func (r *Report) Daily(ctx context.Context, account *trade.Account) {
	snapshot := account.Snapshot()
	logger.Info("📊 日报: account=%s, net_value=%.4f, hold_value=%.4f, cash_available=%.4f, "+
		"profit=%.4f(%.4f%%), close_profit=%.4f, total_profit=%.4f(%.4f%%)",
		snapshot.AccountID, snapshot.TotalNetValue, snapshot.TotalHoldValue, snapshot.CashAvailable,
		snapshot.Profit, snapshot.ProfitRate, snapshot.CloseProfit,
		snapshot.TotalProfit, snapshot.TotalProfitRate)
}

// Summary 终盘统计
type Summary struct {
	Days        int     `json:"days"`
	DealCount   int     `json:"deal_count"`
	SellCount   int     `json:"sell_count"`
	WinCount    int     `json:"win_count"`
	WinRate     float64 `json:"win_rate"`     // 百分比
	TotalFee    float64 `json:"total_fee"`
	TotalProfit float64 `json:"total_profit"`
	ProfitRate  float64 `json:"profit_rate"`  // 百分比
	MaxDrawdown float64 `json:"max_drawdown"` // 百分比
}

// Final 终盘报告: 回测直接用内存留存，实盘从数据库取历史
func (r *Report) Final(ctx context.Context, account *trade.Account) {
	summary, err := r.Collect(ctx, account)
	if err != nil {
		logger.Error("❌ 终盘报告收集失败: %v", err)
		return
	}

	snapshot := account.Snapshot()
	logger.Info("📊 终盘报告: account=%s", snapshot.AccountID)
	logger.Info("📊   交易天数=%d, 成交笔数=%d", summary.Days, summary.DealCount)
	logger.Info("📊   平仓笔数=%d, 盈利笔数=%d, 胜率=%.2f%%", summary.SellCount, summary.WinCount, summary.WinRate)
	logger.Info("📊   总费用=%.4f, 总盈亏=%.4f(%.4f%%), 最大回撤=%.2f%%",
		summary.TotalFee, summary.TotalProfit, summary.ProfitRate, summary.MaxDrawdown)
}

// Collect 汇总交易统计
func (r *Report) Collect(ctx context.Context, account *trade.Account) (*Summary, error) {
	deals := account.Deals()
	history := account.History()

	// 实盘模式内存不留存，从数据库取
	if len(deals) == 0 {
		recs, err := r.store.LoadDeals(ctx, account.AccountID)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			deal := &trade.Deal{
				DealID: rec.DealID, EntrustID: rec.EntrustID,
				Name: rec.Name, Code: rec.Code, Type: rec.Type,
				Price: rec.Price, Volume: rec.Volume,
				Fee: rec.Fee, Profit: rec.Profit,
			}
			deals = append(deals, deal)
		}
	}

	netValues := make([]float64, 0, len(history))
	for _, rec := range history {
		netValues = append(netValues, rec.TotalNetValue)
	}
	if len(netValues) == 0 {
		recs, err := r.store.LoadAccountHistory(ctx, account.AccountID)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			netValues = append(netValues, rec.TotalNetValue)
		}
	}

	summary := &Summary{Days: len(netValues), DealCount: len(deals)}
	for _, deal := range deals {
		summary.TotalFee = utils.Round4(summary.TotalFee + deal.Fee)
		if deal.Type == trade.ActSell {
			summary.SellCount++
			if deal.Profit > 0 {
				summary.WinCount++
			}
		}
	}
	if summary.SellCount > 0 {
		summary.WinRate = utils.Round2(float64(summary.WinCount) / float64(summary.SellCount) * 100)
	}

	snapshot := account.Snapshot()
	summary.TotalProfit = snapshot.TotalProfit
	summary.ProfitRate = snapshot.TotalProfitRate
	summary.MaxDrawdown = maxDrawdown(netValues)

	return summary, nil
}

// maxDrawdown 历史净值序列的最大回撤，百分比
func maxDrawdown(netValues []float64) float64 {
	peak, drawdown := 0.0, 0.0
	for _, v := range netValues {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			d := (peak - v) / peak * 100
			if d > drawdown {
				drawdown = d
			}
		}
	}
	return utils.Round2(drawdown)
}
