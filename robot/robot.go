// Package robot 运维机器人: 会话边界巡检主机资源并上报
package robot

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"ssquant/event"
	"ssquant/logger"
	"ssquant/metrics"
	"ssquant/trade"
)

// SystemID 内置系统巡检机器人标识
const SystemID = "builtin:SystemRobot"

// System 系统巡检机器人: 开收市各做一次资源巡检，
// 内存占用越过阈值时告警
type System struct {
	trade.BaseStage

	memWarnPercent float64
}

// NewSystem 创建系统巡检机器人
func NewSystem(id string, account *trade.Account) trade.Robot {
	return &System{
		BaseStage: trade.BaseStage{
			StageID:   id,
			StageName: "神算子系统巡检",
			Account:   account,
		},
		memWarnPercent: 90,
	}
}

// Init 读取告警阈值
func (s *System) Init(ctx context.Context, opt map[string]interface{}) error {
	if opt != nil {
		if v, ok := opt["mem_warn_percent"].(float64); ok && v > 0 {
			s.memWarnPercent = v
		}
	}
	return nil
}

// OnOpen 开市巡检
func (s *System) OnOpen(ctx context.Context, evt event.Event) error {
	return s.inspect(ctx, string(evt.Kind))
}

// OnClose 收市巡检
func (s *System) OnClose(ctx context.Context, evt event.Event) error {
	return s.inspect(ctx, string(evt.Kind))
}

// OnRobot 其他事件不巡检
func (s *System) OnRobot(ctx context.Context, evt event.Event) error {
	logger.Debug("robot on_robot: %s", evt.Kind)
	return nil
}

// inspect 采集CPU/内存/负载并上报指标
func (s *System) inspect(ctx context.Context, reason string) error {
	cpuPercent := 0.0
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		cpuPercent = percents[0]
	}

	memPercent := 0.0
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memPercent = vm.UsedPercent
	}

	load1 := 0.0
	if avg, err := load.AvgWithContext(ctx); err == nil {
		load1 = avg.Load1
	}

	metrics.ObserveSystem(cpuPercent, memPercent)

	if memPercent >= s.memWarnPercent {
		logger.Warn("⚠️ 内存占用过高: mem=%.1f%%, threshold=%.1f%%", memPercent, s.memWarnPercent)
	}
	logger.Info("🤖 系统巡检(%s): cpu=%.1f%%, mem=%.1f%%, load1=%.2f", reason, cpuPercent, memPercent, load1)
	return nil
}

// Register 注册内置机器人
func Register() {
	trade.RegisterRobot(SystemID, NewSystem)
}
