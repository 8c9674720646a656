package quotation

import (
	"context"
	"time"

	"ssquant/config"
	"ssquant/datadb"
	"ssquant/event"
	"ssquant/logger"
	"ssquant/utils"
)

// Tick 实时快照: 当日累计开高低收与最新成交
type Tick struct {
	Code      string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	LastClose float64
	Volume    float64
	Amount    float64
	Turnover  float64
}

// TickSource 实时行情协作方，按订阅代码返回当前快照
type TickSource interface {
	Fetch(ctx context.Context, codes []string) (map[string]*Tick, error)
}

// Realtime 实盘行情源: 轮询 TickSource，把逐笔快照合成为配置频率的K线。
// 每个代码维护一根进行中的合成K线，聚合周期走完才发布，
// 发布后上一根K线作为下一根的种子。
type Realtime struct {
	base

	ticks TickSource

	preBar   map[string]*event.Bar // 上一根已发布K线
	bar      map[string]*event.Bar // 进行中K线
	barStart time.Time
	lastPub  time.Time
}

// NewRealtime 创建实盘行情源
func NewRealtime(data datadb.DataDB, ticks TickSource, calendar Calendar) *Realtime {
	r := &Realtime{ticks: ticks}
	r.base.data = data
	r.base.calendar = calendar
	return r
}

// Init 校验选项并解析订阅代码
func (r *Realtime) Init(ctx context.Context, opt *config.QuotationConfig) error {
	return r.initBase(ctx, opt)
}

// AddCodes 运行中追加订阅
func (r *Realtime) AddCodes(ctx context.Context, codes []string) (bool, error) {
	return r.addCodes(ctx, codes)
}

// GetQuot 返回下一事件，暂无新内容返回 nil。
// 实盘永不返回 evt_end。
func (r *Realtime) GetQuot(ctx context.Context) (*event.Event, error) {
	now := utils.Now()

	if !r.isStart {
		return r.startEvent(now), nil
	}

	evt, err := r.baseEvent(ctx, now)
	if err != nil {
		return nil, err
	}
	if evt != nil {
		return evt, nil
	}

	if !r.IsTrading() {
		return nil, nil
	}

	ticks, err := r.ticks.Fetch(ctx, r.codes)
	if err != nil {
		logger.Error("❌ 拉取实时行情失败: %v", err)
		return nil, nil
	}
	if len(ticks) == 0 {
		return nil, nil
	}

	bar := r.pubBar(now, ticks)
	if bar == nil {
		return nil, nil
	}
	r.resetBar(now)
	return r.quotEvent(now, bar), nil
}

// pubBar 合并快照，聚合周期走完返回待发布K线，否则返回 nil
func (r *Realtime) pubBar(now time.Time, ticks map[string]*Tick) map[string]*event.Bar {
	r.updateBar(now, ticks)

	if r.lastPub.IsZero() || now.Sub(r.barStart) >= time.Duration(r.frequency)*time.Second {
		return r.bar
	}
	return nil
}

// resetBar 发布后轮换: 当前K线成为下一根的种子
func (r *Realtime) resetBar(now time.Time) {
	r.preBar = r.bar
	r.bar = nil
	r.barStart = time.Time{}
	r.lastPub = now
}

// seedValue 优先取上一根K线的收盘/量额作为新K线种子
func (r *Realtime) seedBar(code string, tick *Tick) *event.Bar {
	bar := &event.Bar{
		Code:      code,
		Name:      r.codeInfo[code],
		Open:      tick.Close,
		High:      tick.Close,
		Low:       tick.Close,
		Close:     tick.Close,
		Volume:    tick.Volume,
		Amount:    tick.Amount,
		Turnover:  tick.Turnover,
		LastClose: tick.LastClose,
		DayOpen:   tick.Open,
		DayHigh:   tick.High,
		DayLow:    tick.Low,
		DayTime:   tick.Time,
	}
	if pre, ok := r.preBar[code]; ok {
		bar.Open = pre.Close
		bar.High = pre.Close
		bar.Low = pre.Close
		bar.Volume = pre.Volume
		bar.Amount = pre.Amount
		bar.Turnover = pre.Turnover
	}
	return bar
}

func (r *Realtime) updateBar(now time.Time, ticks map[string]*Tick) {
	if r.bar == nil {
		r.bar = make(map[string]*event.Bar)
		for code, tick := range ticks {
			if _, ok := r.codeInfo[code]; !ok {
				continue
			}
			r.bar[code] = r.seedBar(code, tick)
		}
		r.barStart = now
		return
	}

	for code, tick := range ticks {
		bar, ok := r.bar[code]
		if !ok {
			if _, sub := r.codeInfo[code]; sub {
				r.bar[code] = r.seedBar(code, tick)
			}
			continue
		}
		nowPrice := tick.Close
		bar.Close = nowPrice
		if nowPrice > bar.High {
			bar.High = nowPrice
		}
		if nowPrice < bar.Low {
			bar.Low = nowPrice
		}
		bar.Volume = tick.Volume
		bar.Amount = tick.Amount
		bar.Turnover = tick.Turnover
		bar.DayHigh = tick.High
		bar.DayLow = tick.Low
		bar.DayTime = tick.Time
	}
}
