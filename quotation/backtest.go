package quotation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ssquant/config"
	"ssquant/datadb"
	"ssquant/event"
	"ssquant/logger"
	"ssquant/utils"
)

// BarSource 分钟级历史K线协作方，日频回测不需要
type BarSource interface {
	LoadBars(ctx context.Context, code string, periodSec int, start, end time.Time) ([]*event.Bar, error)
}

// Backtest 回测行情源: 初始化时一次性加载历史K线按时间桶排好，
// GetQuot 顺序回放。首次返回 evt_start，数据耗尽返回一次 evt_end，之后返回 nil。
type Backtest struct {
	base

	data datadb.DataDB
	bars BarSource

	buckets map[int64]map[string]*event.Bar // unix秒 -> code -> bar
	times   []time.Time

	idx        int
	iterTag    bool
	endQuotTag bool
}

// NewBacktest 创建回测行情源。bars 为空时仅支持日频回测。
func NewBacktest(data datadb.DataDB, bars BarSource, calendar Calendar) *Backtest {
	b := &Backtest{
		data:    data,
		bars:    bars,
		buckets: make(map[int64]map[string]*event.Bar),
		idx:     -1,
		iterTag: true,
	}
	b.base.data = data
	b.base.calendar = calendar
	return b
}

// Init 校验选项并预加载全部历史行情
func (b *Backtest) Init(ctx context.Context, opt *config.QuotationConfig) error {
	if err := b.initBase(ctx, opt); err != nil {
		return err
	}
	if b.startDate.IsZero() || b.endDate.IsZero() {
		return fmt.Errorf("回测必须指定 start-date / end-date")
	}
	if b.dayFrequency == 0 && b.bars == nil {
		return fmt.Errorf("分钟级回测需要 BarSource 数据源")
	}
	if err := b.loadBars(ctx, b.codes); err != nil {
		return err
	}
	if len(b.times) == 0 {
		return fmt.Errorf("回测区间无行情数据: %s ~ %s", opt.StartDate, opt.EndDate)
	}
	logger.Info("✅ 回测行情加载完毕: codes=%d, bars=%d", len(b.codes), len(b.times))
	return nil
}

// AddCodes 运行中追加订阅并补加载其历史行情
func (b *Backtest) AddCodes(ctx context.Context, codes []string) (bool, error) {
	added, err := b.addCodes(ctx, codes)
	if err != nil || !added {
		return added, err
	}
	if err := b.loadBars(ctx, codes); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backtest) loadBars(ctx context.Context, codes []string) error {
	if b.dayFrequency > 0 {
		return b.loadDailyBars(ctx, codes)
	}
	for _, code := range codes {
		bars, err := b.bars.LoadBars(ctx, code, b.frequency, b.startDate, b.endDate)
		if err != nil {
			return fmt.Errorf("加载 %s K线失败: %w", code, err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("标的 %s 频率 %s 无K线数据", code, b.opt.Frequency)
		}
		b.bucketBars(code, bars)
	}
	b.rebuildTimes()
	return nil
}

// loadDailyBars 加载日线，行情时间统一置于当日 15:00
func (b *Backtest) loadDailyBars(ctx context.Context, codes []string) error {
	for _, code := range codes {
		klines, err := b.data.LoadKlines(ctx, code, b.startDate, b.endDate)
		if err != nil {
			return fmt.Errorf("加载 %s 日线失败: %w", code, err)
		}
		if len(klines) == 0 {
			return fmt.Errorf("标的 %s 无日线数据", code)
		}
		for _, k := range klines {
			d := utils.ToConfiguredTimezone(k.TradeDate)
			dayTime := utils.DateOf(d).Add(15 * time.Hour)
			bar := &event.Bar{
				Code:      code,
				Name:      b.codeInfo[code],
				Open:      k.Open,
				High:      k.High,
				Low:       k.Low,
				Close:     k.Close,
				Volume:    float64(k.Volume),
				Amount:    k.Amount,
				Turnover:  k.Turnover,
				LastClose: k.LastClose,
				DayOpen:   k.Open,
				DayHigh:   k.High,
				DayLow:    k.Low,
				DayTime:   dayTime,
			}
			b.put(dayTime, bar)
		}
	}
	b.rebuildTimes()
	return nil
}

// bucketBars 分钟K线入桶，补算日内累计开高低
func (b *Backtest) bucketBars(code string, bars []*event.Bar) {
	var dayOpen, dayHigh, dayLow float64
	var curDate time.Time
	for _, bar := range bars {
		date := utils.DateOf(bar.DayTime)
		if !date.Equal(curDate) {
			curDate = date
			dayOpen, dayHigh, dayLow = bar.Open, bar.High, bar.Low
		}
		if bar.High > dayHigh {
			dayHigh = bar.High
		}
		if bar.Low < dayLow {
			dayLow = bar.Low
		}
		bar.Name = b.codeInfo[code]
		bar.DayOpen = dayOpen
		bar.DayHigh = dayHigh
		bar.DayLow = dayLow
		b.put(bar.DayTime, bar)
	}
}

func (b *Backtest) put(dayTime time.Time, bar *event.Bar) {
	key := dayTime.Unix()
	bucket, ok := b.buckets[key]
	if !ok {
		bucket = make(map[string]*event.Bar)
		b.buckets[key] = bucket
	}
	bucket[bar.Code] = bar
}

// rebuildTimes 重建时间轴，追加订阅后保持当前回放位置
func (b *Backtest) rebuildTimes() {
	var cur int64 = -1
	if b.idx >= 0 && b.idx < len(b.times) {
		cur = b.times[b.idx].Unix()
	}

	keys := make([]int64, 0, len(b.buckets))
	for key := range b.buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	b.times = b.times[:0]
	for i, key := range keys {
		b.times = append(b.times, time.Unix(key, 0).In(utils.GlobalLocation))
		if key == cur {
			b.idx = i
		}
	}
}

// GetQuot 回放下一事件。边界并轨时行情先于收市事件下发:
// 11:30/15:00 的K线先作为 evt_quotation 返回，下一次调用才返回收市事件。
func (b *Backtest) GetQuot(ctx context.Context) (*event.Event, error) {
	now := utils.Now()

	if !b.isStart {
		return b.startEvent(now), nil
	}
	if b.isEnd {
		return nil, nil
	}

	if b.iterTag {
		b.idx++
	}
	if b.idx >= len(b.times) {
		b.isEnd = true
		return &event.Event{
			Kind:    event.KindEnd,
			Payload: &event.StartPayload{Frequency: b.opt.Frequency, Start: b.startDate, End: now},
		}, nil
	}

	dayTime := b.times[b.idx]
	day, err := b.statusFor(ctx, dayTime)
	if err != nil {
		return nil, err
	}

	quots := b.buckets[dayTime.Unix()]
	date := utils.DateOf(dayTime)
	morningEnd := date.Add(11*time.Hour + 30*time.Minute)
	noonEnd := date.Add(15 * time.Hour)

	// 压线K线先下发，收市事件随后
	if !b.endQuotTag {
		if (day.emitted[event.KindMorningStart] && dayTime.Equal(morningEnd)) ||
			(day.emitted[event.KindNoonStart] && dayTime.Equal(noonEnd)) {
			b.iterTag = false
			b.endQuotTag = true
			return b.quotEvent(dayTime, quots), nil
		}
	}

	evt, err := b.baseEvent(ctx, dayTime)
	if err != nil {
		return nil, err
	}
	if evt != nil {
		b.iterTag = false
		if b.endQuotTag {
			b.endQuotTag = false
			b.iterTag = true
		}
		return evt, nil
	}

	b.iterTag = true
	b.endQuotTag = false
	return b.quotEvent(dayTime, quots), nil
}
