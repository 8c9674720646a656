// Package quotation 行情源: 回测回放与实盘轮询走同一事件协议。
//
// 事件下发顺序:
//
//	evt_start(回测) -> evt_morning_start -> evt_quotation... -> evt_morning_end
//	               -> evt_noon_start    -> evt_quotation... -> evt_noon_end
//	evt_end(回测结束，实盘永不结束)
package quotation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ssquant/config"
	"ssquant/datadb"
	"ssquant/event"
	"ssquant/logger"
	"ssquant/utils"
)

// Calendar 交易日历协作方
type Calendar interface {
	IsTradeDate(ctx context.Context, date time.Time) (bool, error)
}

// WeekdayCalendar 周一到周五视为交易日，无节假日数据时的缺省日历
type WeekdayCalendar struct{}

func (WeekdayCalendar) IsTradeDate(ctx context.Context, date time.Time) (bool, error) {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday, nil
}

// sessionState 单个交易日的开收市事件发射状态
type sessionState struct {
	isOpen  bool
	emitted map[event.Kind]bool
}

// base 行情源公共部分: 频率解析、代码订阅、每日会话状态机。
// 状态机保证每个边界事件每天恰好发射一次。
type base struct {
	opt *config.QuotationConfig

	frequency    int // 秒
	dayFrequency int // 日频标志，>0 表示 n 日线

	startDate time.Time
	endDate   time.Time

	codes    []string
	codeInfo map[string]string // code -> name

	data     datadb.DataDB
	calendar Calendar

	tradeDate time.Time
	day       *sessionState

	isStart bool
	isEnd   bool
}

func (b *base) initBase(ctx context.Context, opt *config.QuotationConfig) error {
	b.opt = opt
	b.codeInfo = make(map[string]string)

	freq, dayFreq, err := ParseFrequency(opt.Frequency)
	if err != nil {
		return err
	}
	b.frequency = freq
	b.dayFrequency = dayFreq

	if opt.StartDate != "" {
		b.startDate, err = time.ParseInLocation("2006-01-02", opt.StartDate, utils.GlobalLocation)
		if err != nil {
			return fmt.Errorf("start-date 格式不正确: %w", err)
		}
	}
	if opt.EndDate != "" {
		b.endDate, err = time.ParseInLocation("2006-01-02", opt.EndDate, utils.GlobalLocation)
		if err != nil {
			return fmt.Errorf("end-date 格式不正确: %w", err)
		}
	}

	if b.calendar == nil {
		b.calendar = WeekdayCalendar{}
	}

	added, err := b.addCodes(ctx, opt.Codes)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("codes 不能为空")
	}
	return nil
}

// ParseFrequency 解析频率串，返回秒数和日频标志。
// 支持 Nmin/Nm、Nsec/Ns、Nday/Nd。
func ParseFrequency(s string) (int, int, error) {
	freq := strings.ToLower(strings.TrimSpace(s))
	for _, unit := range []struct {
		suffixes []string
		seconds  int
		daily    bool
	}{
		{[]string{"min", "m"}, 60, false},
		{[]string{"sec", "s"}, 1, false},
		{[]string{"day", "d"}, 24 * 60 * 60, true},
	} {
		for _, suffix := range unit.suffixes {
			if !strings.HasSuffix(freq, suffix) {
				continue
			}
			value, err := strconv.Atoi(strings.TrimSuffix(freq, suffix))
			if err != nil || value <= 0 {
				return 0, 0, fmt.Errorf("frequency 格式不正确: %s", s)
			}
			if unit.daily {
				return value * unit.seconds, value, nil
			}
			return value * unit.seconds, 0, nil
		}
	}
	return 0, 0, fmt.Errorf("frequency 格式不正确: %s", s)
}

// addCodes 追加订阅代码并解析名称，已订阅的跳过，无新增返回 false
func (b *base) addCodes(ctx context.Context, codes []string) (bool, error) {
	var newCodes []string
	for _, code := range codes {
		if _, ok := b.codeInfo[code]; ok {
			continue
		}
		name := ""
		if b.data != nil {
			n, err := b.data.GetName(ctx, code)
			if err != nil {
				return false, fmt.Errorf("获取证券信息失败: %w", err)
			}
			name = n
		}
		b.codeInfo[code] = name
		newCodes = append(newCodes, code)
	}
	if len(newCodes) == 0 {
		return false, nil
	}
	b.codes = append(b.codes, newCodes...)
	return true, nil
}

// IsIndex 是否指数代码
func (b *base) IsIndex(code string) bool {
	return strings.HasPrefix(code, "sh000") || strings.HasPrefix(code, "sz399") ||
		strings.HasPrefix(code, "sh880")
}

// IsTrading 当前交易日是否处于开市时段
func (b *base) IsTrading() bool {
	if b.day == nil {
		return false
	}
	e := b.day.emitted
	return (e[event.KindMorningStart] && !e[event.KindMorningEnd]) ||
		(e[event.KindNoonStart] && !e[event.KindNoonEnd])
}

// statusFor 返回 now 所在交易日的状态，跨日时重建
func (b *base) statusFor(ctx context.Context, now time.Time) (*sessionState, error) {
	date := utils.DateOf(now)
	if b.day == nil || !b.tradeDate.Equal(date) {
		isOpen, err := b.calendar.IsTradeDate(ctx, date)
		if err != nil {
			return nil, err
		}
		b.tradeDate = date
		b.day = &sessionState{isOpen: isOpen, emitted: make(map[event.Kind]bool)}
	}
	return b.day, nil
}

// baseEvent 检查 now 跨过的会话边界，返回第一个未发射的边界事件。
// 同一边界重复轮询不会重复发射。
func (b *base) baseEvent(ctx context.Context, now time.Time) (*event.Event, error) {
	day, err := b.statusFor(ctx, now)
	if err != nil {
		return nil, err
	}
	if !day.isOpen {
		return nil, nil
	}

	date := utils.DateOf(now)
	morningStart := date.Add(9*time.Hour + 30*time.Minute)
	morningEnd := date.Add(11*time.Hour + 30*time.Minute)
	noonStart := date.Add(13 * time.Hour)
	noonEnd := date.Add(15 * time.Hour)

	var due []event.Kind
	switch {
	case now.Before(morningStart):
	case now.Before(morningEnd):
		due = []event.Kind{event.KindMorningStart}
	case now.Before(noonStart):
		due = []event.Kind{event.KindMorningStart, event.KindMorningEnd}
	case now.Before(noonEnd):
		due = []event.Kind{event.KindMorningStart, event.KindMorningEnd, event.KindNoonStart}
	default:
		due = []event.Kind{event.KindMorningStart, event.KindMorningEnd,
			event.KindNoonStart, event.KindNoonEnd}
	}

	for _, kind := range due {
		if day.emitted[kind] {
			continue
		}
		day.emitted[kind] = true
		logger.Info("🔔 会话边界: %s, trade_date=%s, day_time=%s",
			kind, b.tradeDate.Format("2006-01-02"), now.Format("2006-01-02 15:04:05"))
		return &event.Event{
			Kind: kind,
			Payload: &event.SessionPayload{
				Frequency: b.opt.Frequency,
				TradeDate: b.tradeDate,
				DayTime:   now,
			},
		}, nil
	}
	return nil, nil
}

func (b *base) startEvent(now time.Time) *event.Event {
	b.isStart = true
	return &event.Event{
		Kind:    event.KindStart,
		Payload: &event.StartPayload{Frequency: b.opt.Frequency, Start: now},
	}
}

func (b *base) quotEvent(dayTime time.Time, quots map[string]*event.Bar) *event.Event {
	return &event.Event{
		Kind: event.KindQuotation,
		Payload: &event.QuotPayload{
			Frequency: b.opt.Frequency,
			TradeDate: b.tradeDate,
			DayTime:   dayTime,
			Quots:     quots,
		},
	}
}
