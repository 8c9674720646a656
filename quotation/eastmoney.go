package quotation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ssquant/event"
	"ssquant/utils"
)

// EastmoneyKlineURL 东方财富历史K线接口地址
const EastmoneyKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastmoneyBarSource 东方财富分钟K线源, 分钟级回测的历史数据协作方
type EastmoneyBarSource struct {
	httpClient *http.Client
}

// NewEastmoneyBarSource 创建东方财富K线源
func NewEastmoneyBarSource() *EastmoneyBarSource {
	return &EastmoneyBarSource{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// 接口支持的分钟周期
var eastmoneyPeriods = map[int]string{
	60:   "1",
	300:  "5",
	900:  "15",
	1800: "30",
	3600: "60",
}

type eastmoneyResp struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// LoadBars 拉取一段区间内的分钟K线, 升序返回
func (e *EastmoneyBarSource) LoadBars(ctx context.Context, code string, periodSec int, start, end time.Time) ([]*event.Bar, error) {
	klt, ok := eastmoneyPeriods[periodSec]
	if !ok {
		return nil, fmt.Errorf("不支持的K线周期 %d 秒", periodSec)
	}

	secid, err := eastmoneySecID(code)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("secid", secid)
	query.Set("klt", klt)
	query.Set("fqt", "1") // 前复权
	query.Set("beg", start.Format("20060102"))
	query.Set("end", end.Format("20060102"))
	query.Set("fields1", "f1,f2,f3,f4,f5")
	// f51时间 f52开 f53收 f54高 f55低 f56量 f57额 f58换手
	query.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, EastmoneyKlineURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("构建K线请求失败: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求K线失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("K线接口返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取K线响应失败: %w", err)
	}

	var parsed eastmoneyResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析K线响应失败: %w", err)
	}
	if parsed.Data == nil {
		return nil, nil
	}

	bars := make([]*event.Bar, 0, len(parsed.Data.Klines))
	for _, line := range parsed.Data.Klines {
		bar, err := parseEastmoneyKline(code, parsed.Data.Name, line)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// eastmoneySecID 代码转接口 secid: 沪市前缀 1, 深市前缀 0
func eastmoneySecID(code string) (string, error) {
	switch {
	case strings.HasPrefix(code, "sh"):
		return "1." + code[2:], nil
	case strings.HasPrefix(code, "sz"):
		return "0." + code[2:], nil
	default:
		return "", fmt.Errorf("无法识别的代码 %s", code)
	}
}

// parseEastmoneyKline 解析单行K线: 时间,开,收,高,低,量,额,换手
func parseEastmoneyKline(code, name, line string) (*event.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 8 {
		return nil, fmt.Errorf("K线字段不足: %s", line)
	}

	at, err := time.ParseInLocation("2006-01-02 15:04", fields[0], utils.GlobalLocation)
	if err != nil {
		return nil, fmt.Errorf("K线时间解析失败: %w", err)
	}

	return &event.Bar{
		Code:     code,
		Name:     name,
		Open:     sinaFloat(fields[1]),
		Close:    sinaFloat(fields[2]),
		High:     sinaFloat(fields[3]),
		Low:      sinaFloat(fields[4]),
		Volume:   sinaFloat(fields[5]),
		Amount:   sinaFloat(fields[6]),
		Turnover: sinaFloat(fields[7]),
		DayTime:  at,
	}, nil
}
