package quotation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ssquant/logger"
	"ssquant/utils"
)

// SinaHQURL 新浪行情接口地址
const SinaHQURL = "https://hq.sinajs.cn/list="

// SinaTickSource 新浪实时行情源
//
// 快照接口一次最多查询约 800 个代码, 超出部分分批请求。
// 返回值为 GBK 编码的 js 赋值语句, 名称字段不使用, 数值字段均为 ASCII。
type SinaTickSource struct {
	httpClient *http.Client
}

// NewSinaTickSource 创建新浪行情源
func NewSinaTickSource() *SinaTickSource {
	return &SinaTickSource{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

const sinaBatchSize = 500

// Fetch 拉取一批代码的实时快照
func (s *SinaTickSource) Fetch(ctx context.Context, codes []string) (map[string]*Tick, error) {
	ticks := make(map[string]*Tick, len(codes))
	for start := 0; start < len(codes); start += sinaBatchSize {
		end := start + sinaBatchSize
		if end > len(codes) {
			end = len(codes)
		}
		if err := s.fetchBatch(ctx, codes[start:end], ticks); err != nil {
			return nil, err
		}
	}
	return ticks, nil
}

// fetchBatch 单次请求一批代码
func (s *SinaTickSource) fetchBatch(ctx context.Context, codes []string, ticks map[string]*Tick) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SinaHQURL+strings.Join(codes, ","), nil)
	if err != nil {
		return fmt.Errorf("构建行情请求失败: %w", err)
	}
	// 新浪接口要求 Referer, 否则返回 403
	req.Header.Set("Referer", "https://finance.sina.com.cn")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求行情失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("行情接口返回状态码 %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取行情响应失败: %w", err)
	}

	for _, line := range strings.Split(string(body), "\n") {
		tick, ok := parseSinaLine(line)
		if !ok {
			continue
		}
		ticks[tick.Code] = tick
	}
	return nil
}

// parseSinaLine 解析单行行情
//
// 格式: var hq_str_sh600000="名称,今开,昨收,现价,最高,最低,买一,卖一,成交量,成交额,...,日期,时间,00";
// 停牌或无效代码的字段不足, 直接跳过。
func parseSinaLine(line string) (*Tick, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "var hq_str_") {
		return nil, false
	}

	eq := strings.Index(line, "=")
	if eq < 0 {
		return nil, false
	}
	code := strings.TrimPrefix(line[:eq], "var hq_str_")

	payload := strings.Trim(strings.TrimSuffix(line[eq+1:], ";"), "\"")
	fields := strings.Split(payload, ",")
	if len(fields) < 32 {
		return nil, false
	}

	open := sinaFloat(fields[1])
	lastClose := sinaFloat(fields[2])
	now := sinaFloat(fields[3])
	high := sinaFloat(fields[4])
	low := sinaFloat(fields[5])
	volume := sinaFloat(fields[8])
	amount := sinaFloat(fields[9])
	if now <= 0 {
		// 集合竞价前或停牌
		return nil, false
	}

	at, err := time.ParseInLocation("2006-01-02 15:04:05", fields[30]+" "+fields[31], utils.GlobalLocation)
	if err != nil {
		logger.Debug("行情时间解析失败 %s: %v", code, err)
		at = utils.Now()
	}

	return &Tick{
		Code:      code,
		Time:      at,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     now,
		LastClose: lastClose,
		Volume:    volume,
		Amount:    amount,
	}, true
}

func sinaFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
