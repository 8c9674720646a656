package config

import (
	"os"
	"testing"
)

const backtestYAML = `
trade:
  category: stock
  type: backtest
  account-id: test_acct
  init-cash: 100000
  strategy:
    id: builtin:Dummy
  quotation:
    frequency: 1day
    codes: [sh600000, sz000001]
    start-date: "2024-01-02"
    end-date: "2024-06-28"
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromBytes([]byte(backtestYAML))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if !cfg.IsBacktest() {
		t.Error("type=backtest 时 IsBacktest 应为 true")
	}
	if cfg.Trade.BrokerFee != 0.00025 {
		t.Errorf("佣金费率缺省值不正确: %v", cfg.Trade.BrokerFee)
	}
	if cfg.Trade.TaxFee != 0.001 {
		t.Errorf("印花税缺省值不正确: %v", cfg.Trade.TaxFee)
	}
	if cfg.Log.Level != "info" || cfg.Log.Timezone != "Asia/Shanghai" {
		t.Errorf("日志缺省值不正确: %+v", cfg.Log)
	}
	if cfg.Web.Port != 8086 {
		t.Errorf("Web 端口缺省值不正确: %d", cfg.Web.Port)
	}
	if cfg.Lock.Prefix != "ssquant:lock:" {
		t.Errorf("锁前缀缺省值不正确: %s", cfg.Lock.Prefix)
	}
	if len(cfg.Trade.Quotation.Codes) != 2 {
		t.Errorf("订阅代码解析不正确: %v", cfg.Trade.Quotation.Codes)
	}
	t.Log("✅ 缺省值应用成功")
}

func TestLoadConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"category 非法", `
trade:
  category: bond
  type: backtest
  quotation: {frequency: 1day, codes: [sh600000], start-date: "2024-01-02", end-date: "2024-01-31"}
`},
		{"type 非法", `
trade:
  category: stock
  type: paper
  quotation: {frequency: 1day, codes: [sh600000]}
`},
		{"缺少 codes", `
trade:
  category: stock
  type: backtest
  quotation: {frequency: 1day, start-date: "2024-01-02", end-date: "2024-01-31"}
`},
		{"回测缺少日期", `
trade:
  category: stock
  type: backtest
  quotation: {frequency: 1day, codes: [sh600000]}
`},
		{"日期格式错误", `
trade:
  category: stock
  type: backtest
  quotation: {frequency: 1day, codes: [sh600000], start-date: "20240102", end-date: "2024-01-31"}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigFromBytes([]byte(tt.yaml)); err == nil {
				t.Errorf("期望校验失败, 实际通过")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("SSQUANT_LOG_LEVEL", "debug")
	os.Setenv("SSQUANT_REDIS_ADDR", "redis:16379")
	defer os.Unsetenv("SSQUANT_LOG_LEVEL")
	defer os.Unsetenv("SSQUANT_REDIS_ADDR")

	cfg, err := LoadConfigFromBytes([]byte(backtestYAML))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("环境变量应覆盖日志级别, 实际 %s", cfg.Log.Level)
	}
	if cfg.Lock.Redis.Addr != "redis:16379" {
		t.Errorf("环境变量应覆盖 redis 地址, 实际 %s", cfg.Lock.Redis.Addr)
	}
}
