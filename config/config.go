package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 交易类别与账户类型的合法取值
const (
	CategoryStock = "stock"
	CategoryFund  = "fund"

	TypeBacktest = "backtest"
	TypeSimulate = "simulate"
	TypeRealtime = "realtime"
)

// StageConfig 策略/券商/风控/运维插件选择配置
// ID 形如 builtin:BrokerSimulate 或 external:MyStrategy
type StageConfig struct {
	ID     string                 `yaml:"id" json:"id"`
	Option map[string]interface{} `yaml:"option" json:"option"`
}

// QuotationConfig 行情配置
type QuotationConfig struct {
	Frequency string   `yaml:"frequency" json:"frequency"` // 1min/5m/30s/1day
	Codes     []string `yaml:"codes" json:"codes"`
	StartDate string   `yaml:"start-date" json:"start-date"` // 回测开始日 2006-01-02
	EndDate   string   `yaml:"end-date" json:"end-date"`     // 回测结束日
}

// TradeConfig 交易引擎配置
type TradeConfig struct {
	Category  string  `yaml:"category" json:"category"` // stock / fund
	Type      string  `yaml:"type" json:"type"`         // backtest / simulate / realtime
	AccountID string  `yaml:"account-id" json:"account-id"`
	InitCash  float64 `yaml:"init-cash" json:"init-cash"`

	// 费率，缺省按A股零售默认值
	BrokerFee   float64 `yaml:"broker-fee" json:"broker-fee"`
	TransferFee float64 `yaml:"transfer-fee" json:"transfer-fee"`
	TaxFee      float64 `yaml:"tax-fee" json:"tax-fee"`

	Strategy  *StageConfig    `yaml:"strategy" json:"strategy"`
	Broker    *StageConfig    `yaml:"broker" json:"broker"`
	Risk      *StageConfig    `yaml:"risk" json:"risk"`
	Robot     *StageConfig    `yaml:"robot" json:"robot"`
	Quotation QuotationConfig `yaml:"quotation" json:"quotation"`
}

// Config 顶层配置
type Config struct {
	Trade TradeConfig `yaml:"trade"`

	Log struct {
		Level    string `yaml:"level"`
		Dir      string `yaml:"dir"`
		Timezone string `yaml:"timezone"` // 如 Asia/Shanghai
	} `yaml:"log"`

	// 交易数据库（账本），支持 sqlite / postgres / mysql
	Database struct {
		Type            string `yaml:"type"`
		DSN             string `yaml:"dsn"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // 秒
		LogLevel        string `yaml:"log_level"`
	} `yaml:"database"`

	// 行情/基础数据库
	DataDB struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn"`
	} `yaml:"datadb"`

	// 账户单实例锁（多进程部署防止同一账户重复接管）
	Lock struct {
		Enabled    bool   `yaml:"enabled"`
		Prefix     string `yaml:"prefix"`
		DefaultTTL int    `yaml:"default_ttl"` // 秒

		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size"`
		} `yaml:"redis"`
	} `yaml:"lock"`

	// 运维状态接口
	Web struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"web"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从内存加载配置
func LoadConfigFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Trade.BrokerFee == 0 {
		c.Trade.BrokerFee = 0.00025
	}
	if c.Trade.TransferFee == 0 {
		c.Trade.TransferFee = 0.00002
	}
	if c.Trade.TaxFee == 0 {
		c.Trade.TaxFee = 0.001
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Timezone == "" {
		c.Log.Timezone = "Asia/Shanghai"
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DSN == "" {
		c.Database.DSN = "./data/ssquant_trade.db"
	}
	if c.DataDB.Type == "" {
		c.DataDB.Type = c.Database.Type
	}
	if c.DataDB.DSN == "" {
		c.DataDB.DSN = "./data/ssquant_data.db"
	}
	if c.Lock.Prefix == "" {
		c.Lock.Prefix = "ssquant:lock:"
	}
	if c.Lock.DefaultTTL == 0 {
		c.Lock.DefaultTTL = 30
	}
	if c.Lock.Redis.Addr == "" {
		c.Lock.Redis.Addr = "localhost:6379"
	}
	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8086
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SSQUANT_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SSQUANT_DATADB_DSN"); v != "" {
		cfg.DataDB.DSN = v
	}
	if v := os.Getenv("SSQUANT_REDIS_ADDR"); v != "" {
		cfg.Lock.Redis.Addr = v
	}
	if v := os.Getenv("SSQUANT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Trade.Category {
	case CategoryStock, CategoryFund:
	default:
		return fmt.Errorf("trade.category 不正确: %q (可选 stock/fund)", c.Trade.Category)
	}

	switch c.Trade.Type {
	case TypeBacktest, TypeSimulate, TypeRealtime:
	default:
		return fmt.Errorf("trade.type 不正确: %q (可选 backtest/simulate/realtime)", c.Trade.Type)
	}

	if c.Trade.Type != TypeBacktest && c.Trade.InitCash <= 0 && c.Trade.AccountID == "" {
		return fmt.Errorf("trade.init-cash 必须大于0")
	}

	if c.Trade.Quotation.Frequency == "" {
		return fmt.Errorf("trade.quotation.frequency 未配置")
	}
	if len(c.Trade.Quotation.Codes) == 0 {
		return fmt.Errorf("trade.quotation.codes 未配置")
	}

	if c.Trade.Type == TypeBacktest {
		for _, d := range []string{c.Trade.Quotation.StartDate, c.Trade.Quotation.EndDate} {
			if d == "" {
				return fmt.Errorf("回测模式必须配置 trade.quotation.start-date / end-date")
			}
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("trade.quotation 日期格式不正确: %q", d)
			}
		}
	}

	return nil
}

// IsBacktest 是否为回测模式
func (c *Config) IsBacktest() bool {
	return c.Trade.Type == TypeBacktest
}
