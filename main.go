package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ssquant/broker"
	"ssquant/config"
	"ssquant/datadb"
	"ssquant/lock"
	"ssquant/logger"
	"ssquant/quotation"
	"ssquant/report"
	"ssquant/risk"
	"ssquant/robot"
	"ssquant/strategy"
	"ssquant/trade"
	"ssquant/tradedb"
	"ssquant/utils"
	"ssquant/web"
)

// Version 版本号
var Version = "1.2.0"

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "配置文件路径")
		showVersion = flag.Bool("version", false, "打印版本号并退出")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("ssquant %s\n", Version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		logger.Error("❌ %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	// 时区先于日志初始化, 日志时间戳依赖全局时区
	if err := utils.SetLocation(cfg.Log.Timezone); err != nil {
		return fmt.Errorf("设置时区失败: %w", err)
	}
	logger.SetLocation(utils.GlobalLocation)
	logger.SetLevel(logger.ParseLogLevel(cfg.Log.Level))
	if cfg.Log.Dir != "" {
		logger.SetLogDir(cfg.Log.Dir)
	}

	logger.Info("🚀 ssquant %s 启动, 账户 %s [%s/%s]",
		Version, cfg.Trade.AccountID, cfg.Trade.Category, cfg.Trade.Type)

	// 注册内置插件
	broker.Register()
	risk.Register()
	strategy.Register()
	robot.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新, 运行中调日志级别
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		logger.Warn("⚠️ 配置监控不可用: %v", err)
	} else {
		watcher.OnChange(func(next *config.Config) {
			logger.SetLevel(logger.ParseLogLevel(next.Log.Level))
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("⚠️ 配置监控启动失败: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// 账户单实例锁, 防止同一账户被多个进程接管
	locker, err := lock.New(cfg)
	if err != nil {
		return fmt.Errorf("初始化账户锁失败: %w", err)
	}
	defer locker.Close()

	lockKey := lock.AccountKey(cfg.Trade.AccountID)
	lockTTL := time.Duration(cfg.Lock.DefaultTTL) * time.Second
	ok, err := locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return fmt.Errorf("获取账户锁失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("账户 %s 已被其他进程接管", cfg.Trade.AccountID)
	}
	defer locker.Unlock(context.Background(), lockKey)
	go keepLock(ctx, locker, lockKey, lockTTL)

	// 行情/基础数据库
	data, err := datadb.NewGormDataDB(cfg.DataDB.Type, cfg.DataDB.DSN)
	if err != nil {
		return fmt.Errorf("打开行情数据库失败: %w", err)
	}
	defer data.Close()

	// 交易账本: 回测结果只进内存, 不落库
	var store tradedb.Store
	if cfg.IsBacktest() {
		store = tradedb.NewNopStore()
	} else {
		store, err = tradedb.NewGormStore(&tradedb.DBConfig{
			Type:            cfg.Database.Type,
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
			LogLevel:        cfg.Database.LogLevel,
		})
		if err != nil {
			return fmt.Errorf("打开交易数据库失败: %w", err)
		}
	}
	defer store.Close()

	// 行情源
	var quot trade.QuotSource
	if cfg.IsBacktest() {
		quot = quotation.NewBacktest(data, quotation.NewEastmoneyBarSource(), nil)
	} else {
		quot = quotation.NewRealtime(data, quotation.NewSinaTickSource(), nil)
	}

	trader := trade.NewTrader(cfg, store, quot)
	rpt := report.NewReport(store)
	trader.SetReportHook(rpt)

	server := web.NewServer(cfg, trader, store, rpt)
	server.Start(ctx)
	defer server.Stop()

	// SIGINT/SIGTERM 触发优雅退出, 队列排空后引擎自行结束
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("🛑 收到信号 %v, 开始退出", sig)
		trader.Stop()
	}()

	if err := trader.Start(ctx); err != nil {
		return fmt.Errorf("交易引擎异常退出: %w", err)
	}

	logger.Info("✅ ssquant 已退出")
	return nil
}

// keepLock 账户锁续期协程
func keepLock(ctx context.Context, locker lock.DistributedLock, key string, ttl time.Duration) {
	interval := ttl / 3
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := locker.Extend(ctx, key, ttl); err != nil {
				logger.Warn("⚠️ 账户锁续期失败: %v", err)
			}
		}
	}
}
