package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ssquant/config"
	"ssquant/logger"
	"ssquant/report"
	"ssquant/trade"
	"ssquant/tradedb"
)

// Server 运维状态接口服务
//
// 提供账户快照/持仓/委托/成交的只读查询, /metrics 供 Prometheus 抓取,
// /api/ws 推送账户实时快照。交易指令不走这里, 只能来自策略/风控/人工信号。
type Server struct {
	server *http.Server
	cfg    *config.Config
	trader *trade.Trader
	store  tradedb.Store
	report *report.Report
	hub    *wsHub
	cancel context.CancelFunc
}

// NewServer 创建状态接口服务, Web 未启用时返回 nil
func NewServer(cfg *config.Config, trader *trade.Trader, store tradedb.Store, rpt *report.Report) *Server {
	if !cfg.Web.Enabled {
		return nil
	}

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		trader: trader,
		store:  store,
		report: rpt,
		hub:    newWSHub(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	s.setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/account", s.getAccount)
		api.GET("/positions", s.getPositions)
		api.GET("/entrusts", s.getEntrusts)
		api.GET("/deals", s.getDeals)
		api.GET("/signals", s.getSignals)
		api.GET("/summary", s.getSummary)
		api.GET("/ws", s.handleWS)
	}
}

// Start 启动服务并开启快照推送协程
func (s *Server) Start(ctx context.Context) {
	if s == nil {
		return
	}

	pushCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.hub.run(pushCtx)
	go s.pushLoop(pushCtx)

	go func() {
		logger.Info("🌐 状态接口启动在 http://%s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ 状态接口启动失败: %v", err)
		}
	}()
}

// Stop 关闭服务
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ 状态接口关闭失败: %v", err)
	} else {
		logger.Info("✅ 状态接口已关闭")
	}
}

// pushLoop 定期向 WebSocket 客户端推送账户快照
func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pushSnapshot()
		}
	}
}

// pushSnapshot 推送一帧账户快照。无客户端或账户未就绪(Trader 启动恢复中)时跳过。
func (s *Server) pushSnapshot() {
	if s.hub.count() == 0 {
		return
	}
	account := s.trader.Account()
	if account == nil {
		return
	}
	s.hub.broadcastJSON(map[string]any{
		"type":    "account",
		"data":    account.Snapshot(),
		"trading": s.trader.IsTrading(),
		"time":    time.Now().Unix(),
	})
}

// account 取当前账户；未就绪时应答 503 并返回 nil
func (s *Server) account(c *gin.Context) *trade.Account {
	account := s.trader.Account()
	if account == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "账户初始化中"})
		return nil
	}
	return account
}

func (s *Server) getStatus(c *gin.Context) {
	account := s.trader.Account()
	if account == nil {
		c.JSON(http.StatusOK, gin.H{
			"account_id": s.cfg.Trade.AccountID,
			"type":       s.cfg.Trade.Type,
			"category":   s.cfg.Trade.Category,
			"backtest":   s.trader.IsBacktest(),
			"trading":    false,
			"ready":      false,
		})
		return
	}
	acct := account.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"account_id": acct.AccountID,
		"type":       acct.Type,
		"category":   acct.Category,
		"backtest":   s.trader.IsBacktest(),
		"trading":    s.trader.IsTrading(),
		"ready":      true,
	})
}

func (s *Server) getAccount(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	c.JSON(http.StatusOK, account.Snapshot())
}

func (s *Server) getPositions(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	c.JSON(http.StatusOK, account.Positions())
}

func (s *Server) getEntrusts(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	if c.Query("active") == "true" {
		c.JSON(http.StatusOK, account.ActiveEntrusts(c.Query("code")))
		return
	}
	c.JSON(http.StatusOK, account.Entrusts())
}

func (s *Server) getDeals(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	if s.trader.IsBacktest() {
		c.JSON(http.StatusOK, account.Deals())
		return
	}
	deals, err := s.store.LoadDeals(c.Request.Context(), account.Snapshot().AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tail(deals, queryInt(c, "limit", 200)))
}

func (s *Server) getSignals(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	if s.trader.IsBacktest() {
		c.JSON(http.StatusOK, account.Signals())
		return
	}
	signals, err := s.store.LoadSignals(c.Request.Context(), account.Snapshot().AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tail(signals, queryInt(c, "limit", 200)))
}

func (s *Server) getSummary(c *gin.Context) {
	account := s.account(c)
	if account == nil {
		return
	}
	summary, err := s.report.Collect(c.Request.Context(), account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// tail 截取最近 n 条记录
func tail[T any](items []T, n int) []T {
	if n <= 0 || len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
