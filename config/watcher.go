package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ssquant/logger"
)

// Watcher 配置文件监控器。
// 运行中监听配置文件变更，重新解析后回调订阅方（当前用于日志级别热更新）。
type Watcher struct {
	configPath  string
	watcher     *fsnotify.Watcher
	callbacks   []func(*Config)
	mu          sync.Mutex
	isWatching  bool
	lastModTime time.Time
}

// NewWatcher 创建配置监控器
func NewWatcher(configPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if configDir == "" || configDir == "." {
		cwd, err := os.Getwd()
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("获取当前目录失败: %w", err)
		}
		configPath = filepath.Join(cwd, filepath.Base(configPath))
	}

	var lastModTime time.Time
	if info, err := os.Stat(configPath); err == nil {
		lastModTime = info.ModTime()
	}

	return &Watcher{
		configPath:  configPath,
		watcher:     fw,
		lastModTime: lastModTime,
	}, nil
}

// OnChange 注册配置变更回调
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start 开始监控
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isWatching {
		return fmt.Errorf("配置监控器已经在运行")
	}

	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	w.isWatching = true
	go w.watchLoop(ctx)
	return nil
}

// Stop 停止监控
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isWatching {
		return nil
	}
	w.isWatching = false
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("⚠️ 配置监控出错: %v", err)
		}
	}
}

func (w *Watcher) handleChange() {
	// 编辑器写文件会触发多次事件，按修改时间去重
	info, err := os.Stat(w.configPath)
	if err != nil {
		return
	}
	w.mu.Lock()
	if !info.ModTime().After(w.lastModTime) {
		w.mu.Unlock()
		return
	}
	w.lastModTime = info.ModTime()
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	cfg, err := LoadConfig(w.configPath)
	if err != nil {
		logger.Warn("⚠️ 配置热加载失败，保持旧配置: %v", err)
		return
	}

	logger.Info("🔄 配置文件变更，已重新加载: %s", w.configPath)
	for _, fn := range callbacks {
		fn(cfg)
	}
}
