// Package logger 全局日志: 控制台 + 按天滚动的文件输出
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String 日志级别名
func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel 解析日志级别，未识别按 INFO
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	}
	return INFO
}

// state 日志全局状态，所有字段由 mu 串行化
type state struct {
	mu       sync.Mutex
	level    LogLevel
	location *time.Location

	dir     string // 空串表示不写文件
	day     string // 当前文件对应的日期
	file    *os.File
	fileOut *log.Logger
}

var global = &state{level: INFO, location: time.Local}

// SetLevel 设置全局日志级别
func SetLevel(level LogLevel) {
	global.mu.Lock()
	global.level = level
	global.mu.Unlock()
}

// GetLevel 获取全局日志级别
func GetLevel() LogLevel {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.level
}

// SetLocation 设置日志时间戳时区
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	global.mu.Lock()
	global.location = loc
	global.mu.Unlock()
}

// SetLogDir 启用文件日志，按天一个文件。传空串关闭文件输出。
func SetLogDir(dir string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.dir = dir
	if dir == "" {
		global.closeFile()
	}
}

// closeFile 关闭当前日志文件，调用方持锁
func (s *state) closeFile() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
		s.fileOut = nil
		s.day = ""
	}
}

// rotate 跨天时换文件，调用方持锁。失败降级为纯控制台输出。
func (s *state) rotate(now time.Time) {
	if s.dir == "" {
		return
	}
	today := now.Format("2006-01-02")
	if s.fileOut != nil && s.day == today {
		return
	}
	s.closeFile()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Printf("[WARN] 创建日志目录失败: %v", err)
		s.dir = ""
		return
	}
	path := filepath.Join(s.dir, "ssquant-"+today+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("[WARN] 打开日志文件失败: %v", err)
		s.dir = ""
		return
	}
	s.file = file
	s.fileOut = log.New(file, "", 0)
	s.day = today
}

func logf(level LogLevel, format string, args ...interface{}) {
	global.mu.Lock()
	if level < global.level {
		global.mu.Unlock()
		return
	}
	now := time.Now().In(global.location)
	line := fmt.Sprintf("[%s] ", level) + fmt.Sprintf(format, args...)

	global.rotate(now)
	if global.fileOut != nil {
		global.fileOut.Printf("%s %s", now.Format("2006/01/02 15:04:05"), line)
	}
	global.mu.Unlock()

	log.Print(line)
}

// Debug 调试日志
func Debug(format string, args ...interface{}) { logf(DEBUG, format, args...) }

// Info 一般日志
func Info(format string, args ...interface{}) { logf(INFO, format, args...) }

// Warn 警告日志
func Warn(format string, args ...interface{}) { logf(WARN, format, args...) }

// Error 错误日志
func Error(format string, args ...interface{}) { logf(ERROR, format, args...) }

// Fatal 致命错误，输出后退出进程
func Fatal(format string, args ...interface{}) {
	logf(FATAL, format, args...)
	os.Exit(1)
}
