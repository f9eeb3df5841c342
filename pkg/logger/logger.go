// Package logger 日志模块
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 全局日志实例，未调用 Init 时输出到标准错误
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Options 日志选项
type Options struct {
	Debug    bool
	Dir      string // 日志目录，为空时只输出到控制台
	File     string // 日志文件名
	Timezone string
}

// Init 初始化日志
func Init(opts Options) {
	if opts.Timezone == "" {
		opts.Timezone = "Asia/Shanghai"
	}
	if loc, err := time.LoadLocation(opts.Timezone); err == nil {
		zerolog.TimestampFunc = func() time.Time {
			return time.Now().In(loc)
		}
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}

	// 多输出：控制台 + 文件
	writers := []io.Writer{consoleWriter}
	if opts.Dir != "" {
		if opts.File == "" {
			opts.File = "lottery.log"
		}
		if err := os.MkdirAll(opts.Dir, 0755); err == nil {
			logFile, err := os.OpenFile(
				filepath.Join(opts.Dir, opts.File),
				os.O_APPEND|os.O_CREATE|os.O_WRONLY,
				0644,
			)
			if err == nil {
				writers = append(writers, logFile)
			}
		}
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Caller().Logger()
	log.Logger = Logger
}

// Component 带组件名的子日志
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Debug 调试日志
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 信息日志
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告日志
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误日志
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 致命错误日志
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}
