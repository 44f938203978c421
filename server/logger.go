package server

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是入口进程使用的 SugaredLogger；引擎本身通过参数注入日志，不依赖它
var Log = zap.NewNop().Sugar()

// NewLogger 构造写入本地文件（支持滚动）的 zap 日志
// filePath: 日志文件路径，如 "app.log"；toStderr 为 true 时同时输出到标准错误
func NewLogger(filePath, level string, toStderr bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	// 文件滚动策略：10MB 每文件，保留3个备份
	lj := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   false,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(lj), lvl)
	if toStderr {
		core = zapcore.NewTee(core, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), lvl))
	}

	return zap.New(core, zap.AddCaller()).Sugar(), nil
}

// InitLogger 初始化全局 Log
func InitLogger(filePath, level string, toStderr bool) error {
	l, err := NewLogger(filePath, level, toStderr)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// SyncLogger 清理和同步缓冲
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
