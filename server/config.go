package server

import (
	"fmt"
	"os"
	"time"
)

// Config 服务运行参数（命令行 / 环境变量注入）
type Config struct {
	Addr      string
	LogFile   string
	LogLevel  string
	LogStderr bool

	// 对战倒计时：从 CountdownFrom 开始，每 CountdownInterval 递减一次
	CountdownFrom     int
	CountdownInterval time.Duration
	// 对局结束后保留记录的时长，供延迟的状态查询使用
	MatchRetention time.Duration
	// 断线判负延迟；0 表示立即结算
	ForfeitDelay time.Duration

	DefaultRating int
	KFactor       float64
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		LogFile:           "app.log",
		LogLevel:          "debug",
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		MatchRetention:    60 * time.Second,
		DefaultRating:     1000,
		KFactor:           32,
	}
}

// ApplyEnv 用环境变量覆盖监听地址（PORT=9000 -> ":9000"）
func (c *Config) ApplyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Addr = ":" + port
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.CountdownFrom < 0 {
		return fmt.Errorf("countdown must be >= 0, got %d", c.CountdownFrom)
	}
	if c.CountdownInterval <= 0 {
		return fmt.Errorf("countdown interval must be positive, got %s", c.CountdownInterval)
	}
	if c.MatchRetention < 0 || c.ForfeitDelay < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.KFactor <= 0 {
		return fmt.Errorf("k-factor must be positive, got %v", c.KFactor)
	}
	return nil
}
