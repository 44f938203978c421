package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"duelhub/server"
)

// duelhub 入口：启动 HTTP + WebSocket 服务，并运行匹配引擎事件循环
func main() {
	cfg := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "duelhub",
		Short: "Real-time matchmaking and relay server for duel and co-op sessions",
		PreRun: func(cmd *cobra.Command, args []string) {
			// 未显式指定 --addr 时使用环境变量 PORT
			if !cmd.Flags().Changed("addr") {
				cfg.ApplyEnv()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080 (env PORT)")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path (rotated)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&cfg.LogStderr, "log-stderr", cfg.LogStderr, "also write logs to stderr")
	f.IntVar(&cfg.CountdownFrom, "countdown", cfg.CountdownFrom, "duel countdown start value")
	f.DurationVar(&cfg.CountdownInterval, "countdown-interval", cfg.CountdownInterval, "duel countdown tick period")
	f.DurationVar(&cfg.MatchRetention, "match-retention", cfg.MatchRetention, "how long finished matches stay visible")
	f.DurationVar(&cfg.ForfeitDelay, "forfeit-delay", cfg.ForfeitDelay, "delay before a disconnect forfeits a running duel (0 = immediate)")
	f.IntVar(&cfg.DefaultRating, "default-rating", cfg.DefaultRating, "rating for players that do not send one")
	f.Float64Var(&cfg.KFactor, "k-factor", cfg.KFactor, "Elo K factor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg server.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	// 使用 zap 日志写入文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel, cfg.LogStderr); err != nil {
		return err
	}
	defer server.SyncLogger()
	log := server.Log

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	loop := server.NewLoop(cfg, server.WithLogger(log.Named("engine")))
	go loop.Run(loopCtx)

	handler := server.NewRouter(loop, server.NewWSHandler(loop, log.Named("ws")), log.Named("http"))
	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Infof("duelhub listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
