package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/app"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/scheduler"
	"github.com/radieske/bicho-settlement-engine/internal/shared/cache"
	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	"github.com/radieske/bicho-settlement-engine/internal/shared/db"
	"github.com/radieske/bicho-settlement-engine/internal/shared/logger"
	"github.com/radieske/bicho-settlement-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	settlement := app.Build(ctx, cfg, pg, redisClient, log, app.NewMetrics(prometheus.DefaultRegisterer))
	defer settlement.Close()

	sched := scheduler.New(settlement.Engine, scheduler.Options{
		Spec:    cfg.SettleCron,
		Enabled: cfg.AutoSettleEnabled,
		Timeout: 5 * time.Minute,
		Loc:     cfg.Location(),
	}, log)
	if err := sched.Start(); err != nil {
		log.Fatal("scheduler start", zap.Error(err))
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Checks{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}.Health)

	log.Info("settlement worker started")
	<-ctx.Done()
	sched.Stop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("settlement worker stopped")
}
