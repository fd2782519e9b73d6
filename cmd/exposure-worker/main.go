package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/consumer"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/producer"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/pubsub"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/repo"
	"github.com/radieske/bicho-settlement-engine/internal/shared/cache"
	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	"github.com/radieske/bicho-settlement-engine/internal/shared/db"
	"github.com/radieske/bicho-settlement-engine/internal/shared/kafka"
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

	if cfg.Env == "local" {
		if err := kafka.EnsureTopics(ctx, cfg.Brokers(), log, cfg.TopicBetPlaced, cfg.TopicBetPlacedDLQ, cfg.TopicExposureAlerts); err != nil {
			log.Warn("ensure kafka topics", zap.Error(err))
		}
	}

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetPlaced, "exposure-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlacedDLQ)
	defer dlq.Close()
	alerts := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicExposureAlerts)
	defer alerts.Close()

	checks := prometheus.NewCounter(prometheus.CounterOpts{Name: "exposure_checks_total", Help: "apostas conferidas"})
	exceeded := prometheus.NewCounter(prometheus.CounterOpts{Name: "exposure_alerts_total", Help: "posições acima do teto"})
	dlqSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "exposure_dlq_total", Help: "mensagens enviadas à DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "exposure_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(checks, exceeded, dlqSent, errorsBy)

	monitor := exposure.NewMonitor(repo.NewPostgres(pg), exposure.Notifiers{
		producer.NewKafkaProducer(alerts),
		pubsub.NewRedisNotifier(redisClient, cfg.RedisAlertsChannel),
	}, log)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		DLQ:        dlq,
		Monitor:    monitor,
		Backoff:    500 * time.Millisecond,
		OnConsumed: func() { checks.Inc() },
		OnChecked:  func(n int) { exceeded.Add(float64(n)) },
		OnDLQ:      func() { dlqSent.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Checks{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}.Health)
	defer msrv.Close()

	log.Info("exposure worker started", zap.String("topic", cfg.TopicBetPlaced))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("exposure worker stopped")
}
