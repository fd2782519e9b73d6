package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/exposure"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/producer"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/pubsub"
	exposurerepo "github.com/radieske/bicho-settlement-engine/internal/exposure/repo"
	"github.com/radieske/bicho-settlement-engine/internal/exposure/ws"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/app"
	httpapi "github.com/radieske/bicho-settlement-engine/internal/settlement/http"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/quotation"
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
		if err := kafka.EnsureTopics(ctx, cfg.Brokers(), log, cfg.TopicBetSettled, cfg.TopicExposureAlerts); err != nil {
			log.Warn("ensure kafka topics", zap.Error(err))
		}
	}

	m := app.NewMetrics(prometheus.DefaultRegisterer)
	settlement := app.Build(ctx, cfg, pg, redisClient, log, m)
	defer settlement.Close()

	// verificação avulsa de exposição: alerta sai pelo Kafka e pelo Redis (WS)
	alertWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicExposureAlerts)
	defer alertWriter.Close()
	expRepo := exposurerepo.NewPostgres(pg)
	monitor := exposure.NewMonitor(expRepo, exposure.Notifiers{
		producer.NewKafkaProducer(alertWriter),
		pubsub.NewRedisNotifier(redisClient, cfg.RedisAlertsChannel),
	}, log)

	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisAlertsChannel, hub, log)

	api := &httpapi.API{
		Log:        log,
		Runner:     settlement.Engine,
		Bets:       settlement.Bets,
		Exposure:   expRepo,
		Checker:    monitor,
		Quotations: settlement.Quotations,
		OnQuotationSaved: func(ctx context.Context, q quotation.Quotation) {
			settlement.QuoteCache.Invalidate(ctx, q.Kind, q.Number)
		},
		AlertsWS: http.HandlerFunc(hub.HandleWS),
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Checks{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}.Health)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("settlement api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
}
