package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/draw-ingest/live"
	"github.com/radieske/bicho-settlement-engine/internal/draw-ingest/poller"
	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/source"
	"github.com/radieske/bicho-settlement-engine/internal/shared/cache"
	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	"github.com/radieske/bicho-settlement-engine/internal/shared/kafka"
	"github.com/radieske/bicho-settlement-engine/internal/shared/logger"
	"github.com/radieske/bicho-settlement-engine/internal/shared/metrics"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
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

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawResults)
	defer writer.Close()

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "draw_ingest_fetches_total", Help: "consultas por fonte"}, []string{"source", "ok"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "draw_ingest_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(fetches, errorsBy)

	chain := source.NewChain(cfg.DrawFetchTimeout, log,
		source.NewJSONFeed(cfg.DrawFeedURL),
		source.NewHTMLSource(cfg.DrawFallbackURL, cfg.DrawFallbackSession, cfg.DrawFetchRPS, log),
	)
	chain.OnFetch = func(src string, ok bool) { fetches.WithLabelValues(src, fmt.Sprint(ok)).Inc() }
	results := source.NewCached(chain, cache.JSON{R: redisClient}, cfg.ResultsCacheTTL, log)

	catalog := lottery.DefaultCatalog()
	p := poller.New(chain, draw.NewNormalizer(draw.DefaultAliases(), catalog, log), results, writer, cfg.Location(), log)
	p.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }
	if err := p.Start(cfg.IngestCron); err != nil {
		log.Fatal("poller start", zap.Error(err))
	}
	defer p.Stop()

	// feed ao vivo opcional (simulador): cada sorteio anunciado antecipa a coleta
	if cfg.DrawLiveWSURL != "" {
		lc := &live.WSClient{URL: cfg.DrawLiveWSURL, Log: log, OnDraw: func(ctx context.Context, d events.DrawResult) {
			log.Info("live draw announced", zap.String("lottery", d.Lottery), zap.String("time", d.DrawTime))
			if _, err := p.Poll(ctx); err != nil {
				log.Warn("poll after live draw failed", zap.Error(err))
			}
		}}
		go lc.Start(ctx)
	}

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, metrics.Checks{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}.Health)
	defer msrv.Close()

	log.Info("draw ingest running", zap.String("feed", cfg.DrawFeedURL))
	<-ctx.Done()
	log.Info("draw ingest stopped")
}
