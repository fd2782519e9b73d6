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

	simulator "github.com/radieske/bicho-settlement-engine/internal/draw-simulator"
	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	"github.com/radieske/bicho-settlement-engine/internal/shared/logger"
	"github.com/radieske/bicho-settlement-engine/internal/shared/metrics"
)

var (
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulator_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simulator_ws_messages_sent_total",
		Help: "Total de sorteios enviados via WS",
	})
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

	prometheus.MustRegister(wsConnections, wsMessagesSent)

	gen := simulator.NewGenerator(lottery.DefaultCatalog(), uint64(cfg.SimulatorSeed), cfg.Location())
	hub := simulator.NewHub(log)
	hub.OnConnect = func(delta int) { wsConnections.Add(float64(delta)) }
	hub.OnSent = func() { wsMessagesSent.Inc() }

	srv := simulator.NewServer(gen, hub, log)
	go srv.Run(ctx, cfg.SimulatorInterval)

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, log, nil)

	public := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("draw simulator running",
			zap.String("addr", public.Addr),
			zap.String("paths", "/api/resultados,/ws"),
		)
		if err := public.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("public server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = public.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)
	log.Info("draw simulator stopped")
}
