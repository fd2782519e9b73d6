package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type HealthFunc func(ctx context.Context) error

// Checks são dependências nomeadas conferidas pelo /healthz (postgres, redis, ...)
type Checks map[string]HealthFunc

// Health roda todos os checks e agrega as falhas com o nome da dependência
func (c Checks) Health(ctx context.Context) error {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs error
	for _, n := range names {
		if err := c[n](ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", n, err))
		}
	}
	return errs
}

// ErrUnhealthy é devolvido quando um check estoura o tempo do /healthz
var ErrUnhealthy = errors.New("health check timed out")

// Handler expõe /metrics e /healthz; healthFn nil sempre responde ok
func Handler(healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			err := healthFn(ctx)
			if err == nil && ctx.Err() != nil {
				err = ErrUnhealthy
			}
			if err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// StartMetricsServer sobe um servidor HTTP leve só pra /metrics e /healthz.
// executado numa goroutine no main de cada serviço.
func StartMetricsServer(port string, log *zap.Logger, healthFn HealthFunc) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics/health listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	return srv
}
