// Package scheduler dispara a apuração em lote periodicamente.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/engine"
)

// BatchRunner é o engine visto pelo agendador
type BatchRunner interface {
	RunBatch(ctx context.Context, req engine.BatchRequest) (engine.Summary, error)
}

// Options: política de liga/desliga fica aqui, fora do engine
type Options struct {
	Spec    string // cron com segundos: "0 */10 * * * *"
	Enabled bool
	Timeout time.Duration // limite por execução; zero = sem limite
	Loc     *time.Location
}

type Scheduler struct {
	Runner BatchRunner
	Opts   Options
	Log    *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	loggedOff bool
}

func New(r BatchRunner, opts Options, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Loc == nil {
		opts.Loc = time.UTC
	}
	return &Scheduler{Runner: r, Opts: opts, Log: log}
}

// Start registra o job; execuções sobrepostas são puladas
func (s *Scheduler) Start() error {
	logger := CronLogger(s.Log)
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(s.Opts.Loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(s.Opts.Spec, func() { s.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("add settlement job %q: %w", s.Opts.Spec, err)
	}
	s.cron.Start()
	s.Log.Info("settlement scheduler started", zap.String("spec", s.Opts.Spec), zap.Bool("enabled", s.Opts.Enabled))
	return nil
}

// Stop espera o job em andamento terminar
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Log.Info("settlement scheduler stopped")
}

// Tick roda uma apuração em lote sem filtros; desligado, só registra uma vez
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.Opts.Enabled {
		s.mu.Lock()
		if !s.loggedOff {
			s.Log.Info("auto settlement disabled, skipping ticks")
			s.loggedOff = true
		}
		s.mu.Unlock()
		return
	}
	if s.Opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Opts.Timeout)
		defer cancel()
	}

	summary, err := s.Runner.RunBatch(ctx, engine.BatchRequest{})
	if err != nil {
		s.Log.Error("scheduled settlement failed", zap.String("runId", summary.RunID), zap.Error(err))
		return
	}
	s.Log.Info("scheduled settlement done",
		zap.String("runId", summary.RunID),
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("winners", summary.SettledWinnerCount))
}

// CronLogger adapta o zap para a interface de log do cron
func CronLogger(log *zap.Logger) cron.Logger { return cronLogger{log} }

type cronLogger struct{ log *zap.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug(msg, zap.Any("cron", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error(msg, zap.Error(err), zap.Any("cron", kv))
}
