// Package app monta o engine de apuração com Postgres, Redis e Kafka,
// compartilhado pela API e pelo worker.
package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/bet"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/engine"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/matcher"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/publisher"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/quotation"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/schedule"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/source"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/transactor"
	sharedcache "github.com/radieske/bicho-settlement-engine/internal/shared/cache"
	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	sharedkafka "github.com/radieske/bicho-settlement-engine/internal/shared/kafka"
)

// Metrics são os contadores da apuração
type Metrics struct {
	Processed prometheus.Counter
	Won       prometheus.Counter
	Paid      prometheus.Counter
	Runs      *prometheus.CounterVec
	Errors    *prometheus.CounterVec
	Fetches   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Processed: prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_bets_processed_total", Help: "apostas liquidadas (won+lost)"}),
		Won:       prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_bets_won_total", Help: "apostas premiadas"}),
		Paid:      prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_prize_paid_total", Help: "soma dos prêmios creditados"}),
		Runs:      prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_runs_total", Help: "execuções por gatilho"}, []string{"trigger"}),
		Errors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"}),
		Fetches:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "draw_source_fetches_total", Help: "consultas por fonte"}, []string{"source", "ok"}),
	}
	reg.MustRegister(m.Processed, m.Won, m.Paid, m.Runs, m.Errors, m.Fetches)
	return m
}

// Settlement é o engine montado e o que os mains precisam fechar/reusar
type Settlement struct {
	Engine     *engine.Engine
	Bets       *bet.Postgres
	Quotations *quotation.PostgresStore
	QuoteCache *quotation.CachedStore
	Writer     *kafka.Writer
}

func (s *Settlement) Close() error {
	if s.Writer == nil {
		return nil
	}
	return s.Writer.Close()
}

// Build liga as fontes, os repositórios e o publisher ao engine.
// Falha ao carregar odds_overrides não impede a subida: segue com a tabela padrão.
func Build(ctx context.Context, cfg config.Config, pg *sql.DB, rdb *redis.Client, log *zap.Logger, m *Metrics) *Settlement {
	catalog := lottery.DefaultCatalog()
	aliases := draw.DefaultAliases()
	jsonCache := sharedcache.JSON{R: rdb}

	odds := rules.DefaultOdds()
	if n, err := rules.NewOddsRepo(pg, log).Apply(ctx, odds); err != nil {
		log.Warn("odds overrides not loaded, using defaults", zap.Error(err))
	} else if n > 0 {
		log.Info("odds overrides applied", zap.Int("count", n))
	}

	chain := source.NewChain(cfg.DrawFetchTimeout, log,
		source.NewJSONFeed(cfg.DrawFeedURL),
		source.NewHTMLSource(cfg.DrawFallbackURL, cfg.DrawFallbackSession, cfg.DrawFetchRPS, log),
	)
	results := source.NewCached(chain, jsonCache, cfg.ResultsCacheTTL, log)

	quotes := quotation.NewPostgresStore(pg)
	quoteCache := &quotation.CachedStore{Store: quotes, Cache: jsonCache, TTL: cfg.QuotationCacheTTL, Log: log}

	writer := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	bets := bet.NewPostgres(pg)

	eng := engine.New(engine.Deps{
		Bets:       bets,
		Source:     results,
		Settler:    transactor.NewPostgres(pg),
		Publisher:  publisher.NewKafkaPublisher(writer, log),
		Normalizer: draw.NewNormalizer(aliases, catalog, log),
		Matcher:    matcher.New(aliases, catalog, log),
		Gate:       schedule.NewGate(catalog, aliases, cfg.Location()),
		Calc:       rules.NewCalculator(odds),
		Quotes:     quotation.NewResolver(quoteCache, log),
		Catalog:    catalog,
		Log:        log,
	}, engine.Options{
		AllowAnyLottery: cfg.SettleAllowAnyLottery,
		MaxTimeDistance: cfg.SettleMaxTimeDistance,
		Workers:         cfg.SettleWorkers,
	})

	if m != nil {
		chain.OnFetch = func(src string, ok bool) {
			m.Fetches.WithLabelValues(src, boolLabel(ok)).Inc()
		}
		eng.OnRun = func(trigger string) { m.Runs.WithLabelValues(trigger).Inc() }
		eng.OnError = func(stage string) { m.Errors.WithLabelValues(stage).Inc() }
		eng.OnSettled = func(status bet.Status, payout float64) {
			m.Processed.Inc()
			if status == bet.StatusWon {
				m.Won.Inc()
				m.Paid.Add(payout)
			}
		}
	}

	return &Settlement{Engine: eng, Bets: bets, Quotations: quotes, QuoteCache: quoteCache, Writer: writer}
}

func boolLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}
