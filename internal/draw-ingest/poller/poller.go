// Package poller coleta periodicamente os resultados do dia, aquece o cache de
// resultados lido pela apuração e publica o que foi coletado no Kafka.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/scheduler"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
)

// Fetcher é a cadeia de fontes (sem cache)
type Fetcher interface {
	Fetch(ctx context.Context, date string) ([]draw.RawResult, error)
}

// Store grava o bruto na chave lida pelo settlement (source.Cached.Store)
type Store interface {
	Store(ctx context.Context, date string, res []draw.RawResult)
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Poller struct {
	Source     Fetcher
	Normalizer *draw.Normalizer
	Cache      Store         // opcional
	Writer     MessageWriter // opcional
	Loc        *time.Location
	Log        *zap.Logger
	Now        func() time.Time

	OnFetch func(ok bool)
	OnError func(stage string)

	cron *cron.Cron
	// assinatura do último lote publicado por data; evita republicar o mesmo resultado
	last map[string]string
}

func New(src Fetcher, n *draw.Normalizer, c Store, w MessageWriter, loc *time.Location, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Poller{Source: src, Normalizer: n, Cache: c, Writer: w, Loc: loc, Log: log, Now: time.Now, last: map[string]string{}}
}

// Start agenda o Poll no fuso de operação
func (p *Poller) Start(spec string) error {
	logger := scheduler.CronLogger(p.Log)
	p.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(p.Loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := p.cron.AddFunc(spec, func() {
		if _, err := p.Poll(context.Background()); err != nil {
			p.Log.Warn("draw poll failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("add ingest job %q: %w", spec, err)
	}
	p.cron.Start()
	p.Log.Info("draw ingest started", zap.String("spec", spec))
	return nil
}

func (p *Poller) Stop() {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
}

// Poll busca o dia corrente (no fuso de operação) e devolve as extrações normalizadas
func (p *Poller) Poll(ctx context.Context) ([]draw.DrawResult, error) {
	date := p.Now().In(p.Loc).Format(draw.DateLayout)

	raw, err := p.Source.Fetch(ctx, date)
	if p.OnFetch != nil {
		p.OnFetch(err == nil)
	}
	if err != nil {
		p.fail("fetch")
		return nil, fmt.Errorf("fetch %s: %w", date, err)
	}
	if p.Cache != nil {
		p.Cache.Store(ctx, date, raw)
	}

	results := p.Normalizer.Normalize(raw)
	sig := signature(results)
	if p.last[date] == sig {
		p.Log.Debug("draw results unchanged", zap.String("date", date), zap.Int("draws", len(results)))
		return results, nil
	}

	if p.Writer != nil {
		if err := p.publish(ctx, date, raw, results); err != nil {
			p.fail("publish")
			return results, err
		}
	}
	p.last[date] = sig
	p.Log.Info("draw results ingested", zap.String("date", date), zap.Int("draws", len(results)), zap.Int("entries", len(raw)))
	return results, nil
}

func (p *Poller) publish(ctx context.Context, date string, raw []draw.RawResult, results []draw.DrawResult) error {
	ev := events.DrawResultsFetched{Date: date, Source: sourceOf(raw), Ts: p.Now().UTC()}
	for _, r := range results {
		dr := events.DrawResult{Lottery: r.Lottery, DrawTime: r.DrawTime, Date: r.Date}
		for _, pr := range r.Prizes {
			dr.Prizes = append(dr.Prizes, events.DrawPrize{Position: pr.Position, Number: pr.Number, Group: bicho.GroupOf(pr.Number)})
		}
		ev.Results = append(ev.Results, dr)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(date), Value: b, Time: ev.Ts}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write draw results: %w", err)
	}
	return nil
}

func (p *Poller) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sourceOf(raw []draw.RawResult) string {
	if len(raw) == 0 {
		return ""
	}
	return raw[0].Source
}

// signature identifica o conjunto de extrações independentemente da ordem
func signature(results []draw.DrawResult) string {
	keys := make([]string, 0, len(results))
	for _, r := range results {
		keys = append(keys, fmt.Sprintf("%s|%s|%s|%v", r.Lottery, r.DrawTime, r.Date, r.Numbers()))
	}
	sort.Strings(keys)
	return fmt.Sprint(keys)
}
