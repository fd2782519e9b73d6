// Package engine orquestra a apuração: busca resultados, pareia apostas,
// calcula prêmios, aplica cotações especiais e grava a liquidação.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/bet"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/matcher"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/quotation"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/schedule"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/transactor"
	"github.com/radieske/bicho-settlement-engine/pkg/contracts/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	TriggerBatch  = "batch"
	TriggerManual = "manual"
)

var (
	// ErrSourcesUnavailable: nenhuma fonte trouxe resultado para as datas pedidas
	ErrSourcesUnavailable = errors.New("draw result sources unavailable")
	ErrInvalidRequest     = errors.New("invalid settlement request")
)

// BetRepo lê apostas pendentes
type BetRepo interface {
	ListPending(ctx context.Context, f bet.Filter) ([]bet.Bet, error)
	ListPendingExact(ctx context.Context, f bet.ManualFilter) ([]bet.Bet, error)
}

// Fetcher busca resultados brutos de uma data
type Fetcher interface {
	Fetch(ctx context.Context, date string) ([]draw.RawResult, error)
}

// Settler grava a liquidação de uma aposta
type Settler interface {
	Settle(ctx context.Context, b bet.Bet, out transactor.Outcome) error
}

// Publisher emite o evento de aposta liquidada após o commit
type Publisher interface {
	PublishSettled(ctx context.Context, ev events.BetSettled) error
}

// Options são as políticas da execução, montadas no main
type Options struct {
	AllowAnyLottery bool
	// MaxTimeDistance limita o pareamento por horário mais próximo; zero mantém o do matcher
	MaxTimeDistance time.Duration
	Workers         int // 1 = sequencial
}

// Engine não lê env nem estado global; tudo entra pelos campos
type Engine struct {
	Bets       BetRepo
	Source     Fetcher
	Settler    Settler
	Publisher  Publisher // opcional
	Normalizer *draw.Normalizer
	Matcher    *matcher.Matcher
	Gate       *schedule.Gate
	Calc       *rules.Calculator
	Quotes     *quotation.Resolver // opcional
	Catalog    *lottery.Catalog
	Log        *zap.Logger
	Opts       Options
	Now        func() time.Time

	// Hooks de métricas
	OnRun     func(trigger string)
	OnSettled func(status bet.Status, payout float64)
	OnError   func(stage string)
}

// Deps agrupa as dependências obrigatórias
type Deps struct {
	Bets       BetRepo
	Source     Fetcher
	Settler    Settler
	Publisher  Publisher
	Normalizer *draw.Normalizer
	Matcher    *matcher.Matcher
	Gate       *schedule.Gate
	Calc       *rules.Calculator
	Quotes     *quotation.Resolver
	Catalog    *lottery.Catalog
	Log        *zap.Logger
}

func New(d Deps, opts Options) *Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if d.Matcher != nil {
		d.Matcher.AllowAnyLottery = opts.AllowAnyLottery
		if opts.MaxTimeDistance > 0 {
			d.Matcher.MaxTimeDistance = opts.MaxTimeDistance
		}
	}
	if d.Calc == nil {
		d.Calc = rules.NewCalculator(nil)
	}
	return &Engine{
		Bets: d.Bets, Source: d.Source, Settler: d.Settler, Publisher: d.Publisher,
		Normalizer: d.Normalizer, Matcher: d.Matcher, Gate: d.Gate, Calc: d.Calc,
		Quotes: d.Quotes, Catalog: d.Catalog, Log: d.Log, Opts: opts, Now: time.Now,
	}
}

// Summary é o que o operador recebe de qualquer execução
type Summary struct {
	RunID              string          `json:"runId"`
	ProcessedCount     int             `json:"processedCount"`
	SettledWinnerCount int             `json:"settledWinnerCount"`
	TotalPrizePaid     decimal.Decimal `json:"totalPrizePaid"`
	Unmatched          int             `json:"unmatched"`
	NotFinal           int             `json:"notFinal"`
	Skipped            int             `json:"skipped"`
	Failed             int             `json:"failed"`
}

// BatchRequest: filtros opcionais; vazio processa todas as pendentes
type BatchRequest struct {
	Lottery string `json:"lottery,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
}

// ManualRequest: resultado informado pelo operador para uma extração
type ManualRequest struct {
	Lottery string   `json:"lottery"`
	Date    string   `json:"date"`
	Time    string   `json:"time"`
	Prizes  []string `json:"prizes"`
}

// RunBatch liquida as pendentes com os resultados das fontes, respeitando o horário real de apuração
func (e *Engine) RunBatch(ctx context.Context, req BatchRequest) (Summary, error) {
	run := e.newRun(TriggerBatch)
	log := e.Log.With(zap.String("runId", run.id), zap.String("trigger", TriggerBatch))

	bets, err := e.Bets.ListPending(ctx, bet.Filter{Lottery: req.Lottery, Date: req.Date, Time: req.Time})
	if err != nil {
		e.fail("list")
		return run.summary(), fmt.Errorf("list pending bets: %w", err)
	}
	if len(bets) == 0 {
		log.Info("no pending bets")
		return run.summary(), nil
	}

	var raw []draw.RawResult
	dates := distinctDates(bets)
	failures := 0
	for _, d := range dates {
		rows, err := e.Source.Fetch(ctx, d)
		if err != nil {
			failures++
			e.fail("fetch")
			log.Warn("fetch draw results failed", zap.String("date", d), zap.Error(err))
			continue
		}
		raw = append(raw, rows...)
	}
	if len(dates) > 0 && len(raw) == 0 && failures == len(dates) {
		return run.summary(), fmt.Errorf("%w: %d date(s) without results", ErrSourcesUnavailable, failures)
	}

	results := e.Normalizer.Normalize(raw)
	pairs, unmatched := e.Matcher.Match(bets, results)
	for _, u := range unmatched {
		log.Debug("bet unmatched", zap.String("betId", u.Bet.ID), zap.String("lottery", u.Bet.Lottery),
			zap.String("drawTime", u.Bet.DrawTime), zap.String("date", u.Bet.DrawDate))
	}
	run.add(func(s *Summary) { s.Unmatched = len(unmatched) })

	var eligible []matcher.Pair
	for _, p := range pairs {
		// a extração da aposta e a do balde pareado precisam estar encerradas
		if e.Gate != nil && (!e.Gate.IsDrawFinal(p.Bet.Lottery, p.Bet.DrawDate, p.Bet.DrawTime) ||
			!e.Gate.IsDrawFinal(p.Bucket.Lottery, p.Bucket.Date, p.Bucket.Time)) {
			log.Debug("draw not final yet", zap.String("betId", p.Bet.ID),
				zap.String("matchedTime", p.Bucket.Time), zap.String("rule", string(p.Rule)))
			run.add(func(s *Summary) { s.NotFinal++ })
			continue
		}
		eligible = append(eligible, p)
	}

	e.settleAll(ctx, run, log, eligible)
	s := run.summary()
	log.Info("batch settlement finished",
		zap.Int("pending", len(bets)), zap.Int("processed", s.ProcessedCount),
		zap.Int("winners", s.SettledWinnerCount), zap.String("paid", s.TotalPrizePaid.StringFixed(2)))
	return s, nil
}

// RunManual usa o resultado digitado pelo operador; o horário real de apuração não é checado
func (e *Engine) RunManual(ctx context.Context, req ManualRequest) (Summary, error) {
	run := e.newRun(TriggerManual)
	log := e.Log.With(zap.String("runId", run.id), zap.String("trigger", TriggerManual))

	if req.Lottery == "" || req.Date == "" || req.Time == "" || len(req.Prizes) == 0 {
		return run.summary(), fmt.Errorf("%w: lottery, date, time and prizes are required", ErrInvalidRequest)
	}
	result, err := rules.NewInstantResult(req.Prizes)
	if err != nil {
		return run.summary(), fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	canonical := e.Matcher.LotteryName(req.Lottery)
	bets, err := e.Bets.ListPendingExact(ctx, bet.ManualFilter{
		Lottery:    req.Lottery,
		LotteryIDs: e.lotteryIDs(canonical),
		Date:       req.Date,
		Time:       req.Time,
	})
	if err != nil {
		e.fail("list")
		return run.summary(), fmt.Errorf("list pending bets: %w", err)
	}

	prizes := make([]draw.Prize, len(result.Prizes))
	for i, n := range result.Prizes {
		prizes[i] = draw.Prize{Position: i + 1, Number: n}
	}
	key := matcher.Key{Lottery: canonical, Time: req.Time, Date: req.Date}
	bucket := &matcher.Bucket{Key: key, Prizes: prizes, Sources: []string{TriggerManual}}

	pairs, unmatched := e.Matcher.MatchBuckets(bets, map[matcher.Key]*matcher.Bucket{key: bucket})
	for _, u := range unmatched {
		log.Info("bet selected but not matched to manual result", zap.String("betId", u.Bet.ID), zap.String("lottery", u.Bet.Lottery))
	}
	run.add(func(s *Summary) { s.Unmatched = len(unmatched) })

	e.settleAll(ctx, run, log, pairs)
	s := run.summary()
	log.Info("manual settlement finished", zap.String("lottery", canonical), zap.String("date", req.Date),
		zap.String("time", req.Time), zap.Int("processed", s.ProcessedCount), zap.Int("winners", s.SettledWinnerCount))
	return s, nil
}

func (e *Engine) lotteryIDs(canonical string) []string {
	if e.Catalog == nil {
		return nil
	}
	var ids []string
	for _, x := range e.Catalog.ByName(canonical) {
		ids = append(ids, strconv.Itoa(x.ID))
	}
	return ids
}

// settleAll processa as apostas de forma independente; falha de uma não interrompe as outras
func (e *Engine) settleAll(ctx context.Context, run *runState, log *zap.Logger, pairs []matcher.Pair) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Opts.Workers)
	for _, p := range pairs {
		g.Go(func() error {
			e.settleOne(gctx, run, log, p)
			return nil
		})
	}
	_ = g.Wait()
}

// Snapshot é o registro de auditoria gravado na aposta
type Snapshot struct {
	RunID      string              `json:"runId"`
	Trigger    string              `json:"trigger"`
	Rule       matcher.Rule        `json:"rule"`
	Draw       draw.DrawResult     `json:"draw"`
	Hits       int                 `json:"hits"`
	Payout     decimal.Decimal     `json:"payout"`
	Quotations []quotation.Applied `json:"quotations,omitempty"`
	Guesses    []GuessEntry        `json:"guesses"`
}

type GuessEntry struct {
	Guess string          `json:"guess"`
	Hits  int             `json:"hits"`
	Prize decimal.Decimal `json:"prize"`
}

func (e *Engine) settleOne(ctx context.Context, run *runState, log *zap.Logger, p matcher.Pair) {
	b := p.Bet
	blog := log.With(zap.String("betId", b.ID))

	out, applied, err := e.Evaluate(ctx, b, p.Bucket)
	switch {
	case errors.Is(err, bet.ErrMalformedMetadata):
		blog.Warn("skipping bet with malformed metadata", zap.Error(err))
		run.add(func(s *Summary) { s.Skipped++ })
		return
	case err != nil:
		blog.Error("evaluate bet failed", zap.Error(err))
		e.fail("evaluate")
		run.add(func(s *Summary) { s.Failed++ })
		return
	}

	snap := Snapshot{
		RunID: run.id, Trigger: run.trigger, Rule: p.Rule, Draw: p.Bucket.Snapshot(),
		Hits: out.Hits, Payout: out.Total, Quotations: applied,
	}
	for _, g := range out.Guesses {
		snap.Guesses = append(snap.Guesses, GuessEntry{Guess: g.Guess.String(), Hits: g.Hits, Prize: g.Prize.Round(2)})
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		blog.Error("marshal snapshot failed", zap.Error(err))
		e.fail("snapshot")
		run.add(func(s *Summary) { s.Failed++ })
		return
	}

	won := out.Won()
	result := transactor.Outcome{Won: won, Payout: out.Total, RunID: run.id, Snapshot: raw}
	if err := e.Settler.Settle(ctx, b, result); err != nil {
		if errors.Is(err, transactor.ErrAlreadySettled) {
			blog.Info("bet already settled, skipping")
			run.add(func(s *Summary) { s.Skipped++ })
			return
		}
		blog.Error("settle bet failed", zap.Error(err))
		e.fail("settle")
		run.add(func(s *Summary) { s.Failed++ })
		return
	}

	status := result.Status()
	payout := decimal.Zero
	if won {
		payout = out.Total
	}
	run.add(func(s *Summary) {
		s.ProcessedCount++
		if won {
			s.SettledWinnerCount++
			s.TotalPrizePaid = s.TotalPrizePaid.Add(payout)
		}
	})
	if e.OnSettled != nil {
		e.OnSettled(status, payout.InexactFloat64())
	}
	blog.Debug("bet settled", zap.String("status", string(status)), zap.String("payout", payout.StringFixed(2)))

	if e.Publisher != nil {
		ev := events.BetSettled{
			BetID: b.ID, UserID: b.UserID, RunID: run.id, Trigger: run.trigger,
			Status: string(status), Payout: payout, Lottery: b.Lottery,
			DrawTime: b.DrawTime, DrawDate: b.DrawDate, Ts: e.Now().UTC(),
		}
		if err := e.Publisher.PublishSettled(ctx, ev); err != nil {
			blog.Warn("publish bet settled failed", zap.Error(err))
			e.fail("publish")
		}
	}
}

// Evaluate confere a aposta contra o balde e aplica as cotações especiais por palpite vencedor.
// Metadado inválido volta como bet.ErrMalformedMetadata.
func (e *Engine) Evaluate(ctx context.Context, b bet.Bet, bucket *matcher.Bucket) (rules.Outcome, []quotation.Applied, error) {
	var m rules.Modality
	if b.Modality != "" {
		parsed, err := rules.ParseModality(b.Modality)
		if err != nil {
			return rules.Outcome{}, nil, fmt.Errorf("%w: %v", bet.ErrMalformedMetadata, err)
		}
		m = parsed
	}
	pl, err := rules.DecodeBetData(m, b.Metadata)
	if err != nil {
		return rules.Outcome{}, nil, fmt.Errorf("%w: %v", bet.ErrMalformedMetadata, err)
	}

	from, to := rules.BetRange(pl.PosFrom, pl.PosTo, b.PosFrom, b.PosTo)
	stake := b.Stake
	if !stake.IsPositive() {
		stake = pl.Stake
	}
	if !stake.IsPositive() {
		return rules.Outcome{}, nil, fmt.Errorf("%w: stake must be positive", bet.ErrMalformedMetadata)
	}

	result, err := bucket.Result()
	if err != nil {
		return rules.Outcome{}, nil, fmt.Errorf("build result: %w", err)
	}
	out, err := e.Calc.Compute(rules.Input{
		Result: result, Modality: pl.Modality, Guesses: pl.Guesses,
		PosFrom: from, PosTo: to, Stake: stake, Division: pl.Division,
	})
	if err != nil {
		if errors.Is(err, rules.ErrInvalidGuess) || errors.Is(err, rules.ErrUnknownModality) {
			return rules.Outcome{}, nil, fmt.Errorf("%w: %v", bet.ErrMalformedMetadata, err)
		}
		return rules.Outcome{}, nil, err
	}

	var applied []quotation.Applied
	if e.Quotes != nil && pl.Modality.Quotable() {
		for i, g := range out.Guesses {
			if !g.Prize.IsPositive() {
				continue
			}
			match, ok := g.FirstMatch()
			if !ok {
				continue
			}
			adjusted, ap, err := e.Quotes.Apply(ctx, pl.Modality, match.Number, g.Prize, g.BaseOdds)
			if err != nil {
				return rules.Outcome{}, nil, fmt.Errorf("apply quotation: %w", err)
			}
			if ap != nil {
				out.Guesses[i].Prize = adjusted
				applied = append(applied, *ap)
			}
		}
		out.Retotal()
	}
	return out, applied, nil
}

func (e *Engine) fail(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}

type runState struct {
	id      string
	trigger string
	mu      sync.Mutex
	s       Summary
}

func (e *Engine) newRun(trigger string) *runState {
	if e.OnRun != nil {
		e.OnRun(trigger)
	}
	id := uuid.New().String()
	return &runState{id: id, trigger: trigger, s: Summary{RunID: id, TotalPrizePaid: decimal.Zero}}
}

func (r *runState) add(fn func(*Summary)) {
	r.mu.Lock()
	fn(&r.s)
	r.mu.Unlock()
}

func (r *runState) summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.s
	s.TotalPrizePaid = s.TotalPrizePaid.Round(2)
	return s
}

func distinctDates(bets []bet.Bet) []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range bets {
		if b.DrawDate != "" && !seen[b.DrawDate] {
			seen[b.DrawDate] = true
			out = append(out, b.DrawDate)
		}
	}
	sort.Strings(out)
	return out
}
