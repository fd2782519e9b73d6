// Package matcher associa cada aposta pendente ao resultado da sua extração.
package matcher

import (
	"sort"
	"strings"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/bet"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"go.uber.org/zap"
)

// Key identifica um balde de resultados
type Key struct {
	Lottery string
	Time    string
	Date    string
}

func (k Key) less(o Key) bool {
	if k.Lottery != o.Lottery {
		return k.Lottery < o.Lottery
	}
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	return k.Time < o.Time
}

// Bucket junta os prêmios de uma extração vindos de uma ou mais fontes
type Bucket struct {
	Key
	Prizes  []draw.Prize
	Sources []string
}

// Result converte o balde no resultado usado pelo calculador
func (b *Bucket) Result() (rules.InstantResult, error) {
	numbers := make([]string, len(b.Prizes))
	for i, p := range b.Prizes {
		numbers[i] = p.Number
	}
	return rules.NewInstantResult(numbers)
}

// Snapshot é a cópia do resultado guardada na aposta para auditoria
func (b *Bucket) Snapshot() draw.DrawResult {
	return draw.DrawResult{
		Lottery:  b.Lottery,
		DrawTime: b.Time,
		Date:     b.Date,
		Prizes:   append([]draw.Prize(nil), b.Prizes...),
		Source:   strings.Join(b.Sources, ","),
		Resolved: true,
	}
}

// Buckets agrupa por (loteria, horário, data). Entre fontes, vale a primeira
// que trouxe cada posição; prêmios ficam ordenados e limitados a 7.
func Buckets(results []draw.DrawResult) map[Key]*Bucket {
	out := make(map[Key]*Bucket)
	for _, r := range results {
		k := Key{Lottery: r.Lottery, Time: r.DrawTime, Date: r.Date}
		b, ok := out[k]
		if !ok {
			b = &Bucket{Key: k}
			out[k] = b
		}
		b.Prizes = append(b.Prizes, r.Prizes...)
		if r.Source != "" && !contains(b.Sources, r.Source) {
			b.Sources = append(b.Sources, r.Source)
		}
	}
	for _, b := range out {
		b.Prizes = draw.SortPrizes(b.Prizes)
	}
	return out
}

// Rule indica como o balde foi escolhido
type Rule string

const (
	RuleExact        Rule = "exact"
	RuleClosestTime  Rule = "closest-time"
	RuleMostComplete Rule = "most-complete"
	RuleAnyLottery   Rule = "any-lottery"
)

// Pair é uma aposta com o seu resultado
type Pair struct {
	Bet    bet.Bet
	Bucket *Bucket
	Rule   Rule
}

// Unmatched é uma aposta sem resultado correspondente
type Unmatched struct {
	Bet    bet.Bet
	Reason string
}

// Matcher aplica: chave exata; loteria por palavra-chave na mesma data com horário mais próximo;
// balde mais completo da loteria/data; e, só com AllowAnyLottery, qualquer loteria da data.
type Matcher struct {
	Aliases         *draw.AliasTable
	Catalog         *lottery.Catalog
	Log             *zap.Logger
	AllowAnyLottery bool
	// MaxTimeDistance limita a busca por horário próximo; zero = sem limite
	MaxTimeDistance time.Duration
}

func New(aliases *draw.AliasTable, catalog *lottery.Catalog, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{Aliases: aliases, Catalog: catalog, Log: log}
}

// Match pareia cada aposta com no máximo um balde; a ordem de saída segue a de entrada
func (m *Matcher) Match(bets []bet.Bet, results []draw.DrawResult) ([]Pair, []Unmatched) {
	return m.MatchBuckets(bets, Buckets(results))
}

// MatchBuckets é Match sobre baldes já montados
func (m *Matcher) MatchBuckets(bets []bet.Bet, buckets map[Key]*Bucket) ([]Pair, []Unmatched) {
	sorted := make([]*Bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.less(sorted[j].Key) })

	var pairs []Pair
	var unmatched []Unmatched
	for _, b := range bets {
		bucket, rule := m.find(b, buckets, sorted)
		if bucket == nil {
			unmatched = append(unmatched, Unmatched{Bet: b, Reason: "no draw result for lottery/time/date"})
			continue
		}
		if rule == RuleAnyLottery {
			m.Log.Warn("bet matched against another lottery's result",
				zap.String("betId", b.ID), zap.String("lottery", b.Lottery), zap.String("matchedLottery", bucket.Lottery),
				zap.String("date", b.DrawDate))
		}
		pairs = append(pairs, Pair{Bet: b, Bucket: bucket, Rule: rule})
	}
	return pairs, unmatched
}

// LotteryName traduz a referência gravada na aposta (id ou nome) para o nome canônico
func (m *Matcher) LotteryName(ref string) string {
	return draw.LotteryName(m.Aliases, m.Catalog, ref)
}

func (m *Matcher) find(b bet.Bet, buckets map[Key]*Bucket, sorted []*Bucket) (*Bucket, Rule) {
	name := m.LotteryName(b.Lottery)
	betTime := strings.TrimSpace(b.DrawTime)

	if bk, ok := buckets[Key{Lottery: name, Time: betTime, Date: b.DrawDate}]; ok && len(bk.Prizes) > 0 {
		return bk, RuleExact
	}

	var candidates []*Bucket
	for _, bk := range sorted {
		if bk.Date == b.DrawDate && len(bk.Prizes) > 0 && sameLottery(name, bk.Lottery) {
			candidates = append(candidates, bk)
		}
	}

	if len(candidates) > 0 {
		if bk := m.closestTime(betTime, candidates); bk != nil {
			return bk, RuleClosestTime
		}
		if !m.timeComparable(betTime, candidates) {
			return mostComplete(candidates), RuleMostComplete
		}
	}

	if m.AllowAnyLottery {
		var sameDate []*Bucket
		for _, bk := range sorted {
			if bk.Date == b.DrawDate && len(bk.Prizes) > 0 {
				sameDate = append(sameDate, bk)
			}
		}
		if len(sameDate) > 0 {
			return mostComplete(sameDate), RuleAnyLottery
		}
	}
	return nil, ""
}

// closestTime: primeiro por contenção do rótulo, depois pela menor distância de relógio
func (m *Matcher) closestTime(betTime string, candidates []*Bucket) *Bucket {
	if betTime == "" {
		return nil
	}
	var contained []*Bucket
	for _, bk := range candidates {
		if bk.Time != "" && (strings.Contains(bk.Time, betTime) || strings.Contains(betTime, bk.Time)) {
			contained = append(contained, bk)
		}
	}
	if len(contained) > 0 {
		return mostComplete(contained)
	}

	want, err := lottery.Minutes(betTime)
	if err != nil {
		return nil
	}
	var best *Bucket
	bestDist := -1
	for _, bk := range candidates {
		t, err := lottery.Minutes(bk.Time)
		if err != nil {
			continue
		}
		d := want - t
		if d < 0 {
			d = -d
		}
		if m.MaxTimeDistance > 0 && time.Duration(d)*time.Minute > m.MaxTimeDistance {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && len(bk.Prizes) > len(best.Prizes)) {
			best, bestDist = bk, d
		}
	}
	return best
}

// timeComparable informa se havia horários para comparar; nesse caso não cai para o mais completo
func (m *Matcher) timeComparable(betTime string, candidates []*Bucket) bool {
	if _, err := lottery.Minutes(betTime); err != nil {
		return false
	}
	for _, bk := range candidates {
		if _, err := lottery.Minutes(bk.Time); err == nil {
			return true
		}
	}
	return false
}

// mostComplete escolhe o balde com mais prêmios; empate fica com a menor chave
func mostComplete(buckets []*Bucket) *Bucket {
	var best *Bucket
	for _, bk := range buckets {
		if best == nil || len(bk.Prizes) > len(best.Prizes) ||
			(len(bk.Prizes) == len(best.Prizes) && bk.Key.less(best.Key)) {
			best = bk
		}
	}
	return best
}

// sameLottery: nome igual, contido (nos dois sentidos) ou com palavra significativa em comum
func sameLottery(name, bucketLottery string) bool {
	a, b := draw.Fold(name), draw.Fold(bucketLottery)
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	for _, wa := range strings.Fields(a) {
		if len(wa) <= 2 {
			continue
		}
		for _, wb := range strings.Fields(b) {
			if wa == wb {
				return true
			}
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
