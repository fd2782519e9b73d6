// Package draw normaliza resultados de fontes externas para o formato canônico
// {loteria, horário, data, prêmios 1..7}.
package draw

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"go.uber.org/zap"
)

// DateLayout é o formato canônico de data
const DateLayout = "2006-01-02"

// RawResult é uma linha como veio da fonte
type RawResult struct {
	Lottery  string `json:"lottery"`
	Time     string `json:"time"`
	Date     string `json:"date"`
	Position int    `json:"position"`
	Number   string `json:"number"`
	Source   string `json:"source"`
}

// Prize é um prêmio já canonizado (milhar de 4 dígitos)
type Prize struct {
	Position int    `json:"position"`
	Number   string `json:"number"`
}

// DrawResult é uma extração normalizada
type DrawResult struct {
	Lottery  string  `json:"lottery"`
	DrawTime string  `json:"drawTime"`
	Date     string  `json:"date"`
	Prizes   []Prize `json:"prizes"`
	Source   string  `json:"source"`
	Resolved bool    `json:"resolved"`
}

// Numbers devolve as milhares na ordem dos prêmios
func (d DrawResult) Numbers() []string {
	out := make([]string, len(d.Prizes))
	for i, p := range d.Prizes {
		out[i] = p.Number
	}
	return out
}

// Groups deriva o grupo de cada prêmio
func (d DrawResult) Groups() []int {
	out := make([]int, len(d.Prizes))
	for i, p := range d.Prizes {
		out[i] = bicho.GroupOf(p.Number)
	}
	return out
}

// Normalizer converte RawResult em DrawResult sem efeitos colaterais
type Normalizer struct {
	Aliases *AliasTable
	Catalog *lottery.Catalog
	Log     *zap.Logger
}

func NewNormalizer(aliases *AliasTable, catalog *lottery.Catalog, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{Aliases: aliases, Catalog: catalog, Log: log}
}

type groupKey struct {
	lottery, time, date, source string
}

// Normalize agrupa por (loteria, horário, data, fonte). Loterias não resolvidas
// seguem com Resolved=false; linhas sem número válido são descartadas.
func (n *Normalizer) Normalize(raw []RawResult) []DrawResult {
	groups := make(map[groupKey]*DrawResult)
	var order []groupKey

	for _, r := range raw {
		number, ok := bicho.Pad4(r.Number)
		if !ok || r.Position < 1 {
			n.Log.Debug("dropping raw result without number/position",
				zap.String("lottery", r.Lottery), zap.String("number", r.Number), zap.Int("position", r.Position))
			continue
		}

		name := strings.TrimSpace(r.Lottery)
		canonical, rank, resolved := n.Aliases.Resolve(name)
		drawTime := strings.TrimSpace(r.Time)
		if resolved {
			drawTime = n.RemapTime(canonical, drawTime)
		} else {
			canonical = strings.ToUpper(name)
			n.Log.Debug("unresolved lottery name", zap.String("lottery", name))
		}
		if rank > RankContains {
			n.Log.Debug("lottery resolved by fallback rule",
				zap.String("name", name), zap.String("canonical", canonical), zap.Stringer("rank", rank))
		}

		k := groupKey{lottery: canonical, time: drawTime, date: NormalizeDate(r.Date), source: r.Source}
		g, ok := groups[k]
		if !ok {
			g = &DrawResult{Lottery: k.lottery, DrawTime: k.time, Date: k.date, Source: k.source, Resolved: resolved}
			groups[k] = g
			order = append(order, k)
		}
		g.Prizes = append(g.Prizes, Prize{Position: r.Position, Number: number})
	}

	out := make([]DrawResult, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Prizes = SortPrizes(g.Prizes)
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Lottery != b.Lottery {
			return a.Lottery < b.Lottery
		}
		if a.DrawTime != b.DrawTime {
			return a.DrawTime < b.DrawTime
		}
		return a.Source < b.Source
	})
	return out
}

// SortPrizes ordena por posição, mantém o primeiro de cada posição e corta em 7
func SortPrizes(prizes []Prize) []Prize {
	sorted := make([]Prize, len(prizes))
	copy(sorted, prizes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := sorted[:0]
	last := 0
	for _, p := range sorted {
		if p.Position == last {
			continue
		}
		last = p.Position
		out = append(out, p)
		if len(out) == 7 {
			break
		}
	}
	return out
}

// RemapTime troca o horário reportado pelo rótulo interno da extração quando ele
// cai na janela real [fechamento-30min, fechamento] (vence o fechamento mais próximo)
// ou a até 30min do rótulo. Fora disso mantém o valor original.
func (n *Normalizer) RemapTime(canonical, reported string) string {
	if n.Catalog == nil {
		return reported
	}
	t, err := lottery.Minutes(reported)
	if err != nil {
		return reported
	}
	exts := n.Catalog.ByName(canonical)

	best, bestDist := "", -1
	for _, e := range exts {
		start, end, err := lottery.Window(e)
		if err != nil || t < start || t > end {
			continue
		}
		if d := end - t; bestDist < 0 || d < bestDist {
			best, bestDist = e.Time, d
		}
	}
	if best != "" {
		return best
	}

	window := int(lottery.RealWindow / time.Minute)
	for _, e := range exts {
		label, err := lottery.Minutes(e.Time)
		if err != nil {
			continue
		}
		d := abs(label - t)
		if d <= window && (bestDist < 0 || d < bestDist) {
			best, bestDist = e.Time, d
		}
	}
	if best != "" {
		return best
	}
	return reported
}

var brDate = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)

// NormalizeDate aceita ISO (com ou sem hora) e dd/mm/aaaa; outros formatos passam intactos
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return t.Format(DateLayout)
		}
	}
	if m := brDate.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse(DateLayout, m[3]+"-"+m[2]+"-"+m[1]); err == nil {
			return t.Format(DateLayout)
		}
	}
	return s
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
