// Package schedule decide se o resultado de uma extração já pode existir.
package schedule

import (
	"strconv"
	"strings"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
)

// Gate compara data/hora no fuso de operação com o fechamento real da extração
type Gate struct {
	Catalog *lottery.Catalog
	Aliases *draw.AliasTable
	Loc     *time.Location
	Now     func() time.Time
}

func NewGate(catalog *lottery.Catalog, aliases *draw.AliasTable, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{Catalog: catalog, Aliases: aliases, Loc: loc, Now: time.Now}
}

// Lookup resolve a extração por id ou por nome canônico + horário. Horário fora do
// catálogo cai na extração de rótulo mais próximo dentro da janela real (30min).
func (g *Gate) Lookup(ref, recordedTime string) (lottery.Extraction, bool) {
	if g.Catalog == nil {
		return lottery.Extraction{}, false
	}
	ref = strings.TrimSpace(ref)
	if _, err := strconv.Atoi(ref); err == nil {
		return g.Catalog.Resolve(ref)
	}
	name := draw.LotteryName(g.Aliases, g.Catalog, ref)
	if e, ok := g.Catalog.ByNameAndTime(name, recordedTime); ok {
		return e, true
	}

	want, err := lottery.Minutes(recordedTime)
	if err != nil {
		return lottery.Extraction{}, false
	}
	window := int(lottery.RealWindow / time.Minute)
	var best lottery.Extraction
	bestDist := -1
	for _, e := range g.Catalog.ByName(name) {
		label, err := lottery.Minutes(e.Time)
		if err != nil {
			continue
		}
		d := label - want
		if d < 0 {
			d = -d
		}
		if d <= window && (bestDist < 0 || d < bestDist) {
			best, bestDist = e, d
		}
	}
	return best, bestDist >= 0
}

// known informa se a loteria tem horários no catálogo
func (g *Gate) known(ref string) bool {
	if g.Catalog == nil {
		return false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		_, ok := g.Catalog.Resolve(ref)
		return ok
	}
	return len(g.Catalog.ByName(draw.LotteryName(g.Aliases, g.Catalog, ref))) > 0
}

// IsDrawFinal: dia sem sorteio -> false; dia passado -> true;
// hoje -> só após o fechamento real; futuro -> false.
// Loteria sem dados de horário libera. Loteria conhecida com horário que não
// corresponde a nenhuma extração só libera em dia passado.
func (g *Gate) IsDrawFinal(ref, date, recordedTime string) bool {
	day, err := time.ParseInLocation("2006-01-02", date, g.Loc)
	if err != nil {
		return !g.known(ref)
	}
	now := g.Now().In(g.Loc)
	today := now.Format("2006-01-02")

	e, ok := g.Lookup(ref, recordedTime)
	if !ok {
		if !g.known(ref) {
			return true
		}
		return date < today
	}

	if !lottery.DrawsOn(e, day.Weekday()) {
		return false
	}
	switch {
	case date < today:
		return true
	case date > today:
		return false
	}

	closeAt, err := lottery.Minutes(e.RealCloseTime)
	if err != nil {
		return true
	}
	return now.Hour()*60+now.Minute() >= closeAt
}
