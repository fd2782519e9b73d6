// Package simulator gera sorteios fictícios para rodar a apuração localmente.
// Cada extração tem sorteio determinístico por (semente, data, id).
package simulator

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
)

// Draw é uma extração sorteada
type Draw struct {
	ExtractionID int                 `json:"extractionId"`
	Lottery      string              `json:"lottery"`
	Time         string              `json:"time"`
	Date         string              `json:"date"`
	Result       rules.InstantResult `json:"result"`
}

type Generator struct {
	Catalog *lottery.Catalog
	Seed    uint64
	Loc     *time.Location
	Now     func() time.Time
}

func NewGenerator(c *lottery.Catalog, seed uint64, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{Catalog: c, Seed: seed, Loc: loc, Now: time.Now}
}

// Draws devolve as extrações da data já encerradas (horário real de apuração passou)
func (g *Generator) Draws(date string) ([]Draw, error) {
	day, err := time.ParseInLocation("2006-01-02", date, g.Loc)
	if err != nil {
		return nil, err
	}
	now := g.Now().In(g.Loc)
	today := now.Format("2006-01-02")
	if date > today {
		return nil, nil
	}
	nowMin := now.Hour()*60 + now.Minute()

	var out []Draw
	for _, e := range g.Catalog.All() {
		if !e.Active || !lottery.DrawsOn(e, day.Weekday()) {
			continue
		}
		if date == today {
			closeAt, err := lottery.Minutes(e.RealCloseTime)
			if err != nil || nowMin < closeAt {
				continue
			}
		}
		out = append(out, Draw{
			ExtractionID: e.ID,
			Lottery:      e.Name,
			Time:         e.Time,
			Date:         date,
			Result:       rules.RandomInstantResult(g.rng(date, e.ID), rules.MaxPositions),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Lottery < out[j].Lottery
	})
	return out, nil
}

func (g *Generator) rng(date string, id int) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(date))
	_, _ = h.Write([]byte{byte(id), byte(id >> 8)})
	return rand.New(rand.NewPCG(g.Seed, h.Sum64()))
}
