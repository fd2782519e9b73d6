package schedule

import (
	"testing"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"github.com/stretchr/testify/assert"
)

func gateAt(t *testing.T, local string) *Gate {
	t.Helper()
	loc := time.FixedZone("BRT", -3*60*60)
	now, err := time.ParseInLocation("2006-01-02 15:04", local, loc)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGate(lottery.DefaultCatalog(), draw.DefaultAliases(), loc)
	g.Now = func() time.Time { return now }
	return g
}

func TestIsDrawFinal(t *testing.T) {
	// 2026-01-14 é quarta-feira
	g := gateAt(t, "2026-01-14 09:25")

	cases := []struct {
		name, ref, date, time string
		want                  bool
	}{
		{"today before real close", "PT RIO", "2026-01-14", "09:20", false},
		{"today after real close", "LOOK", "2026-01-14", "07:20", true},
		{"past day", "PT RIO", "2026-01-13", "21:20", true},
		{"future day", "PT RIO", "2026-01-15", "09:20", false},
		{"by id", "1", "2026-01-14", "", false},
		{"unknown lottery", "LOTERIA DA LUA", "2026-01-20", "10:00", true},
		{"federal on monday never draws", "FEDERAL", "2026-01-12", "19:55", false},
		{"federal on past wednesday", "FEDERAL", "2026-01-07", "19:55", true},
		{"sunday blackout even in the past", "LOTEP", "2026-01-11", "10:45", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, g.IsDrawFinal(c.ref, c.date, c.time))
		})
	}
}

func TestIsDrawFinalUsesOperatingTimezone(t *testing.T) {
	// 02:00 UTC do dia 15 ainda é dia 14 em BRT
	loc := time.FixedZone("BRT", -3*60*60)
	g := NewGate(lottery.DefaultCatalog(), draw.DefaultAliases(), loc)
	g.Now = func() time.Time { return time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC) }

	assert.True(t, g.IsDrawFinal("PT RIO", "2026-01-14", "21:20"))
	assert.False(t, g.IsDrawFinal("PT RIO", "2026-01-15", "09:20"))
}

func TestIsDrawFinalResolvesAliases(t *testing.T) {
	g := gateAt(t, "2026-01-14 10:00")

	assert.False(t, g.IsDrawFinal("PT RIO", "2026-01-14", "21:20"))
	assert.False(t, g.IsDrawFinal("pt-rio", "2026-01-14", "21:20"))
	assert.False(t, g.IsDrawFinal("Rio de Janeiro", "2026-01-14", "21:20"))
	assert.True(t, g.IsDrawFinal("pt-rio", "2026-01-14", "09:20"))
}

func TestIsDrawFinalOffCatalogTime(t *testing.T) {
	g := gateAt(t, "2026-01-14 10:00")

	// 21:00 não existe; o rótulo mais próximo (21:20) ainda não fechou
	assert.False(t, g.IsDrawFinal("PT RIO", "2026-01-14", "21:00"))
	// sem extração a até 30min: só libera em dia passado
	assert.False(t, g.IsDrawFinal("PT RIO", "2026-01-14", "03:00"))
	assert.True(t, g.IsDrawFinal("PT RIO", "2026-01-13", "03:00"))
	assert.False(t, g.IsDrawFinal("pt-rio", "2026-01-15", "03:00"))
}

func TestLookup(t *testing.T) {
	g := NewGate(lottery.DefaultCatalog(), draw.DefaultAliases(), time.UTC)

	e, ok := g.Lookup("pt-sp/bandeirantes", "15:20")
	assert.True(t, ok)
	assert.Equal(t, 9, e.ID)

	e, ok = g.Lookup("PT SP", "15:05")
	assert.True(t, ok)
	assert.Equal(t, "15:20", e.Time)

	_, ok = g.Lookup("PT SP", "99:99")
	assert.False(t, ok)
	_, ok = g.Lookup("PT SP", "04:00")
	assert.False(t, ok)
}
