package draw

import (
	"testing"

	"github.com/radieske/bicho-settlement-engine/internal/lottery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAliasResolve(t *testing.T) {
	aliases := DefaultAliases()
	cases := []struct {
		in        string
		canonical string
		rank      Rank
	}{
		{"PT RIO", "PT RIO", RankExact},
		{"PT-SP/Bandeirantes", "PT SP", RankExact},
		{"Look Goiás", "LOOK", RankExact},
		{"Paraíba", "LOTEP", RankExact},
		{"Resultado LOTEP 10h45", "LOTEP", RankContains},
		{"Loteria Federal do Brasil", "FEDERAL", RankContains},
		{"bandeirantes", "PT SP", RankContains},
		{"Extração Maluca", "PT BAHIA", RankKeyword},
	}
	for _, c := range cases {
		got, rank, ok := aliases.Resolve(c.in)
		require.True(t, ok, c.in)
		assert.Equal(t, c.canonical, got, c.in)
		assert.Equal(t, c.rank, rank, c.in)
	}

	for _, unknown := range []string{"", "PT", "Loteria da Lua"} {
		_, _, ok := aliases.Resolve(unknown)
		assert.False(t, ok, unknown)
	}
}

func TestAliasSharedTokens(t *testing.T) {
	aliases := NewAliasTable([]Alias{
		{Canonical: "LOTERIA CENTRAL", Names: []string{"grande capital noturna"}},
		{Canonical: "INTERIOR", Names: []string{"interior paulista"}},
	})
	got, rank, ok := aliases.Resolve("Noturna da Capital")
	require.True(t, ok)
	assert.Equal(t, "LOTERIA CENTRAL", got)
	assert.Equal(t, RankTokens, rank)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "pt sp bandeirantes", Fold("PT-SP / Bandeirantes"))
	assert.Equal(t, "look goias", Fold("  LOOK   Goiás "))
	assert.Equal(t, "ceara", Fold("Ceará"))
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(DefaultAliases(), lottery.DefaultCatalog(), zap.NewNop())
}

func TestRemapTime(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, "09:20", n.RemapTime("PT RIO", "09:28"))
	assert.Equal(t, "09:20", n.RemapTime("PT RIO", "09:05"))
	assert.Equal(t, "11:20", n.RemapTime("PT RIO", "11h00"))
	assert.Equal(t, "12:40", n.RemapTime("PT RIO", "12:40"))
	assert.Equal(t, "07:20", n.RemapTime("LOOK", "06:55"))
	assert.Equal(t, "sem hora", n.RemapTime("LOOK", "sem hora"))
}

func TestRemapTimeClosestCloseWins(t *testing.T) {
	n := NewNormalizer(DefaultAliases(), lottery.NewCatalog([]lottery.Extraction{
		{ID: 1, Name: "PT RIO", Time: "09:50", RealCloseTime: "10:00", Days: "Todos", Active: true},
		{ID: 2, Name: "PT RIO", Time: "10:10", RealCloseTime: "10:20", Days: "Todos", Active: true},
	}), nil)
	assert.Equal(t, "09:50", n.RemapTime("PT RIO", "09:55"))
	assert.Equal(t, "10:10", n.RemapTime("PT RIO", "10:05"))
}

func TestNormalizeGroupsAndPassesThrough(t *testing.T) {
	n := newTestNormalizer()
	raw := []RawResult{
		{Lottery: "PT Rio de Janeiro", Time: "09:28", Date: "14/01/2026", Position: 2, Number: "1234", Source: "feed"},
		{Lottery: "pt-rio", Time: "09:20", Date: "2026-01-14", Position: 1, Number: "4732", Source: "feed"},
		{Lottery: "PT RIO", Time: "09:20", Date: "2026-01-14T12:00:00Z", Position: 1, Number: "9999", Source: "feed"},
		{Lottery: "Loteria da Lua", Time: "10:00", Date: "2026-01-14", Position: 1, Number: "77", Source: "feed"},
		{Lottery: "PT RIO", Time: "09:20", Date: "2026-01-14", Position: 3, Number: "", Source: "feed"},
	}
	out := n.Normalize(raw)
	require.Len(t, out, 2)

	lua := out[0]
	assert.Equal(t, "LOTERIA DA LUA", lua.Lottery)
	assert.False(t, lua.Resolved)
	assert.Equal(t, []string{"0077"}, lua.Numbers())

	rio := out[1]
	assert.Equal(t, "PT RIO", rio.Lottery)
	assert.Equal(t, "09:20", rio.DrawTime)
	assert.Equal(t, "2026-01-14", rio.Date)
	assert.True(t, rio.Resolved)
	assert.Equal(t, []string{"4732", "1234"}, rio.Numbers())
	assert.Equal(t, []int{8, 9}, rio.Groups())
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2026-01-14", NormalizeDate("2026-01-14"))
	assert.Equal(t, "2026-01-14", NormalizeDate("2026-01-14T03:00:00.000Z"))
	assert.Equal(t, "2026-01-14", NormalizeDate("Quarta, 14/01/2026"))
	assert.Equal(t, "ontem", NormalizeDate("ontem"))
}

func TestSortPrizesDedupesAndTruncates(t *testing.T) {
	var in []Prize
	for pos := 9; pos >= 1; pos-- {
		in = append(in, Prize{Position: pos, Number: "0000"})
	}
	in = append(in, Prize{Position: 1, Number: "1111"})
	out := SortPrizes(in)
	require.Len(t, out, 7)
	assert.Equal(t, 1, out[0].Position)
	assert.Equal(t, "0000", out[0].Number)
	assert.Equal(t, 7, out[6].Position)
}
