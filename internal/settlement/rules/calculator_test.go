package rules

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grupos: 8, 9, 20, 23, 9, 20, 6
var drawB = []string{"4732", "1234", "5580", "7790", "0033", "9980", "1021"}

func mustResult(t *testing.T, nums []string) InstantResult {
	t.Helper()
	r, err := NewInstantResult(nums)
	require.NoError(t, err)
	return r
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewInstantResultDerivesGroups(t *testing.T) {
	r := mustResult(t, drawB)
	assert.Equal(t, []int{8, 9, 20, 23, 9, 20, 6}, r.Groups)

	r = mustResult(t, []string{"22", "1º 0100"})
	assert.Equal(t, []string{"0022", "0100"}, r.Prizes)
	assert.Equal(t, []int{6, 25}, r.Groups)
}

func TestMilharFullRange(t *testing.T) {
	c := NewCalculator(nil)
	out, err := c.Compute(Input{
		Result: mustResult(t, drawB), Modality: Milhar,
		Guesses: []Guess{NumberGuess{Digits: "4732"}},
		PosFrom: 1, PosTo: 7, Stake: dec("10"), Division: SplitEvenly,
	})
	require.NoError(t, err)

	odds, err := c.Odds.Lookup(Milhar, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Hits)
	assert.Equal(t, dec("10").Mul(odds).Round(2).StringFixed(2), out.Total.StringFixed(2))
	assert.Equal(t, "7142.86", out.Total.StringFixed(2))
	assert.True(t, out.Won())

	m, ok := out.Guesses[0].FirstMatch()
	require.True(t, ok)
	assert.Equal(t, Match{Position: 1, Number: "4732"}, m)
}

func TestGrupoPresentAndAbsent(t *testing.T) {
	c := NewCalculator(nil)
	in := Input{
		Result: mustResult(t, drawB), Modality: Grupo,
		Guesses: []Guess{GroupGuess{Groups: []int{8}}},
		PosFrom: 1, PosTo: 7, Stake: dec("10"), Division: SplitEvenly,
	}
	out, err := c.Compute(in)
	require.NoError(t, err)
	odds, _ := c.Odds.Lookup(Grupo, 1, 7)
	assert.Equal(t, 1, out.Hits)
	assert.Equal(t, dec("10").Mul(odds).Round(2).StringFixed(2), out.Total.StringFixed(2))

	// sem o grupo 8
	in.Result = mustResult(t, []string{"1234", "5580", "7790", "0033", "9980", "1021", "0065"})
	out, err = c.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Hits)
	assert.True(t, out.Total.IsZero())
	assert.False(t, out.Won())
}

func TestSinglePositionOnlyMatchesFirstPrize(t *testing.T) {
	c := NewCalculator(nil)
	for _, guess := range []string{"1234", "5580", "1021"} {
		hits, total, err := c.ComputePrize(mustResult(t, drawB), Milhar, []Guess{NumberGuess{Digits: guess}}, 1, 1, dec("10"))
		require.NoError(t, err)
		assert.Equal(t, 0, hits, guess)
		assert.True(t, total.IsZero(), guess)
	}
	hits, total, err := c.ComputePrize(mustResult(t, drawB), Milhar, []Guess{NumberGuess{Digits: "4732"}}, 1, 1, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, "50000.00", total.StringFixed(2))
}

func TestSplitEvenlyConservation(t *testing.T) {
	c := NewCalculator(nil)
	guesses := []Guess{GroupGuess{Groups: []int{8}}, GroupGuess{Groups: []int{20}}, GroupGuess{Groups: []int{1}}}

	split, err := c.Compute(Input{
		Result: mustResult(t, drawB), Modality: Grupo, Guesses: guesses,
		PosFrom: 1, PosTo: 5, Stake: dec("9"), Division: SplitEvenly,
	})
	require.NoError(t, err)

	each, err := c.Compute(Input{
		Result: mustResult(t, drawB), Modality: Grupo, Guesses: guesses,
		PosFrom: 1, PosTo: 5, Stake: dec("3"), Division: PerGuess,
	})
	require.NoError(t, err)

	assert.Equal(t, each.Total.StringFixed(2), split.Total.StringFixed(2))
	assert.Equal(t, 2, split.Hits)
}

func TestInvertidaSpreadsStakeAcrossPermutations(t *testing.T) {
	c := NewCalculator(nil)
	out, err := c.Compute(Input{
		Result: mustResult(t, drawB), Modality: MilharInvertida,
		Guesses: []Guess{NumberGuess{Digits: "2347"}},
		PosFrom: 1, PosTo: 1, Stake: dec("10"), Division: SplitEvenly,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, out.Guesses[0].Combinations)
	assert.Equal(t, 1, out.Hits)
	assert.Equal(t, "83.33", out.Total.StringFixed(2))

	out, err = c.Compute(Input{
		Result: mustResult(t, drawB), Modality: DezenaInvertida,
		Guesses: []Guess{NumberGuess{Digits: "23"}},
		PosFrom: 1, PosTo: 1, Stake: dec("10"), Division: SplitEvenly,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Guesses[0].Combinations)
	assert.Equal(t, 1, out.Hits)
}

func TestMilharCentenaMatchesEitherWidth(t *testing.T) {
	c := NewCalculator(nil)
	hits, _, err := c.ComputePrize(mustResult(t, drawB), MilharCentena, []Guess{NumberGuess{Digits: "9732"}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	hits, _, err = c.ComputePrize(mustResult(t, drawB), MilharCentena, []Guess{NumberGuess{Digits: "4732"}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestPasseOrder(t *testing.T) {
	c := NewCalculator(nil)
	r := mustResult(t, drawB)

	hits, total, err := c.ComputePrize(r, Passe, []Guess{GroupGuess{Groups: []int{8, 9}}}, 1, 7, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, "3000.00", total.StringFixed(2))

	hits, _, err = c.ComputePrize(r, Passe, []Guess{GroupGuess{Groups: []int{9, 8}}}, 1, 7, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)

	hits, _, err = c.ComputePrize(r, PasseVaiEVem, []Guess{GroupGuess{Groups: []int{9, 8}}}, 1, 7, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestDezenaCompositions(t *testing.T) {
	c := NewCalculator(nil)
	r := mustResult(t, drawB)

	hits, _, err := c.ComputePrize(r, DuqueDezenaEMD, []Guess{DezenaGuess{Dezenas: []int{47}}}, 1, 1, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	hits, _, err = c.ComputePrize(r, TernoDezenaEMD, []Guess{DezenaGuess{Dezenas: []int{47, 73, 12}}}, 1, 2, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	// sem EMD só vale a dezena final: 47 não sai como dezena
	hits, _, err = c.ComputePrize(r, DuqueDezena, []Guess{DezenaGuess{Dezenas: []int{47, 34}}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)

	hits, _, err = c.ComputePrize(r, QuadraDezena, []Guess{DezenaGuess{Dezenas: []int{32, 34, 80, 90}}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestDezeninhaScalesWithCount(t *testing.T) {
	c := NewCalculator(nil)
	r := mustResult(t, drawB)

	_, three, err := c.ComputePrize(r, Dezeninha, []Guess{DezenaGuess{Dezenas: []int{32, 34, 80}}}, 1, 7, dec("7"))
	require.NoError(t, err)
	assert.Equal(t, "15.00", three.StringFixed(2))

	_, four, err := c.ComputePrize(r, Dezeninha, []Guess{DezenaGuess{Dezenas: []int{32, 34, 80, 90}}}, 1, 7, dec("7"))
	require.NoError(t, err)
	assert.Equal(t, "150.00", four.StringFixed(2))
}

func TestTernoGrupoSecoStopsAtFifth(t *testing.T) {
	c := NewCalculator(nil)
	r := mustResult(t, drawB)

	hits, _, err := c.ComputePrize(r, TernoGrupoSeco, []Guess{GroupGuess{Groups: []int{8, 9, 6}}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)

	hits, total, err := c.ComputePrize(r, TernoGrupoSeco, []Guess{GroupGuess{Groups: []int{8, 9, 20}}}, 1, 7, dec("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, "30.00", total.StringFixed(2))
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	c := NewCalculator(nil)
	r := mustResult(t, drawB)

	_, _, err := c.ComputePrize(r, DuplaGrupo, []Guess{GroupGuess{Groups: []int{8}}}, 1, 7, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidGuess)

	_, _, err = c.ComputePrize(r, Milhar, []Guess{GroupGuess{Groups: []int{8}}}, 1, 7, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidGuess)

	_, _, err = c.ComputePrize(r, Milhar, []Guess{NumberGuess{Digits: "4732"}}, 3, 2, dec("1"))
	assert.ErrorIs(t, err, ErrInvalidGuess)

	_, _, err = c.ComputePrize(r, Modality("LOTO"), []Guess{NumberGuess{Digits: "4732"}}, 1, 1, dec("1"))
	assert.ErrorIs(t, err, ErrUnknownModality)
}

func TestComputeIsDeterministic(t *testing.T) {
	c := NewCalculator(nil)
	rng := rand.New(rand.NewPCG(7, 7))
	r := RandomInstantResult(rng, 7)
	in := Input{
		Result: r, Modality: CentenaInvertida,
		Guesses: []Guess{NumberGuess{Digits: r.Prizes[2][1:]}},
		PosFrom: 1, PosTo: 7, Stake: dec("2.50"), Division: PerGuess,
	}
	first, err := c.Compute(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Compute(in)
		require.NoError(t, err)
		assert.Equal(t, first.Total.String(), again.Total.String())
		assert.Equal(t, first.Hits, again.Hits)
	}
	assert.GreaterOrEqual(t, first.Hits, 1)
}
