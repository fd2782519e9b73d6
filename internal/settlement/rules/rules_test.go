package rules

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseModality(t *testing.T) {
	cases := map[string]Modality{
		"MILHAR_CENTENA":        MilharCentena,
		"milhar":                Milhar,
		"Milhar/Centena":        MilharCentena,
		"Passe vai":             Passe,
		"Passe  vai e vem":      PasseVaiEVem,
		"Duque de Dezena (EMD)": DuqueDezenaEMD,
		"Terno de Grupo Seco":   TernoGrupoSeco,
	}
	for in, want := range cases {
		got, err := ParseModality(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseModality("Loto")
	assert.ErrorIs(t, err, ErrUnknownModality)
}

func TestEveryModalityHasOdds(t *testing.T) {
	odds := DefaultOdds()
	for _, m := range Modalities {
		require.True(t, m.Valid(), m)
		v, err := odds.Lookup(m, 1, 5)
		require.NoError(t, err, m)
		assert.True(t, v.IsPositive(), m)
	}
}

func TestWiderRangesPayLess(t *testing.T) {
	odds := DefaultOdds()
	for _, m := range []Modality{Grupo, Dezena, Centena, Milhar, DuplaGrupo, DuqueDezenaEMD} {
		one, err := odds.Lookup(m, 1, 1)
		require.NoError(t, err)
		five, err := odds.Lookup(m, 1, 5)
		require.NoError(t, err)
		assert.True(t, five.LessThan(one), m)
	}
	// passe é fixo 1º-2º
	a, _ := odds.Lookup(Passe, 1, 1)
	b, _ := odds.Lookup(Passe, 1, 7)
	assert.True(t, a.Equal(b))
}

func TestOddsOverrideAndBase(t *testing.T) {
	odds := DefaultOdds()
	odds.Set(Milhar, 1, 5, dec("800"))

	v, err := odds.Lookup(Milhar, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "800", v.String())

	base, err := odds.Base(Milhar, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "4000", base.String())

	base, err = odds.Base(Milhar, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "5000", base.String())
}

func TestParsePosition(t *testing.T) {
	cases := map[string][2]int{
		"1st":      {1, 1},
		"1-5":      {1, 5},
		"1º-7º":    {1, 7},
		"7º":       {7, 7},
		"1º ao 5º": {1, 5},
		" 3 ":      {3, 3},
	}
	for in, want := range cases {
		from, to, err := ParsePosition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, [2]int{from, to}, in)
	}
	for _, bad := range []string{"8", "0-2", "5-1", "x"} {
		_, _, err := ParsePosition(bad)
		assert.ErrorIs(t, err, ErrInvalidGuess, bad)
	}
}

func TestDecodeBetData(t *testing.T) {
	t.Run("animal bets", func(t *testing.T) {
		p, err := DecodeBetData("", []byte(`{"betData":{"modalityName":"Dupla de Grupo","animalBets":[[8,9],[1,25]],"position":"1-5","amount":10,"divisionType":"each"}}`))
		require.NoError(t, err)
		assert.Equal(t, DuplaGrupo, p.Modality)
		assert.Equal(t, PerGuess, p.Division)
		assert.Equal(t, 1, p.PosFrom)
		assert.Equal(t, 5, p.PosTo)
		assert.Equal(t, []Guess{GroupGuess{Groups: []int{8, 9}}, GroupGuess{Groups: []int{1, 25}}}, p.Guesses)
		assert.Equal(t, "10", p.Stake.String())
	})

	t.Run("number bets with custom position", func(t *testing.T) {
		p, err := DecodeBetData(Centena, []byte(`{"numberBets":["12","345"],"position":"1st","customPosition":true,"customPositionValue":"1-3","divisionType":"all"}`))
		require.NoError(t, err)
		assert.Equal(t, []Guess{NumberGuess{Digits: "012"}, NumberGuess{Digits: "345"}}, p.Guesses)
		assert.Equal(t, 3, p.PosTo)
		assert.Equal(t, SplitEvenly, p.Division)
	})

	t.Run("numero apostado", func(t *testing.T) {
		p, err := DecodeBetData(TernoDezenaEMD, []byte(`{"numeroApostado":"12,23,34"}`))
		require.NoError(t, err)
		assert.Equal(t, []Guess{DezenaGuess{Dezenas: []int{12, 23, 34}}}, p.Guesses)
		assert.Zero(t, p.PosFrom)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{``, `{`, `{"animalBets":[]}`, `{"animalBets":[[8]],"position":"9"}`, `{"numberBets":["12345"]}`} {
			_, err := DecodeBetData(Milhar, []byte(raw))
			assert.Error(t, err, raw)
		}
		_, err := DecodeBetData(Grupo, []byte(`{"animalBets":[[26]]}`))
		assert.ErrorIs(t, err, ErrInvalidGuess)
	})
}

func TestOddsRepoApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT modality, pos_from, pos_to, multiplier\s+FROM odds_overrides`).
		WillReturnRows(sqlmock.NewRows([]string{"modality", "pos_from", "pos_to", "multiplier"}).
			AddRow("MILHAR", 1, 1, "4000").
			AddRow("LOTO", 1, 1, "10").
			AddRow("Grupo", 1, 5, "3.5"))

	odds := DefaultOdds()
	n, err := NewOddsRepo(db, zap.NewNop()).Apply(context.Background(), odds)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, _ := odds.Lookup(Milhar, 1, 1)
	assert.Equal(t, "4000", v.String())
	v, _ = odds.Lookup(Grupo, 1, 5)
	assert.Equal(t, "3.5", v.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRejectsSignedNumbers(t *testing.T) {
	for _, digits := range []string{"+12", "-12", " 12", "1_2"} {
		assert.ErrorIs(t, Validate(Centena, NumberGuess{Digits: digits}), ErrInvalidGuess, digits)
	}
	for _, digits := range []string{"+1", "-1"} {
		assert.ErrorIs(t, Validate(Dezena, NumberGuess{Digits: digits}), ErrInvalidGuess, digits)
	}
	require.NoError(t, Validate(Centena, NumberGuess{Digits: "012"}))

	_, err := ParseDezenas("+1,23")
	assert.ErrorIs(t, err, ErrInvalidGuess)
	ds, err := ParseDezenas("01,23")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 23}, ds)
}

func TestModalityNames(t *testing.T) {
	assert.Equal(t, []string{"milhar"}, Milhar.Names())
	assert.Equal(t, []string{"passe", "passe vai"}, Passe.Names())
	assert.Equal(t, []string{"milhar_centena", "milhar e centena", "milhar/centena"}, MilharCentena.Names())
	for _, m := range Modalities {
		for _, name := range m.Names() {
			got, err := ParseModality(name)
			require.NoError(t, err, name)
			assert.Equal(t, m, got, name)
		}
	}
}

func TestDecodePositionAndBetRange(t *testing.T) {
	from, to, err := DecodePosition([]byte(`{"betData":{"position":"1st","customPosition":true,"customPositionValue":"2-4"}}`))
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 4}, [2]int{from, to})

	from, to, err = DecodePosition([]byte(`{"amount":10}`))
	require.NoError(t, err)
	assert.Zero(t, from+to)

	_, _, err = DecodePosition([]byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidGuess)

	from, to = BetRange(2, 4, 1, 5)
	assert.Equal(t, [2]int{2, 4}, [2]int{from, to})
	from, to = BetRange(0, 0, 1, 5)
	assert.Equal(t, [2]int{1, 5}, [2]int{from, to})
	from, to = BetRange(0, 0, 0, 0)
	assert.Equal(t, [2]int{1, 1}, [2]int{from, to})
}
