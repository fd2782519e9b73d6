package rules

import (
	"fmt"
	"math/rand/v2"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/shopspring/decimal"
)

// MaxPositions é o número de prêmios de uma extração
const MaxPositions = 7

// InstantResult é a lista ordenada de milhares (índice 0 = 1º prêmio) e seus grupos
type InstantResult struct {
	Prizes []string `json:"prizes"`
	Groups []int    `json:"groups"`
}

// NewInstantResult canoniza os números (4 dígitos) e deriva os grupos
func NewInstantResult(numbers []string) (InstantResult, error) {
	if len(numbers) > MaxPositions {
		numbers = numbers[:MaxPositions]
	}
	r := InstantResult{Prizes: make([]string, 0, len(numbers)), Groups: make([]int, 0, len(numbers))}
	for i, raw := range numbers {
		n, ok := bicho.Pad4(raw)
		if !ok {
			return InstantResult{}, fmt.Errorf("prize %d: invalid number %q", i+1, raw)
		}
		r.Prizes = append(r.Prizes, n)
		r.Groups = append(r.Groups, bicho.GroupOf(n))
	}
	return r, nil
}

// RandomInstantResult sorteia n milhares (sorteio instantâneo / simulador)
func RandomInstantResult(rng *rand.Rand, n int) InstantResult {
	r := InstantResult{Prizes: make([]string, n), Groups: make([]int, n)}
	for i := 0; i < n; i++ {
		r.Prizes[i] = fmt.Sprintf("%04d", rng.IntN(10000))
		r.Groups[i] = bicho.GroupOf(r.Prizes[i])
	}
	return r
}

// Input é tudo que o cálculo de uma aposta precisa
type Input struct {
	Result   InstantResult
	Modality Modality
	Guesses  []Guess
	PosFrom  int
	PosTo    int
	Stake    decimal.Decimal
	Division Division
}

// GuessOutcome guarda a conferência de um palpite; Prize não é arredondado
type GuessOutcome struct {
	Guess         Guess
	Hits          int
	Combinations  int
	StakePerGuess decimal.Decimal
	Odds          decimal.Decimal
	BaseOdds      decimal.Decimal
	Prize         decimal.Decimal
	Matches       []Match
}

// FirstMatch é o primeiro prêmio do intervalo que bateu com o palpite
func (g GuessOutcome) FirstMatch() (Match, bool) {
	if len(g.Matches) == 0 {
		return Match{}, false
	}
	return g.Matches[0], true
}

// Outcome é o resultado da conferência de uma aposta
type Outcome struct {
	Modality Modality
	PosFrom  int
	PosTo    int
	Hits     int
	Total    decimal.Decimal // arredondado em 2 casas
	Guesses  []GuessOutcome
}

// Won informa se algum palpite acertou
func (o Outcome) Won() bool { return o.Hits > 0 && o.Total.IsPositive() }

// Retotal soma os prêmios dos palpites e arredonda uma única vez
func (o *Outcome) Retotal() {
	sum := decimal.Zero
	hits := 0
	for _, g := range o.Guesses {
		sum = sum.Add(g.Prize)
		hits += g.Hits
	}
	o.Hits = hits
	o.Total = sum.Round(2)
}

// StakePerGuess aplica a regra de divisão
func StakePerGuess(stake decimal.Decimal, guesses int, div Division) decimal.Decimal {
	if div == PerGuess || guesses <= 1 {
		return stake
	}
	return stake.Div(decimal.NewFromInt(int64(guesses)))
}

// Calculator confere palpites e calcula prêmios com a tabela de odds
type Calculator struct {
	Odds *OddsTable
}

func NewCalculator(odds *OddsTable) *Calculator {
	if odds == nil {
		odds = DefaultOdds()
	}
	return &Calculator{Odds: odds}
}

// ValidateRange confere 1 <= from <= to <= 7
func ValidateRange(from, to int) error {
	if from < 1 || to > MaxPositions || from > to {
		return fmt.Errorf("%w: position range %d-%d", ErrInvalidGuess, from, to)
	}
	return nil
}

// Compute confere cada palpite de forma independente e soma os prêmios
func (c *Calculator) Compute(in Input) (Outcome, error) {
	s, ok := registry[in.Modality]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownModality, in.Modality)
	}
	if err := ValidateRange(in.PosFrom, in.PosTo); err != nil {
		return Outcome{}, err
	}
	if len(in.Guesses) == 0 {
		return Outcome{}, fmt.Errorf("%w: no guesses", ErrInvalidGuess)
	}
	for _, g := range in.Guesses {
		if err := Validate(in.Modality, g); err != nil {
			return Outcome{}, err
		}
	}

	odds, err := c.Odds.Lookup(in.Modality, in.PosFrom, in.PosTo)
	if err != nil {
		return Outcome{}, err
	}
	base, err := c.Odds.Base(in.Modality, in.PosFrom, in.PosTo)
	if err != nil {
		return Outcome{}, err
	}

	from, to := s.effectiveRange(in.PosFrom, in.PosTo)
	perGuess := StakePerGuess(in.Stake, len(in.Guesses), in.Division)

	out := Outcome{Modality: in.Modality, PosFrom: in.PosFrom, PosTo: in.PosTo}
	for _, g := range in.Guesses {
		hits, matches := 0, []Match(nil)
		if from <= to {
			hits, matches = s.hit(in.Result, g, from, to)
		}
		combos := s.combos(g)
		scale := s.scale(g)

		gOdds := odds.Mul(scale)
		prize := decimal.Zero
		if hits > 0 {
			prize = perGuess.
				Div(decimal.NewFromInt(int64(combos))).
				Mul(gOdds).
				Mul(decimal.NewFromInt(int64(hits)))
		}

		out.Guesses = append(out.Guesses, GuessOutcome{
			Guess:         g,
			Hits:          hits,
			Combinations:  combos,
			StakePerGuess: perGuess,
			Odds:          gOdds,
			BaseOdds:      base.Mul(scale),
			Prize:         prize,
			Matches:       matches,
		})
	}
	out.Retotal()
	return out, nil
}

// ComputePrize é a forma direta do cálculo: valor já por palpite, sem divisão
func (c *Calculator) ComputePrize(result InstantResult, m Modality, guesses []Guess, from, to int, stakePerGuess decimal.Decimal) (int, decimal.Decimal, error) {
	out, err := c.Compute(Input{
		Result:   result,
		Modality: m,
		Guesses:  guesses,
		PosFrom:  from,
		PosTo:    to,
		Stake:    stakePerGuess,
		Division: PerGuess,
	})
	if err != nil {
		return 0, decimal.Zero, err
	}
	return out.Hits, out.Total, nil
}
