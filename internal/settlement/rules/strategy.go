package rules

import (
	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/shopspring/decimal"
)

// Match identifica o prêmio (posição 1-based + milhar) que bateu com o palpite
type Match struct {
	Position int    `json:"position"`
	Number   string `json:"number"`
}

type hitFunc func(r InstantResult, g Guess, from, to int) (int, []Match)

// strategy concentra a regra de uma modalidade: conferência, combinações e aridade
type strategy struct {
	family   Family
	arity    int // grupos, dígitos ou mínimo de dezenas
	maxArity int
	fixed    [2]int // intervalo fixo (passe 1-2); zero = usa o da aposta
	capTo    int    // última posição válida (seco = 5); zero = sem limite
	hit      hitFunc
	combos   func(g Guess) int
	scale    func(g Guess) decimal.Decimal
}

func one(Guess) int { return 1 }

func unitScale(Guess) decimal.Decimal { return decimal.NewFromInt(1) }

// registry é montado uma vez; o calculador só consulta
var registry = map[Modality]strategy{
	Grupo:          groupStrategy(1),
	DuplaGrupo:     groupStrategy(2),
	TernoGrupo:     groupStrategy(3),
	QuadraGrupo:    groupStrategy(4),
	QuinaGrupo:     groupStrategy(5),
	TernoGrupoSeco: withCap(groupStrategy(3), 5),

	Passe:        passeStrategy(false),
	PasseVaiEVem: passeStrategy(true),

	Dezena:           numberStrategy(2, false),
	Centena:          numberStrategy(3, false),
	Milhar:           numberStrategy(4, false),
	DezenaInvertida:  numberStrategy(2, true),
	CentenaInvertida: numberStrategy(3, true),
	MilharInvertida:  numberStrategy(4, true),
	MilharCentena: {
		family: FamilyNumber, arity: 4, maxArity: 4,
		hit: hitMilharCentena, combos: one, scale: unitScale,
	},

	DuqueDezena:  dezenaStrategy(2, 2, false),
	TernoDezena:  dezenaStrategy(3, 3, false),
	QuadraDezena: dezenaStrategy(4, 4, false),
	DuqueDezenaEMD: {
		family: FamilyDezena, arity: 1, maxArity: 1,
		hit: hitDezenaPerPosition, combos: one, scale: unitScale,
	},
	TernoDezenaEMD: dezenaStrategy(3, 3, true),
	Dezeninha: {
		family: FamilyDezena, arity: 3, maxArity: 5,
		hit: dezenaSubset(false), combos: one, scale: dezeninhaScale,
	},
}

func groupStrategy(n int) strategy {
	return strategy{family: FamilyGroup, arity: n, maxArity: n, hit: hitAllGroups, combos: one, scale: unitScale}
}

func withCap(s strategy, to int) strategy {
	s.capTo = to
	return s
}

func passeStrategy(bothWays bool) strategy {
	return strategy{
		family: FamilyGroup, arity: 2, maxArity: 2, fixed: [2]int{1, 2},
		hit: hitPasse(bothWays), combos: one, scale: unitScale,
	}
}

func numberStrategy(width int, inverted bool) strategy {
	s := strategy{family: FamilyNumber, arity: width, maxArity: width, hit: hitNumber(width, inverted), combos: one, scale: unitScale}
	if inverted {
		s.combos = func(g Guess) int { return len(bicho.DistinctPermutations(g.(NumberGuess).Digits)) }
	}
	return s
}

func dezenaStrategy(lo, hi int, emd bool) strategy {
	return strategy{family: FamilyDezena, arity: lo, maxArity: hi, hit: dezenaSubset(emd), combos: one, scale: unitScale}
}

// dezeninha: 3 dezenas = 1x, 4 = 10x, 5 = 100x a odd base
func dezeninhaScale(g Guess) decimal.Decimal {
	n := len(g.(DezenaGuess).Dezenas)
	switch n {
	case 4:
		return decimal.NewFromInt(10)
	case 5:
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(1)
}

// effectiveRange aplica intervalo fixo e limite da modalidade
func (s strategy) effectiveRange(from, to int) (int, int) {
	if s.fixed[0] != 0 {
		return s.fixed[0], s.fixed[1]
	}
	if s.capTo > 0 && to > s.capTo {
		to = s.capTo
	}
	return from, to
}

// positions é o divisor da odd; passe não divide
func (s strategy) positions(from, to int) int {
	if s.fixed[0] != 0 || to < from {
		return 1
	}
	return to - from + 1
}

// grupo(s): todos os grupos apostados precisam aparecer no intervalo; vale 1 acerto
func hitAllGroups(r InstantResult, g Guess, from, to int) (int, []Match) {
	var matches []Match
	for _, want := range g.(GroupGuess).Groups {
		found := false
		for pos := from; pos <= to && pos <= len(r.Groups); pos++ {
			if r.Groups[pos-1] == want {
				matches = append(matches, Match{Position: pos, Number: r.Prizes[pos-1]})
				found = true
				break
			}
		}
		if !found {
			return 0, nil
		}
	}
	return 1, matches
}

// passe: 1º grupo na primeira posição do intervalo e o 2º numa posição posterior
func hitPasse(bothWays bool) hitFunc {
	return func(r InstantResult, g Guess, from, to int) (int, []Match) {
		groups := g.(GroupGuess).Groups
		try := func(first, second int) []Match {
			if from > len(r.Groups) || r.Groups[from-1] != first {
				return nil
			}
			for pos := from + 1; pos <= to && pos <= len(r.Groups); pos++ {
				if r.Groups[pos-1] == second {
					return []Match{
						{Position: from, Number: r.Prizes[from-1]},
						{Position: pos, Number: r.Prizes[pos-1]},
					}
				}
			}
			return nil
		}
		if m := try(groups[0], groups[1]); m != nil {
			return 1, m
		}
		if bothWays {
			if m := try(groups[1], groups[0]); m != nil {
				return 1, m
			}
		}
		return 0, nil
	}
}

// número: compara o sufixo de cada prêmio do intervalo; cada posição que bate conta 1 acerto
func hitNumber(width int, inverted bool) hitFunc {
	return func(r InstantResult, g Guess, from, to int) (int, []Match) {
		digits := g.(NumberGuess).Digits
		candidates := map[string]bool{digits: true}
		if inverted {
			for _, p := range bicho.DistinctPermutations(digits) {
				candidates[p] = true
			}
		}
		hits := 0
		var matches []Match
		for pos := from; pos <= to && pos <= len(r.Prizes); pos++ {
			if candidates[bicho.Suffix(r.Prizes[pos-1], width)] {
				hits++
				matches = append(matches, Match{Position: pos, Number: r.Prizes[pos-1]})
			}
		}
		return hits, matches
	}
}

// milhar/centena: vale a milhar inteira ou os 3 últimos dígitos
func hitMilharCentena(r InstantResult, g Guess, from, to int) (int, []Match) {
	digits := g.(NumberGuess).Digits
	centena := bicho.Suffix(digits, 3)
	hits := 0
	var matches []Match
	for pos := from; pos <= to && pos <= len(r.Prizes); pos++ {
		p := r.Prizes[pos-1]
		if p == digits || bicho.Suffix(p, 3) == centena {
			hits++
			matches = append(matches, Match{Position: pos, Number: p})
		}
	}
	return hits, matches
}

// duque EMD: a dezena apostada precisa estar entre as dezenas EMD de cada prêmio
func hitDezenaPerPosition(r InstantResult, g Guess, from, to int) (int, []Match) {
	want := g.(DezenaGuess).Dezenas[0]
	hits := 0
	var matches []Match
	for pos := from; pos <= to && pos <= len(r.Prizes); pos++ {
		for _, d := range bicho.EMD(r.Prizes[pos-1]) {
			if d == want {
				hits++
				matches = append(matches, Match{Position: pos, Number: r.Prizes[pos-1]})
				break
			}
		}
	}
	return hits, matches
}

// dezenaSubset: todas as dezenas apostadas precisam sair no intervalo.
// emd usa as três dezenas de cada milhar; sem emd vale só a dezena final.
func dezenaSubset(emd bool) hitFunc {
	return func(r InstantResult, g Guess, from, to int) (int, []Match) {
		found := map[int]int{} // dezena -> primeira posição
		for pos := from; pos <= to && pos <= len(r.Prizes); pos++ {
			var ds []int
			if emd {
				e := bicho.EMD(r.Prizes[pos-1])
				ds = e[:]
			} else {
				ds = []int{bicho.Dezena(r.Prizes[pos-1])}
			}
			for _, d := range ds {
				if _, ok := found[d]; !ok {
					found[d] = pos
				}
			}
		}

		var matches []Match
		for _, want := range g.(DezenaGuess).Dezenas {
			pos, ok := found[want]
			if !ok {
				return 0, nil
			}
			matches = append(matches, Match{Position: pos, Number: r.Prizes[pos-1]})
		}
		return 1, matches
	}
}
