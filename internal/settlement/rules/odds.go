package rules

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

type oddsKey struct {
	modality Modality
	from, to int
}

// OddsTable resolve o multiplicador por (modalidade, posFrom, posTo).
// A odd base vale para uma posição; intervalos mais largos dividem a base
// pelo número de posições, exceto passe (fixo 1º-2º).
type OddsTable struct {
	mu        sync.RWMutex
	base      map[Modality]decimal.Decimal
	overrides map[oddsKey]decimal.Decimal
}

// DefaultOdds carrega a tabela padrão da banca
func DefaultOdds() *OddsTable {
	t := &OddsTable{
		base:      make(map[Modality]decimal.Decimal),
		overrides: make(map[oddsKey]decimal.Decimal),
	}
	for m, v := range map[Modality]int64{
		Grupo:            18,
		DuplaGrupo:       180,
		TernoGrupo:       1800,
		QuadraGrupo:      5000,
		QuinaGrupo:       10000,
		TernoGrupoSeco:   150,
		Passe:            300,
		PasseVaiEVem:     150,
		Dezena:           60,
		Centena:          600,
		Milhar:           5000,
		DezenaInvertida:  60,
		CentenaInvertida: 600,
		MilharInvertida:  200,
		MilharCentena:    3300,
		DuqueDezena:      300,
		TernoDezena:      5000,
		QuadraDezena:     300,
		DuqueDezenaEMD:   300,
		TernoDezenaEMD:   5000,
		Dezeninha:        15,
	} {
		t.base[m] = decimal.NewFromInt(v)
	}
	return t
}

// SetBase troca a odd de uma posição da modalidade
func (t *OddsTable) SetBase(m Modality, v decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.base[m] = v
}

// Set fixa a odd efetiva de um intervalo exato, sem divisão por posições
func (t *OddsTable) Set(m Modality, from, to int, v decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides[oddsKey{m, from, to}] = v
}

// Lookup devolve a odd efetiva do intervalo (já dividida pelas posições)
func (t *OddsTable) Lookup(m Modality, from, to int) (decimal.Decimal, error) {
	s, ok := registry[m]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownModality, m)
	}
	from, to = s.effectiveRange(from, to)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.overrides[oddsKey{m, from, to}]; ok {
		return v, nil
	}
	base, ok := t.base[m]
	if !ok || !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s %d-%d", ErrNoOdds, m, from, to)
	}
	return base.Div(decimal.NewFromInt(int64(s.positions(from, to)))), nil
}

// Base devolve a odd equivalente a uma posição para o intervalo.
// É a odd que uma cotação especial substitui.
func (t *OddsTable) Base(m Modality, from, to int) (decimal.Decimal, error) {
	s, ok := registry[m]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownModality, m)
	}
	from, to = s.effectiveRange(from, to)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.overrides[oddsKey{m, from, to}]; ok {
		return v.Mul(decimal.NewFromInt(int64(s.positions(from, to)))), nil
	}
	base, ok := t.base[m]
	if !ok || !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s %d-%d", ErrNoOdds, m, from, to)
	}
	return base, nil
}
