// Package quotation resolve cotações especiais por milhar/centena e ajusta o prêmio.
package quotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/bicho"
	"github.com/radieske/bicho-settlement-engine/internal/settlement/rules"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidQuotation = errors.New("invalid quotation")

// Kind é o tipo do número cotado
type Kind string

const (
	KindMilhar  Kind = "milhar"
	KindCentena Kind = "centena"
)

// Width devolve a quantidade de dígitos do tipo
func (k Kind) Width() int {
	if k == KindCentena {
		return 3
	}
	return 4
}

// Quotation é a cotação especial de um número. Sem multiplicador, a regra é dividir o prêmio por 6.
type Quotation struct {
	ID         string              `json:"id"`
	Kind       Kind                `json:"kind"`
	Number     string              `json:"number"`
	Multiplier decimal.NullDecimal `json:"multiplier"`
	Active     bool                `json:"active"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Validate confere tipo e largura do número
func (q Quotation) Validate() error {
	if q.Kind != KindMilhar && q.Kind != KindCentena {
		return fmt.Errorf("%w: kind %q", ErrInvalidQuotation, q.Kind)
	}
	if len(q.Number) != q.Kind.Width() || strings.Trim(q.Number, "0123456789") != "" {
		return fmt.Errorf("%w: %s number %q", ErrInvalidQuotation, q.Kind, q.Number)
	}
	if q.Multiplier.Valid && !q.Multiplier.Decimal.IsPositive() {
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidQuotation)
	}
	return nil
}

// Store é a leitura de cotações usada pelo resolver
type Store interface {
	Find(ctx context.Context, kind Kind, number string) (Quotation, bool, error)
}

// MemoryStore guarda cotações em memória (testes e simulador)
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Quotation
}

func NewMemoryStore(qs ...Quotation) *MemoryStore {
	s := &MemoryStore{items: make(map[string]Quotation)}
	for _, q := range qs {
		s.Put(q)
	}
	return s
}

func (s *MemoryStore) Put(q Quotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[string(q.Kind)+":"+q.Number] = q
}

func (s *MemoryStore) Find(_ context.Context, kind Kind, number string) (Quotation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.items[string(kind)+":"+number]
	return q, ok, nil
}

// Applied descreve a cotação aplicada a um prêmio
type Applied struct {
	Kind       Kind                `json:"kind"`
	Number     string              `json:"number"`
	Multiplier decimal.NullDecimal `json:"multiplier"`
}

// Resolver aplica a cotação especial ao prêmio do número que efetivamente ganhou
type Resolver struct {
	Store Store
	Log   *zap.Logger
}

func NewResolver(store Store, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{Store: store, Log: log}
}

// kinds consultados por modalidade, em ordem de precedência
func lookupOrder(m rules.Modality) []Kind {
	switch m {
	case rules.Milhar:
		return []Kind{KindMilhar}
	case rules.Centena:
		return []Kind{KindCentena}
	case rules.MilharCentena:
		return []Kind{KindMilhar, KindCentena}
	}
	return nil
}

// Apply devolve o prêmio ajustado. Com multiplicador explícito ele substitui a odd da tabela:
// prêmio × mult / tableOdds. Sem multiplicador: prêmio / 6. Sem cotação: prêmio inalterado.
func (r *Resolver) Apply(ctx context.Context, m rules.Modality, winningNumber string, prize, tableOdds decimal.Decimal) (decimal.Decimal, *Applied, error) {
	kinds := lookupOrder(m)
	if len(kinds) == 0 || prize.IsZero() {
		return prize, nil, nil
	}
	number, ok := bicho.Pad4(winningNumber)
	if !ok {
		return prize, nil, nil
	}

	for _, k := range kinds {
		key := bicho.Suffix(number, k.Width())
		q, found, err := r.Store.Find(ctx, k, key)
		if err != nil {
			return prize, nil, fmt.Errorf("find %s quotation %s: %w", k, key, err)
		}
		if !found || !q.Active {
			continue
		}

		applied := &Applied{Kind: k, Number: key, Multiplier: q.Multiplier}
		if q.Multiplier.Valid && q.Multiplier.Decimal.IsPositive() {
			if !tableOdds.IsPositive() {
				return prize, nil, fmt.Errorf("%w: table odds must be positive", rules.ErrNoOdds)
			}
			return prize.Mul(q.Multiplier.Decimal).Div(tableOdds), applied, nil
		}
		return prize.Div(decimal.NewFromInt(6)), applied, nil
	}
	return prize, nil, nil
}
