// Package source busca resultados brutos de sorteio em fontes externas.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNoResults: nenhuma fonte devolveu resultado para a data
var ErrNoResults = errors.New("no draw results available")

// Source é uma fonte de resultados brutos para uma data (YYYY-MM-DD)
type Source interface {
	Name() string
	Fetch(ctx context.Context, date string) ([]draw.RawResult, error)
}

// Chain consulta as fontes em ordem; a primeira com resultado vence
type Chain struct {
	Sources []Source
	Timeout time.Duration // limite por fonte; zero = sem limite
	Log     *zap.Logger

	// OnFetch é chamado por fonte consultada com ok=false em erro ou vazio
	OnFetch func(source string, ok bool)
}

func NewChain(timeout time.Duration, log *zap.Logger, sources ...Source) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{Sources: sources, Timeout: timeout, Log: log}
}

func (c *Chain) Name() string { return "chain" }

// Fetch devolve ErrNoResults (com as falhas agregadas) se todas falharem ou vierem vazias
func (c *Chain) Fetch(ctx context.Context, date string) ([]draw.RawResult, error) {
	var errs error
	for _, s := range c.Sources {
		res, err := c.fetchOne(ctx, s, date)
		if err != nil {
			c.Log.Warn("draw source failed", zap.String("source", s.Name()), zap.String("date", date), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			c.report(s.Name(), false)
			continue
		}
		if len(res) == 0 {
			c.Log.Info("draw source returned nothing", zap.String("source", s.Name()), zap.String("date", date))
			c.report(s.Name(), false)
			continue
		}
		c.report(s.Name(), true)
		return res, nil
	}
	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResults, errs)
	}
	return nil, ErrNoResults
}

func (c *Chain) fetchOne(ctx context.Context, s Source, date string) ([]draw.RawResult, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return s.Fetch(ctx, date)
}

func (c *Chain) report(name string, ok bool) {
	if c.OnFetch != nil {
		c.OnFetch(name, ok)
	}
}
