package source

import (
	"context"
	"time"

	"github.com/radieske/bicho-settlement-engine/internal/settlement/draw"
	"go.uber.org/zap"
)

// JSONCache é o subconjunto do cache Redis usado aqui
type JSONCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// ResultsKey é a chave compartilhada com o draw-ingest
func ResultsKey(date string) string { return "draw:results:" + date }

// Cached guarda o resultado bruto por data; erro de cache nunca bloqueia a busca
type Cached struct {
	Source Source
	Cache  JSONCache
	TTL    time.Duration
	Log    *zap.Logger
}

func NewCached(src Source, c JSONCache, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{Source: src, Cache: c, TTL: ttl, Log: log}
}

func (c *Cached) Name() string { return c.Source.Name() }

func (c *Cached) Fetch(ctx context.Context, date string) ([]draw.RawResult, error) {
	key := ResultsKey(date)
	var cached []draw.RawResult
	ok, err := c.Cache.Get(ctx, key, &cached)
	if err != nil {
		c.Log.Warn("results cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok && len(cached) > 0 {
		return cached, nil
	}

	res, err := c.Source.Fetch(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(res) > 0 {
		c.Store(ctx, date, res)
	}
	return res, nil
}

// Store grava o resultado da data no cache; usado também pelo draw-ingest
func (c *Cached) Store(ctx context.Context, date string, res []draw.RawResult) {
	if err := c.Cache.Set(ctx, ResultsKey(date), res, c.TTL); err != nil {
		c.Log.Warn("results cache write failed", zap.String("date", date), zap.Error(err))
	}
}
