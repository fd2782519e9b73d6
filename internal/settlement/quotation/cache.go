package quotation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// JSONCache é o contrato do cache JSON compartilhado (shared/cache.JSON)
type JSONCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

func keyQuotation(kind Kind, number string) string { return "quotation:" + string(kind) + ":" + number }

// entrada de cache; Found=false guarda a ausência (cache negativo)
type cachedQuotation struct {
	Found bool      `json:"found"`
	Q     Quotation `json:"q"`
}

// CachedStore consulta o Redis antes do store de origem.
// Falha de cache nunca bloqueia a consulta.
type CachedStore struct {
	Store Store
	Cache JSONCache
	TTL   time.Duration
	Log   *zap.Logger
}

func (c *CachedStore) Find(ctx context.Context, kind Kind, number string) (Quotation, bool, error) {
	key := keyQuotation(kind, number)

	var hit cachedQuotation
	ok, err := c.Cache.Get(ctx, key, &hit)
	if err != nil {
		c.Log.Warn("quotation cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return hit.Q, hit.Found, nil
	}

	q, found, err := c.Store.Find(ctx, kind, number)
	if err != nil {
		return Quotation{}, false, err
	}
	if err := c.Cache.Set(ctx, key, cachedQuotation{Found: found, Q: q}, c.TTL); err != nil {
		c.Log.Warn("quotation cache set failed", zap.String("key", key), zap.Error(err))
	}
	return q, found, nil
}

// Invalidate descarta a entrada após uma escrita
func (c *CachedStore) Invalidate(ctx context.Context, kind Kind, number string) {
	if err := c.Cache.Del(ctx, keyQuotation(kind, number)); err != nil {
		c.Log.Warn("quotation cache invalidate failed", zap.Error(err))
	}
}
