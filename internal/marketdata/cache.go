package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// CachedProvider wraps a Provider with a Redis read-through cache.
// Reads check Redis first and fall back to the inner provider on a
// miss; successful reads re-populate the cache with a TTL. Redis
// failures degrade to the inner provider.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedProvider creates a cached wrapper around a provider.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func (c *CachedProvider) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	// Try cache.
	data, err := c.rdb.Get(ctx, quoteKey(symbol)).Bytes()
	if err == nil {
		var q models.Quote
		if json.Unmarshal(data, &q) == nil {
			return q, nil
		}
	}

	// Cache miss: ask the inner provider.
	q, err := c.inner.GetQuote(ctx, symbol)
	if err != nil {
		return models.Quote{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		c.rdb.Set(ctx, quoteKey(symbol), data, c.ttl)
	}
	return q, nil
}

func (c *CachedProvider) GetDailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	key := historyKey(symbol, from, to)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var points []models.PricePoint
		if json.Unmarshal(data, &points) == nil {
			return points, nil
		}
	}

	points, err := c.inner.GetDailyHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(points); err == nil {
		// Historical closes are immutable; cache them much longer
		// than live quotes.
		c.rdb.Set(ctx, key, data, 24*time.Hour)
	}
	return points, nil
}

func (c *CachedProvider) GetOptionChain(ctx context.Context, symbol string) (models.OptionChain, error) {
	data, err := c.rdb.Get(ctx, chainKey(symbol)).Bytes()
	if err == nil {
		var chain models.OptionChain
		if json.Unmarshal(data, &chain) == nil {
			return chain, nil
		}
	}

	chain, err := c.inner.GetOptionChain(ctx, symbol)
	if err != nil {
		return models.OptionChain{}, err
	}

	if data, err := json.Marshal(chain); err == nil {
		c.rdb.Set(ctx, chainKey(symbol), data, c.ttl)
	}
	return chain, nil
}

// --- Cache keys ---

func quoteKey(symbol string) string { return fmt.Sprintf("quote:%s", symbol) }
func chainKey(symbol string) string { return fmt.Sprintf("chain:%s", symbol) }

func historyKey(symbol string, from, to time.Time) string {
	return fmt.Sprintf("history:%s:%s:%s", symbol, from.Format(dateLayout), to.Format(dateLayout))
}
