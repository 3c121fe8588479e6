package alphavantage

import (
	"context"
	"time"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/pkg/redis"
)

// CachedProvider serves provider replies from Redis.
// Statements change once a quarter, so a day-long TTL is safe.
type CachedProvider struct {
	next  contracts.MarketDataProvider
	cache *redis.Cache
	ttl   time.Duration
}

// NewCachedProvider decorates next with a cache
func NewCachedProvider(next contracts.MarketDataProvider, cache *redis.Cache, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

// Fetch returns the cached reply or downloads and stores it.
// Failures are never cached.
func (p *CachedProvider) Fetch(ctx context.Context, ticker string, statement contracts.StatementType) (contracts.RawTable, error) {
	var out contracts.RawTable
	err := p.cache.GetOrSet(ctx, redis.RawTableKey(ticker, string(statement)), &out, p.ttl, func() (interface{}, error) {
		return p.next.Fetch(ctx, ticker, statement)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
