package source

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/observability"
)

const redisKeyPrefix = "covid-dashboard:feed:"

// Stack is the configured fetch chain: HTTP client, body cache and loader.
type Stack struct {
	Loader  *Loader
	Fetcher *CachedFetcher
	close   func() error
}

// Build wires the loader for cfg. With SOURCE_CACHE=redis the Redis server must
// answer PING before Build returns.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Stack, error) {
	var (
		cache   BodyCache
		closeFn = func() error { return nil }
	)
	switch cfg.SourceCache {
	case config.CacheRedis:
		client, err := OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		cache = NewRedisCache(client, redisKeyPrefix, cfg.SourceCacheTTL)
		closeFn = client.Close
	case config.CacheNone:
		cache = NoCache{}
	default:
		cache = NewMemoryCache(cfg.SourceCacheSize, cfg.SourceCacheTTL, nil)
	}
	logger.Info("source cache configured", "backend", cfg.SourceCache, "ttl", cfg.SourceCacheTTL)

	fetcher := NewCachedFetcher(NewClient(cfg.SourceTimeout, nil, logger), cache, logger, metrics)
	feeds := DefaultFeeds(cfg.CasesURL, cfg.VaccinationsURL, cfg.LookupURL)
	return &Stack{
		Loader:  NewLoader(fetcher, feeds, nil, logger, metrics),
		Fetcher: fetcher,
		close:   closeFn,
	}, nil
}

// Close releases the cache backend connection, if any.
func (s *Stack) Close() error {
	return s.close()
}
