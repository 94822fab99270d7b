package config

import "time"

// CacheConfig defines settings for the listing response cache.  When
// Enabled is false or no Redis client is configured, caching is skipped.
// KeyStrategy selects which parts of the request form the cache key:
// "route", "method_route", "method_route_query" or "route_query".
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED"        envDefault:"true"`
	TTL          time.Duration `env:"CACHE_TTL"            envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY"   envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX"         envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}
