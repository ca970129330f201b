package cachingclient

import (
	"time"

	"github.com/laser/caching-client/cache"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Config struct {
	// Storage for cache entries.
	// If nil, a SQLite store is opened at Location and owned by the client.
	Cache cache.CacheProvider
	// Path of the SQLite store file. Used only when Cache is nil.
	Location string
	// How long stored entries stay fresh. Zero means forever.
	CacheDuration time.Duration
	// Logger to use. Logging is disabled if nil.
	Logger *zerolog.Logger
	// Network transport used on misses. An HTTPTransport is used if nil.
	Transport Transport
	// Source of the current time. time.Now is used if nil.
	Clock func() time.Time
	// Collapse concurrent misses for the same key into a single fetch.
	// By default every caller fetches and the last write wins.
	CollapseMisses bool
	// Registerer for the client's metrics. No metrics are collected if nil.
	Metrics prometheus.Registerer
}
