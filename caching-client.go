package cachingclient

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/laser/caching-client/cache"
	cachekey "github.com/laser/caching-client/pkg/cache-key"
	serializer "github.com/laser/caching-client/pkg/entry-serializer"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// serverErrorStatus is the lowest status code that is never stored.
const serverErrorStatus = 500

// CachingClient sends requests through a durable response body cache.
// It owns its store for its whole lifetime; call Close to release it.
type CachingClient struct {
	cache         cache.CacheProvider
	cacheDuration time.Duration
	log           zerolog.Logger
	transport     Transport
	now           func() time.Time
	collapse      bool
	inflight      singleflight.Group
	metrics       *metrics
}

// New opens a client with a SQLite store at location.
// Entries expire cacheDuration after they are stored; zero means never.
// A nil logger disables logging.
func New(location string, cacheDuration time.Duration, logger *zerolog.Logger) (*CachingClient, error) {
	return CreateClient(Config{
		Location:      location,
		CacheDuration: cacheDuration,
		Logger:        logger,
	})
}

// CreateClient initializes a client from config.
// The client takes ownership of config.Cache and closes it on Close.
func CreateClient(config Config) (*CachingClient, error) {
	if config.CacheDuration < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, config.CacheDuration)
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	c := &CachingClient{
		cache:         config.Cache,
		cacheDuration: config.CacheDuration,
		log:           logger,
		transport:     config.Transport,
		now:           config.Clock,
		collapse:      config.CollapseMisses,
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(0)
	}
	if c.now == nil {
		c.now = time.Now
	}

	if c.cache == nil {
		store, err := cache.NewSQLiteCache(config.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreOpen, err)
		}
		c.cache = store
	}

	m, err := newMetrics(config.Metrics)
	if err != nil {
		c.cache.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	c.metrics = m

	c.log.Debug().
		Str("location", config.Location).
		Dur("duration", c.cacheDuration).
		Bool("collapse", c.collapse).
		Msg("Caching client ready")

	return c, nil
}

// Close releases the store. It is safe to call more than once.
func (c *CachingClient) Close() error {
	return c.cache.Close()
}

// Send returns the body for the request, from the store if a fresh entry
// exists and from the network otherwise.
// Only the request URL is used to find stored entries.
func (c *CachingClient) Send(r *http.Request) (*bytes.Reader, error) {
	body, _, err := c.SendStatus(r)
	return body, err
}

// SendStatus is like Send, and also reports how the request was handled.
func (c *CachingClient) SendStatus(r *http.Request) (*bytes.Reader, CacheStatus, error) {
	var status CacheStatus

	key, err := cachekey.Key(r)
	if err != nil {
		return nil, status, err
	}
	log := c.log.With().Str("uri", key).Logger()

	stored, found, err := c.cache.Get(key)
	if err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
		return nil, status, fmt.Errorf("%w: reading %s: %w", ErrStoreIO, key, err)
	}

	if !found {
		log.Trace().Msg("No entry found")
		c.metrics.lookup(lookupMiss)
		status.Forward(CacheStatusFwdUriMiss)
	} else {
		entry, err := serializer.Unmarshal(stored)
		if err != nil {
			log.Error().Err(err).Msg("Could not decode cache entry")
			return nil, status, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
		}
		now := c.now()
		if serializer.Fresh(entry, now) {
			log.Trace().Msg("Reading from cache")
			c.metrics.lookup(lookupHit)
			status.Hit()
			if ttl, ok := serializer.TimeToLive(entry, now); ok {
				status.TTL(ttl)
			}
			c.logDone(log, status)
			return bytes.NewReader(entry.Value), status, nil
		}
		log.Trace().Msg("Expired cache entry, refetching")
		c.metrics.lookup(lookupStale)
		status.Forward(CacheStatusFwdStale)
	}

	res, err := c.fetchAndStore(r, key, log)
	status.FwdStatus = res.statusCode
	if err != nil {
		return nil, status, err
	}
	status.Stored = true
	if ttl, ok := serializer.TimeToLive(res.entry, c.now()); ok {
		status.TTL(ttl)
	}
	c.logDone(log, status)
	return bytes.NewReader(res.entry.Value), status, nil
}

// fetchResult is what a fetch produced. entry is only set once stored.
type fetchResult struct {
	statusCode int
	entry      serializer.CacheEntry
}

// fetchAndStore fetches the request, collapsing it with an in-flight fetch
// for the same key if configured to.
func (c *CachingClient) fetchAndStore(r *http.Request, key string, log zerolog.Logger) (fetchResult, error) {
	if !c.collapse {
		return c.fetch(r, key, log)
	}
	v, err, shared := c.inflight.Do(key, func() (any, error) {
		return c.fetch(r, key, log)
	})
	if shared {
		log.Trace().Msg("Collapsed with in-flight fetch")
	}
	res, _ := v.(fetchResult)
	return res, err
}

// fetch executes the request and writes the result to the store,
// unless the origin answered with a server error.
func (c *CachingClient) fetch(r *http.Request, key string, log zerolog.Logger) (fetchResult, error) {
	log.Trace().Msg("Forwarding to origin")
	start := time.Now()
	statusCode, body, err := c.transport.Execute(r)
	took := time.Since(start)
	if err != nil {
		c.metrics.fetch(fetchTransportError, took)
		log.Warn().Err(err).Msg("Could not fetch response")
		return fetchResult{}, fmt.Errorf("%w: %s: %w", ErrTransport, key, err)
	}
	res := fetchResult{statusCode: statusCode}

	// server errors are transient, keep whatever is stored
	if statusCode >= serverErrorStatus {
		c.metrics.fetch(fetchServerError, took)
		log.Debug().Int("status", statusCode).Msg("Server error, not storing")
		return res, &ServerError{StatusCode: statusCode, URL: key}
	}

	entry := serializer.CacheEntry{Value: body}
	if c.cacheDuration > 0 {
		expires := c.now().Add(c.cacheDuration)
		entry.Expires = &expires
	}
	encoded, err := serializer.Marshal(entry)
	if err != nil {
		return res, fmt.Errorf("%w: encoding %s: %w", ErrStoreIO, key, err)
	}
	if err := c.cache.Put(key, encoded); err != nil {
		log.Error().Err(err).Msg("Could not write to cache")
		return res, fmt.Errorf("%w: writing %s: %w", ErrStoreIO, key, err)
	}
	c.metrics.fetch(fetchStored, took)

	evt := log.Trace().Int("status", statusCode).Int("bytes", len(body))
	if entry.Expires != nil {
		evt = evt.Time("expiry", *entry.Expires)
	}
	evt.Msg("Cache write")

	if entry.Value == nil {
		entry.Value = []byte{}
	}
	res.entry = entry
	return res, nil
}

func (c *CachingClient) logDone(log zerolog.Logger, status CacheStatus) {
	isHit := 0
	if status.IsHit() {
		isHit = 1
	}
	evt := log.Debug().
		Str("status", string(status.Status)).
		Str("fwd", string(status.FwdReason)).
		Int("fwd-status", status.FwdStatus).
		Bool("stored", status.Stored).
		Int("hit", isHit)
	if status.HasTTL {
		evt = evt.Dur("ttl", status.TimeToLive)
	}
	evt.Msg("Returning response")
}
