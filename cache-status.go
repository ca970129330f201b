package cachingclient

import (
	"fmt"
	"time"
)

// Outcome vocabulary follows the Cache-Status field of RFC 9211.

type CacheStatusStatus string

const (
	CacheStatusHit CacheStatusStatus = "hit"
	CacheStatusFwd CacheStatusStatus = "fwd"
)

type CacheStatusFwdReason string

const (
	// The store did not contain an entry for the request URL.
	CacheStatusFwdUriMiss CacheStatusFwdReason = "uri-miss"

	// The store contained an entry for the request URL, but it was stale.
	CacheStatusFwdStale CacheStatusFwdReason = "stale"
)

// cacheStatusName identifies this cache in rendered statuses.
const cacheStatusName = "CachingClient"

// CacheStatus describes how a single Send was handled.
type CacheStatus struct {
	Status    CacheStatusStatus
	FwdReason CacheStatusFwdReason
	// Status code of the forwarded request, zero for hits.
	FwdStatus int
	// Whether the fetched response was written to the store.
	Stored bool
	// Remaining freshness of the returned entry.
	// Only meaningful if HasTTL is set; entries without expiry have no ttl.
	TimeToLive time.Duration
	HasTTL     bool
}

func (cs *CacheStatus) Hit() {
	cs.Status = CacheStatusHit
	cs.FwdReason = ""
}

func (cs *CacheStatus) Forward(reason CacheStatusFwdReason) {
	cs.Status = CacheStatusFwd
	cs.FwdReason = reason
}

func (cs *CacheStatus) TTL(ttl time.Duration) {
	cs.TimeToLive = ttl
	cs.HasTTL = true
}

// IsHit reports whether the body came from the store.
func (cs CacheStatus) IsHit() bool {
	return cs.Status == CacheStatusHit
}

func (cs CacheStatus) String() string {
	status := fmt.Sprintf("%s; %s", cacheStatusName, cs.Status)
	if cs.Status == CacheStatusFwd && cs.FwdReason != "" {
		status = fmt.Sprintf("%s=%s", status, cs.FwdReason)
	}
	if cs.FwdStatus != 0 {
		status = fmt.Sprintf("%s; fwd-status=%d", status, cs.FwdStatus)
	}
	if cs.Stored {
		status += "; stored"
	}
	if cs.HasTTL {
		// ttl is in whole seconds, truncated toward zero
		status = fmt.Sprintf("%s; ttl=%d", status, int64(cs.TimeToLive/time.Second))
	}
	return status
}
