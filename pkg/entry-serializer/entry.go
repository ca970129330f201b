package serializer

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CacheEntry is the unit stored under a cache key.
type CacheEntry struct {
	// Expires is when the entry stops being fresh. Nil means never.
	Expires *time.Time
	// Value is the response body exactly as received.
	Value []byte
}

// wireEntry is the persisted form. Value is a pointer so a record without
// it can be told apart from an empty body.
type wireEntry struct {
	Expires *time.Time `cbor:"expires,omitempty"`
	Value   *[]byte    `cbor:"value"`
}

var errMissingValue = errors.New("cache entry has no value")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes the entry as a CBOR map.
// The expiry is written in UTC; a nil value is written as an empty byte string.
func Marshal(entry CacheEntry) ([]byte, error) {
	value := entry.Value
	if value == nil {
		value = []byte{}
	}
	w := wireEntry{Value: &value}
	if entry.Expires != nil {
		expires := entry.Expires.UTC()
		w.Expires = &expires
	}
	b, err := encMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return b, nil
}

// Unmarshal decodes bytes written by Marshal.
func Unmarshal(b []byte) (CacheEntry, error) {
	var w wireEntry
	if err := decMode.Unmarshal(b, &w); err != nil {
		return CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if w.Value == nil {
		return CacheEntry{}, fmt.Errorf("decode cache entry: %w", errMissingValue)
	}
	entry := CacheEntry{
		Expires: w.Expires,
		Value:   *w.Value,
	}
	if entry.Value == nil {
		entry.Value = []byte{}
	}
	return entry, nil
}

// Fresh reports whether the entry may still be served at now.
func Fresh(entry CacheEntry, now time.Time) bool {
	return entry.Expires == nil || now.Before(*entry.Expires)
}

// TimeToLive returns how long the entry stays fresh after now, negative
// when it is already stale. It returns false for entries that never expire.
func TimeToLive(entry CacheEntry, now time.Time) (time.Duration, bool) {
	if entry.Expires == nil {
		return 0, false
	}
	return entry.Expires.Sub(now), true
}
