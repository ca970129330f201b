package serializer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestRoundTripWithExpiry(t *testing.T) {
	expires := time.Date(2031, 4, 5, 6, 7, 8, 123456789, time.UTC)
	b, err := Marshal(CacheEntry{Expires: &expires, Value: []byte("hello")})
	if err != nil {
		t.Fatalf("Error encoding: %+v", err)
	}
	entry, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Error decoding: %+v", err)
	}
	if entry.Expires == nil || !entry.Expires.Equal(expires) {
		t.Fatalf("Expires is %v, expected %v", entry.Expires, expires)
	}
	if string(entry.Value) != "hello" {
		t.Fatalf("Value is %s", entry.Value)
	}
}

func TestRoundTripWithoutExpiry(t *testing.T) {
	b, err := Marshal(CacheEntry{Value: []byte{0x00, 0xff, 0x10}})
	if err != nil {
		t.Fatalf("Error encoding: %+v", err)
	}
	entry, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Error decoding: %+v", err)
	}
	if entry.Expires != nil {
		t.Fatalf("Expires is %v, expected none", entry.Expires)
	}
	if !bytes.Equal(entry.Value, []byte{0x00, 0xff, 0x10}) {
		t.Fatalf("Value is %x", entry.Value)
	}
}

func TestRoundTripEmptyValue(t *testing.T) {
	expires := time.Now()
	for _, e := range []CacheEntry{
		{Value: []byte{}},
		{Value: nil},
		{Expires: &expires, Value: []byte{}},
	} {
		b, err := Marshal(e)
		if err != nil {
			t.Fatalf("Error encoding: %+v", err)
		}
		entry, err := Unmarshal(b)
		if err != nil {
			t.Fatalf("Error decoding: %+v", err)
		}
		if entry.Value == nil || len(entry.Value) != 0 {
			t.Fatalf("Value is %#v, expected empty", entry.Value)
		}
		if (e.Expires == nil) != (entry.Expires == nil) {
			t.Fatalf("Expires is %v, expected %v", entry.Expires, e.Expires)
		}
		if e.Expires != nil && !entry.Expires.Equal(*e.Expires) {
			t.Fatalf("Expires is %v, expected %v", entry.Expires, e.Expires)
		}
	}
}

func TestExpiryStoredInUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	expires := time.Date(2030, 1, 1, 12, 0, 0, 0, loc)
	b, _ := Marshal(CacheEntry{Expires: &expires, Value: []byte("x")})
	entry, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Error decoding: %+v", err)
	}
	if entry.Expires.Location() != time.UTC {
		t.Fatalf("Location is %s", entry.Expires.Location())
	}
	if !entry.Expires.Equal(expires) {
		t.Fatalf("Expires is %v, expected %v", entry.Expires, expires)
	}
}

func TestUnmarshalCorrupt(t *testing.T) {
	for _, b := range [][]byte{
		nil,
		[]byte("definitely not cbor"),
		{0x01},
		{0xa1, 0x65, 'v', 'a', 'l', 'u', 'e'},
	} {
		if _, err := Unmarshal(b); err == nil {
			t.Fatalf("Expected error decoding %x", b)
		}
	}
}

func TestUnmarshalMissingValue(t *testing.T) {
	b, err := cbor.Marshal(map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(b); err == nil {
		t.Fatalf("Expected error for entry without value")
	}
}

func TestUnmarshalUnknownField(t *testing.T) {
	b, err := cbor.Marshal(map[string]any{"value": []byte("x"), "status": 200})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(b); err == nil {
		t.Fatalf("Expected error for unknown field")
	}
}

func TestFresh(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := now.Add(time.Second)
	earlier := now.Add(-time.Second)

	if !Fresh(CacheEntry{}, now.Add(100*365*24*time.Hour)) {
		t.Fatalf("Entry without expiry is not fresh")
	}
	if !Fresh(CacheEntry{Expires: &later}, now) {
		t.Fatalf("Entry expiring later is not fresh")
	}
	if Fresh(CacheEntry{Expires: &earlier}, now) {
		t.Fatalf("Expired entry is fresh")
	}
	if Fresh(CacheEntry{Expires: &now}, now) {
		t.Fatalf("Entry expiring exactly now is fresh")
	}
}

func TestTimeToLive(t *testing.T) {
	now := time.Now()
	if _, ok := TimeToLive(CacheEntry{}, now); ok {
		t.Fatalf("Entry without expiry has a ttl")
	}
	expires := now.Add(-5 * time.Second)
	if ttl, ok := TimeToLive(CacheEntry{Expires: &expires}, now); !ok || ttl != -5*time.Second {
		t.Fatalf("ttl is %s", ttl)
	}
}
