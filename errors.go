package cachingclient

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreOpen is returned when the store cannot be opened at construction.
	ErrStoreOpen = errors.New("could not open cache store")
	// ErrStoreIO is returned when reading or writing the store fails.
	ErrStoreIO = errors.New("cache store failure")
	// ErrDecode is returned when a stored entry cannot be decoded.
	// The entry is left in place.
	ErrDecode = errors.New("corrupt cache entry")
	// ErrTransport is returned when the request could not be executed.
	ErrTransport = errors.New("request failed")
	// ErrInvalidDuration is returned for a negative cache duration.
	ErrInvalidDuration = errors.New("cache duration must not be negative")
)

// ServerError is returned when the origin answered with a server error status.
// Such responses are never stored.
type ServerError struct {
	StatusCode int
	URL        string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.StatusCode, e.URL)
}
