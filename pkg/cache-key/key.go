package cachekey

import (
	"errors"
	"net/http"
)

var ErrorNoURL = errors.New("request has no URL")

// Key returns the cache key for a request.
// The key is the request URL exactly as given, without any normalization,
// so two spellings of the same resource are two separate entries.
// Method, headers and body are not part of the key.
func Key(r *http.Request) (string, error) {
	if r == nil || r.URL == nil {
		return "", ErrorNoURL
	}
	return r.URL.String(), nil
}
