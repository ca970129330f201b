package cachingclient

import (
	"io"
	"net"
	"net/http"
	"time"
)

// Transport executes a request against the network and returns the status
// code and the complete response body.
type Transport interface {
	Execute(r *http.Request) (int, []byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(r *http.Request) (int, []byte, error)

func (f TransportFunc) Execute(r *http.Request) (int, []byte, error) {
	return f(r)
}

const defaultRequestTimeout = 30 * time.Second

// Shared transport tuning, so clients reuse connections.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// HTTPTransport executes requests with an http.Client.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport whose client times out after the
// given duration. A zero timeout uses the default of 30 seconds.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPTransport{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: defaultTransport.Clone(),
		},
	}
}

func (t *HTTPTransport) Execute(r *http.Request) (int, []byte, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode, body, nil
}
