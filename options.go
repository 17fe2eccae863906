package bulkscan

import (
	"net/http"
	"time"
)

type clientOptions struct {
	timeout    time.Duration
	poolSize   int
	rateLimit  float64
	httpClient *http.Client
	encoder    Encoder
	logger     Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// Timeout bounds a single classification attempt. Its expiry counts as a
// transient failure. Defaults to 100 seconds.
func Timeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// PoolSize caps the number of connections to the endpoint. It should match the
// runner's worker count. Defaults to 5.
func PoolSize(n int) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// RateLimit caps requests per second across all callers of the client.
// Zero or negative disables the limit (default).
func RateLimit(perSecond float64) ClientOption {
	return func(o *clientOptions) {
		o.rateLimit = perSecond
	}
}

// WithHTTPClient replaces the pooled HTTP client built by NewClient.
// PoolSize has no effect when this is set.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithEncoder sets the body encoder. Defaults to JSONEncoder.
func WithEncoder(e Encoder) ClientOption {
	return func(o *clientOptions) {
		if e != nil {
			o.encoder = e
		}
	}
}

// WithClientLogger sets the logger used for transport-level events.
func WithClientLogger(l Logger) ClientOption {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
