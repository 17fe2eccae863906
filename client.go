package bulkscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout  = 100 * time.Second
	defaultPoolSize = 5
	maxBodyBytes    = 1 << 20
)

// Client classifies image URLs against a remote extraction service.
//
// Each Classify call is a single attempt; retries are the runner's job.
// A Client is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	encoder  Encoder
	logger   Logger
	timeout  time.Duration
	limiter  *rate.Limiter
	chain    Chain
}

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	cfg := &clientOptions{
		timeout:  defaultTimeout,
		poolSize: defaultPoolSize,
		encoder:  &JSONEncoder{},
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &Client{
		endpoint: endpoint,
		http:     cfg.httpClient,
		encoder:  cfg.encoder,
		logger:   cfg.logger,
		timeout:  cfg.timeout,
	}
	if c.http == nil {
		c.http = &http.Client{Transport: newTransport(cfg.poolSize, cfg.logger)}
	}
	if cfg.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.poolSize)
	}
	return c, nil
}

// newTransport builds a connection pool sized to the worker count. A failed
// dial is retried once immediately before the error reaches the caller.
func newTransport(size int, l Logger) *http.Transport {
	d := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxConnsPerHost = size
	tr.MaxIdleConnsPerHost = size
	tr.MaxIdleConns = size
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err == nil || ctx.Err() != nil {
			return conn, err
		}
		l.Debugf("dial retry addr=%s err=%v", addr, err)
		return d.DialContext(ctx, network, addr)
	}
	return tr
}

// Use adds middleware around Classify. Middlewares run in the order they are
// added. Use must not be called concurrently with Classify.
func (c *Client) Use(mw Middleware) { c.chain.Use(mw) }

// Classify performs one attempt for url. Network-level failures wrap
// ErrTransient. Cancellation of ctx is returned as ctx.Err().
func (c *Client) Classify(ctx context.Context, url string) (Outcome, error) {
	return c.chain.Then(c.classify)(ctx, url)
}

// Close releases idle pooled connections.
func (c *Client) Close() { c.http.CloseIdleConnections() }

func (c *Client) classify(ctx context.Context, url string) (Outcome, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return Outcome{}, cerr
			}
			return Outcome{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	body, err := c.encoder.Encode(request{URL: url})
	if err != nil {
		return Outcome{}, fmt.Errorf("encode request: %w", err)
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, c.wrap(ctx, "post", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return statusOutcome(resp.StatusCode), nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Outcome{}, c.wrap(ctx, "read body", err)
	}
	var r response
	if err := c.encoder.Decode(raw, &r); err != nil {
		return Outcome{}, fmt.Errorf("decode response: %w", err)
	}
	return bodyOutcome(r), nil
}

// wrap classifies a transport error. The parent context's error wins so that
// cancellation is never mistaken for a retryable failure.
func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func statusOutcome(code int) Outcome {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return Outcome{Status: StatusNoImage, Detail: fmt.Sprintf("API %d", code)}
	default:
		return Outcome{Status: StatusServiceError, Detail: fmt.Sprintf("HTTP %d", code)}
	}
}

func bodyOutcome(r response) Outcome {
	if r.Status == "success" {
		return Outcome{
			Value:  r.Data.SerialNumber,
			Status: StatusSuccess,
			Detail: MethodDisplay(r.Data.Method),
		}
	}
	msg := r.Message
	if msg == "" {
		msg = "Unknown"
	}
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "download") || strings.Contains(lower, "image") {
		return Outcome{Status: StatusNoImage, Detail: msg}
	}
	return Outcome{Status: StatusFailed, Detail: msg}
}
