package autocomplete

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/prefixscan/internal/normalize"
)

const (
	// DefaultMaxAttempts is the attempt budget per logical query.
	DefaultMaxAttempts = 5

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 4 * 1024 * 1024

	// DefaultUserAgent identifies prefixscan in requests.
	DefaultUserAgent = "prefixscan/1.0 (+https://github.com/nao1215/prefixscan)"
)

// Observer receives per-attempt events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveAttempt is called once per HTTP attempt.
	ObserveAttempt(outcome string, latency time.Duration)

	// ObservePacing is called whenever the pacing state changes.
	ObservePacing(delay, backoff time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, time.Duration)     {}
func (nopObserver) ObservePacing(time.Duration, time.Duration) {}

// Response is the result of a successful query.
type Response struct {
	// Prefix is the query string.
	Prefix string

	// Terms are the normalized terms in response order.
	Terms []string

	// Shape describes the decoded body, e.g. "list with 3 items".
	Shape string

	// Attempts is the number of attempts the query took.
	Attempts int
}

// Client queries one autocomplete endpoint.
type Client struct {
	httpClient  *http.Client
	endpoint    *url.URL
	param       string
	maxAttempts int
	maxBodySize int64
	userAgent   string
	pacer       *Pacer
	sleep       Sleeper
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithPacer sets the pacing state. Clients that should share a rate budget
// must share a Pacer.
func WithPacer(p *Pacer) Option {
	return func(cl *Client) {
		cl.pacer = p
	}
}

// WithMaxAttempts sets the attempt budget per query. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxAttempts = n
		}
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithSleeper replaces the wait primitive. Tests use it to skip real waits.
func WithSleeper(s Sleeper) Option {
	return func(cl *Client) {
		cl.sleep = s
	}
}

// WithObserver registers an observer for attempts and pacing changes.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		if o != nil {
			cl.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a client for baseURL+endpoint that sends the prefix in
// the query parameter param.
func NewClient(baseURL, endpoint, param string, opts ...Option) (*Client, error) {
	u, err := EndpointURL(baseURL, endpoint)
	if err != nil {
		return nil, err
	}
	if param == "" {
		return nil, fmt.Errorf("%w: empty query parameter name", ErrInvalidEndpoint)
	}

	c := &Client{
		endpoint:    u,
		param:       param,
		maxAttempts: DefaultMaxAttempts,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
		sleep:       SleepContext,
		observer:    nopObserver{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.pacer == nil {
		c.pacer = NewPacer(0, time.Second)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// EndpointURL joins baseURL and endpoint into an absolute http(s) URL.
func EndpointURL(baseURL, endpoint string) (*url.URL, error) {
	raw := strings.TrimRight(baseURL, "/")
	if endpoint != "" {
		raw += "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}
	return u, nil
}

// Pacer returns the pacing state used by the client.
func (c *Client) Pacer() *Pacer {
	return c.pacer
}

// URL returns the request URL for prefix.
func (c *Client) URL(prefix string) string {
	u := *c.endpoint
	q := u.Query()
	q.Set(c.param, prefix)
	u.RawQuery = q.Encode()
	return u.String()
}

// attempt is the raw result of one HTTP exchange.
type attempt struct {
	status     int
	body       []byte
	retryAfter time.Duration

	// oversized is set when the body was longer than the client's limit.
	oversized bool
}

// Query sends prefix to the service and returns the terms it answered with.
// Only context cancellation interrupts the retry loop early; every other
// failure is reported as a *QueryError.
func (c *Client) Query(ctx context.Context, prefix string) (*Response, error) {
	target := c.URL(prefix)

	var (
		last    Outcome
		lastErr error
	)

	for n := 1; n <= c.maxAttempts; n++ {
		if err := c.pacer.Pace(ctx, c.sleep); err != nil {
			return nil, err
		}

		start := c.now()
		res, err := c.do(ctx, target)
		latency := c.now().Sub(start)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last, lastErr = OutcomeTransportError, err
			wait = c.pacer.OnTransportError()

		case res.status == http.StatusTooManyRequests:
			last, lastErr = OutcomeRateLimited, fmt.Errorf("status %d", res.status)
			wait = max(c.pacer.OnRateLimited(), res.retryAfter)

		case res.status >= 500:
			last, lastErr = OutcomeTransportError, fmt.Errorf("status %d", res.status)
			wait = c.pacer.OnTransportError()

		case res.status < 200 || res.status >= 300:
			c.observer.ObserveAttempt(OutcomeUnexpectedStatus.String(), latency)
			return nil, &QueryError{
				Prefix:   prefix,
				Attempts: n,
				Outcome:  OutcomeUnexpectedStatus,
				Err:      fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.status),
			}

		default:
			v, err := c.decode(res)
			if err != nil {
				c.observer.ObserveAttempt(OutcomeMalformed.String(), latency)
				return nil, &QueryError{
					Prefix:   prefix,
					Attempts: n,
					Outcome:  OutcomeMalformed,
					Err:      fmt.Errorf("%w: %w", ErrMalformedResponse, err),
				}
			}
			c.pacer.OnSuccess()
			c.observer.ObserveAttempt(OutcomeSuccess.String(), latency)
			c.observer.ObservePacing(c.pacer.Delay(), c.pacer.Backoff())
			return &Response{
				Prefix:   prefix,
				Terms:    normalize.Terms(v),
				Shape:    normalize.Describe(v),
				Attempts: n,
			}, nil
		}

		c.observer.ObserveAttempt(last.String(), latency)
		c.observer.ObservePacing(c.pacer.Delay(), c.pacer.Backoff())
		c.logger.Warn("query attempt failed",
			"prefix", prefix,
			"attempt", n,
			"outcome", last.String(),
			"error", lastErr,
			"retryIn", wait,
		)

		// No point waiting once the budget is spent.
		if n == c.maxAttempts {
			break
		}
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	sentinel := ErrTransportExhausted
	if last == OutcomeRateLimited {
		sentinel = ErrRateLimitExhausted
	}
	return nil, &QueryError{
		Prefix:   prefix,
		Attempts: c.maxAttempts,
		Outcome:  OutcomeExhausted,
		Err:      fmt.Errorf("%w: %w", sentinel, lastErr),
	}
}

// do performs one GET and reads the body.
func (c *Client) do(ctx context.Context, target string) (*attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	a := &attempt{
		status:     resp.StatusCode,
		body:       body,
		retryAfter: retryAfter(resp.Header, c.now()),
	}
	if int64(len(body)) > c.maxBodySize {
		a.body = body[:c.maxBodySize]
		a.oversized = true
	}
	return a, nil
}

// decode parses a 2xx body. A body cut at the size limit is rejected
// instead of being reported as a JSON syntax error.
func (c *Client) decode(a *attempt) (normalize.Value, error) {
	if a.oversized {
		return normalize.Value{}, fmt.Errorf("body exceeds the %d byte limit", c.maxBodySize)
	}
	return normalize.Decode(a.body)
}
