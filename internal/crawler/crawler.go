package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/prefixscan/internal/autocomplete"
	"github.com/nao1215/prefixscan/internal/frontier"
	"github.com/nao1215/prefixscan/internal/model"
)

// ProbePrefix is the prefix queried by Probe.
const ProbePrefix = "a"

// Querier is the part of the autocomplete client the crawler needs.
// *autocomplete.Client implements it.
type Querier interface {
	Query(ctx context.Context, prefix string) (*autocomplete.Response, error)
	Pacer() *autocomplete.Pacer
}

// Progress is a point-in-time view of a running crawl.
type Progress struct {
	Prefix   string
	NewTerms int
	Enqueued int
	Terms    int
	Pending  int
	Visited  int
}

// ProgressObserver is notified after every ingested response.
// Implementations must be safe for concurrent use.
type ProgressObserver interface {
	ObserveProgress(p Progress)
}

// Result is the outcome of one Crawl.
type Result struct {
	// Terms is the discovered vocabulary in discovery order.
	Terms []string

	// PrefixesVisited is the number of prefixes ever scheduled.
	PrefixesVisited int

	// Failures lists prefixes that were given up on.
	Failures []model.PrefixFailure

	// Stats is the pacing state when the crawl ended.
	Stats autocomplete.PacerStats

	Truncated bool
	Reason    string
}

// Crawler drives one target's crawl.
type Crawler struct {
	client      Querier
	workers     int
	maxRequests int64
	maxDuration time.Duration
	logger      *slog.Logger
	observer    ProgressObserver
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxRequests stops the crawl once the client has made n requests.
// Zero means no limit. The budget is checked before each query, so the
// retries of a query already started may overshoot it.
func WithMaxRequests(n int64) Option {
	return func(c *Crawler) {
		c.maxRequests = n
	}
}

// WithMaxDuration stops the crawl after d. Zero means no limit.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Crawler) {
		c.maxDuration = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = l
	}
}

// WithProgressObserver registers an observer for ingest progress.
func WithProgressObserver(o ProgressObserver) Option {
	return func(c *Crawler) {
		c.observer = o
	}
}

// New creates a Crawler for client.
func New(client Querier, opts ...Option) *Crawler {
	c := &Crawler{
		client:  client,
		workers: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Probe queries ProbePrefix once to check that the service answers with a
// usable response. Its terms are not ingested; the crawl queries "a" again.
func (c *Crawler) Probe(ctx context.Context) (*autocomplete.Response, error) {
	resp, err := c.client.Query(ctx, ProbePrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	c.logger.Info("probe succeeded",
		"shape", resp.Shape,
		"terms", len(resp.Terms),
		"attempts", resp.Attempts,
	)
	return resp, nil
}

// crawlState is shared by the workers of one Crawl.
type crawlState struct {
	mu          sync.Mutex
	failures    []model.PrefixFailure
	stopReason  string
	interrupted bool
	cancel      context.CancelFunc
}

func (s *crawlState) stop(reason string) {
	s.mu.Lock()
	if s.stopReason == "" {
		s.stopReason = reason
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *crawlState) fail(f model.PrefixFailure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

func (s *crawlState) interrupt() {
	s.mu.Lock()
	s.interrupted = true
	s.mu.Unlock()
}

// Crawl queries prefixes from f until it is drained or a budget stops it.
// Per-prefix failures never abort the crawl. The returned error is non-nil
// only when f is nil; cancellation yields a truncated Result instead.
func (c *Crawler) Crawl(ctx context.Context, f *frontier.Frontier) (*Result, error) {
	if f == nil {
		return nil, ErrNilFrontier
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if c.maxDuration > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, c.maxDuration)
		defer cancelTimeout()
	}

	state := &crawlState{cancel: cancel}

	g, gctx := errgroup.WithContext(runCtx)
	for range c.workers {
		g.Go(func() error {
			for {
				prefix, ok := f.Wait(gctx)
				if !ok {
					return nil
				}
				c.visit(gctx, f, prefix, state)
				f.Done()
			}
		})
	}
	_ = g.Wait()

	result := &Result{
		Terms:           f.Discovered(),
		PrefixesVisited: f.Visited(),
		Failures:        state.failures,
		Stats:           c.client.Pacer().Snapshot(),
	}

	reason := state.stopReason
	if reason == "" && (state.interrupted || !f.Drained()) {
		switch {
		case ctx.Err() != nil:
			reason = ReasonCancelled
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			reason = ReasonMaxDuration
		default:
			reason = ReasonCancelled
		}
	}
	if reason != "" {
		result.Truncated = true
		result.Reason = reason
		c.logger.Warn("crawl stopped early",
			"reason", reason,
			"terms", len(result.Terms),
			"pending", f.Pending(),
		)
	}

	c.logger.Info("crawl finished",
		"terms", len(result.Terms),
		"requests", result.Stats.Requests,
		"elapsed", result.Stats.Elapsed,
		"failures", len(result.Failures),
	)
	return result, nil
}

// visit queries one prefix and ingests its terms.
func (c *Crawler) visit(ctx context.Context, f *frontier.Frontier, prefix string, state *crawlState) {
	if c.maxRequests > 0 && c.client.Pacer().Requests() >= c.maxRequests {
		state.stop(ReasonMaxRequests)
		return
	}

	resp, err := c.client.Query(ctx, prefix)
	if err != nil {
		if ctx.Err() != nil {
			state.interrupt()
			return
		}

		failure := model.PrefixFailure{
			Prefix:  prefix,
			Message: err.Error(),
			Outcome: autocomplete.OutcomeTransportError.String(),
		}
		var qerr *autocomplete.QueryError
		if errors.As(err, &qerr) {
			failure.Attempts = qerr.Attempts
			failure.Outcome = qerr.Outcome.String()
		}
		state.fail(failure)

		c.logger.Warn("giving up on prefix",
			"prefix", prefix,
			"outcome", failure.Outcome,
			"error", err,
		)
		return
	}

	res := f.Ingest(prefix, resp.Terms)
	c.logger.Debug("prefix done",
		"prefix", prefix,
		"returned", len(resp.Terms),
		"new", len(res.NewTerms),
		"enqueued", len(res.Enqueued),
	)

	if c.observer != nil {
		c.observer.ObserveProgress(Progress{
			Prefix:   prefix,
			NewTerms: len(res.NewTerms),
			Enqueued: len(res.Enqueued),
			Terms:    f.Len(),
			Pending:  f.Pending(),
			Visited:  f.Visited(),
		})
	}
}
