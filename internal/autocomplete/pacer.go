package autocomplete

import (
	"context"
	"sync"
	"time"
)

const (
	// PacingGrowth is applied to the pacing delay on every rate limit.
	PacingGrowth = 1.5

	// BackoffGrowth is applied to the backoff delay on every rate limit or
	// transport failure.
	BackoffGrowth = 2.0
)

// Sleeper blocks for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the wait was interrupted.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper, built on a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer holds the pacing state of one crawl run.
// It is safe for concurrent use; every worker querying the same service must
// share one Pacer, since rate limits are a property of the service.
type Pacer struct {
	mu sync.Mutex

	delay          time.Duration
	backoff        time.Duration
	initialBackoff time.Duration

	requests        int64
	rateLimits      int64
	transportErrors int64
	started         time.Time

	// gate serialises pacing waits across workers.
	gate chan struct{}

	now func() time.Time
}

// NewPacer creates a Pacer with the given initial pacing and backoff delays.
func NewPacer(delay, backoff time.Duration) *Pacer {
	p := &Pacer{
		delay:          delay,
		backoff:        backoff,
		initialBackoff: backoff,
		gate:           make(chan struct{}, 1),
		now:            time.Now,
	}
	p.started = p.now()
	return p
}

// Pace waits the current pacing delay and counts one request.
// Waits are taken one at a time, so N workers sharing a Pacer issue at most
// one attempt per pacing delay between them.
func (p *Pacer) Pace(ctx context.Context, sleep Sleeper) error {
	select {
	case p.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.gate }()

	if err := sleep(ctx, p.Delay()); err != nil {
		return err
	}

	p.mu.Lock()
	p.requests++
	p.mu.Unlock()
	return nil
}

// OnRateLimited records a 429 and returns the backoff to wait before the
// next attempt. The backoff doubles and the pacing delay grows by half.
func (p *Pacer) OnRateLimited() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	wait := p.backoff
	p.backoff = scale(p.backoff, BackoffGrowth)
	p.delay = scale(p.delay, PacingGrowth)
	p.rateLimits++
	return wait
}

// OnTransportError records a transport failure and returns the backoff to
// wait before the next attempt. The backoff doubles.
func (p *Pacer) OnTransportError() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	wait := p.backoff
	p.backoff = scale(p.backoff, BackoffGrowth)
	p.transportErrors++
	return wait
}

// OnSuccess resets the backoff delay to its initial value.
// The pacing delay is left alone.
func (p *Pacer) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backoff = p.initialBackoff
}

// Delay returns the current pacing delay.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delay
}

// Backoff returns the current backoff delay.
func (p *Pacer) Backoff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff
}

// Requests returns the number of attempts paced so far.
func (p *Pacer) Requests() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

// PacerStats is a point-in-time copy of the pacing state.
type PacerStats struct {
	Delay           time.Duration
	Backoff         time.Duration
	Requests        int64
	RateLimits      int64
	TransportErrors int64
	Started         time.Time
	Elapsed         time.Duration
}

// Snapshot returns a copy of the pacing state.
func (p *Pacer) Snapshot() PacerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PacerStats{
		Delay:           p.delay,
		Backoff:         p.backoff,
		Requests:        p.requests,
		RateLimits:      p.rateLimits,
		TransportErrors: p.transportErrors,
		Started:         p.started,
		Elapsed:         p.now().Sub(p.started),
	}
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}
