// Package frontier schedules which prefixes to query next.
//
// A Frontier owns three pieces of state for one run: the FIFO queue of
// pending prefixes, the set of prefixes ever scheduled, and the set of
// discovered terms. A prefix enters the visited set when it is enqueued and
// never leaves it, so no prefix is queried twice. The discovered set only
// grows.
//
// Expansion follows the service's own spelling: when a query for prefix p
// returns a new term t that starts with p and is longer than p, the single
// prefix t[:len(p)+1] is scheduled. The crawl ends when the queue is empty
// and no prefix is in flight.
package frontier

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"
)

// Alphabet is the default seed alphabet, lowercase a-z.
var Alphabet = func() []string {
	letters := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		letters = append(letters, string(c))
	}
	return letters
}()

// CommonBigrams are the extra seeds of the bounded strategy.
var CommonBigrams = []string{"th", "he", "an", "re", "er", "in", "on", "at", "nd"}

// BoundedSeeds returns the fixed seed list of the bounded strategy:
// every letter of alphabet followed by CommonBigrams.
func BoundedSeeds(alphabet []string) []string {
	seeds := make([]string, 0, len(alphabet)+len(CommonBigrams))
	seeds = append(seeds, alphabet...)
	return append(seeds, CommonBigrams...)
}

// IngestResult reports what one ingest changed.
type IngestResult struct {
	// NewTerms are the terms added to the discovered set, in response order.
	NewTerms []string

	// Enqueued are the prefixes scheduled by this ingest.
	Enqueued []string
}

// Frontier is safe for concurrent use.
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue    []string
	visited  map[string]struct{}
	inFlight int

	terms     []string
	termIndex map[string]struct{}

	expand bool
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithExpansion turns derived-prefix scheduling on or off.
// The bounded strategy queries its seeds only and disables it.
func WithExpansion(expand bool) Option {
	return func(f *Frontier) {
		f.expand = expand
	}
}

// New creates an empty Frontier with expansion enabled.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		queue:     make([]string, 0),
		visited:   make(map[string]struct{}),
		termIndex: make(map[string]struct{}),
		expand:    true,
	}
	f.cond = sync.NewCond(&f.mu)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Seed enqueues prefixes that have not been visited and marks them visited.
// Empty prefixes are ignored. It returns the number of prefixes enqueued.
func (f *Frontier) Seed(prefixes ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, p := range prefixes {
		if f.markLocked(p) {
			n++
		}
	}
	if n > 0 {
		f.cond.Broadcast()
	}
	return n
}

// markLocked is the atomic check-and-insert behind every enqueue.
func (f *Frontier) markLocked(prefix string) bool {
	if prefix == "" {
		return false
	}
	if _, ok := f.visited[prefix]; ok {
		return false
	}
	f.visited[prefix] = struct{}{}
	f.queue = append(f.queue, prefix)
	return true
}

// Next pops the oldest pending prefix without blocking and marks it in
// flight. Callers must call Done once the prefix has been handled.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popLocked()
}

func (f *Frontier) popLocked() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	p := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.inFlight++
	return p, true
}

// Wait is the blocking form of Next for worker pools. It waits while the
// queue is empty but other prefixes are still in flight, since their
// responses may schedule more work. It returns false once the queue is empty
// and nothing is in flight, or when ctx is done.
func (f *Frontier) Wait(ctx context.Context) (string, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return "", false
		}
		if p, ok := f.popLocked(); ok {
			return p, true
		}
		if f.inFlight == 0 {
			return "", false
		}
		f.cond.Wait()
	}
}

// Done marks one in-flight prefix as handled.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.cond.Broadcast()
}

// Ingest records the terms returned for prefix and schedules derived
// prefixes. Terms already discovered are skipped entirely, including for
// expansion. Empty terms are ignored.
func (f *Frontier) Ingest(prefix string, terms []string) IngestResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res IngestResult
	for _, term := range terms {
		if term == "" {
			continue
		}
		if _, ok := f.termIndex[term]; ok {
			continue
		}
		f.termIndex[term] = struct{}{}
		f.terms = append(f.terms, term)
		res.NewTerms = append(res.NewTerms, term)

		if !f.expand {
			continue
		}
		if next, ok := Extend(prefix, term); ok && f.markLocked(next) {
			res.Enqueued = append(res.Enqueued, next)
		}
	}

	if len(res.Enqueued) > 0 {
		f.cond.Broadcast()
	}
	return res
}

// Extend returns the prefix one character deeper than prefix along term's
// spelling. It reports false when term does not start with prefix or is not
// longer than it. The extra character is a whole rune, so multi-byte terms
// never yield an invalid UTF-8 prefix.
func Extend(prefix, term string) (string, bool) {
	if len(term) <= len(prefix) || !strings.HasPrefix(term, prefix) {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(term[len(prefix):])
	return term[:len(prefix)+size], true
}

// Discovered returns the discovered terms in discovery order.
func (f *Frontier) Discovered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.terms))
	copy(out, f.terms)
	return out
}

// Len returns the number of discovered terms.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terms)
}

// Visited returns the number of prefixes ever scheduled.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// Pending returns the number of prefixes waiting to be queried.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Drained reports whether the queue is empty and nothing is in flight.
func (f *Frontier) Drained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) == 0 && f.inFlight == 0
}
