package model

import (
	"time"

	"github.com/google/uuid"
)

// Target is one autocomplete endpoint.
type Target struct {
	// Name is the profile name, or the base URL when none was given.
	Name string `json:"name"`

	// BaseURL is the scheme and host of the service, e.g. https://api.example.com.
	BaseURL string `json:"base_url"`

	// Endpoint is the path appended to BaseURL.
	Endpoint string `json:"endpoint"`

	// Param is the query parameter that carries the prefix.
	Param string `json:"param"`
}

// PrefixFailure records a prefix whose query gave up.
type PrefixFailure struct {
	Prefix   string `json:"prefix"`
	Attempts int    `json:"attempts"`
	Outcome  string `json:"outcome"`
	Message  string `json:"message"`
}

// Run is the result of one crawl of a target.
//
// A Run is filled in by the pipeline steps in order: the probe sets
// ProbeShape, the crawl sets the counters and Terms, and Finish closes it.
type Run struct {
	// === Identity ===

	// ID is a random UUID assigned when the run starts.
	ID string `json:"id"`

	Target   Target   `json:"target"`
	Strategy Strategy `json:"strategy"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Elapsed is the wall time between the first request and the end of the crawl.
	Elapsed time.Duration `json:"elapsed"`

	// === Pacing ===

	// Requests counts every HTTP attempt, retries included.
	Requests        int64 `json:"requests"`
	RateLimits      int64 `json:"rate_limits"`
	TransportErrors int64 `json:"transport_errors"`

	// FinalDelay is the pacing delay at the end of the run.
	FinalDelay time.Duration `json:"final_delay"`

	// FinalBackoff is the backoff delay at the end of the run.
	FinalBackoff time.Duration `json:"final_backoff"`

	// === Results ===

	// ProbeShape describes the probe response, e.g. "list with 10 items".
	ProbeShape string `json:"probe_shape,omitempty"`

	// Terms is the discovered vocabulary in discovery order.
	Terms []string `json:"terms"`

	// PrefixesVisited is the number of prefixes ever scheduled.
	PrefixesVisited int `json:"prefixes_visited"`

	// Failures lists prefixes that were given up on.
	Failures []PrefixFailure `json:"failures,omitempty"`

	// Digest is the BLAKE3 digest of the sorted vocabulary.
	Digest string `json:"digest,omitempty"`

	// === State ===

	// Truncated is true when the crawl stopped before the frontier was empty.
	Truncated bool `json:"truncated"`

	// TruncatedReason says why, e.g. "max requests reached".
	TruncatedReason string `json:"truncated_reason,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the fatal error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRun creates an empty run for target.
func NewRun(target Target, strategy Strategy) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Target:    target,
		Strategy:  strategy,
		StartedAt: time.Now(),
		Terms:     make([]string, 0),
	}
}

// AddFailure records a prefix the crawl gave up on.
func (r *Run) AddFailure(f PrefixFailure) {
	r.Failures = append(r.Failures, f)
}

// SetError records a fatal error.
func (r *Run) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Truncate marks the run as stopped early. The first reason wins.
func (r *Run) Truncate(reason string) {
	if r.Truncated {
		return
	}
	r.Truncated = true
	r.TruncatedReason = reason
}

// Finish stamps the end time and computes the vocabulary digest.
func (r *Run) Finish() {
	r.FinishedAt = time.Now()
	r.Digest = Digest(r.Terms)
}

// Failed reports whether the run ended with a fatal error.
func (r *Run) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// RequestsPerSecond is Requests divided by Elapsed, or 0 when no time passed.
func (r *Run) RequestsPerSecond() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Requests) / secs
}

// AddStep records that a pipeline step ran.
func (r *Run) AddStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}
