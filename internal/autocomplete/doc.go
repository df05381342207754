// Package autocomplete issues paced queries against an autocomplete endpoint.
//
// A Client sends GET <base><endpoint>?<param>=<prefix> and returns the terms
// found in the response. All timing state lives in a Pacer shared by every
// caller of the client:
//
//   - before every attempt, including retries, the caller waits the pacing
//     delay; pacing waits are serialised so concurrent workers stay under the
//     same global rate
//   - a 429 response waits the backoff delay (or Retry-After when longer),
//     doubles the backoff and raises the pacing delay by half; the raised
//     pacing delay is kept for the rest of the run
//   - a transport failure or 5xx response waits the backoff delay and
//     doubles it
//   - a successful response resets the backoff delay, never the pacing delay
//
// Rate-limit and transport retries share one attempt budget. When it runs
// out, Query returns a *QueryError wrapping ErrRateLimitExhausted or
// ErrTransportExhausted depending on the last failure.
//
// # Usage
//
//	pacer := autocomplete.NewPacer(750*time.Millisecond, time.Second)
//	client, err := autocomplete.NewClient(
//	    "http://localhost:8000", "/v1/autocomplete", "query",
//	    autocomplete.WithPacer(pacer),
//	)
//	resp, err := client.Query(ctx, "a")
package autocomplete
