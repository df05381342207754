package autocomplete

import (
	"errors"
	"fmt"
)

// Query failures. Callers match them with errors.Is; the concrete error is a
// *QueryError carrying the prefix and attempt count.
var (
	// ErrRateLimitExhausted is returned when the attempt budget ran out and
	// the last attempt was answered with 429 Too Many Requests.
	ErrRateLimitExhausted = errors.New("rate limited on every attempt")

	// ErrTransportExhausted is returned when the attempt budget ran out and
	// the last attempt failed at the transport level or with a 5xx status.
	ErrTransportExhausted = errors.New("transport failed on every attempt")

	// ErrMalformedResponse is returned when a 2xx body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnexpectedStatus is returned for non-retryable statuses such as 404.
	ErrUnexpectedStatus = errors.New("unexpected status")

	// ErrInvalidEndpoint is returned by NewClient for unusable URLs.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidProxyAddress is returned when the proxy address is not
	// host:port or socks5://[user:pass@]host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port or socks5://host:port")
)

// Outcome classifies a single attempt.
type Outcome int

const (
	// OutcomeSuccess is a 2xx response with a decodable body.
	OutcomeSuccess Outcome = iota
	// OutcomeRateLimited is a 429 response.
	OutcomeRateLimited
	// OutcomeTransportError is a network failure or a 5xx response.
	OutcomeTransportError
	// OutcomeMalformed is a 2xx response whose body could not be decoded.
	OutcomeMalformed
	// OutcomeUnexpectedStatus is any other non-2xx response.
	OutcomeUnexpectedStatus
	// OutcomeExhausted marks a query that ran out of attempts.
	OutcomeExhausted
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnexpectedStatus:
		return "unexpected_status"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// QueryError describes a query that did not produce terms.
type QueryError struct {
	// Prefix is the query string that failed.
	Prefix string

	// Attempts is the number of attempts made.
	Attempts int

	// Outcome is the outcome of the final attempt, or OutcomeExhausted.
	Outcome Outcome

	// Err wraps one of the package sentinel errors.
	Err error
}

// Error implements error.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q failed after %d attempt(s): %v", e.Prefix, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
