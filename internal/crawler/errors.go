package crawler

import "errors"

var (
	// ErrUnreachable is returned by Probe when the service does not answer
	// the probe query with a usable response.
	ErrUnreachable = errors.New("autocomplete service unreachable or incompatible")

	// ErrNilFrontier is returned by Crawl when no frontier is given.
	ErrNilFrontier = errors.New("frontier is nil")
)

// Truncation reasons recorded on a stopped crawl.
const (
	ReasonCancelled   = "cancelled"
	ReasonMaxRequests = "max requests reached"
	ReasonMaxDuration = "max duration reached"
)
