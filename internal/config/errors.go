package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate and Config.Resolve, and can
// be checked with errors.Is.
var (
	// ErrNoTarget is returned when no base URL or profile name is given.
	ErrNoTarget = errors.New("no target specified: provide a base URL or a profile name")

	// ErrEmptyParam is returned when the query parameter name is empty.
	ErrEmptyParam = errors.New("invalid query parameter: must not be empty")

	// ErrInvalidDelay is returned when the pacing delay is negative.
	// Use 0 for no pacing.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidBackoff is returned when the backoff is not positive.
	// A zero backoff would never grow on repeated rate limits.
	ErrInvalidBackoff = errors.New("invalid backoff: must be positive")

	// ErrInvalidMaxAttempts is returned when fewer than one attempt is allowed.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be at least 1")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRequests is returned when the request budget is negative.
	ErrInvalidMaxRequests = errors.New("invalid max requests: must be non-negative")

	// ErrInvalidMaxDuration is returned when the duration budget is negative.
	ErrInvalidMaxDuration = errors.New("invalid max duration: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidTarget is returned when a target is neither a known profile
	// nor an http(s) base URL.
	ErrInvalidTarget = errors.New("invalid target: not a profile name or http(s) URL")
)
