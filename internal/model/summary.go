package model

import (
	"sort"
	"time"
	"unicode"
	"unicode/utf8"
)

// Summary is the condensed, human-readable view of a Run.
// Reports render it instead of walking the full Run.
type Summary struct {
	RunID    string    `json:"run_id"`
	Target   string    `json:"target"`
	Strategy string    `json:"strategy"`
	Started  time.Time `json:"started"`

	// === Counts ===

	Terms           int     `json:"terms"`
	Requests        int64   `json:"requests"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	RequestsPerSec  float64 `json:"requests_per_second"`
	RateLimits      int64   `json:"rate_limits"`
	TransportErrors int64   `json:"transport_errors"`
	PrefixesVisited int     `json:"prefixes_visited"`
	FailedPrefixes  int     `json:"failed_prefixes"`

	// FinalDelay is the pacing delay the run settled on.
	FinalDelay time.Duration `json:"final_delay"`

	// ProbeShape is the shape of the probe response.
	ProbeShape string `json:"probe_shape,omitempty"`

	// Initials counts terms by their lowercased first character, sorted by
	// descending count then initial.
	Initials []InitialCount `json:"initials,omitempty"`

	// FailuresByOutcome counts failed prefixes per outcome.
	FailuresByOutcome map[string]int `json:"failures_by_outcome,omitempty"`

	Digest    string `json:"digest,omitempty"`
	Truncated bool   `json:"truncated"`
	Reason    string `json:"truncated_reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// InitialCount is the number of terms starting with Initial.
type InitialCount struct {
	Initial string `json:"initial"`
	Count   int    `json:"count"`
}

// NewSummary builds a Summary from run.
func NewSummary(run *Run) *Summary {
	s := &Summary{
		RunID:           run.ID,
		Target:          run.Target.Name,
		Strategy:        run.Strategy.String(),
		Started:         run.StartedAt,
		Terms:           len(run.Terms),
		Requests:        run.Requests,
		ElapsedSeconds:  run.Elapsed.Seconds(),
		RequestsPerSec:  run.RequestsPerSecond(),
		RateLimits:      run.RateLimits,
		TransportErrors: run.TransportErrors,
		PrefixesVisited: run.PrefixesVisited,
		FailedPrefixes:  len(run.Failures),
		FinalDelay:      run.FinalDelay,
		ProbeShape:      run.ProbeShape,
		Initials:        countInitials(run.Terms),
		Digest:          run.Digest,
		Truncated:       run.Truncated,
		Reason:          run.TruncatedReason,
		Error:           run.ErrorMessage,
	}

	if len(run.Failures) > 0 {
		s.FailuresByOutcome = make(map[string]int)
		for _, f := range run.Failures {
			s.FailuresByOutcome[f.Outcome]++
		}
	}
	return s
}

func countInitials(terms []string) []InitialCount {
	counts := make(map[string]int)
	for _, t := range terms {
		r, _ := utf8.DecodeRuneInString(t)
		if r == utf8.RuneError {
			continue
		}
		counts[string(unicode.ToLower(r))]++
	}

	out := make([]InitialCount, 0, len(counts))
	for initial, n := range counts {
		out = append(out, InitialCount{Initial: initial, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Initial < out[j].Initial
	})
	return out
}
