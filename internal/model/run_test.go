package model

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNewRun(t *testing.T) {
	t.Parallel()

	target := Target{Name: "words", BaseURL: "https://api.example.com", Endpoint: "/v1/autocomplete", Param: "query"}
	run := NewRun(target, StrategyBounded)

	t.Run("assigns an id", func(t *testing.T) {
		t.Parallel()
		if len(run.ID) != 36 {
			t.Errorf("expected a UUID, got %q", run.ID)
		}
		if other := NewRun(target, StrategyBounded); other.ID == run.ID {
			t.Error("expected distinct ids")
		}
	})

	t.Run("sets start time", func(t *testing.T) {
		t.Parallel()
		if time.Since(run.StartedAt) > time.Second {
			t.Error("StartedAt is too old")
		}
	})

	t.Run("starts with an empty vocabulary", func(t *testing.T) {
		t.Parallel()
		if run.Terms == nil || len(run.Terms) != 0 {
			t.Errorf("expected empty non-nil terms, got %v", run.Terms)
		}
	})

	t.Run("keeps target and strategy", func(t *testing.T) {
		t.Parallel()
		if run.Target != target || run.Strategy != StrategyBounded {
			t.Errorf("unexpected run: %+v", run)
		}
	})
}

func TestRunRequestsPerSecond(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		requests int64
		elapsed  time.Duration
		want     float64
	}{
		{name: "ten requests in four seconds", requests: 10, elapsed: 4 * time.Second, want: 2.5},
		{name: "no elapsed time", requests: 10, elapsed: 0, want: 0},
		{name: "no requests", requests: 0, elapsed: time.Second, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Run{Requests: tt.requests, Elapsed: tt.elapsed}
			if got := r.RequestsPerSecond(); got != tt.want {
				t.Errorf("got %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestRunStateHelpers(t *testing.T) {
	t.Parallel()

	t.Run("first truncation reason wins", func(t *testing.T) {
		t.Parallel()
		r := &Run{}
		r.Truncate("max requests reached")
		r.Truncate("cancelled")
		if !r.Truncated || r.TruncatedReason != "max requests reached" {
			t.Errorf("unexpected state: %v %q", r.Truncated, r.TruncatedReason)
		}
	})

	t.Run("SetError keeps the message", func(t *testing.T) {
		t.Parallel()
		r := &Run{}
		if r.Failed() {
			t.Error("fresh run should not be failed")
		}
		r.SetError(errors.New("boom"))
		if !r.Failed() || r.ErrorMessage != "boom" {
			t.Errorf("unexpected state: %q", r.ErrorMessage)
		}
	})

	t.Run("Finish computes the digest", func(t *testing.T) {
		t.Parallel()
		r := &Run{Terms: []string{"b", "a"}}
		r.Finish()
		if r.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
		if r.Digest != Digest([]string{"a", "b"}) {
			t.Errorf("unexpected digest %q", r.Digest)
		}
	})

	t.Run("steps and failures accumulate", func(t *testing.T) {
		t.Parallel()
		r := &Run{}
		r.AddStep("probe")
		r.AddStep("crawl")
		r.AddFailure(PrefixFailure{Prefix: "q", Attempts: 5, Outcome: "exhausted"})
		if !reflect.DeepEqual(r.PerformedSteps, []string{"probe", "crawl"}) {
			t.Errorf("unexpected steps %v", r.PerformedSteps)
		}
		if len(r.Failures) != 1 || r.Failures[0].Prefix != "q" {
			t.Errorf("unexpected failures %+v", r.Failures)
		}
	})
}

func TestStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{input: "exhaustive", want: StrategyExhaustive},
		{input: "", want: StrategyExhaustive},
		{input: " Bounded ", want: StrategyBounded},
		{input: "random", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownStrategy) {
				t.Errorf("ParseStrategy(%q): expected ErrUnknownStrategy, got %v", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, %v", tt.input, got, err)
		}
	}

	if StrategyExhaustive.String() != "exhaustive" || StrategyBounded.String() != "bounded" || Strategy(9).String() != "unknown" {
		t.Error("unexpected strategy names")
	}
	if !StrategyExhaustive.Expands() || StrategyBounded.Expands() {
		t.Error("only the exhaustive strategy expands")
	}

	var s Strategy
	if err := s.UnmarshalText([]byte("bounded")); err != nil || s != StrategyBounded {
		t.Errorf("UnmarshalText: %v %v", s, err)
	}
	if text, _ := StrategyBounded.MarshalText(); string(text) != "bounded" {
		t.Errorf("MarshalText: %q", text)
	}
}
