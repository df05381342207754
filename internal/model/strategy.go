package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy selects how the frontier is seeded and whether it grows.
type Strategy int

const (
	// StrategyExhaustive seeds the alphabet and follows every new term one
	// character deeper until no new prefixes appear.
	StrategyExhaustive Strategy = iota

	// StrategyBounded queries a fixed seed list (alphabet plus common
	// bigrams) and never expands. It costs a known number of requests.
	StrategyBounded
)

// String returns the strategy name as used on the command line.
func (s Strategy) String() string {
	switch s {
	case StrategyExhaustive:
		return "exhaustive"
	case StrategyBounded:
		return "bounded"
	default:
		return "unknown"
	}
}

// Expands reports whether new terms schedule derived prefixes.
func (s Strategy) Expands() bool {
	return s == StrategyExhaustive
}

// ParseStrategy converts a name to a Strategy. Matching ignores case and
// surrounding whitespace.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exhaustive":
		return StrategyExhaustive, nil
	case "bounded":
		return StrategyBounded, nil
	default:
		return StrategyExhaustive, fmt.Errorf("%w: %q (expected exhaustive or bounded)", ErrUnknownStrategy, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
