package config

import (
	"fmt"
	"maps"
	"net/url"
	"time"

	"github.com/nao1215/prefixscan/internal/model"
)

// Profile holds the settings of one named target.
// Zero values mean "not set" and fall back to the defaults profile, then to
// the command line configuration.
type Profile struct {
	// BaseURL is the scheme and host of the service.
	BaseURL string `yaml:"base_url,omitempty"`

	// Endpoint is the autocomplete path, e.g. /v3/autocomplete.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Param is the query parameter name.
	Param string `yaml:"param,omitempty"`

	// Headers are static headers sent with every request.
	// Values may reference environment variables as ${NAME}.
	Headers map[string]string `yaml:"headers,omitempty"`

	UserAgent string `yaml:"user_agent,omitempty"`
	Proxy     string `yaml:"proxy,omitempty"`

	// Alphabet replaces the a-z seed alphabet.
	Alphabet []string `yaml:"alphabet,omitempty"`

	// Strategy is "exhaustive" or "bounded".
	Strategy string `yaml:"strategy,omitempty"`

	Delay       time.Duration `yaml:"delay,omitempty"`
	Backoff     time.Duration `yaml:"backoff,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	Workers     int           `yaml:"workers,omitempty"`
	MaxRequests int64         `yaml:"max_requests,omitempty"`
	MaxDuration time.Duration `yaml:"max_duration,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// File represents the structure of the .prefixscan configuration file.
type File struct {
	// Defaults apply to every target unless the target's profile overrides them.
	Defaults Profile `yaml:"defaults,omitempty"`

	// Targets maps profile names to their settings.
	Targets map[string]Profile `yaml:"targets,omitempty"`
}

// GetProfile returns the profile for name merged over the defaults.
// The second result reports whether name is a known profile.
func (cf *File) GetProfile(name string) (Profile, bool) {
	result := cf.Defaults
	if cf.Defaults.Headers != nil {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	p, ok := cf.Targets[name]
	if !ok {
		return result, false
	}
	return merge(result, p), true
}

// merge overlays the set fields of over onto base.
func merge(base, over Profile) Profile {
	if over.BaseURL != "" {
		base.BaseURL = over.BaseURL
	}
	if over.Endpoint != "" {
		base.Endpoint = over.Endpoint
	}
	if over.Param != "" {
		base.Param = over.Param
	}
	if len(over.Headers) > 0 {
		if base.Headers == nil {
			base.Headers = make(map[string]string, len(over.Headers))
		}
		maps.Copy(base.Headers, over.Headers)
	}
	if over.UserAgent != "" {
		base.UserAgent = over.UserAgent
	}
	if over.Proxy != "" {
		base.Proxy = over.Proxy
	}
	if len(over.Alphabet) > 0 {
		base.Alphabet = over.Alphabet
	}
	if over.Strategy != "" {
		base.Strategy = over.Strategy
	}
	if over.Delay != 0 {
		base.Delay = over.Delay
	}
	if over.Backoff != 0 {
		base.Backoff = over.Backoff
	}
	if over.MaxAttempts != 0 {
		base.MaxAttempts = over.MaxAttempts
	}
	if over.Workers != 0 {
		base.Workers = over.Workers
	}
	if over.MaxRequests != 0 {
		base.MaxRequests = over.MaxRequests
	}
	if over.MaxDuration != 0 {
		base.MaxDuration = over.MaxDuration
	}
	if over.Timeout != 0 {
		base.Timeout = over.Timeout
	}
	return base
}

// TargetSettings are the effective settings of one target after merging
// the command line, the defaults profile and the target's profile.
type TargetSettings struct {
	Target      model.Target
	Strategy    model.Strategy
	Delay       time.Duration
	Backoff     time.Duration
	MaxAttempts int
	Workers     int
	MaxRequests int64
	MaxDuration time.Duration
	Timeout     time.Duration
	Proxy       string
	UserAgent   string
	MaxBodySize int64
	Headers     map[string]string
	Alphabet    []string
}

// Resolve turns a target argument into its effective settings.
// The argument is either a profile name from the configuration file or a
// base URL. Settings given on the command line (see Explicit) win over the
// profile; the profile wins over built-in defaults.
func (c *Config) Resolve(arg string) (TargetSettings, error) {
	s := TargetSettings{
		Target: model.Target{
			Name:     arg,
			BaseURL:  arg,
			Endpoint: c.Endpoint,
			Param:    c.Param,
		},
		Strategy:    c.Strategy,
		Delay:       c.Delay,
		Backoff:     c.Backoff,
		MaxAttempts: c.MaxAttempts,
		Workers:     c.Workers,
		MaxRequests: c.MaxRequests,
		MaxDuration: c.MaxDuration,
		Timeout:     c.Timeout,
		Proxy:       c.ProxyAddress,
		UserAgent:   c.UserAgent,
		MaxBodySize: c.MaxBodySize,
		Headers:     make(map[string]string),
		Alphabet:    c.Alphabet,
	}

	if c.Profiles != nil {
		p, _ := c.Profiles.GetProfile(arg)
		if err := c.apply(&s, p); err != nil {
			return TargetSettings{}, fmt.Errorf("profile %s: %w", arg, err)
		}
	}

	// Command line headers are layered last so they override the profile.
	maps.Copy(s.Headers, c.Headers)

	u, err := url.Parse(s.Target.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return TargetSettings{}, fmt.Errorf("%w: %s", ErrInvalidTarget, arg)
	}
	if s.Target.Param == "" {
		return TargetSettings{}, fmt.Errorf("%s: %w", arg, ErrEmptyParam)
	}
	if err := s.Validate(); err != nil {
		return TargetSettings{}, fmt.Errorf("%s: %w", arg, err)
	}
	return s, nil
}

// Validate checks the pacing and budget values after profiles are applied.
func (s TargetSettings) Validate() error {
	switch {
	case s.Delay < 0:
		return ErrInvalidDelay
	case s.Backoff <= 0:
		return ErrInvalidBackoff
	case s.MaxAttempts <= 0:
		return ErrInvalidMaxAttempts
	case s.Workers <= 0:
		return ErrInvalidWorkers
	case s.Timeout <= 0:
		return ErrInvalidTimeout
	case s.MaxRequests < 0:
		return ErrInvalidMaxRequests
	case s.MaxDuration < 0:
		return ErrInvalidMaxDuration
	case s.MaxBodySize < 0:
		return ErrInvalidMaxBodySize
	}
	return nil
}

func (c *Config) apply(s *TargetSettings, p Profile) error {
	if p.BaseURL != "" {
		s.Target.BaseURL = p.BaseURL
	}
	if p.Endpoint != "" && !c.Explicit["endpoint"] {
		s.Target.Endpoint = p.Endpoint
	}
	if p.Param != "" && !c.Explicit["param"] {
		s.Target.Param = p.Param
	}
	maps.Copy(s.Headers, p.Headers)
	if p.UserAgent != "" && !c.Explicit["user-agent"] {
		s.UserAgent = p.UserAgent
	}
	if p.Proxy != "" && !c.Explicit["proxy"] {
		s.Proxy = p.Proxy
	}
	if len(p.Alphabet) > 0 && !c.Explicit["alphabet"] {
		s.Alphabet = p.Alphabet
	}
	if p.Strategy != "" && !c.Explicit["strategy"] {
		strategy, err := model.ParseStrategy(p.Strategy)
		if err != nil {
			return err
		}
		s.Strategy = strategy
	}
	if p.Delay != 0 && !c.Explicit["delay"] {
		s.Delay = p.Delay
	}
	if p.Backoff != 0 && !c.Explicit["backoff"] {
		s.Backoff = p.Backoff
	}
	if p.MaxAttempts != 0 && !c.Explicit["max-attempts"] {
		s.MaxAttempts = p.MaxAttempts
	}
	if p.Workers != 0 && !c.Explicit["workers"] {
		s.Workers = p.Workers
	}
	if p.MaxRequests != 0 && !c.Explicit["max-requests"] {
		s.MaxRequests = p.MaxRequests
	}
	if p.MaxDuration != 0 && !c.Explicit["max-duration"] {
		s.MaxDuration = p.MaxDuration
	}
	if p.Timeout != 0 && !c.Explicit["timeout"] {
		s.Timeout = p.Timeout
	}
	return nil
}
