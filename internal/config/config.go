package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/prefixscan/internal/autocomplete"
	"github.com/nao1215/prefixscan/internal/model"
)

// Default configuration values.
const (
	// DefaultEndpoint is the autocomplete path appended to the base URL.
	DefaultEndpoint = "/v3/autocomplete"

	// DefaultParam is the query parameter that carries the prefix.
	DefaultParam = "query"

	// DefaultDelay is the initial pacing delay inserted before every attempt.
	// It only grows during a run.
	DefaultDelay = 750 * time.Millisecond

	// DefaultBackoff is the initial backoff after a rate limit or transport
	// failure. A success resets the backoff to this value.
	DefaultBackoff = 1 * time.Second

	// DefaultMaxAttempts is the number of attempts per prefix.
	DefaultMaxAttempts = autocomplete.DefaultMaxAttempts

	// DefaultTimeout is the timeout of a single HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultWorkers of 1 queries strictly one prefix at a time in FIFO order.
	// More workers share one pacer, so they do not raise the request rate
	// beyond what the pacing delay allows.
	DefaultWorkers = 1

	// DefaultBatchSize is the number of targets crawled concurrently.
	DefaultBatchSize = 4

	// DefaultOutput is the artifact file written after each run.
	DefaultOutput = "vocabulary.json"

	// AppName is the application name used for XDG directory paths.
	AppName = "prefixscan"
)

// Config holds all configuration options for prefixscan.
// It is populated from CLI flags and the configuration file and passed
// through the application explicitly.
type Config struct {
	// Targets are base URLs or names of profiles in the configuration file.
	Targets []string

	// Endpoint is the path appended to each base URL.
	Endpoint string

	// Param is the query parameter name.
	Param string

	// Delay is the initial pacing delay.
	Delay time.Duration

	// Backoff is the initial backoff delay.
	Backoff time.Duration

	// MaxAttempts bounds the attempts per prefix, rate-limit retries included.
	MaxAttempts int

	// Strategy selects exhaustive expansion or the bounded seed list.
	Strategy model.Strategy

	// Workers is the number of concurrent queries per target.
	Workers int

	// MaxRequests stops a run after this many attempts. 0 means no limit.
	MaxRequests int64

	// MaxDuration stops a run after this much time. 0 means no limit.
	MaxDuration time.Duration

	// Timeout is the timeout of each HTTP attempt.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize limits how much of a response body is read.
	MaxBodySize int64

	// Headers are static headers added to every request, e.g. an API key.
	Headers map[string]string

	// Alphabet replaces the a-z seed alphabet when set.
	Alphabet []string

	// BatchSize is the number of targets crawled concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches log output to JSON.
	JSONLogs bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .prefixscan is searched in the current directory and then in
	// the user's home directory.
	ConfigFilePath string

	// Profiles holds the target profiles loaded from the configuration file.
	Profiles *File

	// Explicit names the settings given on the command line. Profile values
	// never override them.
	Explicit map[string]bool

	// Output is the artifact path. ".gz" and ".zst" suffixes select
	// compression. Empty disables the artifact.
	Output string

	// JSONReport prints the summary as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the summary as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// DBDir is the directory of the history database.
	// Defaults to the XDG data directory (~/.local/share/prefixscan on Linux).
	DBDir string

	// SaveToDB saves every run to the history database.
	SaveToDB bool

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Endpoint:    DefaultEndpoint,
		Param:       DefaultParam,
		Delay:       DefaultDelay,
		Backoff:     DefaultBackoff,
		MaxAttempts: DefaultMaxAttempts,
		Strategy:    model.StrategyExhaustive,
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		UserAgent:   autocomplete.DefaultUserAgent,
		MaxBodySize: autocomplete.DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		Output:      DefaultOutput,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
		Explicit:    make(map[string]bool),
	}
}

// XDGDataDir returns the XDG data directory for prefixscan.
// On Linux: ~/.local/share/prefixscan
// On macOS: ~/Library/Application Support/prefixscan
// On Windows: %LOCALAPPDATA%\prefixscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for prefixscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Param == "" {
		return ErrEmptyParam
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Backoff <= 0 {
		return ErrInvalidBackoff
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRequests < 0 {
		return ErrInvalidMaxRequests
	}
	if c.MaxDuration < 0 {
		return ErrInvalidMaxDuration
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ArtifactPath returns where the vocabulary of target is written.
// With several targets the target name is inserted before the extension
// so runs do not overwrite each other.
func (c *Config) ArtifactPath(target string) string {
	if c.Output == "" || len(c.Targets) <= 1 {
		return c.Output
	}

	dir, file := filepath.Split(c.Output)
	base, ext := splitArtifactExt(file)
	return filepath.Join(dir, base+"-"+sanitize(target)+ext)
}

// splitArtifactExt splits "vocabulary.json.gz" into "vocabulary" and ".json.gz".
func splitArtifactExt(file string) (string, string) {
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)
	if ext == ".gz" || ext == ".zst" {
		inner := filepath.Ext(base)
		base = strings.TrimSuffix(base, inner)
		ext = inner + ext
	}
	return base, ext
}

// sanitize turns a target name or URL into a safe file name fragment.
func sanitize(name string) string {
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
