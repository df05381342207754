package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/prefixscan/internal/crawler"
	"github.com/nao1215/prefixscan/internal/frontier"
	"github.com/nao1215/prefixscan/internal/model"
	"github.com/nao1215/prefixscan/internal/report"
)

// ProbeStep checks that the target answers the probe query.
// Its failure is fatal to the run.
type ProbeStep struct {
	crawler *crawler.Crawler
}

// NewProbeStep creates a probe step for c.
func NewProbeStep(c *crawler.Crawler) *ProbeStep {
	return &ProbeStep{crawler: c}
}

// Name returns the step name.
func (s *ProbeStep) Name() string {
	return "probe"
}

// Do executes the probe.
func (s *ProbeStep) Do(ctx context.Context, run *model.Run) error {
	resp, err := s.crawler.Probe(ctx)
	if err != nil {
		return err
	}
	run.ProbeShape = resp.Shape
	return nil
}

// Seeds returns the initial prefixes for strategy over alphabet.
func Seeds(strategy model.Strategy, alphabet []string) []string {
	if len(alphabet) == 0 {
		alphabet = frontier.Alphabet
	}
	if strategy == model.StrategyBounded {
		return frontier.BoundedSeeds(alphabet)
	}
	return append([]string(nil), alphabet...)
}

// CrawlStep enumerates the vocabulary of the run's target.
type CrawlStep struct {
	crawler  *crawler.Crawler
	alphabet []string
	logger   *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlAlphabet sets the seed alphabet. The default is a-z.
func WithCrawlAlphabet(alphabet []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.alphabet = alphabet
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step for c.
func NewCrawlStep(c *crawler.Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler:  c,
		alphabet: frontier.Alphabet,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do seeds a fresh frontier for the run's strategy and crawls it.
// Every run starts empty; nothing carries over from earlier runs.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	f := frontier.New(frontier.WithExpansion(run.Strategy.Expands()))
	seeded := f.Seed(Seeds(run.Strategy, s.alphabet)...)

	s.logger.Info("starting crawl",
		"target", run.Target.Name,
		"strategy", run.Strategy.String(),
		"seeds", seeded,
	)

	result, err := s.crawler.Crawl(ctx, f)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	run.Terms = result.Terms
	run.PrefixesVisited = result.PrefixesVisited
	for _, failure := range result.Failures {
		run.AddFailure(failure)
	}
	run.Requests = result.Stats.Requests
	run.RateLimits = result.Stats.RateLimits
	run.TransportErrors = result.Stats.TransportErrors
	run.FinalDelay = result.Stats.Delay
	run.FinalBackoff = result.Stats.Backoff
	run.Elapsed = result.Stats.Elapsed
	if result.Truncated {
		run.Truncate(result.Reason)
	}
	run.Finish()
	return nil
}

// ArtifactStep writes the vocabulary as a JSON array to a file. The file
// is compressed when its name ends in .gz or .zst.
type ArtifactStep struct {
	path string
}

// NewArtifactStep creates an artifact step writing to path.
func NewArtifactStep(path string) *ArtifactStep {
	return &ArtifactStep{path: path}
}

// Name returns the step name.
func (s *ArtifactStep) Name() string {
	return "artifact"
}

// Final reports that the artifact is written even for cancelled runs.
func (s *ArtifactStep) Final() bool {
	return true
}

// Do writes the artifact.
func (s *ArtifactStep) Do(_ context.Context, run *model.Run) error {
	if err := report.WriteArtifactFile(s.path, run.Terms); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", s.path, err)
	}
	return nil
}

// RunSaver persists finished runs.
type RunSaver interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// DatabaseStep records the run in the history database.
type DatabaseStep struct {
	saver RunSaver
}

// NewDatabaseStep creates a database step backed by saver.
func NewDatabaseStep(saver RunSaver) *DatabaseStep {
	return &DatabaseStep{saver: saver}
}

// Name returns the step name.
func (s *DatabaseStep) Name() string {
	return "database"
}

// Final reports that partial runs are persisted too.
func (s *DatabaseStep) Final() bool {
	return true
}

// Do saves the run.
func (s *DatabaseStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.saver.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RunObserver is told about every finished run.
type RunObserver interface {
	ObserveRun(target, status string)
}

// MetricsStep reports the run's final status to a RunObserver.
type MetricsStep struct {
	observer RunObserver
}

// NewMetricsStep creates a metrics step.
func NewMetricsStep(o RunObserver) *MetricsStep {
	return &MetricsStep{observer: o}
}

// Name returns the step name.
func (s *MetricsStep) Name() string {
	return "metrics"
}

// Final reports that cancelled runs are counted too.
func (s *MetricsStep) Final() bool {
	return true
}

// Do records the run status.
func (s *MetricsStep) Do(_ context.Context, run *model.Run) error {
	s.observer.ObserveRun(run.Target.Name, RunStatus(run))
	return nil
}

// RunStatus classifies a run as "failed", "truncated" or "complete".
func RunStatus(run *model.Run) string {
	switch {
	case run.Failed():
		return "failed"
	case run.Truncated:
		return "truncated"
	default:
		return "complete"
	}
}

// DefaultPipelineConfig holds the optional parts of DefaultPipeline.
type DefaultPipelineConfig struct {
	Alphabet     []string
	ArtifactPath string
	Saver        RunSaver
	Observer     RunObserver
	Logger       *slog.Logger
}

// DefaultPipelineOption configures DefaultPipeline.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineAlphabet sets the seed alphabet.
func WithPipelineAlphabet(alphabet []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Alphabet = alphabet
	}
}

// WithPipelineArtifact writes the vocabulary to path.
func WithPipelineArtifact(path string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ArtifactPath = path
	}
}

// WithPipelineSaver persists the run with saver.
func WithPipelineSaver(saver RunSaver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Saver = saver
	}
}

// WithPipelineObserver reports run status to o.
func WithPipelineObserver(o RunObserver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Observer = o
	}
}

// WithPipelineLogger sets the logger of the crawl step.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline assembles probe, crawl and the optional artifact,
// database and metrics steps, in that order.
func DefaultPipeline(c *crawler.Crawler, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	cfg := &DefaultPipelineConfig{}
	for _, opt := range configOpts {
		opt(cfg)
	}

	crawlOpts := []CrawlStepOption{}
	if len(cfg.Alphabet) > 0 {
		crawlOpts = append(crawlOpts, WithCrawlAlphabet(cfg.Alphabet))
	}
	if cfg.Logger != nil {
		crawlOpts = append(crawlOpts, WithCrawlLogger(cfg.Logger))
	}

	p := New(pipelineOpts...)
	p.AddSteps(NewProbeStep(c), NewCrawlStep(c, crawlOpts...))
	if cfg.ArtifactPath != "" {
		p.AddStep(NewArtifactStep(cfg.ArtifactPath))
	}
	if cfg.Saver != nil {
		p.AddStep(NewDatabaseStep(cfg.Saver))
	}
	if cfg.Observer != nil {
		p.AddStep(NewMetricsStep(cfg.Observer))
	}
	return p
}
