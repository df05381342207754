package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/prefixscan/internal/autocomplete"
	"github.com/nao1215/prefixscan/internal/crawler"
	"github.com/nao1215/prefixscan/internal/model"
	"github.com/nao1215/prefixscan/internal/report"
)

func newStubServer(t *testing.T, answers map[string][]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		terms := answers[r.URL.Query().Get("q")]
		if terms == nil {
			terms = []string{}
		}
		_ = json.NewEncoder(w).Encode(terms)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCrawler(t *testing.T, baseURL string) *crawler.Crawler {
	t.Helper()

	client, err := autocomplete.NewClient(baseURL, "/complete", "q",
		autocomplete.WithPacer(autocomplete.NewPacer(0, time.Millisecond)),
		autocomplete.WithSleeper(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		autocomplete.WithMaxAttempts(1),
		autocomplete.WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return crawler.New(client, crawler.WithLogger(discardLogger()))
}

var stubAnswers = map[string][]string{
	"a":  {"apple", "ant"},
	"ap": {"apple"},
	"an": {"ant"},
}

type memorySaver struct {
	mu   sync.Mutex
	runs []*model.Run
	err  error
}

func (m *memorySaver) SaveRun(_ context.Context, run *model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.err
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses map[string]string
}

func (s *statusRecorder) ObserveRun(target, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = make(map[string]string)
	}
	s.statuses[target] = status
}

func TestSeeds(t *testing.T) {
	t.Parallel()

	if got := Seeds(model.StrategyExhaustive, nil); len(got) != 26 {
		t.Errorf("expected 26 exhaustive seeds, got %d", len(got))
	}
	if got := Seeds(model.StrategyBounded, nil); len(got) != 35 {
		t.Errorf("expected 35 bounded seeds, got %d", len(got))
	}
	if got := Seeds(model.StrategyExhaustive, []string{"x", "y"}); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("custom alphabet not used: %v", got)
	}
}

func TestProbeStep(t *testing.T) {
	t.Parallel()

	t.Run("records the response shape", func(t *testing.T) {
		t.Parallel()

		srv := newStubServer(t, stubAnswers)
		run := newTestRun()
		if err := NewProbeStep(newTestCrawler(t, srv.URL)).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.ProbeShape != "list with 2 items" {
			t.Errorf("unexpected shape %q", run.ProbeShape)
		}
	})

	t.Run("fails for an unreachable service", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		err := NewProbeStep(newTestCrawler(t, srv.URL)).Do(context.Background(), newTestRun())
		if !errors.Is(err, crawler.ErrUnreachable) {
			t.Errorf("expected ErrUnreachable, got %v", err)
		}
	})
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("fills in the run", func(t *testing.T) {
		t.Parallel()

		srv := newStubServer(t, stubAnswers)
		run := newTestRun()
		if err := NewCrawlStep(newTestCrawler(t, srv.URL), WithCrawlLogger(discardLogger())).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(run.Terms, []string{"apple", "ant"}) {
			t.Errorf("unexpected terms %v", run.Terms)
		}
		if run.Requests != 28 || run.PrefixesVisited != 28 {
			t.Errorf("unexpected counts: requests=%d visited=%d", run.Requests, run.PrefixesVisited)
		}
		if run.Digest != model.Digest([]string{"ant", "apple"}) || run.FinishedAt.IsZero() {
			t.Errorf("run not finished: %+v", run)
		}
		if run.Truncated {
			t.Error("unexpected truncation")
		}
	})

	t.Run("bounded strategy queries seeds only", func(t *testing.T) {
		t.Parallel()

		srv := newStubServer(t, stubAnswers)
		run := model.NewRun(model.Target{Name: "words"}, model.StrategyBounded)
		if err := NewCrawlStep(newTestCrawler(t, srv.URL), WithCrawlLogger(discardLogger())).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Requests != 35 {
			t.Errorf("expected 35 requests, got %d", run.Requests)
		}
	})

	t.Run("records failed prefixes on the run", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("q") == "b" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode([]string{})
		}))
		t.Cleanup(srv.Close)

		run := newTestRun()
		step := NewCrawlStep(newTestCrawler(t, srv.URL), WithCrawlAlphabet([]string{"a", "b"}), WithCrawlLogger(discardLogger()))
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Failures) != 1 || run.Failures[0].Prefix != "b" {
			t.Errorf("unexpected failures %+v", run.Failures)
		}
	})

	t.Run("custom alphabet", func(t *testing.T) {
		t.Parallel()

		srv := newStubServer(t, stubAnswers)
		run := newTestRun()
		step := NewCrawlStep(newTestCrawler(t, srv.URL), WithCrawlAlphabet([]string{"b", "c"}), WithCrawlLogger(discardLogger()))
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Requests != 2 || len(run.Terms) != 0 {
			t.Errorf("unexpected result: requests=%d terms=%v", run.Requests, run.Terms)
		}
	})
}

func TestFinalSteps(t *testing.T) {
	t.Parallel()

	t.Run("artifact step writes the vocabulary", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "vocabulary.json.gz")
		run := newTestRun()
		run.Terms = []string{"apple", "ant"}

		step := NewArtifactStep(path)
		if !step.Final() {
			t.Error("artifact step must be final")
		}
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := report.ReadArtifactFile(path)
		if err != nil || !slices.Equal(got, run.Terms) {
			t.Errorf("artifact = %v, %v", got, err)
		}
	})

	t.Run("database step saves the run", func(t *testing.T) {
		t.Parallel()

		saver := &memorySaver{}
		run := newTestRun()
		if err := NewDatabaseStep(saver).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(saver.runs) != 1 || saver.runs[0] != run {
			t.Error("run was not saved")
		}

		saver.err = errors.New("disk full")
		if err := NewDatabaseStep(saver).Do(context.Background(), run); err == nil {
			t.Error("expected save error")
		}
	})

	t.Run("metrics step reports status", func(t *testing.T) {
		t.Parallel()

		rec := &statusRecorder{}
		run := newTestRun()
		run.Truncate(crawler.ReasonMaxRequests)
		if err := NewMetricsStep(rec).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.statuses["words"] != "truncated" {
			t.Errorf("unexpected status %q", rec.statuses["words"])
		}
	})
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	failed := newTestRun()
	failed.SetError(errors.New("x"))
	truncated := newTestRun()
	truncated.Truncate("cancelled")

	tests := []struct {
		run  *model.Run
		want string
	}{
		{newTestRun(), "complete"},
		{truncated, "truncated"},
		{failed, "failed"},
	}
	for _, tt := range tests {
		if got := RunStatus(tt.run); got != tt.want {
			t.Errorf("RunStatus = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("minimal pipeline probes and crawls", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(nil, nil)
		if !slices.Equal(p.StepNames(), []string{"probe", "crawl"}) {
			t.Errorf("unexpected steps %v", p.StepNames())
		}
	})

	t.Run("end to end with every step", func(t *testing.T) {
		t.Parallel()

		srv := newStubServer(t, stubAnswers)
		saver := &memorySaver{}
		rec := &statusRecorder{}
		path := filepath.Join(t.TempDir(), "vocabulary.json")

		p := DefaultPipeline(newTestCrawler(t, srv.URL),
			[]Option{WithLogger(discardLogger())},
			WithPipelineArtifact(path),
			WithPipelineSaver(saver),
			WithPipelineObserver(rec),
			WithPipelineLogger(discardLogger()),
		)
		want := []string{"probe", "crawl", "artifact", "database", "metrics"}
		if !slices.Equal(p.StepNames(), want) {
			t.Fatalf("unexpected steps %v", p.StepNames())
		}

		run := newTestRun()
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(saver.runs) != 1 || rec.statuses["words"] != "complete" {
			t.Errorf("final steps did not run: saved=%d status=%q", len(saver.runs), rec.statuses["words"])
		}
		if got, err := report.ReadArtifactFile(path); err != nil || len(got) != 2 {
			t.Errorf("artifact = %v, %v", got, err)
		}
	})
}
