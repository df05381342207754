package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/prefixscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStoredRun(target string, started time.Time, terms ...string) *model.Run {
	run := model.NewRun(model.Target{
		Name:     target,
		BaseURL:  "https://" + target + ".example.com",
		Endpoint: "/complete",
		Param:    "q",
	}, model.StrategyExhaustive)
	run.StartedAt = started
	run.Terms = append(run.Terms, terms...)
	run.Requests = 28
	run.RateLimits = 1
	run.FinalDelay = 750 * time.Millisecond
	run.ProbeShape = "list with 2 items"
	run.PrefixesVisited = 28
	run.Finish()
	return run
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "data")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, DBFileName)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != filepath.Join(dir, DBFileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("missing database without create", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		run := newStoredRun("words", time.Now(), "apple")
		if err := db.SaveRun(context.Background(), run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()

		if _, err := db.GetRun(context.Background(), run.ID); err != nil {
			t.Errorf("run lost after reopen: %v", err)
		}
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := newStoredRun("words", time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), "apple", "ant", "être")
	run.Truncate("max requests reached")
	run.AddFailure(model.PrefixFailure{Prefix: "q", Attempts: 5, Outcome: "exhausted", Message: "status 503"})
	run.AddFailure(model.PrefixFailure{Prefix: "x", Attempts: 1, Outcome: "unexpected_status", Message: "status 404"})

	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if got.Target != run.Target {
		t.Errorf("target = %+v, want %+v", got.Target, run.Target)
	}
	if got.Strategy != model.StrategyExhaustive {
		t.Errorf("strategy = %v", got.Strategy)
	}
	if !slices.Equal(got.Terms, run.Terms) {
		t.Errorf("terms = %v, want %v", got.Terms, run.Terms)
	}
	if len(got.Failures) != 2 || got.Failures[0].Prefix != "q" || got.Failures[1].Outcome != "unexpected_status" {
		t.Errorf("unexpected failures %+v", got.Failures)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("started = %v, want %v", got.StartedAt, run.StartedAt)
	}
	if got.Requests != 28 || got.RateLimits != 1 || got.FinalDelay != 750*time.Millisecond {
		t.Errorf("counters not restored: %+v", got)
	}
	if !got.Truncated || got.TruncatedReason != "max requests reached" {
		t.Errorf("truncation not restored: %v %q", got.Truncated, got.TruncatedReason)
	}
	if got.Digest != run.Digest || got.ProbeShape != run.ProbeShape {
		t.Errorf("digest or shape not restored: %+v", got)
	}
}

func TestSaveRunReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := newStoredRun("words", time.Now(), "apple")
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	run.Terms = append(run.Terms, "ant")
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run again: %v", err)
	}

	terms, err := db.GetRunTerms(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to get terms: %v", err)
	}
	if !slices.Equal(terms, []string{"apple", "ant"}) {
		t.Errorf("terms = %v", terms)
	}

	records, err := db.ListRuns(ctx, "", 0)
	if err != nil || len(records) != 1 {
		t.Errorf("expected one stored run, got %d (%v)", len(records), err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	if _, err := db.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	runs := []*model.Run{
		newStoredRun("words", base, "apple"),
		newStoredRun("words", base.Add(time.Hour), "apple", "ant"),
		newStoredRun("cities", base.Add(2*time.Hour), "paris"),
	}
	failed := newStoredRun("words", base.Add(3*time.Hour))
	failed.SetError(errors.New("service unreachable"))
	runs = append(runs, failed)

	for _, run := range runs {
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	t.Run("all targets newest first", func(t *testing.T) {
		t.Parallel()

		records, err := db.ListRuns(ctx, "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected 4 records, got %d", len(records))
		}
		if records[0].ID != failed.ID || records[3].ID != runs[0].ID {
			t.Errorf("unexpected order: %s ... %s", records[0].ID, records[3].ID)
		}
		if records[0].Status() != "failed" || records[1].Status() != "complete" {
			t.Errorf("unexpected statuses %q %q", records[0].Status(), records[1].Status())
		}
	})

	t.Run("filter by target with limit", func(t *testing.T) {
		t.Parallel()

		records, err := db.ListRuns(ctx, "words", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		for _, r := range records {
			if r.Target != "words" {
				t.Errorf("unexpected target %s", r.Target)
			}
		}
		if records[1].Terms != 2 {
			t.Errorf("expected 2 terms, got %d", records[1].Terms)
		}
	})

	t.Run("targets", func(t *testing.T) {
		t.Parallel()

		targets, err := db.ListTargets(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(targets, []string{"cities", "words"}) {
			t.Errorf("targets = %v", targets)
		}
	})

	t.Run("latest runs skip failures", func(t *testing.T) {
		t.Parallel()

		latest, err := db.LatestRuns(ctx, "words", 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(latest) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(latest))
		}
		if latest[0].ID != runs[1].ID || latest[1].ID != runs[0].ID {
			t.Errorf("unexpected runs %s %s", latest[0].ID, latest[1].ID)
		}
		if !slices.Equal(latest[0].Terms, []string{"apple", "ant"}) {
			t.Errorf("terms not loaded: %v", latest[0].Terms)
		}
	})
}

func TestResolveRunID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	a := newStoredRun("words", time.Now())
	a.ID = "abc-111"
	b := newStoredRun("words", time.Now())
	b.ID = "abd-222"
	for _, run := range []*model.Run{a, b} {
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	tests := []struct {
		name    string
		prefix  string
		want    string
		wantErr error
	}{
		{"full id", "abc-111", "abc-111", nil},
		{"unique prefix", "abd", "abd-222", nil},
		{"ambiguous prefix", "ab", "", ErrAmbiguousRunID},
		{"unknown prefix", "zzz", "", ErrRunNotFound},
		{"empty prefix", "", "", ErrRunNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := db.ResolveRunID(ctx, tt.prefix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ResolveRunID(%q) = %q, %v; want %q", tt.prefix, got, err, tt.want)
			}
		})
	}
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := newStoredRun("words", time.Now(), "apple")
	run.AddFailure(model.PrefixFailure{Prefix: "q", Attempts: 1, Outcome: "exhausted"})
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	if err := db.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := db.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
	terms, err := db.GetRunTerms(ctx, run.ID)
	if err != nil || len(terms) != 0 {
		t.Errorf("terms not deleted: %v %v", terms, err)
	}
	if err := db.DeleteRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound for second delete, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2026-10-01 12:00:00.123456", false},
		{"2026-10-01 12:00:00", false},
		{"2026-10-01T12:00:00Z", false},
		{"2026-10-01T12:00:00.5+02:00", false},
		{"", true},
		{"yesterday", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
		}
	}
}
