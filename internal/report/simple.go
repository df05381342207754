package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/prefixscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints sections that have nothing to show.
	showEmpty bool

	// verbose lists every failed prefix.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary. In verbose mode failed prefixes are
// listed one by one.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder
	summary := model.NewSummary(run)

	w.writeHeader(&sb, summary)
	w.writeStatistics(&sb, summary)
	w.writeFailures(&sb, summary, run.Failures)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs an already built summary.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStatistics(&sb, summary)
	w.writeFailures(&sb, summary, nil)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteDiff outputs the terms added and removed between two runs.
func (w *SimpleWriter) WriteDiff(target string, diff *model.VocabularyDiff) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "=", "VOCABULARY CHANGES")
	fmt.Fprintf(&sb, "Target:     %s\n", target)
	fmt.Fprintf(&sb, "Old run:    %s\n", diff.OldRunID)
	fmt.Fprintf(&sb, "New run:    %s\n", diff.NewRunID)
	fmt.Fprintf(&sb, "Added:      %d\n", len(diff.Added))
	fmt.Fprintf(&sb, "Removed:    %d\n", len(diff.Removed))
	fmt.Fprintf(&sb, "Unchanged:  %d\n\n", diff.Unchanged)

	if !diff.HasChanges() {
		sb.WriteString("  No changes\n\n")
	}
	writeTermList(&sb, "+", diff.Added)
	writeTermList(&sb, "-", diff.Removed)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	return io.WriteString(w.output, sb.String())
}

func writeTermList(sb *strings.Builder, marker string, terms []string) {
	if len(terms) == 0 {
		return
	}
	for _, t := range terms {
		fmt.Fprintf(sb, "  %s %s\n", marker, t)
	}
	sb.WriteString("\n")
}

func writeBanner(sb *strings.Builder, rule, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(rule, 70))
	sb.WriteString("\n")
	sb.WriteString(centered(title, 70))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(rule, 70))
	sb.WriteString("\n\n")
}

func centered(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// writeHeader writes the run identity and status.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *model.Summary) {
	writeBanner(sb, "=", "PREFIXSCAN SUMMARY")

	fmt.Fprintf(sb, "Target:            %s\n", s.Target)
	fmt.Fprintf(sb, "Run:               %s\n", s.RunID)
	fmt.Fprintf(sb, "Strategy:          %s\n", s.Strategy)
	fmt.Fprintf(sb, "Started:           %s\n", s.Started.Format("2006-01-02 15:04:05 MST"))
	if s.ProbeShape != "" {
		fmt.Fprintf(sb, "Response shape:    %s\n", s.ProbeShape)
	}
	fmt.Fprintf(sb, "Status:            %s\n\n", statusText(s))
}

func statusText(s *model.Summary) string {
	switch {
	case s.Error != "":
		return "ERROR - " + s.Error
	case s.Truncated:
		return fmt.Sprintf("TRUNCATED - %s (partial results)", s.Reason)
	default:
		return "Complete"
	}
}

// writeStatistics writes the headline numbers.
func (w *SimpleWriter) writeStatistics(sb *strings.Builder, s *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nSTATISTICS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Terms found:       %d\n", s.Terms)
	fmt.Fprintf(sb, "  Requests made:     %d\n", s.Requests)
	fmt.Fprintf(sb, "  Time elapsed:      %.2f seconds\n", s.ElapsedSeconds)
	fmt.Fprintf(sb, "  Request rate:      %.2f requests/second\n", s.RequestsPerSec)
	fmt.Fprintf(sb, "  Rate limited:      %d\n", s.RateLimits)
	fmt.Fprintf(sb, "  Transport errors:  %d\n", s.TransportErrors)
	fmt.Fprintf(sb, "  Final delay:       %s\n", s.FinalDelay)
	fmt.Fprintf(sb, "  Prefixes visited:  %d\n", s.PrefixesVisited)
	if s.Digest != "" {
		fmt.Fprintf(sb, "  Digest:            %s\n", s.Digest)
	}
	sb.WriteString("\n")
}

// writeFailures writes the failure counts and, in verbose mode, each prefix.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *model.Summary, failures []model.PrefixFailure) {
	if s.FailedPrefixes == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nFAILED PREFIXES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if s.FailedPrefixes == 0 {
		sb.WriteString("  No failed prefixes\n\n")
		return
	}

	outcomes := make([]string, 0, len(s.FailuresByOutcome))
	for o := range s.FailuresByOutcome {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(sb, "  %-18s %d\n", o+":", s.FailuresByOutcome[o])
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}
	for _, f := range failures {
		fmt.Fprintf(sb, "  [!] %q after %d attempt(s): %s\n", f.Prefix, f.Attempts, f.Message)
	}
	if len(failures) > 0 {
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
