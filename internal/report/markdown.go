package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/prefixscan/internal/model"
)

// maxPieSlices caps the initials shown in the pie chart; the rest are
// grouped as "other".
const maxPieSlices = 12

// MarkdownWriter outputs reports in Markdown format for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
	title cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
	}
}

// Write outputs the run summary with a failure table.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	return w.write(model.NewSummary(run), run.Failures)
}

// WriteSummary outputs an already built summary.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.write(summary, nil)
}

func (w *MarkdownWriter) write(s *model.Summary, failures []model.PrefixFailure) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeStatistics(md, s)
	w.writeInitials(md, s)
	w.writeFailures(md, s, failures)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run identity table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *model.Summary) {
	md.H1("prefixscan Report")
	md.PlainText("")

	rows := [][]string{
		{"Target", "`" + s.Target + "`"},
		{"Run", "`" + s.RunID + "`"},
		{"Strategy", w.title.String(s.Strategy)},
		{"Started", s.Started.Format("2006-01-02 15:04:05 MST")},
	}
	if s.ProbeShape != "" {
		rows = append(rows, []string{"Response Shape", s.ProbeShape})
	}
	rows = append(rows, []string{"Status", markdownStatus(s)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case s.Error != "":
		md.Cautionf("The run failed: %s", s.Error)
	case s.Truncated:
		md.Warningf("The crawl stopped early (%s). The vocabulary below is partial.", s.Reason)
	}
	md.PlainText("")
}

func markdownStatus(s *model.Summary) string {
	switch {
	case s.Error != "":
		return "❌ Error"
	case s.Truncated:
		return "⚠️ Truncated (" + s.Reason + ")"
	default:
		return "✅ Complete"
	}
}

// writeStatistics writes the headline numbers.
func (w *MarkdownWriter) writeStatistics(md *markdown.Markdown, s *model.Summary) {
	md.H2("Statistics")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Terms found", "**" + strconv.Itoa(s.Terms) + "**"},
			{"Requests made", strconv.FormatInt(s.Requests, 10)},
			{"Time elapsed", fmt.Sprintf("%.2f s", s.ElapsedSeconds)},
			{"Request rate", fmt.Sprintf("%.2f req/s", s.RequestsPerSec)},
			{"Rate limited", strconv.FormatInt(s.RateLimits, 10)},
			{"Transport errors", strconv.FormatInt(s.TransportErrors, 10)},
			{"Final delay", s.FinalDelay.String()},
			{"Prefixes visited", strconv.Itoa(s.PrefixesVisited)},
		},
	})
	md.PlainText("")

	if s.Digest != "" {
		md.PlainTextf("Vocabulary digest (BLAKE3): `%s`", s.Digest)
		md.PlainText("")
	}
	if s.RateLimits > 0 {
		md.Note("The service rate limited this run. The pacing delay was raised and kept for the rest of the run.")
		md.PlainText("")
	}
}

// writeInitials writes a pie chart of terms by first letter.
func (w *MarkdownWriter) writeInitials(md *markdown.Markdown, s *model.Summary) {
	md.H2("Terms by Initial")
	md.PlainText("")

	if len(s.Initials) == 0 {
		md.PlainText("No terms discovered.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Terms by Initial"),
		piechart.WithShowData(true),
	)

	other := 0
	for i, ic := range s.Initials {
		if i >= maxPieSlices {
			other += ic.Count
			continue
		}
		chart.LabelAndIntValue(ic.Initial, uint64(ic.Count)) //nolint:gosec // counts are non-negative
	}
	if other > 0 {
		chart.LabelAndIntValue("other", uint64(other)) //nolint:gosec // counts are non-negative
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFailures writes failure counts and the failed prefixes.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *model.Summary, failures []model.PrefixFailure) {
	md.H2("Failed Prefixes")
	md.PlainText("")

	if s.FailedPrefixes == 0 {
		md.Tip("Every prefix was answered.")
		md.PlainText("")
		return
	}

	outcomes := make([]string, 0, len(s.FailuresByOutcome))
	for o := range s.FailuresByOutcome {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)

	items := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, fmt.Sprintf("%s: %d", o, s.FailuresByOutcome[o]))
	}
	md.BulletList(items...)
	md.PlainText("")

	if len(failures) == 0 {
		return
	}

	rows := make([][]string, len(failures))
	for i, f := range failures {
		rows[i] = []string{
			"`" + f.Prefix + "`",
			f.Outcome,
			strconv.Itoa(f.Attempts),
			truncateString(f.Message, 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Prefix", "Outcome", "Attempts", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteDiff outputs the vocabulary changes between two runs.
func (w *MarkdownWriter) WriteDiff(target string, diff *model.VocabularyDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Vocabulary Changes")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + target + "`"},
			{"Old Run", "`" + diff.OldRunID + "`"},
			{"New Run", "`" + diff.NewRunID + "`"},
			{"Added", strconv.Itoa(len(diff.Added))},
			{"Removed", strconv.Itoa(len(diff.Removed))},
			{"Unchanged", strconv.Itoa(diff.Unchanged)},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("The vocabulary did not change.")
		md.PlainText("")
	}
	if len(diff.Added) > 0 {
		md.H2("Added")
		md.PlainText("")
		md.BulletList(diff.Added...)
		md.PlainText("")
	}
	if len(diff.Removed) > 0 {
		md.H2("Removed")
		md.PlainText("")
		md.BulletList(diff.Removed...)
		md.PlainText("")
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [prefixscan](https://github.com/nao1215/prefixscan)*")
}

// truncateString truncates a string to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
