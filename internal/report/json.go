package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/prefixscan/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string

	// includeTerms adds the full vocabulary to Write output.
	includeTerms bool

	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithTerms makes Write include the whole run, vocabulary and failures
// included, next to the summary.
func WithTerms(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.includeTerms = include
	}
}

// WithVersion records the prefixscan version in Write output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a summary with the version that produced it.
type JSONReport struct {
	Version string         `json:"version,omitempty"`
	Summary *model.Summary `json:"summary"`
	Run     *model.Run     `json:"run,omitempty"`
}

// Write outputs the run summary, and the full run when WithTerms is set.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	out := &JSONReport{Version: w.version, Summary: model.NewSummary(run)}
	if w.includeTerms {
		out.Run = run
	}
	return w.writeJSON(out)
}

// WriteSummary outputs only the summary.
func (w *JSONWriter) WriteSummary(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

// JSONDiff is the JSON form of a vocabulary diff.
type JSONDiff struct {
	Target string `json:"target"`
	*model.VocabularyDiff
}

// WriteDiff outputs the diff.
func (w *JSONWriter) WriteDiff(target string, diff *model.VocabularyDiff) (int, error) {
	return w.writeJSON(&JSONDiff{Target: target, VocabularyDiff: diff})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
