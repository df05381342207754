package report

import (
	"io"

	"github.com/nao1215/prefixscan/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the summary of run.
	Write(run *model.Run) (int, error)

	// WriteSummary outputs an already built summary.
	WriteSummary(summary *model.Summary) (int, error)

	// WriteDiff outputs the vocabulary difference between two runs of target.
	WriteDiff(target string, diff *model.VocabularyDiff) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously, for example the
// terminal and a report file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all Writers. It stops on the first error.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(run) })
}

// WriteSummary outputs the summary to all Writers.
func (m *MultiWriter) WriteSummary(summary *model.Summary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSummary(summary) })
}

// WriteDiff outputs the diff to all Writers.
func (m *MultiWriter) WriteDiff(target string, diff *model.VocabularyDiff) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDiff(target, diff) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
