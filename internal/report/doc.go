// Package report provides report generation and output functionality.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown with a mermaid chart for sharing
//
// Writers implement the Writer interface, so they can be used
// interchangeably and combined with MultiWriter.
//
// The vocabulary artifact itself is written by WriteArtifactFile as a JSON
// array, optionally gzip or zstd compressed.
package report
