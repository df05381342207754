// Package model defines the core data structures used throughout prefixscan.
//
// This package contains the following main types:
//   - Target: an autocomplete endpoint to enumerate
//   - Run: the result of one crawl of a target
//   - Summary: the condensed, human-readable view of a Run
//   - VocabularyDiff: the terms gained and lost between two runs
//
// Runs and summaries serialize to JSON for report output.
package model
