// Package database provides SQLite-based run history for prefixscan.
//
// This package implements the CrawlDB, which stores:
//   - One row per run with its counters, status and vocabulary digest
//   - The discovered terms of each run, in discovery order
//   - The prefixes each run gave up on
//
// The history is only read by reporting commands. A crawl never resumes
// from it; every run starts from an empty frontier.
//
// SQLite is accessed through modernc.org/sqlite, which is CGO-free, so the
// database is a single file and cross-compilation stays easy.
package database
