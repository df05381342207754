// Package main provides the entry point for the prefixscan CLI.
//
// prefixscan enumerates the vocabulary behind an autocomplete endpoint by
// querying short prefixes and following every new suggestion one character
// deeper, pacing itself so that rate-limited services are not overrun.
//
// Usage:
//
//	prefixscan crawl <base-url|profile>...
//	prefixscan history <target>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
