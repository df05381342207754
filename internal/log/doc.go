// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// # Security Features
//
// The SecureHandler sanitizes sensitive information in log output:
//   - HTTP headers such as Authorization, Cookie and X-Api-Key
//   - Values that look like bearer tokens, JWTs or private keys
//   - Proxy passwords and credential query parameters inside URLs
//
// Even in verbose mode, sensitive values are masked so that logs of a crawl
// against a keyed service can be shared.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	logger.Debug("request sent",
//	    "url", "https://api.example.com/v3/autocomplete?query=ab&api_key=abc", // api_key masked
//	    "x-api-key", "abc",                                                     // masked
//	)
//	slog.SetDefault(logger)
package log
