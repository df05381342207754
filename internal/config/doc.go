// Package config provides configuration structures and utilities for prefixscan.
// It defines the pacing, budget and output settings of a crawl, and loads
// named target profiles from the .prefixscan YAML file.
package config
