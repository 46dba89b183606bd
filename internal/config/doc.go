// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. It provides
// type-safe access to the settings of the task backend, the HTTP client and
// the recommendation poller.
package config
