// Package config loads, normalizes, and validates the TOML configuration
// shared by the scriber daemon and CLI.
package config
