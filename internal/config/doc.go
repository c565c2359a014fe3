// Package config loads, validates, and normalizes uptone configuration
// from TOML files, applying defaults for any omitted keys.
package config
