// Package config loads, normalizes, and validates Sceneforge configuration
// from TOML files with sensible defaults for every field.
package config
