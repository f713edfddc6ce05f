// Package config loads and validates application settings from an optional
// YAML file and SCRY_-prefixed environment variables.
package config
