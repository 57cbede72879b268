// Package config defines the agkit settings and helpers to load, validate and
// save them in YAML format.
//
// A missing settings file is not an error: Load falls back to Default, which
// points at the public kit archives and the standard installation layout.
package config
