// Package version exposes build metadata for agkit.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags and
// default to sensible values for local builds. IsNewer compares release
// strings with semantic version rules for the start-up update check.
package version
