package version

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.4.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// ErrInvalidVersion indicates a version string that is not valid semver.
var ErrInvalidVersion = errors.New("invalid semantic version")

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// UserAgent is sent with every HTTP request the tool makes.
func UserAgent() string {
	return "agkit/" + Version
}

// IsNewer reports whether candidate is a higher version than current.
// Both accept an optional "v" prefix.
func IsNewer(current, candidate string) (bool, error) {
	currentNorm, err := Normalize(current)
	if err != nil {
		return false, fmt.Errorf("current version: %w", err)
	}

	candidateNorm, err := Normalize(candidate)
	if err != nil {
		return false, fmt.Errorf("candidate version: %w", err)
	}

	return semver.Compare(candidateNorm, currentNorm) > 0, nil
}

// Normalize returns v in the canonical "vMAJOR.MINOR.PATCH" form.
func Normalize(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrInvalidVersion
	}

	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}

	if !semver.IsValid(v) {
		return "", fmt.Errorf("%q: %w", v, ErrInvalidVersion)
	}

	return semver.Canonical(v), nil
}
