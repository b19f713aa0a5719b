// Package version reports the version of the running modelstore build.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Build information, overridden with -ldflags "-X ...".
var (
	Version = "v0.3.0"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the producing-software version recorded in every payload.
func String() string {
	return Version
}

// canonical normalizes "1.2.3" to "v1.2.3" for semver comparison.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// IsNewer reports whether producer names a valid release newer than the running build.
// Unparseable strings are never considered newer.
func IsNewer(producer string) bool {
	p, cur := canonical(producer), canonical(Version)
	if !semver.IsValid(p) || !semver.IsValid(cur) {
		return false
	}
	return semver.Compare(p, cur) > 0
}
