// Package version reports the apidiff build.
package version

import (
	"runtime/debug"
	"strings"
)

// Set at build time:
// go build -ldflags "-X apidiff/internal/version.Version=1.2.0 -X apidiff/internal/version.Commit=abc123"
var (
	// Version is the release of apidiff; "dev" for untagged builds.
	Version = "dev"

	// Commit is the git commit hash
	Commit = "unknown"

	// BuildDate is the build timestamp
	BuildDate = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Resolved returns Version, or for "dev" builds the module version recorded
// by `go install` when there is one.
func Resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok {
		v := info.Main.Version
		if v != "" && v != "(devel)" {
			return strings.TrimPrefix(v, "v")
		}
	}
	return Version
}

// Info returns the version with the short commit, if known.
func Info() string {
	v := Resolved()
	if Commit != "unknown" && len(Commit) > 7 {
		return v + " (" + Commit[:7] + ")"
	}
	return v
}

// Full returns complete version information
func Full() string {
	return "apidiff version " + Resolved() + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
