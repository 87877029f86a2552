package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, mainVersion string, ok bool) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		if !ok {
			return nil, false
		}
		return &debug.BuildInfo{Main: debug.Module{Path: "apidiff", Version: mainVersion}}, true
	}
	t.Cleanup(func() { readBuildInfo = orig })
}

func restoreVars(t *testing.T) {
	t.Helper()
	origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
	})
}

func TestResolved(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		buildInfo string
		ok        bool
		want      string
	}{
		{"ldflags", "1.2.0", "v9.9.9", true, "1.2.0"},
		{"go install", "dev", "v1.3.1", true, "1.3.1"},
		{"devel build", "dev", "(devel)", true, "dev"},
		{"no build info", "dev", "", false, "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreVars(t)
			withBuildInfo(t, tt.buildInfo, tt.ok)
			Version = tt.version
			if got := Resolved(); got != tt.want {
				t.Errorf("Resolved() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"unknown commit", "1.0.0", "unknown", "1.0.0"},
		{"long commit", "1.0.0", "abc1234567890", "1.0.0 (abc1234)"},
		{"short commit", "1.0.0", "abc", "1.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreVars(t)
			Version = tt.version
			Commit = tt.commit
			if got := Info(); got != tt.want {
				t.Errorf("Info() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFull(t *testing.T) {
	restoreVars(t)
	Version = "1.2.3"
	Commit = "abcdef123456"
	BuildDate = "2026-01-15"

	got := Full()
	for _, part := range []string{"apidiff version 1.2.3", "Commit: abcdef123456", "Built: 2026-01-15"} {
		if !strings.Contains(got, part) {
			t.Errorf("Full() = %q, want to contain %q", got, part)
		}
	}
}
