package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatePaths(t *testing.T) {
	root := filepath.Join("work", "geoapi")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"state dir", StateDirPath(root), filepath.Join(root, ".apidiff")},
		{"config", ConfigPath(root), filepath.Join(root, ".apidiff", "config.toml")},
		{"database", DatabasePath(root), filepath.Join(root, ".apidiff", "apidiff.db")},
		{"log", LogPath(root), filepath.Join(root, ".apidiff", "apidiff.log")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEnsureStateDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureStateDir(root)
	if err != nil {
		t.Fatalf("EnsureStateDir failed: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}

	if _, err := EnsureStateDir(root); err != nil {
		t.Errorf("second EnsureStateDir failed: %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "filter", "expression")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"root", root, "."},
		{"nested dir", nested, "filter/expression"},
		{"missing file", filepath.Join(root, "filter", "new.go"), "filter/new.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(tt.path, root)
			if err != nil {
				t.Fatalf("CanonicalizePath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalizePath_Symlink(t *testing.T) {
	root := t.TempDir()
	real := filepath.Join(root, "metadata")
	if err := os.Mkdir(real, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	got, err := CanonicalizePath(link, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "metadata" {
		t.Errorf("CanonicalizePath(link) = %q, want %q", got, "metadata")
	}
}

func TestImportPath(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "feature", "internal")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := ImportPath("example.com/geoapi", root, root)
	if err != nil || got != "example.com/geoapi" {
		t.Errorf("ImportPath(root) = %q, %v", got, err)
	}
	got, err = ImportPath("example.com/geoapi", root, dir)
	if err != nil || got != "example.com/geoapi/feature/internal" {
		t.Errorf("ImportPath(dir) = %q, %v", got, err)
	}
}

func TestIsInternal(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"example.com/geoapi/feature", false},
		{"example.com/geoapi/internal", true},
		{"example.com/geoapi/internal/util", true},
		{"example.com/geoapi/internalx", false},
		{"internal", true},
		{"example.com/geoapi", false},
	}
	for _, tt := range tests {
		if got := IsInternal(tt.path); got != tt.want {
			t.Errorf("IsInternal(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
