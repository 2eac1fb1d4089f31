package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home dir: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get cwd: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty path", "", ""},
		{"tilde only", "~", homeDir},
		{"tilde with subpath", "~/.versecraft/config.yaml", filepath.Join(homeDir, ".versecraft", "config.yaml")},
		{"absolute path unchanged", "/usr/local/bin", "/usr/local/bin"},
		{"relative path resolved to absolute", "./src/../params.yaml", filepath.Join(cwd, "params.yaml")},
		{"dot path resolved to cwd", ".", cwd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandPathWithEnvVar(t *testing.T) {
	t.Setenv("TEST_VERSECRAFT_PATH", "/test/path")

	got, err := ExpandPath("$TEST_VERSECRAFT_PATH/subdir")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != "/test/path/subdir" {
		t.Errorf("ExpandPath() = %v, want /test/path/subdir", got)
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.yaml")
	if err := os.WriteFile(small, []byte("statement: hi\n"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := SafeReadFile(small)
	if err != nil {
		t.Fatalf("SafeReadFile() error = %v", err)
	}
	if string(data) != "statement: hi\n" {
		t.Errorf("SafeReadFile() = %q", data)
	}

	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, []byte(strings.Repeat("x", MaxReadSize+1)), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := SafeReadFile(big); err == nil {
		t.Error("SafeReadFile() should reject oversized files")
	}

	if _, err := SafeReadFile(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("SafeReadFile() on missing file = %v, want not-exist", err)
	}
}
