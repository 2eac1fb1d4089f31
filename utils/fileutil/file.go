package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxReadSize caps how much SafeReadFile will load (1 MiB). Config and
// params files are small; anything bigger is almost certainly the wrong file.
const MaxReadSize = 1 << 20

// ExpandPath expands environment variables and a leading ~, then resolves
// the result to an absolute, cleaned path. An empty path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// SafeReadFile expands path and reads it, refusing files over MaxReadSize
func SafeReadFile(path string) ([]byte, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", expanded, err)
	}
	if len(data) > MaxReadSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", expanded, MaxReadSize)
	}
	return data, nil
}
