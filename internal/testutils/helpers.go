package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetupTestDir creates a temporary directory, makes it the working directory and the home
// directory, and returns its absolute path. Config lookups then find nothing but what the test
// writes there.
func SetupTestDir(t *testing.T) string {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	t.Chdir(absPath)
	t.Setenv("HOME", absPath)
	return absPath
}

// WriteFile writes content to name inside dir and returns the full path.
// It fails the test immediately on error.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "Failed to write %s", name)
	return path
}
