package testutil

import (
	"path/filepath"
	"testing"
)

// env variables that would otherwise let a test read the developer's own
// token or cache
var clearedEnv = []string{
	"AOC_SESSION",
	"AOC_TOKEN_PATH",
	"AOC_TOKEN",
	"AOC_CACHE_DIR",
}

// IsolateEnv points the user config and cache directories at a fresh
// temporary directory and clears the credential variables. It returns the
// temporary directory.
func IsolateEnv(t testing.TB) string {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, key := range clearedEnv {
		t.Setenv(key, "")
	}
	return dir
}
