package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aocd/internal/components/telemetry"
	"aocd/lib/configutil"
)

const EnvCacheDir = "AOC_CACHE_DIR"

const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend is "fs" (default) or "sqlite".
	Backend string `json:"backend"`
	// Dir is the cache directory, see DefaultDir.
	Dir string `json:"dir"`
	// DSN is the sqlite file or libSQL url, defaults to <dir>/aocd.db.
	DSN string `json:"dsn"`
}

// DefaultDir is $AOC_CACHE_DIR, else $XDG_CACHE_HOME/aocd, else ~/.cache/aocd.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvCacheDir)); dir != "" {
		return dir, nil
	}
	return configutil.UserCacheDir("aocd")
}

// Open builds the store selected by the config.
func Open(ctx context.Context, cfg Config, tel telemetry.API) (Store, error) {
	dir := cfg.Dir
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}
	}

	switch cfg.Backend {
	case "", BackendFS:
		store, err := NewFSStore(dir, tel)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(dir, "aocd.db")
		}
		store, err := OpenSQLStore(ctx, dsn, tel)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
