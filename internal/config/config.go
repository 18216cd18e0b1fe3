package config

import (
	"fmt"
	"path/filepath"
	"time"

	"aocd/internal/cache"
	"aocd/internal/components/telemetry"
	"aocd/lib/configutil"
)

const (
	DefaultBaseUrl   = "https://adventofcode.com"
	DefaultUserAgent = "github.com/aocd-go/aocd by aocd maintainers"
	DefaultRateLimit = 1.0
)

type RetryConfig struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int `json:"attempts"`
	// Wait and MaxWait are durations like "500ms" or "5s".
	Wait    string `json:"wait"`
	MaxWait string `json:"max_wait"`
}

func (c RetryConfig) WaitDuration() (time.Duration, error) {
	return parseDuration("retry.wait", c.Wait)
}

func (c RetryConfig) MaxWaitDuration() (time.Duration, error) {
	return parseDuration("retry.max_wait", c.MaxWait)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	return d, nil
}

type Config struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// RateLimit is the maximum number of requests per second, 0 disables
	// limiting. Use Rate to read it.
	RateLimit *float64     `json:"rate_limit"`
	Retry     RetryConfig  `json:"retry"`
	Cache     cache.Config `json:"cache"`
	// HttpDump is a directory every http exchange is written to, empty to disable.
	HttpDump  string           `json:"http_dump"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func Defaults() Config {
	return Config{
		BaseUrl:   DefaultBaseUrl,
		UserAgent: DefaultUserAgent,
		RateLimit: ptr(DefaultRateLimit),
		Retry: RetryConfig{
			Attempts: 3,
			Wait:     "1s",
			MaxWait:  "10s",
		},
		Cache: cache.Config{
			Backend: cache.BackendFS,
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Rate is the configured request rate, DefaultRateLimit when unset.
func (c Config) Rate() float64 {
	if c.RateLimit == nil {
		return DefaultRateLimit
	}
	return *c.RateLimit
}

// DefaultPath is $XDG_CONFIG_HOME/aocd/config.json5.
func DefaultPath() (string, error) {
	dir, err := configutil.UserConfigDir("aocd")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json5"), nil
}

// Load reads the config file at path (DefaultPath if empty) together with its
// .local override. A missing file yields Defaults.
func Load(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	cfg, err := configutil.ReadConfigWithDefaults(path, Defaults())
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Rate() < 0 {
		return fmt.Errorf("config: rate_limit must not be negative")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("config: retry.attempts must be at least 1")
	}
	if _, err := c.Retry.WaitDuration(); err != nil {
		return err
	}
	if _, err := c.Retry.MaxWaitDuration(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case "", cache.BackendFS, cache.BackendSQLite:
	default:
		return fmt.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	}
	return nil
}
