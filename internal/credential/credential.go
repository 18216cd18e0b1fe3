// Package credential locates the puzzle site's session token.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"aocd/internal/components/telemetry"
	"aocd/lib/configutil"
)

const (
	report_resolver_resolve = "resolver.resolve"
)

// ErrMissing is returned when no source yields a token.
var ErrMissing = errors.New("no session token found")

const (
	EnvSession   = "AOC_SESSION"
	EnvTokenPath = "AOC_TOKEN_PATH"
	EnvToken     = "AOC_TOKEN"
)

// Token is the session cookie value, it is never printed.
type Token string

func (Token) String() string {
	return "<redacted>"
}

// Value returns the token as it should be sent to the site.
func (t Token) Value() string {
	return string(t)
}

// Source is one place a token may be found. Lookup returns an empty string
// when the source has nothing to offer.
type Source struct {
	Name   string
	Lookup func() (string, error)
}

// FileSource reads the token from a file, a missing file yields nothing.
func FileSource(name, path string) Source {
	return Source{
		Name: name,
		Lookup: func() (string, error) {
			contents, err := os.ReadFile(path)
			if os.IsNotExist(err) {
				return "", nil
			}
			if err != nil {
				return "", err
			}
			return string(contents), nil
		},
	}
}

// EnvSource reads the token directly from an environment variable.
func EnvSource(key string) Source {
	return Source{
		Name: "env " + key,
		Lookup: func() (string, error) {
			return os.Getenv(key), nil
		},
	}
}

// EnvPathSource reads the token from the file named by an environment variable.
func EnvPathSource(key string) Source {
	return Source{
		Name: "file named by env " + key,
		Lookup: func() (string, error) {
			path := strings.TrimSpace(os.Getenv(key))
			if path == "" {
				return "", nil
			}
			return FileSource(key, path).Lookup()
		},
	}
}

// DefaultTokenPath is $XDG_CONFIG_HOME/aocd/token (or ~/.config/aocd/token).
func DefaultTokenPath() (string, error) {
	dir, err := configutil.UserConfigDir("aocd")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "token"), nil
}

// DefaultSources returns the lookup chain in priority order:
//  1. the token file in the user's config directory
//  2. AOC_SESSION
//  3. the file named by AOC_TOKEN_PATH
//  4. AOC_TOKEN
func DefaultSources() []Source {
	var sources []Source
	path, err := DefaultTokenPath()
	if err == nil {
		sources = append(sources, FileSource("config file "+path, path))
	}
	return append(
		sources,
		EnvSource(EnvSession),
		EnvPathSource(EnvTokenPath),
		EnvSource(EnvToken),
	)
}

// Resolver finds the token once and remembers the result, including failure,
// for its whole lifetime.
type Resolver struct {
	sources []Source
	tel     telemetry.API

	once  sync.Once
	token Token
	err   error
}

func NewResolver(tel telemetry.API, sources ...Source) *Resolver {
	return &Resolver{
		sources: sources,
		tel:     telemetry.NewScopedAPI("credential", tel),
	}
}

func (r *Resolver) Resolve() (Token, error) {
	r.once.Do(func() {
		r.token, r.err = r.resolve()
	})
	return r.token, r.err
}

func (r *Resolver) resolve() (Token, error) {
	for _, source := range r.sources {
		value, err := source.Lookup()
		if err != nil {
			r.tel.ReportBroken(report_resolver_resolve, err, source.Name)
			return "", fmt.Errorf("read %s: %w", source.Name, err)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		r.tel.ReportDebug(report_resolver_resolve, "using "+source.Name)
		return Token(value), nil
	}

	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name
	}
	return "", fmt.Errorf("%w (looked in: %s)", ErrMissing, strings.Join(names, ", "))
}
