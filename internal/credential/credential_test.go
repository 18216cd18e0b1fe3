package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"aocd/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func writeToken(t *testing.T, path, value string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(value), 0600))
}

func TestDefaultSourcesPriority(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	pathFile := filepath.Join(t.TempDir(), "token-from-path")
	writeToken(t, pathFile, "from-path\n")
	t.Setenv(EnvSession, "  from-session  ")
	t.Setenv(EnvTokenPath, pathFile)
	t.Setenv(EnvToken, "from-token")
	writeToken(t, filepath.Join(configHome, "aocd", "token"), "from-config\n")

	cases := []struct {
		name   string
		remove func()
		expect string
	}{
		{name: "config file wins", remove: func() {}, expect: "from-config"},
		{
			name: "session env next",
			remove: func() {
				require.NoError(t, os.Remove(filepath.Join(configHome, "aocd", "token")))
			},
			expect: "from-session",
		},
		{name: "token path next", remove: func() { t.Setenv(EnvSession, "") }, expect: "from-path"},
		{name: "token env last", remove: func() { t.Setenv(EnvTokenPath, "") }, expect: "from-token"},
	}

	for _, test := range cases {
		test.remove()
		token, err := NewResolver(telemetry.SlogAPI{}, DefaultSources()...).Resolve()
		require.NoError(t, err, test.name)
		require.Equal(t, test.expect, token.Value(), test.name)
	}

	t.Setenv(EnvToken, "")
	_, err := NewResolver(telemetry.SlogAPI{}, DefaultSources()...).Resolve()
	require.ErrorIs(t, err, ErrMissing)
}

func TestWhitespaceOnlyIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	writeToken(t, path, " \n\t\n")

	resolver := NewResolver(
		telemetry.SlogAPI{},
		FileSource("blank", path),
		Source{Name: "static", Lookup: func() (string, error) { return "\nabc123\n", nil }},
	)
	token, err := resolver.Resolve()
	require.NoError(t, err)
	require.Equal(t, "abc123", token.Value())
}

func TestResolveIsMemoized(t *testing.T) {
	calls := 0
	resolver := NewResolver(telemetry.SlogAPI{}, Source{
		Name: "counting",
		Lookup: func() (string, error) {
			calls++
			return "", nil
		},
	})

	_, err := resolver.Resolve()
	require.ErrorIs(t, err, ErrMissing)
	_, err = resolver.Resolve()
	require.ErrorIs(t, err, ErrMissing)
	require.Equal(t, 1, calls)
}

func TestReadErrorStopsResolution(t *testing.T) {
	rec := &telemetry.Recorder{}
	broken := errors.New("permission denied")
	resolver := NewResolver(
		rec,
		Source{Name: "unreadable", Lookup: func() (string, error) { return "", broken }},
		Source{Name: "static", Lookup: func() (string, error) { return "never", nil }},
	)

	_, err := resolver.Resolve()
	require.ErrorIs(t, err, broken)
	require.NotEmpty(t, rec.Broken(report_resolver_resolve))
}

func TestTokenIsRedacted(t *testing.T) {
	token := Token("secret")
	require.Equal(t, "<redacted>", token.String())
	require.Equal(t, "<redacted>", fmt.Sprint(token))
	require.Equal(t, "secret", token.Value())
}
