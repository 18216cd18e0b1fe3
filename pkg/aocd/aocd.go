// Package aocd fetches Advent of Code inputs and submits answers, caching
// both on disk so a solution can be re-run freely without hitting the site.
//
//	s, err := aocd.New(2023, 1, aocd.Options{})
//	if err != nil {
//		...
//	}
//	defer s.Close()
//	input := s.MustInput()
//	...
//	fmt.Println(s.MustSubmit(1, answer))
//
// Setting Options.InputFile runs the session in test mode: the input comes
// from that file and answers are never sent.
package aocd

import (
	"context"
	"fmt"
	"io"

	"aocd/internal/cache"
	"aocd/internal/components/telemetry"
	"aocd/internal/config"
	"aocd/internal/credential"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"
	"aocd/internal/scrapers/aoc"
	"aocd/internal/session"
	"aocd/lib/restyutil"
	"aocd/lib/serviceutil"
)

var (
	ErrCredentialMissing         = credential.ErrMissing
	ErrCacheIO                   = cache.ErrIO
	ErrCacheConflict             = cache.ErrConflict
	ErrNotUnlocked               = aoc.ErrNotUnlocked
	ErrAuthInvalid               = aoc.ErrAuthInvalid
	ErrNetwork                   = aoc.ErrNetwork
	ErrServer                    = aoc.ErrServer
	ErrLocalFileMissing          = session.ErrLocalFileMissing
	ErrAlreadySubmittedCorrectly = session.ErrAlreadySubmittedCorrectly
	ErrEmptyAnswer               = session.ErrEmptyAnswer
	ErrInvalidPuzzle             = puzzle.ErrInvalidKey
	ErrInvalidPart               = puzzle.ErrInvalidPart
)

type (
	Outcome = outcome.Outcome
	Kind    = outcome.Kind
	Attempt = cache.Attempt
)

const (
	Unrecognized  = outcome.Unrecognized
	Correct       = outcome.Correct
	Incorrect     = outcome.Incorrect
	TooLow        = outcome.TooLow
	TooHigh       = outcome.TooHigh
	AlreadySolved = outcome.AlreadySolved
	RateLimited   = outcome.RateLimited
)

type Options struct {
	// InputFile switches the session to test mode.
	InputFile string
	// ConfigPath defaults to $XDG_CONFIG_HOME/aocd/config.json5.
	ConfigPath string
	// HttpDump overrides the http_dump directory of the config file.
	HttpDump string
}

type Session struct {
	inner *session.Session
	store cache.Store
}

// New loads the configuration and wires a session for the given puzzle.
// Nothing is fetched and the credential is not looked up until it is needed.
func New(year, day int, opts Options) (*Session, error) {
	return NewWithContext(context.Background(), year, day, opts)
}

func NewWithContext(ctx context.Context, year, day int, opts Options) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.HttpDump != "" {
		cfg.HttpDump = opts.HttpDump
	}
	return NewFromConfig(ctx, puzzle.Key{Year: year, Day: day}, opts.InputFile, cfg, telemetry.SlogAPI{})
}

// NewFromConfig builds a session from an already loaded configuration.
func NewFromConfig(ctx context.Context, key puzzle.Key, inputFile string, cfg config.Config, tel telemetry.API) (*Session, error) {
	err := key.Validate()
	if err != nil {
		return nil, err
	}

	wait, err := cfg.Retry.WaitDuration()
	if err != nil {
		return nil, err
	}
	maxWait, err := cfg.Retry.MaxWaitDuration()
	if err != nil {
		return nil, err
	}

	clientOpts := aoc.Options{
		BaseUrl:       cfg.BaseUrl,
		UserAgent:     cfg.UserAgent,
		RateLimit:     cfg.Rate(),
		RetryAttempts: cfg.Retry.Attempts,
		RetryWait:     wait,
		RetryMaxWait:  maxWait,
	}
	if cfg.HttpDump != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.HttpDump)
		if err != nil {
			return nil, err
		}
		clientOpts.Output = output
	}
	client, err := aoc.NewClient(clientOpts, tel)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	store, err := cache.Open(ctx, cfg.Cache, tel)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	resolver := credential.NewResolver(tel, credential.DefaultSources()...)

	inner, err := session.New(key, inputFile, store, client, resolver, tel)
	if err != nil {
		closeStore(store)
		return nil, err
	}
	return &Session{inner: inner, store: store}, nil
}

func closeStore(store cache.Store) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Close releases the cache, only the sqlite backend holds anything open.
func (s *Session) Close() error {
	return closeStore(s.store)
}

func (s *Session) Year() int {
	return s.inner.Key.Year
}

func (s *Session) Day() int {
	return s.inner.Key.Day
}

// Input returns the puzzle input, from the cache when possible.
func (s *Session) Input(ctx context.Context) (string, error) {
	return s.inner.Input(ctx)
}

// Submit sends an answer unless the verdict for it is already known.
// The answer is sent as the trimmed fmt.Sprint text of the value.
func (s *Session) Submit(ctx context.Context, part int, answer any) (Outcome, error) {
	return s.inner.Submit(ctx, part, answer)
}

// History lists the recorded attempts for a part, oldest first.
func (s *Session) History(ctx context.Context, part int) ([]Attempt, error) {
	return s.inner.History(ctx, part)
}

// MustInput is Input for use in a solution's main, any error is fatal.
func (s *Session) MustInput() string {
	text, err := s.Input(context.Background())
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("aocd: %s: could not get input", s.inner.Key), err)
	}
	return text
}

// MustSubmit is Submit for use in a solution's main, any error is fatal,
// including a part that was already solved.
func (s *Session) MustSubmit(part int, answer any) Outcome {
	result, err := s.Submit(context.Background(), part, answer)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("aocd: %s: could not submit part %d", s.inner.Key, part), err)
	}
	return result
}
