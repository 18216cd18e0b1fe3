package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aocd/internal/cache"
	"aocd/internal/components/telemetry"
	"aocd/internal/credential"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"
	"aocd/internal/scrapers/aoc"

	"github.com/stretchr/testify/require"
)

var day1 = puzzle.Key{Year: 2023, Day: 1}

// fakeClient serves canned pages and counts what was asked of it. Answers
// missing from pages are incorrect.
type fakeClient struct {
	input     string
	inputErr  error
	pages     map[string]string
	solved    []string
	solvedErr error

	fetches      int
	submissions  []string
	solvedChecks int
}

func (c *fakeClient) FetchInput(_ context.Context, _ puzzle.Key, _ credential.Token) (string, error) {
	c.fetches++
	return c.input, c.inputErr
}

func (c *fakeClient) SubmitAnswer(_ context.Context, _ puzzle.Key, _ int, answer string, _ credential.Token) (string, error) {
	c.submissions = append(c.submissions, answer)
	page, ok := c.pages[answer]
	if !ok {
		page = "<article><p>That's not the right answer.</p></article>"
	}
	return page, nil
}

func (c *fakeClient) FetchSolvedAnswers(_ context.Context, _ puzzle.Key, _ credential.Token) ([]string, error) {
	c.solvedChecks++
	return c.solved, c.solvedErr
}

type fakeResolver struct {
	token credential.Token
	err   error
	calls int
}

func (r *fakeResolver) Resolve() (credential.Token, error) {
	r.calls++
	return r.token, r.err
}

type fixture struct {
	session  *Session
	client   *fakeClient
	resolver *fakeResolver
	store    cache.Store
}

func newFixture(t *testing.T, inputFile string) fixture {
	store, err := cache.NewFSStore(t.TempDir(), telemetry.SlogAPI{})
	require.NoError(t, err)
	client := &fakeClient{
		input: "1abc2\npqr3stu8vwx\n",
		pages: map[string]string{},
	}
	resolver := &fakeResolver{token: "token"}
	session, err := New(day1, inputFile, store, client, resolver, telemetry.SlogAPI{})
	require.NoError(t, err)
	return fixture{session: session, client: client, resolver: resolver, store: store}
}

func TestNewRejectsInvalidKey(t *testing.T) {
	store, err := cache.NewFSStore(t.TempDir(), telemetry.SlogAPI{})
	require.NoError(t, err)
	_, err = New(puzzle.Key{Year: 2023, Day: 26}, "", store, &fakeClient{}, &fakeResolver{}, telemetry.SlogAPI{})
	require.ErrorIs(t, err, puzzle.ErrInvalidKey)
}

func TestInputIsFetchedOnce(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	first, err := f.session.Input(ctx)
	require.NoError(t, err)
	second, err := f.session.Input(ctx)
	require.NoError(t, err)

	require.Equal(t, "1abc2\npqr3stu8vwx\n", first)
	require.Equal(t, first, second)
	require.Equal(t, 1, f.client.fetches)
}

func TestInputErrorsNameTheStep(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(f fixture)
		expected error
		step     string
	}{
		{
			name:     "missing credential",
			mutate:   func(f fixture) { f.resolver.err = credential.ErrMissing },
			expected: credential.ErrMissing,
			step:     "credential: ",
		},
		{
			name:     "locked puzzle",
			mutate:   func(f fixture) { f.client.inputErr = aoc.ErrNotUnlocked },
			expected: aoc.ErrNotUnlocked,
			step:     "fetch input: ",
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t, "")
			test.mutate(f)
			_, err := f.session.Input(context.Background())
			require.ErrorIs(t, err, test.expected)
			require.Contains(t, err.Error(), test.step)
		})
	}
}

func TestInputConflictIsNotOverwritten(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	// another process stored a different input between our miss and our write
	store := &racingStore{Store: f.store, other: "9\n"}
	session, err := New(day1, "", store, f.client, f.resolver, telemetry.SlogAPI{})
	require.NoError(t, err)

	_, err = session.Input(ctx)
	require.ErrorIs(t, err, cache.ErrConflict)
	require.Contains(t, err.Error(), "cache: ")

	text, ok, err := f.store.LoadInput(ctx, day1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "9\n", text)
}

// racingStore lets another writer store `other` right before the
// caller's write.
type racingStore struct {
	cache.Store
	other string
}

func (s *racingStore) StoreInput(ctx context.Context, key puzzle.Key, text string) error {
	err := s.Store.StoreInput(ctx, key, s.other)
	if err != nil {
		return err
	}
	return s.Store.StoreInput(ctx, key, text)
}

func TestSubmitIsIdempotent(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["100"] = "<article><p>That's not the right answer; your answer is too low.</p></article>"

	first, err := f.session.Submit(ctx, 1, 100)
	require.NoError(t, err)
	require.Equal(t, outcome.TooLow, first.Kind)

	second, err := f.session.Submit(ctx, 1, " 100\n")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []string{"100"}, f.client.submissions)

	// a different literal is a different answer
	_, err = f.session.Submit(ctx, 1, "0100")
	require.NoError(t, err)
	require.Equal(t, []string{"100", "0100"}, f.client.submissions)
}

func TestRateLimitedAnswerIsRetried(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["7"] = "<article><p>You gave an answer too recently; you have to wait after submitting an answer before trying again.  You have 30s left to wait.</p></article>"

	result, err := f.session.Submit(ctx, 1, 7)
	require.NoError(t, err)
	require.Equal(t, outcome.RateLimited, result.Kind)

	f.client.pages["7"] = "<article><p>That's not the right answer.</p></article>"
	result, err = f.session.Submit(ctx, 1, 7)
	require.NoError(t, err)
	require.Equal(t, outcome.Incorrect, result.Kind)
	require.Equal(t, []string{"7", "7"}, f.client.submissions)
}

func TestTerminalShortCircuit(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["54331"] = "<article><p>That's the right answer!  You are one gold star closer.</p></article>"

	result, err := f.session.Submit(ctx, 1, 54331)
	require.NoError(t, err)
	require.Equal(t, outcome.Correct, result.Kind)

	for _, answer := range []any{54331, 12} {
		_, err = f.session.Submit(ctx, 1, answer)
		require.ErrorIs(t, err, ErrAlreadySubmittedCorrectly)
		require.ErrorContains(t, err, `"54331"`)
	}
	require.Equal(t, []string{"54331"}, f.client.submissions)

	// part 2 is unaffected
	_, err = f.session.Submit(ctx, 2, 12)
	require.NoError(t, err)
	require.Equal(t, []string{"54331", "12"}, f.client.submissions)
}

func TestAlreadySolvedFillsPreviousAnswer(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["1"] = "<article><p>You don't seem to be solving the right level.  Did you already complete it?</p></article>"
	f.client.solved = []string{"54331", "54518"}

	result, err := f.session.Submit(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, outcome.AlreadySolved, result.Kind)
	require.Equal(t, "54518", result.Previous)
	require.Equal(t, 1, f.client.solvedChecks)

	_, err = f.session.Submit(ctx, 2, 2)
	require.ErrorIs(t, err, ErrAlreadySubmittedCorrectly)
	require.ErrorContains(t, err, `"54518"`)

	// part 1's accepted answer came with the same page
	_, err = f.session.Submit(ctx, 1, 3)
	require.ErrorIs(t, err, ErrAlreadySubmittedCorrectly)
	require.ErrorContains(t, err, `"54331"`)
	require.Equal(t, []string{"1"}, f.client.submissions)
	require.Equal(t, 1, f.client.solvedChecks)

	attempts, err := f.session.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, "54331", attempts[0].Answer)
	require.Equal(t, outcome.AlreadySolved, attempts[0].Outcome.Kind)
}

func TestAlreadySolvedKeepsExistingRecordOfOtherPart(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["54331"] = "<article><p>That's the right answer!  You are one gold star closer.</p></article>"
	f.client.pages["1"] = "<article><p>You don't seem to be solving the right level.  Did you already complete it?</p></article>"
	f.client.solved = []string{"54331", "54518"}

	_, err := f.session.Submit(ctx, 1, 54331)
	require.NoError(t, err)
	_, err = f.session.Submit(ctx, 2, 1)
	require.NoError(t, err)

	attempts, err := f.session.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Equal(t, outcome.Correct, attempts[0].Outcome.Kind)
}

func TestAlreadySolvedLookupFailureKeepsVerdict(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	f.client.pages["1"] = "<article><p>You don't seem to be solving the right level.  Did you already complete it?</p></article>"
	f.client.solvedErr = errors.New("boom")

	result, err := f.session.Submit(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, outcome.AlreadySolved, result.Kind)
	require.Empty(t, result.Previous)

	attempts, err := f.session.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.session.Submit(ctx, 3, 1)
	require.ErrorIs(t, err, puzzle.ErrInvalidPart)

	_, err = f.session.Submit(ctx, 1, "  \n")
	require.ErrorIs(t, err, ErrEmptyAnswer)

	_, err = f.session.History(ctx, 0)
	require.ErrorIs(t, err, puzzle.ErrInvalidPart)

	require.Empty(t, f.client.submissions)
}

func TestSubmitMissingCredential(t *testing.T) {
	f := newFixture(t, "")
	f.resolver.err = credential.ErrMissing

	_, err := f.session.Submit(context.Background(), 1, 5)
	require.ErrorIs(t, err, credential.ErrMissing)
	require.ErrorContains(t, err, "credential: ")

	attempts, err := f.session.History(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, attempts)
}

func TestTestModeIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.txt")
	require.NoError(t, os.WriteFile(path, []byte("two1nine\n"), 0600))

	f := newFixture(t, path)
	ctx := context.Background()

	input, err := f.session.Input(ctx)
	require.NoError(t, err)
	require.Equal(t, "two1nine\n", input)

	result, err := f.session.Submit(ctx, 1, 281)
	require.NoError(t, err)
	require.Equal(t, outcome.LocalTestMode(), result)

	require.Equal(t, 0, f.client.fetches)
	require.Empty(t, f.client.submissions)
	require.Equal(t, 0, f.resolver.calls)

	_, ok, err := f.store.LoadInput(ctx, day1)
	require.NoError(t, err)
	require.False(t, ok)
	attempts, err := f.store.LoadAttempts(ctx, day1, 1)
	require.NoError(t, err)
	require.Empty(t, attempts)
}

func TestTestModeMissingFile(t *testing.T) {
	f := newFixture(t, filepath.Join(t.TempDir(), "missing.txt"))

	_, err := f.session.Input(context.Background())
	require.ErrorIs(t, err, ErrLocalFileMissing)
	require.ErrorContains(t, err, "read local input: ")
	require.Equal(t, 0, f.client.fetches)
}
