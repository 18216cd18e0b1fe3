package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"aocd/internal/assert"
	"aocd/internal/cache"
	"aocd/internal/components/telemetry"
	"aocd/internal/credential"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_session_input  = "session.input"
	report_session_submit = "session.submit"
)

var (
	ErrLocalFileMissing          = errors.New("local input file not found")
	ErrAlreadySubmittedCorrectly = errors.New("part was already solved")
	ErrEmptyAnswer               = errors.New("answer is empty")
)

// Client is the subset of the puzzle site client a session needs.
type Client interface {
	FetchInput(ctx context.Context, key puzzle.Key, token credential.Token) (string, error)
	SubmitAnswer(ctx context.Context, key puzzle.Key, part int, answer string, token credential.Token) (string, error)
	FetchSolvedAnswers(ctx context.Context, key puzzle.Key, token credential.Token) ([]string, error)
}

type Resolver interface {
	Resolve() (credential.Token, error)
}

// Session answers Input and Submit for a single puzzle. When InputFile is
// set it runs in test mode: the input is read from that file and nothing is
// ever sent to the site or written to the cache.
type Session struct {
	Key       puzzle.Key
	InputFile string

	store    cache.Store
	client   Client
	resolver Resolver
	tel      telemetry.API

	submissions metric.Int64Counter
}

func New(
	key puzzle.Key,
	inputFile string,
	store cache.Store,
	client Client,
	resolver Resolver,
	tel telemetry.API,
) (*Session, error) {
	assert.NotNil(store)
	assert.NotNil(client)
	assert.NotNil(resolver)
	assert.NotNil(tel)

	err := key.Validate()
	if err != nil {
		return nil, err
	}

	submissions, err := otel.Meter("aocd/session").Int64Counter(
		"aocd.submissions",
		metric.WithDescription("answers sent to the puzzle site, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create submissions counter: %w", err)
	}

	return &Session{
		Key:         key,
		InputFile:   inputFile,
		store:       store,
		client:      client,
		resolver:    resolver,
		tel:         telemetry.NewScopedAPI("session", tel),
		submissions: submissions,
	}, nil
}

func (s *Session) TestMode() bool {
	return s.InputFile != ""
}

func (s *Session) Input(ctx context.Context) (string, error) {
	if s.TestMode() {
		contents, err := os.ReadFile(s.InputFile)
		if os.IsNotExist(err) {
			return "", fmt.Errorf("read local input: %w: %s", ErrLocalFileMissing, s.InputFile)
		}
		if err != nil {
			return "", fmt.Errorf("read local input: %w", err)
		}
		return string(contents), nil
	}

	text, ok, err := s.store.LoadInput(ctx, s.Key)
	if err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}
	if ok {
		s.tel.ReportDebug(report_session_input, "cache hit", s.Key.String())
		return text, nil
	}

	token, err := s.resolver.Resolve()
	if err != nil {
		return "", fmt.Errorf("credential: %w", err)
	}
	text, err = s.client.FetchInput(ctx, s.Key, token)
	if err != nil {
		return "", fmt.Errorf("fetch input: %w", err)
	}
	err = s.store.StoreInput(ctx, s.Key, text)
	if err != nil {
		return "", fmt.Errorf("cache: %w", err)
	}
	return text, nil
}

// NormalizeAnswer is the literal text of an answer with surrounding
// whitespace removed, "042" and "42" stay distinct.
func NormalizeAnswer(answer any) string {
	return strings.TrimSpace(fmt.Sprint(answer))
}

func (s *Session) Submit(ctx context.Context, part int, answer any) (outcome.Outcome, error) {
	err := puzzle.ValidatePart(part)
	if err != nil {
		return outcome.Outcome{}, err
	}
	text := NormalizeAnswer(answer)
	if text == "" {
		return outcome.Outcome{}, ErrEmptyAnswer
	}

	if s.TestMode() {
		return outcome.LocalTestMode(), nil
	}

	attempts, err := s.store.LoadAttempts(ctx, s.Key, part)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("cache: %w", err)
	}
	if solved, ok := FindAccepted(attempts); ok {
		return outcome.Outcome{}, fmt.Errorf(
			"%w: %s part %d was accepted with answer %q",
			ErrAlreadySubmittedCorrectly, s.Key, part, solved,
		)
	}
	if prior, ok := cache.FindSettled(attempts, text); ok {
		s.tel.ReportDebug(report_session_submit, "answer already submitted", s.Key.String(), part, text)
		return prior.Outcome, nil
	}

	token, err := s.resolver.Resolve()
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("credential: %w", err)
	}
	raw, err := s.client.SubmitAnswer(ctx, s.Key, part, text, token)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("submit: %w", err)
	}

	result := outcome.Classify(raw)
	if result.Kind == outcome.Unrecognized {
		s.tel.ReportWarning(report_session_submit, "unrecognized response", s.Key.String(), part)
	}
	if result.Kind == outcome.AlreadySolved && result.Previous == "" {
		result.Previous = s.solvedAnswers(ctx, part, token)
	}
	s.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", result.Kind.String()),
	))

	recorded, err := s.store.RecordAttempt(ctx, s.Key, part, text, result)
	if err != nil {
		return result, fmt.Errorf("cache: %w", err)
	}
	return recorded.Outcome, nil
}

// solvedAnswers looks up the answers the site accepted for a part we have no
// record of solving. The other parts' answers are recorded as already solved
// so later submissions for them never reach the site. Failures only lose the
// value, the verdict still stands.
func (s *Session) solvedAnswers(ctx context.Context, part int, token credential.Token) string {
	answers, err := s.client.FetchSolvedAnswers(ctx, s.Key, token)
	if err != nil {
		s.tel.ReportWarning(report_session_submit, fmt.Errorf("fetch solved answers: %w", err), s.Key.String())
		return ""
	}

	for i, answer := range answers {
		other := i + 1
		if other == part || puzzle.ValidatePart(other) != nil {
			continue
		}
		s.recordSolved(ctx, other, answer)
	}

	if len(answers) < part {
		return ""
	}
	return answers[part-1]
}

func (s *Session) recordSolved(ctx context.Context, part int, answer string) {
	attempts, err := s.store.LoadAttempts(ctx, s.Key, part)
	if err != nil {
		s.tel.ReportWarning(report_session_submit, fmt.Errorf("cache: %w", err), s.Key.String(), part)
		return
	}
	if _, ok := cache.FindTerminal(attempts); ok {
		return
	}
	_, err = s.store.RecordAttempt(ctx, s.Key, part, answer, outcome.Outcome{
		Kind:     outcome.AlreadySolved,
		Previous: answer,
	})
	if err != nil {
		s.tel.ReportWarning(report_session_submit, fmt.Errorf("cache: %w", err), s.Key.String(), part)
	}
}

// FindAccepted returns the answer of the first terminal attempt, for an
// already solved verdict that is the answer the site reported (when known).
func FindAccepted(attempts []cache.Attempt) (string, bool) {
	a, ok := cache.FindTerminal(attempts)
	if !ok {
		return "", false
	}
	if a.Outcome.Kind == outcome.AlreadySolved && a.Outcome.Previous != "" {
		return a.Outcome.Previous, true
	}
	return a.Answer, true
}

// History lists every attempt recorded for a part, oldest first.
func (s *Session) History(ctx context.Context, part int) ([]cache.Attempt, error) {
	err := puzzle.ValidatePart(part)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.LoadAttempts(ctx, s.Key, part)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return attempts, nil
}
