// client.go talks to the puzzle site itself: fetching inputs, posting answers
// and reading back answers accepted in the past. It does not interpret the
// verdict pages, that is left to the outcome package.

package aoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aocd/internal/assert"
	"aocd/internal/components/chrono"
	"aocd/internal/components/telemetry"
	"aocd/internal/credential"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"
	"aocd/lib/restyutil"
	"aocd/lib/textutil"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_fetch_input          = "client.fetch-input"
	report_client_submit_answer        = "client.submit-answer"
	report_client_fetch_solved_answers = "client.fetch-solved-answers"
)

var (
	ErrNotUnlocked = errors.New("puzzle is not unlocked yet")
	ErrAuthInvalid = errors.New("session token was rejected")
	ErrNetwork     = errors.New("could not reach the puzzle server")
	ErrServer      = errors.New("puzzle server error")
)

// bodies the site serves to visitors without a valid session
var loginPhrases = []string{
	"please log in",
	"please identify yourself",
}

type Options struct {
	BaseUrl   string
	UserAgent string
	// RateLimit is in requests per second, 0 disables limiting.
	RateLimit float64

	// RetryAttempts counts the first try, so 1 disables retries.
	RetryAttempts int
	RetryWait     time.Duration
	RetryMaxWait  time.Duration

	// Output receives a dump of every http exchange, it may be nil.
	Output restyutil.InstrumentOutput
	// Clock decides whether a puzzle has been released, defaults to the system clock.
	Clock chrono.TimeAPI
}

type Client struct {
	http  *resty.Client
	clock chrono.TimeAPI
	tel   telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("aoc_client", tel)

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = chrono.NewStandardTime()
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	if opts.RetryAttempts > 1 {
		httpClient.SetRetryCount(opts.RetryAttempts - 1)
		httpClient.SetRetryWaitTime(opts.RetryWait)
		httpClient.SetRetryMaxWaitTime(opts.RetryMaxWait)
		httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res != nil && res.StatusCode() >= 500
		})
	}

	if opts.RateLimit > 0 {
		// burst of 1 keeps requests evenly spaced
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &Client{
		http:  httpClient,
		clock: clock,
		tel:   tel,
	}, nil
}

func (c *Client) request(ctx context.Context, token credential.Token) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetCookie(&http.Cookie{Name: "session", Value: token.Value()})
}

// checkUnlocked avoids a request for a puzzle that cannot exist yet.
func (c *Client) checkUnlocked(key puzzle.Key) error {
	if chrono.Unlocked(c.clock, key.Year, key.Day) {
		return nil
	}
	return fmt.Errorf(
		"%w: %s unlocks at %s (in %s)",
		ErrNotUnlocked,
		key,
		chrono.UnlockTime(key.Year, key.Day).Format(time.RFC1123),
		chrono.UntilUnlock(c.clock, key.Year, key.Day).Round(time.Second),
	)
}

// checkResponse maps a finished exchange to one of the client errors.
func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	status := res.StatusCode()
	switch {
	case status == http.StatusBadRequest,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden:
		return fmt.Errorf("%w (%s)", ErrAuthInvalid, res.Status())
	case status == http.StatusNotFound:
		return fmt.Errorf("%w (%s)", ErrNotUnlocked, res.Status())
	case status >= 500:
		return fmt.Errorf("%w (%s)", ErrServer, res.Status())
	case status < 200 || status >= 300:
		return fmt.Errorf("%w: unexpected status %s", ErrServer, res.Status())
	}

	// inputs are served as text/plain, only pages can be a login prompt
	if !strings.HasPrefix(res.Header().Get("content-type"), "text/html") {
		return nil
	}
	if textutil.ContainsAny(textutil.Normalize(string(res.Body())), loginPhrases) {
		return fmt.Errorf("%w: server asked to log in", ErrAuthInvalid)
	}
	return nil
}

// FetchInput downloads the puzzle input exactly as served.
func (c *Client) FetchInput(ctx context.Context, key puzzle.Key, token credential.Token) (string, error) {
	err := c.checkUnlocked(key)
	if err != nil {
		return "", err
	}

	res, err := c.request(ctx, token).
		Get(fmt.Sprintf("/%d/day/%d/input", key.Year, key.Day))
	err = checkResponse(res, err)
	if err != nil {
		c.reportFailure(report_client_fetch_input, err, key)
		return "", err
	}
	return string(res.Body()), nil
}

// SubmitAnswer posts an answer for the given part and returns the verdict
// page unparsed.
func (c *Client) SubmitAnswer(ctx context.Context, key puzzle.Key, part int, answer string, token credential.Token) (string, error) {
	err := c.checkUnlocked(key)
	if err != nil {
		return "", err
	}

	res, err := c.request(ctx, token).
		SetFormData(map[string]string{
			"level":  fmt.Sprint(part),
			"answer": answer,
		}).
		Post(fmt.Sprintf("/%d/day/%d/answer", key.Year, key.Day))
	err = checkResponse(res, err)
	if err != nil {
		c.reportFailure(report_client_submit_answer, err, key)
		return "", err
	}
	return string(res.Body()), nil
}

// FetchSolvedAnswers reads the puzzle page and returns the answers the site
// lists as accepted, part 1 first.
func (c *Client) FetchSolvedAnswers(ctx context.Context, key puzzle.Key, token credential.Token) ([]string, error) {
	err := c.checkUnlocked(key)
	if err != nil {
		return nil, err
	}

	res, err := c.request(ctx, token).
		Get(fmt.Sprintf("/%d/day/%d", key.Year, key.Day))
	err = checkResponse(res, err)
	if err != nil {
		c.reportFailure(report_client_fetch_solved_answers, err, key)
		return nil, err
	}

	answers := outcome.ExtractSolvedAnswers(string(res.Body()))
	c.tel.ReportDebug(report_client_fetch_solved_answers, key.String(), len(answers))
	return answers, nil
}

// reportFailure reports failures that point at a problem on our side or the
// server's, expected conditions like a locked puzzle are left to the caller.
func (c *Client) reportFailure(id string, err error, key puzzle.Key) {
	switch {
	case errors.Is(err, ErrNotUnlocked), errors.Is(err, ErrAuthInvalid):
		c.tel.ReportDebug(id, err, key.String())
	case errors.Is(err, ErrNetwork):
		c.tel.ReportWarning(id, err, key.String())
	default:
		c.tel.ReportBroken(id, err, key.String())
	}
}
