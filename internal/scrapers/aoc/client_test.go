package aoc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"aocd/internal/components/chrono"
	"aocd/internal/components/telemetry"
	"aocd/internal/credential"
	"aocd/internal/puzzle"
	"aocd/lib/restyutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testToken = credential.Token("53616c7465645f5f")

var (
	day1 = puzzle.Key{Year: 2023, Day: 1}
	// a moment well after every 2023 puzzle was released
	afterEvent = chrono.FixedTime(time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC))
)

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*Options)) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := Options{
		BaseUrl:       server.URL,
		UserAgent:     "aocd-test",
		RetryAttempts: 3,
		RetryWait:     time.Millisecond,
		RetryMaxWait:  5 * time.Millisecond,
		Clock:         afterEvent,
	}
	for _, m := range mutate {
		m(&opts)
	}
	client, err := NewClient(opts, telemetry.SlogAPI{})
	require.NoError(t, err)
	return client
}

func writePage(w http.ResponseWriter, status int, body string) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestFetchInput(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/2023/day/1/input", r.URL.Path)
		require.Equal(t, "aocd-test", r.UserAgent())

		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		require.Equal(t, testToken.Value(), cookie.Value)

		w.Header().Set("content-type", "text/plain")
		fmt.Fprint(w, "1abc2\npqr3stu8vwx\n")
	}))

	input, err := client.FetchInput(context.Background(), day1, testToken)
	require.NoError(t, err)
	require.Equal(t, "1abc2\npqr3stu8vwx\n", input)
	require.Equal(t, int32(1), requests.Load())
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		expected error
		// number of requests the client should make
		requests int32
	}{
		{name: "bad request", status: 400, body: "Puzzle inputs differ by user.  Please log in to get your puzzle input.", expected: ErrAuthInvalid, requests: 1},
		{name: "unauthorized", status: 401, expected: ErrAuthInvalid, requests: 1},
		{name: "forbidden", status: 403, expected: ErrAuthInvalid, requests: 1},
		{name: "not found", status: 404, body: "Please don't repeatedly request this endpoint before it unlocks!", expected: ErrNotUnlocked, requests: 1},
		{name: "teapot", status: 418, expected: ErrServer, requests: 1},
		{name: "server error", status: 500, expected: ErrServer, requests: 3},
		{name: "bad gateway", status: 502, expected: ErrServer, requests: 3},
		{name: "login page", status: 200, body: "<html><body><main><p>To play, please identify yourself via one of these services:</p></main></body></html>", expected: ErrAuthInvalid, requests: 1},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			var requests atomic.Int32
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				writePage(w, test.status, test.body)
			}))

			_, err := client.FetchInput(context.Background(), day1, testToken)
			require.ErrorIs(t, err, test.expected)
			require.Equal(t, test.requests, requests.Load())
		})
	}
}

func TestRetryThenSuccess(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "12\n")
	}))

	input, err := client.FetchInput(context.Background(), day1, testToken)
	require.NoError(t, err)
	require.Equal(t, "12\n", input)
	require.Equal(t, int32(3), requests.Load())
}

func TestNoRetriesConfigured(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), func(o *Options) {
		o.RetryAttempts = 1
	})

	_, err := client.FetchInput(context.Background(), day1, testToken)
	require.ErrorIs(t, err, ErrServer)
	require.Equal(t, int32(1), requests.Load())
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Options{
		BaseUrl:       url,
		RetryAttempts: 2,
		RetryWait:     time.Millisecond,
		RetryMaxWait:  time.Millisecond,
		Clock:         afterEvent,
	}, telemetry.SlogAPI{})
	require.NoError(t, err)

	_, err = client.FetchInput(context.Background(), day1, testToken)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestNotUnlockedPrecheck(t *testing.T) {
	var requests atomic.Int32
	// ten minutes before the 2023 day 5 release
	beforeRelease := chrono.FixedTime(time.Date(2023, time.December, 4, 23, 50, 0, 0, chrono.EST()))
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}), func(o *Options) {
		o.Clock = beforeRelease
	})

	key := puzzle.Key{Year: 2023, Day: 5}
	_, err := client.FetchInput(context.Background(), key, testToken)
	require.ErrorIs(t, err, ErrNotUnlocked)
	require.ErrorContains(t, err, "10m0s")

	_, err = client.SubmitAnswer(context.Background(), key, 1, "42", testToken)
	require.ErrorIs(t, err, ErrNotUnlocked)

	require.Equal(t, int32(0), requests.Load())

	// day 4 is already out
	_, err = client.FetchInput(context.Background(), puzzle.Key{Year: 2023, Day: 4}, testToken)
	require.NoError(t, err)
	require.Equal(t, int32(1), requests.Load())
}

func TestSubmitAnswer(t *testing.T) {
	const page = `<html><body><main><article><p>That's the right answer!</p></article></main></body></html>`

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2023/day/1/answer", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "2", r.PostForm.Get("level"))
		require.Equal(t, "54331", r.PostForm.Get("answer"))
		writePage(w, http.StatusOK, page)
	}))

	body, err := client.SubmitAnswer(context.Background(), day1, 2, "54331", testToken)
	require.NoError(t, err)
	require.Equal(t, page, body)
}

func TestFetchSolvedAnswers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2023/day/1", r.URL.Path)
		writePage(w, http.StatusOK, `<html><body><main>
<article class="day-desc"><h2>--- Day 1: Trebuchet?! ---</h2></article>
<p>Your puzzle answer was <code>54331</code>.</p>
<article class="day-desc"><h2 id="part2">--- Part Two ---</h2></article>
<p>Your puzzle answer was <code>54518</code>.</p>
<p class="day-success">Both parts of this puzzle are complete! They provide two gold stars: **</p>
</main></body></html>`)
	}))

	answers, err := client.FetchSolvedAnswers(context.Background(), day1, testToken)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"54331", "54518"}, answers); diff != "" {
		t.Fatal("(-want +got)", diff)
	}
}

func TestHttpDumpRedactsCookie(t *testing.T) {
	dir := t.TempDir()
	output, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "1\n")
	}), func(o *Options) {
		o.Output = output
	})

	_, err = client.FetchInput(context.Background(), day1, testToken)
	require.NoError(t, err)

	dump, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(dump), "/2023/day/1/input")
	require.Contains(t, string(dump), "<NO BODY>")
	require.NotContains(t, string(dump), testToken.Value())
}
