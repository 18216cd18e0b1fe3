// Package cache persists puzzle inputs and every answer submitted for them.
//
// Records are only ever appended, nothing is evicted or rewritten: an input
// is written once and an attempt log only grows.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aocd/internal/outcome"
	"aocd/internal/puzzle"
)

const (
	report_store_input   = "store.input"
	report_store_attempt = "store.attempt"
)

var (
	// ErrConflict is returned when a different input is stored for a key
	// that already has one, the site promises inputs never change.
	ErrConflict = errors.New("cached input differs from fetched input")
	// ErrIO matches every *IOError.
	ErrIO = errors.New("cache i/o failed")
)

// IOError wraps a storage failure. A store never turns one of these into a
// cache miss.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// Attempt is one submitted answer and what the site said about it.
type Attempt struct {
	Answer  string
	Outcome outcome.Outcome
	Time    time.Time
}

// Store is implemented by FSStore and SQLStore.
type Store interface {
	// LoadInput returns ok=false on a miss.
	LoadInput(ctx context.Context, key puzzle.Key) (text string, ok bool, err error)
	// StoreInput writes the input for key. Storing the same text again is a
	// no-op, storing different text returns ErrConflict.
	StoreInput(ctx context.Context, key puzzle.Key, text string) error
	// LoadAttempts returns the attempts for a part, oldest first.
	LoadAttempts(ctx context.Context, key puzzle.Key, part int) ([]Attempt, error)
	// RecordAttempt appends an attempt. If a settled attempt with the same
	// literal answer already exists it is returned and nothing is appended.
	RecordAttempt(ctx context.Context, key puzzle.Key, part int, answer string, result outcome.Outcome) (Attempt, error)
}

// FindSettled returns the first settled attempt with exactly this answer.
func FindSettled(attempts []Attempt, answer string) (Attempt, bool) {
	for _, a := range attempts {
		if a.Answer == answer && a.Outcome.Settled() {
			return a, true
		}
	}
	return Attempt{}, false
}

// FindTerminal returns the first attempt that solved the part.
func FindTerminal(attempts []Attempt) (Attempt, bool) {
	for _, a := range attempts {
		if a.Outcome.Terminal() {
			return a, true
		}
	}
	return Attempt{}, false
}
