// Package outcome models what the puzzle site said about a submitted answer
// and classifies the site's free-text responses into that model.
package outcome

import (
	"fmt"
	"time"
)

type Kind int

const (
	Unrecognized Kind = iota
	Correct
	Incorrect
	TooLow
	TooHigh
	AlreadySolved
	RateLimited
)

var kindTags = map[Kind]string{
	Unrecognized:  "unrecognized",
	Correct:       "correct",
	Incorrect:     "incorrect",
	TooLow:        "too_low",
	TooHigh:       "too_high",
	AlreadySolved: "already_solved",
	RateLimited:   "rate_limited",
}

// String returns the stable tag of the kind, this is what gets persisted.
func (k Kind) String() string {
	tag, ok := kindTags[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return tag
}

// ParseKind is the inverse of Kind.String.
func ParseKind(tag string) (Kind, error) {
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}
	return Unrecognized, fmt.Errorf("unknown outcome tag %q", tag)
}

// DefaultWait is assumed when a rate limit response does not say how long to wait.
const DefaultWait = time.Minute

// TestModeMessage is the raw text of the outcome reported for submissions
// made while reading input from a local file.
const TestModeMessage = "<local test mode — not submitted>"

type Outcome struct {
	Kind Kind
	// Previous is the answer the site had already accepted, only set for AlreadySolved
	// and only when it is known.
	Previous string
	// Wait is how long the site asked to wait, only set for RateLimited.
	Wait time.Duration
	// Raw is the unclassified response, only set for Unrecognized.
	Raw string
}

// LocalTestMode is the outcome of a submission that was never sent.
func LocalTestMode() Outcome {
	return Outcome{Kind: Unrecognized, Raw: TestModeMessage}
}

// Terminal outcomes mean the part is solved, nothing else should be submitted for it.
func (o Outcome) Terminal() bool {
	return o.Kind == Correct || o.Kind == AlreadySolved
}

// Settled outcomes are a definitive verdict on the literal answer submitted,
// resubmitting the same answer can never produce a different result.
func (o Outcome) Settled() bool {
	return o.Kind != RateLimited && o.Kind != Unrecognized
}

func (o Outcome) String() string {
	switch o.Kind {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case TooLow:
		return "incorrect, too low"
	case TooHigh:
		return "incorrect, too high"
	case AlreadySolved:
		if o.Previous == "" {
			return "already solved"
		}
		return fmt.Sprintf("already solved with answer %s", o.Previous)
	case RateLimited:
		return fmt.Sprintf("rate limited, wait %s", o.Wait)
	default:
		return fmt.Sprintf("unrecognized response: %s", o.Raw)
	}
}
