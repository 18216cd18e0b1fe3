// Package puzzle identifies a single daily puzzle.
package puzzle

import (
	"errors"
	"fmt"
)

const (
	FirstYear = 2015
	LastDay   = 25
)

var (
	ErrInvalidKey  = errors.New("invalid puzzle")
	ErrInvalidPart = errors.New("invalid part")
)

type Key struct {
	Year int
	Day  int
}

func (k Key) Validate() error {
	if k.Year < FirstYear {
		return fmt.Errorf("%w: year %d is before %d", ErrInvalidKey, k.Year, FirstYear)
	}
	if k.Day < 1 || k.Day > LastDay {
		return fmt.Errorf("%w: day %d is not between 1 and %d", ErrInvalidKey, k.Day, LastDay)
	}
	return nil
}

// String is the key's file name form, ex. 2023-01.
func (k Key) String() string {
	return fmt.Sprintf("%d-%02d", k.Year, k.Day)
}

func ValidatePart(part int) error {
	if part != 1 && part != 2 {
		return fmt.Errorf("%w: %d, must be 1 or 2", ErrInvalidPart, part)
	}
	return nil
}
