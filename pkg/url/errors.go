package url

import (
	"errors"
	"fmt"
)

// ErrInvalidURL matches every *Error via errors.Is.
var ErrInvalidURL = errors.New("invalid URL")

// Error reports a URL that could not be parsed.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("url: invalid URL %q: %s", e.Input, e.Reason)
}

func (e *Error) Is(target error) bool { return target == ErrInvalidURL }

func invalid(input, reason string) *Error {
	return &Error{Input: input, Reason: reason}
}
