package http

import (
	"bytes"
	"io"

	"github.com/shapestone/shape-wire/internal/fastparser"
)

// Validate checks that input holds at least one complete, well-framed
// HTTP/1.x message per RFC 9112: start line, header fields and body framing.
// Returns nil if valid, or a *ParseError identifying the problem.
func Validate(input string) error {
	return validate([]byte(input))
}

// ValidateReader reads all data from r and validates it as an HTTP/1.x message.
// See Validate for the validation semantics.
func ValidateReader(r io.Reader) error {
	data, err := readAll(r)
	if err != nil {
		return err
	}
	return validate(data)
}

func validate(data []byte) error {
	return wrapParseError(fastparser.Validate(data))
}

// readAll reads all data from r.
func readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
