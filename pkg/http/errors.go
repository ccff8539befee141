package http

import (
	"errors"
	"fmt"

	"github.com/shapestone/shape-wire/internal/fastparser"
)

// ParseErrorKind classifies a parse failure.
type ParseErrorKind = fastparser.ErrorKind

const (
	InvalidURL         = fastparser.InvalidURL
	InvalidHeaderValue = fastparser.InvalidHeaderValue
	MalformedHeader    = fastparser.MalformedHeader
	MalformedChunk     = fastparser.MalformedChunk
	AmbiguousFraming   = fastparser.AmbiguousFraming
	TooLarge           = fastparser.TooLarge
	MalformedStartLine = fastparser.MalformedStartLine
	Truncated          = fastparser.Truncated
)

// Section names the part of a message where a parse error occurred.
type Section = fastparser.Section

const (
	SectionStartLine = fastparser.SectionStartLine
	SectionHeaders   = fastparser.SectionHeaders
	SectionBody      = fastparser.SectionBody
	SectionTrailers  = fastparser.SectionTrailers
)

// Sentinels matched by errors.Is against a *ParseError of the same kind.
var (
	ErrInvalidURL         = errors.New("http: invalid url")
	ErrInvalidHeaderValue = errors.New("http: invalid header value")
	ErrMalformedHeader    = errors.New("http: malformed header")
	ErrMalformedChunk     = errors.New("http: malformed chunk")
	ErrAmbiguousFraming   = errors.New("http: ambiguous framing")
	ErrTooLarge           = errors.New("http: message too large")
	ErrMalformedStartLine = errors.New("http: malformed start line")
	ErrTruncated          = errors.New("http: truncated message")
)

var parseSentinels = map[ParseErrorKind]error{
	InvalidURL:         ErrInvalidURL,
	InvalidHeaderValue: ErrInvalidHeaderValue,
	MalformedHeader:    ErrMalformedHeader,
	MalformedChunk:     ErrMalformedChunk,
	AmbiguousFraming:   ErrAmbiguousFraming,
	TooLarge:           ErrTooLarge,
	MalformedStartLine: ErrMalformedStartLine,
	Truncated:          ErrTruncated,
}

// ParseError represents an error that occurred during HTTP message parsing.
type ParseError struct {
	Kind     ParseErrorKind
	Section  Section
	Message  string // human-readable error message
	Line     int    // 1-indexed line number where error occurred (0 if unknown)
	Position int64  // byte offset in input (0 if unknown)
	Err      error  // underlying cause, if any
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("http: %s at line %d: %s", e.Kind, e.Line, e.Message)
	}
	if e.Position > 0 {
		return fmt.Sprintf("http: %s at position %d: %s", e.Kind, e.Position, e.Message)
	}
	return fmt.Sprintf("http: %s: %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	s, ok := parseSentinels[e.Kind]
	return ok && s == target
}

func newParseError(kind ParseErrorKind, msg string) *ParseError {
	return &ParseError{Kind: kind, Message: msg}
}

// wrapParseError converts a fastparser error, passing other errors through.
func wrapParseError(err error) error {
	var fe *fastparser.Error
	if errors.As(err, &fe) {
		return &ParseError{
			Kind:     fe.Kind,
			Section:  fe.Section,
			Message:  fe.Msg,
			Line:     fe.Line,
			Position: fe.Pos,
		}
	}
	return err
}

// SerializeErrorKind classifies a serialization failure.
type SerializeErrorKind uint8

const (
	ContentLengthMismatch SerializeErrorKind = iota + 1
	UnframeableBody
	InvalidMessage
)

func (k SerializeErrorKind) String() string {
	switch k {
	case ContentLengthMismatch:
		return "content length mismatch"
	case UnframeableBody:
		return "unframeable body"
	case InvalidMessage:
		return "invalid message"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

var (
	ErrContentLengthMismatch = errors.New("http: content length mismatch")
	ErrUnframeableBody       = errors.New("http: unframeable body")
	ErrInvalidMessage        = errors.New("http: invalid message")
)

// SerializeError reports a message that cannot be written as declared.
type SerializeError struct {
	Kind    SerializeErrorKind
	Message string
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("http: %s: %s", e.Kind, e.Message)
}

func (e *SerializeError) Is(target error) bool {
	switch e.Kind {
	case ContentLengthMismatch:
		return target == ErrContentLengthMismatch
	case UnframeableBody:
		return target == ErrUnframeableBody
	case InvalidMessage:
		return target == ErrInvalidMessage
	}
	return false
}

func serializeErrorf(kind SerializeErrorKind, format string, args ...interface{}) *SerializeError {
	return &SerializeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StatusError is returned by handlers to answer with a specific status.
type StatusError struct {
	Code    int
	Message string
}

// NewStatusError creates a StatusError; an empty message uses the status text.
func NewStatusError(code int, message string) *StatusError {
	if message == "" {
		message = StatusText(code)
	}
	return &StatusError{Code: code, Message: message}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: status %d: %s", e.Code, e.Message)
}

// Response renders the error as a plain-text response.
func (e *StatusError) Response() *Response {
	return NewResponse(e.Code, TextContent(e.Message))
}
