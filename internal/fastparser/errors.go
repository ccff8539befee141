package fastparser

import "fmt"

// ErrorKind classifies a parse failure.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	InvalidURL
	InvalidHeaderValue
	MalformedHeader
	MalformedChunk
	AmbiguousFraming
	TooLarge
	MalformedStartLine
	Truncated
)

var kindNames = [...]string{
	KindNone:           "none",
	InvalidURL:         "invalid url",
	InvalidHeaderValue: "invalid header value",
	MalformedHeader:    "malformed header",
	MalformedChunk:     "malformed chunk",
	AmbiguousFraming:   "ambiguous framing",
	TooLarge:           "too large",
	MalformedStartLine: "malformed start line",
	Truncated:          "truncated message",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Section names the part of a message being decoded when an error occurred.
type Section uint8

const (
	SectionStartLine Section = iota
	SectionHeaders
	SectionBody
	SectionTrailers
)

// Error is returned by Parser once it enters its absorbing error state.
type Error struct {
	Kind    ErrorKind
	Section Section
	Msg     string
	Line    int   // 1-indexed line within the stream
	Pos     int64 // byte offset within the stream
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("http: %s at line %d: %s", e.Kind, e.Line, e.Msg)
	}
	return fmt.Sprintf("http: %s: %s", e.Kind, e.Msg)
}

func (p *Parser) errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Section: p.section(),
		Msg:     fmt.Sprintf(format, args...),
		Line:    p.lineNo,
		Pos:     p.pos,
	}
}
