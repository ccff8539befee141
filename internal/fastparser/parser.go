// Package fastparser implements a resumable HTTP/1.x message decoder.
//
// It scans bytes directly, without building intermediate tokens, and reports
// what it finds as a flat list of events. Between calls the only state kept
// is the framing position and, at most, one unterminated line.
package fastparser

import (
	"bytes"

	"golang.org/x/net/http/httpguts"
)

// Mode selects which kind of start line the parser expects.
type Mode uint8

const (
	Requests Mode = iota
	Responses
)

const (
	DefaultMaxStartLine   = 8 << 10
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxHeaderCount = 100

	maxChunkLine = 4 << 10
)

// Limits bounds how much a peer can make the parser buffer.
type Limits struct {
	MaxStartLine   int // bytes in the request or status line
	MaxHeaderBytes int // bytes in the header block, line terminators included
	MaxHeaderCount int // header fields per message; 0 means unlimited
}

// DefaultLimits returns the limits used when a field is left at zero.
func DefaultLimits() Limits {
	return Limits{
		MaxStartLine:   DefaultMaxStartLine,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxHeaderCount: DefaultMaxHeaderCount,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxStartLine <= 0 {
		l.MaxStartLine = DefaultMaxStartLine
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	return l
}

// BodyMode is the framing chosen for a message body.
type BodyMode uint8

const (
	BodyNone BodyMode = iota
	BodyFixed
	BodyChunked
	BodyUntilClose
)

// EventKind identifies an Event.
type EventKind uint8

const (
	EventStartLine EventKind = iota + 1
	EventHeader
	EventHeadersComplete
	EventBodyChunk
	EventTrailer
	EventMessageComplete
)

var eventNames = [...]string{
	EventStartLine:       "StartLine",
	EventHeader:          "Header",
	EventHeadersComplete: "HeadersComplete",
	EventBodyChunk:       "BodyChunk",
	EventTrailer:         "Trailer",
	EventMessageComplete: "MessageComplete",
}

func (k EventKind) String() string {
	if int(k) < len(eventNames) && eventNames[k] != "" {
		return eventNames[k]
	}
	return "Unknown"
}

// Event is one decoded element of a message.
//
// Which fields are set depends on Kind:
//
//	StartLine        Method, Target, Version (requests) or Version, StatusCode, Reason
//	Header, Trailer  Name, Value
//	HeadersComplete  Body, ContentLength (when Body == BodyFixed)
//	BodyChunk        Data
//
// Data aliases the buffer passed to Feed and is only valid until that buffer
// is reused.
type Event struct {
	Kind EventKind

	Method     string
	Target     string
	Version    string
	StatusCode int
	Reason     string

	Name  string
	Value string

	Body          BodyMode
	ContentLength int64

	Data []byte
}

// Phase is the externally visible parser state.
type Phase uint8

const (
	AwaitingStartLine Phase = iota
	AwaitingHeaders
	AwaitingBody
	Complete
	Failed
)

type state uint8

const (
	stateStartLine state = iota
	stateHeaders
	stateBodyFixed
	stateChunkSize
	stateChunkData
	stateChunkDataEnd
	stateTrailers
	stateBodyClose
	stateError
)

// Parser is a resumable HTTP/1.x decoder. The zero value is not usable; call
// NewParser or Init first. A Parser must not be used concurrently.
type Parser struct {
	mode   Mode
	limits Limits
	state  state

	carry  []byte // unterminated line from a previous Feed
	lineNo int    // 1-indexed line number for error reporting
	pos    int64  // bytes consumed so far

	headerBytes int
	headerCount int

	method        string
	status        int
	haveCL        bool
	contentLength int64
	haveTE        bool
	lastCoding    string
	remaining     int64
	crlf          uint8

	reqMethod string
	completed bool

	events []Event
	err    *Error
}

// NewParser creates a parser for the given message kind.
func NewParser(mode Mode, limits Limits) *Parser {
	p := &Parser{}
	p.Init(mode, limits)
	return p
}

// Init resets p for a new stream, keeping allocated buffers.
func (p *Parser) Init(mode Mode, limits Limits) {
	*p = Parser{
		mode:   mode,
		limits: limits.withDefaults(),
		lineNo: 1,
		carry:  p.carry[:0],
		events: p.events[:0],
	}
}

// Reset clears all stream state, including a previous error.
func (p *Parser) Reset() {
	p.Init(p.mode, p.limits)
}

// SetRequestMethod tells a response parser which request the next response
// answers. Responses to HEAD never carry a body.
func (p *Parser) SetRequestMethod(method string) {
	p.reqMethod = method
}

// Err returns the error that stopped the parser, if any.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// Phase reports where the parser is within the current message.
func (p *Parser) Phase() Phase {
	switch p.state {
	case stateError:
		return Failed
	case stateStartLine:
		if p.completed && len(p.carry) == 0 {
			return Complete
		}
		return AwaitingStartLine
	case stateHeaders:
		return AwaitingHeaders
	default:
		return AwaitingBody
	}
}

// Pending reports whether a message has been started but not finished.
func (p *Parser) Pending() bool {
	if p.state == stateError {
		return false
	}
	return p.state != stateStartLine || len(p.carry) > 0
}

// Feed consumes data and returns the events it completes. Bytes that do not
// yet form a complete token are retained for the next call. After an error
// the parser stays failed; the returned events are those decoded before the
// failure. The returned slice is reused by the next call.
func (p *Parser) Feed(data []byte) ([]Event, error) {
	p.events = p.events[:0]
	if p.err != nil {
		return nil, p.err
	}
	for len(data) > 0 {
		n, err := p.step(data)
		p.pos += int64(n)
		data = data[n:]
		if err != nil {
			p.fail(err)
			return p.events, err
		}
	}
	return p.events, nil
}

// Finish signals the end of the stream. It completes a body delimited by
// connection close and fails with Truncated if a message is unfinished.
func (p *Parser) Finish() ([]Event, error) {
	p.events = p.events[:0]
	if p.err != nil {
		return nil, p.err
	}
	switch p.state {
	case stateStartLine:
		if len(bytes.TrimSpace(p.carry)) == 0 {
			p.carry = p.carry[:0]
			return p.events, nil
		}
	case stateBodyClose:
		p.finishMessage()
		return p.events, nil
	}
	err := p.errorf(Truncated, "unexpected end of input")
	p.fail(err)
	return nil, err
}

func (p *Parser) fail(err *Error) {
	p.err = err
	p.state = stateError
	p.carry = p.carry[:0]
}

func (p *Parser) section() Section {
	switch p.state {
	case stateStartLine:
		return SectionStartLine
	case stateHeaders:
		return SectionHeaders
	case stateTrailers:
		return SectionTrailers
	default:
		return SectionBody
	}
}

func (p *Parser) emit(ev Event) {
	p.events = append(p.events, ev)
}

func (p *Parser) emitBody(data []byte) {
	if len(data) == 0 {
		return
	}
	p.emit(Event{Kind: EventBodyChunk, Data: data})
}

// step consumes a prefix of data and returns its length.
func (p *Parser) step(data []byte) (int, *Error) {
	switch p.state {
	case stateBodyFixed, stateChunkData:
		n := len(data)
		if int64(n) > p.remaining {
			n = int(p.remaining)
		}
		p.emitBody(data[:n])
		p.remaining -= int64(n)
		if p.remaining == 0 {
			if p.state == stateBodyFixed {
				p.finishMessage()
			} else {
				p.state = stateChunkDataEnd
				p.crlf = 0
			}
		}
		return n, nil

	case stateChunkDataEnd:
		c := data[0]
		if p.crlf == 0 {
			if c != '\r' {
				return 0, p.errorf(MalformedChunk, "expected CRLF after chunk data, got %q", c)
			}
			p.crlf = 1
			return 1, nil
		}
		if c != '\n' {
			return 0, p.errorf(MalformedChunk, "expected CRLF after chunk data, got %q", c)
		}
		p.state = stateChunkSize
		return 1, nil

	case stateBodyClose:
		p.emitBody(data)
		return len(data), nil
	}
	return p.stepLine(data)
}

func (p *Parser) lineLimit() int {
	switch p.state {
	case stateStartLine:
		return p.limits.MaxStartLine
	case stateChunkSize:
		return maxChunkLine
	default:
		left := p.limits.MaxHeaderBytes - p.headerBytes
		if left < 0 {
			left = 0
		}
		return left
	}
}

func (p *Parser) tooLarge() *Error {
	switch p.state {
	case stateStartLine:
		return p.errorf(TooLarge, "start line exceeds %d bytes", p.limits.MaxStartLine)
	case stateChunkSize:
		return p.errorf(TooLarge, "chunk size line exceeds %d bytes", maxChunkLine)
	default:
		return p.errorf(TooLarge, "header block exceeds %d bytes", p.limits.MaxHeaderBytes)
	}
}

// stepLine handles the line-oriented states. A line is terminated by LF,
// optionally preceded by CR.
func (p *Parser) stepLine(data []byte) (int, *Error) {
	if p.state == stateStartLine {
		p.completed = false
	}
	limit := p.lineLimit() + 1 // room for the CR
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		if len(p.carry)+len(data) > limit {
			return 0, p.tooLarge()
		}
		p.carry = append(p.carry, data...)
		return len(data), nil
	}
	if len(p.carry)+i > limit {
		return 0, p.tooLarge()
	}

	line := data[:i]
	if len(p.carry) > 0 {
		p.carry = append(p.carry, line...)
		line = p.carry
	}
	hadCR := false
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
		hadCR = true
	}

	err := p.processLine(line, hadCR)
	p.carry = p.carry[:0]
	if err != nil {
		return 0, err
	}
	p.lineNo++
	return i + 1, nil
}

func (p *Parser) processLine(line []byte, hadCR bool) *Error {
	switch p.state {
	case stateStartLine:
		if !hadCR {
			return p.errorf(MalformedStartLine, "start line must end with CRLF")
		}
		if len(line) == 0 {
			// RFC 9112 §2.2: ignore empty lines before the start line.
			return nil
		}
		if p.mode == Requests {
			return p.parseRequestLine(line)
		}
		return p.parseStatusLine(line)

	case stateHeaders:
		if !hadCR {
			return p.errorf(MalformedHeader, "header line must end with CRLF")
		}
		if len(line) == 0 {
			return p.endHeaders()
		}
		return p.parseHeader(line, false)

	case stateTrailers:
		if !hadCR {
			return p.errorf(MalformedHeader, "trailer line must end with CRLF")
		}
		if len(line) == 0 {
			p.finishMessage()
			return nil
		}
		return p.parseHeader(line, true)

	case stateChunkSize:
		if !hadCR {
			return p.errorf(MalformedChunk, "chunk size line must end with CRLF")
		}
		return p.parseChunkSize(line)
	}
	return nil
}

// parseRequestLine parses "METHOD SP TARGET SP VERSION".
func (p *Parser) parseRequestLine(line []byte) *Error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return p.errorf(MalformedStartLine, "malformed request line: no method separator")
	}
	rest := line[sp1+1:]

	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return p.errorf(MalformedStartLine, "malformed request line: no version separator")
	}

	method := internMethod(line[:sp1])
	if !httpguts.ValidHeaderFieldName(method) {
		return p.errorf(MalformedStartLine, "invalid request method %q", method)
	}
	target := rest[:sp2]
	for _, c := range target {
		if c <= ' ' || c == 0x7f {
			return p.errorf(InvalidURL, "control character in request target")
		}
	}
	version, err := p.parseVersion(rest[sp2+1:])
	if err != nil {
		return err
	}

	p.method = method
	p.state = stateHeaders
	p.emit(Event{Kind: EventStartLine, Method: method, Target: string(target), Version: version})
	return nil
}

// parseStatusLine parses "VERSION SP STATUS [SP REASON]".
func (p *Parser) parseStatusLine(line []byte) *Error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return p.errorf(MalformedStartLine, "malformed status line: no version separator")
	}
	version, err := p.parseVersion(line[:sp1])
	if err != nil {
		return err
	}

	rest := line[sp1+1:]
	codeBytes, reasonBytes := rest, []byte(nil)
	if sp2 := bytes.IndexByte(rest, ' '); sp2 >= 0 {
		codeBytes, reasonBytes = rest[:sp2], rest[sp2+1:]
	}
	if len(codeBytes) != 3 {
		return p.errorf(MalformedStartLine, "invalid status code: %s", string(codeBytes))
	}
	code := 0
	for _, c := range codeBytes {
		if c < '0' || c > '9' {
			return p.errorf(MalformedStartLine, "invalid status code: %s", string(codeBytes))
		}
		code = code*10 + int(c-'0')
	}
	if code < 100 {
		return p.errorf(MalformedStartLine, "invalid status code: %d", code)
	}
	for _, c := range reasonBytes {
		if (c < ' ' && c != '\t') || c == 0x7f {
			return p.errorf(MalformedStartLine, "control character in reason phrase")
		}
	}

	p.status = code
	p.state = stateHeaders
	p.emit(Event{Kind: EventStartLine, Version: version, StatusCode: code, Reason: internReason(reasonBytes)})
	return nil
}

// parseVersion accepts HTTP/1.x only.
func (p *Parser) parseVersion(b []byte) (string, *Error) {
	if len(b) != 8 || !bytes.HasPrefix(b, []byte("HTTP/1.")) || b[7] < '0' || b[7] > '9' {
		return "", p.errorf(MalformedStartLine, "unsupported protocol version %q", string(b))
	}
	return internVersion(b), nil
}

// parseHeader parses "Key: Value". Obsolete line folding is rejected; it is
// a known request smuggling vector.
func (p *Parser) parseHeader(line []byte, trailer bool) *Error {
	p.headerBytes += len(line) + 2
	if p.headerBytes > p.limits.MaxHeaderBytes {
		return p.tooLarge()
	}
	p.headerCount++
	if p.limits.MaxHeaderCount > 0 && p.headerCount > p.limits.MaxHeaderCount {
		return p.errorf(TooLarge, "more than %d header fields", p.limits.MaxHeaderCount)
	}

	if line[0] == ' ' || line[0] == '\t' {
		return p.errorf(MalformedHeader, "obsolete line folding is not supported")
	}
	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		return p.errorf(MalformedHeader, "malformed header line (no colon): %q", line)
	}
	if colon == 0 {
		return p.errorf(MalformedHeader, "empty header name")
	}
	// RFC 9112: no whitespace between field-name and colon
	if c := line[colon-1]; c == ' ' || c == '\t' {
		return p.errorf(MalformedHeader, "whitespace before colon in header name: %q", line[:colon])
	}

	key := internHeaderName(line[:colon])
	if !httpguts.ValidHeaderFieldName(key) {
		return p.errorf(MalformedHeader, "invalid header name %q", key)
	}
	value := string(trimOWS(line[colon+1:]))
	if !httpguts.ValidHeaderFieldValue(value) {
		return p.errorf(MalformedHeader, "invalid value for header %s", key)
	}

	if trailer {
		p.emit(Event{Kind: EventTrailer, Name: key, Value: value})
		return nil
	}
	if err := p.trackFraming(key, value); err != nil {
		return err
	}
	p.emit(Event{Kind: EventHeader, Name: key, Value: value})
	return nil
}

// trackFraming records Content-Length and Transfer-Encoding as they arrive.
func (p *Parser) trackFraming(key, value string) *Error {
	switch {
	case eqFold(key, "Content-Length"):
		for _, part := range splitComma(value) {
			part = trimString(part)
			n, ok := parseContentLength(part)
			if !ok {
				return p.errorf(MalformedHeader, "invalid Content-Length %q", part)
			}
			if p.haveCL && n != p.contentLength {
				return p.errorf(AmbiguousFraming, "conflicting Content-Length values %d and %d", p.contentLength, n)
			}
			p.haveCL = true
			p.contentLength = n
		}
	case eqFold(key, "Transfer-Encoding"):
		p.haveTE = true
		for _, part := range splitComma(value) {
			if coding := trimString(part); coding != "" {
				p.lastCoding = coding
			}
		}
	}
	return nil
}

// bodyMode applies the RFC 9112 §6.3 message body length rules.
func (p *Parser) bodyMode() (BodyMode, *Error) {
	if p.haveTE && p.haveCL {
		return BodyNone, p.errorf(AmbiguousFraming, "both Transfer-Encoding and Content-Length present")
	}
	if p.mode == Responses {
		if p.status < 200 || p.status == 204 || p.status == 304 || p.reqMethod == "HEAD" {
			return BodyNone, nil
		}
	} else if p.method == "HEAD" {
		return BodyNone, nil
	}
	if p.haveTE {
		if eqFold(p.lastCoding, "chunked") {
			return BodyChunked, nil
		}
		if p.mode == Requests {
			return BodyNone, p.errorf(AmbiguousFraming, "final transfer coding %q is not chunked", p.lastCoding)
		}
		return BodyUntilClose, nil
	}
	if p.haveCL {
		return BodyFixed, nil
	}
	if p.mode == Requests {
		return BodyNone, nil
	}
	return BodyUntilClose, nil
}

func (p *Parser) endHeaders() *Error {
	mode, err := p.bodyMode()
	if err != nil {
		return err
	}
	ev := Event{Kind: EventHeadersComplete, Body: mode}
	if mode == BodyFixed {
		ev.ContentLength = p.contentLength
	}
	p.emit(ev)

	switch mode {
	case BodyNone:
		p.finishMessage()
	case BodyFixed:
		if p.contentLength == 0 {
			p.finishMessage()
			return nil
		}
		p.remaining = p.contentLength
		p.state = stateBodyFixed
	case BodyChunked:
		p.state = stateChunkSize
	case BodyUntilClose:
		p.state = stateBodyClose
	}
	return nil
}

func (p *Parser) finishMessage() {
	p.emit(Event{Kind: EventMessageComplete})
	if p.mode == Responses && p.status >= 200 {
		p.reqMethod = ""
	}
	p.method = ""
	p.status = 0
	p.haveCL = false
	p.contentLength = 0
	p.haveTE = false
	p.lastCoding = ""
	p.remaining = 0
	p.headerBytes = 0
	p.headerCount = 0
	p.state = stateStartLine
	p.completed = true
}

// parseContentLength accepts 1*DIGIT, bounded to avoid overflow.
func parseContentLength(s string) (int64, bool) {
	if len(s) == 0 || len(s) > 18 {
		return 0, false
	}
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

// trimOWS trims optional whitespace (SP and HTAB) from both ends of b.
func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

// splitComma splits a comma-separated string into parts.
func splitComma(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// trimString trims leading and trailing ASCII whitespace.
func trimString(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// eqFold is a fast ASCII case-insensitive string comparison.
func eqFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
